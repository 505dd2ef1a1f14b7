package api

import "time"

// PostStatus is the publication state of a post.
type PostStatus string

const (
	StatusDraft     PostStatus = "DRAFT"
	StatusPublished PostStatus = "PUBLISHED"
)

// Valid reports whether s is a status the server accepts.
func (s PostStatus) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// Author is the user who wrote a post.
type Author struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
}

// Category groups posts. PostCount is only filled in listings.
type Category struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	PostCount int    `json:"postCount,omitempty" yaml:"post_count,omitempty"`
}

// Tag labels posts. PostCount is only filled in listings.
type Tag struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	PostCount int    `json:"postCount,omitempty" yaml:"post_count,omitempty"`
}

// Post is a blog post with its Markdown content.
type Post struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Content     string     `json:"content" yaml:"content"`
	Author      *Author    `json:"author,omitempty" yaml:"author,omitempty"`
	Category    *Category  `json:"category,omitempty" yaml:"category,omitempty"`
	Tags        []Tag      `json:"tags,omitempty" yaml:"tags,omitempty"`
	ReadingTime int        `json:"readingTime,omitempty" yaml:"reading_time,omitempty"`
	CreatedAt   time.Time  `json:"createdAt" yaml:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" yaml:"updated_at"`
	Status      PostStatus `json:"postStatus,omitempty" yaml:"status,omitempty"`
}

// Credentials is the login request.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the sign-up request.
type Registration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// AuthResponse is returned by login and registration. ExpiresIn is in
// milliseconds.
type AuthResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
	Name      string `json:"name"`
	Email     string `json:"email"`
}

// CreatePostRequest creates a post.
type CreatePostRequest struct {
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	CategoryID string     `json:"categoryId"`
	TagIDs     []string   `json:"tagsId"`
	Status     PostStatus `json:"postStatus"`
}

// UpdatePostRequest replaces a post's editable fields. The server names the
// tag list differently here than on create.
type UpdatePostRequest struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	CategoryID string     `json:"categoryId"`
	TagIDs     []string   `json:"tagsIds"`
	Status     PostStatus `json:"postStatus"`
}

// CreateCategoryRequest creates a category.
type CreateCategoryRequest struct {
	Name string `json:"name"`
}

// CreateTagsRequest creates several tags at once.
type CreateTagsRequest struct {
	Names []string `json:"names"`
}

// PostFilter narrows a post listing. Empty fields are not sent.
type PostFilter struct {
	CategoryID string
	TagID      string
}

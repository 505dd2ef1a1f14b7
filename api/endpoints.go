package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

const (
	loginPath      = "/api/v1/auth/login"
	registerPath   = "/api/v1/auth/register"
	postsPath      = "/api/v1/posts"
	draftsPath     = "/api/v1/posts/drafts"
	categoriesPath = "/api/v1/categories"
	tagsPath       = "/api/v1/tags"
)

// Login exchanges credentials for a token and the account's identity.
func (c *Client) Login(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, loginPath, nil, creds, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates an account and logs it in.
func (c *Client) Register(ctx context.Context, reg Registration) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, registerPath, nil, reg, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListPosts returns published posts, optionally filtered by category or tag.
func (c *Client) ListPosts(ctx context.Context, filter PostFilter) ([]Post, error) {
	query := url.Values{}
	if filter.CategoryID != "" {
		query.Set("categoryId", filter.CategoryID)
	}
	if filter.TagID != "" {
		query.Set("tagId", filter.TagID)
	}

	var posts []Post
	if err := c.do(ctx, http.MethodGet, postsPath, query, nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// ListDrafts returns the logged-in user's drafts.
func (c *Client) ListDrafts(ctx context.Context) ([]Post, error) {
	var posts []Post
	if err := c.do(ctx, http.MethodGet, draftsPath, nil, nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// GetPost returns one post.
func (c *Client) GetPost(ctx context.Context, id string) (*Post, error) {
	if id == "" {
		return nil, fmt.Errorf("post id is required")
	}
	var post Post
	if err := c.do(ctx, http.MethodGet, postsPath+"/"+url.PathEscape(id), nil, nil, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// CreatePost validates req and creates the post.
func (c *Client) CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var post Post
	if err := c.do(ctx, http.MethodPost, postsPath, nil, req, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// UpdatePost validates req and replaces the post identified by req.ID.
func (c *Client) UpdatePost(ctx context.Context, req UpdatePostRequest) (*Post, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var post Post
	if err := c.do(ctx, http.MethodPut, postsPath+"/"+url.PathEscape(req.ID), nil, req, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// ListCategories returns every category with its post count.
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := c.do(ctx, http.MethodGet, categoriesPath, nil, nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// CreateCategory validates req and creates the category.
func (c *Client) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*Category, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var category Category
	if err := c.do(ctx, http.MethodPost, categoriesPath, nil, req, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

// DeleteCategory deletes a category. The server refuses while posts use it.
func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("category id is required")
	}
	return c.do(ctx, http.MethodDelete, categoriesPath+"/"+url.PathEscape(id), nil, nil, nil)
}

// ListTags returns every tag with its post count.
func (c *Client) ListTags(ctx context.Context) ([]Tag, error) {
	var tags []Tag
	if err := c.do(ctx, http.MethodGet, tagsPath, nil, nil, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// CreateTags validates req and creates the named tags, returning them.
// Names that already exist are returned rather than duplicated.
func (c *Client) CreateTags(ctx context.Context, req CreateTagsRequest) ([]Tag, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var tags []Tag
	if err := c.do(ctx, http.MethodPost, tagsPath, nil, req, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// DeleteTag deletes a tag. The server refuses while posts use it.
func (c *Client) DeleteTag(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("tag id is required")
	}
	return c.do(ctx, http.MethodDelete, tagsPath+"/"+url.PathEscape(id), nil, nil, nil)
}

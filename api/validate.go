package api

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Limits enforced by the server, checked locally to fail before a round trip.
const (
	TitleMinLen         = 3
	TitleMaxLen         = 200
	CreateContentMinLen = 3
	UpdateContentMinLen = 10
	ContentMaxLen       = 50000
	MaxTagsPerPost      = 10
	MaxTagsPerCreate    = 10
	TagNameMinLen       = 2
	TagNameMaxLen       = 30
)

var tagNamePattern = regexp.MustCompile(`^[\w\s-]+$`)

// ValidationError is a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors lists every invalid field of a request.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return "invalid request: " + strings.Join(msgs, "; ")
}

// orNil keeps a nil ValidationErrors from becoming a non-nil error.
func (e ValidationErrors) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func (e *ValidationErrors) add(field, format string, args ...any) {
	*e = append(*e, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (e *ValidationErrors) checkLength(field, value string, min, max int) {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	switch {
	case n == 0:
		e.add(field, "is required")
	case n < min || n > max:
		e.add(field, "must be between %d and %d characters", min, max)
	}
}

func (e *ValidationErrors) checkTagIDs(ids []string) {
	if len(ids) > MaxTagsPerPost {
		e.add("tags", "maximum %d tags allowed", MaxTagsPerPost)
	}
}

// Validate checks the fields the server would reject.
func (r CreatePostRequest) Validate() error {
	var errs ValidationErrors
	errs.checkLength("title", r.Title, TitleMinLen, TitleMaxLen)
	errs.checkLength("content", r.Content, CreateContentMinLen, ContentMaxLen)
	if strings.TrimSpace(r.CategoryID) == "" {
		errs.add("category", "is required")
	}
	errs.checkTagIDs(r.TagIDs)
	if !r.Status.Valid() {
		errs.add("status", "must be %s or %s", StatusDraft, StatusPublished)
	}
	return errs.orNil()
}

// Validate checks the fields the server would reject. Updates require
// longer content than creates.
func (r UpdatePostRequest) Validate() error {
	var errs ValidationErrors
	if strings.TrimSpace(r.ID) == "" {
		errs.add("id", "is required")
	}
	errs.checkLength("title", r.Title, TitleMinLen, TitleMaxLen)
	errs.checkLength("content", r.Content, UpdateContentMinLen, ContentMaxLen)
	if strings.TrimSpace(r.CategoryID) == "" {
		errs.add("category", "is required")
	}
	errs.checkTagIDs(r.TagIDs)
	if !r.Status.Valid() {
		errs.add("status", "must be %s or %s", StatusDraft, StatusPublished)
	}
	return errs.orNil()
}

// Validate checks that the category has a name.
func (r CreateCategoryRequest) Validate() error {
	var errs ValidationErrors
	if strings.TrimSpace(r.Name) == "" {
		errs.add("name", "is required")
	}
	return errs.orNil()
}

// Validate checks the count and the shape of every name.
func (r CreateTagsRequest) Validate() error {
	var errs ValidationErrors
	switch {
	case len(r.Names) == 0:
		errs.add("names", "at least one tag name is required")
	case len(r.Names) > MaxTagsPerCreate:
		errs.add("names", "maximum %d tags allowed", MaxTagsPerCreate)
	}
	for i, name := range r.Names {
		field := fmt.Sprintf("names[%d]", i)
		n := utf8.RuneCountInString(name)
		if n < TagNameMinLen || n > TagNameMaxLen {
			errs.add(field, "tag name must be between %d and %d characters", TagNameMinLen, TagNameMaxLen)
			continue
		}
		if !tagNamePattern.MatchString(name) {
			errs.add(field, "tag name can only contain letters, numbers, spaces, and hyphens")
		}
	}
	return errs.orNil()
}

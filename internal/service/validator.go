package service

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxNameLength    = 50
	minContentLength = 10
	maxContentLength = 500
)

// Minimal structural check: something, "@", something, ".", something.
// Deliberately not full RFC validation.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Substrings that force a submission into the spam queue. Matched
// case-insensitively against both name and content.
var spamKeywords = []string{
	"viagra",
	"casino",
	"porn",
	"click here",
	"free money",
}

// CommentSubmission is a raw comment submission before validation.
type CommentSubmission struct {
	Name     string
	Email    string
	Website  string
	Content  string
	PostID   string
	ParentID string
}

// ValidateSubmission checks a raw submission and returns a normalized copy:
// name and content trimmed, email trimmed and lower-cased, website trimmed.
// Checks run in a fixed order and fail fast with a distinct error kind.
func ValidateSubmission(raw CommentSubmission) (*CommentSubmission, error) {
	name := strings.TrimSpace(raw.Name)
	email := strings.TrimSpace(raw.Email)
	content := strings.TrimSpace(raw.Content)
	postID := strings.TrimSpace(raw.PostID)

	required := []struct {
		field string
		value string
	}{
		{"name", name},
		{"email", email},
		{"content", content},
		{"postId", postID},
	}
	for _, f := range required {
		field, value := f.field, f.value
		if value == "" {
			return nil, &ValidationError{
				Kind:    ErrMissingField,
				Field:   field,
				Message: fmt.Sprintf("%s is required", field),
			}
		}
	}

	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, &ValidationError{
			Kind:    ErrFieldTooLong,
			Field:   "name",
			Message: fmt.Sprintf("name must be at most %d characters", maxNameLength),
		}
	}

	if n := utf8.RuneCountInString(content); n < minContentLength || n > maxContentLength {
		return nil, &ValidationError{
			Kind:    ErrFieldOutOfRange,
			Field:   "content",
			Message: fmt.Sprintf("content must be between %d and %d characters", minContentLength, maxContentLength),
		}
	}

	if !emailPattern.MatchString(email) {
		return nil, &ValidationError{
			Kind:    ErrInvalidFormat,
			Field:   "email",
			Message: "email address is not valid",
		}
	}

	return &CommentSubmission{
		Name:     name,
		Email:    strings.ToLower(email),
		Website:  strings.TrimSpace(raw.Website),
		Content:  content,
		PostID:   postID,
		ParentID: strings.TrimSpace(raw.ParentID),
	}, nil
}

// IsSpam applies the keyword blocklist to a normalized submission. A match
// forces spam=true and keeps the comment out of reader view until a moderator
// explicitly clears it; the submitter is never told.
func IsSpam(sub *CommentSubmission) bool {
	name := strings.ToLower(sub.Name)
	content := strings.ToLower(sub.Content)
	for _, kw := range spamKeywords {
		if strings.Contains(content, kw) || strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

package service

import (
	"strings"
	"testing"
)

func validSubmission() CommentSubmission {
	return CommentSubmission{
		Name:    "Alice",
		Email:   "alice@example.com",
		Content: "This is a perfectly reasonable comment.",
		PostID:  "post-1",
	}
}

func TestValidateSubmissionMissingFields(t *testing.T) {
	cases := []struct {
		field  string
		mutate func(*CommentSubmission)
	}{
		{"name", func(s *CommentSubmission) { s.Name = "   " }},
		{"email", func(s *CommentSubmission) { s.Email = "" }},
		{"content", func(s *CommentSubmission) { s.Content = "\t\n" }},
		{"postId", func(s *CommentSubmission) { s.PostID = "" }},
	}

	for _, tc := range cases {
		sub := validSubmission()
		tc.mutate(&sub)

		_, err := ValidateSubmission(sub)
		verr, ok := AsValidationError(err)
		if !ok {
			t.Fatalf("%s: expected ValidationError, got %v", tc.field, err)
		}
		if verr.Kind != ErrMissingField {
			t.Errorf("%s: expected kind %s, got %s", tc.field, ErrMissingField, verr.Kind)
		}
		if verr.Field != tc.field {
			t.Errorf("expected field %s, got %s", tc.field, verr.Field)
		}
	}
}

func TestValidateSubmissionNameLength(t *testing.T) {
	sub := validSubmission()
	sub.Name = strings.Repeat("x", 50)
	if _, err := ValidateSubmission(sub); err != nil {
		t.Errorf("50-character name should pass, got %v", err)
	}

	sub.Name = strings.Repeat("x", 51)
	_, err := ValidateSubmission(sub)
	verr, ok := AsValidationError(err)
	if !ok || verr.Kind != ErrFieldTooLong {
		t.Errorf("51-character name: expected %s, got %v", ErrFieldTooLong, err)
	}
}

func TestValidateSubmissionContentBounds(t *testing.T) {
	cases := []struct {
		length int
		ok     bool
	}{
		{9, false},
		{10, true},
		{500, true},
		{501, false},
	}

	for _, tc := range cases {
		sub := validSubmission()
		sub.Content = strings.Repeat("a", tc.length)

		_, err := ValidateSubmission(sub)
		if tc.ok && err != nil {
			t.Errorf("content of %d characters should pass, got %v", tc.length, err)
		}
		if !tc.ok {
			verr, isVErr := AsValidationError(err)
			if !isVErr || verr.Kind != ErrFieldOutOfRange {
				t.Errorf("content of %d characters: expected %s, got %v", tc.length, ErrFieldOutOfRange, err)
			}
		}
	}
}

func TestValidateSubmissionContentBoundsAfterTrimming(t *testing.T) {
	sub := validSubmission()
	sub.Content = "   " + strings.Repeat("a", 9) + "   "

	_, err := ValidateSubmission(sub)
	verr, ok := AsValidationError(err)
	if !ok || verr.Kind != ErrFieldOutOfRange {
		t.Errorf("padding must not count toward content length, got %v", err)
	}
}

func TestValidateSubmissionEmailShape(t *testing.T) {
	bad := []string{"nope", "a@b", "a b@c.com", "a@b .com", "@b.com"}
	for _, email := range bad {
		sub := validSubmission()
		sub.Email = email

		_, err := ValidateSubmission(sub)
		verr, ok := AsValidationError(err)
		if !ok || verr.Kind != ErrInvalidFormat {
			t.Errorf("email %q: expected %s, got %v", email, ErrInvalidFormat, err)
		}
	}

	sub := validSubmission()
	sub.Email = "user.name+tag@sub.example.co"
	if _, err := ValidateSubmission(sub); err != nil {
		t.Errorf("structurally valid email rejected: %v", err)
	}
}

func TestValidateSubmissionNormalizes(t *testing.T) {
	sub := CommentSubmission{
		Name:    "  Alice  ",
		Email:   "  Alice@Example.COM ",
		Website: "  https://alice.example  ",
		Content: "  a comment long enough to pass  ",
		PostID:  " post-1 ",
	}

	got, err := ValidateSubmission(sub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Alice" {
		t.Errorf("name not trimmed: %q", got.Name)
	}
	if got.Email != "alice@example.com" {
		t.Errorf("email not normalized: %q", got.Email)
	}
	if got.Website != "https://alice.example" {
		t.Errorf("website not trimmed: %q", got.Website)
	}
	if got.Content != "a comment long enough to pass" {
		t.Errorf("content not trimmed: %q", got.Content)
	}
	if got.PostID != "post-1" {
		t.Errorf("postId not trimmed: %q", got.PostID)
	}
}

func TestIsSpamKeywordMatching(t *testing.T) {
	cases := []struct {
		name    string
		content string
		spam    bool
	}{
		{"Alice", "Great write-up, thanks for sharing this.", false},
		{"Alice", "Visit my CASINO for free spins today!!", true},
		{"Alice", "you should Click Here right away friends", true},
		{"viagra4u", "An otherwise innocuous comment body here.", true},
		{"Alice", "I liked the part about concurrency.", false},
	}

	for _, tc := range cases {
		sub := &CommentSubmission{Name: tc.name, Content: tc.content}
		if got := IsSpam(sub); got != tc.spam {
			t.Errorf("IsSpam(%q, %q) = %v, want %v", tc.name, tc.content, got, tc.spam)
		}
	}
}

package app_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"marginalia/internal/app"
	"marginalia/internal/config"
	"marginalia/internal/model"
	"marginalia/internal/repository"
	"marginalia/internal/service"
	"marginalia/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const testModeratorPassword = "correct horse battery staple"

// memCommentRepo is an in-memory comment store for router-level tests.
type memCommentRepo struct {
	comments map[string]*model.Comment
	seq      int
	fail     bool
}

func newMemCommentRepo() *memCommentRepo {
	return &memCommentRepo{comments: make(map[string]*model.Comment)}
}

func (r *memCommentRepo) Create(c *model.Comment) error {
	if r.fail {
		return errors.New("store down")
	}
	r.seq++
	c.ID = fmt.Sprintf("c-%d", r.seq)
	c.CreatedAt = time.Now().Add(-time.Minute).Add(time.Duration(r.seq) * time.Millisecond)
	c.UpdatedAt = c.CreatedAt
	stored := *c
	r.comments[c.ID] = &stored
	return nil
}

func (r *memCommentRepo) FindByID(id string) (*model.Comment, error) {
	c, ok := r.comments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *memCommentRepo) FindVisibleByPostID(postID string) ([]model.Comment, error) {
	if r.fail {
		return nil, errors.New("store down")
	}
	var out []model.Comment
	for _, c := range r.comments {
		if c.PostID == postID && c.Visible() {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memCommentRepo) FindPending(limit, offset int) ([]model.Comment, error) {
	var out []model.Comment
	for _, c := range r.comments {
		if !c.Approved || c.Spam {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memCommentRepo) CountVisibleByPostID(postID string) (int64, error) {
	visible, err := r.FindVisibleByPostID(postID)
	if err != nil {
		return 0, err
	}
	return int64(len(visible)), nil
}

func (r *memCommentRepo) Patch(id string, fields map[string]interface{}) (*model.Comment, error) {
	c, ok := r.comments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if v, ok := fields["approved"]; ok {
		c.Approved = v.(bool)
	}
	if v, ok := fields["spam"]; ok {
		c.Spam = v.(bool)
	}
	if v, ok := fields["updated_at"]; ok {
		c.UpdatedAt = v.(time.Time)
	}
	copied := *c
	return &copied, nil
}

func (r *memCommentRepo) Delete(id string) error {
	if _, ok := r.comments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.comments, id)
	return nil
}

func setupTestRouter(t *testing.T) (*gin.Engine, *memCommentRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte(testModeratorPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	cfg := &config.Config{
		Env:                   "test",
		ClientURL:             "http://localhost:3000",
		JWTSecret:             "test-secret",
		ModeratorPasswordHash: string(hash),
		RateLimitEnabled:      false,
	}

	repo := newMemCommentRepo()
	log := zerolog.Nop()
	svcs := &app.Services{
		Comments: service.NewCommentService(repo, nil, log),
	}

	return app.NewRouterWithServices(cfg, log, svcs, nil), repo
}

func moderatorToken(t *testing.T) string {
	t.Helper()
	token, err := util.GenerateToken("moderator", "test-secret")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return token
}

func doJSON(router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func submitBody(postID, content string) map[string]interface{} {
	return map[string]interface{}{
		"name":    "Alice",
		"email":   "alice@example.com",
		"content": content,
		"post":    map[string]string{"_ref": postID},
	}
}

func TestListCommentsRequiresPostID(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doJSON(router, "GET", "/api/comments", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["error"] == nil {
		t.Errorf("expected error body, got %v", resp)
	}
}

func TestSubmitModerateListRoundTrip(t *testing.T) {
	router, _ := setupTestRouter(t)
	token := moderatorToken(t)

	// Submit.
	w := doJSON(router, "POST", "/api/comments", "", submitBody("p1", "a comment that clears the bar"))
	if w.Code != http.StatusCreated {
		t.Fatalf("submit: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		Success bool `json:"success"`
		Comment struct {
			ID        string `json:"id"`
			Name      string `json:"name"`
			Content   string `json:"content"`
			CreatedAt string `json:"createdAt"`
		} `json:"comment"`
	}
	json.Unmarshal(w.Body.Bytes(), &created)
	if !created.Success || created.Comment.ID == "" {
		t.Fatalf("unexpected submit response: %s", w.Body.String())
	}

	// Unapproved comments are invisible.
	w = doJSON(router, "GET", "/api/comments?postId=p1", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}
	var listed struct {
		Success  bool                     `json:"success"`
		Comments []map[string]interface{} `json:"comments"`
	}
	json.Unmarshal(w.Body.Bytes(), &listed)
	if len(listed.Comments) != 0 {
		t.Fatalf("expected empty list before approval, got %v", listed.Comments)
	}

	// Approve.
	w = doJSON(router, "PUT", "/api/comments", token, map[string]interface{}{
		"commentId": created.Comment.ID,
		"approved":  true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("moderate: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// Now visible, and without email or client metadata.
	w = doJSON(router, "GET", "/api/comments?postId=p1", "", nil)
	json.Unmarshal(w.Body.Bytes(), &listed)
	if len(listed.Comments) != 1 {
		t.Fatalf("expected one visible comment, got %d", len(listed.Comments))
	}
	entry := listed.Comments[0]
	if entry["id"] != created.Comment.ID {
		t.Errorf("expected id %s, got %v", created.Comment.ID, entry["id"])
	}
	for _, leaked := range []string{"email", "author_email", "ip_address", "user_agent"} {
		if _, ok := entry[leaked]; ok {
			t.Errorf("reader response leaks %s", leaked)
		}
	}
}

func TestSubmitValidationFailureStatus(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doJSON(router, "POST", "/api/comments", "", submitBody("p1", "short"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	var resp map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if _, ok := resp["success"]; ok {
		t.Errorf("validation failure must not carry a success flag: %v", resp)
	}
}

func TestSpamSubmissionLooksNormalOverHTTP(t *testing.T) {
	router, repo := setupTestRouter(t)

	clean := doJSON(router, "POST", "/api/comments", "", submitBody("p1", "a very ordinary kind comment"))
	spam := doJSON(router, "POST", "/api/comments", "", submitBody("p1", "come visit my online casino!!"))

	if clean.Code != spam.Code {
		t.Fatalf("status codes differ: %d vs %d", clean.Code, spam.Code)
	}

	var cleanResp, spamResp map[string]interface{}
	json.Unmarshal(clean.Body.Bytes(), &cleanResp)
	json.Unmarshal(spam.Body.Bytes(), &spamResp)

	cleanKeys := responseKeys(cleanResp)
	spamKeys := responseKeys(spamResp)
	if fmt.Sprint(cleanKeys) != fmt.Sprint(spamKeys) {
		t.Errorf("response shapes differ: %v vs %v", cleanKeys, spamKeys)
	}

	// But the store knows.
	spamComment := spamResp["comment"].(map[string]interface{})
	stored, err := repo.FindByID(spamComment["id"].(string))
	if err != nil {
		t.Fatalf("stored comment missing: %v", err)
	}
	if !stored.Spam || stored.Approved {
		t.Errorf("expected stored spam=true approved=false, got %+v", stored)
	}
}

func TestModerationRequiresToken(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doJSON(router, "PUT", "/api/comments", "", map[string]interface{}{
		"commentId": "c-1", "approved": true,
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("moderate without token: expected 401, got %d", w.Code)
	}

	w = doJSON(router, "DELETE", "/api/comments?commentId=c-1", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("delete without token: expected 401, got %d", w.Code)
	}

	w = doJSON(router, "GET", "/api/comments/pending", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("pending without token: expected 401, got %d", w.Code)
	}
}

func TestDeleteUnknownCommentIs404(t *testing.T) {
	router, _ := setupTestRouter(t)
	token := moderatorToken(t)

	w := doJSON(router, "DELETE", "/api/comments?commentId=never-existed", token, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestStoreOutageIs502(t *testing.T) {
	router, repo := setupTestRouter(t)
	repo.fail = true

	w := doJSON(router, "GET", "/api/comments?postId=p1", "", nil)
	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}
}

func TestModeratorLogin(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doJSON(router, "POST", "/api/auth/login", "", map[string]string{"password": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: expected 401, got %d", w.Code)
	}

	w = doJSON(router, "POST", "/api/auth/login", "", map[string]string{"password": testModeratorPassword})
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Success || resp.Token == "" {
		t.Fatalf("expected token in response, got %s", w.Body.String())
	}

	// The issued token opens the moderation queue.
	w = doJSON(router, "GET", "/api/comments/pending", resp.Token, nil)
	if w.Code != http.StatusOK {
		t.Errorf("pending with fresh token: expected 200, got %d", w.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doJSON(router, "GET", "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func responseKeys(resp map[string]interface{}) []string {
	keys := make([]string, 0, len(resp))
	for k := range resp {
		keys = append(keys, k)
	}
	if comment, ok := resp["comment"].(map[string]interface{}); ok {
		for k := range comment {
			keys = append(keys, "comment."+k)
		}
	}
	sort.Strings(keys)
	return keys
}

package posts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socionet/backend/internal/models"
)

type fakeStore struct {
	posts     map[uuid.UUID]*models.Post
	filter    ListFilter
	created   *models.Post
	update    *Update
	increment int
}

func newFakeStore(ps ...*models.Post) *fakeStore {
	s := &fakeStore{posts: map[uuid.UUID]*models.Post{}}
	for _, p := range ps {
		s.posts[p.ID] = p
	}
	return s
}

func (s *fakeStore) List(_ context.Context, f ListFilter) ([]models.Post, error) {
	s.filter = f
	return []models.Post{}, nil
}

func (s *fakeStore) GetPublished(_ context.Context, id uuid.UUID) (*models.Post, error) {
	p, ok := s.posts[id]
	if !ok || !p.IsPublished {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) IncrementViews(_ context.Context, id uuid.UUID) (*models.Post, error) {
	s.increment++
	p := s.posts[id]
	p.Views++
	cp := *p
	return &cp, nil
}

func (s *fakeStore) Create(_ context.Context, p *models.Post) error {
	p.ID = uuid.New()
	p.IsPublished = true
	s.created = p
	return nil
}

func (s *fakeStore) Update(_ context.Context, id uuid.UUID, u Update) (*models.Post, error) {
	p, ok := s.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.update = &u
	return p, nil
}

func (s *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := s.posts[id]; !ok {
		return ErrNotFound
	}
	delete(s.posts, id)
	return nil
}

type fakeSigner struct{}

func (fakeSigner) PresignPut(_ context.Context, bucket, key, _ string, _ time.Duration) (string, error) {
	return "https://signed/" + bucket + "/" + key, nil
}

func (fakeSigner) PublicObjectURL(bucket, key string) string {
	return "https://public/" + bucket + "/" + key
}

func router(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/posts", h.PublicList)
	r.GET("/posts/:id", h.PublicGet)
	r.GET("/admin/posts", h.AdminList)
	r.POST("/admin/posts", h.Create)
	r.POST("/admin/posts/upload-url", h.UploadURL)
	r.PATCH("/admin/posts/:id", h.Update)
	r.DELETE("/admin/posts/:id", h.Delete)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func message(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Message
}

func TestPublicList_Filter(t *testing.T) {
	store := newFakeStore()
	r := router(NewHandler(store, nil, "", nil))

	w := do(r, http.MethodGet, "/posts?category=NOTICE&limit=500", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, store.filter.PublishedOnly)
	require.NotNil(t, store.filter.Category)
	assert.Equal(t, models.CategoryNotice, *store.filter.Category)
	assert.Equal(t, 50, store.filter.Limit)

	do(r, http.MethodGet, "/posts?category=OTHER&limit=abc", "")
	assert.Nil(t, store.filter.Category)
	assert.Equal(t, 0, store.filter.Limit)
}

func TestParseLimit(t *testing.T) {
	assert.Equal(t, 0, parseLimit(""))
	assert.Equal(t, 0, parseLimit("0"))
	assert.Equal(t, 0, parseLimit("-3"))
	assert.Equal(t, 10, parseLimit("10"))
	assert.Equal(t, 50, parseLimit("51"))
}

func TestPublicGet_Views(t *testing.T) {
	p := &models.Post{ID: uuid.New(), Title: "Notice", Category: models.CategoryNotice, IsPublished: true}
	hidden := &models.Post{ID: uuid.New(), Title: "Draft", Category: models.CategoryNotice}
	store := newFakeStore(p, hidden)
	r := router(NewHandler(store, nil, "", nil))

	w := do(r, http.MethodGet, "/posts/"+p.ID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, store.increment)
	assert.Contains(t, w.Body.String(), `"views":1`)

	w = do(r, http.MethodGet, "/posts/"+p.ID.String()+"?increment=false", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, store.increment)

	w = do(r, http.MethodGet, "/posts/"+hidden.ID.String(), "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not found", message(t, w))
}

func TestCreate(t *testing.T) {
	store := newFakeStore()
	r := router(NewHandler(store, nil, "", nil))

	w := do(r, http.MethodPost, "/admin/posts", `{"title":"x"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "title and category are required", message(t, w))

	w = do(r, http.MethodPost, "/admin/posts", `{"title":"x","category":"NEWS"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid category", message(t, w))

	w = do(r, http.MethodPost, "/admin/posts", `{"title":"x","category":"ACTIVITY","content":"<p>ok</p><script>x</script>","isPinned":true}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, store.created)
	require.NotNil(t, store.created.Content)
	assert.Equal(t, "<p>ok</p>", *store.created.Content)
	assert.True(t, store.created.IsPinned)
}

func TestUpdate(t *testing.T) {
	p := &models.Post{ID: uuid.New(), Title: "Notice", Category: models.CategoryNotice, IsPublished: true}
	store := newFakeStore(p)
	r := router(NewHandler(store, nil, "", nil))

	w := do(r, http.MethodPatch, "/admin/posts/"+p.ID.String(), `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No fields to update", message(t, w))

	w = do(r, http.MethodPatch, "/admin/posts/"+p.ID.String(), `{"category":"NEWS"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPatch, "/admin/posts/"+p.ID.String(), `{"content":null}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, store.update)
	assert.True(t, store.update.ContentSet)
	assert.Equal(t, "", store.update.Content)

	w = do(r, http.MethodPatch, "/admin/posts/"+uuid.NewString(), `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDelete(t *testing.T) {
	p := &models.Post{ID: uuid.New()}
	r := router(NewHandler(newFakeStore(p), nil, "", nil))

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/admin/posts/"+p.ID.String(), "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/admin/posts/"+p.ID.String(), "").Code)
}

func TestUploadURL(t *testing.T) {
	w := do(router(NewHandler(newFakeStore(), nil, "", nil)), http.MethodPost, "/admin/posts/upload-url", `{"filePath":"a.png"}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Storage bucket not configured", message(t, w))

	r := router(NewHandler(newFakeStore(), fakeSigner{}, "posts", nil))
	w = do(r, http.MethodPost, "/admin/posts/upload-url", `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/admin/posts/upload-url", `{"filePath":"images/a.png"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "https://signed/posts/images/a.png", body["uploadUrl"])
	assert.Equal(t, "images/a.png", body["path"])
	assert.Equal(t, "https://public/posts/images/a.png", body["publicUrl"])
}

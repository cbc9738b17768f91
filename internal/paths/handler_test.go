package paths

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/skillpath/backend/internal/auth"
	"github.com/ayush/skillpath/backend/internal/logging"
	"github.com/ayush/skillpath/backend/internal/models"
	"github.com/ayush/skillpath/backend/internal/shared"
)

// spyStore is an in-memory PathStore that counts writes.
type spyStore struct {
	mu      sync.Mutex
	paths   map[int64]models.LearningPath
	nextID  int64
	creates int
	deletes int
	err     error
}

func newSpyStore() *spyStore {
	return &spyStore{paths: map[int64]models.LearningPath{}, nextID: 1}
}

func (s *spyStore) CreatePath(_ context.Context, userID int64, np models.NewPath) (*models.LearningPath, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	if s.err != nil {
		return nil, s.err
	}
	p := models.LearningPath{
		ID:          s.nextID,
		UserID:      userID,
		Title:       np.Title,
		Description: np.Description,
		Steps:       models.CopySteps(np.Steps),
		CreatedAt:   time.Date(2024, 5, 13, 9, 30, 0, 0, time.UTC),
	}
	s.nextID++
	s.paths[p.ID] = p
	return &p, nil
}

func (s *spyStore) GetUserPaths(_ context.Context, userID int64) ([]models.LearningPath, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []models.LearningPath
	for id := int64(1); id < s.nextID; id++ {
		if p, ok := s.paths[id]; ok && p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *spyStore) GetPath(_ context.Context, id int64) (*models.LearningPath, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.paths[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *spyStore) DeletePath(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	delete(s.paths, id)
	return nil
}

func (s *spyStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.paths)
}

type fakeGenerator struct {
	path  *models.GeneratedPath
	err   error
	skill string
}

func (g *fakeGenerator) Generate(_ context.Context, skill string) (*models.GeneratedPath, error) {
	g.skill = skill
	return g.path, g.err
}

type memArchive struct {
	objects map[string][]byte
	failAll bool
}

func newMemArchive() *memArchive { return &memArchive{objects: map[string][]byte{}} }

func memKey(userID, pathID int64) string { return fmt.Sprintf("%d/%d", userID, pathID) }

func (a *memArchive) Put(_ context.Context, userID, pathID int64, doc []byte) error {
	if a.failAll {
		return errors.New("archive down")
	}
	a.objects[memKey(userID, pathID)] = doc
	return nil
}

func (a *memArchive) Get(_ context.Context, userID, pathID int64) ([]byte, error) {
	if a.failAll {
		return nil, errors.New("archive down")
	}
	doc, ok := a.objects[memKey(userID, pathID)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return doc, nil
}

func (a *memArchive) Delete(_ context.Context, userID, pathID int64) error {
	if a.failAll {
		return errors.New("archive down")
	}
	delete(a.objects, memKey(userID, pathID))
	return nil
}

func quietLog() logging.Logger { return logging.NewJSON(io.Discard, "error") }

// routes mounts h the way the server does, with the caller injected in
// place of the session middleware. A zero user id means anonymous.
func routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			var uid int64
			if v := req.Header.Get("X-User"); v != "" {
				uid = int64(v[0] - '0')
			}
			if uid != 0 {
				req = req.WithContext(auth.WithUser(req.Context(), &models.User{ID: uid}))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Post("/api/paths/generate", h.Generate)
	r.Post("/api/paths", h.Create)
	r.Get("/api/paths", h.List)
	r.Delete("/api/paths/{id}", h.Delete)
	r.Get("/api/paths/{id}/export", h.Export)
	return r
}

func do(t *testing.T, srv http.Handler, user, method, url, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	if user != "" {
		req.Header.Set("X-User", user)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

const learnGoBody = `{"title":"Learn Go","description":"d","steps":[{"title":"Tour","description":"x","resources":["go.dev/tour"]}]}`

func TestAliceScenario(t *testing.T) {
	st := newSpyStore()
	srv := routes(NewHandler(st, &fakeGenerator{}, nil, quietLog()))

	w := do(t, srv, "1", http.MethodPost, "/api/paths", learnGoBody)
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.LearningPath
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, int64(1), created.UserID)
	assert.Equal(t, "Learn Go", created.Title)
	assert.False(t, created.CreatedAt.IsZero())

	w = do(t, srv, "1", http.MethodGet, "/api/paths", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.LearningPath
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, []string{"go.dev/tour"}, list[0].Steps[0].Resources)

	w = do(t, srv, "1", http.MethodDelete, "/api/paths/1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = do(t, srv, "1", http.MethodGet, "/api/paths", "")
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestDelete_ForeignPathIsNotFound(t *testing.T) {
	st := newSpyStore()
	srv := routes(NewHandler(st, &fakeGenerator{}, nil, quietLog()))
	require.Equal(t, http.StatusCreated, do(t, srv, "1", http.MethodPost, "/api/paths", learnGoBody).Code)

	w := do(t, srv, "2", http.MethodDelete, "/api/paths/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 1, st.count())
	assert.Zero(t, st.deletes)

	w = do(t, srv, "1", http.MethodGet, "/api/paths", "")
	var list []models.LearningPath
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestDelete_NotFoundCases(t *testing.T) {
	st := newSpyStore()
	srv := routes(NewHandler(st, &fakeGenerator{}, nil, quietLog()))
	require.Equal(t, http.StatusCreated, do(t, srv, "1", http.MethodPost, "/api/paths", learnGoBody).Code)
	require.Equal(t, http.StatusNoContent, do(t, srv, "1", http.MethodDelete, "/api/paths/1", "").Code)

	for name, url := range map[string]string{
		"already deleted": "/api/paths/1",
		"never existed":   "/api/paths/42",
		"non numeric id":  "/api/paths/abc",
	} {
		t.Run(name, func(t *testing.T) {
			w := do(t, srv, "1", http.MethodDelete, url, "")
			assert.Equal(t, http.StatusNotFound, w.Code)
		})
	}
	assert.Equal(t, 1, st.deletes)
}

func TestCreate_RejectsBeforeStoring(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing title", `{"description":"d","steps":[]}`},
		{"empty title", `{"title":"","description":"d","steps":[]}`},
		{"missing steps", `{"title":"t","description":"d"}`},
		{"steps not an array", `{"title":"t","description":"d","steps":"x"}`},
		{"step missing description", `{"title":"t","description":"d","steps":[{"title":"s"}]}`},
		{"resource not a string", `{"title":"t","description":"d","steps":[{"title":"s","description":"x","resources":[1]}]}`},
		{"malformed json", `{"title":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newSpyStore()
			srv := routes(NewHandler(st, &fakeGenerator{}, nil, quietLog()))

			w := do(t, srv, "1", http.MethodPost, "/api/paths", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.True(t, strings.HasPrefix(body["error"], "invalid path data"), body["error"])
			assert.Zero(t, st.creates, "storage must not be touched")
		})
	}
}

func TestCreate_IgnoresClientIdentity(t *testing.T) {
	st := newSpyStore()
	srv := routes(NewHandler(st, &fakeGenerator{}, nil, quietLog()))

	body := `{"id":99,"userId":5,"createdAt":"1999-01-01T00:00:00Z","title":"t","description":"d","steps":[]}`
	w := do(t, srv, "1", http.MethodPost, "/api/paths", body)
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.LearningPath
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, int64(1), created.UserID)
	assert.Equal(t, 2024, created.CreatedAt.Year())
	assert.NotNil(t, created.Steps)
}

func TestCreate_StoreFailure(t *testing.T) {
	st := newSpyStore()
	st.err = errors.New("disk full")
	srv := routes(NewHandler(st, &fakeGenerator{}, nil, quietLog()))

	w := do(t, srv, "1", http.MethodPost, "/api/paths", learnGoBody)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestUnauthenticated(t *testing.T) {
	st := newSpyStore()
	gen := &fakeGenerator{}
	srv := routes(NewHandler(st, gen, nil, quietLog()))

	reqs := []struct{ method, url, body string }{
		{http.MethodPost, "/api/paths/generate", `{"skill":"Go"}`},
		{http.MethodPost, "/api/paths", learnGoBody},
		{http.MethodGet, "/api/paths", ""},
		{http.MethodDelete, "/api/paths/1", ""},
		{http.MethodGet, "/api/paths/1/export", ""},
	}
	for _, rq := range reqs {
		t.Run(rq.method+" "+rq.url, func(t *testing.T) {
			w := do(t, srv, "", rq.method, rq.url, rq.body)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
	assert.Zero(t, st.creates)
	assert.Zero(t, st.deletes)
	assert.Empty(t, gen.skill)
}

func TestGenerate(t *testing.T) {
	gen := &fakeGenerator{path: &models.GeneratedPath{
		Title:       "Learn Rust",
		Description: "systems",
		Steps:       []models.Step{{Title: "Book", Description: "read it", Resources: []string{"doc.rust-lang.org/book"}}},
	}}
	st := newSpyStore()
	srv := routes(NewHandler(st, gen, nil, quietLog()))

	w := do(t, srv, "1", http.MethodPost, "/api/paths/generate", `{"skill":"Rust"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Rust", gen.skill)
	var got models.GeneratedPath
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, *gen.path, got)
	assert.Zero(t, st.creates, "generation does not persist")
}

func TestGenerate_Failures(t *testing.T) {
	t.Run("generator error", func(t *testing.T) {
		gen := &fakeGenerator{err: shared.ErrGeneration}
		srv := routes(NewHandler(newSpyStore(), gen, nil, quietLog()))
		w := do(t, srv, "1", http.MethodPost, "/api/paths/generate", `{"skill":"Go"}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"failed to generate learning path"}`, w.Body.String())
	})

	t.Run("undecodable body reaches the generator with no skill", func(t *testing.T) {
		gen := &fakeGenerator{err: shared.ErrGeneration, skill: "unset"}
		srv := routes(NewHandler(newSpyStore(), gen, nil, quietLog()))
		w := do(t, srv, "1", http.MethodPost, "/api/paths/generate", `not json`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Empty(t, gen.skill)
	})

	t.Run("undecodable body with a working generator", func(t *testing.T) {
		gen := &fakeGenerator{path: &models.GeneratedPath{Title: "t", Steps: []models.Step{}}}
		srv := routes(NewHandler(newSpyStore(), gen, nil, quietLog()))
		w := do(t, srv, "1", http.MethodPost, "/api/paths/generate", ``)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestArchiveLifecycle(t *testing.T) {
	st := newSpyStore()
	arc := newMemArchive()
	srv := routes(NewHandler(st, &fakeGenerator{}, arc, quietLog()))

	require.Equal(t, http.StatusCreated, do(t, srv, "1", http.MethodPost, "/api/paths", learnGoBody).Code)
	require.Contains(t, arc.objects, "1/1")
	arc.objects["1/1"] = []byte("# archived copy\n")

	w := do(t, srv, "1", http.MethodGet, "/api/paths/1/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "# archived copy\n", w.Body.String())
	assert.Equal(t, "text/markdown; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "learning-path-1.md")

	require.Equal(t, http.StatusNoContent, do(t, srv, "1", http.MethodDelete, "/api/paths/1", "").Code)
	assert.NotContains(t, arc.objects, "1/1")
}

func TestArchiveFailuresAreNotFatal(t *testing.T) {
	st := newSpyStore()
	arc := newMemArchive()
	arc.failAll = true
	srv := routes(NewHandler(st, &fakeGenerator{}, arc, quietLog()))

	require.Equal(t, http.StatusCreated, do(t, srv, "1", http.MethodPost, "/api/paths", learnGoBody).Code)

	w := do(t, srv, "1", http.MethodGet, "/api/paths/1/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "# Learn Go\n"))

	assert.Equal(t, http.StatusNoContent, do(t, srv, "1", http.MethodDelete, "/api/paths/1", "").Code)
	assert.Zero(t, st.count())
}

func TestExport_WithoutArchive(t *testing.T) {
	st := newSpyStore()
	srv := routes(NewHandler(st, &fakeGenerator{}, nil, quietLog()))
	require.Equal(t, http.StatusCreated, do(t, srv, "1", http.MethodPost, "/api/paths", learnGoBody).Code)

	w := do(t, srv, "1", http.MethodGet, "/api/paths/1/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "- go.dev/tour")

	assert.Equal(t, http.StatusNotFound, do(t, srv, "2", http.MethodGet, "/api/paths/1/export", "").Code)
}

func TestExport_ArchiveMissRenders(t *testing.T) {
	st := newSpyStore()
	arc := newMemArchive()
	srv := routes(NewHandler(st, &fakeGenerator{}, arc, quietLog()))
	require.Equal(t, http.StatusCreated, do(t, srv, "1", http.MethodPost, "/api/paths", learnGoBody).Code)
	delete(arc.objects, "1/1")

	w := do(t, srv, "1", http.MethodGet, "/api/paths/1/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	saved := st.paths[1]
	assert.Equal(t, string(RenderMarkdown(&saved)), w.Body.String())
}

func TestHandlerLogsCarryCaller(t *testing.T) {
	var buf bytes.Buffer
	st := newSpyStore()
	srv := routes(NewHandler(st, &fakeGenerator{}, nil, logging.NewJSON(&buf, "info")))

	require.Equal(t, http.StatusCreated, do(t, srv, "3", http.MethodPost, "/api/paths", learnGoBody).Code)
	require.Equal(t, http.StatusNoContent, do(t, srv, "3", http.MethodDelete, "/api/paths/1", "").Code)

	var lines []map[string]any
	dec := json.NewDecoder(&buf)
	for dec.More() {
		var m map[string]any
		require.NoError(t, dec.Decode(&m))
		lines = append(lines, m)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, "path created", lines[0]["msg"])
	assert.Equal(t, "path deleted", lines[1]["msg"])
	for _, l := range lines {
		assert.EqualValues(t, 3, l["user_id"])
		assert.EqualValues(t, 1, l["path_id"])
	}
}

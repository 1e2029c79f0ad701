package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/coursechat-go/internal/adapters/loader"
	"github.com/0xcro3dile/coursechat-go/internal/config"
	"github.com/0xcro3dile/coursechat-go/internal/domain/catalog"
	"github.com/0xcro3dile/coursechat-go/internal/domain/entities"
	"github.com/0xcro3dile/coursechat-go/internal/domain/ports"
	"github.com/0xcro3dile/coursechat-go/internal/domain/usecases"
	"github.com/0xcro3dile/coursechat-go/internal/pkg/apperrors"
	"github.com/0xcro3dile/coursechat-go/internal/pkg/logger"
)

func seats(n int) *int { return &n }

func sampleCourses() []entities.Course {
	return []entities.Course{
		{ID: "1", Abbreviation: "COMPSCI", CourseNumber: "61A", Title: "Structure and Interpretation of Computer Programs", OpenSeats: seats(40), EnrolledPercentage: 0.8},
		{ID: "2", Abbreviation: "MATH", CourseNumber: "1A", Title: "Calculus", OpenSeats: seats(5), EnrolledPercentage: 0.95},
	}
}

// fakeOllama serves /api/embed and /api/chat.
type fakeOllama struct {
	reply     string
	failChat  bool
	failEmbed atomic.Bool
	embedded  atomic.Int64
	chatCalls atomic.Int64
}

func (f *fakeOllama) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/embed":
		if f.failEmbed.Load() {
			http.Error(w, "embedding model not loaded", http.StatusInternalServerError)
			return
		}
		var req struct {
			Input []string `json:"input"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		f.embedded.Add(int64(len(req.Input)))
		vectors := make([][]float32, len(req.Input))
		for i := range vectors {
			vectors[i] = []float32{1, 0, 0}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"embeddings": vectors})
	case "/api/chat":
		f.chatCalls.Add(1)
		if f.failChat {
			http.Error(w, "model not loaded", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message": map[string]string{"role": "assistant", "content": f.reply},
			"done":    true,
		})
	default:
		http.NotFound(w, r)
	}
}

func testConfig(t *testing.T, ollamaURL string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Catalog.Path = filepath.Join(t.TempDir(), "courses.json")
	cfg.VectorDB.Driver = config.StoreMemory
	cfg.LLM.BaseURL = ollamaURL
	cfg.Embedding.BaseURL = ollamaURL
	cfg.Oracle.Attempts = 1
	cfg.Oracle.RetryDelay = time.Millisecond
	cfg.Catalog.Source.Attempts = 1
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	app, err := New(cfg, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })
	return app
}

func writeCatalog(t *testing.T, path string, courses []entities.Course) {
	t.Helper()
	require.NoError(t, loader.NewCatalogFile().Save(context.Background(), path, courses))
}

func TestNew_SQLiteStore(t *testing.T) {
	cfg := config.Default()
	cfg.VectorDB.Path = filepath.Join(t.TempDir(), "index.db")

	app, err := New(cfg, logger.Nop())
	require.NoError(t, err)
	assert.NoError(t, app.Close())
}

func TestApp_Fetch(t *testing.T) {
	gql := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "csrftoken=tok", r.Header.Get("Cookie"))
		w.Write([]byte(`{"data": {"allCourses": {"edges": [
			{"node": {"id": "1", "abbreviation": "COMPSCI", "courseNumber": "61A", "title": "SICP", "openSeats": 40, "enrolledPercentage": 0.8}},
			{"node": {"id": "2", "abbreviation": "MATH", "courseNumber": "1A", "title": "Calculus", "openSeats": -1, "enrolledPercentage": -1}}
		]}}}`))
	}))
	defer gql.Close()

	cfg := testConfig(t, "http://unused")
	cfg.Catalog.Source.Endpoint = gql.URL
	cfg.Catalog.Source.CSRFToken = "tok"
	app := newTestApp(t, cfg)

	n, err := app.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	cat, err := app.LoadCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, cat.Len())
	calc, ok := cat.ByID("2")
	require.True(t, ok)
	assert.Nil(t, calc.OpenSeats)
}

func TestApp_Index(t *testing.T) {
	ollama := &fakeOllama{}
	srv := httptest.NewServer(ollama)
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	writeCatalog(t, cfg.Catalog.Path, sampleCourses())
	app := newTestApp(t, cfg)

	n, err := app.Index(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 2)
	assert.Equal(t, int64(n), ollama.embedded.Load())
}

func TestApp_AskCatalogHandler(t *testing.T) {
	ollama := &fakeOllama{}
	srv := httptest.NewServer(ollama)
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	writeCatalog(t, cfg.Catalog.Path, sampleCourses())
	app := newTestApp(t, cfg)

	answer, err := app.Ask(context.Background(), &entities.ChatRequest{Question: "which class has the most open seats"})
	require.NoError(t, err)
	assert.Equal(t, "COMPSCI 61A – 40 open seats", answer.Text)
	assert.Zero(t, ollama.chatCalls.Load())
	assert.Zero(t, ollama.embedded.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(app.Metrics().Queries.WithLabelValues(usecases.RouteMostOpenSeats)))
}

func TestApp_AskThroughOracle(t *testing.T) {
	ollama := &fakeOllama{reply: "COMPSCI 61A is a good start."}
	srv := httptest.NewServer(ollama)
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	writeCatalog(t, cfg.Catalog.Path, sampleCourses())
	app := newTestApp(t, cfg)

	answer, err := app.Ask(context.Background(), &entities.ChatRequest{Question: "is there a good intro programming class?"})
	require.NoError(t, err)
	assert.Equal(t, "COMPSCI 61A is a good start.", answer.Text)
	require.Len(t, answer.Courses, 1)
	assert.Equal(t, "1", answer.Courses[0].ID)
	assert.Equal(t, usecases.StageCourseCodes, answer.Route)
	assert.Equal(t, int64(1), ollama.chatCalls.Load())
}

func TestApp_AskOracleUnavailable(t *testing.T) {
	srv := httptest.NewServer(&fakeOllama{failChat: true})
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	writeCatalog(t, cfg.Catalog.Path, sampleCourses())
	app := newTestApp(t, cfg)

	_, err := app.Ask(context.Background(), &entities.ChatRequest{Question: "is there a good intro programming class?"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrOracleUnavailable)
	assert.Equal(t, 1.0, testutil.ToFloat64(app.Metrics().OracleFailures))
}

func TestApp_CatalogAnswersWithoutEmbeddingService(t *testing.T) {
	ollama := &fakeOllama{reply: "COMPSCI 61A is a good start."}
	ollama.failEmbed.Store(true)
	srv := httptest.NewServer(ollama)
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	writeCatalog(t, cfg.Catalog.Path, sampleCourses())
	app := newTestApp(t, cfg)
	ctx := context.Background()

	server, err := app.NewServer(ctx)
	require.NoError(t, err)

	answer, err := server.Router().Query(ctx, &entities.ChatRequest{Question: "which class has the most open seats"})
	require.NoError(t, err)
	assert.Equal(t, usecases.RouteMostOpenSeats, answer.Route)

	_, err = server.Router().Query(ctx, &entities.ChatRequest{Question: "is there a good intro programming class?"})
	assert.ErrorIs(t, err, apperrors.ErrOracleUnavailable)
	assert.Zero(t, ollama.chatCalls.Load())

	// the index is built on the next oracle question once embeddings work
	ollama.failEmbed.Store(false)
	answer, err = server.Router().Query(ctx, &entities.ChatRequest{Question: "is there a good intro programming class?"})
	require.NoError(t, err)
	assert.Equal(t, usecases.StageCourseCodes, answer.Route)
}

func TestApp_NewRouterKeepsEarlierIndex(t *testing.T) {
	srv := httptest.NewServer(&fakeOllama{})
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	app := newTestApp(t, cfg)
	ctx := context.Background()

	first, err := catalog.New(sampleCourses())
	require.NoError(t, err)
	_, firstIdx := app.newRouter(first)
	require.NoError(t, firstIdx.Build(ctx))

	grown, err := catalog.New(append(sampleCourses(), entities.Course{ID: "3", Abbreviation: "STAT", CourseNumber: "20", Title: "Probability"}))
	require.NoError(t, err)
	_, secondIdx := app.newRouter(grown)
	require.NoError(t, secondIdx.Build(ctx))

	n, err := firstIdx.ChunkCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = secondIdx.ChunkCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Same(t, secondIdx, app.live.Load())
}

func TestApp_OracleLogLinesCarryComponentOnce(t *testing.T) {
	srv := httptest.NewServer(&fakeOllama{failChat: true})
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	writeCatalog(t, cfg.Catalog.Path, sampleCourses())
	var buf bytes.Buffer
	app, err := New(cfg, zerolog.New(&buf))
	require.NoError(t, err)
	defer app.Close()

	_, err = app.Ask(context.Background(), &entities.ChatRequest{Question: "is there a good intro programming class?"})
	require.Error(t, err)

	var found bool
	for _, line := range strings.Split(buf.String(), "\n") {
		if !strings.Contains(line, "oracle call failed") {
			continue
		}
		found = true
		assert.Equal(t, 1, strings.Count(line, `"component":"oracle"`), line)
	}
	assert.True(t, found)
}

func TestApp_LoadCatalogMissingFile(t *testing.T) {
	app := newTestApp(t, testConfig(t, "http://unused"))

	_, err := app.LoadCatalog(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(app.Metrics().CatalogReloads.WithLabelValues("error")))
}

// chanWatcher delivers events pushed by the test.
type chanWatcher struct {
	events chan ports.FileEvent
}

func (w *chanWatcher) Watch(ctx context.Context, path string) (<-chan ports.FileEvent, error) {
	return w.events, nil
}

func (w *chanWatcher) Stop() error { return nil }

func TestApp_WatchCatalogReloads(t *testing.T) {
	srv := httptest.NewServer(&fakeOllama{})
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	writeCatalog(t, cfg.Catalog.Path, sampleCourses())
	app := newTestApp(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, err := app.NewServer(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, server.Router().Catalog().Len())

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.JSONEq(t, `{"status": "ok", "courses": 2, "oracle": "closed", "indexChunks": 2}`, rec.Body.String())

	watcher := &chanWatcher{events: make(chan ports.FileEvent, 4)}
	defer close(watcher.events)
	require.NoError(t, app.WatchCatalog(ctx, watcher, server))

	grown := append(sampleCourses(), entities.Course{ID: "3", Abbreviation: "STAT", CourseNumber: "20", Title: "Probability", OpenSeats: seats(90)})
	writeCatalog(t, cfg.Catalog.Path, grown)
	watcher.events <- ports.FileEvent{Path: cfg.Catalog.Path, Operation: ports.FileModified}

	assert.Eventually(t, func() bool {
		return server.Router().Catalog().Len() == 3
	}, 2*time.Second, 10*time.Millisecond)

	// a broken file keeps the last good catalog
	require.NoError(t, os.WriteFile(cfg.Catalog.Path, []byte(`{"not": "an array"}`), 0o644))
	watcher.events <- ports.FileEvent{Path: cfg.Catalog.Path, Operation: ports.FileModified}

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(app.Metrics().CatalogReloads.WithLabelValues("error")) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 3, server.Router().Catalog().Len())
}

func TestApp_ReloadWithEmbeddingDownSwapsAndBuildsLater(t *testing.T) {
	ollama := &fakeOllama{reply: "STAT 20 covers it."}
	srv := httptest.NewServer(ollama)
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	writeCatalog(t, cfg.Catalog.Path, sampleCourses())
	app := newTestApp(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, err := app.NewServer(ctx)
	require.NoError(t, err)
	old := server.Router()

	watcher := &chanWatcher{events: make(chan ports.FileEvent, 1)}
	defer close(watcher.events)
	require.NoError(t, app.WatchCatalog(ctx, watcher, server))

	ollama.failEmbed.Store(true)
	grown := append(sampleCourses(), entities.Course{ID: "3", Abbreviation: "STAT", CourseNumber: "20", Title: "Probability", OpenSeats: seats(90)})
	writeCatalog(t, cfg.Catalog.Path, grown)
	watcher.events <- ports.FileEvent{Path: cfg.Catalog.Path, Operation: ports.FileModified}

	assert.Eventually(t, func() bool {
		return server.Router().Catalog().Len() == 3
	}, 2*time.Second, 10*time.Millisecond)

	// the previous router still answers from its complete index
	ollama.failEmbed.Store(false)
	answer, err := old.Query(ctx, &entities.ChatRequest{Question: "anything on statistics?"})
	require.NoError(t, err)
	assert.Equal(t, "STAT 20 covers it.", answer.Text)

	answer, err = server.Router().Query(ctx, &entities.ChatRequest{Question: "anything on statistics?"})
	require.NoError(t, err)
	require.Len(t, answer.Courses, 1)
	assert.Equal(t, "3", answer.Courses[0].ID)

	n, err := app.live.Load().ChunkCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

// Package bootstrap wires configuration into adapters and use cases.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/0xcro3dile/coursechat-go/internal/adapters/catalogsource"
	"github.com/0xcro3dile/coursechat-go/internal/adapters/embedding"
	"github.com/0xcro3dile/coursechat-go/internal/adapters/llm"
	"github.com/0xcro3dile/coursechat-go/internal/adapters/loader"
	"github.com/0xcro3dile/coursechat-go/internal/adapters/oracle"
	"github.com/0xcro3dile/coursechat-go/internal/adapters/vectordb"
	"github.com/0xcro3dile/coursechat-go/internal/config"
	"github.com/0xcro3dile/coursechat-go/internal/domain/catalog"
	"github.com/0xcro3dile/coursechat-go/internal/domain/entities"
	"github.com/0xcro3dile/coursechat-go/internal/domain/ports"
	"github.com/0xcro3dile/coursechat-go/internal/domain/usecases"
	"github.com/0xcro3dile/coursechat-go/internal/infrastructure/metrics"
)

// App holds the wired components shared by every command.
type App struct {
	cfg     *config.Config
	logger  zerolog.Logger
	metrics *metrics.Collector

	catalogs  ports.CatalogStore
	source    ports.CatalogSource
	store     ports.VectorStore
	embedder  ports.EmbeddingService
	generator ports.LLMService
	retrieval *usecases.RetrievalUseCase
	oracle    *oracle.Resilient
	ingest    *usecases.IngestUseCase

	// index searched by the most recently built router
	live atomic.Pointer[searchIndex]

	closers []func() error
}

// New builds an App from cfg. Nothing is contacted over the network until a
// command runs.
func New(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	app := &App{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics.NewCollector(),
		catalogs: loader.NewCatalogFile(),
		source: catalogsource.NewGraphQL(catalogsource.Config{
			Endpoint:  cfg.Catalog.Source.Endpoint,
			Playlists: cfg.Catalog.Source.Playlists,
			Cookie:    cfg.CatalogCookie(),
			Timeout:   cfg.Catalog.Source.Timeout,
			Attempts:  uint(cfg.Catalog.Source.Attempts),
		}, logger),
	}

	store, err := app.newVectorStore()
	if err != nil {
		return nil, err
	}
	app.store = store

	if app.embedder, err = app.newEmbedder(); err != nil {
		app.Close()
		return nil, err
	}
	if app.generator, err = app.newLLM(); err != nil {
		app.Close()
		return nil, err
	}

	app.retrieval = usecases.NewRetrievalUseCase(app.embedder, store, app.generator, cfg.Index.TopK)
	app.oracle = oracle.NewResilient(app.retrieval, oracle.Config{
		Timeout:         cfg.Oracle.Timeout,
		Attempts:        uint(cfg.Oracle.Attempts),
		RetryDelay:      cfg.Oracle.RetryDelay,
		BreakerFailures: uint32(cfg.Oracle.BreakerFailures),
		BreakerCooldown: cfg.Oracle.BreakerCooldown,
	}, app.metrics, logger)
	app.ingest = usecases.NewIngestUseCase(app.embedder, store, cfg.Index.ChunkSize, cfg.Index.ChunkOverlap)

	return app, nil
}

func (a *App) newVectorStore() (ports.VectorStore, error) {
	switch a.cfg.VectorDB.Driver {
	case config.StoreMemory:
		return vectordb.NewInMemoryStore(), nil
	case config.StoreSQLite:
		store, err := vectordb.NewSQLiteStore(a.cfg.VectorDB.Path)
		if err != nil {
			return nil, fmt.Errorf("opening vector store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown vectordb driver %q", a.cfg.VectorDB.Driver)
	}
}

func (a *App) newEmbedder() (ports.EmbeddingService, error) {
	e := a.cfg.Embedding
	switch e.Provider {
	case config.ProviderOllama:
		return embedding.NewOllamaAdapter(e.BaseURL, e.Model, e.Timeout, a.logger), nil
	case config.ProviderOpenAI:
		return embedding.NewOpenAIAdapter(a.cfg.OpenAI.APIKey, e.BaseURL, e.Model, e.Timeout, a.logger), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", e.Provider)
	}
}

func (a *App) newLLM() (ports.LLMService, error) {
	l := a.cfg.LLM
	switch l.Provider {
	case config.ProviderOllama:
		return llm.NewOllamaLLMAdapter(l.BaseURL, l.Model, l.Timeout, a.logger), nil
	case config.ProviderOpenAI:
		return llm.NewOpenAIAdapter(a.cfg.OpenAI.APIKey, l.BaseURL, l.Model, l.Timeout, a.logger), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", l.Provider)
	}
}

// Metrics returns the collector every component reports to.
func (a *App) Metrics() *metrics.Collector {
	return a.metrics
}

// LoadCatalog reads and validates the configured catalog file.
func (a *App) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	courses, err := a.catalogs.Load(ctx, a.cfg.Catalog.Path)
	if err == nil {
		var cat *catalog.Catalog
		if cat, err = catalog.New(courses); err == nil {
			a.metrics.RecordCatalogLoad(cat.Len(), nil)
			return cat, nil
		}
	}
	a.metrics.RecordCatalogLoad(0, err)
	return nil, fmt.Errorf("loading catalog: %w", err)
}

// NewRouter builds a query router over cat backed by its own retrieval
// index. Every router shares the oracle's circuit breaker.
func (a *App) NewRouter(cat *catalog.Catalog) *usecases.QueryUseCase {
	router, _ := a.newRouter(cat)
	return router
}

func (a *App) newRouter(cat *catalog.Catalog) (*usecases.QueryUseCase, *searchIndex) {
	idx := a.newSearchIndex(cat)
	a.live.Store(idx)
	return usecases.NewQueryUseCase(cat, a.oracle.With(idx), a.logger), idx
}

// Ask answers a single question against the configured catalog. The
// retrieval index is only built when the question reaches the oracle.
func (a *App) Ask(ctx context.Context, req *entities.ChatRequest) (*entities.Answer, error) {
	cat, err := a.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	answer, err := a.NewRouter(cat).Query(ctx, req)
	if err != nil {
		return nil, err
	}
	a.metrics.RecordQuery(answer.Route)
	return answer, nil
}

// Fetch downloads the catalog from the upstream API and saves it to the
// configured path. It returns the number of courses written.
func (a *App) Fetch(ctx context.Context) (int, error) {
	courses, err := a.source.Fetch(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetching catalog: %w", err)
	}
	// reject a catalog the server could not load
	if _, err := catalog.New(courses); err != nil {
		return 0, fmt.Errorf("fetched catalog: %w", err)
	}
	if err := a.catalogs.Save(ctx, a.cfg.Catalog.Path, courses); err != nil {
		return 0, fmt.Errorf("saving catalog: %w", err)
	}
	a.logger.Info().Int("courses", len(courses)).Str("path", a.cfg.Catalog.Path).Msg("catalog saved")
	return len(courses), nil
}

// Index rebuilds the retrieval index from the catalog file. It returns the
// number of chunks stored.
func (a *App) Index(ctx context.Context) (int, error) {
	cat, err := a.LoadCatalog(ctx)
	if err != nil {
		return 0, err
	}
	return a.index(ctx, cat)
}

func (a *App) index(ctx context.Context, cat *catalog.Catalog) (int, error) {
	n, err := a.ingest.IngestCatalog(ctx, cat.All())
	if err != nil {
		return n, fmt.Errorf("building index: %w", err)
	}
	a.logger.Info().Int("courses", cat.Len()).Int("chunks", n).Msg("index built")
	return n, nil
}

// warmIndex builds idx ahead of the first oracle question. A failure is
// logged and left for the first Ask to retry.
func (a *App) warmIndex(ctx context.Context, idx *searchIndex) {
	if err := idx.Build(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("retrieval index not built, retrying on first oracle question")
		return
	}
	if n, err := idx.ChunkCount(ctx); err == nil {
		a.logger.Info().Int("courses", idx.cat.Len()).Int("chunks", n).Msg("retrieval index ready")
	}
}

// Close releases every resource the App opened.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

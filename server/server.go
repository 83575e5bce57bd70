// Package server assembles the HTTP server around the retrieval pipeline.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/rackguard/rackguard/internal/metrics"
	"github.com/rackguard/rackguard/internal/profile"
	"github.com/rackguard/rackguard/plugin/ai"
	"github.com/rackguard/rackguard/plugin/ai/cache"
	"github.com/rackguard/rackguard/server/middleware"
	"github.com/rackguard/rackguard/server/retrieval"
	"github.com/rackguard/rackguard/server/router/apiv1"
	"github.com/rackguard/rackguard/server/session"
	"github.com/rackguard/rackguard/store"
)

const (
	apiRateLimitPerSecond = 10
	apiRateLimitBurst     = 20
)

// Server is the assembled HTTP server.
type Server struct {
	profile *profile.Profile
	echo    *echo.Echo
	store   *store.Store
	cache   *cache.Service
}

// New wires the store, AI services, retrieval engine, and routes.
func New(profile *profile.Profile, st *store.Store, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	aiConfig := ai.NewConfigFromProfile(profile)
	if err := aiConfig.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid AI configuration")
	}
	vectorCache := cache.NewService(cache.DefaultServiceConfig())
	embedder, err := ai.NewEmbeddingService(&aiConfig.Embedding, vectorCache)
	if err != nil {
		return nil, errors.Wrap(err, "create embedding service")
	}
	var llm ai.LLMService
	if aiConfig.LLM.APIKey != "" {
		llm, err = ai.NewLLMService(&aiConfig.LLM)
		if err != nil {
			return nil, errors.Wrap(err, "create llm service")
		}
	}

	tracker := session.NewTracker(session.StoreConfig{
		Capacity: profile.SessionCapacity,
		TTL:      time.Duration(profile.SessionTTLMinutes) * time.Minute,
	})
	m := metrics.New(tracker.Sessions)
	executor := retrieval.NewExecutor(st, embedder, logger)
	engine := retrieval.NewEngine(executor, tracker, m, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(middleware.RateLimit(middleware.NewRateLimiter(apiRateLimitPerSecond, apiRateLimitBurst)))

	e.GET("/healthz", func(c echo.Context) error {
		ok, err := st.IsInitialized(c.Request().Context())
		if err != nil || !ok {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": profile.Version})
	})
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	apiv1.NewAPIV1Service(engine, st, llm).Register(e.Group("/api/v1"))

	return &Server{
		profile: profile,
		echo:    e,
		store:   st,
		cache:   vectorCache,
	}, nil
}

// Start serves until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown stops the server and closes its resources.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "shutdown http server")
	}
	s.cache.Close()
	return s.store.Close()
}

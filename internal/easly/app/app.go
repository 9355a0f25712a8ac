// Package app wires the Easly service together from a Config.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopeasly/easly/internal/easly/actions"
	"github.com/shopeasly/easly/internal/easly/agent"
	"github.com/shopeasly/easly/internal/easly/assistant"
	"github.com/shopeasly/easly/internal/easly/catalog"
	"github.com/shopeasly/easly/internal/easly/disambiguation"
	"github.com/shopeasly/easly/internal/easly/httpapi"
	"github.com/shopeasly/easly/internal/easly/intent"
	"github.com/shopeasly/easly/internal/easly/llm"
	"github.com/shopeasly/easly/internal/easly/metrics"
	"github.com/shopeasly/easly/internal/easly/ratelimit"
	"github.com/shopeasly/easly/internal/easly/scope"
	"github.com/shopeasly/easly/internal/easly/session"
	"github.com/shopeasly/easly/internal/easly/store"
)

// App is the assembled service.
type App struct {
	config    *Config
	store     *store.Store
	catalog   *catalog.Catalog
	chain     *llm.Chain
	metrics   *metrics.Metrics
	assistant *assistant.Assistant
	server    *httpapi.Server
}

// New opens the database and builds every component. It does not start
// any background work.
func New(cfg *Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	db, err := store.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a, err := build(cfg, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

func build(cfg *Config, db *store.Store) (*App, error) {
	m := metrics.New()

	filter := scope.AllowAll()
	if cfg.ScopeFilter {
		var err error
		if filter, err = scope.Load(cfg.ScopeFile); err != nil {
			return nil, err
		}
	}

	var catOpts []catalog.Option
	if cfg.AlertExpr != "" {
		catOpts = append(catOpts, catalog.WithAlertExpr(cfg.AlertExpr))
	}
	cat, err := catalog.New(db.Documents(), catOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog: %w", err)
	}

	sessions := session.NewManager(db.Sessions(), cfg.SessionTTL)
	resolver := disambiguation.New(cat, sessions)

	exec := actions.NewExecutor(cat, sessions, db)
	exec.OnExecute = func(t actions.Type, ok bool) { m.ActionExecuted(string(t), ok) }

	matcher := intent.New(cat, sessions, resolver,
		intent.WithUploads(intent.NewUploads(cfg.UploadsDir, cfg.UploadsPrefix)))

	chain := llm.NewChain(cfg.LLMTimeout, cfg.providers()...)
	chain.OnFailure = m.ProviderFailed
	chain.OnSuccess = m.ProviderSucceeded

	ag := agent.New(chain, agent.ShopTools(exec),
		agent.WithMaxSteps(cfg.AgentMaxSteps),
		agent.WithTemperature(cfg.AgentTemperature),
		agent.WithRetriever(agent.HistoryRetriever{Chats: db, Limit: cfg.HistoryLimit}),
	)
	ag.OnTool = m.ToolCalled

	asst := assistant.New(assistant.Deps{
		Scope:    filter,
		Sessions: sessions,
		Resolver: resolver,
		Matcher:  matcher,
		Executor: exec,
		Agent:    ag,
		History:  db,
		Audit:    db,
	})
	asst.OnRule = m.RuleMatched
	asst.OnAnswer = m.ObserveRequest

	limiter := ratelimit.New(ratelimit.NewMemoryStore(), cfg.RateMax, cfg.RateWindow)
	limiter.OnLimited = m.Limited

	srv := httpapi.New(httpapi.Deps{
		Assistant:     asst,
		Catalog:       cat,
		Executor:      exec,
		Limiter:       limiter,
		Metrics:       m.Handler(),
		DB:            db,
		Providers:     chain.Names(),
		UploadsDir:    cfg.UploadsDir,
		UploadsPrefix: cfg.UploadsPrefix,
	})

	if chain.Configured() {
		slog.Info("llm providers configured", "order", chain.Names())
	} else {
		slog.Warn("no llm provider configured; free-form questions get the offline reply")
	}

	return &App{
		config:    cfg,
		store:     db,
		catalog:   cat,
		chain:     chain,
		metrics:   m,
		assistant: asst,
		server:    srv,
	}, nil
}

// Store returns the database.
func (a *App) Store() *store.Store { return a.store }

// Catalog returns the inventory and order repository.
func (a *App) Catalog() *catalog.Catalog { return a.catalog }

// Handler returns the HTTP handler without starting a listener.
func (a *App) Handler() *httpapi.Server { return a.server }

// Providers lists the configured model providers in fallback order.
func (a *App) Providers() []string { return a.chain.Names() }

// Ask answers one turn outside HTTP, as the CLI does.
func (a *App) Ask(ctx context.Context, clientID, text string) (*assistant.Response, error) {
	return a.assistant.Handle(ctx, assistant.Request{ClientID: clientID, Text: text})
}

// Run serves HTTP and purges expired sessions until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.server.Start(ctx, a.config.HTTPAddr); err != nil {
		return err
	}

	go a.purgeSessions(ctx)

	slog.Info("easly is running; press Ctrl+C to stop", "addr", a.config.HTTPAddr)
	<-ctx.Done()
	slog.Info("shutting down")
	return nil
}

func (a *App) purgeSessions(ctx context.Context) {
	interval := a.config.SessionSweep
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.store.Sessions().PurgeExpired(ctx)
			if err != nil {
				slog.Warn("session purge failed", "err", err)
				continue
			}
			if n > 0 {
				slog.Debug("purged expired sessions", "count", n)
			}
		}
	}
}

// Stop shuts the HTTP server down and closes the database.
func (a *App) Stop() {
	slog.Info("stopping http server")
	a.server.Stop()

	slog.Info("closing database")
	if err := a.store.Close(); err != nil {
		slog.Warn("close database", "err", err)
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/proxypulse/proxypulse"
	"github.com/proxypulse/proxypulse/internal/auth"
	"github.com/proxypulse/proxypulse/internal/config"
	"github.com/proxypulse/proxypulse/internal/endpoint"
	"github.com/proxypulse/proxypulse/internal/history"
	chsink "github.com/proxypulse/proxypulse/internal/history/clickhouse"
	"github.com/proxypulse/proxypulse/internal/metrics"
	"github.com/proxypulse/proxypulse/internal/server"
	"github.com/proxypulse/proxypulse/internal/status"
	"github.com/proxypulse/proxypulse/internal/store"
	"github.com/proxypulse/proxypulse/internal/store/factory"
	"github.com/proxypulse/proxypulse/internal/supervisor"
)

func runServe(configPath string) error {
	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
	}

	log := cfg.Log.New()
	slog.SetDefault(log)

	ctx := context.Background()
	db, err := factory.NewFromDSN(cfg.Store.DSN)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = db.Close() }()
	if err := db.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	hist := history.NewStore()
	sup := supervisor.New(hist, supervisor.Config{
		VerifyURL: cfg.Probe.VerifyURL,
		Timeout:   cfg.Probe.Timeout,
	})
	sup.SetLogger(log)
	sup.SetResultWriter(db)

	sinks, closers, err := buildSinks(cfg.Sinks)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()
	if len(sinks) > 0 {
		sup.SetSinks(sinks...)
	}

	if cfg.Metrics.Enabled {
		if err := proxypulse.RegisterMetricsDefault(); err != nil {
			log.Warn("register metrics", "error", err)
		}
		if cfg.Metrics.Listen != "" {
			go func() {
				if err := proxypulse.ServeMetrics(cfg.Metrics.Listen); err != nil {
					log.Error("metrics server", "error", err)
				}
			}()
		}
	}

	if err := seedEndpoints(ctx, db, cfg.Seeds, log); err != nil {
		return err
	}

	if err := resumeEndpoints(ctx, db, hist, sup, log); err != nil {
		return err
	}

	authSvc, err := auth.New(db, cfg.Auth)
	if err != nil {
		return fmt.Errorf("auth service: %w", err)
	}
	router := server.NewRouter(server.Options{
		Store:      db,
		Supervisor: sup,
		History:    hist,
		Aggregator: status.New(hist, sup),
		Auth:       authSvc,
		BasePath:   cfg.BasePath,
		Logger:     log,
	})

	handler := router.Handler()
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.Handle("/", handler)
		handler = mux
	}
	tlsConfig, err := cfg.TLS.ServerConfig()
	if err != nil {
		return fmt.Errorf("tls setup: %w", err)
	}
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		TLSConfig:         tlsConfig,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		var serveErr error
		if tlsConfig != nil {
			serveErr = srv.ListenAndServeTLS("", "")
		} else {
			serveErr = srv.ListenAndServe()
		}
		if serveErr != nil && serveErr != http.ErrServerClosed {
			log.Error("api server", "error", serveErr)
		}
	}()
	protocol := "http"
	if tlsConfig != nil {
		protocol = "https"
	}
	log.Info("serving management API", "listen", cfg.Listen, "base_path", cfg.BasePath, "protocol", protocol)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	sup.Shutdown()
	return nil
}

// resumeEndpoints reloads each registered endpoint's retained probe
// results into the in-memory history and starts its check task, so a
// restarted daemon answers status and uptime queries from where the
// previous run left off. RecentResults returns newest first; appends
// happen in chronological order.
func resumeEndpoints(ctx context.Context, db store.Store, hist *history.Store, sup *supervisor.Supervisor, log *slog.Logger) error {
	eps, err := db.ListEndpoints(ctx)
	if err != nil {
		return fmt.Errorf("list endpoints: %w", err)
	}
	for _, ep := range eps {
		results, err := db.RecentResults(ctx, ep.ID, history.Cap)
		if err != nil {
			return fmt.Errorf("load results for endpoint %d: %w", ep.ID, err)
		}
		for i := len(results) - 1; i >= 0; i-- {
			hist.Append(ep.ID, results[i])
		}
		if _, err := sup.Start(ep); err != nil {
			log.Error("start check task", "id", ep.ID, "host", ep.Host, "error", err)
		}
	}
	log.Info("resumed check tasks", "count", sup.Running())
	return nil
}

// seedEndpoints upserts the statically configured endpoints, keyed by
// name. Existing rows keep their id; their task picks up the new
// settings when it is started from the registry listing.
func seedEndpoints(ctx context.Context, db store.Store, seeds []config.EndpointConfig, log *slog.Logger) error {
	if len(seeds) == 0 {
		return nil
	}
	existing, err := db.ListEndpoints(ctx)
	if err != nil {
		return fmt.Errorf("list endpoints: %w", err)
	}
	byName := make(map[string]endpoint.Endpoint, len(existing))
	for _, ep := range existing {
		if ep.Name != "" {
			byName[ep.Name] = ep
		}
	}
	for _, seed := range seeds {
		ep, err := seed.Endpoint()
		if err != nil {
			return err
		}
		if prev, ok := byName[ep.Name]; ok {
			ep.ID = prev.ID
			ep.Generation = prev.Generation
			ep.CreatedAt = prev.CreatedAt
			if err := db.UpdateEndpoint(ctx, &ep); err != nil {
				return fmt.Errorf("update seeded endpoint %q: %w", ep.Name, err)
			}
			log.Info("updated seeded endpoint", "name", ep.Name, "id", ep.ID)
			continue
		}
		if err := db.SaveEndpoint(ctx, &ep); err != nil {
			return fmt.Errorf("save seeded endpoint %q: %w", ep.Name, err)
		}
		log.Info("registered seeded endpoint", "name", ep.Name, "id", ep.ID)
	}
	return nil
}

func buildSinks(cfgs []config.SinkConfig) ([]history.Sink, []io.Closer, error) {
	var sinks []history.Sink
	var closers []io.Closer
	for _, sc := range cfgs {
		switch sc.Type {
		case "opensearch":
			sinks = append(sinks, history.NewOpenSearchSink(sc.URL, sc.Index))
		case "clickhouse":
			sink, err := chsink.New(chsink.Config{
				Addr:     sc.Addr,
				Database: sc.Database,
				Table:    sc.Table,
				Username: sc.Username,
				Password: sc.Password,
			})
			if err != nil {
				for _, c := range closers {
					_ = c.Close()
				}
				return nil, nil, fmt.Errorf("clickhouse sink: %w", err)
			}
			sinks = append(sinks, sink)
			closers = append(closers, sink)
		default:
			return nil, nil, fmt.Errorf("unknown sink type %q", sc.Type)
		}
	}
	return sinks, closers, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	api "github.com/mind-engage/qtdeferred/internal/api/http"
	"github.com/mind-engage/qtdeferred/internal/attempt"
	auth "github.com/mind-engage/qtdeferred/internal/auth/middleware"
	"github.com/mind-engage/qtdeferred/internal/behaviour"
	"github.com/mind-engage/qtdeferred/internal/db"
	"github.com/mind-engage/qtdeferred/internal/metrics"
	"github.com/mind-engage/qtdeferred/internal/question"
	syncx "github.com/mind-engage/qtdeferred/internal/sync"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "listen address (env HTTP_ADDR)")
	f.StringVar(&cfg.QuestionBank, "bank", cfg.QuestionBank, "YAML question bank (env QUESTION_BANK)")
	f.StringVar(&cfg.DefaultBehaviour, "behaviour", cfg.DefaultBehaviour, "behaviour for new attempts (env DEFAULT_BEHAVIOUR)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if !behaviour.Known(cfg.DefaultBehaviour) {
		return fmt.Errorf("unknown behaviour %q (have %v)", cfg.DefaultBehaviour, behaviour.Names())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	dbh, err := db.Open(openCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	cancel()
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	defer dbh.Close()

	bank, err := question.LoadBankFile(cfg.QuestionBank)
	if err != nil {
		return err
	}
	log.Printf("loaded %d questions from %s", len(bank.IDs()), cfg.QuestionBank)

	opts := []attempt.ServiceOption{
		attempt.WithEvents(syncx.NewEventRepo(dbh, cfg.SiteID)),
		attempt.WithDefaultBehaviour(cfg.DefaultBehaviour),
	}
	if cfg.EnableMetrics {
		opts = append(opts, attempt.WithMetrics(metrics.Default()))
	}
	svc := attempt.NewService(attempt.NewSQLStore(dbh, cfg.DBDriver), bank, opts...)

	authOpts := []auth.Option{auth.WithDevLogin(cfg.EnableLocalAuth)}
	if cfg.AdminPassHash != "" {
		authOpts = append(authOpts, auth.WithAdmin(cfg.AdminUser, cfg.AdminPassHash))
	}
	authSvc := auth.NewAuthService(cfg.AuthHMACSecret, authOpts...)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc))

	// JWT -> subject and role in context -> RBAC per route
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		api.Mount(pr, svc, bank)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbh.PingContext(r.Context()); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	if cfg.EnableMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Printf("listening on %s (mode=%s, db=%s, behaviour=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver, cfg.DefaultBehaviour)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

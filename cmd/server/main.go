package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/govcontools/ratedesk/internal/config"
	"github.com/govcontools/ratedesk/internal/db"
	"github.com/govcontools/ratedesk/internal/migrations"
	"github.com/govcontools/ratedesk/internal/seed"
)

const shutdownTimeout = 10 * time.Second

type server struct {
	db *sql.DB
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "ratedesk",
		Short: "Burdened-rate calculation service for government contractors",
		RunE:  runServer,
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open database")
		return err
	}
	defer database.Close()

	if cfg.IsDev() {
		if err := migrations.Up(database, "migrations"); err != nil {
			logger.Error().Err(err).Msg("failed to run database migrations")
			return err
		}

		stats, err := seed.Run(database)
		if err != nil {
			logger.Error().Err(err).Msg("failed to run startup seed")
			return err
		}
		logger.Info().Int("inserts", stats.Inserts).Msg("startup seed complete")
	}

	srv := &server{db: database}

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv.routes(logger),
	}

	serverErrors := make(chan error, 1)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("starting server")
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-shutdown:
		logger.Info().Msg("shutdown initiated")

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
			return httpServer.Close()
		}
	}

	return nil
}

func (s *server) routes(logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(requestLogger(&logger))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Route("/rates", func(r chi.Router) {
			r.Post("/calculate", s.handleCalculateRates)
			r.Post("/bulk", s.handleBulkRates)
			r.Post("/compare", s.handleCompareRates)
			r.Get("/employee/{id}", s.handleEmployeeRateScenarios)
			r.Get("/contract/{id}", s.handleContractRateAnalysis)
		})

		r.Route("/employees", func(r chi.Router) {
			r.Get("/", s.handleListEmployees)
			r.Post("/", s.handleCreateEmployee)
			r.Get("/{id}", s.handleGetEmployee)
			r.Put("/{id}", s.handleUpdateEmployee)
			r.Delete("/{id}", s.handleDeleteEmployee)
			r.Get("/{id}/costs", s.handleEmployeeCosts)
		})

		r.Route("/company", func(r chi.Router) {
			r.Get("/rates", s.handleGetCompanyRates)
			r.Put("/rates", s.handleUpdateCompanyRates)
			r.Get("/summary", s.handleCompanySummary)
		})

		r.Route("/contracts", func(r chi.Router) {
			r.Get("/", s.handleListContracts)
			r.Post("/", s.handleCreateContract)
			r.Get("/{id}", s.handleGetContract)
			r.Put("/{id}", s.handleUpdateContract)
			r.Delete("/{id}", s.handleDeleteContract)
			r.Post("/{id}/assign-employee", s.handleAssignEmployee)
		})
	})

	return r
}

func requestLogger(logger *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			reqLogger := logger.With().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Str("remote_ip", req.RemoteAddr).
				Logger()

			ctx := reqLogger.WithContext(req.Context())
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/supplier-import/internal/catalog"
	"github.com/sells-group/supplier-import/internal/resilience"
	"github.com/sells-group/supplier-import/internal/strategy"
	"github.com/sells-group/supplier-import/internal/supplier"
	"github.com/sells-group/supplier-import/internal/validate"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP import API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newRouter(env *importEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/suppliers", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"suppliers": env.Registry.List()})
	})

	r.Post("/api/imports", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			URL         string `json:"url"`
			Strategy    string `json:"strategy"`
			Save        bool   `json:"save"`
			PricingTier string `json:"pricing_tier"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if body.URL == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url is required"})
			return
		}
		mode, err := strategy.ParseMode(body.Strategy)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		result, err := env.Orchestrator.Run(req.Context(), body.URL, mode)
		if err != nil {
			writeImportError(w, err)
			return
		}

		if body.Save {
			stored, err := env.Store.SaveProduct(req.Context(), body.URL, result.Record, result.Warnings, catalog.Overrides{PricingTier: body.PricingTier})
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"product": stored, "import": result})
			return
		}
		writeJSON(w, http.StatusOK, result)
	})

	r.Get("/api/products", func(w http.ResponseWriter, req *http.Request) {
		products, err := env.Store.ListProducts(req.Context(), 100)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"products": products})
	})

	r.Get("/api/products/{id}", func(w http.ResponseWriter, req *http.Request) {
		p, err := env.Store.GetProduct(req.Context(), chi.URLParam(req, "id"))
		if errors.Is(err, catalog.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, p)
	})

	return r
}

// writeImportError maps pipeline failures onto API statuses: unsupported
// domains are 422, upstream throttling is 429 with a retry hint, incomplete
// extractions are 422 naming the missing fields.
func writeImportError(w http.ResponseWriter, err error) {
	if rl, ok := resilience.AsRateLimited(err); ok {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(rl.RetryAfter.Seconds())))
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":       "upstream rate limited",
			"service":     rl.Service,
			"retry_after": rl.RetryAfter.Seconds(),
		})
		return
	}

	var ve *validate.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   "extraction incomplete",
			"missing": ve.Missing,
		})
		return
	}

	if errors.Is(err, supplier.ErrUnsupported) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "unsupported supplier url"})
		return
	}

	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

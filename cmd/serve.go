package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/jace/internal/llm"
	"github.com/sells-group/jace/internal/resilience"
	"github.com/sells-group/jace/internal/scout"
	"github.com/sells-group/jace/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the compliance and Scout review API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(env, cfg.Server.CORSOrigins, researchTimeout(cfg.LLM.Timeout())),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// researchTimeout bounds a synchronous Scout request: two LLM passes plus
// the store write.
func researchTimeout(perCall time.Duration) time.Duration {
	if perCall <= 0 {
		perCall = llm.DefaultTimeout
	}
	return 2*perCall + 10*time.Second
}

// buildRouter wires the HTTP API. env.Scout may be nil, in which case the
// research endpoint answers 503.
func buildRouter(env *appEnv, origins []string, timeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	if len(origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		api.Get("/compliance-check", func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			report, err := env.Engine.CheckAddress(r.Context(), q.Get("state"), q.Get("county"), q.Get("city"), q.Get("transaction_type"))
			if err != nil {
				writeServerError(w, "compliance check", err)
				return
			}
			writeJSON(w, http.StatusOK, report)
		})

		api.Post("/scout/research", func(w http.ResponseWriter, r *http.Request) {
			if env.Scout == nil {
				writeError(w, http.StatusServiceUnavailable, "SCOUT_DISABLED", "scout is not configured")
				return
			}
			req := struct {
				State  string `json:"state"`
				County string `json:"county"`
				City   string `json:"city"`
				Save   *bool  `json:"save"`
			}{}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "BAD_JSON", "invalid request body")
				return
			}
			save := req.Save == nil || *req.Save

			// The run outlives a dropped client so a verified result is not
			// lost between the second LLM pass and the store write.
			ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), timeout)
			defer cancel()

			rs, err := env.Scout.Run(ctx, scout.Target{State: req.State, County: req.County, City: req.City}, save)
			switch {
			case err == nil:
				status := http.StatusOK
				if save {
					status = http.StatusCreated
				}
				writeJSON(w, status, rs)
			case errors.Is(err, scout.ErrStateRequired):
				writeError(w, http.StatusBadRequest, "STATE_REQUIRED", "state is required")
			case errors.Is(err, llm.ErrMalformedResponse), errors.Is(err, resilience.ErrCircuitOpen):
				zap.L().Warn("scout research failed", zap.Error(err))
				writeError(w, http.StatusBadGateway, "LLM_ERROR", err.Error())
			default:
				writeServerError(w, "scout research", err)
			}
		})

		api.Get("/scout/results", func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			limit := store.DefaultListLimit
			if s := q.Get("limit"); s != "" {
				n, err := strconv.Atoi(s)
				if err != nil || n <= 0 {
					writeError(w, http.StatusBadRequest, "BAD_LIMIT", "limit must be a positive integer")
					return
				}
				limit = n
			}
			filter, err := listFilter(q.Get("state"), q.Get("verified"), limit)
			if err != nil {
				writeError(w, http.StatusBadRequest, "BAD_FILTER", err.Error())
				return
			}
			sets, err := env.Store.Find(r.Context(), filter)
			if err != nil {
				writeServerError(w, "list rule sets", err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"results": sets, "count": len(sets)})
		})

		api.Get("/scout/results/{id}", func(w http.ResponseWriter, r *http.Request) {
			rs, err := env.Store.Get(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				writeStoreError(w, "get rule set", err)
				return
			}
			writeJSON(w, http.StatusOK, rs)
		})

		api.Put("/scout/results/{id}/verify", func(w http.ResponseWriter, r *http.Request) {
			rs, err := env.Gate.Verify(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("verified_by"))
			if err != nil {
				writeStoreError(w, "verify rule set", err)
				return
			}
			writeJSON(w, http.StatusOK, rs)
		})

		api.Put("/scout/results/{id}/reject", func(w http.ResponseWriter, r *http.Request) {
			rs, err := env.Gate.Reject(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				writeStoreError(w, "reject rule set", err)
				return
			}
			writeJSON(w, http.StatusOK, rs)
		})
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}

func writeServerError(w http.ResponseWriter, op string, err error) {
	zap.L().Error(op+" failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "INTERNAL", op+" failed")
}

func writeStoreError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "rule set not found")
		return
	}
	writeServerError(w, op, err)
}

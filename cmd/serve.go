package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/innoventors/incident-cli/internal/model"
	"github.com/innoventors/incident-cli/internal/ocr"
	"github.com/innoventors/incident-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for uploads and the dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		env, err := initPipeline(ctx, true)
		if err != nil {
			return err
		}
		defer env.Close()

		mux := buildMux(env, cfg.Server.MaxUploadBytes)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(),
				time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
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

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// buildMux wires the HTTP API routes against an initialized pipeline
// environment.
func buildMux(env *pipelineEnv, maxUploadBytes int64) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	mux.HandleFunc("POST /analyze", func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

		file, hdr, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "file is required")
			return
		}
		defer file.Close() //nolint:errcheck

		tmp, err := os.CreateTemp("", "upload-*"+filepath.Ext(hdr.Filename))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "store upload")
			return
		}
		defer os.Remove(tmp.Name()) //nolint:errcheck

		if _, err := io.Copy(tmp, file); err != nil {
			tmp.Close() //nolint:errcheck
			writeError(w, http.StatusBadRequest, "read upload")
			return
		}
		if err := tmp.Close(); err != nil {
			writeError(w, http.StatusInternalServerError, "store upload")
			return
		}

		text, err := ocr.ReadDocument(r.Context(), env.Extractor, tmp.Name())
		if err != nil {
			zap.L().Error("text extraction failed",
				zap.String("file", hdr.Filename),
				zap.Error(err),
			)
			writeError(w, http.StatusUnprocessableEntity, "could not extract text from document")
			return
		}

		_, result, err := env.Pipeline.Ingest(r.Context(), hdr.Filename, text)
		if err != nil {
			zap.L().Error("ingest failed",
				zap.String("file", hdr.Filename),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, "analysis failed")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status":          "success",
			"file":            hdr.Filename,
			"total_incidents": result.TotalIncidents,
			"inserted":        result.Incidents,
		})
	})

	mux.HandleFunc("GET /incidents", func(w http.ResponseWriter, r *http.Request) {
		views, err := env.Store.ListIncidents(r.Context(), filterFromQuery(r))
		if err != nil {
			zap.L().Error("list incidents failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "list incidents")
			return
		}
		if views == nil {
			views = []model.IncidentView{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"count":     len(views),
			"incidents": views,
		})
	})

	mux.HandleFunc("GET /incidents/stats", func(w http.ResponseWriter, r *http.Request) {
		stats, err := env.Store.Stats(r.Context())
		if err != nil {
			zap.L().Error("stats failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "stats")
			return
		}
		writeJSON(w, http.StatusOK, stats)
	})

	mux.HandleFunc("DELETE /reset", func(w http.ResponseWriter, r *http.Request) {
		if err := env.Store.Reset(r.Context()); err != nil {
			zap.L().Error("reset failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "reset")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
	})

	return mux
}

func filterFromQuery(r *http.Request) store.IncidentFilter {
	q := r.URL.Query()
	f := store.IncidentFilter{
		Category: q.Get("category"),
		File:     q.Get("file"),
		Search:   q.Get("search"),
	}
	if s := q.Get("severity"); s != "" {
		f.Severity = model.ParseSeverity(s)
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		f.Limit = n
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil && n > 0 {
		f.Offset = n
	}
	return f
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

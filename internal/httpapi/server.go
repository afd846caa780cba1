package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sdbridge/internal/imagegen"
	"sdbridge/internal/params"
	"sdbridge/pkg/types"
)

// Service is what the HTTP layer needs from the application.
type Service interface {
	Generate(ctx context.Context, req imagegen.Request, d imagegen.Defaults) ([]string, error)
	StartServer(ctx context.Context, checkpoint string) error
	StopServer(ctx context.Context) error
	SwitchCheckpoint(ctx context.Context, name string, timeout time.Duration) error
	ServerStatus() types.ServerStatus
	// LocalSDUp reports whether the inference server port accepts connections.
	LocalSDUp() bool
	Checkpoints() ([]types.Checkpoint, error)
	Logs(n int) []string
}

// /logs limits.
const (
	DefaultLogLines = 500
	MaxLogLines     = 3000
)

// NewMux builds the router.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.HealthResponse{Status: "ok"})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		up := svc.LocalSDUp()
		writeJSON(w, http.StatusOK, types.HealthResponse{Status: "ok", LocalSD: &up})
	})

	r.Post("/generate", generateHandler(svc))

	r.Get("/logs", func(w http.ResponseWriter, r *http.Request) {
		limit := DefaultLogLines
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > MaxLogLines {
				writeJSONError(w, http.StatusUnprocessableEntity, "limit must be an integer between 1 and "+strconv.Itoa(MaxLogLines))
				return
			}
			limit = n
		}
		lines := svc.Logs(limit)
		if lines == nil {
			lines = []string{}
		}
		writeJSON(w, http.StatusOK, types.LogsResponse{Lines: lines})
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.ServerStatus())
	})

	r.Get("/checkpoints", func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.Checkpoints()
		if err != nil {
			writeJSONError(w, statusFor(err), err.Error())
			return
		}
		if list == nil {
			list = []types.Checkpoint{}
		}
		writeJSON(w, http.StatusOK, types.CheckpointsResponse{Checkpoints: list})
	})

	r.Route("/server", func(r chi.Router) {
		r.Post("/start", func(w http.ResponseWriter, r *http.Request) {
			var req types.ServerStartRequest
			if !decodeOptionalJSON(w, r, &req) {
				return
			}
			lifecycle(w, r, "server start", func(ctx context.Context) error { return svc.StartServer(ctx, req.ModelPath) })
		})
		r.Post("/switch", func(w http.ResponseWriter, r *http.Request) {
			req := types.ServerSwitchRequest{Timeout: 90}
			if !decodeOptionalJSON(w, r, &req) {
				return
			}
			if strings.TrimSpace(req.ModelName) == "" {
				writeJSONError(w, http.StatusBadRequest, "model_name is required")
				return
			}
			if req.Timeout <= 0 {
				req.Timeout = 90
			}
			timeout := time.Duration(req.Timeout) * time.Second
			lifecycle(w, r, "server switch", func(ctx context.Context) error { return svc.SwitchCheckpoint(ctx, req.ModelName, timeout) })
		})
		r.Post("/stop", func(w http.ResponseWriter, r *http.Request) {
			lifecycle(w, r, "server stop", svc.StopServer)
		})
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

func generateHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var body types.GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if generateSlots != nil {
			select {
			case generateSlots <- struct{}{}:
				defer func() { <-generateSlots }()
			default:
				IncrementBackpressure("generate")
				writeJSONError(w, http.StatusTooManyRequests, "too many concurrent generations")
				return
			}
		}

		lvl := requestLogLevel(r)
		start := time.Now()
		if lvl >= LevelInfo {
			ev := zlog.Info().Str("model", body.Model).Str("size", body.Size).Int("n", body.N).Str("preset", body.Preset)
			if rid := middleware.GetReqID(r.Context()); rid != "" {
				ev = ev.Str("request_id", rid)
			}
			ev.Msg("generate start")
		}

		ov, err := params.DecodeOverrides(body.SDOverrides)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			logEnd(r, lvl, "generate", http.StatusInternalServerError, start, err)
			return
		}

		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if generateTimeout > 0 {
			var tcancel context.CancelFunc
			ctx, tcancel = context.WithTimeout(ctx, generateTimeout)
			defer tcancel()
		}
		images, err := svc.Generate(ctx, imagegen.Request{
			Prompt:         body.Prompt,
			NegativePrompt: body.NegativePrompt,
			Size:           body.Size,
			N:              body.N,
			Model:          body.Model,
			Preset:         body.Preset,
			Overrides:      ov,
		}, imagegen.HTTPDefaults)
		if err != nil {
			if r.Context().Err() != nil {
				return
			}
			status := statusFor(err)
			writeJSONError(w, status, err.Error())
			logEnd(r, lvl, "generate", status, start, err)
			return
		}
		if images == nil {
			images = []string{}
		}
		writeJSON(w, http.StatusOK, types.GenerateResponse{Images: images})
		logEnd(r, lvl, "generate", http.StatusOK, start, nil)
	}
}

// lifecycle runs a server lifecycle call and answers {"ok": true} or {detail}.
func lifecycle(w http.ResponseWriter, r *http.Request, what string, fn func(context.Context) error) {
	lvl := requestLogLevel(r)
	start := time.Now()
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	if err := fn(ctx); err != nil {
		status := statusFor(err)
		writeJSONError(w, status, err.Error())
		logEnd(r, lvl, what, status, start, err)
		return
	}
	writeJSON(w, http.StatusOK, types.OKResponse{OK: true})
	logEnd(r, lvl, what, http.StatusOK, start, nil)
}

// decodeOptionalJSON decodes a JSON body when one is present. An empty body
// leaves v unchanged. It reports false after writing a 400.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
	return false
}

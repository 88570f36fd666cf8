package httpadapter

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/kirillkom/order-status-assistant/internal/adapters/http/openapi"
	"github.com/kirillkom/order-status-assistant/internal/config"
	"github.com/kirillkom/order-status-assistant/internal/core/domain"
	"github.com/kirillkom/order-status-assistant/internal/core/ports"
	"github.com/kirillkom/order-status-assistant/internal/observability/metrics"
)

const (
	defaultMaxUploadBytes = 25 << 20
	backpressureWait      = 250 * time.Millisecond
)

type Router struct {
	cfg       config.Config
	assistant ports.OrderStatusAssistant
	audio     ports.AudioStore
	metrics   *metrics.Metrics
	validate  *validatorv10.Validate
}

// NewRouter wires the HTTP surface. audio and m may be nil.
func NewRouter(
	cfg config.Config,
	assistant ports.OrderStatusAssistant,
	audio ports.AudioStore,
	m *metrics.Metrics,
) *Router {
	return &Router{
		cfg:       cfg,
		assistant: assistant,
		audio:     audio,
		metrics:   m,
		validate:  validatorv10.New(),
	}
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /process-audio", rt.processAudio)
	api.HandleFunc("POST /analyze", rt.processAudio)
	api.HandleFunc("POST /analyze-audio", rt.processAudio)
	api.HandleFunc("POST /v1/orders/status", rt.statusFromText)
	api.HandleFunc("POST /v1/orders/lookup", rt.lookupOrder)
	api.HandleFunc("GET /v1/orders/status/stream", rt.streamStatus)
	api.HandleFunc("GET /audio/{id}", rt.getAudio)

	root := http.NewServeMux()
	root.HandleFunc("GET /{$}", rt.index)
	root.HandleFunc("GET /healthz", rt.healthz)
	root.HandleFunc("GET /openapi.yaml", rt.openAPIDocument)
	if rt.metrics != nil {
		root.Handle("GET /metrics", rt.metrics.Handler())
	}
	root.Handle("/", rateLimitMiddleware(
		backpressureMiddleware(api, rt.cfg.APIMaxInFlight, backpressureWait),
		rt.cfg.APIRateLimitRPS,
		rt.cfg.APIRateLimitBurst,
	))

	var handler http.Handler = root
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) index(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Order status voice assistant API"})
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) openAPIDocument(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openapi.Document())
}

// processAudio serves /process-audio and its legacy aliases.
func (rt *Router) processAudio(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.maxUploadBytes())

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		if status := mapErrorToHTTPStatus(err); status == http.StatusRequestEntityTooLarge {
			writeJSON(w, status, map[string]string{"error": "audio file is too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		writeError(w, err)
		return
	}

	speak, err := rt.speakParam(r, rt.cfg.SpeakByDefault)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "speak must be a boolean"})
		return
	}

	report, err := rt.assistant.ProcessAudio(r.Context(), fileHeader.Filename, audio, ports.ProcessOptions{
		Speak:     speak,
		RequestID: requestIDFromContext(r.Context()),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) statusFromText(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if reqErr := decodeAndValidate(r, rt.validate, &req); reqErr != nil {
		writeJSON(w, reqErr.status, reqErr.payload)
		return
	}

	report := rt.assistant.ProcessTranscript(r.Context(), req.Text, ports.ProcessOptions{
		Speak:     req.Speak != nil && *req.Speak,
		RequestID: requestIDFromContext(r.Context()),
	})
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) lookupOrder(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if reqErr := decodeAndValidate(r, rt.validate, &req); reqErr != nil {
		writeJSON(w, reqErr.status, reqErr.payload)
		return
	}
	writeJSON(w, http.StatusOK, rt.assistant.LookupOrder(r.Context(), req.MobileNumber, req.OrderID))
}

func (rt *Router) getAudio(w http.ResponseWriter, r *http.Request) {
	if rt.audio == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Audio file not found"})
		return
	}

	clip, err := rt.audio.Open(r.Context(), r.PathValue("id"))
	if err != nil {
		if domain.IsKind(err, domain.ErrAudioNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Audio file not found"})
			return
		}
		writeError(w, err)
		return
	}
	defer clip.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, clip); err != nil {
		slog.Warn("audio_stream_failed",
			"request_id", requestIDFromContext(r.Context()),
			"error", err.Error(),
		)
	}
}

func (rt *Router) speakParam(r *http.Request, fallback bool) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("speak"))
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseBool(raw)
}

func (rt *Router) maxUploadBytes() int64 {
	if rt.cfg.APIMaxUploadBytes > 0 {
		return rt.cfg.APIMaxUploadBytes
	}
	return defaultMaxUploadBytes
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

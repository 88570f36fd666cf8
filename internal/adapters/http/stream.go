package httpadapter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/kirillkom/order-status-assistant/internal/core/ports"
)

type stageFrame struct {
	Stage string `json:"stage"`
	Data  any    `json:"data"`
}

// streamStatus runs the text pipeline and emits one SSE frame per stage.
func (rt *Router) streamStatus(w http.ResponseWriter, r *http.Request) {
	text := strings.TrimSpace(r.URL.Query().Get("text"))
	if text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query parameter 'text' is required"})
		return
	}
	speak, err := rt.speakParam(r, false)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "speak must be a boolean"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming is not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	var writeErr error
	onStage := func(stage string, payload any) {
		if writeErr != nil || r.Context().Err() != nil {
			return
		}
		writeErr = writeSSEFrame(w, stage, stageFrame{Stage: stage, Data: payload})
		if writeErr == nil {
			flusher.Flush()
		}
	}

	rt.assistant.ProcessTranscript(r.Context(), text, ports.ProcessOptions{
		Speak:     speak,
		RequestID: requestIDFromContext(r.Context()),
		OnStage:   onStage,
	})

	if writeErr == nil && r.Context().Err() == nil {
		_, _ = fmt.Fprint(w, "event: done\ndata: [DONE]\n\n")
		flusher.Flush()
	}
}

func writeSSEFrame(w http.ResponseWriter, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/order-status-assistant/internal/config"
	"github.com/kirillkom/order-status-assistant/internal/core/domain"
	"github.com/kirillkom/order-status-assistant/internal/core/ports"
	"github.com/kirillkom/order-status-assistant/internal/core/usecase"
)

type assistantFake struct {
	audioErr error

	gotFilename string
	gotAudio    []byte
	gotText     string
	gotOpts     ports.ProcessOptions
	gotMobile   string
	gotOrderID  string
}

func (f *assistantFake) ProcessTranscript(_ context.Context, transcript string, opts ports.ProcessOptions) domain.StatusReport {
	f.gotText = transcript
	f.gotOpts = opts
	if opts.OnStage != nil {
		opts.OnStage(usecase.StageProcessing, map[string]string{"transcript": transcript})
		opts.OnStage(usecase.StageCompleted, domain.StatusReport{Transcript: transcript, StatusFound: true})
	}
	return domain.StatusReport{Transcript: transcript, StatusFound: true}
}

func (f *assistantFake) ProcessAudio(_ context.Context, filename string, audio []byte, opts ports.ProcessOptions) (domain.StatusReport, error) {
	f.gotFilename = filename
	f.gotAudio = audio
	f.gotOpts = opts
	if f.audioErr != nil {
		return domain.StatusReport{}, f.audioErr
	}
	return domain.StatusReport{Transcript: "my order AMZ12345"}, nil
}

func (f *assistantFake) LookupOrder(_ context.Context, mobileNumber, orderID string) domain.StatusReport {
	f.gotMobile = mobileNumber
	f.gotOrderID = orderID
	return domain.StatusReport{StatusFound: true, ExtractionSource: domain.ExtractionSourceDirect}
}

type audioFake struct {
	clips map[string][]byte
}

func (f audioFake) Save(context.Context, string, io.Reader) error { return nil }

func (f audioFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	clip, ok := f.clips[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrAudioNotFound, "open clip", errors.New(key))
	}
	return io.NopCloser(bytes.NewReader(clip)), nil
}

func newTestHandler(cfg config.Config, assistant ports.OrderStatusAssistant) http.Handler {
	return NewRouter(cfg, assistant, audioFake{clips: map[string][]byte{"clip.mp3": []byte("ID3")}}, nil).Handler()
}

func multipartAudio(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &body, mw.FormDataContentType()
}

func TestProcessAudioPassesUploadAndSpeakFlag(t *testing.T) {
	fake := &assistantFake{}
	handler := newTestHandler(config.Config{SpeakByDefault: true}, fake)

	for _, path := range []string{"/process-audio", "/analyze", "/analyze-audio"} {
		body, contentType := multipartAudio(t, "file", "query.wav", []byte("RIFF"))
		req := httptest.NewRequest(http.MethodPost, path+"?speak=false", body)
		req.Header.Set("Content-Type", contentType)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)

		if res.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", path, res.Code, res.Body.String())
		}
		if fake.gotFilename != "query.wav" || string(fake.gotAudio) != "RIFF" {
			t.Fatalf("%s: unexpected upload %q %q", path, fake.gotFilename, fake.gotAudio)
		}
		if fake.gotOpts.Speak {
			t.Fatalf("%s: speak=false query should override the default", path)
		}
		if fake.gotOpts.RequestID == "" {
			t.Fatalf("%s: expected request id to reach the pipeline", path)
		}
	}
}

func TestProcessAudioRequiresFileField(t *testing.T) {
	handler := newTestHandler(config.Config{}, &assistantFake{})

	body, contentType := multipartAudio(t, "audio", "query.wav", []byte("RIFF"))
	req := httptest.NewRequest(http.MethodPost, "/process-audio", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestProcessAudioRejectsOversizedUpload(t *testing.T) {
	handler := newTestHandler(config.Config{APIMaxUploadBytes: 64}, &assistantFake{})

	body, contentType := multipartAudio(t, "file", "query.wav", bytes.Repeat([]byte("a"), 4096))
	req := httptest.NewRequest(http.MethodPost, "/process-audio", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", res.Code)
	}
}

func TestProcessAudioMapsDomainErrors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.WrapError(domain.ErrInvalidInput, "process audio", errors.New("empty")), http.StatusBadRequest},
		{domain.WrapError(domain.ErrNotConfigured, "process audio", errors.New("no stt")), http.StatusNotImplemented},
		{domain.WrapError(domain.ErrTemporary, "process audio", errors.New("busy")), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		handler := newTestHandler(config.Config{}, &assistantFake{audioErr: tt.err})
		body, contentType := multipartAudio(t, "file", "query.wav", []byte("RIFF"))
		req := httptest.NewRequest(http.MethodPost, "/process-audio", body)
		req.Header.Set("Content-Type", contentType)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)

		if res.Code != tt.want {
			t.Fatalf("error %v: expected %d, got %d", tt.err, tt.want, res.Code)
		}
	}
}

func TestStatusFromTextValidatesBody(t *testing.T) {
	handler := newTestHandler(config.Config{}, &assistantFake{})

	req := httptest.NewRequest(http.MethodPost, "/v1/orders/status", strings.NewReader(`{"speak":true}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	var resp struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != "validation_failed" || resp.Fields["Text"] != "required" {
		t.Fatalf("unexpected validation payload: %+v", resp)
	}
}

func TestStatusFromTextRunsPipeline(t *testing.T) {
	fake := &assistantFake{}
	handler := newTestHandler(config.Config{}, fake)

	payload, _ := json.Marshal(map[string]any{"text": "order AMZ12345 mobile 9876543210", "speak": true})
	req := httptest.NewRequest(http.MethodPost, "/v1/orders/status", bytes.NewReader(payload))
	req.Header.Set(requestIDHeader, "req-42")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if fake.gotText != "order AMZ12345 mobile 9876543210" || !fake.gotOpts.Speak || fake.gotOpts.RequestID != "req-42" {
		t.Fatalf("unexpected pipeline call: text=%q opts=%+v", fake.gotText, fake.gotOpts)
	}
	if res.Header().Get(requestIDHeader) != "req-42" {
		t.Fatalf("expected request id echoed, got %q", res.Header().Get(requestIDHeader))
	}
}

func TestLookupOrderAcceptsSingleIdentifier(t *testing.T) {
	fake := &assistantFake{}
	handler := newTestHandler(config.Config{}, fake)

	req := httptest.NewRequest(http.MethodPost, "/v1/orders/lookup", strings.NewReader(`{"order_id":"amz-12345"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if fake.gotOrderID != "amz-12345" || fake.gotMobile != "" {
		t.Fatalf("unexpected lookup args %q %q", fake.gotMobile, fake.gotOrderID)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/orders/lookup", strings.NewReader(`{}`))
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without identifiers, got %d", res.Code)
	}
}

func TestStreamStatusEmitsStageFrames(t *testing.T) {
	handler := newTestHandler(config.Config{}, &assistantFake{})

	req := httptest.NewRequest(http.MethodGet, "/v1/orders/status/stream?text=where+is+AMZ12345", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if ct := res.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	body := res.Body.String()
	for _, want := range []string{"event: processing\n", "event: completed\n", `"stage":"completed"`, "data: [DONE]"} {
		if !strings.Contains(body, want) {
			t.Fatalf("stream missing %q:\n%s", want, body)
		}
	}
	if strings.Index(body, "event: processing") > strings.Index(body, "event: completed") {
		t.Fatalf("stages out of order:\n%s", body)
	}
}

func TestStreamStatusRequiresText(t *testing.T) {
	handler := newTestHandler(config.Config{}, &assistantFake{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/orders/status/stream", nil))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestGetAudioServesClip(t *testing.T) {
	handler := newTestHandler(config.Config{}, &assistantFake{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/audio/clip.mp3", nil))
	if res.Code != http.StatusOK || res.Header().Get("Content-Type") != "audio/mpeg" || res.Body.String() != "ID3" {
		t.Fatalf("unexpected clip response %d %q %q", res.Code, res.Header().Get("Content-Type"), res.Body.String())
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/audio/missing.mp3", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing clip, got %d", res.Code)
	}
}

func TestOpenAPIDocumentIsServed(t *testing.T) {
	handler := newTestHandler(config.Config{}, &assistantFake{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	if res.Code != http.StatusOK || !strings.Contains(res.Body.String(), "/v1/orders/lookup") {
		t.Fatalf("unexpected openapi response %d", res.Code)
	}
}

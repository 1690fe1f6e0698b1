package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"

	"WhereAmI/internal/domain"
	"WhereAmI/internal/usecase"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakeSpeaker struct {
	result usecase.SpeakResult
	err    error
	panic  bool
	reqs   []usecase.SpeakRequest
}

func (f *fakeSpeaker) Speak(ctx context.Context, req usecase.SpeakRequest) (usecase.SpeakResult, error) {
	if f.panic {
		panic("boom")
	}
	f.reqs = append(f.reqs, req)
	return f.result, f.err
}

type fakeLimiter struct {
	allowed bool
	err     error
	clients []string
}

func (f *fakeLimiter) Allow(ctx context.Context, clientID string) (bool, error) {
	f.clients = append(f.clients, clientID)
	return f.allowed, f.err
}

func serve(t *testing.T, handler http.Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var body map[string]any
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode body %q: %v", rec.Body.String(), err)
		}
	}
	return rec, body
}

func TestSpeakSuccess(t *testing.T) {
	t.Parallel()

	speaker := &fakeSpeaker{result: usecase.SpeakResult{
		Locality:  "Gregerton",
		StateName: "Gregtown",
		SpeechURL: "url.com/uploaded-to-s3-just-then.mp3",
		Thumbnail: "https://img/first.jpg",
		PageURL:   "https://en.wikipedia.org/wiki/Gregerton",
		Sections:  []domain.Segment{{Type: domain.SegmentWelcome, Text: "Welcome to Gregerton, Gregtown."}},
		CacheHit:  true,
	}}

	rec, body := serve(t, NewRouter(speaker, nil, nil).Handler(), "/speak/instance-1/Amy/-28.215401/152.0354923")

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	if len(speaker.reqs) != 1 {
		t.Fatalf("speaker not called")
	}
	req := speaker.reqs[0]
	if req.InstanceID != "instance-1" || req.VoiceID != "Amy" || req.Latitude != -28.215401 || req.Longitude != 152.0354923 {
		t.Fatalf("unexpected request: %+v", req)
	}

	if body["status"] != float64(200) || body["locality"] != "Gregerton" || body["stateName"] != "Gregtown" {
		t.Fatalf("unexpected body: %v", body)
	}
	if body["speechUrl"] != "url.com/uploaded-to-s3-just-then.mp3" || body["thumbnail"] != "https://img/first.jpg" {
		t.Fatalf("unexpected body: %v", body)
	}
	if body["cacheHit"] != true || body["latitude"] != -28.215401 {
		t.Fatalf("unexpected body: %v", body)
	}
	sections, ok := body["sections"].([]any)
	if !ok || len(sections) != 1 {
		t.Fatalf("unexpected sections: %v", body["sections"])
	}
}

func TestSpeakBadCoordinates(t *testing.T) {
	t.Parallel()

	paths := []string{
		"/speak/i/Brian/north/152",
		"/speak/i/Brian/-28/east",
		"/speak/i/Brian/91/152",
		"/speak/i/Brian/-28/181",
		"/speak/i/Brian/NaN/152",
	}

	for _, path := range paths {
		speaker := &fakeSpeaker{}
		rec, body := serve(t, NewRouter(speaker, nil, nil).Handler(), path)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: unexpected status %d", path, rec.Code)
		}
		if body["error"] == nil || body["error"] == "" {
			t.Fatalf("%s: missing error message: %v", path, body)
		}
		if len(speaker.reqs) != 0 {
			t.Fatalf("%s: speaker called for bad coordinates", path)
		}
	}
}

func TestSpeakPipelineErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		want    int
		message string
	}{
		{
			name:    "not found",
			err:     &usecase.PipelineError{Kind: usecase.KindNotFound, Message: "nothing found for latitude: 1, longitude: 2", Status: http.StatusNotFound},
			want:    http.StatusNotFound,
			message: "nothing found for latitude: 1, longitude: 2",
		},
		{
			name: "upstream status kept",
			err: &usecase.PipelineError{
				Kind:    usecase.KindUpstream,
				Message: "getting place",
				Status:  http.StatusServiceUnavailable,
				Err:     errors.New(`mapbox returned 503: {"message":"token abc123 over quota"}`),
			},
			want:    http.StatusServiceUnavailable,
			message: "getting place",
		},
		{
			name: "cause is not exposed",
			err: &usecase.PipelineError{
				Kind:    usecase.KindUpstream,
				Message: "synthesizing speech",
				Status:  http.StatusInternalServerError,
				Err:     errors.New("InvalidParameterValue: status code: 400, request id: 7f1c"),
			},
			want:    http.StatusInternalServerError,
			message: "synthesizing speech",
		},
		{
			name:    "plain error",
			err:     errors.New("dial tcp 10.0.0.7:5432: connection refused"),
			want:    http.StatusInternalServerError,
			message: "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec, body := serve(t, NewRouter(&fakeSpeaker{err: tt.err}, nil, nil).Handler(), "/speak/i/Brian/1/2")
			if rec.Code != tt.want {
				t.Fatalf("unexpected status %d", rec.Code)
			}
			if body["status"] != float64(tt.want) || body["error"] != tt.message {
				t.Fatalf("unexpected body: %v", body)
			}
			if body["latitude"] != float64(1) || body["longitude"] != float64(2) {
				t.Fatalf("coordinates missing from body: %v", body)
			}
		})
	}
}

func TestSpeakRateLimited(t *testing.T) {
	t.Parallel()

	speaker := &fakeSpeaker{}
	limiter := &fakeLimiter{allowed: false}

	rec, _ := serve(t, NewRouter(speaker, limiter, nil).Handler(), "/speak/i/Brian/1/2")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if len(speaker.reqs) != 0 {
		t.Fatalf("speaker called while rate limited")
	}
	if len(limiter.clients) != 1 || limiter.clients[0] != "192.0.2.1" {
		t.Fatalf("unexpected limiter clients: %v", limiter.clients)
	}
}

func TestSpeakLimiterFailureFailsOpen(t *testing.T) {
	t.Parallel()

	speaker := &fakeSpeaker{}
	limiter := &fakeLimiter{err: errors.New("table missing")}

	rec, _ := serve(t, NewRouter(speaker, limiter, nil).Handler(), "/speak/i/Brian/1/2")
	if rec.Code != http.StatusOK || len(speaker.reqs) != 1 {
		t.Fatalf("expected the request to proceed, status %d", rec.Code)
	}
}

func TestHealthzSkipsLimiter(t *testing.T) {
	t.Parallel()

	limiter := &fakeLimiter{allowed: false}
	rec, _ := serve(t, NewRouter(&fakeSpeaker{}, limiter, nil).Handler(), "/healthz")

	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected healthz response %d %q", rec.Code, rec.Body.String())
	}
	if len(limiter.clients) != 0 {
		t.Fatalf("healthz went through the limiter")
	}
}

func TestPanicRecovered(t *testing.T) {
	t.Parallel()

	rec, body := serve(t, NewRouter(&fakeSpeaker{panic: true}, nil, nil).Handler(), "/speak/i/Brian/1/2")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if body["error"] != "internal server error" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestParseCoordinate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw   string
		limit float64
		want  float64
		ok    bool
	}{
		{"-28.215401", 90, -28.215401, true},
		{"90", 90, 90, true},
		{"-180", 180, -180, true},
		{"90.0001", 90, 0, false},
		{"Inf", 180, 0, false},
		{"", 90, 0, false},
	}

	for _, tt := range tests {
		got, err := parseCoordinate(tt.raw, tt.limit)
		if (err == nil) != tt.ok || got != tt.want {
			t.Fatalf("parseCoordinate(%q) = %v, %v", tt.raw, got, err)
		}
	}
}

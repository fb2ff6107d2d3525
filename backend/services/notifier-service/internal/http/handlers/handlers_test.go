package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"avacharge/backend/services/notifier-service/internal/http/middleware"
	"avacharge/backend/services/notifier-service/internal/models"
	"avacharge/backend/services/notifier-service/internal/service"
)

type fakeNotifier struct {
	pollResult  service.PollResult
	pollErr     error
	pushErr     error
	pushed      []service.PushRequest
	resetResult service.ResetResult
	resetErr    error
	resetCalls  int
}

func (f *fakeNotifier) Poll(ctx context.Context) (service.PollResult, error) {
	return f.pollResult, f.pollErr
}

func (f *fakeNotifier) Push(ctx context.Context, req service.PushRequest) (models.Message, error) {
	f.pushed = append(f.pushed, req)
	if f.pushErr != nil {
		return models.Message{}, f.pushErr
	}
	return models.Message{StationID: req.StationID, Title: "✅ Station Now Free"}, nil
}

func (f *fakeNotifier) ResetDaily(ctx context.Context) (service.ResetResult, error) {
	f.resetCalls++
	return f.resetResult, f.resetErr
}

func newTestHandler(svc Notifier) *NotifierHandler {
	return NewNotifierHandler(svc, service.NewResetGuard("letmein", ""), zap.NewNop())
}

func TestHandlePollSummary(t *testing.T) {
	svc := &fakeNotifier{pollResult: service.PollResult{Fired: []string{"⚠️ TimeEnding: Bay 1", "🔔 StatusChange: Bay 2 [Free]"}}}
	rec := httptest.NewRecorder()
	newTestHandler(svc).HandlePoll(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	want := "✅ Notifications sent: ⚠️ TimeEnding: Bay 1, 🔔 StatusChange: Bay 2 [Free]"
	if rec.Body.String() != want {
		t.Errorf("body: got %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type: %q", ct)
	}
}

func TestHandlePollFailureStill200(t *testing.T) {
	svc := &fakeNotifier{pollErr: fmt.Errorf("%w: redis down", service.ErrDownstream)}
	rec := httptest.NewRecorder()
	newTestHandler(svc).HandlePoll(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Body.String(), "⚠️ Poll failed:") {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestHandlePollUnknownPath(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestHandler(&fakeNotifier{}).HandlePoll(rec, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d", rec.Code)
	}
}

func TestHandlePushStatusCodes(t *testing.T) {
	cases := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"ok", `{"stationId":"s1","status":"Free"}`, nil, http.StatusOK},
		{"bad json", `{"stationId":`, nil, http.StatusBadRequest},
		{"invalid", `{"stationId":"s1"}`, fmt.Errorf("%w: status is required", service.ErrInvalidInput), http.StatusBadRequest},
		{"not found", `{"stationId":"nope","status":"Free"}`, fmt.Errorf("%w: nope", service.ErrNotFound), http.StatusNotFound},
		{"downstream", `{"stationId":"s1","status":"Free"}`, fmt.Errorf("%w: webhook", service.ErrDownstream), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeNotifier{pushErr: tc.err}
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/notify", strings.NewReader(tc.body))
			newTestHandler(svc).HandlePush(rec, req)
			if rec.Code != tc.want {
				t.Errorf("status: got %d, want %d (%s)", rec.Code, tc.want, rec.Body.String())
			}
			if tc.want != http.StatusOK {
				var body map[string]string
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["error"] == "" {
					t.Errorf("expected error body, got %q", rec.Body.String())
				}
			}
		})
	}
}

func TestHandlePushDecodesOptionalFields(t *testing.T) {
	svc := &fakeNotifier{}
	body := `{"stationId":"s1","status":"Occupied","user":"Ana","duration":45,"bookingTime":"18:00"}`
	rec := httptest.NewRecorder()
	newTestHandler(svc).HandlePush(rec, httptest.NewRequest(http.MethodPost, "/notify", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	got := svc.pushed[0]
	if got.User != "Ana" || got.Duration == nil || *got.Duration != 45 || got.BookingTime != "18:00" {
		t.Errorf("decoded: %+v", got)
	}
}

func TestHandlePushLogsTokenSubject(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := NewNotifierHandler(&fakeNotifier{}, service.NewResetGuard("letmein", ""), zap.New(core))
	protected := middleware.PushAuth("push-secret")(http.HandlerFunc(h.HandlePush))

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "booking-app"}).SignedString([]byte("push-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/notify", strings.NewReader(`{"stationId":"s1","status":"Free"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d (%s)", rec.Code, rec.Body.String())
	}

	entries := logs.FilterMessage("status pushed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one push log entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["caller"]; got != "booking-app" {
		t.Errorf("caller: got %v", got)
	}
}

func TestHandleResetDailyRejectsWrongKey(t *testing.T) {
	for _, key := range []string{"", "nope"} {
		svc := &fakeNotifier{}
		req := httptest.NewRequest(http.MethodPost, "/reset-daily", nil)
		if key != "" {
			req.Header.Set("x-reset-key", key)
		}
		rec := httptest.NewRecorder()
		newTestHandler(svc).HandleResetDaily(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("key %q: status %d", key, rec.Code)
		}
		if svc.resetCalls != 0 {
			t.Errorf("key %q: reset ran", key)
		}
	}
}

func TestHandleResetDaily(t *testing.T) {
	svc := &fakeNotifier{resetResult: service.ResetResult{Reset: 2, Skipped: []string{"Bay 3"}}}
	req := httptest.NewRequest(http.MethodPost, "/reset-daily", nil)
	req.Header.Set("X-Reset-Key", "letmein")
	rec := httptest.NewRecorder()
	newTestHandler(svc).HandleResetDaily(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var got service.ResetResult
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Reset != 2 || len(got.Skipped) != 1 {
		t.Errorf("result: %+v", got)
	}

	svc.resetErr = fmt.Errorf("%w: 1 station(s) failed to reset", service.ErrDownstream)
	rec = httptest.NewRecorder()
	newTestHandler(svc).HandleResetDaily(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status on failure: got %d", rec.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(func(context.Context) error { return nil })(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("healthy: got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	NewHealthHandler(func(context.Context) error { return errors.New("connection refused") })(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy: got %d", rec.Code)
	}
}

type fakeLog struct {
	station string
	limit   int
}

func (f *fakeLog) Recent(ctx context.Context, stationID string, limit int) ([]models.Message, error) {
	f.station, f.limit = stationID, limit
	return nil, nil
}

func TestNotificationsHandler(t *testing.T) {
	log := &fakeLog{}
	rec := httptest.NewRecorder()
	NewNotificationsHandler(log)(rec, httptest.NewRequest(http.MethodGet, "/notifications?station_id=s1&limit=1000", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if log.station != "s1" || log.limit != maxLogLimit {
		t.Errorf("query: station=%q limit=%d", log.station, log.limit)
	}
	if !strings.Contains(rec.Body.String(), `"notifications":[]`) {
		t.Errorf("body: %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	NewNotificationsHandler(log)(rec, httptest.NewRequest(http.MethodGet, "/notifications?limit=-1", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit: got %d", rec.Code)
	}
}

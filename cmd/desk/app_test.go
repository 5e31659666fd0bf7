package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/chrisdamba/excursiondesk/pkg/config"
	"github.com/chrisdamba/excursiondesk/pkg/salesapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const familyDrafts = `[
	{"id":11,"booking_code":"B-11","status":"DRAFT","family_id":9,"date":"2026-11-02","excursion_id":4,"excursion_title":"Sevilla","adults":2,"children":0,"gross_total":"120.00"},
	{"id":12,"booking_code":"B-12","status":"CANCELLED","family_id":9,"date":"2026-11-03","excursion_id":5,"adults":1,"children":1,"gross_total":80}
]`

// backOffice fakes the sales API. Requests are recorded as "METHOD path".
type backOffice struct {
	mu            sync.Mutex
	authenticated bool
	calls         []string
}

func (b *backOffice) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.calls = append(b.calls, r.Method+" "+r.URL.Path)
	authenticated := b.authenticated
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.Method + " " + r.URL.Path {
	case "GET /api/sales/csrf/":
		fmt.Fprint(w, `{"csrftoken":"tok"}`)
	case "GET /api/sales/bookings/":
		if !authenticated {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"detail":"Authentication credentials were not provided."}`)
			return
		}
		fmt.Fprint(w, `{"results":[]}`)
	case "GET /api/sales/bookings/family/9/drafts/":
		fmt.Fprint(w, familyDrafts)
	case "GET /api/sales/bookings/11/":
		fmt.Fprint(w, `{"id":11,"status":"DRAFT","family_id":9,"date":"2026-11-02","excursion_id":4}`)
	case "DELETE /api/sales/bookings/11/":
		if r.Header.Get(salesapi.CSRFHeader) != "tok" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"detail":"Not found."}`)
	}
}

func (b *backOffice) called(call string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.calls {
		if c == call {
			return true
		}
	}
	return false
}

func newTestApp(t *testing.T, backend *backOffice) (*App, *bytes.Buffer) {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.SalesAPI.Backend = srv.URL
	cfg.Log.Level = "error"

	var out bytes.Buffer
	app := NewApp(cfg, &out)
	require.NoError(t, app.Initialize(context.Background()))
	t.Cleanup(func() { app.Shutdown(context.Background()) })
	return app, &out
}

func TestApp_Initialize_WarmsCSRF(t *testing.T) {
	backend := &backOffice{}
	app, _ := newTestApp(t, backend)

	assert.True(t, backend.called("GET /api/sales/csrf/"))
	assert.Equal(t, "tok", app.session.CSRFToken())
}

func TestApp_Run_Usage(t *testing.T) {
	app, out := newTestApp(t, &backOffice{})

	err := app.Run(context.Background(), nil)
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, out.String(), "Commands:")

	err = app.Run(context.Background(), []string{"refund"})
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, err.Error(), `"refund"`)
}

func TestApp_Run_RedirectsWhenSignedOut(t *testing.T) {
	backend := &backOffice{}
	app, out := newTestApp(t, backend)

	err := app.Run(context.Background(), []string{"drafts", "9"})

	assert.ErrorIs(t, err, errNotAuthenticated)
	assert.Contains(t, out.String(), "/login?next=%2Fdrafts")
	assert.False(t, backend.called("GET /api/sales/bookings/family/9/drafts/"))
}

func TestApp_Run_Drafts(t *testing.T) {
	backend := &backOffice{authenticated: true}
	app, out := newTestApp(t, backend)

	err := app.Run(context.Background(), []string{"drafts", "9"})

	require.NoError(t, err)
	assert.Contains(t, out.String(), "B-11")
	assert.Contains(t, out.String(), "Sevilla")
	assert.Contains(t, out.String(), "#5")
	assert.Contains(t, out.String(), "active 120.00, cancelled 80.00")
	assert.NotContains(t, out.String(), "stale")
}

func TestApp_Run_DraftsBadFamily(t *testing.T) {
	app, _ := newTestApp(t, &backOffice{authenticated: true})

	err := app.Run(context.Background(), []string{"drafts", "nine"})
	assert.ErrorIs(t, err, errUsage)
}

func TestApp_Run_Delete(t *testing.T) {
	backend := &backOffice{authenticated: true}
	app, out := newTestApp(t, backend)

	err := app.Run(context.Background(), []string{"delete", "11"})

	require.NoError(t, err)
	assert.True(t, backend.called("DELETE /api/sales/bookings/11/"))
	assert.Contains(t, out.String(), "deleted booking 11")
}

func TestApp_Run_CancelRefusesDraft(t *testing.T) {
	backend := &backOffice{authenticated: true}
	app, _ := newTestApp(t, backend)

	err := app.Run(context.Background(), []string{"cancel", "11"})

	assert.Error(t, err)
	assert.Equal(t, "booking cannot be cancelled in its current status", describe(err))
	assert.False(t, backend.called("POST /api/sales/bookings/11/cancel/"))
}

func TestDescribe(t *testing.T) {
	reqErr := &salesapi.RequestError{StatusCode: http.StatusBadRequest, Detail: "Date is in the past."}
	assert.Equal(t, "Date is in the past.", describe(fmt.Errorf("create booking: %w", reqErr)))

	assert.Equal(t, "plain failure", describe(fmt.Errorf("plain failure")))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 2, exitCode(fmt.Errorf("%w: bad flag", errUsage)))
	assert.Equal(t, 3, exitCode(errNotAuthenticated))
	assert.Equal(t, 1, exitCode(fmt.Errorf("boom")))
}

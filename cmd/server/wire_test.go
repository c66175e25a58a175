package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	intakehandler "caseintake/internal/intake/handler"
	"caseintake/internal/intake/notify"
	"caseintake/internal/intake/summary"
	"caseintake/internal/intake/workflow"
	"caseintake/internal/platform/config"
	"caseintake/internal/platform/metrics"
	"caseintake/pkg/platform/middleware/requestid"
	"caseintake/pkg/testutil"
)

func TestDefaultLayoutsMatchPackageDefaults(t *testing.T) {
	f := config.DefaultFormLayout()
	assert.Equal(t, workflow.DefaultLayout(), workflowLayout(f))
	assert.Equal(t, summary.DefaultLayout(), summaryLayout(f))
	assert.Empty(t, catalog(f))
}

func TestCatalogOverrides(t *testing.T) {
	f := config.DefaultFormLayout()
	f.Notifications = map[string]config.Notification{
		"no-primary-contact": {Message: "Pick a contact."},
	}
	merged := notify.DefaultCatalog().Merge(catalog(f))
	assert.Equal(t, "Pick a contact.", merged[notify.NoPrimaryContact].Message)
	assert.Equal(t, notify.DefaultCatalog()[notify.NoPrimaryContact].Severity, merged[notify.NoPrimaryContact].Severity)
}

func TestBuildWithoutExternalServices(t *testing.T) {
	cfg := &config.Config{
		RecordService: config.RecordService{URL: "http://records.invalid"},
		Form:          config.DefaultFormLayout(),
	}
	reg := metrics.NewRegistry()
	app, err := build(context.Background(), cfg, slog.New(slog.DiscardHandler), reg)
	require.NoError(t, err)
	defer app.Close()

	assert.Equal(t, "memory", app.storeKind)
	assert.Equal(t, "memory", app.sinkKind)

	router := newRouter(app, reg, slog.New(slog.DiscardHandler))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(requestid.Header))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestLookupFieldsFollowLayout(t *testing.T) {
	f := config.DefaultFormLayout()
	assert.Equal(t, []string{"primarycontactid"}, lookupFields(f))

	f.Organization.PrimaryContact = " new_contactid "
	assert.Equal(t, []string{"new_contactid"}, lookupFields(f))
}

func TestRenamedOrganizationContactResolves(t *testing.T) {
	var mu sync.Mutex
	var accountSelects []string
	records := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/accounts(A1)"):
			mu.Lock()
			accountSelects = append(accountSelects, r.URL.Query().Get("$select"))
			mu.Unlock()
			_, _ = w.Write([]byte(`{"_new_contactid_value":"P1"}`))
		case strings.HasSuffix(r.URL.Path, "/contacts(P1)"):
			_, _ = w.Write([]byte(`{"fullname":"Jane Doe","emailaddress1":"e@x.com","telephone1":"555"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer records.Close()

	layout := config.DefaultFormLayout()
	layout.Organization.PrimaryContact = "new_contactid"
	layout.Panel.PollInterval = time.Millisecond
	cfg := &config.Config{
		RecordService: config.RecordService{URL: records.URL, Timeout: 5 * time.Second},
		Form:          layout,
	}
	reg := metrics.NewRegistry()
	app, err := build(context.Background(), cfg, slog.New(slog.DiscardHandler), reg)
	require.NoError(t, err)
	defer app.Close()
	router := newRouter(app, reg, slog.New(slog.DiscardHandler))

	req := testutil.NewJSONRequest(t, http.MethodPost, "/v1/case-forms/resolve", map[string]any{
		"customer": map[string]string{"id": "A1", "kind": "account", "name": "Contoso"},
	})
	rr := testutil.DoRequest(router, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := testutil.UnmarshalResponse[intakehandler.ResolveResponse](t, rr)

	mu.Lock()
	assert.Equal(t, []string{"_new_contactid_value"}, accountSelects)
	mu.Unlock()
	assert.Equal(t, string(workflow.OutcomeContactResolved), resp.Outcome)
	require.NotNil(t, resp.PrimaryContact.Value)
	assert.Equal(t, "P1", resp.PrimaryContact.Value.ID)
	assert.Equal(t, "Jane Doe", resp.PrimaryContact.Value.Name)
	for _, b := range resp.Notifications {
		assert.NotEqual(t, string(notify.NoPrimaryContact), b.ID)
	}
}

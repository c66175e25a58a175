package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseintake/internal/admission"
	"caseintake/internal/admission/service"
	"caseintake/internal/admission/store"
	"caseintake/pkg/testutil"
)

const customerID = "5b8a0e1c-8f2d-4e0a-9d1c-2f3b4a5c6d7e"

func newRouter(t *testing.T) chi.Router {
	t.Helper()
	svc, err := service.New(store.NewInMemory())
	require.NoError(t, err)
	r := chi.NewRouter()
	New(svc, nil).Register(r)
	return r
}

func create(t *testing.T, r chi.Router, body any) *CaseResponse {
	t.Helper()
	req := testutil.NewJSONRequest(t, http.MethodPost, "/v1/cases", body)
	rr := testutil.DoRequest(r, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return testutil.UnmarshalResponse[CaseResponse](t, rr)
}

func TestCaseLifecycle(t *testing.T) {
	r := newRouter(t)
	now := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

	testutil.Given(t, "a customer without an active case", func(t *testing.T) {
		var created *CaseResponse

		testutil.When(t, "a case is created", func(t *testing.T) {
			req := testutil.AtTime(testutil.NewJSONRequest(t, http.MethodPost, "/v1/cases", map[string]string{
				"customer_id":   "{" + customerID + "}",
				"customer_kind": "account",
				"title":         "  Printer jam ",
			}), now)
			rr := testutil.DoRequest(r, req)
			require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
			created = testutil.UnmarshalResponse[CaseResponse](t, rr)

			assert.Equal(t, customerID, created.CustomerID)
			assert.Equal(t, "account", created.CustomerKind)
			assert.Equal(t, "Printer jam", created.Title)
			assert.Equal(t, "active", created.State)
			assert.True(t, now.Equal(created.CreatedAt))
		})

		testutil.Then(t, "a second case for the customer is rejected", func(t *testing.T) {
			req := testutil.NewJSONRequest(t, http.MethodPost, "/v1/cases", map[string]string{
				"customer_id":   customerID,
				"customer_kind": "account",
			})
			body := testutil.AssertError(t, testutil.DoRequest(r, req), http.StatusConflict, "conflict")
			assert.Equal(t, admission.MessageActiveCaseExists, body.ErrorDescription)
		})

		testutil.Then(t, "the case can be read back", func(t *testing.T) {
			rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodGet, "/v1/cases/"+created.ID, nil))
			require.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, created.ID, testutil.UnmarshalResponse[CaseResponse](t, rr).ID)
		})

		testutil.Then(t, "resolving it admits the next case", func(t *testing.T) {
			rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/v1/cases/"+created.ID+"/resolve", nil))
			require.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, "resolved", testutil.UnmarshalResponse[CaseResponse](t, rr).State)

			next := create(t, r, map[string]string{"customer_id": customerID, "customer_kind": "account"})
			assert.NotEqual(t, created.ID, next.ID)
		})

		testutil.Then(t, "a closed case cannot be cancelled", func(t *testing.T) {
			rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/v1/cases/"+created.ID+"/cancel", nil))
			body := testutil.AssertError(t, rr, http.StatusConflict, "conflict")
			assert.Equal(t, "case is not active", body.ErrorDescription)
		})
	})
}

func TestCreateRejectsUnusableCustomer(t *testing.T) {
	r := newRouter(t)
	tests := []struct {
		name        string
		body        map[string]string
		description string
	}{
		{"missing", map[string]string{"customer_kind": "account"}, admission.MessageCustomerMissing},
		{"malformed id", map[string]string{"customer_id": "A1", "customer_kind": "account"}, admission.MessageCustomerMalformed},
		{"wrong kind", map[string]string{"customer_id": customerID, "customer_kind": "incident"}, admission.MessageCustomerMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/v1/cases", tt.body))
			body := testutil.AssertError(t, rr, http.StatusBadRequest, "validation_error")
			assert.Equal(t, tt.description, body.ErrorDescription)
		})
	}

	t.Run("unknown fields are rejected", func(t *testing.T) {
		rr := testutil.DoRequest(r, testutil.NewRawRequest(http.MethodPost, "/v1/cases", `{"customer":"x"}`))
		testutil.AssertError(t, rr, http.StatusBadRequest, "bad_request")
	})
}

func TestCaseIDIsValidated(t *testing.T) {
	r := newRouter(t)

	rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodGet, "/v1/cases/not-a-uuid", nil))
	testutil.AssertError(t, rr, http.StatusBadRequest, "bad_request")

	rr = testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodGet, "/v1/cases/3f1e6a52-0c0b-4d47-9a53-8f7d0b0c1d2e", nil))
	testutil.AssertError(t, rr, http.StatusNotFound, "not_found")
}

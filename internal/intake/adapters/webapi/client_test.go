package webapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseintake/internal/intake/ports"
	"caseintake/pkg/domain"
)

func TestFetch(t *testing.T) {
	var gotPath, gotSelect, gotRawQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotSelect = r.URL.Query().Get("$select")
		gotRawQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"@odata.etag": "W/\"1\"",
			"_primarycontactid_value": "5b8a0e1c-8f2d-4e0a-9d1c-2f3b4a5c6d7e",
			"fullname": "Jane Doe",
			"emailaddress1": "e@x.com",
			"telephone1": null,
			"numberofemployees": 120
		}`))
	}))
	defer srv.Close()

	client, err := New(srv.URL+"/api/data/v9.2/", "secret")
	require.NoError(t, err)

	t.Run("organization projected to its linked person", func(t *testing.T) {
		rec, err := client.Fetch(context.Background(), domain.KindOrganization, "{A1}", "primarycontactid")
		require.NoError(t, err)

		assert.Equal(t, "/api/data/v9.2/accounts(A1)", gotPath)
		assert.Equal(t, "_primarycontactid_value", gotSelect)
		assert.Equal(t, "Bearer secret", gotAuth)
		assert.Equal(t, domain.RecordID("A1"), rec.ID)
		assert.Equal(t, "5b8a0e1c-8f2d-4e0a-9d1c-2f3b4a5c6d7e", rec.Get("primarycontactid"))
	})

	t.Run("person fields, nulls read as absent", func(t *testing.T) {
		rec, err := client.Fetch(context.Background(), domain.KindPerson, "P1",
			"fullname", "emailaddress1", "telephone1", "numberofemployees")
		require.NoError(t, err)

		assert.Equal(t, "/api/data/v9.2/contacts(P1)", gotPath)
		assert.Equal(t, "fullname,emailaddress1,telephone1,numberofemployees", gotSelect)
		assert.Equal(t, "$select=fullname,emailaddress1,telephone1,numberofemployees", gotRawQuery)
		assert.Equal(t, "Jane Doe", rec.Get("fullname"))
		assert.Equal(t, "e@x.com", rec.Get("emailaddress1"))
		_, present := rec.Fields["telephone1"]
		assert.False(t, present)
		assert.Equal(t, "120", rec.Get("numberofemployees"))
	})
}

func TestFetchErrorCategories(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   ports.FetchCategory
	}{
		{"not found", http.StatusNotFound, ports.CategoryNotFound},
		{"unauthorized", http.StatusUnauthorized, ports.CategoryAccessDenied},
		{"forbidden", http.StatusForbidden, ports.CategoryAccessDenied},
		{"server error", http.StatusServiceUnavailable, ports.CategoryTransient},
		{"throttled", http.StatusTooManyRequests, ports.CategoryTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":{"message":"nope"}}`, tt.status)
			}))
			defer srv.Close()

			client, err := New(srv.URL, "")
			require.NoError(t, err)

			_, err = client.Fetch(context.Background(), domain.KindOrganization, "A1", "primarycontactid")
			require.Error(t, err)
			assert.Equal(t, tt.want, ports.CategoryOf(err))
		})
	}

	t.Run("transport failure is transient", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		url := srv.URL
		srv.Close()

		client, err := New(url, "")
		require.NoError(t, err)
		_, err = client.Fetch(context.Background(), domain.KindPerson, "P1", "fullname")
		assert.Equal(t, ports.CategoryTransient, ports.CategoryOf(err))
	})

	t.Run("malformed body is transient", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		}))
		defer srv.Close()

		client, err := New(srv.URL, "")
		require.NoError(t, err)
		_, err = client.Fetch(context.Background(), domain.KindPerson, "P1", "fullname")
		assert.Equal(t, ports.CategoryTransient, ports.CategoryOf(err))
	})

	t.Run("unknown kind and empty id are not found", func(t *testing.T) {
		client, err := New("http://records.invalid", "")
		require.NoError(t, err)

		_, err = client.Fetch(context.Background(), "systemuser", "U1")
		assert.Equal(t, ports.CategoryNotFound, ports.CategoryOf(err))
		_, err = client.Fetch(context.Background(), domain.KindPerson, "{}")
		assert.Equal(t, ports.CategoryNotFound, ports.CategoryOf(err))
	})
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New("  ", "token")
	assert.Error(t, err)
}

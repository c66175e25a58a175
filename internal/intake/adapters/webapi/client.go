// Package webapi reads records from an OData-style record service.
//
// A lookup is GET {base}/{entitySet}({id})?$select=a,b with a bearer token.
// Reference fields are selected and returned by the service as
// "_{field}_value" and are exposed to callers under the plain field name.
package webapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"caseintake/internal/intake/ports"
	"caseintake/pkg/domain"
)

const defaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response is kept for logging.
const maxErrorBody = 4 << 10

// Client implements ports.RecordService over HTTP.
type Client struct {
	baseURL    string
	token      string
	client     *http.Client
	logger     *slog.Logger
	entitySets map[domain.RecordKind]string
	lookups    map[string]bool
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.client = c
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLookupFields declares which fields are references.
func WithLookupFields(fields ...string) Option {
	return func(c *Client) {
		for _, f := range fields {
			c.lookups[f] = true
		}
	}
}

// WithEntitySet maps a record kind to its collection name.
func WithEntitySet(kind domain.RecordKind, set string) Option {
	return func(c *Client) {
		c.entitySets[kind] = set
	}
}

// New creates a client for the service rooted at baseURL.
func New(baseURL, token string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("record service base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse record service base URL: %w", err)
	}
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: defaultTimeout},
		logger:  slog.New(slog.DiscardHandler),
		entitySets: map[domain.RecordKind]string{
			domain.KindOrganization: "accounts",
			domain.KindPerson:       "contacts",
			domain.KindCase:         "incidents",
		},
		lookups: map[string]bool{"primarycontactid": true, "parentcustomerid": true},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Fetch returns the requested fields of one record. Failures are
// *ports.FetchError values.
func (c *Client) Fetch(ctx context.Context, kind domain.RecordKind, id domain.RecordID, fields ...string) (*ports.Record, error) {
	set, ok := c.entitySets[kind]
	if !ok {
		return nil, ports.NewFetchError(ports.CategoryNotFound, kind, id, fmt.Errorf("no entity set for kind %q", kind))
	}
	id = domain.NormalizeRecordID(id.String())
	if id.IsEmpty() {
		return nil, ports.NewFetchError(ports.CategoryNotFound, kind, id, errors.New("empty record id"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.recordURL(set, id, fields), nil)
	if err != nil {
		return nil, ports.NewFetchError(ports.CategoryTransient, kind, id, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("OData-MaxVersion", "4.0")
	req.Header.Set("OData-Version", "4.0")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, ports.NewFetchError(ports.CategoryTransient, kind, id, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.DebugContext(ctx, "record service returned error",
			"status", resp.StatusCode,
			"record_kind", kind,
			"record_id", id,
			"body", string(body),
		)
		return nil, ports.NewFetchError(categoryForStatus(resp.StatusCode), kind, id,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, ports.NewFetchError(ports.CategoryTransient, kind, id, fmt.Errorf("decode response: %w", err))
	}

	rec := &ports.Record{Kind: kind, ID: id, Fields: make(map[string]string, len(fields))}
	for _, f := range fields {
		if v, ok := c.value(payload, f); ok {
			rec.Fields[f] = v
		}
	}
	return rec, nil
}

func (c *Client) recordURL(set string, id domain.RecordID, fields []string) string {
	u := fmt.Sprintf("%s/%s(%s)", c.baseURL, set, url.PathEscape(id.String()))
	if len(fields) == 0 {
		return u
	}
	selected := make([]string, len(fields))
	for i, f := range fields {
		selected[i] = url.QueryEscape(c.wireName(f))
	}
	return u + "?$select=" + strings.Join(selected, ",")
}

func (c *Client) wireName(field string) string {
	if c.lookups[field] {
		return "_" + field + "_value"
	}
	return field
}

// value reads a field from the payload; null and absent fields are not ok.
func (c *Client) value(payload map[string]any, field string) (string, bool) {
	raw, ok := payload[c.wireName(field)]
	if !ok {
		raw, ok = payload[field]
	}
	if !ok || raw == nil {
		return "", false
	}
	switch v := raw.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}

func categoryForStatus(status int) ports.FetchCategory {
	switch {
	case status == http.StatusNotFound:
		return ports.CategoryNotFound
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return ports.CategoryAccessDenied
	default:
		return ports.CategoryTransient
	}
}

package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/timesheet-go/internal/pkg/metrics"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 500
	maxPages        = 100
	maxErrorBody    = 64 << 10
)

// Config describes how to reach the data platform's Web API.
type Config struct {
	// BaseURL is the versioned Web API root, e.g. https://org.crm.dynamics.com/api/data/v9.2
	BaseURL  string
	PageSize int
}

// Client is a thin OData client for the data platform. Authentication is the job of the
// *http.Client passed in, usually one built from an OAuth2 token source.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	pageSize   int
}

// NewClient creates a client rooted at cfg.BaseURL.
func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid CRM base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid CRM base url %q: scheme and host are required", cfg.BaseURL)
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		pageSize:   pageSize,
	}, nil
}

// APIError represents an error response from the data platform
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("crm API error [%d] %s: %s", e.StatusCode, e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the data platform.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsClientError reports whether the platform rejected the request itself (4xx other than 401/403/404/429).
func IsClientError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusTooManyRequests:
		return false
	}
	return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500
}

type page struct {
	Value    []json.RawMessage `json:"value"`
	NextLink string            `json:"@odata.nextLink"`
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// List reads every row of entitySet matching q, following @odata.nextLink until the last page.
func (c *Client) List(ctx context.Context, entitySet string, q *Query) ([]json.RawMessage, error) {
	next := c.entityURL(entitySet)
	if encoded := q.Encode(); encoded != "" {
		next += "?" + encoded
	}

	var rows []json.RawMessage
	for pages := 0; next != ""; pages++ {
		if pages >= maxPages {
			return nil, fmt.Errorf("crm list %s: more than %d pages", entitySet, maxPages)
		}

		var p page
		if _, err := c.do(ctx, entitySet, http.MethodGet, next, nil, &p); err != nil {
			return nil, err
		}
		rows = append(rows, p.Value...)
		next = p.NextLink
	}

	if rows == nil {
		rows = []json.RawMessage{}
	}
	return rows, nil
}

// Patch updates the columns in body on the row entitySet(id).
func (c *Client) Patch(ctx context.Context, entitySet, id string, body any) error {
	_, err := c.do(ctx, entitySet, http.MethodPatch, c.rowURL(entitySet, id), body, nil)
	return err
}

// Create inserts body into entitySet and returns the id of the new row.
func (c *Client) Create(ctx context.Context, entitySet string, body any) (string, error) {
	header, err := c.do(ctx, entitySet, http.MethodPost, c.entityURL(entitySet), body, nil)
	if err != nil {
		return "", err
	}

	id, ok := parseEntityID(header.Get("OData-EntityId"))
	if !ok {
		return "", fmt.Errorf("crm create %s: response has no OData-EntityId", entitySet)
	}
	return id, nil
}

func (c *Client) entityURL(entitySet string) string {
	return c.baseURL.String() + "/" + entitySet
}

func (c *Client) rowURL(entitySet, id string) string {
	return c.entityURL(entitySet) + "(" + url.PathEscape(id) + ")"
}

func (c *Client) do(ctx context.Context, entitySet, method, target string, body any, out any) (http.Header, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode crm request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build crm request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("OData-MaxVersion", "4.0")
	req.Header.Set("OData-Version", "4.0")
	req.Header.Set("x-ms-client-request-id", uuid.New().String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	if method == http.MethodGet {
		req.Header.Set("Prefer", "odata.maxpagesize="+strconv.Itoa(c.pageSize))
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordCRMRequest(entitySet, method, "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("crm %s %s: %w", method, entitySet, err)
	}
	defer resp.Body.Close()
	metrics.RecordCRMRequest(entitySet, method, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())

	if resp.StatusCode >= 300 {
		return nil, decodeAPIError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("failed to decode crm %s response: %w", entitySet, err)
		}
	}

	return resp.Header, nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return apiErr
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(raw))
	return apiErr
}

// parseEntityID extracts the key from ".../entityset(00000000-0000-0000-0000-000000000000)".
func parseEntityID(location string) (string, bool) {
	open := strings.LastIndex(location, "(")
	end := strings.LastIndex(location, ")")
	if open < 0 || end <= open+1 {
		return "", false
	}
	return location[open+1 : end], true
}

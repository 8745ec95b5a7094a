package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{BaseURL: server.URL + "/api/data/v9.2/", PageSize: 2}, server.Client())
	require.NoError(t, err)
	return client, server
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "not a url"}, nil)
	assert.Error(t, err)

	_, err = NewClient(Config{BaseURL: "/relative/only"}, nil)
	assert.Error(t, err)
}

func TestClient_List_FollowsNextLink(t *testing.T) {
	var server *httptest.Server
	calls := 0
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "odata.maxpagesize=2", r.Header.Get("Prefer"))
		assert.Equal(t, "4.0", r.Header.Get("OData-Version"))
		_, err := uuid.Parse(r.Header.Get("x-ms-client-request-id"))
		assert.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "" {
			assert.Equal(t, "/api/data/v9.2/cr_timekeepings", r.URL.Path)
			assert.Equal(t, "cr_date ge 2024-03-01", r.URL.Query().Get("$filter"))
			fmt.Fprintf(w, `{"value":[{"id":"a"},{"id":"b"}],"@odata.nextLink":"%s/api/data/v9.2/cr_timekeepings?page=2"}`, server.URL)
			return
		}
		fmt.Fprint(w, `{"value":[{"id":"c"}]}`)
	})

	rows, err := client.List(context.Background(), "cr_timekeepings", NewQuery().Filter("cr_date ge 2024-03-01"))

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, rows, 3)

	var last struct{ ID string }
	require.NoError(t, json.Unmarshal(rows[2], &last))
	assert.Equal(t, "c", last.ID)
}

func TestClient_List_EmptyResult(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value":[]}`)
	})

	rows, err := client.List(context.Background(), "cr_registrations", nil)

	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestClient_List_APIError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":"0x80060888","message":"Could not find a property named 'cr_bogus'."}}`)
	})

	_, err := client.List(context.Background(), "cr_timekeepings", NewQuery().Select("cr_bogus"))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "0x80060888", apiErr.Code)
	assert.Contains(t, apiErr.Message, "cr_bogus")
	assert.True(t, IsClientError(err))
	assert.False(t, IsNotFound(err))
}

func TestClient_List_PlainTextError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream proxy failure")
	})

	_, err := client.List(context.Background(), "cr_timekeepings", nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream proxy failure", apiErr.Message)
	assert.False(t, IsClientError(err))
}

func TestClient_Patch(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/data/v9.2/cr_timekeepings(row-1)", r.URL.Path)
		assert.Contains(t, r.Header.Get("Content-Type"), "application/json")

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"cr_checkout":"17:00"}`, string(body))
		w.WriteHeader(http.StatusNoContent)
	})

	err := client.Patch(context.Background(), "cr_timekeepings", "row-1", map[string]any{"cr_checkout": "17:00"})

	assert.NoError(t, err)
}

func TestClient_Patch_NotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"code":"0x80040217","message":"cr_timekeeping With Id = row-1 Does Not Exist"}}`)
	})

	err := client.Patch(context.Background(), "cr_timekeepings", "row-1", map[string]any{"cr_note": "x"})

	assert.True(t, IsNotFound(err))
}

func TestClient_Create_ReturnsEntityID(t *testing.T) {
	id := "5f1e2d3c-0000-4000-8000-000000000001"
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("OData-EntityId", fmt.Sprintf("%s/api/data/v9.2/cr_registrations(%s)", "https://org.example", id))
		w.WriteHeader(http.StatusNoContent)
	})

	got, err := client.Create(context.Background(), "cr_registrations", map[string]any{"cr_reason": "trip"})

	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestClient_Create_MissingEntityID(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	_, err := client.Create(context.Background(), "cr_registrations", map[string]any{})

	assert.Error(t, err)
}

package executors

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreibyf/aishacrm-engine/pkg/schema"
)

func httpNode(cfg map[string]any) *schema.Node {
	return &schema.Node{ID: "http", Type: schema.NodeHTTPRequest, Config: cfg}
}

func TestHTTPRequest_PostJSONBody(t *testing.T) {
	var gotMethod, gotContentType string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	e := NewHTTPRequestExecutor(HTTPConfig{}, NewMapper())
	rc := testContext(map[string]any{"email": "ada@example.com"})

	out, err := e.Execute(context.Background(), httpNode(map[string]any{
		"url":  srv.URL,
		"body": `{"email": "{{email}}"}`,
	}), rc)
	require.NoError(t, err)

	// POST is the default method.
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "ada@example.com", gotBody["email"])
	assert.Equal(t, 200, out["status_code"])

	body, ok := out["body"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, body["ok"])

	// Response lands in the context for downstream nodes.
	status, _ := rc.Get(schema.VarLastResponseStatus)
	assert.Equal(t, 200, status)
}

func TestHTTPRequest_BodyMappings(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	e := NewHTTPRequestExecutor(HTTPConfig{}, NewMapper())
	rc := testContext(map[string]any{"email": "ada@example.com"})

	_, err := e.Execute(context.Background(), httpNode(map[string]any{
		"url": srv.URL,
		"body_mappings": mappingList(
			[2]string{"to", "{{email}}"},
			[2]string{"channel", "crm"},
		),
	}), rc)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", gotBody["to"])
	assert.Equal(t, "crm", gotBody["channel"])
}

func TestHTTPRequest_TemplatedHeaders(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	e := NewHTTPRequestExecutor(HTTPConfig{}, NewMapper())
	rc := testContext(map[string]any{"token": "secret-token"})

	_, err := e.Execute(context.Background(), httpNode(map[string]any{
		"url":     srv.URL,
		"method":  "GET",
		"headers": map[string]any{"Authorization": "Bearer {{token}}"},
	}), rc)
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-token", gotAuth)
}

func TestHTTPRequest_ErrorStatusRecordsOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"upstream down"}`))
	}))
	defer srv.Close()

	e := NewHTTPRequestExecutor(HTTPConfig{}, NewMapper())
	rc := testContext(nil)

	out, err := e.Execute(context.Background(), httpNode(map[string]any{"url": srv.URL}), rc)
	require.Error(t, err)

	// The response is still recorded alongside the node error.
	require.NotNil(t, out)
	assert.Equal(t, http.StatusBadGateway, out["status_code"])
	body, ok := out["body"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "upstream down", body["error"])
}

func TestHTTPRequest_MissingURL(t *testing.T) {
	e := NewHTTPRequestExecutor(HTTPConfig{}, NewMapper())

	_, err := e.Execute(context.Background(), httpNode(map[string]any{}), testContext(nil))
	require.Error(t, err)

	var engErr *schema.EngineError
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, schema.ErrCodeValidation, engErr.Code)
}

func TestHTTPRequest_InvalidScheme(t *testing.T) {
	e := NewHTTPRequestExecutor(HTTPConfig{}, NewMapper())

	_, err := e.Execute(context.Background(), httpNode(map[string]any{"url": "ftp://example.com"}), testContext(nil))
	require.Error(t, err)
}

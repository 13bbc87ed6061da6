package executors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andreibyf/aishacrm-engine/pkg/schema"
)

// HTTPConfig bounds the outbound call surface of the http_request executor.
type HTTPConfig struct {
	MaxResponseBody int64
	Timeout         time.Duration
}

const (
	defaultMaxResponseBody = 10 * 1024 * 1024 // 10MB
	defaultHTTPTimeout     = 30 * time.Second
)

// HTTPRequestExecutor performs an outbound HTTP call configured by the node:
// templated method, url, headers and body. A response status >= 400 is a
// node-level error, but the response is still recorded in the output and in
// the context variables.
type HTTPRequestExecutor struct {
	config HTTPConfig
	mapper *Mapper
	client *http.Client
}

// NewHTTPRequestExecutor creates the http_request executor.
func NewHTTPRequestExecutor(cfg HTTPConfig, mapper *Mapper) *HTTPRequestExecutor {
	if cfg.MaxResponseBody <= 0 {
		cfg.MaxResponseBody = defaultMaxResponseBody
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	return &HTTPRequestExecutor{
		config: cfg,
		mapper: mapper,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (e *HTTPRequestExecutor) Type() schema.NodeType { return schema.NodeHTTPRequest }

func (e *HTTPRequestExecutor) Execute(ctx context.Context, node *schema.Node, rc *RunContext) (map[string]any, error) {
	cfg := node.Config
	if cfg == nil {
		cfg = map[string]any{}
	}

	method := strings.ToUpper(stringParam(cfg, "method", "POST"))

	rawURL, _ := rc.Resolve(stringParam(cfg, "url", "")).(string)
	if rawURL == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "http_request: missing required config 'url'")
	}
	u, err := url.ParseRequestURI(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "http_request: invalid url %q", rawURL)
	}

	bodyReader, contentType, err := e.buildBody(ctx, cfg, rc)
	if err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, rawURL, bodyReader)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeExecution, "http_request: failed to create request").WithCause(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	applyHeaders(req, cfg, rc)

	start := time.Now()
	resp, err := e.client.Do(req)
	durationMs := time.Since(start).Milliseconds()
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeExecution, "http_request: request failed: %v", err).WithCause(err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, e.config.MaxResponseBody))
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeExecution, "http_request: failed to read response body").WithCause(err)
	}

	respContentType := resp.Header.Get("Content-Type")
	var parsedBody any
	if len(bodyBytes) == 0 {
		parsedBody = nil
	} else if strings.Contains(respContentType, "application/json") {
		var jsonBody any
		if err := json.Unmarshal(bodyBytes, &jsonBody); err == nil {
			parsedBody = jsonBody
		} else {
			parsedBody = string(bodyBytes)
		}
	} else {
		parsedBody = string(bodyBytes)
	}

	respHeaders := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		respHeaders[k] = resp.Header.Get(k)
	}

	output := map[string]any{
		"status_code":  resp.StatusCode,
		"status":       resp.Status,
		"headers":      respHeaders,
		"body":         parsedBody,
		"content_type": respContentType,
		"duration_ms":  durationMs,
	}

	rc.SetLastResponse(parsedBody, resp.StatusCode)

	if resp.StatusCode >= 400 {
		return output, schema.NewErrorf(schema.ErrCodeNodeFailed,
			"http_request: server returned %d", resp.StatusCode)
	}
	return output, nil
}

// buildBody assembles the request body from either a raw templated string
// (parsed opportunistically as JSON) or a field_mappings object.
func (e *HTTPRequestExecutor) buildBody(ctx context.Context, cfg map[string]any, rc *RunContext) (io.Reader, string, error) {
	if mappingsRaw, ok := cfg["body_mappings"]; ok {
		fields, err := e.mapper.ResolveMappings(ctx, parseMappings(mappingsRaw), rc)
		if err != nil {
			return nil, "", err
		}
		b, err := json.Marshal(fields)
		if err != nil {
			return nil, "", schema.NewErrorf(schema.ErrCodeExecution, "http_request: failed to marshal body").WithCause(err)
		}
		return strings.NewReader(string(b)), "application/json", nil
	}

	rawBody, ok := cfg["body"]
	if !ok || rawBody == nil {
		return nil, "", nil
	}

	switch body := rc.Resolve(rawBody).(type) {
	case string:
		if body == "" {
			return nil, "", nil
		}
		// Opportunistic JSON detection: if the resolved string parses,
		// send it as JSON verbatim.
		var probe any
		if json.Unmarshal([]byte(body), &probe) == nil {
			return strings.NewReader(body), "application/json", nil
		}
		return strings.NewReader(body), "text/plain", nil
	default:
		b, err := json.Marshal(body)
		if err != nil {
			return nil, "", schema.NewErrorf(schema.ErrCodeExecution, "http_request: failed to marshal body").WithCause(err)
		}
		return strings.NewReader(string(b)), "application/json", nil
	}
}

func applyHeaders(req *http.Request, cfg map[string]any, rc *RunContext) {
	hdrs, ok := cfg["headers"]
	if !ok {
		return
	}
	switch h := hdrs.(type) {
	case map[string]any:
		for k, v := range h {
			req.Header.Set(k, fmt.Sprintf("%v", rc.Resolve(v)))
		}
	case []any:
		// key/value pair list form.
		for _, item := range h {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			key := stringParam(m, "key", "")
			if key == "" {
				continue
			}
			req.Header.Set(key, fmt.Sprintf("%v", rc.Resolve(m["value"])))
		}
	}
}

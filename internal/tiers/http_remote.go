package tiers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"finitefield.org/delivery-admin/internal/platform/observability"
)

// HTTPClient matches the subset of http.Client used by the HTTP remotes.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// envelope is the response shape shared by every tier endpoint.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

type rulesPayload struct {
	Rules []Range `json:"rules"`
}

type statusPayload struct {
	Status bool `json:"status"`
}

// rangeReply is a mutation reply. Backends may omit any field, including
// the whole data object.
type rangeReply struct {
	ID      string   `json:"id"`
	Label   *string  `json:"label"`
	Min     *float64 `json:"min"`
	Max     *float64 `json:"max"`
	Formula *Formula `json:"formula"`
	Active  *bool    `json:"active"`
}

// merge overlays the fields present in the reply onto fallback.
func (r rangeReply) merge(fallback Range) Range {
	if id := strings.TrimSpace(r.ID); id != "" {
		fallback.ID = id
	}
	if r.Label != nil {
		fallback.Label = *r.Label
	}
	if r.Min != nil {
		fallback.Min = *r.Min
		fallback.Max = cloneBound(r.Max)
	}
	if r.Formula != nil {
		fallback.Formula = *r.Formula
	}
	if r.Active != nil {
		fallback.Active = *r.Active
	}
	return fallback
}

// HTTPRemote talks to a backend exposing one REST resource per range:
//
//	GET    /{category}
//	POST   /{category}
//	PUT    /{category}/{id}
//	DELETE /{category}/{id}
//	PATCH  /{category}/{id}/status
type HTTPRemote struct {
	base   *url.URL
	client HTTPClient
}

// NewHTTPRemote constructs a row-shaped remote rooted at baseURL.
func NewHTTPRemote(baseURL string, client HTTPClient) (*HTTPRemote, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPRemote{base: base, client: client}, nil
}

// List fetches every range of the category.
func (h *HTTPRemote) List(ctx context.Context, token string, category Category) ([]Range, error) {
	var payload rulesPayload
	if err := h.roundTrip(ctx, "list", http.MethodGet, categoryPath(category), nil, token, &payload); err != nil {
		return nil, err
	}
	return payload.Rules, nil
}

// Create posts the draft and returns the created range.
func (h *HTTPRemote) Create(ctx context.Context, token string, category Category, draft Draft) (Range, error) {
	var reply rangeReply
	if err := h.roundTrip(ctx, "create", http.MethodPost, categoryPath(category), draft, token, &reply); err != nil {
		return Range{}, err
	}
	if strings.TrimSpace(reply.ID) == "" {
		return Range{}, &RemoteError{Op: "create", Err: errors.New("response is missing the range id")}
	}
	return reply.merge(draft.Apply(Range{Active: true})), nil
}

// Update replaces the editable fields of one range. The active flag is not
// part of the request; it is only reported when the backend echoes it.
func (h *HTTPRemote) Update(ctx context.Context, token string, category Category, id string, draft Draft) (Range, error) {
	var reply rangeReply
	if err := h.roundTrip(ctx, "update", http.MethodPut, rangePath(category, id), draft, token, &reply); err != nil {
		return Range{}, err
	}
	return reply.merge(draft.Apply(Range{ID: id})), nil
}

// Delete removes one range.
func (h *HTTPRemote) Delete(ctx context.Context, token string, category Category, id string) error {
	return h.roundTrip(ctx, "delete", http.MethodDelete, rangePath(category, id), nil, token, nil)
}

// SetActive patches the status of one range.
func (h *HTTPRemote) SetActive(ctx context.Context, token string, category Category, id string, active bool) (Range, error) {
	var reply rangeReply
	endpoint := rangePath(category, id) + "/status"
	if err := h.roundTrip(ctx, "set_active", http.MethodPatch, endpoint, statusPayload{Status: active}, token, &reply); err != nil {
		return Range{}, err
	}
	return reply.merge(Range{ID: id, Active: active}), nil
}

func (h *HTTPRemote) roundTrip(ctx context.Context, op, method, endpoint string, body any, token string, out any) error {
	return doEnvelope(ctx, h.client, h.base, op, method, endpoint, body, token, out)
}

func parseBaseURL(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("tiers: base URL is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("tiers: parse base URL: %w", err)
	}
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}
	return parsed, nil
}

func categoryPath(category Category) string {
	return string(category)
}

func rangePath(category Category, id string) string {
	return path.Join(categoryPath(category), strings.TrimSpace(id))
}

// doEnvelope sends one JSON request and decodes the {success, data, message}
// envelope into out. Every failure is returned as *RemoteError.
func doEnvelope(ctx context.Context, client HTTPClient, base *url.URL, op, method, endpoint string, body any, token string, out any) error {
	req, err := newJSONRequest(ctx, base, method, endpoint, body, token)
	if err != nil {
		return &RemoteError{Op: op, Err: err}
	}
	resp, err := client.Do(req)
	if err != nil {
		return &RemoteError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &RemoteError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		remote := &RemoteError{Op: op, Status: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
		if decodeErr == nil {
			remote.Message = strings.TrimSpace(env.Message)
		}
		return remote
	}
	if len(bytes.TrimSpace(raw)) == 0 && out == nil {
		return nil
	}
	if decodeErr != nil {
		return &RemoteError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode envelope: %w", decodeErr)}
	}
	if !env.Success {
		return &RemoteError{
			Op:      op,
			Status:  resp.StatusCode,
			Message: strings.TrimSpace(env.Message),
			Err:     errors.New("request rejected"),
		}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &RemoteError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode data: %w", err)}
	}
	return nil
}

func newJSONRequest(ctx context.Context, base *url.URL, method, endpoint string, payload any, token string) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(payload); err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		body = &buf
	}
	target := base.ResolveReference(&url.URL{Path: strings.TrimPrefix(endpoint, "/")})
	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	observability.InjectTraceHeaders(ctx, req)
	return req, nil
}

package tiers

import (
	"context"
	"net/http"
	"net/url"
)

// HTTPDocumentRemote talks to a backend that stores each category as one
// settings document: GET /{category} returns {rules: [...]} and every
// mutation PUTs the full array back. Identifiers are generated client side.
type HTTPDocumentRemote struct {
	base   *url.URL
	client HTTPClient
	newID  IDGenerator
}

// DocumentOption customises an HTTPDocumentRemote.
type DocumentOption func(*HTTPDocumentRemote)

// WithIDGenerator overrides identifier generation for new ranges.
func WithIDGenerator(gen IDGenerator) DocumentOption {
	return func(d *HTTPDocumentRemote) {
		if gen != nil {
			d.newID = gen
		}
	}
}

// NewHTTPDocumentRemote constructs a document-shaped remote rooted at baseURL.
func NewHTTPDocumentRemote(baseURL string, client HTTPClient, opts ...DocumentOption) (*HTTPDocumentRemote, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = http.DefaultClient
	}
	d := &HTTPDocumentRemote{base: base, client: client, newID: NewULID}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d, nil
}

// List fetches the document's rule array.
func (d *HTTPDocumentRemote) List(ctx context.Context, token string, category Category) ([]Range, error) {
	return d.fetch(ctx, "list", token, category)
}

// Create appends a new active range to the document.
func (d *HTTPDocumentRemote) Create(ctx context.Context, token string, category Category, draft Draft) (Range, error) {
	return d.edit(ctx, "create", token, category, documentCreate(d.newID(), draft))
}

// Update rewrites one entry of the document.
func (d *HTTPDocumentRemote) Update(ctx context.Context, token string, category Category, id string, draft Draft) (Range, error) {
	return d.edit(ctx, "update", token, category, documentUpdate(id, draft))
}

// Delete drops one entry from the document.
func (d *HTTPDocumentRemote) Delete(ctx context.Context, token string, category Category, id string) error {
	_, err := d.edit(ctx, "delete", token, category, documentDelete(id))
	return err
}

// SetActive flips one entry's status in the document.
func (d *HTTPDocumentRemote) SetActive(ctx context.Context, token string, category Category, id string, active bool) (Range, error) {
	return d.edit(ctx, "set_active", token, category, documentSetActive(id, active))
}

// edit reads the current document, applies fn and writes the whole array
// back. Concurrent editors follow last-write-wins.
func (d *HTTPDocumentRemote) edit(ctx context.Context, op, token string, category Category, fn documentEdit) (Range, error) {
	rules, err := d.fetch(ctx, op, token, category)
	if err != nil {
		return Range{}, err
	}
	next, changed, err := fn(rules)
	if err != nil {
		return Range{}, err
	}

	var saved rulesPayload
	err = doEnvelope(ctx, d.client, d.base, op, http.MethodPut, categoryPath(category), rulesPayload{Rules: next}, token, &saved)
	if err != nil {
		return Range{}, err
	}
	for _, r := range saved.Rules {
		if r.ID == changed.ID {
			return r, nil
		}
	}
	return changed, nil
}

func (d *HTTPDocumentRemote) fetch(ctx context.Context, op, token string, category Category) ([]Range, error) {
	var payload rulesPayload
	if err := doEnvelope(ctx, d.client, d.base, op, http.MethodGet, categoryPath(category), nil, token, &payload); err != nil {
		return nil, err
	}
	return payload.Rules, nil
}

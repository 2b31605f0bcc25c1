package tiers

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	pfirestore "finitefield.org/delivery-admin/internal/platform/firestore"
)

// FirestoreRemote stores each category as one document holding the full rule
// array. Mutations run inside a transaction so concurrent admins cannot lose
// each other's writes.
type FirestoreRemote struct {
	provider   *pfirestore.Provider
	collection string
	newID      IDGenerator
	now        func() time.Time
}

type tierDocument struct {
	Rules     []Range   `firestore:"rules"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// FirestoreOption customises a FirestoreRemote.
type FirestoreOption func(*FirestoreRemote)

// WithFirestoreIDGenerator overrides identifier generation for new ranges.
func WithFirestoreIDGenerator(gen IDGenerator) FirestoreOption {
	return func(f *FirestoreRemote) {
		if gen != nil {
			f.newID = gen
		}
	}
}

// WithFirestoreClock overrides the timestamp written on every save.
func WithFirestoreClock(now func() time.Time) FirestoreOption {
	return func(f *FirestoreRemote) {
		if now != nil {
			f.now = now
		}
	}
}

// NewFirestoreRemote constructs a remote storing documents under collection.
func NewFirestoreRemote(provider *pfirestore.Provider, collection string, opts ...FirestoreOption) (*FirestoreRemote, error) {
	if provider == nil {
		return nil, errors.New("tiers: firestore provider is required")
	}
	collection = strings.TrimSpace(collection)
	if collection == "" {
		return nil, errors.New("tiers: firestore collection is required")
	}
	f := &FirestoreRemote{
		provider:   provider,
		collection: collection,
		newID:      NewULID,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// List reads the category document. A missing document is an empty category.
func (f *FirestoreRemote) List(ctx context.Context, _ string, category Category) ([]Range, error) {
	client, err := f.provider.Client(ctx)
	if err != nil {
		return nil, &RemoteError{Op: "list", Err: err}
	}
	snap, err := client.Collection(f.collection).Doc(string(category)).Get(ctx)
	rules, err := decodeTierDocument(snap, err)
	if err != nil {
		return nil, f.remoteError("list", err)
	}
	return rules, nil
}

// Create appends a new active range.
func (f *FirestoreRemote) Create(ctx context.Context, _ string, category Category, draft Draft) (Range, error) {
	return f.edit(ctx, "create", category, documentCreate(f.newID(), draft))
}

// Update rewrites one range.
func (f *FirestoreRemote) Update(ctx context.Context, _ string, category Category, id string, draft Draft) (Range, error) {
	return f.edit(ctx, "update", category, documentUpdate(id, draft))
}

// Delete removes one range.
func (f *FirestoreRemote) Delete(ctx context.Context, _ string, category Category, id string) error {
	_, err := f.edit(ctx, "delete", category, documentDelete(id))
	return err
}

// SetActive flips the active flag of one range.
func (f *FirestoreRemote) SetActive(ctx context.Context, _ string, category Category, id string, active bool) (Range, error) {
	return f.edit(ctx, "set_active", category, documentSetActive(id, active))
}

func (f *FirestoreRemote) edit(ctx context.Context, op string, category Category, fn documentEdit) (Range, error) {
	client, err := f.provider.Client(ctx)
	if err != nil {
		return Range{}, &RemoteError{Op: op, Err: err}
	}
	ref := client.Collection(f.collection).Doc(string(category))

	var changed Range
	err = f.provider.EditDocument(ctx, ref, func(snap *firestore.DocumentSnapshot) (any, error) {
		rules, err := decodeTierDocument(snap, nil)
		if err != nil {
			return nil, err
		}
		next, result, err := fn(rules)
		if err != nil {
			return nil, err
		}
		changed = result
		return tierDocument{Rules: next, UpdatedAt: f.now().UTC()}, nil
	})
	if err != nil {
		return Range{}, f.remoteError(op, err)
	}
	return changed, nil
}

func decodeTierDocument(snap *firestore.DocumentSnapshot, err error) ([]Range, error) {
	if err != nil {
		if pfirestore.KindOf(pfirestore.WrapError("get", err)) == pfirestore.KindNotFound {
			return []Range{}, nil
		}
		return nil, err
	}
	if snap == nil || !snap.Exists() {
		return []Range{}, nil
	}
	var doc tierDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, err
	}
	if doc.Rules == nil {
		return []Range{}, nil
	}
	return doc.Rules, nil
}

func (f *FirestoreRemote) remoteError(op string, err error) error {
	if errors.Is(err, ErrRangeNotFound) {
		return ErrRangeNotFound
	}
	wrapped := pfirestore.WrapError(op, err)
	if pfirestore.KindOf(wrapped) == pfirestore.KindConflict {
		return &RemoteError{Op: op, Message: "他の管理者が同時に更新しました。再読み込みしてから再試行してください。", Err: wrapped}
	}
	return &RemoteError{Op: op, Err: wrapped}
}

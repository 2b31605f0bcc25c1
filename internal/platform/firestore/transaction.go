package firestore

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
)

const maxEditAttempts = 3

// EditFunc receives the current document, nil when it does not exist yet,
// and returns the data to store in its place. It may run more than once when
// Firestore retries a contended transaction.
type EditFunc func(snap *firestore.DocumentSnapshot) (any, error)

// EditDocument reads ref and writes back what edit returns, atomically.
func (p *Provider) EditDocument(ctx context.Context, ref *firestore.DocumentRef, edit EditFunc) error {
	if ref == nil || edit == nil {
		return errors.New("firestore: document and edit function are required")
	}
	client, err := p.Client(ctx)
	if err != nil {
		return err
	}

	err = client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if KindOf(WrapError("get", err)) != KindNotFound {
				return err
			}
			snap = nil
		}
		data, err := edit(snap)
		if err != nil {
			return err
		}
		return tx.Set(ref, data)
	}, firestore.MaxAttempts(maxEditAttempts))
	return WrapError("edit "+ref.ID, err)
}

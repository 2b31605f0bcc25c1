package tiers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRemote stores one row per range in the delivery_tiers table.
type PostgresRemote struct {
	pool  *pgxpool.Pool
	newID IDGenerator
}

// NewPostgresRemote constructs a row-shaped remote backed by pool.
func NewPostgresRemote(pool *pgxpool.Pool, gen IDGenerator) (*PostgresRemote, error) {
	if pool == nil {
		return nil, errors.New("tiers: postgres pool is required")
	}
	if gen == nil {
		gen = NewULID
	}
	return &PostgresRemote{pool: pool, newID: gen}, nil
}

const tierColumns = `id, label, min_value, max_value, base, per_unit, active`

func (p *PostgresRemote) List(ctx context.Context, _ string, category Category) ([]Range, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+tierColumns+`
		FROM delivery_tiers
		WHERE category = $1
		ORDER BY min_value ASC, created_at ASC
	`, string(category))
	if err != nil {
		return nil, pgRemoteError("list", err)
	}
	defer rows.Close()

	out := []Range{}
	for rows.Next() {
		r, err := scanTier(rows)
		if err != nil {
			return nil, pgRemoteError("list", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, pgRemoteError("list", err)
	}
	return out, nil
}

func (p *PostgresRemote) Create(ctx context.Context, _ string, category Category, draft Draft) (Range, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO delivery_tiers (id, category, label, min_value, max_value, base, per_unit, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		RETURNING `+tierColumns,
		p.newID(), string(category), draft.Label, draft.Min, draft.Max, draft.Formula.Base, draft.Formula.PerUnit,
	)
	created, err := scanTier(row)
	if err != nil {
		return Range{}, pgRemoteError("create", err)
	}
	return created, nil
}

func (p *PostgresRemote) Update(ctx context.Context, _ string, category Category, id string, draft Draft) (Range, error) {
	row := p.pool.QueryRow(ctx, `
		UPDATE delivery_tiers
		SET label = $3, min_value = $4, max_value = $5, base = $6, per_unit = $7, updated_at = NOW()
		WHERE category = $1 AND id = $2
		RETURNING `+tierColumns,
		string(category), id, draft.Label, draft.Min, draft.Max, draft.Formula.Base, draft.Formula.PerUnit,
	)
	updated, err := scanTier(row)
	if err != nil {
		return Range{}, pgRemoteError("update", err)
	}
	return updated, nil
}

func (p *PostgresRemote) Delete(ctx context.Context, _ string, category Category, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM delivery_tiers WHERE category = $1 AND id = $2`, string(category), id)
	if err != nil {
		return pgRemoteError("delete", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRangeNotFound
	}
	return nil
}

func (p *PostgresRemote) SetActive(ctx context.Context, _ string, category Category, id string, active bool) (Range, error) {
	row := p.pool.QueryRow(ctx, `
		UPDATE delivery_tiers
		SET active = $3, updated_at = NOW()
		WHERE category = $1 AND id = $2
		RETURNING `+tierColumns,
		string(category), id, active,
	)
	updated, err := scanTier(row)
	if err != nil {
		return Range{}, pgRemoteError("set_active", err)
	}
	return updated, nil
}

func scanTier(row pgx.Row) (Range, error) {
	var r Range
	if err := row.Scan(&r.ID, &r.Label, &r.Min, &r.Max, &r.Formula.Base, &r.Formula.PerUnit, &r.Active); err != nil {
		return Range{}, err
	}
	return r, nil
}

func pgRemoteError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrRangeNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &RemoteError{Op: op, Err: fmt.Errorf("%s (%s)", pgErr.Message, pgErr.Code)}
	}
	return &RemoteError{Op: op, Err: err}
}

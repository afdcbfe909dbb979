package property

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("property: not found")

// Repository handles property data access.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ResolveOrCreate returns the property registered for the landlord at the
// given address, creating it on first report. The unique constraint on
// (landlord_id, address) makes concurrent first reports converge on one row.
func (r *Repository) ResolveOrCreate(ctx context.Context, landlordID, address string) (Record, error) {
	address = strings.TrimSpace(address)
	if landlordID == "" || address == "" {
		return Record{}, fmt.Errorf("property: landlord id and address required")
	}

	const upsertSQL = `
        INSERT INTO properties (landlord_id, address)
        VALUES ($1, $2)
        ON CONFLICT (landlord_id, address) DO UPDATE SET address = EXCLUDED.address
        RETURNING id, landlord_id, address, created_at
    `

	var rec Record
	err := r.pool.QueryRow(ctx, upsertSQL, landlordID, address).
		Scan(&rec.ID, &rec.LandlordID, &rec.Address, &rec.CreatedAt)
	if err != nil {
		return Record{}, fmt.Errorf("property: resolve or create: %w", err)
	}
	return rec, nil
}

// GetByID returns the property for the given identifier.
func (r *Repository) GetByID(ctx context.Context, id string) (Record, error) {
	const selectSQL = `SELECT id, landlord_id, address, created_at FROM properties WHERE id = $1`

	var rec Record
	err := r.pool.QueryRow(ctx, selectSQL, id).
		Scan(&rec.ID, &rec.LandlordID, &rec.Address, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("property: get: %w", err)
	}
	return rec, nil
}

// ListForLandlord returns the landlord's registered properties.
func (r *Repository) ListForLandlord(ctx context.Context, landlordID string) ([]Record, error) {
	const listSQL = `
        SELECT id, landlord_id, address, created_at
        FROM properties
        WHERE landlord_id = $1
        ORDER BY created_at DESC
    `

	rows, err := r.pool.Query(ctx, listSQL, landlordID)
	if err != nil {
		return nil, fmt.Errorf("property: list: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0, 8)
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.LandlordID, &rec.Address, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("property: scan: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("property: iterate: %w", err)
	}
	return out, nil
}

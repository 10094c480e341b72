package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/venue-checkin/internal/model"
)

// VenueRepo reads the venue catalogs used by the establishment resolver.
type VenueRepo struct {
	db *sql.DB
}

// NewVenueRepo returns a new VenueRepo bound to the given database.
func NewVenueRepo(db *sql.DB) *VenueRepo { return &VenueRepo{db: db} }

// ListCanonical returns every venue in the canonical catalog.
func (r *VenueRepo) ListCanonical(ctx context.Context) ([]model.Venue, error) {
	return r.list(ctx, `SELECT id, name FROM venues ORDER BY id`)
}

// ListSecondary returns the legacy catalog with each name mapped to the
// canonical venue id it stands for.  Callers must check
// Capabilities.HasSecondaryCatalog first.
func (r *VenueRepo) ListSecondary(ctx context.Context) ([]model.Venue, error) {
	return r.list(ctx, `SELECT venue_id, name FROM legacy_venues ORDER BY id`)
}

// GetByID returns a single venue or ErrNotFound.
func (r *VenueRepo) GetByID(ctx context.Context, id uint64) (*model.Venue, error) {
	var v model.Venue
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM venues WHERE id = ?`, id).Scan(&v.ID, &v.Name)
	if err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

func (r *VenueRepo) list(ctx context.Context, q string) ([]model.Venue, error) {
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	venues := make([]model.Venue, 0)
	for rows.Next() {
		var v model.Venue
		if err := rows.Scan(&v.ID, &v.Name); err != nil {
			return nil, err
		}
		venues = append(venues, v)
	}
	return venues, rows.Err()
}

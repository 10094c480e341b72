package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
)

// Capabilities records which optional columns and tables exist in the
// connected deployment.  Write paths consult it instead of trying a rich
// statement and retrying on failure.
type Capabilities struct {
	HasEntryClassification bool `json:"has_entry_classification"` // guests.entry_type, guests.entry_value
	HasCheckoutTimestamp   bool `json:"has_checkout_timestamp"`   // guests.checked_out, guests.checked_out_at
	HasOwnerCheckout       bool `json:"has_owner_checkout"`       // guest_lists.owner_checked_out(_at)
	HasSecondaryCatalog    bool `json:"has_secondary_catalog"`    // legacy_venues table
}

const capabilitiesKey = "capabilities"

// SchemaProbe probes optional schema once and caches the answer for ttl.
type SchemaProbe struct {
	db    *sql.DB
	cache *cache.Cache
}

// NewSchemaProbe returns a probe bound to db.  A non-positive ttl caches
// the result for the lifetime of the process.
func NewSchemaProbe(db *sql.DB, ttl time.Duration) *SchemaProbe {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	// cleanup interval 0: no janitor goroutine, expiry is checked on Get
	return &SchemaProbe{db: db, cache: cache.New(ttl, 0)}
}

// Capabilities returns the cached capabilities, probing the database on
// the first call or after expiry.  Probe failures other than "missing
// column/table" are returned and not cached.
func (p *SchemaProbe) Capabilities(ctx context.Context) (Capabilities, error) {
	if v, ok := p.cache.Get(capabilitiesKey); ok {
		return v.(Capabilities), nil
	}
	caps, err := p.probe(ctx)
	if err != nil {
		return Capabilities{}, err
	}
	p.cache.SetDefault(capabilitiesKey, caps)
	return caps, nil
}

// Invalidate forgets the cached result so the next call probes again.
func (p *SchemaProbe) Invalidate() { p.cache.Delete(capabilitiesKey) }

func (p *SchemaProbe) probe(ctx context.Context) (Capabilities, error) {
	var caps Capabilities
	checks := []struct {
		query string
		dst   *bool
	}{
		{`SELECT entry_type, entry_value FROM guests LIMIT 0`, &caps.HasEntryClassification},
		{`SELECT checked_out, checked_out_at FROM guests LIMIT 0`, &caps.HasCheckoutTimestamp},
		{`SELECT owner_checked_out, owner_checked_out_at FROM guest_lists LIMIT 0`, &caps.HasOwnerCheckout},
		{`SELECT id, name, venue_id FROM legacy_venues LIMIT 0`, &caps.HasSecondaryCatalog},
	}
	for _, c := range checks {
		ok, err := p.columnsExist(ctx, c.query)
		if err != nil {
			return Capabilities{}, fmt.Errorf("probe schema: %w", err)
		}
		*c.dst = ok
	}
	return caps, nil
}

func (p *SchemaProbe) columnsExist(ctx context.Context, query string) (bool, error) {
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		if IsMissingSchema(err) {
			return false, nil
		}
		return false, err
	}
	defer rows.Close()
	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		if IsMissingSchema(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/partystacker/internal/model"
)

// EventRepo manages persistence for events and their three tiers.  Tier
// rows live in event_tiers keyed by (event_id, tier); the sold column is
// only ever changed through IncrementSold/DecrementSold so that capacity
// bookkeeping stays atomic inside the database.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo constructs an EventRepo with the given DB handle.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

// DB exposes the underlying sql.DB so callers can run health checks.
func (r *EventRepo) DB() *sql.DB {
	return r.db
}

const selectEventsWithTiers = `SELECT e.id, e.title, e.description, e.location, e.date_ms, e.image_url, e.nft_image_url,
       e.organizer_address, e.organizer_name, e.metadata_uri, e.on_chain_id, e.status, e.created_at_ms,
       t.tier, t.price, t.available, t.sold
FROM events e
JOIN event_tiers t ON t.event_id = e.id`

// Create inserts the event row and its three tier rows in one transaction.
// Sold counters are written as given (normally zero).  A duplicate id
// yields ErrEventExists.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var metadata sql.NullString
	if e.MetadataURI != "" {
		metadata = sql.NullString{String: e.MetadataURI, Valid: true}
	}
	var onChain sql.NullInt64
	if e.OnChainID != nil {
		onChain = sql.NullInt64{Int64: int64(*e.OnChainID), Valid: true}
	}
	const q = `INSERT INTO events (id, title, description, location, date_ms, image_url, nft_image_url,
        organizer_address, organizer_name, metadata_uri, on_chain_id, status, created_at_ms)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, q,
		e.ID, e.Title, e.Description, e.Location, e.Date, e.ImageURL, e.NFTImageURL,
		e.OrganizerAddress, e.OrganizerName, metadata, onChain, string(e.Status), e.CreatedAt,
	); err != nil {
		if isDuplicateEntry(err) {
			return ErrEventExists
		}
		return err
	}

	query := `INSERT INTO event_tiers (event_id, tier, price, available, sold) VALUES `
	args := make([]interface{}, 0, 15)
	for i, name := range model.TierNames() {
		t, _ := e.Tiers.Get(name)
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?)"
		args = append(args, e.ID, string(name), t.Price, t.Available, t.Sold)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByID retrieves an event with its tiers.  It returns ErrEventNotFound
// if there is no matching row.
func (r *EventRepo) GetByID(ctx context.Context, id string) (*model.Event, error) {
	events, err := r.query(ctx, selectEventsWithTiers+` WHERE e.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, ErrEventNotFound
	}
	return &events[0], nil
}

// List returns all events, newest first.  When no events exist it returns
// an empty slice and nil error.
func (r *EventRepo) List(ctx context.Context) ([]model.Event, error) {
	return r.query(ctx, selectEventsWithTiers+` ORDER BY e.created_at_ms DESC, e.id`)
}

// ListByOrganizer returns the events created by the given organizer address,
// newest first.
func (r *EventRepo) ListByOrganizer(ctx context.Context, organizer string) ([]model.Event, error) {
	return r.query(ctx, selectEventsWithTiers+` WHERE e.organizer_address = ? ORDER BY e.created_at_ms DESC, e.id`, organizer)
}

// Update applies a partial patch to the event row and returns the updated
// event.  Tier counters cannot be patched.
func (r *EventRepo) Update(ctx context.Context, id string, p model.EventPatch) (*model.Event, error) {
	if p.Empty() {
		return nil, ErrNoChange
	}
	sets := make([]string, 0, 8)
	args := make([]interface{}, 0, 9)
	add := func(col string, v interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.Location != nil {
		add("location", *p.Location)
	}
	if p.Date != nil {
		add("date_ms", *p.Date)
	}
	if p.ImageURL != nil {
		add("image_url", *p.ImageURL)
	}
	if p.NFTImageURL != nil {
		add("nft_image_url", *p.NFTImageURL)
	}
	if p.MetadataURI != nil {
		add("metadata_uri", *p.MetadataURI)
	}
	if p.Status != nil {
		add("status", string(*p.Status))
	}
	args = append(args, id)
	q := `UPDATE events SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return nil, err
	}
	// MySQL reports zero affected rows when values are unchanged, so the
	// existence check is done by reading the row back.
	return r.GetByID(ctx, id)
}

// IncrementSold atomically adds one to the sold counter of a tier, bounded
// by its capacity, and returns the new counter.  The bound is enforced by
// the WHERE clause of a single UPDATE so concurrent callers across processes
// can never push sold past available.  It returns ErrSoldOut when the tier
// is full and ErrEventNotFound when the event or tier row is missing.
func (r *EventRepo) IncrementSold(ctx context.Context, eventID string, tier model.TierName) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE event_tiers SET sold = sold + 1 WHERE event_id = ? AND tier = ? AND sold < available`,
		eventID, string(tier))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	var sold int
	err = tx.QueryRowContext(ctx,
		`SELECT sold FROM event_tiers WHERE event_id = ? AND tier = ?`,
		eventID, string(tier)).Scan(&sold)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrEventNotFound
		}
		return 0, err
	}
	if n == 0 {
		return sold, ErrSoldOut
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return sold, nil
}

// DecrementSold releases one previously reserved unit.  It is used to
// compensate an IncrementSold whose ticket could not be written.  The
// counter never drops below zero.
func (r *EventRepo) DecrementSold(ctx context.Context, eventID string, tier model.TierName) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE event_tiers SET sold = sold - 1 WHERE event_id = ? AND tier = ? AND sold > 0`,
		eventID, string(tier))
	return err
}

// query runs a select over events joined with tiers and folds the three
// tier rows of each event back into a single model.Event, keeping the
// order of first appearance.
func (r *EventRepo) query(ctx context.Context, q string, args ...interface{}) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []model.Event{}
	index := map[string]int{}
	for rows.Next() {
		var (
			e        model.Event
			metadata sql.NullString
			onChain  sql.NullInt64
			status   string
			tierName string
			tier     model.Tier
		)
		if err := rows.Scan(
			&e.ID, &e.Title, &e.Description, &e.Location, &e.Date, &e.ImageURL, &e.NFTImageURL,
			&e.OrganizerAddress, &e.OrganizerName, &metadata, &onChain, &status, &e.CreatedAt,
			&tierName, &tier.Price, &tier.Available, &tier.Sold,
		); err != nil {
			return nil, err
		}
		i, seen := index[e.ID]
		if !seen {
			e.Status = model.EventStatus(status)
			if metadata.Valid {
				e.MetadataURI = metadata.String
			}
			if onChain.Valid {
				id := uint64(onChain.Int64)
				e.OnChainID = &id
			}
			result = append(result, e)
			i = len(result) - 1
			index[e.ID] = i
		}
		if name, ok := model.ParseTierName(tierName); ok {
			t, _ := result[i].Tiers.Get(name)
			*t = tier
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/partystacker/internal/model"
)

// TicketRepo provides CRUD operations for issued tickets.  The tickets
// table carries a unique key on (event_id, purchase_tx) which backs the
// one-ticket-per-payment guarantee.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a new TicketRepo bound to the given database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

const selectTickets = `SELECT id, event_id, owner_address, tier, purchase_tx, qr_code_data, checked_in,
       checkin_time_ms, reward_minted, reward_token_id, created_at_ms
FROM tickets`

// Create inserts a new ticket.  A second ticket for the same event and
// purchase transaction yields ErrDuplicateTransaction.
func (r *TicketRepo) Create(ctx context.Context, t *model.Ticket) error {
	const q = `INSERT INTO tickets (id, event_id, owner_address, tier, purchase_tx, qr_code_data, checked_in,
        checkin_time_ms, reward_minted, reward_token_id, created_at_ms)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var checkin sql.NullInt64
	if t.CheckinTime != nil {
		checkin = sql.NullInt64{Int64: *t.CheckinTime, Valid: true}
	}
	var reward sql.NullString
	if t.RewardTokenID != "" {
		reward = sql.NullString{String: t.RewardTokenID, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, q,
		t.ID, t.EventID, t.OwnerAddress, string(t.Tier), t.PurchaseTxHash, t.QRCodeData, t.CheckedIn,
		checkin, t.RewardMinted, reward, t.CreatedAt,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return ErrDuplicateTransaction
		}
		return err
	}
	return nil
}

// GetByID returns a single ticket or ErrTicketNotFound.
func (r *TicketRepo) GetByID(ctx context.Context, id string) (*model.Ticket, error) {
	return r.one(ctx, selectTickets+` WHERE id = ?`, id)
}

// GetByTransaction returns the ticket issued for a purchase transaction of
// the given event, or ErrTicketNotFound.
func (r *TicketRepo) GetByTransaction(ctx context.Context, eventID, txID string) (*model.Ticket, error) {
	return r.one(ctx, selectTickets+` WHERE event_id = ? AND purchase_tx = ?`, eventID, txID)
}

// ListByOwner returns every ticket held by a wallet address, oldest first.
func (r *TicketRepo) ListByOwner(ctx context.Context, owner string) ([]model.Ticket, error) {
	return r.list(ctx, selectTickets+` WHERE owner_address = ? ORDER BY created_at_ms, id`, owner)
}

// ListByEvent returns every ticket issued for an event, oldest first.
func (r *TicketRepo) ListByEvent(ctx context.Context, eventID string) ([]model.Ticket, error) {
	return r.list(ctx, selectTickets+` WHERE event_id = ? ORDER BY created_at_ms, id`, eventID)
}

// MarkCheckedIn flips the checked-in flag once.  The guard in the WHERE
// clause makes concurrent scans of the same QR code race-free: only one
// UPDATE can match.  A second attempt yields ErrAlreadyCheckedIn.
func (r *TicketRepo) MarkCheckedIn(ctx context.Context, id string, at int64) (*model.Ticket, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tickets SET checked_in = 1, checkin_time_ms = ? WHERE id = ? AND checked_in = 0`, at, id)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	t, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return t, ErrAlreadyCheckedIn
	}
	return t, nil
}

// RecordReward stores the external reference of a minted attendance reward.
func (r *TicketRepo) RecordReward(ctx context.Context, id, rewardRef string) (*model.Ticket, error) {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE tickets SET reward_minted = 1, reward_token_id = ? WHERE id = ?`, rewardRef, id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *TicketRepo) one(ctx context.Context, q string, args ...interface{}) (*model.Ticket, error) {
	t, err := scanTicket(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *TicketRepo) list(ctx context.Context, q string, args ...interface{}) ([]model.Ticket, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []model.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTicket(s rowScanner) (*model.Ticket, error) {
	var (
		t       model.Ticket
		tier    string
		checkin sql.NullInt64
		reward  sql.NullString
	)
	if err := s.Scan(&t.ID, &t.EventID, &t.OwnerAddress, &tier, &t.PurchaseTxHash, &t.QRCodeData, &t.CheckedIn,
		&checkin, &t.RewardMinted, &reward, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Tier = model.TierName(tier)
	if checkin.Valid {
		v := checkin.Int64
		t.CheckinTime = &v
	}
	if reward.Valid {
		t.RewardTokenID = reward.String
	}
	return &t, nil
}

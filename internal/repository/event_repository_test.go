package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/partystacker/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var eventColumns = []string{
	"id", "title", "description", "location", "date_ms", "image_url", "nft_image_url",
	"organizer_address", "organizer_name", "metadata_uri", "on_chain_id", "status", "created_at_ms",
	"tier", "price", "available", "sold",
}

func eventRow(rows *sqlmock.Rows, id, tier string, price float64, available, sold int) *sqlmock.Rows {
	return rows.AddRow(id, "Launch Party", "", "Berlin", int64(1_800_000_000_000), "", "",
		"ST1ORG", "Org", nil, int64(7), "upcoming", int64(1_700_000_000_000),
		tier, price, available, sold)
}

func TestIncrementSold(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE event_tiers SET sold = sold + 1")).
		WithArgs("E1", "general").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT sold FROM event_tiers")).
		WithArgs("E1", "general").
		WillReturnRows(sqlmock.NewRows([]string{"sold"}).AddRow(3))
	mock.ExpectCommit()

	sold, err := repo.IncrementSold(context.Background(), "E1", model.TierGeneral)
	require.NoError(t, err)
	assert.Equal(t, 3, sold)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementSoldOut(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE event_tiers SET sold = sold + 1")).
		WithArgs("E1", "vip").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT sold FROM event_tiers")).
		WithArgs("E1", "vip").
		WillReturnRows(sqlmock.NewRows([]string{"sold"}).AddRow(20))
	mock.ExpectRollback()

	sold, err := repo.IncrementSold(context.Background(), "E1", model.TierVIP)
	assert.ErrorIs(t, err, ErrSoldOut)
	assert.Equal(t, 20, sold)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementSoldMissingEvent(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE event_tiers SET sold = sold + 1")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT sold FROM event_tiers")).
		WillReturnRows(sqlmock.NewRows([]string{"sold"}))
	mock.ExpectRollback()

	_, err := repo.IncrementSold(context.Background(), "nope", model.TierGeneral)
	assert.ErrorIs(t, err, ErrEventNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementSold(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE event_tiers SET sold = sold - 1")).
		WithArgs("E1", "backstage").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewEventRepo(db).DecrementSold(context.Background(), "E1", model.TierBackstage))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEvent(t *testing.T) {
	db, mock := newMock(t)
	e := &model.Event{
		ID: "E1", Title: "Launch Party", OrganizerAddress: "ST1ORG", Status: model.EventUpcoming,
		Tiers: model.Tiers{
			General:   model.Tier{Price: 50, Available: 100},
			VIP:       model.Tier{Price: 150, Available: 20},
			Backstage: model.Tier{Price: 500, Available: 5},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO event_tiers")).
		WithArgs("E1", "general", 50.0, 100, 0, "E1", "vip", 150.0, 20, 0, "E1", "backstage", 500.0, 5, 0).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	require.NoError(t, NewEventRepo(db).Create(context.Background(), e))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEventDuplicate(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'E1'"})
	mock.ExpectRollback()

	err := NewEventRepo(db).Create(context.Background(), &model.Event{ID: "E1"})
	assert.ErrorIs(t, err, ErrEventExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEventFoldsTiers(t *testing.T) {
	db, mock := newMock(t)
	rows := sqlmock.NewRows(eventColumns)
	eventRow(rows, "E1", "general", 50, 100, 10)
	eventRow(rows, "E1", "vip", 150, 20, 20)
	eventRow(rows, "E1", "backstage", 500, 5, 0)
	mock.ExpectQuery(regexp.QuoteMeta("FROM events e")).WithArgs("E1").WillReturnRows(rows)

	e, err := NewEventRepo(db).GetByID(context.Background(), "E1")
	require.NoError(t, err)
	assert.Equal(t, "Launch Party", e.Title)
	assert.Equal(t, model.EventUpcoming, e.Status)
	require.NotNil(t, e.OnChainID)
	assert.Equal(t, uint64(7), *e.OnChainID)
	assert.Empty(t, e.MetadataURI)
	assert.Equal(t, model.Tier{Price: 50, Available: 100, Sold: 10}, e.Tiers.General)
	assert.True(t, e.Tiers.VIP.SoldOut())
	assert.Equal(t, 5, e.Tiers.Backstage.Remaining())
}

func TestGetEventNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM events e")).WillReturnRows(sqlmock.NewRows(eventColumns))

	_, err := NewEventRepo(db).GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestListEventsKeepsOrder(t *testing.T) {
	db, mock := newMock(t)
	rows := sqlmock.NewRows(eventColumns)
	eventRow(rows, "E2", "general", 1, 1, 0)
	eventRow(rows, "E2", "vip", 2, 1, 0)
	eventRow(rows, "E1", "general", 3, 1, 0)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY e.created_at_ms DESC")).WillReturnRows(rows)

	events, err := NewEventRepo(db).List(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "E2", events[0].ID)
	assert.Equal(t, 2.0, events[0].Tiers.VIP.Price)
	assert.Equal(t, "E1", events[1].ID)
}

func TestUpdateEvent(t *testing.T) {
	db, mock := newMock(t)
	title := "Renamed"
	status := model.EventLive

	mock.ExpectExec(regexp.QuoteMeta("UPDATE events SET title = ?, status = ? WHERE id = ?")).
		WithArgs("Renamed", "live", "E1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	rows := sqlmock.NewRows(eventColumns)
	eventRow(rows, "E1", "general", 50, 100, 0)
	mock.ExpectQuery(regexp.QuoteMeta("FROM events e")).WithArgs("E1").WillReturnRows(rows)

	_, err := NewEventRepo(db).Update(context.Background(), "E1", model.EventPatch{Title: &title, Status: &status})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err = NewEventRepo(db).Update(context.Background(), "E1", model.EventPatch{})
	assert.ErrorIs(t, err, ErrNoChange)
}

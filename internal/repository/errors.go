// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers and services to distinguish between different failure
// scenarios without inspecting driver errors. Both the MySQL
// repositories in this package and the in-memory store in
// repository/memory return exactly these values.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrEventNotFound indicates that no event with the requested id exists.
var ErrEventNotFound = errors.New("event not found")

// ErrEventExists is returned when creating an event whose id is taken.
var ErrEventExists = errors.New("event already exists")

// ErrTicketNotFound indicates that no ticket matched the lookup.
var ErrTicketNotFound = errors.New("ticket not found")

// ErrSoldOut is returned by IncrementSold when the tier has no remaining
// capacity. The sold counter is left unchanged.
var ErrSoldOut = errors.New("tier sold out")

// ErrDuplicateTransaction is returned when a ticket for the same
// (event, purchase transaction) pair already exists.
var ErrDuplicateTransaction = errors.New("ticket already issued for transaction")

// ErrAlreadyCheckedIn is returned by MarkCheckedIn when the ticket has
// already been used.
var ErrAlreadyCheckedIn = errors.New("ticket already checked in")

// ErrNoChange indicates an update that carried no fields.
var ErrNoChange = errors.New("no change")

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// isDuplicateEntry reports whether err is a MySQL unique key violation.
func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

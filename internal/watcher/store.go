package watcher

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"path/filepath"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/util"
	_ "modernc.org/sqlite"
)

// Kind is a name of the notification emitted by Subscription contract.
type Kind string

// Notifications of Subscription contract.
const (
	KindSubscribed   Kind = "Subscribed"
	KindUnsubscribed Kind = "Unsubscribed"
	KindPayment      Kind = "Payment"
)

// Event is a decoded Subscription contract notification.
type Event struct {
	// Transaction that produced the notification.
	Tx util.Uint256
	// Position of the notification in the execution of Tx.
	Index int

	Kind    Kind
	Account util.Uint160
	// Set for Payment only.
	Amount *big.Int
	// Unset for Unsubscribed.
	Due int64

	// Set for Subscribed only.
	Email     string
	FirstName string
	LastName  string
}

// Subscriber is a subscriber state restored from the stored notifications.
type Subscriber struct {
	Account   util.Uint160
	Active    bool
	Due       int64
	Email     string
	FirstName string
	LastName  string
	// Number of accepted payments including the subscription itself.
	Payments int64
}

var errNoStore = errors.New("storage is not configured")

const schema = `
CREATE TABLE IF NOT EXISTS events (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	tx TEXT NOT NULL,
	idx INTEGER NOT NULL,
	kind TEXT NOT NULL,
	account TEXT NOT NULL,
	amount TEXT NOT NULL DEFAULT '',
	due INTEGER NOT NULL DEFAULT 0,
	UNIQUE (tx, idx)
);
CREATE TABLE IF NOT EXISTS subscribers (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	account TEXT NOT NULL UNIQUE,
	active INTEGER NOT NULL,
	due INTEGER NOT NULL,
	email TEXT NOT NULL,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	payments INTEGER NOT NULL DEFAULT 0
);
`

// Store keeps Subscription contract notifications and subscriber states in
// SQLite database.
type Store struct {
	sqlDB *sql.DB
}

// OpenStore opens SQLite database at path and creates missing tables. Special
// ":memory:" path opens in-memory database.
func OpenStore(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := ":memory:"
	if path != dsn {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Every connection to ":memory:" has its own database.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Apply stores the event and updates state of the subscriber. Already stored
// events are ignored, so Apply returns false for replayed notifications.
func (s *Store) Apply(ctx context.Context, ev Event) (bool, error) {
	if s == nil || s.sqlDB == nil {
		return false, errNoStore
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var amount string
	if ev.Amount != nil {
		amount = ev.Amount.String()
	}

	res, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO events (tx, idx, kind, account, amount, due)
VALUES (?, ?, ?, ?, ?, ?)
`, ev.Tx.StringLE(), ev.Index, string(ev.Kind), ev.Account.StringLE(), amount, ev.Due)
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	switch ev.Kind {
	case KindSubscribed:
		_, err = tx.ExecContext(ctx, `
INSERT INTO subscribers (account, active, due, email, first_name, last_name, payments)
VALUES (?, 1, ?, ?, ?, ?, 1)
ON CONFLICT (account) DO UPDATE SET
	active = 1,
	due = excluded.due,
	email = excluded.email,
	first_name = excluded.first_name,
	last_name = excluded.last_name,
	payments = payments + 1
`, ev.Account.StringLE(), ev.Due, ev.Email, ev.FirstName, ev.LastName)
	case KindUnsubscribed:
		_, err = tx.ExecContext(ctx, `UPDATE subscribers SET active = 0 WHERE account = ?`, ev.Account.StringLE())
	case KindPayment:
		_, err = tx.ExecContext(ctx, `UPDATE subscribers SET due = ?, payments = payments + 1 WHERE account = ?`,
			ev.Due, ev.Account.StringLE())
	default:
		return false, fmt.Errorf("unknown event kind %q", ev.Kind)
	}
	if err != nil {
		return false, fmt.Errorf("update subscriber: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}

	return true, nil
}

// Subscribers returns states of all subscribers in the order of their first
// subscription.
func (s *Store) Subscribers(ctx context.Context) ([]Subscriber, error) {
	if s == nil || s.sqlDB == nil {
		return nil, errNoStore
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT account, active, due, email, first_name, last_name, payments
FROM subscribers
ORDER BY seq
`)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	defer rows.Close()

	var res []Subscriber
	for rows.Next() {
		var (
			sub     Subscriber
			account string
		)
		if err := rows.Scan(&account, &sub.Active, &sub.Due, &sub.Email, &sub.FirstName, &sub.LastName, &sub.Payments); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		sub.Account, err = util.Uint160DecodeStringLE(account)
		if err != nil {
			return nil, fmt.Errorf("decode account %s: %w", account, err)
		}
		res = append(res, sub)
	}

	return res, rows.Err()
}

// Events returns stored events of the account in the order of arrival.
func (s *Store) Events(ctx context.Context, account util.Uint160) ([]Event, error) {
	if s == nil || s.sqlDB == nil {
		return nil, errNoStore
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT tx, idx, kind, amount, due
FROM events
WHERE account = ?
ORDER BY seq
`, account.StringLE())
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var res []Event
	for rows.Next() {
		var (
			ev         = Event{Account: account}
			tx, amount string
			kind       string
		)
		if err := rows.Scan(&tx, &ev.Index, &kind, &amount, &ev.Due); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Kind = Kind(kind)
		ev.Tx, err = util.Uint256DecodeStringLE(tx)
		if err != nil {
			return nil, fmt.Errorf("decode transaction %s: %w", tx, err)
		}
		if amount != "" {
			var ok bool
			ev.Amount, ok = new(big.Int).SetString(amount, 10)
			if !ok {
				return nil, fmt.Errorf("invalid amount %q", amount)
			}
		}
		res = append(res, ev)
	}

	return res, rows.Err()
}

// CountActive returns the number of active subscribers and the number of
// those whose payment is due at the given time (in seconds).
func (s *Store) CountActive(ctx context.Context, now int64) (int, int, error) {
	if s == nil || s.sqlDB == nil {
		return 0, 0, errNoStore
	}

	var active, overdue sql.NullInt64
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT COUNT(*), SUM(CASE WHEN due <= ? THEN 1 ELSE 0 END)
FROM subscribers
WHERE active = 1
`, now).Scan(&active, &overdue)
	if err != nil {
		return 0, 0, fmt.Errorf("count subscribers: %w", err)
	}

	return int(active.Int64), int(overdue.Int64), nil
}

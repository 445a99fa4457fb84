package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "modernc.org/sqlite"

	"assetnode/internal/config"
)

// TagSnapshotCheck is the row type tag for snapshot-check records.
const TagSnapshotCheck = "C"

// ErrInvalidRecord is returned for empty asset names or negative heights.
var ErrInvalidRecord = errors.New("invalid snapshot check record")

// Store manages snapshot-check persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string

	// writeMu serializes read-modify-write cycles from this process.
	writeMu sync.Mutex
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the ledger database under the data directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.LedgerPath())
}

// OpenPath opens the ledger database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	// busy_timeout is per connection, so it rides on the DSN for every pooled conn.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Write adds assetName to the set recorded at blockHeight.
func (s *Store) Write(ctx context.Context, assetName string, blockHeight int64) error {
	ctx = ensureContext(ctx)
	assetName = strings.TrimSpace(assetName)
	if assetName == "" || blockHeight < 0 {
		return fmt.Errorf("%w: asset %q at height %d", ErrInvalidRecord, assetName, blockHeight)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return retryOnBusy(ctx, func() error {
		return s.writeOnce(ctx, assetName, blockHeight)
	})
}

func (s *Store) writeOnce(ctx context.Context, assetName string, blockHeight int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	names, err := readNames(ctx, tx, blockHeight)
	if err != nil {
		return err
	}
	idx := sort.SearchStrings(names, assetName)
	if idx < len(names) && names[idx] == assetName {
		return nil
	}
	names = append(names, "")
	copy(names[idx+1:], names[idx:])
	names[idx] = assetName

	encoded, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("encode asset set: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO snapshot_checks (type_tag, block_height, asset_names, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (type_tag, block_height) DO UPDATE SET asset_names = excluded.asset_names, updated_at = excluded.updated_at`,
		TagSnapshotCheck, blockHeight, string(encoded), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("write snapshot check: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot check: %w", err)
	}
	return nil
}

// Read returns the sorted asset names recorded at blockHeight. A height with no
// record yields an empty, non-nil slice.
func (s *Store) Read(ctx context.Context, blockHeight int64) ([]string, error) {
	ctx = ensureContext(ctx)
	if blockHeight < 0 {
		return nil, fmt.Errorf("%w: height %d", ErrInvalidRecord, blockHeight)
	}
	var names []string
	err := retryOnBusy(ctx, func() error {
		var readErr error
		names, readErr = readNames(ctx, s.db, blockHeight)
		return readErr
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// Heights lists every height with at least one snapshot check, ascending.
func (s *Store) Heights(ctx context.Context) ([]int64, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT block_height FROM snapshot_checks WHERE type_tag = ? ORDER BY block_height", TagSnapshotCheck)
	if err != nil {
		return nil, fmt.Errorf("list snapshot heights: %w", err)
	}
	defer rows.Close()

	heights := []int64{}
	for rows.Next() {
		var height int64
		if err := rows.Scan(&height); err != nil {
			return nil, fmt.Errorf("scan snapshot height: %w", err)
		}
		heights = append(heights, height)
	}
	return heights, rows.Err()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func readNames(ctx context.Context, q queryer, blockHeight int64) ([]string, error) {
	var raw string
	err := q.QueryRowContext(ctx,
		"SELECT asset_names FROM snapshot_checks WHERE type_tag = ? AND block_height = ?",
		TagSnapshotCheck, blockHeight,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot check: %w", err)
	}
	names := []string{}
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, fmt.Errorf("decode asset set at height %d: %w", blockHeight, err)
	}
	sort.Strings(names)
	return names, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func busyBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = busyRetryInitialBackoff
	b.MaxInterval = busyRetryMaxBackoff
	b.MaxElapsedTime = 0
	return backoff.WithMaxRetries(b, busyRetryAttempts-1)
}

// retryOnBusy runs op up to busyRetryAttempts times while it reports
// SQLITE_BUSY. Other errors are returned immediately.
func retryOnBusy(ctx context.Context, op func() error) error {
	return backoff.Retry(func() error {
		err := op()
		if err != nil && !isSQLiteBusy(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(busyBackOff(), ctx))
}

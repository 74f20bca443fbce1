// Package store persists fetched price history in SQLite so repeated
// backtests over the same range do not hit the upstream data source.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/seenimoa/stratlab/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS bars (
	ticker    TEXT    NOT NULL,
	timeframe TEXT    NOT NULL,
	ts        INTEGER NOT NULL,
	open      REAL    NOT NULL,
	high      REAL    NOT NULL,
	low       REAL    NOT NULL,
	close     REAL    NOT NULL,
	volume    INTEGER NOT NULL,
	adj_close REAL    NOT NULL DEFAULT 0,
	PRIMARY KEY (ticker, timeframe, ts)
);
`

// Store wraps a SQLite connection holding cached OHLCV bars.
type Store struct {
	db *sql.DB
}

// Open initializes the bar store at the given path. An empty path opens
// an in-memory database.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != "" {
		if err := ensureDir(filepath.Dir(path)); err != nil {
			return nil, err
		}
		dsn = path
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_busy_timeout=5000", dsn))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveBars upserts a batch of bars for the ticker and timeframe.
func (s *Store) SaveBars(ctx context.Context, ticker string, tf models.Timeframe, bars []models.OHLCV) error {
	if len(bars) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bars (ticker, timeframe, ts, open, high, low, close, volume, adj_close)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (ticker, timeframe, ts) DO UPDATE SET
			open = excluded.open, high = excluded.high, low = excluded.low,
			close = excluded.close, volume = excluded.volume, adj_close = excluded.adj_close`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, ticker, string(tf), b.Timestamp.Unix(),
			b.Open, b.High, b.Low, b.Close, b.Volume, b.AdjClose); err != nil {
			return fmt.Errorf("upsert bar %s@%d: %w", ticker, b.Timestamp.Unix(), err)
		}
	}
	return tx.Commit()
}

// LoadBars returns stored bars for the ticker inside [from, to] in
// ascending timestamp order.
func (s *Store) LoadBars(ctx context.Context, ticker string, tf models.Timeframe, from, to time.Time) ([]models.OHLCV, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, open, high, low, close, volume, adj_close
		FROM bars
		WHERE ticker = ? AND timeframe = ? AND ts BETWEEN ? AND ?
		ORDER BY ts ASC`,
		ticker, string(tf), from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var out []models.OHLCV
	for rows.Next() {
		var ts int64
		var b models.OHLCV
		if err := rows.Scan(&ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.AdjClose); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Timestamp = time.Unix(ts, 0).UTC()
		out = append(out, b)
	}
	return out, rows.Err()
}

// CountBars returns the number of stored bars for the ticker.
func (s *Store) CountBars(ctx context.Context, ticker string, tf models.Timeframe) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bars WHERE ticker = ? AND timeframe = ?`,
		ticker, string(tf)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count bars: %w", err)
	}
	return n, nil
}

func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", path, err)
	}
	return nil
}

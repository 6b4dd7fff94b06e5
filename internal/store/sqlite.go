package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"wse-scanner/internal/errors"
	"wse-scanner/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	mu        sync.RWMutex
	syncTimes map[string]time.Time
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %v", errors.ErrDatabaseError, err)
	}

	// Scanner workers read and write candles concurrently.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:        db,
		syncTimes: make(map[string]time.Time),
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to initialize schema: %v", errors.ErrDatabaseError, err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS candles (
		symbol TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		date TEXT NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume REAL NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (symbol, timeframe, date)
	);

	CREATE TABLE IF NOT EXISTS scans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_at DATETIME NOT NULL,
		granularity TEXT NOT NULL,
		as_of TEXT,
		evaluated INTEGER NOT NULL,
		admitted INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS scan_triggers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scan_id INTEGER NOT NULL,
		pattern TEXT NOT NULL,
		symbol TEXT NOT NULL,
		turnover REAL NOT NULL,
		FOREIGN KEY (scan_id) REFERENCES scans(id)
	);

	CREATE TABLE IF NOT EXISTS sync_status (
		data_type TEXT PRIMARY KEY,
		last_sync DATETIME NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_scans_run_at ON scans(run_at);
	CREATE INDEX IF NOT EXISTS idx_triggers_scan ON scan_triggers(scan_id);
	CREATE INDEX IF NOT EXISTS idx_triggers_symbol ON scan_triggers(symbol);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Candles Methods
// ============================================================================

// SaveCandles upserts candles keyed by (symbol, timeframe, date).
func (s *SQLiteStore) SaveCandles(ctx context.Context, symbol, timeframe string, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO candles (symbol, timeframe, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		_, err := stmt.ExecContext(ctx, symbol, timeframe, c.Date, c.Open, c.High, c.Low, c.Close, c.Volume)
		if err != nil {
			return fmt.Errorf("failed to insert candle %s %s: %w", symbol, c.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetCandles retrieves candles with from <= date <= to, oldest first.
// Empty bounds are open.
func (s *SQLiteStore) GetCandles(ctx context.Context, symbol, timeframe string, from, to string) ([]models.Candle, error) {
	if to == "" {
		to = "99999999"
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, open, high, low, close, volume
		FROM candles
		WHERE symbol = ? AND timeframe = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, symbol, timeframe, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query candles: %w", err)
	}
	defer rows.Close()

	var candles []models.Candle
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Date, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}
		candles = append(candles, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candles: %w", err)
	}

	return candles, nil
}

// GetCandlesFreshness returns the date of the most recent stored candle, or
// an empty string when none is stored.
func (s *SQLiteStore) GetCandlesFreshness(ctx context.Context, symbol, timeframe string) (string, error) {
	var date sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(date) FROM candles WHERE symbol = ? AND timeframe = ?
	`, symbol, timeframe).Scan(&date)
	if err != nil && err != sql.ErrNoRows {
		return "", fmt.Errorf("failed to get candles freshness: %w", err)
	}
	return date.String, nil
}

// ============================================================================
// Scan History Methods
// ============================================================================

// RecordScan stores a scan and its triggers, returning the scan id.
func (s *SQLiteStore) RecordScan(ctx context.Context, run ScanRun) (int64, error) {
	if run.RunAt.IsZero() {
		run.RunAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO scans (run_at, granularity, as_of, evaluated, admitted)
		VALUES (?, ?, ?, ?, ?)
	`, run.RunAt.UTC(), run.Granularity, run.AsOf, run.Evaluated, run.Admitted)
	if err != nil {
		return 0, fmt.Errorf("failed to insert scan: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read scan id: %w", err)
	}

	for _, t := range run.Triggers {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO scan_triggers (scan_id, pattern, symbol, turnover)
			VALUES (?, ?, ?, ?)
		`, id, t.Pattern, t.Symbol, t.Turnover); err != nil {
			return 0, fmt.Errorf("failed to insert trigger: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return id, nil
}

// GetScanHistory returns scans, newest first. Symbol and Pattern filters
// keep scans with at least one matching trigger and drop the others' triggers.
func (s *SQLiteStore) GetScanHistory(ctx context.Context, filter ScanFilter) ([]ScanRun, error) {
	query := `SELECT id, run_at, granularity, as_of, evaluated, admitted FROM scans WHERE 1=1`
	var args []interface{}

	if !filter.Since.IsZero() {
		query += " AND run_at >= ?"
		args = append(args, filter.Since.UTC())
	}
	if filter.Symbol != "" || filter.Pattern != "" {
		sub, subArgs := triggerFilter(filter)
		query += " AND id IN (SELECT scan_id FROM scan_triggers WHERE " + sub + ")"
		args = append(args, subArgs...)
	}
	query += " ORDER BY run_at DESC, id DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}
	defer rows.Close()

	var runs []ScanRun
	for rows.Next() {
		var run ScanRun
		var asOf sql.NullString
		if err := rows.Scan(&run.ID, &run.RunAt, &run.Granularity, &asOf, &run.Evaluated, &run.Admitted); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		run.AsOf = asOf.String
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scans: %w", err)
	}
	rows.Close()

	for i := range runs {
		triggers, err := s.getTriggers(ctx, runs[i].ID, filter)
		if err != nil {
			return nil, err
		}
		runs[i].Triggers = triggers
	}
	return runs, nil
}

func triggerFilter(filter ScanFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	if filter.Symbol != "" {
		clauses = append(clauses, "symbol = ?")
		args = append(args, filter.Symbol)
	}
	if filter.Pattern != "" {
		clauses = append(clauses, "pattern = ?")
		args = append(args, filter.Pattern)
	}
	if len(clauses) == 0 {
		return "1=1", nil
	}
	return strings.Join(clauses, " AND "), args
}

func (s *SQLiteStore) getTriggers(ctx context.Context, scanID int64, filter ScanFilter) ([]ScanTrigger, error) {
	where, args := triggerFilter(filter)
	rows, err := s.db.QueryContext(ctx, `
		SELECT pattern, symbol, turnover FROM scan_triggers
		WHERE scan_id = ? AND `+where+`
		ORDER BY pattern ASC, turnover DESC, symbol ASC
	`, append([]interface{}{scanID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query triggers: %w", err)
	}
	defer rows.Close()

	var triggers []ScanTrigger
	for rows.Next() {
		var t ScanTrigger
		if err := rows.Scan(&t.Pattern, &t.Symbol, &t.Turnover); err != nil {
			return nil, fmt.Errorf("failed to scan trigger: %w", err)
		}
		triggers = append(triggers, t)
	}
	return triggers, rows.Err()
}

// ============================================================================
// Sync Methods
// ============================================================================

// GetLastSync returns the last sync time for a data type.
func (s *SQLiteStore) GetLastSync(dataType string) time.Time {
	s.mu.RLock()
	if t, ok := s.syncTimes[dataType]; ok {
		s.mu.RUnlock()
		return t
	}
	s.mu.RUnlock()

	var lastSync time.Time
	err := s.db.QueryRow(`
		SELECT last_sync FROM sync_status WHERE data_type = ?
	`, dataType).Scan(&lastSync)
	if err != nil {
		return time.Time{}
	}

	s.mu.Lock()
	s.syncTimes[dataType] = lastSync
	s.mu.Unlock()

	return lastSync
}

// SetLastSync sets the last sync time for a data type.
func (s *SQLiteStore) SetLastSync(dataType string, t time.Time) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO sync_status (data_type, last_sync, updated_at)
		VALUES (?, ?, ?)
	`, dataType, t.UTC(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set last sync: %w", err)
	}

	s.mu.Lock()
	s.syncTimes[dataType] = t
	s.mu.Unlock()

	return nil
}

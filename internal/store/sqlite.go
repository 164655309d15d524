package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/boardview-ai/boardview/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	usageMu sync.Mutex // serializes read-modify-write cycles to prevent SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS usage_records (
		user_id INTEGER PRIMARY KEY,
		consultations_used INTEGER NOT NULL DEFAULT 0,
		quota_bonus INTEGER NOT NULL DEFAULT 0,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		username TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_usage_updated ON usage_records(updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetUsage retrieves the usage record for a user, creating a zero-valued
// record on first access.
func (s *SQLiteStore) GetUsage(ctx context.Context, userID int64) (*domain.UsageRecord, error) {
	s.usageMu.Lock()
	defer s.usageMu.Unlock()

	rec, err := s.getUsage(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return rec, nil
	}

	now := time.Now()
	rec = &domain.UsageRecord{
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.saveUsage(ctx, rec); err != nil {
		return nil, fmt.Errorf("create default usage record: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) getUsage(ctx context.Context, userID int64) (*domain.UsageRecord, error) {
	query := `
		SELECT user_id, consultations_used, quota_bonus,
		       first_name, last_name, username, created_at, updated_at
		FROM usage_records WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var rec domain.UsageRecord
	var createdAt, updatedAt int64

	err := row.Scan(
		&rec.UserID, &rec.ConsultationsUsed, &rec.QuotaBonus,
		&rec.FirstName, &rec.LastName, &rec.Username,
		&createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan usage row: %w", err)
	}

	rec.CreatedAt = time.Unix(createdAt, 0)
	rec.UpdatedAt = time.Unix(updatedAt, 0)

	return &rec, nil
}

// SaveUsage writes the record as a full overwrite.
func (s *SQLiteStore) SaveUsage(ctx context.Context, rec *domain.UsageRecord) error {
	s.usageMu.Lock()
	defer s.usageMu.Unlock()
	return s.saveUsage(ctx, rec)
}

func (s *SQLiteStore) saveUsage(ctx context.Context, rec *domain.UsageRecord) error {
	query := `
	INSERT INTO usage_records (
		user_id, consultations_used, quota_bonus,
		first_name, last_name, username, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		consultations_used = excluded.consultations_used,
		quota_bonus = excluded.quota_bonus,
		first_name = excluded.first_name,
		last_name = excluded.last_name,
		username = excluded.username,
		updated_at = excluded.updated_at`

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, query,
		rec.UserID, rec.ConsultationsUsed, rec.QuotaBonus,
		rec.FirstName, rec.LastName, rec.Username,
		createdAt.Unix(), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert usage record: %w", err)
	}
	return nil
}

// SaveIdentity updates only the display-name columns.
func (s *SQLiteStore) SaveIdentity(ctx context.Context, userID int64, firstName, lastName, username string) error {
	s.usageMu.Lock()
	defer s.usageMu.Unlock()

	now := time.Now().Unix()
	query := `
	INSERT INTO usage_records (user_id, first_name, last_name, username, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		first_name = excluded.first_name,
		last_name = excluded.last_name,
		username = excluded.username,
		updated_at = excluded.updated_at`

	if _, err := s.db.ExecContext(ctx, query, userID, firstName, lastName, username, now, now); err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	return nil
}

// ConsumeConsultation increments the consultation counter in place.
func (s *SQLiteStore) ConsumeConsultation(ctx context.Context, userID int64) (*domain.UsageRecord, error) {
	s.usageMu.Lock()
	defer s.usageMu.Unlock()

	now := time.Now().Unix()
	query := `
	INSERT INTO usage_records (user_id, consultations_used, created_at, updated_at)
	VALUES (?, 1, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		consultations_used = usage_records.consultations_used + 1,
		updated_at = excluded.updated_at`

	if _, err := s.db.ExecContext(ctx, query, userID, now, now); err != nil {
		return nil, fmt.Errorf("consume consultation: %w", err)
	}

	rec, err := s.getUsage(ctx, userID)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GrantQuota adds extra consultations to a user's quota bonus.
func (s *SQLiteStore) GrantQuota(ctx context.Context, userID int64, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("grant amount must be > 0, got %d", amount)
	}

	s.usageMu.Lock()
	defer s.usageMu.Unlock()

	now := time.Now().Unix()
	query := `
	INSERT INTO usage_records (user_id, quota_bonus, created_at, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		quota_bonus = usage_records.quota_bonus + excluded.quota_bonus,
		updated_at = excluded.updated_at`

	if _, err := s.db.ExecContext(ctx, query, userID, amount, now, now); err != nil {
		return fmt.Errorf("grant quota: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

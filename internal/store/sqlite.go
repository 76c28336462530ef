package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashureev/wellness-labs/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex // serializes writers within the process to avoid SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// modernc applies each _pragma on every new connection.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
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
	CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		age INTEGER,
		gender TEXT,
		activity_level TEXT,
		dietary_preference TEXT,
		sleep_quality TEXT,
		stress_level TEXT,
		health_goals TEXT,
		completion_percentage REAL NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_profiles_updated ON profiles(updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

const selectProfile = `
	SELECT user_id, age, gender, activity_level, dietary_preference,
	       sleep_quality, stress_level, health_goals,
	       completion_percentage, created_at, updated_at
	FROM profiles WHERE user_id = ?`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*domain.Profile, error) {
	var p domain.Profile
	var age sql.NullInt64
	var gender, activity, diet, sleep, stress, goals sql.NullString
	var createdAt, updatedAt int64

	if err := row.Scan(
		&p.UserID, &age, &gender, &activity, &diet,
		&sleep, &stress, &goals,
		&p.CompletionPercentage, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	if age.Valid {
		v := int(age.Int64)
		p.Age = &v
	}
	if gender.Valid {
		p.Gender = &gender.String
	}
	if err := decodeEnums(&p, nullString(activity), nullString(diet), nullString(sleep), nullString(stress)); err != nil {
		return nil, err
	}
	if goals.Valid {
		p.HealthGoals = &goals.String
	}
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	p.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return &p, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

// nullable returns nil for an unset pointer so the column stores NULL.
func nullable[T ~string | ~int](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetProfile retrieves a profile by user ID.
func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	p, err := scanProfile(s.db.QueryRowContext(ctx, selectProfile, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile row: %w", err)
	}
	return p, nil
}

// CreateProfile inserts an empty profile.
func (s *SQLiteStore) CreateProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	p := domain.NewProfile(userID, time.Now().UTC().Truncate(time.Second))

	query := `
	INSERT INTO profiles (user_id, completion_percentage, created_at, updated_at)
	VALUES (?, 0, ?, ?)
	ON CONFLICT(user_id) DO NOTHING`

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var rows int64
	err := withBusyRetry(ctx, "create", userID, func() error {
		result, err := s.db.ExecContext(ctx, query, userID, p.CreatedAt.Unix(), p.UpdatedAt.Unix())
		if err != nil {
			return err
		}
		rows, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	if rows == 0 {
		return nil, ErrAlreadyExists
	}
	return p, nil
}

// UpdateProfile merges updates inside a transaction.
func (s *SQLiteStore) UpdateProfile(ctx context.Context, userID string, updates map[domain.FieldName]domain.Value) (*domain.Profile, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var updated *domain.Profile
	err := withBusyRetry(ctx, "update", userID, func() error {
		var err error
		updated, err = s.updateOnce(ctx, userID, updates)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *SQLiteStore) updateOnce(ctx context.Context, userID string, updates map[domain.FieldName]domain.Value) (*domain.Profile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	p, err := scanProfile(tx.QueryRowContext(ctx, selectProfile, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile row: %w", err)
	}

	if err := p.Apply(updates); err != nil {
		return nil, err
	}
	p.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	query := `
	UPDATE profiles SET
		age = ?, gender = ?, activity_level = ?, dietary_preference = ?,
		sleep_quality = ?, stress_level = ?, health_goals = ?,
		completion_percentage = ?, updated_at = ?
	WHERE user_id = ?`

	if _, err := tx.ExecContext(ctx, query,
		nullable(p.Age), nullable(p.Gender), nullable(p.ActivityLevel), nullable(p.DietaryPreference),
		nullable(p.SleepQuality), nullable(p.StressLevel), nullable(p.HealthGoals),
		p.CompletionPercentage, p.UpdatedAt.Unix(), userID,
	); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit profile update: %w", err)
	}
	return p, nil
}

// DeleteProfile removes a profile.
func (s *SQLiteStore) DeleteProfile(ctx context.Context, userID string) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var rows int64
	err := withBusyRetry(ctx, "delete", userID, func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE user_id = ?`, userID)
		if err != nil {
			return err
		}
		rows, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return false, fmt.Errorf("delete profile: %w", err)
	}
	return rows > 0, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

var _ Repository = (*SQLiteStore)(nil)

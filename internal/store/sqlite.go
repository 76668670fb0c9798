package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3" // SQLite driver
)

// ErrDuplicateUser is returned when registering a username that exists.
var ErrDuplicateUser = errors.New("username already registered")

// ErrUnavailable wraps failures to reach the backing store.
var ErrUnavailable = errors.New("store unavailable")

// defaultAdminHash is sha256("admin"), the credential the legacy desktop app
// seeded on first run. Kept behind the bootstrap flag; a deployment that
// disables it starts with an empty user table.
const (
	defaultAdminUser = "admin"
	defaultAdminHash = "8c6976e5b5410415bde908bd4dee15dfb167a9c873fc4bb8a81f6f2ab448a918"
)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database, creates the schema if needed and, when
// bootstrapAdmin is set, seeds the default admin identity once.
func NewSQLiteStore(dataSourceName string, bootstrapAdmin bool) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if bootstrapAdmin {
		if err = store.bootstrapDefaultAdmin(); err != nil {
			return nil, fmt.Errorf("failed to bootstrap default admin: %w", err)
		}
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        username TEXT UNIQUE NOT NULL,
        password_hash TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS predictions (
        id TEXT PRIMARY KEY, -- UUID
        username TEXT NOT NULL,
        image_name TEXT NOT NULL,
        predicted_class TEXT NOT NULL,
        confidence REAL NOT NULL, -- percent, 0-100
        timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE INDEX IF NOT EXISTS idx_predictions_username ON predictions (username, timestamp);
    `
	_, err := s.db.Exec(schema)
	return err
}

// bootstrapDefaultAdmin inserts the legacy admin identity if absent. The
// INSERT OR IGNORE keeps this a no-op on every start after the first.
func (s *SQLiteStore) bootstrapDefaultAdmin() error {
	_, err := s.db.Exec("INSERT OR IGNORE INTO users (username, password_hash) VALUES (?, ?)",
		defaultAdminUser, defaultAdminHash)
	return err
}

// User methods

func (s *SQLiteStore) GetUserByUsername(username string) (*User, error) {
	var user User
	err := s.db.QueryRow("SELECT id, username, password_hash, created_at FROM users WHERE username = ?", username).
		Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

func (s *SQLiteStore) CreateUser(username, passwordHash string) (*User, error) {
	res, err := s.db.Exec("INSERT INTO users (username, password_hash) VALUES (?, ?)", username, passwordHash)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.getUserByID(id)
}

func (s *SQLiteStore) getUserByID(id int64) (*User, error) {
	var user User
	err := s.db.QueryRow("SELECT id, username, password_hash, created_at FROM users WHERE id = ?", id).
		Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &user, nil
}

// Prediction methods

// InsertPrediction persists one classification event. The record's ID and
// Timestamp are assigned here.
func (s *SQLiteStore) InsertPrediction(rec *PredictionRecord) error {
	rec.ID = uuid.NewString()
	rec.Timestamp = time.Now()

	stmt, err := s.db.Prepare("INSERT INTO predictions (id, username, image_name, predicted_class, confidence, timestamp) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("%w: failed to prepare prediction insert: %v", ErrUnavailable, err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(rec.ID, rec.Username, rec.ImageName, rec.PredictedClass, rec.ConfidencePercent, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("%w: failed to execute prediction insert: %v", ErrUnavailable, err)
	}
	return nil
}

// HistoryByUsername returns the user's records newest first. Rows sharing a
// timestamp fall back to insertion order so the sort is total.
func (s *SQLiteStore) HistoryByUsername(username string) ([]PredictionRecord, error) {
	query := `
        SELECT id, username, image_name, predicted_class, confidence, timestamp
        FROM predictions
        WHERE username = ?
        ORDER BY timestamp DESC, rowid DESC
    `

	rows, err := s.db.Query(query, username)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query predictions: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var records []PredictionRecord
	for rows.Next() {
		var rec PredictionRecord
		if err := rows.Scan(&rec.ID, &rec.Username, &rec.ImageName, &rec.PredictedClass, &rec.ConfidencePercent, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan prediction row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

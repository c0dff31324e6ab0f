package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Attempt is one stored combo activation.
type Attempt struct {
	ID           string
	Started      time.Time
	DurationMs   int64
	Mode         string
	Status       string
	Key          string
	BlobSize     int
	ErrorMessage string
}

// SaveAttempt saves an attempt to the database
func (db *DB) SaveAttempt(a *Attempt) error {
	query := `
		INSERT INTO attempts (
			id, started_ms, duration_ms, mode, status, key, blob_size, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	var errorMessage sql.NullString
	if a.ErrorMessage != "" {
		errorMessage = sql.NullString{String: a.ErrorMessage, Valid: true}
	}

	_, err := db.conn.Exec(query,
		a.ID, a.Started.UnixMilli(), a.DurationMs, a.Mode, a.Status, a.Key, a.BlobSize, errorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to save attempt: %w", err)
	}
	return nil
}

// GetAttempts retrieves attempts newest first with pagination
func (db *DB) GetAttempts(limit, offset int) ([]Attempt, error) {
	query := `
		SELECT id, started_ms, duration_ms, mode, status, key, blob_size, error_message
		FROM attempts
		ORDER BY started_ms DESC, id
		LIMIT ? OFFSET ?
	`

	rows, err := db.conn.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	attempts := []Attempt{}
	for rows.Next() {
		var a Attempt
		var startedMs int64
		var errorMessage sql.NullString

		err := rows.Scan(
			&a.ID, &startedMs, &a.DurationMs, &a.Mode, &a.Status, &a.Key, &a.BlobSize, &errorMessage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}

		a.Started = time.UnixMilli(startedMs)
		if errorMessage.Valid {
			a.ErrorMessage = errorMessage.String
		}

		attempts = append(attempts, a)
	}

	return attempts, rows.Err()
}

// GetAttemptCount returns the total number of attempts
func (db *DB) GetAttemptCount() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM attempts").Scan(&count)
	return count, err
}

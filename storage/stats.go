package storage

import (
	"fmt"
	"time"
)

// KeyStats summarizes the use of one letter
type KeyStats struct {
	Key       string
	Records   int
	Playbacks int
	Failures  int
	LastUsed  time.Time
}

// OverallStats represents overall statistics
type OverallStats struct {
	TotalAttempts   int
	RecordCount     int
	PlaybackCount   int
	FailureCount    int
	TimeoutCount    int
	AvgDurationMs   float64
	TotalBytesSaved int64
}

// GetKeyStats returns per-letter statistics for every letter that was used
func (db *DB) GetKeyStats() ([]KeyStats, error) {
	query := `
		SELECT
			key,
			SUM(CASE WHEN status = 'recorded' THEN 1 ELSE 0 END) as records,
			SUM(CASE WHEN status = 'played' THEN 1 ELSE 0 END) as playbacks,
			SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END) as failures,
			MAX(started_ms) as last_used_ms
		FROM attempts
		WHERE key != ''
		GROUP BY key
		ORDER BY key
	`

	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query key stats: %w", err)
	}
	defer rows.Close()

	stats := []KeyStats{}
	for rows.Next() {
		var s KeyStats
		var lastUsedMs int64
		if err := rows.Scan(&s.Key, &s.Records, &s.Playbacks, &s.Failures, &lastUsedMs); err != nil {
			return nil, fmt.Errorf("failed to scan key stats: %w", err)
		}
		s.LastUsed = time.UnixMilli(lastUsedMs)
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// GetOverallStats retrieves overall statistics for the last N days
func (db *DB) GetOverallStats(days int) (*OverallStats, error) {
	query := `
		SELECT
			COUNT(*) as total_attempts,
			COALESCE(SUM(CASE WHEN status = 'recorded' THEN 1 ELSE 0 END), 0) as record_count,
			COALESCE(SUM(CASE WHEN status = 'played' THEN 1 ELSE 0 END), 0) as playback_count,
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0) as failure_count,
			COALESCE(SUM(CASE WHEN status = 'timeout' THEN 1 ELSE 0 END), 0) as timeout_count,
			COALESCE(AVG(duration_ms), 0) as avg_duration_ms,
			COALESCE(SUM(CASE WHEN status = 'recorded' THEN blob_size ELSE 0 END), 0) as total_bytes_saved
		FROM attempts
		WHERE started_ms >= ?
	`

	since := time.Now().AddDate(0, 0, -days).UnixMilli()

	var stats OverallStats
	err := db.conn.QueryRow(query, since).Scan(
		&stats.TotalAttempts,
		&stats.RecordCount,
		&stats.PlaybackCount,
		&stats.FailureCount,
		&stats.TimeoutCount,
		&stats.AvgDurationMs,
		&stats.TotalBytesSaved,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query overall stats: %w", err)
	}

	return &stats, nil
}

package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zombar/readassist/internal/models"
)

// SaveProfile inserts or replaces a profile snapshot.
func (db *DB) SaveProfile(p *models.UserProfile) error {
	terms, err := json.Marshal(p.KnownTerms)
	if err != nil {
		return fmt.Errorf("failed to marshal known terms: %w", err)
	}

	_, err = db.conn.Exec(`
		INSERT INTO profiles (id, severity, texts_analyzed, known_terms, comprehension, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			severity = excluded.severity,
			texts_analyzed = excluded.texts_analyzed,
			known_terms = excluded.known_terms,
			comprehension = excluded.comprehension,
			updated_at = excluded.updated_at
	`, p.ID, string(p.Severity), p.TextsAnalyzed, string(terms), p.Comprehension, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// GetProfile retrieves a profile by id.
func (db *DB) GetProfile(id string) (*models.UserProfile, error) {
	var (
		severity  string
		terms     string
		p         models.UserProfile
	)

	err := db.conn.QueryRow(`
		SELECT severity, texts_analyzed, known_terms, comprehension, created_at, updated_at
		FROM profiles
		WHERE id = ?
	`, id).Scan(&severity, &p.TextsAnalyzed, &terms, &p.Comprehension, &p.CreatedAt, &p.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	p.ID = id
	p.Severity = models.ParseSeverity(severity)
	if err := json.Unmarshal([]byte(terms), &p.KnownTerms); err != nil {
		return nil, fmt.Errorf("failed to unmarshal known terms: %w", err)
	}
	return &p, nil
}

// ListProfiles returns all profile snapshots. Used by the overview
// endpoint; profile counts stay small enough that pagination is not
// worth the surface.
func (db *DB) ListProfiles() ([]*models.UserProfile, error) {
	rows, err := db.conn.Query(`
		SELECT id, severity, texts_analyzed, known_terms, comprehension, created_at, updated_at
		FROM profiles
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*models.UserProfile
	for rows.Next() {
		var (
			severity string
			terms    string
			p        models.UserProfile
		)
		if err := rows.Scan(&p.ID, &severity, &p.TextsAnalyzed, &terms, &p.Comprehension, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		p.Severity = models.ParseSeverity(severity)
		if err := json.Unmarshal([]byte(terms), &p.KnownTerms); err != nil {
			return nil, fmt.Errorf("failed to unmarshal known terms: %w", err)
		}
		profiles = append(profiles, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return profiles, nil
}

// SaveAnalysis stores a completed analysis result.
func (db *DB) SaveAnalysis(id, profileID string, result *models.AnalysisResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	now := time.Now().UTC()
	_, err = db.conn.Exec(`
		INSERT INTO analyses (id, profile_id, text, result, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			result = excluded.result,
			updated_at = excluded.updated_at
	`, id, profileID, result.OriginalText, string(payload), now, now)
	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	return nil
}

// GetAnalysis retrieves a stored analysis result by id.
func (db *DB) GetAnalysis(id string) (*models.AnalysisResult, error) {
	var (
		payload   string
		createdAt time.Time
	)

	err := db.conn.QueryRow(`
		SELECT result, created_at FROM analyses WHERE id = ?
	`, id).Scan(&payload, &createdAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}

	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	result.ID = id
	result.CreatedAt = createdAt
	return &result, nil
}

// ListAnalyses retrieves stored results with pagination, newest first.
func (db *DB) ListAnalyses(limit, offset int) ([]*models.AnalysisResult, error) {
	rows, err := db.conn.Query(`
		SELECT id, result, created_at
		FROM analyses
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	var results []*models.AnalysisResult
	for rows.Next() {
		var (
			id        string
			payload   string
			createdAt time.Time
		)
		if err := rows.Scan(&id, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		var result models.AnalysisResult
		if err := json.Unmarshal([]byte(payload), &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
		result.ID = id
		result.CreatedAt = createdAt
		results = append(results, &result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return results, nil
}

// DeleteAnalysis deletes a stored analysis by id.
func (db *DB) DeleteAnalysis(id string) error {
	result, err := db.conn.Exec(`DELETE FROM analyses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"farmpulse-service/models"

	"github.com/apex/log"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const pingAttempts = 5

// Database is the durable scan-history store. Supabase exposes a plain
// Postgres connection string, so this is ordinary database/sql over pgx.
type Database struct {
	db *sql.DB
}

// New opens the scan-history database and verifies the connection with a
// bounded exponential backoff.
func New(databaseURL string) (*Database, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	waitInterval := 1 * time.Second
	for attempt := 1; ; attempt++ {
		err = db.Ping()
		if err == nil {
			break
		}
		if attempt == pingAttempts {
			db.Close()
			return nil, fmt.Errorf("database unreachable after %d attempts: %w", pingAttempts, err)
		}
		log.Warnf("Database connection failed, retrying in %v: %v", waitInterval, err)
		time.Sleep(waitInterval)
		waitInterval *= 2
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Database{db: db}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// CreateScanHistoryTable creates the scan_history table if it doesn't exist
func (d *Database) CreateScanHistoryTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS scan_history (
		id BIGSERIAL PRIMARY KEY,
		user_id TEXT NOT NULL,
		scan_type TEXT NOT NULL,
		parse_failed BOOLEAN NOT NULL DEFAULT FALSE,
		disease_detected BOOLEAN,
		disease_name TEXT,
		confidence INT,
		crop_type TEXT,
		probable_cause TEXT,
		description TEXT,
		solution TEXT,
		severity TEXT,
		timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

	if _, err := d.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create scan_history table: %w", err)
	}

	indexQuery := `CREATE INDEX IF NOT EXISTS idx_scan_history_user_ts ON scan_history (user_id, timestamp DESC)`
	if _, err := d.db.Exec(indexQuery); err != nil {
		return fmt.Errorf("failed to create scan_history index: %w", err)
	}

	log.Info("scan_history table created/verified successfully")
	return nil
}

// SaveScan appends one history record. Records are never updated or
// deleted by the service.
func (d *Database) SaveScan(ctx context.Context, record *models.HistoryRecord) error {
	ts, err := time.Parse(time.RFC3339, record.Timestamp)
	if err != nil {
		ts = time.Now()
	}

	query := `
	INSERT INTO scan_history (
		user_id, scan_type, parse_failed, disease_detected, disease_name,
		confidence, crop_type, probable_cause, description, solution,
		severity, timestamp
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = d.db.ExecContext(ctx, query,
		record.UserID,
		record.ScanType,
		record.ParseFailed,
		record.DiseaseDetected,
		record.DiseaseName,
		record.Confidence,
		record.CropType,
		record.ProbableCause,
		record.Description,
		record.Solution,
		record.Severity,
		ts,
	)
	if err != nil {
		return fmt.Errorf("failed to save scan: %w", err)
	}

	return nil
}

// ListScans returns the caller's history, most recent first.
func (d *Database) ListScans(ctx context.Context, userID string) ([]models.HistoryRecord, error) {
	query := `
	SELECT id, user_id, scan_type, parse_failed, disease_detected, disease_name,
	       confidence, crop_type, probable_cause, description, solution,
	       severity, timestamp
	FROM scan_history
	WHERE user_id = $1
	ORDER BY timestamp DESC`

	rows, err := d.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan history: %w", err)
	}
	defer rows.Close()

	var records []models.HistoryRecord
	for rows.Next() {
		var (
			record          models.HistoryRecord
			diseaseDetected sql.NullBool
			diseaseName     sql.NullString
			confidence      sql.NullInt64
			cropType        sql.NullString
			probableCause   sql.NullString
			description     sql.NullString
			solution        sql.NullString
			severity        sql.NullString
			ts              time.Time
		)

		err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.ScanType,
			&record.ParseFailed,
			&diseaseDetected,
			&diseaseName,
			&confidence,
			&cropType,
			&probableCause,
			&description,
			&solution,
			&severity,
			&ts,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}

		if diseaseDetected.Valid {
			record.DiseaseDetected = &diseaseDetected.Bool
		}
		record.DiseaseName = nullableString(diseaseName)
		if confidence.Valid {
			n := int(confidence.Int64)
			record.Confidence = &n
		}
		record.CropType = nullableString(cropType)
		record.ProbableCause = nullableString(probableCause)
		record.Description = nullableString(description)
		record.Solution = nullableString(solution)
		record.Severity = nullableString(severity)
		record.Timestamp = ts.Format(time.RFC3339)

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scan history: %w", err)
	}

	return records, nil
}

func nullableString(s sql.NullString) *string {
	if s.Valid {
		return &s.String
	}
	return nil
}

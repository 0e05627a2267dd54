// Package storage keeps detected phishing messages in a sql database.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/phishti/smsguard/app/storage/engine"
	"github.com/phishti/smsguard/lib/phishcheck"
)

// Detections is a storage for analyzed messages
type Detections struct {
	db *engine.SQL
	engine.RWLocker
}

// Detection is a stored analysis record
type Detection struct {
	ID             string    `db:"id"`
	Text           string    `db:"text"`
	Source         string    `db:"source"` // where the message came from, i.e. "cli" or "api"
	Phishing       bool      `db:"phishing"`
	Confidence     float64   `db:"confidence"`
	Timestamp      time.Time `db:"timestamp"`
	IndicatorsJSON string    `db:"indicators"` // stored as JSON
	Indicators     []string  `db:"-"`
}

// DetectionStats is a summary of stored records
type DetectionStats struct {
	Total    int `db:"total" json:"total"`
	Phishing int `db:"phishing" json:"phishing"`
}

const detectionsSchema = `CREATE TABLE IF NOT EXISTS detections (
	id TEXT PRIMARY KEY,
	text TEXT,
	source TEXT DEFAULT '',
	phishing BOOLEAN,
	confidence REAL,
	timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
	indicators TEXT
);
CREATE INDEX IF NOT EXISTS idx_detections_timestamp ON detections(timestamp);`

// NewDetections creates detections storage, makes the table if missing
func NewDetections(ctx context.Context, db *engine.SQL) (*Detections, error) {
	if db == nil {
		return nil, fmt.Errorf("no db provided")
	}
	res := &Detections{db: db, RWLocker: db.MakeLock()}
	if err := engine.InitDB(ctx, db, "detections", detectionsSchema, migrateDetections); err != nil {
		return nil, fmt.Errorf("failed to init detections storage: %w", err)
	}
	return res, nil
}

// Write adds a check result, returns id of the new record
func (d *Detections) Write(ctx context.Context, source string, chk phishcheck.Check) (string, error) {
	indicators := chk.Result.Indicators
	if indicators == nil {
		indicators = []string{}
	}
	indJSON, err := json.Marshal(indicators)
	if err != nil {
		return "", fmt.Errorf("failed to marshal indicators: %w", err)
	}
	if chk.Time.IsZero() {
		chk.Time = time.Now()
	}

	d.Lock()
	defer d.Unlock()

	id := uuid.New().String()
	query := `INSERT INTO detections (id, text, source, phishing, confidence, timestamp, indicators) VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := d.db.ExecContext(ctx, query, id, chk.Msg, source, chk.Result.IsPhishing, chk.Result.Confidence,
		chk.Time, string(indJSON)); err != nil {
		return "", fmt.Errorf("failed to insert detection: %w", err)
	}
	log.Printf("[DEBUG] detection %s added, source:%s, phishing:%v", id, source, chk.Result.IsPhishing)
	return id, nil
}

// Read returns up to limit most recent records, all records if limit <= 0
func (d *Detections) Read(ctx context.Context, limit int) ([]Detection, error) {
	d.RLock()
	defer d.RUnlock()

	query := "SELECT id, text, source, phishing, confidence, timestamp, indicators FROM detections ORDER BY timestamp DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var entries []Detection
	if err := d.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get detections: %w", err)
	}

	for i, entry := range entries {
		var indicators []string
		if err := json.Unmarshal([]byte(entry.IndicatorsJSON), &indicators); err != nil {
			return nil, fmt.Errorf("failed to unmarshal indicators for %s: %w", entry.ID, err)
		}
		entries[i].Indicators = indicators
		entries[i].Timestamp = entry.Timestamp.Local()
	}
	return entries, nil
}

// Stats returns number of all and phishing records
func (d *Detections) Stats(ctx context.Context) (DetectionStats, error) {
	d.RLock()
	defer d.RUnlock()

	var res DetectionStats
	query := "SELECT COUNT(*) AS total, COALESCE(SUM(CASE WHEN phishing THEN 1 ELSE 0 END), 0) AS phishing FROM detections"
	if err := d.db.GetContext(ctx, &res, query); err != nil {
		return DetectionStats{}, fmt.Errorf("failed to get detection stats: %w", err)
	}
	return res, nil
}

// migrateDetections adds columns missing in tables made by older versions
func migrateDetections(ctx context.Context, tx *sqlx.Tx) error {
	var cols []struct {
		Name string `db:"name"`
	}
	if err := tx.SelectContext(ctx, &cols, "SELECT name FROM pragma_table_info('detections')"); err != nil {
		return fmt.Errorf("failed to get table info: %w", err)
	}
	for _, c := range cols {
		if c.Name == "source" {
			return nil
		}
	}
	if _, err := tx.ExecContext(ctx, "ALTER TABLE detections ADD COLUMN source TEXT DEFAULT ''"); err != nil {
		return fmt.Errorf("failed to add source column: %w", err)
	}
	log.Printf("[INFO] detections table migrated, source column added")
	return nil
}

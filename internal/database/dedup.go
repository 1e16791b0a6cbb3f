package database

import (
	"fmt"
	"time"
)

// MarkEventProcessed records a webhook event id and reports whether it had
// already been seen. The platform retries deliveries, so duplicates are normal.
func (db *DB) MarkEventProcessed(eventID string) (bool, error) {
	res, err := db.conn.Exec(
		"INSERT OR IGNORE INTO webhook_events (event_id, processed_at) VALUES (?, ?)",
		eventID, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return false, fmt.Errorf("record webhook event: %w", err)
	}
	n, _ := res.RowsAffected()
	return n == 0, nil
}

// PruneEvents drops dedup records older than the retention window.
func (db *DB) PruneEvents(retention time.Duration) error {
	cutoff := time.Now().UTC().Add(-retention).Format(time.RFC3339)
	_, err := db.conn.Exec("DELETE FROM webhook_events WHERE processed_at < ?", cutoff)
	if err != nil {
		return fmt.Errorf("prune webhook events: %w", err)
	}
	return nil
}

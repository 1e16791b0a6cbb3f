package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lucianoherrera1000/vendobot/pkg/models"
)

// GetSession loads a customer's conversation. A missing row is a fresh
// session: state NEW with empty data.
func (db *DB) GetSession(phone string) (models.State, models.OrderData, error) {
	var stateStr, dataJSON string
	err := db.conn.QueryRow(
		"SELECT state, data FROM sessions WHERE phone = ?", phone,
	).Scan(&stateStr, &dataJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return models.StateNew, models.OrderData{}, nil
	}
	if err != nil {
		return models.StateNew, models.OrderData{}, fmt.Errorf("load session: %w", err)
	}

	var data models.OrderData
	if dataJSON != "" {
		if err := json.Unmarshal([]byte(dataJSON), &data); err != nil {
			// Corrupted data restarts the conversation instead of wedging it.
			return models.StateNew, models.OrderData{}, nil
		}
	}
	return models.ParseState(stateStr), data, nil
}

// UpsertSession stores the customer's state and data, last write wins.
func (db *DB) UpsertSession(phone string, state models.State, data models.OrderData) error {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode session data: %w", err)
	}

	_, err = db.conn.Exec(`
		INSERT INTO sessions (phone, state, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(phone) DO UPDATE SET
		  state = excluded.state,
		  data = excluded.data,
		  updated_at = excluded.updated_at`,
		phone, string(state), string(dataJSON), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// ResetSession deletes the session and reports whether one existed.
func (db *DB) ResetSession(phone string) (bool, error) {
	res, err := db.conn.Exec("DELETE FROM sessions WHERE phone = ?", phone)
	if err != nil {
		return false, fmt.Errorf("reset session: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

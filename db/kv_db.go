package db

import (
	"database/sql"
	"time"

	"github.com/adamspd/mcqtest/utils"
)

// Get returns the value stored under key. A missing key is not an error.
func (db *DB) Get(key string) ([]byte, bool, error) {
	utils.LogDB("Executing query: Get(%s)", key)
	start := time.Now()

	var value string
	err := db.QueryRow(`SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		utils.LogDB("Key %s not found (%v)", key, time.Since(start))
		return nil, false, nil
	}
	if err != nil {
		utils.LogError("Get(%s) failed: %v (%v)", key, err, time.Since(start))
		return nil, false, err
	}

	utils.LogDB("Get(%s) returned %d bytes in %v", key, len(value), time.Since(start))
	return []byte(value), true, nil
}

func (db *DB) Set(key string, value []byte) error {
	utils.LogDB("Executing query: Set(%s, %d bytes)", key, len(value))
	start := time.Now()

	_, err := db.Exec(`
		INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, string(value))
	if err != nil {
		utils.LogError("Set(%s) failed: %v (%v)", key, err, time.Since(start))
		return err
	}

	utils.LogDB("Set(%s) completed in %v", key, time.Since(start))
	return nil
}

func (db *DB) Remove(key string) error {
	utils.LogDB("Executing query: Remove(%s)", key)

	result, err := db.Exec(`DELETE FROM kv_store WHERE key = ?`, key)
	if err != nil {
		utils.LogError("Remove(%s) failed: %v", key, err)
		return err
	}

	rowsAffected, _ := result.RowsAffected()
	utils.LogDB("Remove(%s) affected %d rows", key, rowsAffected)
	return nil
}

// Package scan_store persists scan snapshots to a local SQLite archive so
// results survive daemon restarts and can be inspected after the fact.
package scan_store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/OpenScanMux/scanmux-module-go/src/scan_scheduler"
)

// Snapshot kinds stored in the archive.
const (
	KindSingle  = "single"
	KindBatched = "batched"
)

// Store wraps the SQLite archive.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (or creates) the archive at the given path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.WithField("path", path).Info("Opened scan archive")
	return store, nil
}

func (s *Store) createTables() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS scan_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			timestamp_ms INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_snapshots_kind ON scan_snapshots(kind, id)`,

		`CREATE TABLE IF NOT EXISTS scan_aps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			snapshot_id INTEGER NOT NULL,
			ssid TEXT,
			bssid TEXT,
			frequency_mhz INTEGER,
			signal_dbm INTEGER,
			capabilities TEXT,
			vendor_elements TEXT,
			FOREIGN KEY (snapshot_id) REFERENCES scan_snapshots(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_aps_snapshot_id ON scan_aps(snapshot_id)`,
	}

	for _, table := range tables {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to execute: %s: %w", table, err)
		}
	}
	return nil
}

// SaveSnapshot stores one scan snapshot and all of its access points.
func (s *Store) SaveSnapshot(kind string, data scan_scheduler.ScanData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	result, err := tx.Exec(
		`INSERT INTO scan_snapshots (kind, timestamp_ms) VALUES (?, ?)`,
		kind, data.Timestamp)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	snapshotID, err := result.LastInsertId()
	if err != nil {
		tx.Rollback()
		return err
	}

	for _, ap := range data.Results {
		_, err := tx.Exec(
			`INSERT INTO scan_aps (snapshot_id, ssid, bssid, frequency_mhz, signal_dbm, capabilities, vendor_elements)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			snapshotID, ap.SSID, ap.BSSID, ap.FrequencyMHz, ap.SignalDBm,
			ap.Capabilities, strings.Join(ap.VendorElements, ","))
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to save access point: %w", err)
		}
	}

	return tx.Commit()
}

// LatestSnapshots returns up to n most recent snapshots of the given kind,
// newest first.
func (s *Store) LatestSnapshots(kind string, n int) ([]scan_scheduler.ScanData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT id, timestamp_ms FROM scan_snapshots WHERE kind = ? ORDER BY id DESC LIMIT ?`,
		kind, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	type snapshotRow struct {
		id        int64
		timestamp int64
	}
	var snapshots []snapshotRow
	for rows.Next() {
		var row snapshotRow
		if err := rows.Scan(&row.id, &row.timestamp); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var results []scan_scheduler.ScanData
	for _, snapshot := range snapshots {
		aps, err := s.loadAccessPoints(snapshot.id)
		if err != nil {
			return nil, err
		}
		results = append(results, scan_scheduler.ScanData{
			Timestamp: snapshot.timestamp,
			Results:   aps,
		})
	}
	return results, nil
}

func (s *Store) loadAccessPoints(snapshotID int64) ([]scan_scheduler.ScanResult, error) {
	rows, err := s.db.Query(
		`SELECT ssid, bssid, frequency_mhz, signal_dbm, capabilities, vendor_elements
		 FROM scan_aps WHERE snapshot_id = ? ORDER BY id`,
		snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to query access points: %w", err)
	}
	defer rows.Close()

	var aps []scan_scheduler.ScanResult
	for rows.Next() {
		var ap scan_scheduler.ScanResult
		var vendorElements string
		if err := rows.Scan(&ap.SSID, &ap.BSSID, &ap.FrequencyMHz, &ap.SignalDBm,
			&ap.Capabilities, &vendorElements); err != nil {
			return nil, err
		}
		if vendorElements != "" {
			ap.VendorElements = strings.Split(vendorElements, ",")
		}
		aps = append(aps, ap)
	}
	return aps, rows.Err()
}

// Close closes the archive.
func (s *Store) Close() error {
	return s.db.Close()
}

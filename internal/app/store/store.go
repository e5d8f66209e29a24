// Package store persists aircraft snapshots and validated trajectories in a
// single-file SQLite database. Table and column names are part of the
// external contract: reporting tooling reads them directly.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/opensky-lab/flightpipe/internal/app"
)

// Store wraps the SQLite connection for one database file.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at the given path and ensures the
// ingestion schema exists. Safe to call on every run.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open database %s: %v", app.ErrPersistence, path, err)
	}

	// One writer process at a time is the operational model; WAL still keeps
	// the reporting API readable during ingestion.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: enable WAL: %v", app.ErrPersistence, err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: enable foreign keys: %v", app.ErrPersistence, err)
	}

	s := &Store{db: db}
	if err := s.EnsureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the aircraft and snapshot tables if absent. The
// validated-trajectory relation is owned by RebuildTrajectories, which
// recreates it on every analysis run.
func (s *Store) EnsureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS Avion_fisico
	(
		id          INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT UNIQUE,
		icao        TEXT UNIQUE,
		pais_origen TEXT
	);

	CREATE TABLE IF NOT EXISTS Snapshots
	(
		id                INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT UNIQUE,
		Avion_fisico_id   INTEGER REFERENCES Avion_fisico(id),
		posicion_temporal INTEGER,
		tiempo_de_captura INTEGER,
		call_sign         TEXT,
		longitud          FLOAT,
		latitud           FLOAT,
		velocidad         FLOAT,
		altitud           FLOAT
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_avion ON Snapshots(Avion_fisico_id);
	CREATE INDEX IF NOT EXISTS idx_snapshots_tiempo ON Snapshots(posicion_temporal);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("%w: create schema: %v", app.ErrPersistence, err)
	}
	return nil
}

// InsertBatch appends one snapshot per state vector, upserting aircraft
// identity by icao, inside a single transaction. Any failure rolls the whole
// batch back so a run never leaves partial inserts behind.
func (s *Store) InsertBatch(ctx context.Context, capturedAt time.Time, states []app.StateVector) (int, error) {
	if len(states) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin transaction: %v", app.ErrPersistence, err)
	}

	inserted, err := s.insertAll(ctx, tx, capturedAt, states)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit batch: %v", app.ErrPersistence, err)
	}
	return inserted, nil
}

func (s *Store) insertAll(ctx context.Context, tx *sql.Tx, capturedAt time.Time, states []app.StateVector) (int, error) {
	inserted := 0
	for _, sv := range states {
		aircraftID, err := upsertAircraft(ctx, tx, sv.ICAO24, sv.OriginCountry)
		if err != nil {
			return 0, err
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO Snapshots (Avion_fisico_id, posicion_temporal, tiempo_de_captura, call_sign, longitud, latitud, velocidad, altitud)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			aircraftID,
			nullInt(sv.TimePosition),
			capturedAt.Unix(),
			sv.CallSign,
			nullFloat(sv.Longitude),
			nullFloat(sv.Latitude),
			nullFloat(sv.Velocity),
			nullFloat(sv.Altitude),
		)
		if err != nil {
			return 0, fmt.Errorf("%w: insert snapshot for %s: %v", app.ErrPersistence, sv.ICAO24, err)
		}
		inserted++
	}
	return inserted, nil
}

// upsertAircraft inserts the aircraft row if the physical identifier is new
// and returns the surrogate key either way.
func upsertAircraft(ctx context.Context, tx *sql.Tx, icao, country string) (int64, error) {
	_, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO Avion_fisico (icao, pais_origen) VALUES (?, ?)`,
		icao, country)
	if err != nil {
		return 0, fmt.Errorf("%w: upsert aircraft %s: %v", app.ErrPersistence, icao, err)
	}

	var id int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM Avion_fisico WHERE icao = ?`, icao).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: resolve aircraft id for %s: %v", app.ErrPersistence, icao, err)
	}
	return id, nil
}

func nullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

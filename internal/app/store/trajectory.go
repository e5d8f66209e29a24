package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/opensky-lab/flightpipe/internal/app"
)

// RebuildTrajectories recomputes the Trayectorias_validas relation from
// scratch. An aircraft qualifies with at least 2 snapshots spanning at least
// 900 seconds and no null coordinates anywhere in its group. Snapshots
// without posicion_temporal cannot be ordered and are ignored entirely, so
// count, span, endpoints and the null-coordinate check all see the same rows.
// The single SQL statement keeps the predicate in one place; start/end rows
// with tied extremal timestamps resolve to the lowest snapshot row id, which
// makes the output deterministic for an unchanged snapshot table.
func (s *Store) RebuildTrajectories(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin transaction: %v", app.ErrPersistence, err)
	}

	stmts := []string{
		`DROP TABLE IF EXISTS Trayectorias_validas`,
		`CREATE TABLE Trayectorias_validas
		(
			Avion_fisico_id          INTEGER NOT NULL PRIMARY KEY REFERENCES Avion_fisico(id),
			inicio_posicion_temporal INTEGER NOT NULL,
			fin_posicion_temporal    INTEGER NOT NULL,
			duracion_segundos        INTEGER NOT NULL,
			duracion_horas           REAL,
			lat_inicio               REAL NOT NULL,
			lon_inicio               REAL NOT NULL,
			lat_fin                  REAL NOT NULL,
			lon_fin                  REAL NOT NULL,
			num_snapshots            INTEGER NOT NULL,
			distancia_inicio_a_fin_km REAL
		)`,
		`INSERT INTO Trayectorias_validas
			(Avion_fisico_id, inicio_posicion_temporal, fin_posicion_temporal,
			 duracion_segundos, lat_inicio, lon_inicio, lat_fin, lon_fin, num_snapshots)
		 SELECT g.Avion_fisico_id,
		        g.min_t,
		        g.max_t,
		        g.max_t - g.min_t,
		        s_ini.latitud,
		        s_ini.longitud,
		        s_fin.latitud,
		        s_fin.longitud,
		        g.cnt
		 FROM (
		     SELECT Avion_fisico_id,
		            MIN(posicion_temporal) AS min_t,
		            MAX(posicion_temporal) AS max_t,
		            COUNT(*)               AS cnt
		     FROM Snapshots
		     WHERE posicion_temporal IS NOT NULL
		     GROUP BY Avion_fisico_id
		     HAVING COUNT(*) >= 2
		        AND MAX(posicion_temporal) - MIN(posicion_temporal) >= 900
		        AND SUM(CASE WHEN latitud IS NULL OR longitud IS NULL THEN 1 ELSE 0 END) = 0
		 ) g
		 JOIN Snapshots s_ini ON s_ini.id = (
		     SELECT id FROM Snapshots
		     WHERE Avion_fisico_id = g.Avion_fisico_id
		       AND posicion_temporal IS NOT NULL
		     ORDER BY posicion_temporal ASC, id ASC LIMIT 1)
		 JOIN Snapshots s_fin ON s_fin.id = (
		     SELECT id FROM Snapshots
		     WHERE Avion_fisico_id = g.Avion_fisico_id
		       AND posicion_temporal IS NOT NULL
		     ORDER BY posicion_temporal DESC, id ASC LIMIT 1)`,
	}

	var materialized int64
	for i, stmt := range stmts {
		res, err := tx.ExecContext(ctx, stmt)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("%w: rebuild trajectories: %v", app.ErrPersistence, err)
		}
		if i == len(stmts)-1 {
			materialized, _ = res.RowsAffected()
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit trajectories: %v", app.ErrPersistence, err)
	}
	return materialized, nil
}

// UpdateDurations persists duracion_horas = round(duracion_segundos/3600, 2)
// for every trajectory row. Idempotent; rewriting yields identical values.
func (s *Store) UpdateDurations(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE Trayectorias_validas
		 SET duracion_horas = ROUND(duracion_segundos / 3600.0, 2)`)
	if err != nil {
		return fmt.Errorf("%w: update durations: %v", app.ErrPersistence, err)
	}
	return nil
}

// TrajectoriesMissingDistance returns the rows still lacking a distance
// value, ordered by aircraft id.
func (s *Store) TrajectoriesMissingDistance(ctx context.Context) ([]app.Trajectory, error) {
	rows, err := s.db.QueryContext(ctx,
		trajectorySelect+` WHERE t.distancia_inicio_a_fin_km IS NULL ORDER BY t.Avion_fisico_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: query unenriched trajectories: %v", app.ErrPersistence, err)
	}
	return scanTrajectories(rows)
}

// SetDistance writes the computed kilometers value for one aircraft.
func (s *Store) SetDistance(ctx context.Context, aircraftID int64, km float64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE Trayectorias_validas
		 SET distancia_inicio_a_fin_km = ?
		 WHERE Avion_fisico_id = ?`, km, aircraftID)
	if err != nil {
		return fmt.Errorf("%w: set distance for aircraft %d: %v", app.ErrPersistence, aircraftID, err)
	}
	return nil
}

// Trajectories returns validated trajectories for reporting, longest first.
// minKm < 0 disables the distance filter; limit <= 0 falls back to 100.
func (s *Store) Trajectories(ctx context.Context, minKm float64, limit int) ([]app.Trajectory, error) {
	if limit <= 0 {
		limit = 100
	}

	query := trajectorySelect
	args := []interface{}{}
	if minKm >= 0 {
		query += ` WHERE t.distancia_inicio_a_fin_km >= ?`
		args = append(args, minKm)
	}
	query += ` ORDER BY t.distancia_inicio_a_fin_km DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query trajectories: %v", app.ErrPersistence, err)
	}
	return scanTrajectories(rows)
}

const trajectorySelect = `
	SELECT t.Avion_fisico_id, a.icao,
	       t.inicio_posicion_temporal, t.fin_posicion_temporal,
	       t.duracion_segundos, t.duracion_horas,
	       t.lat_inicio, t.lon_inicio, t.lat_fin, t.lon_fin,
	       t.num_snapshots, t.distancia_inicio_a_fin_km
	FROM Trayectorias_validas t
	JOIN Avion_fisico a ON a.id = t.Avion_fisico_id`

func scanTrajectories(rows *sql.Rows) ([]app.Trajectory, error) {
	defer rows.Close()

	result := make([]app.Trajectory, 0)
	for rows.Next() {
		var tr app.Trajectory
		var hours, km sql.NullFloat64
		if err := rows.Scan(&tr.AircraftID, &tr.ICAO24,
			&tr.StartTime, &tr.EndTime,
			&tr.DurationSeconds, &hours,
			&tr.StartLat, &tr.StartLon, &tr.EndLat, &tr.EndLon,
			&tr.SnapshotCount, &km); err != nil {
			return nil, fmt.Errorf("%w: scan trajectory: %v", app.ErrPersistence, err)
		}
		if hours.Valid {
			tr.DurationHours = &hours.Float64
		}
		if km.Valid {
			tr.DistanceKm = &km.Float64
		}
		result = append(result, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate trajectories: %v", app.ErrPersistence, err)
	}
	return result, nil
}

// SnapshotsByICAO returns the raw snapshots of one aircraft in observation
// order, for the reporting API.
func (s *Store) SnapshotsByICAO(ctx context.Context, icao string) ([]app.StateVector, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.icao, a.pais_origen, s.call_sign,
		        s.posicion_temporal, s.longitud, s.latitud, s.velocidad, s.altitud
		 FROM Snapshots s
		 JOIN Avion_fisico a ON a.id = s.Avion_fisico_id
		 WHERE a.icao = ?
		 ORDER BY s.posicion_temporal ASC, s.id ASC`, icao)
	if err != nil {
		return nil, fmt.Errorf("%w: query snapshots for %s: %v", app.ErrPersistence, icao, err)
	}
	defer rows.Close()

	result := make([]app.StateVector, 0)
	for rows.Next() {
		var sv app.StateVector
		var ts sql.NullInt64
		var lon, lat, vel, alt sql.NullFloat64
		if err := rows.Scan(&sv.ICAO24, &sv.OriginCountry, &sv.CallSign,
			&ts, &lon, &lat, &vel, &alt); err != nil {
			return nil, fmt.Errorf("%w: scan snapshot: %v", app.ErrPersistence, err)
		}
		if ts.Valid {
			sv.TimePosition = &ts.Int64
		}
		if lon.Valid {
			sv.Longitude = &lon.Float64
		}
		if lat.Valid {
			sv.Latitude = &lat.Float64
		}
		if vel.Valid {
			sv.Velocity = &vel.Float64
		}
		if alt.Valid {
			sv.Altitude = &alt.Float64
		}
		result = append(result, sv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate snapshots: %v", app.ErrPersistence, err)
	}
	return result, nil
}

// AircraftCount reports how many distinct physical aircraft have been seen.
func (s *Store) AircraftCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM Avion_fisico`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: count aircraft: %v", app.ErrPersistence, err)
	}
	return n, nil
}

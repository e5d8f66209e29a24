package internal

import (
	"context"

	"github.com/opensky-lab/flightpipe/internal/app/geo"
	"github.com/opensky-lab/flightpipe/internal/app/store"
	"github.com/sirupsen/logrus"
)

// Analyze - rebuild the validated-trajectory relation from the accumulated
// snapshots, then enrich every row with great-circle distance and duration in
// hours. Bad coordinate domains are row-scoped failures: logged, counted and
// skipped while the remaining rows are still processed.
func Analyze(ctx context.Context, log *logrus.Logger, dbPath string) error {

	log.WithContext(ctx).WithFields(logrus.Fields{
		"database": dbPath,
	}).Info("START analysis run")

	s, errOpen := store.Open(dbPath)
	if errOpen != nil {
		log.WithContext(ctx).WithFields(logrus.Fields{
			"Error": errOpen,
		}).Error("Unable to open database")
		return errOpen
	}
	defer s.Close()

	materialized, errRebuild := s.RebuildTrajectories(ctx)
	if errRebuild != nil {
		log.WithContext(ctx).WithFields(logrus.Fields{
			"Error": errRebuild,
		}).Error("Unable to rebuild trajectories")
		return errRebuild
	}
	log.WithContext(ctx).WithFields(logrus.Fields{
		"Trajectories": materialized,
	}).Info("Validated trajectories materialized")

	if materialized == 0 {
		log.WithContext(ctx).Info("No valid trajectories to process")
		return nil
	}

	if errDur := s.UpdateDurations(ctx); errDur != nil {
		log.WithContext(ctx).WithFields(logrus.Fields{
			"Error": errDur,
		}).Error("Unable to update durations")
		return errDur
	}

	pending, errPending := s.TrajectoriesMissingDistance(ctx)
	if errPending != nil {
		log.WithContext(ctx).WithFields(logrus.Fields{
			"Error": errPending,
		}).Error("Unable to list unenriched trajectories")
		return errPending
	}

	enriched, skipped := 0, 0
	for _, tr := range pending {
		if !geo.ValidCoordinates(tr.StartLat, tr.StartLon) ||
			!geo.ValidCoordinates(tr.EndLat, tr.EndLon) {
			log.WithContext(ctx).WithFields(logrus.Fields{
				"icao24":   tr.ICAO24,
				"latStart": tr.StartLat,
				"lonStart": tr.StartLon,
				"latEnd":   tr.EndLat,
				"lonEnd":   tr.EndLon,
			}).Warn("Coordinates outside geographic domain, row skipped")
			skipped++
			continue
		}

		km := geo.GreatCircleKm(tr.StartLat, tr.StartLon, tr.EndLat, tr.EndLon)
		if errSet := s.SetDistance(ctx, tr.AircraftID, km); errSet != nil {
			log.WithContext(ctx).WithFields(logrus.Fields{
				"Error": errSet,
			}).Error("Unable to persist distance")
			return errSet
		}
		enriched++
	}

	log.WithContext(ctx).WithFields(logrus.Fields{
		"Enriched": enriched,
		"Skipped":  skipped,
	}).Info("Distance enrichment done")

	return nil
}

package internal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opensky-lab/flightpipe/config"
	"github.com/opensky-lab/flightpipe/internal/app"
	"github.com/opensky-lab/flightpipe/internal/app/opensky"
	dbSinker "github.com/opensky-lab/flightpipe/internal/app/sinkers/db"
	fileSinker "github.com/opensky-lab/flightpipe/internal/app/sinkers/file"
	stdoutSinker "github.com/opensky-lab/flightpipe/internal/app/sinkers/stdout"
	"github.com/opensky-lab/flightpipe/internal/app/store"
	"github.com/sirupsen/logrus"
)

// Ingest - run one ingestion pass: credentials, token exchange, state fetch
// and one transactional snapshot batch into the SQLite store at dbPath.
// Every stage failure aborts the run; scheduling retries is the job of
// whatever invokes the binary.
func Ingest(ctx context.Context,
	log *logrus.Logger,
	conf config.Configuration,
	dbPath string) error {

	log.WithContext(ctx).WithFields(logrus.Fields{
		"database":      dbPath,
		"credentials":   conf.Opensky.Credentials,
		"countryFilter": conf.Ingest.Country,
		"sinkerType":    conf.Ingest.Sinkertype,
		"timeout (sec)": conf.Opensky.Timeout,
	}).Info("START ingestion run with Configuration params: ")

	creds, errCreds := opensky.LoadCredentials(conf.Opensky.Credentials)
	if errCreds != nil {
		log.WithContext(ctx).WithFields(logrus.Fields{
			"Error": errCreds,
		}).Error("Unable to load credentials")
		return errCreds
	}

	client := opensky.New(creds, conf.Opensky.Tokenurl, conf.Opensky.Statesurl,
		time.Duration(conf.Opensky.Timeout)*time.Second)

	if errAuth := client.Authenticate(ctx); errAuth != nil {
		log.WithContext(ctx).WithFields(logrus.Fields{
			"Error": errAuth,
		}).Error("Unable to obtain access token")
		return errAuth
	}

	states, errFetch := client.FetchStates(ctx)
	if errFetch != nil {
		log.WithContext(ctx).WithFields(logrus.Fields{
			"Error": errFetch,
		}).Error("Unable to fetch state vectors")
		return errFetch
	}

	capturedAt := time.Now()
	filtered := filterByCountry(states, conf.Ingest.Country)
	log.WithContext(ctx).WithFields(logrus.Fields{
		"fetched":  len(states),
		"filtered": len(filtered),
	}).Info("State vectors fetched")

	s, errOpen := store.Open(dbPath)
	if errOpen != nil {
		log.WithContext(ctx).WithFields(logrus.Fields{
			"Error": errOpen,
		}).Error("Unable to open database")
		return errOpen
	}
	defer s.Close()

	inserted, errInsert := s.InsertBatch(ctx, capturedAt, filtered)
	if errInsert != nil {
		log.WithContext(ctx).WithFields(logrus.Fields{
			"Error": errInsert,
		}).Error("Unable to insert snapshot batch")
		return errInsert
	}
	log.WithContext(ctx).WithFields(logrus.Fields{
		"Rows inserted": inserted,
	}).Info("Snapshot batch committed")

	// Optional raw mirror. A sink failure is logged but never fails the run:
	// the SQLite store is the source of truth.
	if errSink := mirror(ctx, log, conf, capturedAt, filtered); errSink != nil {
		log.WithContext(ctx).WithFields(logrus.Fields{
			"Error": errSink,
		}).Warn("Raw sink failed")
	}

	return nil
}

func filterByCountry(states []app.StateVector, country string) []app.StateVector {
	if country == "" {
		return states
	}
	result := make([]app.StateVector, 0, len(states))
	for _, sv := range states {
		if sv.OriginCountry == country {
			result = append(result, sv)
		}
	}
	return result
}

func mirror(ctx context.Context,
	log *logrus.Logger,
	conf config.Configuration,
	t time.Time,
	states []app.StateVector) error {

	var sinker app.RawSink
	var params interface{}

	switch conf.Ingest.Sinkertype {
	case "NONE", "":
		return nil
	case "STDOUT":
		sinker = stdoutSinker.New(log)
	case "FILE":
		sinker = fileSinker.New(log)
		params = conf.Ingest.File
	case "DB":
		sinker = dbSinker.New(log)
		params = conf.Ingest.Postgres
	default:
		return errors.New("wrong sinker specified: " + conf.Ingest.Sinkertype)
	}

	if errInit := sinker.Init(ctx, params); errInit != nil {
		return fmt.Errorf("init %s sinker: %w", conf.Ingest.Sinkertype, errInit)
	}
	return sinker.Sink(ctx, t, states)
}

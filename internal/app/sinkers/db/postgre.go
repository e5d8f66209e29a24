package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/opensky-lab/flightpipe/internal/app"
	"github.com/sirupsen/logrus"
)

const (
	schemaname = "flightpipe"
	tablename  = "state_vector"
)

type PostGreSinker struct {
	Log *logrus.Logger
	db  *sql.DB
}

func New(log *logrus.Logger) app.RawSink {
	return &PostGreSinker{Log: log}
}

func (s *PostGreSinker) Init(ctx context.Context, params interface{}) error {
	parameters := params.(Configuration)

	// Init the connection to the database
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s "+
		"password=%s dbname=%s sslmode=disable",
		parameters.Host, parameters.Port, parameters.User, parameters.Password, parameters.Dbname)

	db, err := sql.Open("postgres", psqlInfo)
	if err != nil {
		return err
	}

	err = db.Ping()
	if err != nil {
		return err
	}

	s.Log.WithContext(ctx).Info("Successfully connected : " + parameters.Host)

	s.db = db

	createSchemaSQL := "CREATE SCHEMA IF NOT EXISTS " + schemaname
	s.Log.WithContext(ctx).WithFields(logrus.Fields{
		"SQL": createSchemaSQL,
	}).Debug("create schema")
	_, err = s.db.Exec(createSchemaSQL)
	if err != nil {
		return err
	}

	createTableSQL := "CREATE TABLE IF NOT EXISTS " + schemaname + "." + tablename +
		" (icao24 varchar(10) NOT NULL, call_sign varchar(10), origin_country varchar(60)," +
		" time_position bigint, captured_at timestamp, lon decimal, lat decimal," +
		" velocity decimal, altitude decimal)"
	s.Log.WithContext(ctx).WithFields(logrus.Fields{
		"SQL": createTableSQL,
	}).Debug("create table")

	_, err = s.db.Exec(createTableSQL)
	if err != nil {
		return err
	}

	return nil
}

func (s *PostGreSinker) Sink(ctx context.Context, t time.Time, states []app.StateVector) error {
	if len(states) == 0 {
		return nil
	}

	insertSQL := "INSERT INTO " + schemaname + "." + tablename +
		" VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)"

	nbRow := int64(0)
	for _, sv := range states {
		result, err := s.db.ExecContext(ctx, insertSQL,
			sv.ICAO24,
			sv.CallSign,
			sv.OriginCountry,
			nullInt(sv.TimePosition),
			t,
			nullFloat(sv.Longitude),
			nullFloat(sv.Latitude),
			nullFloat(sv.Velocity),
			nullFloat(sv.Altitude),
		)
		if err != nil {
			return err
		}

		nb, _ := result.RowsAffected()
		nbRow = nbRow + nb
	}
	s.Log.WithContext(ctx).WithFields(logrus.Fields{"Rows Affected": nbRow}).Info("Insert in DB ...")

	return nil
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

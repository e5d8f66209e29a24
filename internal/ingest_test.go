package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensky-lab/flightpipe/config"
	"github.com/opensky-lab/flightpipe/internal/app"
	"github.com/opensky-lab/flightpipe/internal/app/store"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.Formatter = new(logrus.TextFormatter)
	log.Formatter.(*logrus.TextFormatter).DisableColors = true
	log.Formatter.(*logrus.TextFormatter).DisableTimestamp = true
	log.Level = logrus.ErrorLevel
	return log
}

func testConf(t *testing.T, tokenURL, statesURL string) config.Configuration {
	t.Helper()
	credsPath := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(credsPath,
		[]byte(`{"clientId":"id","clientSecret":"sec"}`), 0644))

	conf := config.Configuration{}
	conf.Opensky.Credentials = credsPath
	conf.Opensky.Tokenurl = tokenURL
	conf.Opensky.Statesurl = statesURL
	conf.Opensky.Timeout = 5
	conf.Ingest.Country = "Mexico"
	conf.Ingest.Sinkertype = "NONE"
	return conf
}

func openSkyTestServer(t *testing.T, states [][]interface{}) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "tok", "expires_in": 1800,
		})
	})
	mux.HandleFunc("/states/all", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"time": 1700000000, "states": states,
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestIngestRun(t *testing.T) {
	srv := openSkyTestServer(t, [][]interface{}{
		{"0d07a2", "AMX123 ", "Mexico", 1700000000, 1700000002, -99.1332, 19.4326, 11000.0, false, 230.5},
		{"0d07b3", "VOI456 ", "Mexico", 1700000000, 1700000002, -86.8515, 21.0417, 10200.0, false, 210.0},
		{"abc999", "UAL789 ", "United States", 1700000000, 1700000002, -73.9, 40.7, 9800.0, false, 240.0},
	})

	conf := testConf(t, srv.URL+"/token", srv.URL+"/states/all")
	dbPath := filepath.Join(t.TempDir(), "flights.db")

	require.NoError(t, Ingest(context.Background(), testLogger(), conf, dbPath))

	s, err := store.Open(dbPath)
	require.NoError(t, err)
	defer s.Close()

	// The non-Mexico state is filtered out before insert.
	count, err := s.AircraftCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	snaps, err := s.SnapshotsByICAO(context.Background(), "0d07a2")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	require.NotNil(t, snaps[0].Latitude)
	assert.InDelta(t, 19.4326, *snaps[0].Latitude, 0.0001)
}

func TestIngestEmptyStatesIsNotAnError(t *testing.T) {
	srv := openSkyTestServer(t, [][]interface{}{})
	conf := testConf(t, srv.URL+"/token", srv.URL+"/states/all")
	dbPath := filepath.Join(t.TempDir(), "flights.db")

	require.NoError(t, Ingest(context.Background(), testLogger(), conf, dbPath))

	s, err := store.Open(dbPath)
	require.NoError(t, err)
	defer s.Close()

	count, err := s.AircraftCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestIngestUnknownSinkerTypeDoesNotAbort(t *testing.T) {
	srv := openSkyTestServer(t, [][]interface{}{
		{"0d07a2", "AMX123 ", "Mexico", 1700000000, 1700000002, -99.1332, 19.4326, 11000.0, false, 230.5},
	})
	conf := testConf(t, srv.URL+"/token", srv.URL+"/states/all")
	conf.Ingest.Sinkertype = "KAFKA"
	dbPath := filepath.Join(t.TempDir(), "flights.db")

	// The mirror is a convenience; a bad sinker must not fail the run.
	require.NoError(t, Ingest(context.Background(), testLogger(), conf, dbPath))

	s, err := store.Open(dbPath)
	require.NoError(t, err)
	defer s.Close()

	count, err := s.AircraftCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestIngestFileSinkerFailureDoesNotAbort(t *testing.T) {
	srv := openSkyTestServer(t, [][]interface{}{
		{"0d07a2", "AMX123 ", "Mexico", 1700000000, 1700000002, -99.1332, 19.4326, 11000.0, false, 230.5},
	})
	conf := testConf(t, srv.URL+"/token", srv.URL+"/states/all")
	conf.Ingest.Sinkertype = "FILE"
	conf.Ingest.File.Outputraw = "rawStates.log"

	dir := t.TempDir()
	chdir(t, dir)
	// A plain file named "log" makes the sinker's output path unusable.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "log"), []byte("x"), 0644))

	dbPath := filepath.Join(t.TempDir(), "flights.db")
	require.NoError(t, Ingest(context.Background(), testLogger(), conf, dbPath))

	s, err := store.Open(dbPath)
	require.NoError(t, err)
	defer s.Close()

	// The batch still committed even though the mirror never initialized.
	count, err := s.AircraftCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestIngestFileSinkerWritesRaw(t *testing.T) {
	srv := openSkyTestServer(t, [][]interface{}{
		{"0d07a2", "AMX123 ", "Mexico", 1700000000, 1700000002, -99.1332, 19.4326, 11000.0, false, 230.5},
	})
	conf := testConf(t, srv.URL+"/token", srv.URL+"/states/all")
	conf.Ingest.Sinkertype = "FILE"
	conf.Ingest.File.Outputraw = "rawStates.log"

	chdir(t, t.TempDir())

	dbPath := filepath.Join(t.TempDir(), "flights.db")
	require.NoError(t, Ingest(context.Background(), testLogger(), conf, dbPath))

	raw, err := os.ReadFile(filepath.Join("log", "rawStates.log"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "0d07a2")
}

func TestIngestMissingCredentialsMakesNoNetworkCall(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	conf := config.Configuration{}
	conf.Opensky.Credentials = filepath.Join(t.TempDir(), "absent.json")
	conf.Opensky.Tokenurl = srv.URL
	conf.Opensky.Statesurl = srv.URL

	err := Ingest(context.Background(), testLogger(), conf, filepath.Join(t.TempDir(), "x.db"))
	require.ErrorIs(t, err, app.ErrConfiguration)
	assert.Equal(t, 0, calls)
}

func TestIngestAuthRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	conf := testConf(t, srv.URL, srv.URL)
	err := Ingest(context.Background(), testLogger(), conf, filepath.Join(t.TempDir(), "x.db"))
	assert.ErrorIs(t, err, app.ErrAuthentication)
}

func TestFilterByCountry(t *testing.T) {
	states := []app.StateVector{
		{ICAO24: "a", OriginCountry: "Mexico"},
		{ICAO24: "b", OriginCountry: "France"},
		{ICAO24: "c", OriginCountry: "Mexico"},
	}

	filtered := filterByCountry(states, "Mexico")
	require.Len(t, filtered, 2)
	assert.Equal(t, "a", filtered[0].ICAO24)
	assert.Equal(t, "c", filtered[1].ICAO24)

	// Empty filter keeps everything.
	assert.Len(t, filterByCountry(states, ""), 3)
}

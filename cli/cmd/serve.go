package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/opensky-lab/flightpipe/internal/app"
	"github.com/opensky-lab/flightpipe/internal/app/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type trajectoriesResponse struct {
	NbTrajectories int              `json:"nbTrajectories"`
	Data           []app.Trajectory `json:"data"`
}

type snapshotsResponse struct {
	ICAO24      string            `json:"icao24"`
	NbSnapshots int               `json:"nbSnapshots"`
	Data        []app.StateVector `json:"data"`
}

// serveCmd represents the serve command
// see https://dev.to/moficodes/build-your-first-rest-api-with-go-2gcj
var serveCmd = &cobra.Command{
	Use:   "serve <path_to_sqlite_db>",
	Short: "Start a read-only reporting REST API over an existing database",
	Long: `Expose the validated trajectories and raw snapshots of an existing
	database over HTTP. The batch pipeline never depends on this service; it is
	a reporting convenience for tooling layered on top of the store.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		// Initialize config
		initConfig()

		if _, errStat := os.Stat(args[0]); os.IsNotExist(errStat) {
			log.WithContext(ctx).WithFields(logrus.Fields{
				"database": args[0],
			}).Error("Database file doesn't exist")
			os.Exit(1)
		}

		s, errOpen := store.Open(args[0])
		if errOpen != nil {
			log.WithContext(ctx).WithFields(logrus.Fields{
				"Error": errOpen,
			}).Error("Unable to open database")
			os.Exit(1)
		}
		defer s.Close()

		r := mux.NewRouter()
		api := r.PathPrefix("/api/v1").Subrouter()
		api.HandleFunc("/trajectories", trajectoriesHandler(s)).Methods(http.MethodGet)
		api.HandleFunc("/aircraft/{icao}/snapshots", snapshotsHandler(s)).Methods(http.MethodGet)

		log.WithContext(ctx).WithFields(logrus.Fields{
			"listen": conf.Serve.Listen,
		}).Info("Reporting API started")

		//Start http server here
		log.Fatal(http.ListenAndServe(conf.Serve.Listen, r))
	},
}

// trajectoriesHandler lists validated trajectories, longest first.
// params : minKm (optional), limit (optional)
func trajectoriesHandler(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		query := r.URL.Query()

		minKm := -1.0
		if v := query.Get("minKm"); v != "" {
			parsed, errParse := strconv.ParseFloat(v, 64)
			if errParse != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(fmt.Sprintf(`{"message": "minKm needs a number (%s)"}`, errParse.Error())))
				return
			}
			minKm = parsed
		}

		limit := 0
		if v := query.Get("limit"); v != "" {
			parsed, errParse := strconv.Atoi(v)
			if errParse != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(fmt.Sprintf(`{"message": "limit needs a number (%s)"}`, errParse.Error())))
				return
			}
			limit = parsed
		}

		data, errQuery := s.Trajectories(r.Context(), minKm, limit)
		if errQuery != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(fmt.Sprintf(`{"message": "internal server error (%s)"}`, errQuery.Error())))
			return
		}

		response := trajectoriesResponse{
			NbTrajectories: len(data),
			Data:           data,
		}

		result, errJsonMarshal := json.Marshal(response)
		if errJsonMarshal != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(fmt.Sprintf(`{"message": "internal server error (%s)"}`, errJsonMarshal.Error())))
			return
		}

		w.Write(result)
	}
}

// snapshotsHandler lists the raw snapshots of one aircraft in observation order.
func snapshotsHandler(s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		icao := mux.Vars(r)["icao"]

		data, errQuery := s.SnapshotsByICAO(r.Context(), icao)
		if errQuery != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(fmt.Sprintf(`{"message": "internal server error (%s)"}`, errQuery.Error())))
			return
		}

		if len(data) == 0 {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(fmt.Sprintf(`{"message": "no snapshots for aircraft %s"}`, icao)))
			return
		}

		response := snapshotsResponse{
			ICAO24:      icao,
			NbSnapshots: len(data),
			Data:        data,
		}

		result, errJsonMarshal := json.Marshal(response)
		if errJsonMarshal != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(fmt.Sprintf(`{"message": "internal server error (%s)"}`, errJsonMarshal.Error())))
			return
		}

		w.Write(result)
	}
}

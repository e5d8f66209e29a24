package cmd

import (
	"context"
	"os"

	"github.com/opensky-lab/flightpipe/internal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest <path_to_sqlite_db>",
	Short: "Run one snapshot ingestion pass against the OpenSky API",
	Long: `Load OpenSky credentials, exchange them for a bearer token, fetch the
	current state vectors and append one snapshot per aircraft to the SQLite
	database (created if absent). The whole batch is one transaction.
	Intended to be invoked repeatedly by an external scheduler such as cron;
	any stage failure exits non-zero so the next scheduled run retries from
	scratch.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		// Initialize config
		initConfig()

		errExec := internal.Ingest(ctx, log, *conf, args[0])
		if errExec != nil {
			log.WithContext(ctx).WithFields(logrus.Fields{
				"Error": errExec,
			}).Error("Error in ingestion processing")
			os.Exit(1)
		}
	},
}

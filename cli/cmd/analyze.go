package cmd

import (
	"context"
	"os"

	"github.com/opensky-lab/flightpipe/internal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <path_to_sqlite_db>",
	Short: "Validate accumulated trajectories and enrich them with distance and duration",
	Long: `Recompute the validated-trajectory table from the accumulated snapshots
	(at least 2 observations spanning at least 900 seconds, no null coordinates),
	then fill in great-circle distance in kilometers and duration in hours for
	every trajectory.`,
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

		errExec := internal.Analyze(ctx, log, args[0])
		if errExec != nil {
			log.WithContext(ctx).WithFields(logrus.Fields{
				"Error": errExec,
			}).Error("Error in analysis processing")
			os.Exit(1)
		}
	},
}

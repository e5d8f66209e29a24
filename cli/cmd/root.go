package cmd

import (
	"fmt"
	"os"
	"strings"

	defaults "github.com/mcuadros/go-defaults"
	"github.com/opensky-lab/flightpipe/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "flightpipe",
	Short: "Flightpipe ingests OpenSky state snapshots and derives trajectory features",
	Long: `Flightpipe periodically ingests aircraft state snapshots from the OpenSky
	Network API into a single-file SQLite database, validates which aircraft have a
	sufficiently complete observed trajectory, and enriches each validated
	trajectory with great-circle distance and duration.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

var (
	log     *logrus.Logger
	cfgFile string
	conf    = &config.Configuration{}
)

func init() {
	//log handling
	log = logrus.New()
	log.Formatter = new(logrus.TextFormatter)                  //default
	log.Formatter.(*logrus.TextFormatter).DisableColors = true // remove colors
	log.Level = logrus.InfoLevel
	log.Out = os.Stdout

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (TOML); defaults apply when absent")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

func initConfig() {
	for k := range asEnvVariables(conf, "", false) {
		err := viper.BindEnv(strings.ToLower(strings.Replace(k, "_", ".", -1)), "FP_"+k)
		if err != nil {
			log.WithFields(logrus.Fields{
				"var": "FP_" + k,
			}).Error("Unable to bind environment variable")
		}
	}

	switch {
	case cfgFile != "":
		// If the config file doesn't exists, let's exit
		if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
			log.WithFields(logrus.Fields{
				"err": err,
			}).Fatal("File doesn't exists")
		}

		log.WithFields(logrus.Fields{
			"File": cfgFile,
		}).Info("Reading configuration file")

		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			log.WithFields(logrus.Fields{
				"err": err,
			}).Fatal("Unable to read config")
		}
	default:
		defaults.SetDefaults(conf)
	}

	if err := viper.Unmarshal(conf); err != nil {
		log.WithFields(logrus.Fields{
			"err": err,
		}).Fatal("Unable to parse config")
	}

	if level, errLevel := logrus.ParseLevel(conf.Log.Level); errLevel == nil {
		log.Level = level
	}
}

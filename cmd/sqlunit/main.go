package main

import (
	"os"
	"strings"

	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/sqlunit/cmd/sqlunit/cmds"
	"github.com/pkg/profile"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	_ "github.com/go-sql-driver/mysql" // MySQL driver for database/sql
	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx driver
	_ "github.com/lib/pq"              // registers the postgres driver
	_ "github.com/mattn/go-sqlite3"    // registers the sqlite3 driver
	_ "modernc.org/sqlite"             // registers the pure go sqlite driver
)

var cpuProfile interface{ Stop() }

var rootCmd = &cobra.Command{
	Use:   "sqlunit",
	Short: "sqlunit opens named persistence units and runs queries against them",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		viper.SetEnvPrefix("sqlunit")

		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.sqlunit")
		viper.AddConfigPath("/etc/sqlunit")

		// Read the configuration file into Viper
		err := viper.ReadInConfig()
		// if the file does not exist, continue normally
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && err != nil {
			return err
		}
		viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
		viper.AutomaticEnv()

		err = viper.BindPFlags(cmd.Root().PersistentFlags())
		if err != nil {
			return err
		}

		level, err := zerolog.ParseLevel(viper.GetString("log-level"))
		if err != nil {
			return err
		}
		zerolog.SetGlobalLevel(level)

		if dir := viper.GetString("cpu-profile"); dir != "" {
			cpuProfile = profile.Start(profile.CPUProfile, profile.ProfilePath(dir), profile.NoShutdownHook)
		}

		return nil
	},
}

// execute runs cmd and then flushes the CPU profile and the metrics file,
// whether the command failed or not.
func execute(cmd *cobra.Command) error {
	err := cmd.Execute()

	if cpuProfile != nil {
		cpuProfile.Stop()
		cpuProfile = nil
	}
	if merr := cmds.WriteMetrics(viper.GetString("metrics-file")); merr != nil {
		log.Error().Err(merr).Msg("could not write metrics")
		if err == nil {
			err = merr
		}
	}

	return err
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := execute(rootCmd); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("unit", "", "Name of the persistence unit to open (default: $SQLUNIT_UNIT_NAME or the first linked driver)")
	rootCmd.PersistentFlags().String("units-file", "", "Path to the units file (default: ~/.sqlunit/units.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("cpu-profile", "", "Write a CPU profile into this directory")
	rootCmd.PersistentFlags().String("metrics-file", "", "Write unit metrics in prometheus text format to this file on exit")

	unitsCmd, err := cmds.NewUnitsCommand()
	cobra.CheckErr(err)
	rootCmd.AddCommand(unitsCmd)

	dbCmd, err := cmds.NewDbCommand()
	cobra.CheckErr(err)
	rootCmd.AddCommand(dbCmd)

	queryCommand, err := cmds.NewQueryCommand()
	cobra.CheckErr(err)
	queryCmd, err := cli.BuildCobraCommandFromCommand(queryCommand)
	cobra.CheckErr(err)
	rootCmd.AddCommand(queryCmd)
}

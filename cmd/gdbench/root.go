package main

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/FalkorDB/gdbench/catalog"
	"github.com/FalkorDB/gdbench/datasets"
	"github.com/FalkorDB/gdbench/graphdb"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "gdbench",
	Short: "Graph database benchmark harness",
	Long: `gdbench drives prepared query catalogs against FalkorDB, Neo4j or
Memgraph on a fixed open-loop schedule and measures what the database
actually sustained: throughput, latency distribution and how far behind
the target schedule it fell.

Typical flow:

  gdbench init --vendor falkor --size small
  gdbench prepare-queries --vendor falkor --size small --name ro --queries 100000
  gdbench run --vendor falkor --queries-file ro.csv --parallel 8 --mps 2000
  gdbench aggregate

Persistent flags can also come from a config file (--config, default
./gdbench.yaml) or GDBENCH_* environment variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging()
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default ./gdbench.yaml)")
	pf.String("results-dir", "./results", "directory run artifacts are written to")
	pf.String("cache-dir", datasets.DefaultCacheRoot, "directory dataset downloads are cached in")
	pf.String("log-level", "info", "log level: trace, debug, info, warn, error")
	for _, name := range []string{"results-dir", "cache-dir", "log-level"} {
		viper.BindPFlag(name, pf.Lookup(name))
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("gdbench")
		viper.AddConfigPath(".")
	}
	viper.SetEnvPrefix("GDBENCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		if cfgFile != "" {
			log.WithError(err).Error("cannot read config file")
			os.Exit(1)
		}
	} else {
		log.WithField("config", viper.ConfigFileUsed()).Debug("config file loaded")
	}
}

func setupLogging() error {
	log.SetFormatter(&log.TextFormatter{ForceColors: true, FullTimestamp: true})
	log.SetOutput(os.Stdout)
	level, err := log.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		return err
	}
	log.SetLevel(level)
	return nil
}

// Execute runs the CLI. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

// addClientFlags attaches the database connection flags shared by every
// subcommand that dials a vendor.
func addClientFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("vendor", "v", "", "target vendor: "+strings.Join(catalog.KnownVendors(), ", "))
	f.String("endpoint", "", "database address host:port (default per vendor)")
	f.String("user", "", "database user")
	f.String("password", "", "database password")
	f.String("graph", "graph", "graph key (falkor) or database name (neo4j)")
	f.Int("pool", 0, "connection pool size (default tracks parallelism)")
	f.Duration("dial-timeout", 60*time.Second, "connect and request timeout")
	cmd.MarkFlagRequired("vendor")
}

func clientConfig(cmd *cobra.Command, vendor string, pool int) graphdb.Config {
	endpoint, _ := cmd.Flags().GetString("endpoint")
	if endpoint == "" {
		if vendor == catalog.VendorFalkor {
			endpoint = "localhost:6379"
		} else {
			endpoint = "localhost:7687"
		}
	}
	user, _ := cmd.Flags().GetString("user")
	password, _ := cmd.Flags().GetString("password")
	graph, _ := cmd.Flags().GetString("graph")
	if p, _ := cmd.Flags().GetInt("pool"); p > 0 {
		pool = p
	}
	timeout, _ := cmd.Flags().GetDuration("dial-timeout")
	return graphdb.Config{
		Vendor:   vendor,
		Addr:     endpoint,
		User:     user,
		Password: password,
		Graph:    graph,
		PoolSize: pool,
		Timeout:  timeout,
	}
}

func vendorArg(cmd *cobra.Command) (string, error) {
	vendor, _ := cmd.Flags().GetString("vendor")
	if !catalog.IsKnownVendor(vendor) {
		return "", errors.Errorf("unknown vendor %q, expected one of %v", vendor, catalog.KnownVendors())
	}
	return vendor, nil
}

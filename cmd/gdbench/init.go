package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/FalkorDB/gdbench/datasets"
	"github.com/FalkorDB/gdbench/graphdb"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Download the dataset and load it into the target database",
	Long: `init fetches the pokec dataset for the chosen size into the local
cache, then replays its import statements against the target database.
Re-running init reuses the cached download. Statement failures are
counted and skipped; losing the database connection aborts the load.`,
	RunE: runInit,
}

func init() {
	addClientFlags(initCmd)
	f := initCmd.Flags()
	f.StringP("size", "s", "small", "dataset size: small, medium or large")
	f.Bool("force", false, "clear the database before loading")
	f.Bool("dry-run", false, "parse and count statements without sending them")
	f.Float64("max-rps", 0, "cap replayed statements per second (0 = unlimited)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	vendor, err := vendorArg(cmd)
	if err != nil {
		return err
	}
	size, _ := cmd.Flags().GetString("size")
	spec, err := datasets.ForSize(size)
	if err != nil {
		return err
	}
	force, _ := cmd.Flags().GetBool("force")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	maxRPS, _ := cmd.Flags().GetFloat64("max-rps")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dataPath, indexPath, err := spec.Ensure(ctx, viper.GetString("cache-dir"), vendor)
	if err != nil {
		return err
	}

	client, err := graphdb.Dial(ctx, clientConfig(cmd, vendor, 0))
	if err != nil {
		return err
	}
	defer client.Close()

	if force && !dryRun {
		log.WithField("vendor", vendor).Info("clearing database before load")
		if err := client.Clear(ctx); err != nil {
			return err
		}
	}

	loader := datasets.NewLoader(client, vendor, maxRPS)
	if dryRun {
		loader = loader.DryRun()
	}

	// Indexes go in first; the import's edge lookups depend on them.
	idxStats, err := loader.LoadFile(ctx, indexPath)
	if err != nil {
		return err
	}
	dataStats, err := loader.LoadFile(ctx, dataPath)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"vendor":     vendor,
		"size":       size,
		"statements": idxStats.Statements + dataStats.Statements,
		"failed":     idxStats.Failed + dataStats.Failed,
		"took":       (idxStats.Took + dataStats.Took).Round(time.Millisecond),
	}).Info("dataset loaded")
	return nil
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/FalkorDB/gdbench/datasets"
	"github.com/FalkorDB/gdbench/graphdb"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all data from the target database",
	RunE:  runClear,
}

func init() {
	addClientFlags(clearCmd)
	f := clearCmd.Flags()
	f.StringP("size", "s", "small", "dataset size, selects which cache dir --force removes")
	f.Bool("force", false, "remove the cached dataset download as well as the database")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	vendor, err := vendorArg(cmd)
	if err != nil {
		return err
	}
	size, _ := cmd.Flags().GetString("size")
	force, _ := cmd.Flags().GetBool("force")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := graphdb.Dial(ctx, clientConfig(cmd, vendor, 0))
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Clear(ctx); err != nil {
		return err
	}
	log.WithField("vendor", vendor).Info("database cleared")

	if force {
		spec, err := datasets.ForSize(size)
		if err != nil {
			return err
		}
		dir := spec.CacheDir(viper.GetString("cache-dir"), vendor)
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
		log.WithField("dir", dir).Info("dataset cache removed")
	}
	return nil
}

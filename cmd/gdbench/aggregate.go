package main

import (
	"fmt"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/FalkorDB/gdbench/aggregate"
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Merge all run artifacts into one document",
	Long: `aggregate scans the results directory for completed runs, merges them
into a single ui-data.json for the results viewer and can print a
side-by-side comparison table.`,
	RunE: runAggregate,
}

func init() {
	f := aggregateCmd.Flags()
	f.StringP("out", "o", "", "output file (default <results-dir>/"+aggregate.UIFile+")")
	f.Bool("table", false, "also print the comparison table")
	rootCmd.AddCommand(aggregateCmd)
}

func runAggregate(cmd *cobra.Command, args []string) error {
	resultsDir := viper.GetString("results-dir")
	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = filepath.Join(resultsDir, aggregate.UIFile)
	}
	table, _ := cmd.Flags().GetBool("table")

	data, err := aggregate.Merge(resultsDir)
	if err != nil {
		return err
	}
	if err := aggregate.WriteUI(out, data); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"runs": len(data.Runs),
		"file": out,
	}).Info("aggregate written")

	if table {
		fmt.Print(aggregate.CompareTable(data))
	}
	return nil
}

package main

import (
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/FalkorDB/gdbench/catalog"
	"github.com/FalkorDB/gdbench/datasets"
)

var prepareQueriesCmd = &cobra.Command{
	Use:     "prepare-queries",
	Aliases: []string{"prepare"},
	Short:   "Generate a deterministic query catalog and save it to disk",
	Long: `prepare-queries draws queries from the known generators with a seeded
random source, bound to the vertex id space of the chosen dataset size,
and writes them as one catalog file. The same vendor, size, seed and
count always produce the same file, so competing runs can replay an
identical workload.`,
	RunE: runPrepareQueries,
}

func init() {
	f := prepareQueriesCmd.Flags()
	f.StringP("vendor", "v", "", "target vendor: falkor, neo4j or memgraph")
	f.StringP("size", "s", "small", "dataset size the ids are drawn from: small, medium, large")
	f.Uint64P("queries", "q", 1000000, "number of queries to generate")
	f.Int64("seed", 42, "random seed")
	f.StringSlice("generators", nil, "restrict to these query generators (default all)")
	f.StringP("name", "n", "", "catalog name, used for the default output file")
	f.StringP("out", "o", "", "output file (default <name>.csv)")
	prepareQueriesCmd.MarkFlagRequired("vendor")
	prepareQueriesCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(prepareQueriesCmd)
}

func runPrepareQueries(cmd *cobra.Command, args []string) error {
	vendor, err := vendorArg(cmd)
	if err != nil {
		return err
	}
	size, _ := cmd.Flags().GetString("size")
	spec, err := datasets.ForSize(size)
	if err != nil {
		return err
	}
	count, _ := cmd.Flags().GetUint64("queries")
	seed, _ := cmd.Flags().GetInt64("seed")
	names, _ := cmd.Flags().GetStringSlice("generators")
	name, _ := cmd.Flags().GetString("name")
	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = name + ".csv"
	}

	started := time.Now()
	recs, err := catalog.Generate(catalog.GenSpec{
		Vendor:      vendor,
		Count:       int(count),
		Seed:        seed,
		VertexCount: spec.Vertices,
		Names:       names,
	})
	if err != nil {
		return err
	}
	if err := catalog.Save(out, recs); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"vendor":  vendor,
		"size":    size,
		"queries": len(recs),
		"file":    out,
		"took":    time.Since(started).Round(time.Millisecond),
	}).Info("query catalog written")
	return nil
}

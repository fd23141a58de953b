package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/FalkorDB/gdbench/aggregate"
	"github.com/FalkorDB/gdbench/catalog"
	"github.com/FalkorDB/gdbench/graphdb"
	"github.com/FalkorDB/gdbench/runner"
	"github.com/FalkorDB/gdbench/telemetry"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive a prepared query catalog against the target database",
	Long: `run replays a prepared catalog on a fixed open-loop schedule: parallel
spawns each issue their share of the catalog at the aggregate target
rate, never skipping a send because the database is slow. The emitted
result records what the database actually sustained, including how far
behind the schedule it fell.

Artifacts land in <results-dir>/<vendor>-<run-id>/: result.json,
meta.json, metrics.prom and report.md.`,
	RunE: runRun,
}

func init() {
	addClientFlags(runCmd)
	f := runCmd.Flags()
	f.StringP("queries-file", "q", "", "prepared catalog to replay")
	f.UintP("parallel", "p", 1, "number of concurrent spawns")
	f.Float64P("mps", "m", 1000, "aggregate target messages per second")
	f.Duration("timeout", 0, "cap the run wall time (0 = until the catalog is exhausted)")
	f.Duration("progress", 10*time.Second, "progress report period (0 disables)")
	f.String("metrics-addr", "", "expose prometheus metrics on this address, e.g. :2112")
	f.String("dataset", "small", "dataset size label recorded in the run manifest")
	runCmd.MarkFlagRequired("queries-file")
	rootCmd.AddCommand(runCmd)
}

// shortID trims a fresh uuid to the 8 chars used in artifact dir names.
func shortID() string {
	return uuid.NewString()[:8]
}

func runRun(cmd *cobra.Command, args []string) error {
	vendor, err := vendorArg(cmd)
	if err != nil {
		return err
	}
	queriesFile, _ := cmd.Flags().GetString("queries-file")
	parallel, _ := cmd.Flags().GetUint("parallel")
	mps, _ := cmd.Flags().GetFloat64("mps")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	progress, _ := cmd.Flags().GetDuration("progress")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	dataset, _ := cmd.Flags().GetString("dataset")

	records, err := catalog.Load(queriesFile)
	if err != nil {
		return err
	}
	if len(records) > 0 && records[0].Vendor != vendor {
		log.WithFields(log.Fields{
			"catalog": records[0].Vendor,
			"vendor":  vendor,
		}).Warn("catalog was prepared for a different vendor")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	clientCfg := clientConfig(cmd, vendor, int(parallel))
	client, err := graphdb.Dial(ctx, clientCfg)
	if err != nil {
		return err
	}
	defer client.Close()

	runID := shortID()
	collector := telemetry.NewCollector(vendor)
	sampler, err := telemetry.StartSampler(time.Second, collector.SetUsage)
	if err != nil {
		log.WithError(err).Warn("process usage sampling unavailable")
		sampler = nil
	}
	if metricsAddr != "" {
		srv := collector.Serve(metricsAddr)
		defer srv.Close()
		log.WithField("addr", metricsAddr).Info("metrics endpoint up")
	}

	cfg := runner.Config{
		Vendor:          vendor,
		RunID:           runID,
		Parallelism:     parallel,
		TargetMPS:       mps,
		ReportingPeriod: progress,
	}
	r := runner.New(cfg, client, records).WithObserver(collector)
	if sampler != nil {
		r = r.WithUsage(sampler)
	}

	startedAt := time.Now()
	res, runErr := r.Run(ctx)
	finishedAt := time.Now()
	if sampler != nil {
		sampler.Stop()
	}
	if res == nil {
		return runErr
	}
	r.PrintSummary(os.Stdout, res)

	dir := filepath.Join(viper.GetString("results-dir"), fmt.Sprintf("%s-%s", vendor, runID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if err := runner.WriteResult(filepath.Join(dir, aggregate.ResultFile), res); err != nil {
		return err
	}
	meta := &aggregate.RunMeta{
		RunID:               runID,
		Vendor:              vendor,
		Dataset:             dataset,
		Endpoint:            clientCfg.Addr,
		QueriesFile:         queriesFile,
		QueriesCount:        len(records),
		Parallel:            parallel,
		MPS:                 mps,
		StartedAtEpochSecs:  startedAt.Unix(),
		FinishedAtEpochSecs: finishedAt.Unix(),
		ElapsedMs:           res.ElapsedMs,
		Machine:             telemetry.CollectMachine(),
	}
	if err := aggregate.WriteMeta(filepath.Join(dir, aggregate.MetaFile), meta); err != nil {
		return err
	}
	if err := collector.WriteProm(filepath.Join(dir, "metrics.prom")); err != nil {
		return err
	}
	if err := runner.WriteReport(filepath.Join(dir, "report.md"), cfg, res, r.OpHists()); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"run":    runID,
		"dir":    dir,
		"status": res.Status,
	}).Info("run artifacts written")

	// An aborted run still writes its partial artifacts, then exits non-zero.
	return runErr
}

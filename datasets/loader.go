package datasets

import (
	"bufio"
	"compress/gzip"
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/FalkorDB/gdbench/catalog"
	"github.com/FalkorDB/gdbench/graphdb"
)

const (
	defaultReadSize = 4 << 20
	scanInitialBuf  = 64 * 1024
	scanMaxBuf      = 1024 * 1024

	progressEvery = 10000
)

// LoadStats summarizes one replayed file.
type LoadStats struct {
	Statements uint64
	Failed     uint64
	Took       time.Duration
}

// Loader replays import files against a database. Statement failures are
// counted and skipped so a handful of bad rows cannot kill an hours-long
// seed; losing the connection does.
type Loader struct {
	client  graphdb.Client
	limiter *rate.Limiter
	dryRun  bool
	log     *log.Entry
}

// NewLoader builds a loader over an already-dialed client. maxRPS > 0 caps
// the replay rate, protecting shared environments.
func NewLoader(client graphdb.Client, vendor string, maxRPS float64) *Loader {
	var limiter *rate.Limiter
	if maxRPS > 0 {
		burst := int(maxRPS)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(maxRPS), burst)
	}
	return &Loader{
		client:  client,
		limiter: limiter,
		log:     log.WithField("vendor", vendor),
	}
}

// DryRun makes LoadFile iterate and count without sending anything.
func (l *Loader) DryRun() *Loader {
	l.dryRun = true
	return l
}

// LoadFile replays path, one Cypher statement per line. Files ending in .gz
// are decompressed on the fly.
func (l *Loader) LoadFile(ctx context.Context, path string) (LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return LoadStats{}, errors.Wrapf(err, "cannot open dataset file %s", path)
	}
	defer f.Close()

	var r io.Reader = bufio.NewReaderSize(f, defaultReadSize)
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return LoadStats{}, errors.Wrapf(err, "cannot decompress %s", path)
		}
		defer gz.Close()
		r = gz
	}

	l.log.WithField("file", path).Info("replaying dataset file")
	start := time.Now()
	stats := LoadStats{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, scanInitialBuf), scanMaxBuf)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if err := l.replay(ctx, line); err != nil {
			if ctx.Err() != nil || graphdb.IsUnrecoverable(err) {
				return stats, errors.Wrap(err, "dataset replay aborted")
			}
			stats.Failed++
			l.log.WithError(err).Debug("statement failed")
		}
		stats.Statements++
		if stats.Statements%progressEvery == 0 {
			took := time.Since(start)
			l.log.WithFields(log.Fields{
				"statements": stats.Statements,
				"failed":     stats.Failed,
				"rate":       float64(stats.Statements) / took.Seconds(),
			}).Info("replay progress")
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, errors.Wrapf(err, "cannot read dataset file %s", path)
	}
	stats.Took = time.Since(start)
	l.log.WithFields(log.Fields{
		"statements": stats.Statements,
		"failed":     stats.Failed,
		"took":       stats.Took.Round(time.Millisecond),
	}).Info("replay finished")
	return stats, nil
}

func (l *Loader) replay(ctx context.Context, statement string) error {
	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if l.dryRun {
		return nil
	}
	rec := catalog.QueryRecord{
		Class: catalog.ClassWrite,
		Name:  "bulk_load",
		Text:  statement,
	}
	_, err := l.client.Execute(ctx, rec)
	return err
}

// Clear drops the graph under load. Best effort; seeding starts from the
// result either way.
func (l *Loader) Clear(ctx context.Context) error {
	return l.client.Clear(ctx)
}

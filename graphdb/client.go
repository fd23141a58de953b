// Package graphdb exposes the execute capability the benchmark core drives:
// one client per vendor behind a single interface. Vendor selection happens
// once per run, never in the per-query hot path.
package graphdb

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/FalkorDB/gdbench/catalog"
)

// Client executes catalog records against one database under test.
// Implementations are safe for concurrent use by multiple spawns.
type Client interface {
	// Execute runs one record and returns the observed latency. On error the
	// returned duration carries no statistical meaning.
	Execute(ctx context.Context, rec catalog.QueryRecord) (time.Duration, error)
	// Ping verifies the capability is still alive.
	Ping(ctx context.Context) error
	// Clear drops the configured graph. Used by seeding and teardown, never
	// by the measurement core.
	Clear(ctx context.Context) error
	Close() error
}

// Config selects and parameterizes a vendor client.
type Config struct {
	Vendor   string
	Addr     string
	User     string
	Password string
	// Graph is the FalkorDB graph key, or the Bolt database name where the
	// vendor supports one.
	Graph    string
	PoolSize int
	Timeout  time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.PoolSize <= 0 {
		out.PoolSize = 1
	}
	if out.Timeout <= 0 {
		out.Timeout = 60 * time.Second
	}
	if out.Graph == "" {
		out.Graph = "graph"
	}
	return out
}

// Dial connects the vendor named by cfg and verifies connectivity. A failure
// here is a capability-acquisition failure: fatal to the run.
func Dial(ctx context.Context, cfg Config) (Client, error) {
	c := cfg.withDefaults()
	switch c.Vendor {
	case catalog.VendorFalkor:
		return dialFalkor(ctx, c)
	case catalog.VendorNeo4j, catalog.VendorMemgraph:
		return dialBolt(ctx, c)
	default:
		return nil, errors.Errorf("unknown vendor %q, expected one of %v", c.Vendor, catalog.KnownVendors())
	}
}

package graphdb

import (
	"context"
	"time"

	"github.com/mediocregopher/radix/v3"
	"github.com/pkg/errors"

	"github.com/FalkorDB/gdbench/catalog"
)

// falkorClient drives FalkorDB over the Redis protocol through a connection
// pool with pipelining disabled, so each query's latency is its own.
type falkorClient struct {
	pool  *radix.Pool
	graph string
}

func dialFalkor(ctx context.Context, cfg Config) (Client, error) {
	connFunc := func(network, addr string) (radix.Conn, error) {
		opts := []radix.DialOpt{
			radix.DialTimeout(cfg.Timeout),
		}
		if cfg.Password != "" {
			opts = append(opts, radix.DialAuthPass(cfg.Password))
		}
		return radix.Dial(network, addr, opts...)
	}
	pool, err := radix.NewPool("tcp", cfg.Addr, cfg.PoolSize,
		radix.PoolConnFunc(connFunc),
		radix.PoolPipelineWindow(0, 0))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot create falkor pool for %s", cfg.Addr)
	}
	c := &falkorClient{pool: pool, graph: cfg.Graph}
	if err := c.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrapf(err, "cannot reach falkor at %s", cfg.Addr)
	}
	return c, nil
}

// FalkorCommand returns the wire command used for a record class. Reads go
// through the read-only form so replicas can serve them.
func FalkorCommand(class catalog.OpClass) string {
	if class == catalog.ClassRead {
		return "GRAPH.RO_QUERY"
	}
	return "GRAPH.QUERY"
}

func (c *falkorClient) Execute(ctx context.Context, rec catalog.QueryRecord) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var rcv interface{}
	start := time.Now()
	err := c.pool.Do(radix.Cmd(&rcv, FalkorCommand(rec.Class), c.graph, rec.Text))
	took := time.Since(start)
	return took, err
}

func (c *falkorClient) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.pool.Do(radix.Cmd(nil, "PING"))
}

func (c *falkorClient) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := c.pool.Do(radix.Cmd(nil, "GRAPH.DELETE", c.graph))
	if err != nil && isUnknownGraph(err) {
		return nil
	}
	return err
}

func (c *falkorClient) Close() error {
	return c.pool.Close()
}

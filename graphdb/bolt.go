package graphdb

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/pkg/errors"

	"github.com/FalkorDB/gdbench/catalog"
)

// boltClient serves Neo4j and Memgraph through the Bolt protocol. The driver
// is shared across spawns; sessions are created per call with the access mode
// matching the record class.
type boltClient struct {
	driver   neo4j.DriverWithContext
	database string
}

func dialBolt(ctx context.Context, cfg Config) (Client, error) {
	auth := neo4j.NoAuth()
	if cfg.User != "" {
		auth = neo4j.BasicAuth(cfg.User, cfg.Password, "")
	}
	uri := fmt.Sprintf("bolt://%s", cfg.Addr)
	driver, err := neo4j.NewDriverWithContext(uri, auth)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot create bolt driver for %s", cfg.Addr)
	}
	database := ""
	if cfg.Vendor == catalog.VendorNeo4j {
		// Memgraph has no named databases; Neo4j routes by name.
		database = cfg.Graph
	}
	c := &boltClient{driver: driver, database: database}
	verifyCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, errors.Wrapf(err, "cannot reach %s at %s", cfg.Vendor, cfg.Addr)
	}
	return c, nil
}

func (c *boltClient) session(ctx context.Context, class catalog.OpClass) neo4j.SessionWithContext {
	mode := neo4j.AccessModeWrite
	if class == catalog.ClassRead {
		mode = neo4j.AccessModeRead
	}
	return c.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: c.database,
	})
}

func (c *boltClient) Execute(ctx context.Context, rec catalog.QueryRecord) (time.Duration, error) {
	session := c.session(ctx, rec.Class)
	defer session.Close(ctx)

	start := time.Now()
	result, err := session.Run(ctx, rec.Text, nil)
	if err != nil {
		return time.Since(start), err
	}
	if _, err := result.Consume(ctx); err != nil {
		return time.Since(start), err
	}
	return time.Since(start), nil
}

func (c *boltClient) Ping(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}

func (c *boltClient) Clear(ctx context.Context) error {
	session := c.session(ctx, catalog.ClassWrite)
	defer session.Close(ctx)
	result, err := session.Run(ctx, "MATCH (n) DETACH DELETE n", nil)
	if err != nil {
		return err
	}
	_, err = result.Consume(ctx)
	return err
}

func (c *boltClient) Close() error {
	return c.driver.Close(context.Background())
}

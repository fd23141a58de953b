package graphdb

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"testing"
	"time"

	"github.com/FalkorDB/gdbench/catalog"
)

func TestDialUnknownVendor(t *testing.T) {
	_, err := Dial(context.Background(), Config{Vendor: "orientdb", Addr: "localhost:1234"})
	if err == nil {
		t.Fatal("expected error for unknown vendor")
	}
}

func TestFalkorCommandByClass(t *testing.T) {
	if got := FalkorCommand(catalog.ClassRead); got != "GRAPH.RO_QUERY" {
		t.Errorf("read command = %q, want GRAPH.RO_QUERY", got)
	}
	if got := FalkorCommand(catalog.ClassWrite); got != "GRAPH.QUERY" {
		t.Errorf("write command = %q, want GRAPH.QUERY", got)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{Vendor: catalog.VendorFalkor, Addr: "localhost:6379"}
	got := cfg.withDefaults()
	if got.PoolSize != 1 {
		t.Errorf("default pool size = %d, want 1", got.PoolSize)
	}
	if got.Timeout != 60*time.Second {
		t.Errorf("default timeout = %v, want 60s", got.Timeout)
	}
	if got.Graph == "" {
		t.Error("default graph name should not be empty")
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsUnrecoverable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{io.EOF, true},
		{fmt.Errorf("wrapped: %w", io.EOF), true},
		{&net.OpError{Op: "dial", Err: fmt.Errorf("connection refused")}, true},
		{net.Error(timeoutErr{}), false},
		{fmt.Errorf("NOAUTH Authentication required"), true},
		{fmt.Errorf("pool is closed"), true},
		{fmt.Errorf("errMsg: Invalid input 'FOO'"), false},
		{fmt.Errorf("Neo.ClientError.Statement.SyntaxError: mismatched input"), false},
	}
	for _, c := range cases {
		if got := IsUnrecoverable(c.err); got != c.want {
			t.Errorf("IsUnrecoverable(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestIsUnknownGraph(t *testing.T) {
	if !isUnknownGraph(fmt.Errorf("ERR Invalid graph operation on empty key")) {
		t.Error("empty key should read as unknown graph")
	}
	if isUnknownGraph(fmt.Errorf("ERR wrong number of arguments")) {
		t.Error("unrelated error misread as unknown graph")
	}
}

// Integration coverage needs a live server and is opt-in.
func TestFalkorIntegration(t *testing.T) {
	addr := os.Getenv("GDBENCH_TEST_FALKOR_ADDR")
	if addr == "" {
		t.Skip("GDBENCH_TEST_FALKOR_ADDR not set")
	}
	ctx := context.Background()
	client, err := Dial(ctx, Config{Vendor: catalog.VendorFalkor, Addr: addr, Graph: "gdbench_test"})
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer client.Close()
	defer client.Clear(ctx)

	write := catalog.QueryRecord{
		Class: catalog.ClassWrite,
		Name:  "single_vertex_write",
		Text:  "CYPHER id=1 CREATE (n:UserTemp {id : $id}) RETURN n",
	}
	took, err := client.Execute(ctx, write)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if took <= 0 {
		t.Errorf("expected positive latency, got %v", took)
	}

	read := catalog.QueryRecord{
		Class: catalog.ClassRead,
		Name:  "single_vertex_read",
		Text:  "CYPHER id=1 MATCH (n:UserTemp {id : $id}) RETURN n",
	}
	if _, err := client.Execute(ctx, read); err != nil {
		t.Fatalf("read failed: %v", err)
	}
}

func TestBoltIntegration(t *testing.T) {
	addr := os.Getenv("GDBENCH_TEST_BOLT_ADDR")
	if addr == "" {
		t.Skip("GDBENCH_TEST_BOLT_ADDR not set")
	}
	vendor := os.Getenv("GDBENCH_TEST_BOLT_VENDOR")
	if vendor == "" {
		vendor = catalog.VendorMemgraph
	}
	ctx := context.Background()
	client, err := Dial(ctx, Config{
		Vendor:   vendor,
		Addr:     addr,
		User:     os.Getenv("GDBENCH_TEST_BOLT_USER"),
		Password: os.Getenv("GDBENCH_TEST_BOLT_PASSWORD"),
	})
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer client.Close()
	defer client.Clear(ctx)

	write := catalog.QueryRecord{
		Class: catalog.ClassWrite,
		Name:  "single_vertex_write",
		Text:  "CREATE (n:UserTemp {id : 1}) RETURN n",
	}
	took, err := client.Execute(ctx, write)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if took <= 0 {
		t.Errorf("expected positive latency, got %v", took)
	}

	read := catalog.QueryRecord{
		Class: catalog.ClassRead,
		Name:  "single_vertex_read",
		Text:  "MATCH (n:UserTemp {id : 1}) RETURN n",
	}
	if _, err := client.Execute(ctx, read); err != nil {
		t.Fatalf("read failed: %v", err)
	}
}

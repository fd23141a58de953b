// Package catalog defines the query records driven through the benchmark and
// the offline generator that produces them. A catalog is an ordered, finite
// sequence of records; the measurement core treats record text as opaque.
package catalog

import (
	"encoding/csv"
	"fmt"
	"strings"
)

// Supported vendor tags.
const (
	VendorFalkor   = "falkor"
	VendorNeo4j    = "neo4j"
	VendorMemgraph = "memgraph"
)

// KnownVendors returns the vendor tags the harness can drive.
func KnownVendors() []string {
	return []string{VendorFalkor, VendorMemgraph, VendorNeo4j}
}

// IsKnownVendor reports whether v names a supported vendor.
func IsKnownVendor(v string) bool {
	switch v {
	case VendorFalkor, VendorNeo4j, VendorMemgraph:
		return true
	}
	return false
}

// OpClass tags a record as a read or a write.
type OpClass string

const (
	ClassRead  OpClass = "R"
	ClassWrite OpClass = "W"
)

// Valid reports whether the class is one of the two known tags.
func (c OpClass) Valid() bool {
	return c == ClassRead || c == ClassWrite
}

// QueryRecord is one catalog entry. Records are immutable once created and
// shared read-only across spawns.
type QueryRecord struct {
	ID     string
	Vendor string
	Class  OpClass
	Name   string
	Text   string
}

// ParseRow decodes one catalog row of the form class,name,id,vendor,text.
func ParseRow(row string) (QueryRecord, error) {
	reader := csv.NewReader(strings.NewReader(row))
	fields, err := reader.Read()
	if err != nil {
		return QueryRecord{}, err
	}
	if len(fields) < 5 {
		return QueryRecord{}, fmt.Errorf("catalog row does not have the minimum required size of 5: %s", row)
	}
	rec := QueryRecord{
		Class:  OpClass(fields[0]),
		Name:   fields[1],
		ID:     fields[2],
		Vendor: fields[3],
		Text:   fields[4],
	}
	if !rec.Class.Valid() {
		return QueryRecord{}, fmt.Errorf("catalog row has unknown class %q: %s", fields[0], row)
	}
	return rec, nil
}

// Row encodes the record in the form accepted by ParseRow, without a
// trailing newline.
func (r QueryRecord) Row() string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	_ = w.Write([]string{string(r.Class), r.Name, r.ID, r.Vendor, r.Text})
	w.Flush()
	return strings.TrimRight(sb.String(), "\n")
}

// Package datasets knows the benchmark's seed graphs: where to fetch them,
// where they live on disk, and how to replay them into a database.
package datasets

import (
	"path"
	"path/filepath"

	"github.com/pkg/errors"
)

// Size selects one of the prepared social graphs.
type Size string

const (
	Small  Size = "small"
	Medium Size = "medium"
	Large  Size = "large"
)

// DefaultCacheRoot is where downloaded dataset files land unless overridden.
const DefaultCacheRoot = "./cache"

// Spec describes one seed graph: its expected shape and the sources of its
// import and index-setup statements.
type Spec struct {
	Size     Size
	Vertices uint64
	Edges    uint64
	DataURL  string
	IndexURL string
}

const pokecBase = "https://s3.eu-west-1.amazonaws.com/deps.memgraph.io/dataset/pokec/benchmark"

var specs = map[Size]Spec{
	Small: {
		Size:     Small,
		Vertices: 10000,
		Edges:    121716,
		DataURL:  pokecBase + "/pokec_small_import.cypher",
		IndexURL: pokecBase + "/neo4j.cypher",
	},
	Medium: {
		Size:     Medium,
		Vertices: 100000,
		Edges:    1768515,
		DataURL:  pokecBase + "/pokec_medium_import.cypher",
		IndexURL: pokecBase + "/neo4j.cypher",
	},
	Large: {
		Size:     Large,
		Vertices: 1632803,
		Edges:    30622564,
		DataURL:  pokecBase + "/pokec_large.setup.cypher.gz",
		IndexURL: pokecBase + "/neo4j.cypher",
	},
}

// ForSize resolves a size name to its spec.
func ForSize(size string) (Spec, error) {
	if s, ok := specs[Size(size)]; ok {
		return s, nil
	}
	return Spec{}, errors.Errorf("unknown dataset size %q, expected one of %v", size, SizeNames())
}

// SizeNames lists the known sizes smallest first.
func SizeNames() []string {
	return []string{string(Small), string(Medium), string(Large)}
}

// CacheDir returns the on-disk cache directory for this spec and vendor.
func (s Spec) CacheDir(root, vendor string) string {
	return filepath.Join(root, vendor, "users", string(s.Size))
}

// DataPath returns where the import file lives once cached.
func (s Spec) DataPath(root, vendor string) string {
	return filepath.Join(s.CacheDir(root, vendor), path.Base(s.DataURL))
}

// IndexPath returns where the index-setup file lives once cached.
func (s Spec) IndexPath(root, vendor string) string {
	return filepath.Join(s.CacheDir(root, vendor), path.Base(s.IndexURL))
}

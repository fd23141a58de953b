package catalog

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// GenSpec drives catalog generation. VertexCount bounds the random ids drawn
// by the generators; Names restricts generation to a subset of the known
// generators (nil means all of them).
type GenSpec struct {
	Vendor      string
	Count       int
	Seed        int64
	VertexCount uint64
	Names       []string
}

type generator struct {
	class OpClass
	build func(rng *rand.Rand, vertexCount uint64) Query
}

// randVertex draws a vertex id. The pokec import numbers vertices 1..N.
func randVertex(rng *rand.Rand, vertexCount uint64) int64 {
	if vertexCount == 0 {
		return 1
	}
	return 1 + rng.Int63n(int64(vertexCount))
}

// randPath draws two distinct endpoint ids. A single-vertex id space cannot
// satisfy that, so the endpoints collapse there.
func randPath(rng *rand.Rand, vertexCount uint64) (from, to int64) {
	from = randVertex(rng, vertexCount)
	to = randVertex(rng, vertexCount)
	for to == from && vertexCount > 1 {
		to = randVertex(rng, vertexCount)
	}
	return from, to
}

// expansion builds the k-hop traversal from a random source vertex,
// optionally filtered on the target's age.
func expansion(hops int, filtered bool) func(rng *rand.Rand, vertexCount uint64) Query {
	var sb strings.Builder
	sb.WriteString("MATCH (s:User {id : $id})")
	for i := 0; i < hops-1; i++ {
		sb.WriteString("-->()")
	}
	sb.WriteString("-->(n:User)")
	if filtered {
		sb.WriteString(" WHERE n.age >= 18")
	}
	// Past one hop many paths can reach the same terminal vertex; the result
	// is one row per distinct terminal, not per path.
	if hops >= 2 {
		sb.WriteString(" RETURN DISTINCT n.id")
	} else {
		sb.WriteString(" RETURN n.id")
	}
	cypher := sb.String()
	return func(rng *rand.Rand, vertexCount uint64) Query {
		return Query{Cypher: cypher, Params: map[string]int64{"id": randVertex(rng, vertexCount)}}
	}
}

var generators = map[string]generator{
	"single_vertex_read": {ClassRead, func(rng *rand.Rand, vc uint64) Query {
		return Query{
			Cypher: "MATCH (n:User {id : $id}) RETURN n",
			Params: map[string]int64{"id": randVertex(rng, vc)},
		}
	}},
	"single_vertex_write": {ClassWrite, func(rng *rand.Rand, vc uint64) Query {
		return Query{
			Cypher: "CREATE (n:UserTemp {id : $id}) RETURN n",
			Params: map[string]int64{"id": randVertex(rng, vc)},
		}
	}},
	"single_edge_write": {ClassWrite, func(rng *rand.Rand, vc uint64) Query {
		from, to := randPath(rng, vc)
		return Query{
			Cypher: "MATCH (n:User {id : $from}), (m:User {id : $to}) WITH n, m CREATE (n)-[e:Temp]->(m) RETURN e",
			Params: map[string]int64{"from": from, "to": to},
		}
	}},
	"aggregate_expansion_1":             {ClassRead, expansion(1, false)},
	"aggregate_expansion_1_with_filter": {ClassRead, expansion(1, true)},
	"aggregate_expansion_2":             {ClassRead, expansion(2, false)},
	"aggregate_expansion_2_with_filter": {ClassRead, expansion(2, true)},
	"aggregate_expansion_3":             {ClassRead, expansion(3, false)},
	"aggregate_expansion_3_with_filter": {ClassRead, expansion(3, true)},
	"aggregate_expansion_4":             {ClassRead, expansion(4, false)},
	"aggregate_expansion_4_with_filter": {ClassRead, expansion(4, true)},
}

// GeneratorNames lists the known generators, sorted.
func GeneratorNames() []string {
	names := make([]string, 0, len(generators))
	for n := range generators {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Generate produces a deterministic catalog: spec.Count records, each drawn
// uniformly from the selected generators using the seeded source.
func Generate(spec GenSpec) ([]QueryRecord, error) {
	if !IsKnownVendor(spec.Vendor) {
		return nil, errors.Errorf("unknown vendor %q, expected one of %v", spec.Vendor, KnownVendors())
	}
	if spec.Count <= 0 {
		return nil, errors.Errorf("catalog count must be positive, got %d", spec.Count)
	}
	names := spec.Names
	if len(names) == 0 {
		names = GeneratorNames()
	} else {
		names = append([]string(nil), names...)
		sort.Strings(names)
		for _, n := range names {
			if _, ok := generators[n]; !ok {
				return nil, errors.Errorf("unknown query generator %q, expected one of %v", n, GeneratorNames())
			}
		}
	}

	rng := rand.New(rand.NewSource(spec.Seed))
	recs := make([]QueryRecord, 0, spec.Count)
	for i := 0; i < spec.Count; i++ {
		name := names[rng.Intn(len(names))]
		gen := generators[name]
		q := gen.build(rng, spec.VertexCount)
		recs = append(recs, QueryRecord{
			ID:     fmt.Sprintf("q%08d", i),
			Vendor: spec.Vendor,
			Class:  gen.class,
			Name:   name,
			Text:   q.TextFor(spec.Vendor),
		})
	}
	return recs, nil
}

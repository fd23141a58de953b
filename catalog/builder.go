package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// Query is a Cypher template plus its integer parameters. Rendering differs
// per vendor: FalkorDB consumes the CYPHER parameter-prefix form, Bolt
// vendors get the parameters substituted into the text.
type Query struct {
	Cypher string
	Params map[string]int64
}

// TextFor renders the query for the given vendor tag.
func (q Query) TextFor(vendor string) string {
	if len(q.Params) == 0 {
		return q.Cypher
	}
	switch vendor {
	case VendorFalkor:
		return q.paramPrefix()
	default:
		return q.substituted()
	}
}

// paramPrefix renders "CYPHER k=v k2=v2 <query>", parameters sorted by name
// so identical queries render identically.
func (q Query) paramPrefix() string {
	names := q.sortedNames()
	var sb strings.Builder
	sb.WriteString("CYPHER")
	for _, n := range names {
		fmt.Fprintf(&sb, " %s=%d", n, q.Params[n])
	}
	sb.WriteByte(' ')
	sb.WriteString(q.Cypher)
	return sb.String()
}

// substituted inlines every $name placeholder. Longer names substitute first
// so $from never clobbers $fromId.
func (q Query) substituted() string {
	names := q.sortedNames()
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	out := q.Cypher
	for _, n := range names {
		out = strings.ReplaceAll(out, "$"+n, fmt.Sprintf("%d", q.Params[n]))
	}
	return out
}

func (q Query) sortedNames() []string {
	names := make([]string, 0, len(q.Params))
	for n := range q.Params {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

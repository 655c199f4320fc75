// Package export renders causal graphs for explanation tooling: Graphviz
// DOT for diagrams and JSON for machine consumption.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/causalgo/causax"
)

// DOT generates Graphviz source for the graph. Aggregate nodes are drawn as
// diamonds labeled with their relation; unit nodes as rounded boxes.
func DOT(g *causax.Graph) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(`digraph CausalGraph {
  rankdir=TB;
  node [shape=box, fontsize=10, style=rounded];
  edge [fontsize=9];
`)

	for i := 0; i < g.Len(); i++ {
		info, err := g.Describe(causax.NodeIndex(i))
		if err != nil {
			return "", err
		}
		if info.Aggregate {
			fmt.Fprintf(&buf, "  n%d [shape=diamond, label=\"%s\\n%s\"];\n",
				i, info.Label, aggLabel(info))
		} else {
			fmt.Fprintf(&buf, "  n%d [label=\"%s\\nunit %d\"];\n", i, info.Label, info.Unit)
		}
		for _, child := range info.Children {
			fmt.Fprintf(&buf, "  n%d -> n%d;\n", i, child)
		}
	}

	buf.WriteString("}\n")
	return buf.String(), nil
}

func aggLabel(info causax.NodeInfo) string {
	if info.Aggregation == causax.AggregateThreshold {
		return fmt.Sprintf("threshold >= %d", info.Threshold)
	}
	return info.Aggregation.String()
}

// graphDoc is the JSON document shape.
type graphDoc struct {
	Nodes []nodeDoc `json:"nodes"`
}

type nodeDoc struct {
	Index       int    `json:"index"`
	Label       string `json:"label"`
	Aggregate   bool   `json:"aggregate"`
	Aggregation string `json:"aggregation,omitempty"`
	Threshold   int    `json:"threshold,omitempty"`
	Unit        uint64 `json:"unit,omitempty"`
	Children    []int  `json:"children,omitempty"`
}

// JSON serializes the graph structure with indentation.
func JSON(g *causax.Graph) ([]byte, error) {
	doc := graphDoc{Nodes: make([]nodeDoc, 0, g.Len())}
	for i := 0; i < g.Len(); i++ {
		info, err := g.Describe(causax.NodeIndex(i))
		if err != nil {
			return nil, err
		}
		nd := nodeDoc{
			Index:     i,
			Label:     info.Label,
			Aggregate: info.Aggregate,
			Unit:      uint64(info.Unit),
		}
		if info.Aggregate {
			nd.Aggregation = info.Aggregation.String()
			nd.Threshold = info.Threshold
		}
		for _, c := range info.Children {
			nd.Children = append(nd.Children, int(c))
		}
		doc.Nodes = append(doc.Nodes, nd)
	}
	return json.MarshalIndent(doc, "", "  ")
}

package mlp

import (
	"fmt"

	"github.com/awalterschulze/gographviz"
)

// ToDot renders the layer stack as a graphviz digraph, one node per layer.
func (n *Network) ToDot() string {
	g := gographviz.NewGraph()
	if err := g.SetName("G"); err != nil {
		panic(err)
	}
	g.SetDir(true)
	g.AddAttr("G", "rankdir", "LR")

	for _, l := range n.layers {
		var label string
		if l.IsInput() {
			label = fmt.Sprintf(`"input\n%d neurons"`, l.size)
		} else {
			label = fmt.Sprintf(`"layer %d\n%d neurons\n%v\noffset %d"`, l.index, l.size, l.act, l.offset)
		}
		g.AddNode("G", layerID(l.index), map[string]string{
			"shape": "box",
			"label": label,
		})
		if l.IsInput() {
			continue
		}
		g.AddEdge(layerID(l.index-1), layerID(l.index), true, map[string]string{
			"label": fmt.Sprintf(`"%d×%d"`, l.size, l.fanIn),
		})
	}
	return g.String()
}

func layerID(i int) string { return fmt.Sprintf("L%d", i) }

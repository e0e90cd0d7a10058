package rendergraph

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// WriteMermaid dumps the graph as a Mermaid flowchart: passes, the
// resources they read and write, and the barriers and layout transitions
// that link a producer pass to its consumer. Compile first to include the
// synchronization edges.
func (g *Graph) WriteMermaid(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "flowchart TD")

	for _, p := range g.passes {
		kind := "compute"
		if p.IsRasterizationPass {
			kind = "raster"
		}
		fmt.Fprintf(bw, "    P%d[\"%d: %s (%s)\"]\n", p.Index, p.Index, escape(p.Name), kind)
	}
	for i, b := range g.buffers {
		fmt.Fprintf(bw, "    B%d[(\"%s%s\")]\n", i, escape(b.Name), externalTag(b.External))
	}
	for i, t := range g.textures {
		fmt.Fprintf(bw, "    T%d([\"%s%s\"])\n", i, escape(t.Name), externalTag(t.External))
	}

	for _, p := range g.passes {
		for _, a := range p.Accesses {
			node := resourceNode(a.Resource)
			if a.IsWrite() {
				fmt.Fprintf(bw, "    P%d -- \"%s\" --> %s\n", p.Index, a.Flags, node)
			} else {
				fmt.Fprintf(bw, "    %s -- \"%s\" --> P%d\n", node, a.Flags, p.Index)
			}
		}
	}

	for _, p := range g.passes {
		for _, b := range p.Barriers {
			if b.Source < 0 {
				continue
			}
			fmt.Fprintf(bw, "    P%d -. \"%s barrier %s<br/>%s → %s\" .-> P%d\n",
				b.Source, b.Kind, escape(g.Name(b.Resource)), b.SrcStage, b.DstStage, p.Index)
		}
		for _, t := range p.LayoutTransitions {
			if t.Source < 0 {
				continue
			}
			fmt.Fprintf(bw, "    P%d -. \"%s<br/>%s → %s\" .-> P%d\n",
				t.Source, escape(g.Name(t.Resource)), t.OldLayout, t.NewLayout, p.Index)
		}
	}
	return bw.Flush()
}

func resourceNode(h Resource) string {
	if h.Kind == ResourceKindTexture {
		return fmt.Sprintf("T%d", h.Index)
	}
	return fmt.Sprintf("B%d", h.Index)
}

func externalTag(external bool) string {
	if external {
		return " (external)"
	}
	return ""
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "#quot;")
}

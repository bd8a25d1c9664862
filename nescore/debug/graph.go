package debug

import (
	"io"

	"github.com/bradleyjkemp/memviz"
)

// WriteStateGraph writes a Graphviz dot description of v, following
// pointers, to w.
func WriteStateGraph(w io.Writer, v any) {
	memviz.Map(w, v)
}

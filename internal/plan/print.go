package plan

import (
	"fmt"
	"io"
	"strings"
)

// Print writes op as an indented tree, one operator per line, each prefixed
// with its pre-order ID.
func Print(w io.Writer, op Operator) error {
	p := &printer{w: w}
	p.node(op, 0, "", "")
	return p.err
}

// PrintAsTree returns the Print output as a string.
func PrintAsTree(op Operator) string {
	var b strings.Builder
	_ = Print(&b, op)
	return b.String()
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) node(op Operator, id int, prefix, childPrefix string) {
	if p.err != nil {
		return
	}
	if _, err := fmt.Fprintf(p.w, "%s[%d] %s\n", prefix, id, op); err != nil {
		p.err = err
		return
	}
	if pushed, ok := op.(*Pushed); ok && pushed.Relation != nil {
		if _, err := fmt.Fprintf(p.w, "%s    sql: %s\n", childPrefix, pushed.Relation.SQL); err != nil {
			p.err = err
			return
		}
	}
	children := op.Children()
	ids := ChildIDs(op, id)
	for i, c := range children {
		if i == len(children)-1 {
			p.node(c, ids[i], childPrefix+"└── ", childPrefix+"    ")
		} else {
			p.node(c, ids[i], childPrefix+"├── ", childPrefix+"│   ")
		}
	}
}

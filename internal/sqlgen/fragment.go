package sqlgen

import (
	"fmt"
	"strings"
)

// Fragment is a piece of SQL and the arguments bound by its placeholders,
// in the order the placeholders appear.
type Fragment struct {
	SQL  string
	Args []any
}

// sqlWriter accumulates SQL text and arguments together so their order can
// never drift apart.
type sqlWriter struct {
	b    strings.Builder
	args []any
}

func (w *sqlWriter) write(s string) {
	w.b.WriteString(s)
}

func (w *sqlWriter) writef(format string, args ...any) {
	fmt.Fprintf(&w.b, format, args...)
}

// frag appends a fragment's SQL and arguments.
func (w *sqlWriter) frag(f Fragment) {
	w.b.WriteString(f.SQL)
	w.args = append(w.args, f.Args...)
}

// join appends fragments separated by sep.
func (w *sqlWriter) join(fs []Fragment, sep string) {
	for i, f := range fs {
		if i > 0 {
			w.b.WriteString(sep)
		}
		w.frag(f)
	}
}

// param writes a placeholder bound to v.
func (w *sqlWriter) param(v any) {
	w.b.WriteString("?")
	w.args = append(w.args, v)
}

func (w *sqlWriter) fragment() Fragment {
	return Fragment{SQL: w.b.String(), Args: w.args}
}

// raw builds an argument-free fragment.
func raw(sql string) Fragment {
	return Fragment{SQL: sql}
}

// wrap returns prefix + f + suffix.
func wrap(prefix string, f Fragment, suffix string) Fragment {
	return Fragment{SQL: prefix + f.SQL + suffix, Args: f.Args}
}

// call renders NAME(a, b, ...).
func call(name string, args ...Fragment) Fragment {
	var w sqlWriter
	w.write(name)
	w.write("(")
	w.join(args, ", ")
	w.write(")")
	return w.fragment()
}

// infix renders (a OP b).
func infix(op string, l, r Fragment) Fragment {
	var w sqlWriter
	w.write("(")
	w.frag(l)
	w.write(" " + op + " ")
	w.frag(r)
	w.write(")")
	return w.fragment()
}

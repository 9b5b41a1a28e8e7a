package expr

import (
	"fmt"
	"reflect"
	"strings"
)

// Render produces a deterministic single-line form of an expression tree,
// suitable for diagnostics, CLI output, and golden-file comparison.
//
// The form is stable across runs for trees built from the same inputs:
// parameters render by name, constants via %v, type arguments by their Go
// type name.
func Render(e Expression) string {
	var b strings.Builder
	render(&b, e)
	return b.String()
}

func render(b *strings.Builder, e Expression) {
	switch n := e.(type) {
	case nil:
		b.WriteString("<nil>")
	case *Source:
		fmt.Fprintf(b, "Source(%s)", n.Name)
	case *Constant:
		renderConstant(b, n)
	case *Parameter:
		b.WriteString(n.Name)
	case *Field:
		render(b, n.Target)
		b.WriteByte('.')
		b.WriteString(n.Name)
	case *Binary:
		b.WriteByte('(')
		render(b, n.Left)
		fmt.Fprintf(b, " %s ", n.Op)
		render(b, n.Right)
		b.WriteByte(')')
	case *Not:
		b.WriteString("!(")
		render(b, n.Operand)
		b.WriteByte(')')
	case *Lambda:
		b.WriteByte('(')
		for i, p := range n.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(p.Name)
		}
		b.WriteString(") => ")
		render(b, n.Body)
	case *Func:
		b.WriteString("<func>")
	case *Call:
		b.WriteString(n.Op.String())
		if len(n.TypeArgs) > 0 {
			b.WriteByte('[')
			for i, t := range n.TypeArgs {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(typeName(t))
			}
			b.WriteByte(']')
		}
		b.WriteByte('(')
		for i, a := range n.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			render(b, a)
		}
		b.WriteByte(')')
	default:
		fmt.Fprintf(b, "<%T>", e)
	}
}

func renderConstant(b *strings.Builder, c *Constant) {
	switch v := c.Value.(type) {
	case nil:
		b.WriteString("nil")
	case string:
		fmt.Fprintf(b, "%q", v)
	default:
		// Slices back local queryables; render their length, not contents,
		// so goldens stay readable.
		if c.Of != nil && c.Of.Kind() == reflect.Slice {
			fmt.Fprintf(b, "seq<%s>", typeName(c.Of.Elem()))
			return
		}
		fmt.Fprintf(b, "%v", v)
	}
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "?"
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

package query

import (
	"fmt"
	"strings"
)

// CompileWhere converts a predicate into a parameterized SQL WHERE
// fragment (without the "WHERE" keyword) plus its parameter list.
// Fields are validated against the given whitelist; a field outside it
// is a compile error, which is what keeps identifier interpolation
// injection-proof.
//
// A nil predicate compiles to an empty fragment.
func CompileWhere(p Predicate, fields map[string]bool) (string, []any, error) {
	if p == nil {
		return "", nil, nil
	}
	switch pred := p.(type) {
	case Equals:
		return compileEquals(pred, fields)
	case *Equals:
		return compileEquals(*pred, fields)
	case And:
		return compileAnd(pred, fields)
	case *And:
		return compileAnd(*pred, fields)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileEquals(p Equals, fields map[string]bool) (string, []any, error) {
	if !fields[p.Field] {
		return "", nil, fmt.Errorf("field %q not allowed in this filter", p.Field)
	}
	return p.Field + " = ?", []any{p.Value}, nil
}

func compileAnd(p And, fields map[string]bool) (string, []any, error) {
	if len(p.Predicates) == 0 {
		return "", nil, fmt.Errorf("And requires at least one predicate")
	}
	var frags []string
	var params []any
	for i, sub := range p.Predicates {
		frag, subParams, err := CompileWhere(sub, fields)
		if err != nil {
			return "", nil, fmt.Errorf("and[%d]: %w", i, err)
		}
		frags = append(frags, "("+frag+")")
		params = append(params, subParams...)
	}
	return strings.Join(frags, " AND "), params, nil
}

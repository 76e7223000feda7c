package scene

import "fmt"

// The evaluator covers the expression subset used by layer filters and the paint
// properties that affect hit testing. Unknown operators evaluate to false or to
// "no value".

// matchFilter evaluates a filter expression against feature properties. A nil
// filter matches everything.
func matchFilter(expr []any, props map[string]any, zoom float64) bool {
	if len(expr) == 0 {
		return true
	}
	return truthy(eval(expr, props, zoom))
}

func eval(v any, props map[string]any, zoom float64) any {
	expr, ok := v.([]any)
	if !ok || len(expr) == 0 {
		return v
	}
	op, ok := expr[0].(string)
	if !ok {
		return v
	}
	args := expr[1:]

	switch op {
	case "literal":
		if len(args) == 1 {
			return args[0]
		}
	case "get":
		if len(args) == 1 {
			if key, ok := args[0].(string); ok {
				return props[key]
			}
		}
	case "has":
		if len(args) == 1 {
			if key, ok := args[0].(string); ok {
				_, found := props[key]
				return found
			}
		}
	case "zoom":
		return zoom
	case "!":
		if len(args) == 1 {
			return !truthy(eval(args[0], props, zoom))
		}
	case "all":
		for _, a := range args {
			if !truthy(eval(a, props, zoom)) {
				return false
			}
		}
		return true
	case "any":
		for _, a := range args {
			if truthy(eval(a, props, zoom)) {
				return true
			}
		}
		return false
	case "==", "!=":
		if len(args) == 2 {
			eq := equal(operand(args[0], props, zoom), eval(args[1], props, zoom))
			return eq == (op == "==")
		}
	case "<", "<=", ">", ">=":
		if len(args) == 2 {
			a, okA := number(eval(args[0], props, zoom))
			b, okB := number(eval(args[1], props, zoom))
			if !okA || !okB {
				return false
			}
			switch op {
			case "<":
				return a < b
			case "<=":
				return a <= b
			case ">":
				return a > b
			default:
				return a >= b
			}
		}
	case "step":
		return evalStep(args, props, zoom)
	case "interpolate":
		return evalInterpolate(args, props, zoom)
	}
	return nil
}

// operand resolves the left side of a legacy comparison filter such as
// ["==", "extrude", "true"], where a bare string names a property.
func operand(v any, props map[string]any, zoom float64) any {
	if key, ok := v.(string); ok {
		return props[key]
	}
	return eval(v, props, zoom)
}

// evalStep handles ["step", input, base, stop1, out1, stop2, out2, ...].
func evalStep(args []any, props map[string]any, zoom float64) any {
	if len(args) < 2 || len(args)%2 != 0 {
		return nil
	}
	in, ok := number(eval(args[0], props, zoom))
	if !ok {
		return eval(args[1], props, zoom)
	}
	out := args[1]
	for i := 2; i+1 < len(args); i += 2 {
		stop, ok := number(args[i])
		if !ok || in < stop {
			break
		}
		out = args[i+1]
	}
	return eval(out, props, zoom)
}

// evalInterpolate handles linear ["interpolate", ["linear"], input, s1, o1, ...]
// with numeric outputs.
func evalInterpolate(args []any, props map[string]any, zoom float64) any {
	if len(args) < 4 || len(args)%2 != 0 {
		return nil
	}
	in, ok := number(eval(args[1], props, zoom))
	if !ok {
		return nil
	}

	stops := args[2:]
	prevStop, ok := number(stops[0])
	if !ok {
		return nil
	}
	prevOut, ok := number(eval(stops[1], props, zoom))
	if !ok {
		return nil
	}
	if in <= prevStop {
		return prevOut
	}
	for i := 2; i+1 < len(stops); i += 2 {
		stop, okS := number(stops[i])
		out, okO := number(eval(stops[i+1], props, zoom))
		if !okS || !okO {
			return nil
		}
		if in <= stop {
			t := (in - prevStop) / (stop - prevStop)
			return prevOut + t*(out-prevOut)
		}
		prevStop, prevOut = stop, out
	}
	return prevOut
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}

func equal(a, b any) bool {
	if x, ok := number(a); ok {
		y, ok := number(b)
		return ok && x == y
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func truthy(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case string:
		return b != ""
	}
	if n, ok := number(v); ok {
		return n != 0
	}
	return true
}

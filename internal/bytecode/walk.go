package bytecode

import (
	"errors"

	"pycdump/internal/marshal"
)

// SkipChildren returned from a WalkFunc skips the nested units of the
// current code unit.
var SkipChildren = errors.New("skip children")

// WalkFunc is called for each code unit. path holds the Consts indexes
// leading from the root to c; it is empty for the root.
type WalkFunc func(path []int, c *marshal.Code) error

// Walk visits root and every code unit nested in its Consts, depth first
// in Consts order. A unit reachable through shared references is visited
// once per distinct parent path, but never re-entered from inside itself.
func Walk(root *marshal.Code, fn WalkFunc) error {
	onPath := make(map[*marshal.Code]bool)
	var visit func(path []int, c *marshal.Code) error
	visit = func(path []int, c *marshal.Code) error {
		if onPath[c] {
			return nil
		}
		err := fn(path, c)
		if errors.Is(err, SkipChildren) {
			return nil
		}
		if err != nil {
			return err
		}
		onPath[c] = true
		defer delete(onPath, c)
		if c.Consts == nil {
			return nil
		}
		for i, o := range c.Consts.Items {
			child, ok := o.(*marshal.Code)
			if !ok {
				continue
			}
			p := make([]int, len(path)+1)
			copy(p, path)
			p[len(path)] = i
			if err := visit(p, child); err != nil {
				return err
			}
		}
		return nil
	}
	return visit(nil, root)
}

// Package graph builds call graphs and control-flow graphs over the code
// units of a decoded .pyc, in lattice form.
package graph

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"pycdump/internal/bytecode"
	"pycdump/internal/marshal"
	"pycdump/internal/pycfmt"
	"pycdump/internal/pyver"
)

// Unit holds one code unit with its decoded instructions and call edges.
type Unit struct {
	Name   string // dotted nesting path, "<module>" for the root
	Parent string // Name of the enclosing unit, "" for the root
	Path   []int  // Consts indices from the root
	Code   *marshal.Code
	Insts  []bytecode.Instruction
	Edges  []bytecode.CallEdge
}

// Collect decodes every code unit reachable from root, depth-first in
// Consts order. A unit whose instructions fail to decode keeps the
// instructions decoded before the failure; all such failures are returned
// together.
func Collect(root *marshal.Code, v *pyver.Version, opts pycfmt.Options) ([]*Unit, error) {
	var (
		units  []*Unit
		errs   *multierror.Error
		byPath = map[string]*Unit{}
		used   = map[string]int{}
	)
	walkErr := bytecode.Walk(root, func(path []int, c *marshal.Code) error {
		u := &Unit{Path: path, Code: c}
		if len(path) == 0 {
			u.Name = root.DisplayName()
		} else {
			parent := byPath[fmt.Sprint(path[:len(path)-1])]
			u.Parent = parent.Name
			u.Name = c.Name
			if parent.Parent != "" {
				u.Name = parent.Name + "." + c.Name
			}
		}
		if n := used[u.Name]; n > 0 {
			used[u.Name]++
			u.Name = fmt.Sprintf("%s#%d", u.Name, n)
		} else {
			used[u.Name] = 1
		}
		byPath[fmt.Sprint(path)] = u

		insts, err := bytecode.Decode(c, v, opts)
		if err != nil {
			errs = multierror.Append(errs, err)
		}
		u.Insts = insts
		u.Edges = bytecode.CallEdges(c, insts, v)
		units = append(units, u)
		return nil
	})
	if walkErr != nil {
		return units, walkErr
	}
	return units, errs.ErrorOrNil()
}

// resolver maps callee names from call edges onto unit names.
type resolver struct {
	byName   map[string]*Unit
	byQual   map[string]*Unit
	children map[string]map[string]*Unit // parent unit -> local name -> child
}

func newResolver(units []*Unit) *resolver {
	r := &resolver{
		byName:   make(map[string]*Unit, len(units)),
		byQual:   make(map[string]*Unit),
		children: make(map[string]map[string]*Unit),
	}
	for _, u := range units {
		r.byName[u.Name] = u
		if q := u.Code.QualName; q != "" && r.byQual[q] == nil {
			r.byQual[q] = u
		}
		if u.Parent == "" {
			continue
		}
		m := r.children[u.Parent]
		if m == nil {
			m = make(map[string]*Unit)
			r.children[u.Parent] = m
		}
		if _, dup := m[u.Code.Name]; !dup {
			m[u.Code.Name] = u
		}
	}
	return r
}

// resolve returns the unit name a callee refers to from caller, or the
// callee text itself when it names nothing in the file.
//
// Lookup order: a unit nested in the caller, a unit with that qualified
// name, a method of the caller's class for "self.m", then a unit nested in
// an enclosing unit.
func (r *resolver) resolve(caller *Unit, callee string) string {
	if callee == "" {
		return ""
	}
	if u := r.children[caller.Name][callee]; u != nil {
		return u.Name
	}
	if u := r.byQual[callee]; u != nil {
		return u.Name
	}
	if m, ok := strings.CutPrefix(callee, "self."); ok {
		if u := r.children[caller.Parent][m]; u != nil {
			return u.Name
		}
	}
	for p := r.byName[caller.Parent]; p != nil; p = r.byName[p.Parent] {
		if u := r.children[p.Name][callee]; u != nil {
			return u.Name
		}
	}
	return callee
}

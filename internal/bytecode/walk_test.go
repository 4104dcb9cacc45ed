package bytecode

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pycdump/internal/marshal"
)

func tree() *marshal.Code {
	inner := &marshal.Code{Name: "inner", Consts: &marshal.Tuple{}}
	f := &marshal.Code{Name: "f", Consts: &marshal.Tuple{Items: []marshal.Object{marshal.None{}, inner}}}
	g := &marshal.Code{Name: "g", Consts: &marshal.Tuple{}}
	return &marshal.Code{
		Name:   "<module>",
		Consts: &marshal.Tuple{Items: []marshal.Object{f, marshal.Str("f"), g, marshal.None{}}},
	}
}

func TestWalkOrder(t *testing.T) {
	var names []string
	var paths [][]int
	err := Walk(tree(), func(path []int, c *marshal.Code) error {
		names = append(names, c.Name)
		paths = append(paths, path)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"<module>", "f", "inner", "g"}, names)
	assert.Equal(t, [][]int{nil, {0}, {0, 1}, {2}}, paths)
}

func TestWalkSkipChildren(t *testing.T) {
	var names []string
	err := Walk(tree(), func(path []int, c *marshal.Code) error {
		names = append(names, c.Name)
		if c.Name == "f" {
			return SkipChildren
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"<module>", "f", "g"}, names)
}

func TestWalkStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	count := 0
	err := Walk(tree(), func(path []int, c *marshal.Code) error {
		count++
		if c.Name == "inner" {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, count)
}

func TestWalkCycle(t *testing.T) {
	self := &marshal.Code{Name: "loop", Consts: &marshal.Tuple{}}
	self.Consts.Items = append(self.Consts.Items, self)
	count := 0
	err := Walk(self, func(path []int, c *marshal.Code) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

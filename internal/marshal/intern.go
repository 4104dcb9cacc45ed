package marshal

import "pycdump/internal/pycfmt"

// internTable is the arena behind 'r' (and, for Python 2, 'R') references.
// A slot is reserved when a flagged value starts and filled once the value
// is usable: containers right after allocation, everything else when done.
type internTable struct {
	slots []Object
}

func (t *internTable) reserve() int {
	t.slots = append(t.slots, nil)
	return len(t.slots) - 1
}

func (t *internTable) fill(i int, o Object) {
	t.slots[i] = o
}

// add registers a complete value and returns its index.
func (t *internTable) add(o Object) int {
	t.slots = append(t.slots, o)
	return len(t.slots) - 1
}

// get resolves index. offset is the position of the reference tag.
func (t *internTable) get(offset int, index int32) (Object, error) {
	if index < 0 || int(index) >= len(t.slots) || t.slots[index] == nil {
		return nil, pycfmt.BadReference(offset, int(index), len(t.slots))
	}
	return t.slots[index], nil
}

// Package bytecode decodes the instruction stream of a code unit.
package bytecode

import (
	"io"
	"math"

	"pycdump/internal/marshal"
	"pycdump/internal/pycfmt"
	"pycdump/internal/pyver"
)

// Instruction is one logical instruction. Argument-extension prefixes are
// folded into Arg and counted in Size; Offset is the first prefix byte.
type Instruction struct {
	Offset int
	Opcode byte
	Name   string
	HasArg bool
	Arg    uint32
	Size   int
}

// End returns the offset just past the instruction.
func (in Instruction) End() int { return in.Offset + in.Size }

// Decoder is a forward-only cursor over a code unit's instruction bytes.
// A fresh Decoder is needed to scan again.
type Decoder struct {
	code   []byte
	name   string
	pos    int
	ops    *pyver.OpcodeTable
	layout pyver.Layout

	skipCache bool
	cacheOp   byte
}

// NewDecoder returns a decoder for c under v's opcode table and layout.
// Wordcode of odd length is rejected here.
func NewDecoder(c *marshal.Code, v *pyver.Version, opts pycfmt.Options) (*Decoder, error) {
	d := &Decoder{
		code:   c.Code,
		name:   c.DisplayName(),
		ops:    v.Opcodes,
		layout: v.Layout,
	}
	if v.Layout == pyver.LayoutWordcode && len(d.code)%2 != 0 {
		return nil, pycfmt.Malformed(len(d.code)-1, "odd wordcode length %d", len(d.code)).InCode(d.name)
	}
	if opts.SkipCache {
		// Only releases with inline caches define the CACHE opcode.
		if op, ok := v.Opcodes.ByName("CACHE"); ok {
			d.skipCache = true
			d.cacheOp = op
			d.skipCaches()
		}
	}
	return d, nil
}

// HasMore reports whether another instruction is available.
func (d *Decoder) HasMore() bool { return d.pos < len(d.code) }

// Position returns the current byte offset.
func (d *Decoder) Position() int { return d.pos }

// Advance decodes the next logical instruction. It returns io.EOF once the
// stream is exhausted.
func (d *Decoder) Advance() (Instruction, error) {
	if d.pos >= len(d.code) {
		return Instruction{}, io.EOF
	}
	start := d.pos
	bits := d.layout.OperandBits()
	ext := d.ops.ExtendedArg()
	var acc uint64
	for {
		if d.pos >= len(d.code) {
			return Instruction{}, pycfmt.Malformed(start, "dangling EXTENDED_ARG").InCode(d.name)
		}
		at := d.pos
		op := d.code[at]
		entry := d.ops.Lookup(op)

		var operand uint64
		switch {
		case d.layout == pyver.LayoutWordcode:
			operand = uint64(d.code[at+1])
			d.pos += 2
		case entry.HasArg:
			if at+3 > len(d.code) {
				return Instruction{}, pycfmt.Malformed(at, "truncated operand of %s", entry.Name).InCode(d.name)
			}
			operand = uint64(d.code[at+1]) | uint64(d.code[at+2])<<8
			d.pos += 3
		default:
			d.pos++
		}

		if op == ext {
			acc = acc<<bits | operand
			if acc > math.MaxUint32 {
				return Instruction{}, pycfmt.Malformed(start, "argument wider than 32 bits").InCode(d.name)
			}
			continue
		}

		in := Instruction{
			Offset: start,
			Opcode: op,
			Name:   entry.Name,
			HasArg: entry.HasArg,
			Size:   d.pos - start,
		}
		if entry.HasArg {
			arg := acc<<bits | operand
			if arg > math.MaxUint32 {
				return Instruction{}, pycfmt.Malformed(start, "argument wider than 32 bits").InCode(d.name)
			}
			in.Arg = uint32(arg)
		}
		if d.skipCache {
			d.skipCaches()
		}
		return in, nil
	}
}

// skipCaches steps over inline CACHE entries so HasMore stays exact.
func (d *Decoder) skipCaches() {
	for d.pos+1 < len(d.code) && d.code[d.pos] == d.cacheOp {
		d.pos += 2
	}
}

// Decode returns the whole instruction stream of c. On failure the
// instructions decoded before the error are returned with it.
func Decode(c *marshal.Code, v *pyver.Version, opts pycfmt.Options) ([]Instruction, error) {
	d, err := NewDecoder(c, v, opts)
	if err != nil {
		return nil, err
	}
	insts := make([]Instruction, 0, len(c.Code)/2)
	for d.HasMore() {
		in, err := d.Advance()
		if err != nil {
			return insts, err
		}
		insts = append(insts, in)
	}
	return insts, nil
}

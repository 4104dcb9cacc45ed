package output

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/hokaccha/go-prettyjson"

	"pycdump/internal/bytecode"
	"pycdump/internal/graph"
	"pycdump/internal/marshal"
	"pycdump/internal/pyc"
	"pycdump/internal/pycfmt"
)

// Document is the JSON form of a decoded .pyc.
type Document struct {
	File     string       `json:"file,omitempty"`
	Version  string       `json:"version"`
	Header   HeaderDoc    `json:"header"`
	RootType string       `json:"root_type"`
	Root     string       `json:"root,omitempty"` // repr when the root is not a code unit
	Units    []UnitDoc    `json:"units,omitempty"`
	Edges    []graph.Edge `json:"edges,omitempty"`
	Errors   []string     `json:"errors,omitempty"`
}

// HeaderDoc mirrors pyc.Header.
type HeaderDoc struct {
	Magic      uint16 `json:"magic"`
	Flags      uint32 `json:"flags"`
	Timestamp  uint32 `json:"timestamp,omitempty"`
	SourceSize uint32 `json:"source_size,omitempty"`
	Hash       string `json:"hash,omitempty"`
	Size       int    `json:"size"`
}

// UnitDoc describes one code unit.
type UnitDoc struct {
	Name            string    `json:"name"`
	Parent          string    `json:"parent,omitempty"`
	Path            []int     `json:"path"`
	CodeName        string    `json:"code_name"`
	QualName        string    `json:"qualname,omitempty"`
	Filename        string    `json:"filename"`
	FirstLineNo     int       `json:"first_line"`
	ArgCount        int       `json:"arg_count"`
	PosOnlyArgCount int       `json:"posonly_arg_count"`
	KwOnlyArgCount  int       `json:"kwonly_arg_count"`
	NLocals         int       `json:"nlocals"`
	StackSize       int       `json:"stack_size"`
	Flags           string    `json:"flags"`
	Consts          []string  `json:"consts"`
	Names           []string  `json:"names"`
	VarNames        []string  `json:"varnames"`
	CellVars        []string  `json:"cellvars"`
	FreeVars        []string  `json:"freevars"`
	Instructions    []InstDoc `json:"instructions"`
}

// InstDoc is one decoded instruction.
type InstDoc struct {
	Offset int     `json:"offset"`
	Opcode byte    `json:"opcode"`
	Name   string  `json:"name"`
	Arg    *uint32 `json:"arg,omitempty"`
	Repr   string  `json:"repr,omitempty"`
}

// BuildDocument decodes every unit of f into a Document. Units whose
// instructions fail to decode keep the instructions before the failure;
// the failures are listed in Errors and returned together.
func BuildDocument(path string, f *pyc.File, opts pycfmt.Options) (*Document, error) {
	doc := &Document{
		File:     path,
		Version:  f.Version.Name(),
		RootType: f.Root.Type().String(),
		Header: HeaderDoc{
			Magic:      f.Header.Magic,
			Flags:      f.Header.Flags,
			Timestamp:  f.Header.Timestamp,
			SourceSize: f.Header.SourceSize,
			Size:       f.Header.Size,
		},
	}
	if f.Header.Hash != nil {
		doc.Header.Hash = hex.EncodeToString(f.Header.Hash)
	}

	root, ok := f.Code()
	if !ok {
		doc.Root = f.Root.String()
		return doc, nil
	}

	units, err := graph.Collect(root, f.Version, opts)
	for _, u := range units {
		doc.Units = append(doc.Units, unitDoc(u, f))
	}
	doc.Edges = graph.Edges(units)
	var merr *multierror.Error
	if errors.As(err, &merr) {
		for _, e := range merr.Errors {
			doc.Errors = append(doc.Errors, e.Error())
		}
	} else if err != nil {
		doc.Errors = append(doc.Errors, err.Error())
	}
	return doc, err
}

func unitDoc(u *graph.Unit, f *pyc.File) UnitDoc {
	c := u.Code
	d := UnitDoc{
		Name:            u.Name,
		Parent:          u.Parent,
		Path:            u.Path,
		CodeName:        c.Name,
		QualName:        c.QualName,
		Filename:        c.Filename,
		FirstLineNo:     c.FirstLineNo,
		ArgCount:        c.ArgCount,
		PosOnlyArgCount: c.PosOnlyArgCount,
		KwOnlyArgCount:  c.KwOnlyArgCount,
		NLocals:         c.NLocals,
		StackSize:       c.StackSize,
		Flags:           c.Flags.String(),
		Consts:          constReprs(c),
		Names:           nonNil(c.Names),
		VarNames:        nonNil(c.VarNames),
		CellVars:        nonNil(c.CellVars),
		FreeVars:        nonNil(c.FreeVars),
		Instructions:    make([]InstDoc, 0, len(u.Insts)),
	}
	if d.Path == nil {
		d.Path = []int{}
	}
	for _, in := range u.Insts {
		id := InstDoc{Offset: in.Offset, Opcode: in.Opcode, Name: in.Name}
		if in.HasArg {
			arg := in.Arg
			id.Arg = &arg
			id.Repr = bytecode.ArgRepr(in, c, f.Version)
		}
		d.Instructions = append(d.Instructions, id)
	}
	return d
}

func constReprs(c *marshal.Code) []string {
	if c.Consts == nil {
		return []string{}
	}
	out := make([]string, 0, len(c.Consts.Items))
	for _, o := range c.Consts.Items {
		out = append(out, o.String())
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// WriteJSON writes v as indented JSON. pretty selects colored output for
// terminals.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = prettyjson.Marshal(v)
	} else {
		data, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

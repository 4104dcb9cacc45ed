// Package pyc reads compiled Python files: the version header followed by
// one marshalled object, conventionally the module's code unit.
package pyc

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"pycdump/internal/marshal"
	"pycdump/internal/pycfmt"
	"pycdump/internal/pyver"
)

// Flag bits of the 3.7+ header word.
const (
	FlagHashBased   uint32 = 1 << 0
	FlagCheckSource uint32 = 1 << 1
)

// Header holds the fields that precede the marshalled body.
//
// Layout (all little-endian):
//
//	+0x00: magic       uint16
//	+0x02: "\r\n"
//	+0x04: flags       uint32   (3.7+)
//	       mtime       uint32   \ unless hash-based
//	       source size uint32   / (size from 3.3)
//	       hash        [8]byte  (hash-based 3.7+)
type Header struct {
	Magic      uint16
	Flags      uint32
	Timestamp  uint32
	SourceSize uint32
	Hash       []byte
	Size       int // header length in bytes
}

// HashBased reports whether the file is validated by source hash rather than mtime.
func (h *Header) HashBased() bool { return h.Flags&FlagHashBased != 0 }

// CheckSource reports whether a hash-based file asks for source checking.
func (h *Header) CheckSource() bool { return h.Flags&FlagCheckSource != 0 }

// ModTime returns the recorded source mtime, or the zero time for hash-based files.
func (h *Header) ModTime() time.Time {
	if h.HashBased() || h.Timestamp == 0 {
		return time.Time{}
	}
	return time.Unix(int64(h.Timestamp), 0).UTC()
}

// File is a decoded .pyc.
type File struct {
	Header  *Header
	Version *pyver.Version
	Root    marshal.Object
}

// Code returns the root object when it is a code unit.
func (f *File) Code() (*marshal.Code, bool) {
	c, ok := f.Root.(*marshal.Code)
	return c, ok
}

// ReadMagic reads the version marker and resolves it, honouring
// opts.Version as an override.
func ReadMagic(s *pycfmt.Stream, opts pycfmt.Options) (uint16, *pyver.Version, error) {
	at := s.Position()
	magic, err := s.ReadUint16()
	if err != nil {
		return 0, nil, err
	}
	if opts.Version != "" {
		v, err := pyver.Lookup(opts.Version)
		if err != nil {
			return magic, nil, err
		}
		if magic < v.MagicMin || magic > v.Magic {
			pycfmt.Logger().Warn("magic does not match forced version",
				zap.Uint16("magic", magic), zap.String("version", v.Name()))
		}
		return magic, v, nil
	}
	v, err := pyver.Resolve(magic)
	if err != nil {
		if perr, ok := err.(*pycfmt.Error); ok {
			perr.Offset = at
		}
		return magic, nil, err
	}
	return magic, v, nil
}

// ParseHeader reads the header fields that follow the magic under v's layout.
func ParseHeader(s *pycfmt.Stream, magic uint16, v *pyver.Version) (*Header, error) {
	start := s.Position() - 2
	h := &Header{Magic: magic}

	at := s.Position()
	crlf, err := s.ReadBytes(2)
	if err != nil {
		return nil, err
	}
	if crlf[0] != '\r' || crlf[1] != '\n' {
		return nil, pycfmt.InvalidData(at, "magic not followed by \\r\\n")
	}

	if v.Header == pyver.HeaderFlags {
		if h.Flags, err = s.ReadUint32(); err != nil {
			return nil, err
		}
	}
	if h.HashBased() {
		if h.Hash, err = s.ReadBytes(8); err != nil {
			return nil, err
		}
	} else {
		if h.Timestamp, err = s.ReadUint32(); err != nil {
			return nil, err
		}
		if v.Header != pyver.HeaderTimestamp {
			if h.SourceSize, err = s.ReadUint32(); err != nil {
				return nil, err
			}
		}
	}
	h.Size = s.Position() - start
	return h, nil
}

// ReadRootObject decodes the marshalled body at the stream position.
func ReadRootObject(s *pycfmt.Stream, v *pyver.Version, opts pycfmt.Options) (marshal.Object, error) {
	root, err := marshal.ReadObject(s, v, opts)
	if err != nil {
		return nil, err
	}
	if n := s.Remaining(); n > 0 {
		pycfmt.Logger().Debug("trailing bytes after root object", zap.Int("bytes", n))
	}
	return root, nil
}

// Parse decodes a whole .pyc image. On failure no partial result is returned.
func Parse(data []byte, opts pycfmt.Options) (*File, error) {
	s := pycfmt.NewStream(data)
	magic, v, err := ReadMagic(s, opts)
	if err != nil {
		return nil, err
	}
	h, err := ParseHeader(s, magic, v)
	if err != nil {
		return nil, err
	}
	pycfmt.Logger().Debug("pyc header",
		zap.String("version", v.Name()),
		zap.Uint16("magic", magic),
		zap.Uint32("flags", h.Flags),
		zap.Int("header_size", h.Size),
	)
	root, err := ReadRootObject(s, v, opts)
	if err != nil {
		return nil, err
	}
	return &File{Header: h, Version: v, Root: root}, nil
}

// ReadFile reads and decodes the .pyc at path.
func ReadFile(path string, opts pycfmt.Options) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

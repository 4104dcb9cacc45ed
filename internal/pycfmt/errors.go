// Package pycfmt provides the byte cursor, error taxonomy and decode options
// shared by the pyc, marshal and bytecode packages.
package pycfmt

import (
	"fmt"
	"strings"
)

// Kind classifies a decode failure.
type Kind string

const (
	KindUnsupportedVersion Kind = "unsupported_version"
	KindTruncated          Kind = "truncated_input"
	KindUnknownTag         Kind = "unknown_type_tag"
	KindBadReference       Kind = "bad_reference"
	KindMalformedBytecode  Kind = "malformed_bytecode"
	KindDepthExceeded      Kind = "depth_exceeded"
	KindInvalidData        Kind = "invalid_data"
)

// Error is a terminal decode failure. Offset is the byte position in the
// buffer being decoded (the file for marshal errors, the code unit's
// instruction bytes for bytecode errors); Code names the code unit when known.
type Error struct {
	Kind   Kind
	Offset int
	Code   string
	Detail string
	Cause  error
}

// Sentinels for errors.Is; they match any *Error of the same Kind.
var (
	ErrUnsupportedVersion = &Error{Kind: KindUnsupportedVersion}
	ErrTruncated          = &Error{Kind: KindTruncated}
	ErrUnknownTag         = &Error{Kind: KindUnknownTag}
	ErrBadReference       = &Error{Kind: KindBadReference}
	ErrMalformedBytecode  = &Error{Kind: KindMalformedBytecode}
	ErrDepthExceeded      = &Error{Kind: KindDepthExceeded}
	ErrInvalidData        = &Error{Kind: KindInvalidData}
)

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(string(e.Kind))
	b.WriteString("] ")
	fmt.Fprintf(&b, "0x%x", e.Offset)
	if e.Code != "" {
		b.WriteString(" in ")
		b.WriteString(e.Code)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// InCode returns a copy of e attributed to the named code unit.
// An existing attribution is kept, so the innermost unit wins.
func (e *Error) InCode(name string) *Error {
	if e.Code != "" {
		return e
	}
	c := *e
	c.Code = name
	return &c
}

// Errorf builds an *Error of the given kind.
func Errorf(kind Kind, offset int, format string, args ...any) *Error {
	detail := format
	if len(args) > 0 {
		detail = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: kind, Offset: offset, Detail: detail}
}

// Truncated reports a read of need bytes at offset with only have left.
func Truncated(offset, need, have int) *Error {
	return Errorf(KindTruncated, offset, "need %d bytes, %d left", need, have)
}

// UnknownTag reports an unrecognized marshal type byte.
func UnknownTag(offset int, tag byte) *Error {
	return Errorf(KindUnknownTag, offset, "type code 0x%02x (%q)", tag, rune(tag&0x7f))
}

// BadReference reports a reference index that does not resolve.
func BadReference(offset, index, slots int) *Error {
	return Errorf(KindBadReference, offset, "reference %d does not resolve (%d slots)", index, slots)
}

// Unsupported reports an unknown version marker.
func Unsupported(offset int, magic uint16) *Error {
	return Errorf(KindUnsupportedVersion, offset, "magic %d (0x%04x)", magic, magic)
}

// DepthExceeded reports nesting beyond the configured limit.
func DepthExceeded(offset, limit int) *Error {
	return Errorf(KindDepthExceeded, offset, "nesting deeper than %d", limit)
}

// Malformed reports an instruction stream that cannot be decoded.
func Malformed(offset int, format string, args ...any) *Error {
	return Errorf(KindMalformedBytecode, offset, format, args...)
}

// InvalidData reports a structurally invalid value.
func InvalidData(offset int, format string, args ...any) *Error {
	return Errorf(KindInvalidData, offset, format, args...)
}

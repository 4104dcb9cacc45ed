package pycfmt

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := UnknownTag(12, 'Q')
	assert.True(t, errors.Is(err, ErrUnknownTag))
	assert.False(t, errors.Is(err, ErrTruncated))

	wrapped := fmt.Errorf("read root: %w", err)
	assert.True(t, errors.Is(wrapped, ErrUnknownTag))
}

func TestErrorString(t *testing.T) {
	err := Malformed(6, "dangling extension").InCode("<module>")
	assert.Equal(t, "[malformed_bytecode] 0x6 in <module>: dangling extension", err.Error())

	inner := BadReference(3, 9, 2).InCode("inner")
	assert.Equal(t, "inner", inner.InCode("outer").Code)
}

func TestErrorCause(t *testing.T) {
	cause := errors.New("boom")
	err := &Error{Kind: KindInvalidData, Offset: 1, Cause: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "caused by: boom")
}

func TestEffectiveMaxDepth(t *testing.T) {
	assert.Equal(t, DefaultMaxDepth, Options{}.EffectiveMaxDepth())
	assert.Equal(t, 5, Options{MaxDepth: 5}.EffectiveMaxDepth())
}

package pycfmt

import (
	"sync"

	"go.uber.org/zap"
)

// Options controls decoding behavior across packages.
type Options struct {
	MaxDepth  int    // nested value limit; 0 = DefaultMaxDepth
	SkipCache bool   // hide inline CACHE entries from instruction streams
	Version   string // force a version row ("3.9") instead of resolving the magic
}

// DefaultMaxDepth matches the reference runtime's marshal recursion limit.
const DefaultMaxDepth = 2000

// EffectiveMaxDepth returns MaxDepth or the default.
func (o Options) EffectiveMaxDepth() int {
	if o.MaxDepth > 0 {
		return o.MaxDepth
	}
	return DefaultMaxDepth
}

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the decoder logger. It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the decoder logger.
// This must be called before any decode operations.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

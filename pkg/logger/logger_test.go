package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestLog(t *testing.T) {
	base := Run("error")
	assert.NotNil(t, base)
	assert.Same(t, base, Log(context.Background()))

	scoped := zap.NewNop().Sugar().With("request_id", "abc")
	ctx := WithLogger(context.Background(), scoped)
	assert.Same(t, scoped, Log(ctx))
}

func TestRunUnknownLevel(t *testing.T) {
	l := Run("loud")
	assert.True(t, l.Desugar().Core().Enabled(zap.InfoLevel))
	assert.False(t, l.Desugar().Core().Enabled(zap.DebugLevel))
}

func TestReplace(t *testing.T) {
	l := zap.NewNop().Sugar()
	restore := Replace(l)
	assert.Same(t, l, Log(context.Background()))
	restore()
	assert.NotSame(t, l, Log(context.Background()))
}

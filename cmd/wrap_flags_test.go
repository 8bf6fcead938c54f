package cmd

import (
	"testing"

	"github.com/forkchoice/beacon/testing/assert"
	"github.com/urfave/cli/v2"
	"github.com/urfave/cli/v2/altsrc"
)

func TestWrapFlags(t *testing.T) {
	wrapped := WrapFlags([]cli.Flag{
		VerbosityFlag,
		EnableTracingFlag,
		TraceSampleFractionFlag,
		LogFormat,
		&cli.DurationFlag{Name: "duration"},
		&cli.Uint64Flag{Name: "uint64"},
	})
	assert.Equal(t, 6, len(wrapped))
	_, ok := wrapped[0].(*altsrc.StringFlag)
	assert.Equal(t, true, ok)
	_, ok = wrapped[1].(*altsrc.BoolFlag)
	assert.Equal(t, true, ok)
	_, ok = wrapped[2].(*altsrc.Float64Flag)
	assert.Equal(t, true, ok)
	_, ok = wrapped[3].(*altsrc.GenericFlag)
	assert.Equal(t, true, ok)
	_, ok = wrapped[4].(*altsrc.DurationFlag)
	assert.Equal(t, true, ok)
	_, ok = wrapped[5].(*altsrc.Uint64Flag)
	assert.Equal(t, true, ok)
}

func TestWrapFlags_Unsupported(t *testing.T) {
	defer func() {
		assert.NotNil(t, recover())
	}()
	WrapFlags([]cli.Flag{&cli.Int64Flag{Name: "int64"}})
}

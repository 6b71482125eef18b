package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLineBufferBoundary verifies the capacity leaves room for the newline
func TestLineBufferBoundary(t *testing.T) {
	tests := []struct {
		name      string
		appends   int
		accepted  int
		submitLen int
	}{
		{name: "Empty", appends: 0, accepted: 0, submitLen: 1},
		{name: "Short", appends: 5, accepted: 5, submitLen: 6},
		{name: "Last free byte", appends: LineBufferSize - 1, accepted: LineBufferSize - 1, submitLen: LineBufferSize},
		{name: "Overflow", appends: LineBufferSize + 10, accepted: LineBufferSize - 1, submitLen: LineBufferSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b LineBuffer
			accepted := 0
			for i := 0; i < tt.appends; i++ {
				err := b.Append('a')
				if err == nil {
					accepted++
					continue
				}
				require.ErrorIs(t, err, ErrLineFull)
			}
			assert.Equal(t, tt.accepted, accepted)

			line, err := b.Submit()
			require.NoError(t, err)
			assert.Len(t, line, tt.submitLen)
			assert.Equal(t, byte('\n'), line[len(line)-1])
			assert.Zero(t, b.Len(), "buffer empty after submit")
		})
	}
}

// TestLineBufferKeepsPendingBytes verifies a line without newline is held, not forwarded
func TestLineBufferKeepsPendingBytes(t *testing.T) {
	var b LineBuffer
	for _, c := range []byte("partial") {
		require.NoError(t, b.Append(c))
	}
	assert.Equal(t, []byte("partial"), b.Bytes())

	b.Reset()
	assert.Zero(t, b.Len())
	assert.Empty(t, b.Bytes())
}

// TestLineBufferSubmitCopies verifies the submitted line survives later edits
func TestLineBufferSubmitCopies(t *testing.T) {
	var b LineBuffer
	require.NoError(t, b.Append('x'))
	line, err := b.Submit()
	require.NoError(t, err)

	require.NoError(t, b.Append('y'))
	assert.Equal(t, "x\n", string(line))
}

package pointer_test

import (
	"testing"

	"deedles.dev/cascade/pointer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestButtonString(t *testing.T) {
	assert.Equal(t, "left", pointer.ButtonLeft.String())
	assert.Equal(t, "task", pointer.ButtonTask.String())
	assert.Equal(t, "unknown(0x42)", pointer.Button(0x42).String())
}

func TestParseButton(t *testing.T) {
	for b := pointer.ButtonLeft; b <= pointer.ButtonTask; b++ {
		parsed, err := pointer.ParseButton(b.String())
		require.NoError(t, err)
		assert.Equal(t, b, parsed)
	}

	_, err := pointer.ParseButton("thumb")
	assert.Error(t, err)
}

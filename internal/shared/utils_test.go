package shared

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeRandHexString(t *testing.T) {
	s, err := MakeRandHexString(32)
	require.NoError(t, err)
	assert.Len(t, s, 64)

	_, err = hex.DecodeString(s)
	assert.NoError(t, err)

	other, err := MakeRandHexString(32)
	require.NoError(t, err)
	assert.NotEqual(t, s, other)
}

func TestWipeByteArray(t *testing.T) {
	b := []byte("P@$$w0rd")
	WipeByteArray(b)
	assert.Equal(t, make([]byte, 8), b)

	WipeByteArray(nil)
}

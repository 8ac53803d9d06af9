package session

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	codec, err := NewCodec("s3cret")
	require.NoError(t, err)

	id := uuid.NewString()
	value := codec.Encode(id)
	assert.True(t, strings.HasPrefix(value, id+"."))

	got, ok := codec.Decode(value)
	require.True(t, ok)
	assert.Equal(t, id, got)
}

func TestCodecRejectsTampering(t *testing.T) {
	codec, err := NewCodec("s3cret")
	require.NoError(t, err)
	id := uuid.NewString()
	value := codec.Encode(id)
	other, err := NewCodec("different")
	require.NoError(t, err)

	tests := []struct {
		name  string
		value string
	}{
		{"empty", ""},
		{"no signature", id},
		{"swapped id", uuid.NewString() + value[len(id):]},
		{"truncated signature", value[:len(value)-2]},
		{"not base64", id + ".!!!"},
		{"not a uuid", "abc." + strings.SplitN(value, ".", 2)[1]},
		{"other key", other.Encode(id)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := codec.Decode(tt.value)
			assert.False(t, ok)
		})
	}
}

func TestCodecKeys(t *testing.T) {
	id := uuid.NewString()

	a, err := NewCodec("shared")
	require.NoError(t, err)
	b, err := NewCodec("shared")
	require.NoError(t, err)
	assert.Equal(t, a.Encode(id), b.Encode(id), "the same secret signs the same way")

	r1, err := NewCodec("")
	require.NoError(t, err)
	r2, err := NewCodec("")
	require.NoError(t, err)
	_, ok := r2.Decode(r1.Encode(id))
	assert.False(t, ok, "random keys differ per codec")
}

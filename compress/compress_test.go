package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("startup vectors compress well "), 200)

	for _, name := range []string{"zstd", "lz4", "none"} {
		t.Run(name, func(t *testing.T) {
			c, ok := ByName(name)
			require.True(t, ok)
			assert.Equal(t, name, c.Name())

			compressed, err := c.Compress(payload)
			require.NoError(t, err)

			restored, err := c.Decompress(compressed)
			require.NoError(t, err)
			assert.Equal(t, payload, restored)

			if name != "none" {
				assert.Less(t, len(compressed), len(payload))
			}
		})
	}
}

func TestByName_Unknown(t *testing.T) {
	_, ok := ByName("snappy")
	assert.False(t, ok)
}

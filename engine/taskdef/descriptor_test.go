package taskdef

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Run("Should decode a normalized definition into typed descriptors", func(t *testing.T) {
		normalized, err := Normalize(mustParse(t, bufferDefinition))
		require.NoError(t, err)

		desc, err := Decode(normalized, "demo:Buffer")

		require.NoError(t, err)
		assert.Equal(t, "demo:Buffer", desc.URI)
		assert.Equal(t, "Buffer", desc.Name)
		assert.Equal(t, "Buffer Raster", desc.DisplayName)
		require.NotNil(t, desc.CommuteOnSubset)
		assert.True(t, *desc.CommuteOnSubset)
		assert.Nil(t, desc.CommuteOnDownsample)
		assert.Equal(t, "1.2.0", desc.Extra["REVISION"])
		require.Len(t, desc.Parameters, 3)

		raster := desc.Parameters[0]
		assert.True(t, raster.Required)
		assert.True(t, raster.IsInput())
		assert.Equal(t, "ENVIRASTER", raster.Type)

		distances := desc.Parameters[1]
		assert.Equal(t, "DOUBLE", distances.Type)
		assert.Equal(t, json.Number("5"), distances.DefaultValue)
		assert.Equal(t, json.Number("0"), distances.Min)
		assert.Nil(t, distances.Max)
		assert.Nil(t, distances.ChoiceList)

		labels := desc.Parameters[2]
		assert.True(t, labels.IsOutput())
		assert.Equal(t, "[*]", labels.Dimensions)
		require.NotNil(t, labels.FoldCase)
		assert.True(t, *labels.FoldCase)
		require.NotNil(t, labels.AutoExtension)
		assert.Equal(t, ".txt", *labels.AutoExtension)
		require.NotNil(t, labels.IsDirectory)
		assert.False(t, *labels.IsDirectory)
		assert.Equal(t, "labels", labels.Extra["KEYWORD"])
	})

	t.Run("Should decode numeric flags as booleans", func(t *testing.T) {
		normalized, err := Normalize(mustParse(t, `{"NAME": "T", "COMMUTE_ON_DOWNSAMPLE": 1}`))
		require.NoError(t, err)

		desc, err := Decode(normalized, "demo:T")

		require.NoError(t, err)
		require.NotNil(t, desc.CommuteOnDownsample)
		assert.True(t, *desc.CommuteOnDownsample)
	})

	t.Run("Should reject a nil definition", func(t *testing.T) {
		_, err := Decode(nil, "demo:T")

		require.ErrorIs(t, err, ErrInvalidDefinition)
	})
}

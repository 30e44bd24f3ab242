package document

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "idintake/pkg/domain-errors"
)

func TestDecode(t *testing.T) {
	t.Run("png", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 12, 7))))

		img, err := Decode(buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, 12, img.Width)
		assert.Equal(t, 7, img.Height)
		assert.Equal(t, "png", img.Format)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := Decode(nil)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := Decode([]byte("definitely not an image"))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnprocessable))
	})
}

func TestNormalizedRegionClamp(t *testing.T) {
	got := NormalizedRegion{X: -0.5, Y: 1.7, W: 0.4, H: 2}.Clamp()
	assert.Equal(t, NormalizedRegion{X: 0, Y: 1, W: 0.4, H: 1}, got)
}

func TestRegionLayoutIsIsolated(t *testing.T) {
	src := map[Field]NormalizedRegion{FieldName: {X: 0.1, Y: 0.1, W: 0.5, H: 0.1}}
	layout := NewRegionLayout("test", 1, src)
	src[FieldName] = NormalizedRegion{}

	r, ok := layout.Region(FieldName)
	require.True(t, ok)
	assert.Equal(t, 0.5, r.W)
	assert.Equal(t, []Field{FieldName}, layout.Fields())
}

func TestExtractedDocumentDataAccessors(t *testing.T) {
	dob := "1990-05-14"
	bad := "1990-13-40"
	data := ExtractedDocumentData{Fields: map[Field]FieldOcrResult{
		FieldDOB:    {Field: FieldDOB, Normalized: &dob, Confidence: 80},
		FieldExpiry: {Field: FieldExpiry, Normalized: &bad, Confidence: 40},
		FieldName:   {Field: FieldName, Confidence: 10},
	}}

	birth, ok := data.BirthDate()
	require.True(t, ok)
	assert.Equal(t, 1990, birth.Year())

	_, ok = data.Expiry()
	assert.False(t, ok)
	_, ok = data.Name()
	assert.False(t, ok)

	results := []FieldOcrResult{data.Fields[FieldDOB], data.Fields[FieldExpiry]}
	assert.InDelta(t, 60, MeanConfidence(results), 0.001)
	assert.Zero(t, MeanConfidence(nil))
}

package render

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

// pngHeader is a PNG that stops after its IHDR chunk and declares w x h RGBA pixels
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	chunk := make([]byte, 4+13)
	copy(chunk, "IHDR")
	binary.BigEndian.PutUint32(chunk[4:], w)
	binary.BigEndian.PutUint32(chunk[8:], h)
	chunk[12] = 8 // bit depth
	chunk[13] = 6 // truecolor with alpha
	_ = binary.Write(&buf, binary.BigEndian, uint32(13))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestDecodeImage(t *testing.T) {
	raw := encodePNG(t, 30, 10)
	b64 := base64.StdEncoding.EncodeToString(raw)

	for name, in := range map[string]string{
		"raw":      string(raw),
		"base64":   b64,
		"data url": "data:image/png;base64," + b64,
		"wrapped":  b64[:20] + "\n" + b64[20:],
	} {
		img, err := DecodeImage(in)
		require.NoError(t, err, name)
		assert.Equal(t, 30, img.Bounds().Dx(), name)
	}

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8)), nil))
	img, err := DecodeImage(base64.StdEncoding.EncodeToString(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
}

func TestDecodeImageErrors(t *testing.T) {
	for _, in := range []string{
		"",
		"   ",
		"data:image/png,notbase64",
		"data:image/png;base64",
		"!!!",
		base64.StdEncoding.EncodeToString([]byte("plain text")),
	} {
		_, err := DecodeImage(in)
		assert.Error(t, err, in)
	}
}

func TestDecodeImageTooLarge(t *testing.T) {
	for name, raw := range map[string][]byte{
		"huge":        pngHeader(60000, 60000),
		"wide":        encodePNG(t, MaxImageSide+1, 1),
		"many pixels": pngHeader(5000, 5000),
	} {
		_, err := DecodeImage("data:image/png;base64," + base64.StdEncoding.EncodeToString(raw))
		assert.ErrorIs(t, err, ErrImageTooLarge, name)
	}

	img, err := DecodeImage(string(encodePNG(t, MaxImageSide, 2)))
	require.NoError(t, err)
	assert.Equal(t, MaxImageSide, img.Bounds().Dx())
}

func TestFitBox(t *testing.T) {
	w, h := FitBox(400, 100, 100, 50)
	assert.InDelta(t, 100, w, 1e-9)
	assert.InDelta(t, 25, h, 1e-9)

	w, h = FitBox(100, 400, 100, 50)
	assert.InDelta(t, 12.5, w, 1e-9)
	assert.InDelta(t, 50, h, 1e-9)

	w, h = FitBox(0, 10, 100, 50)
	assert.Zero(t, w)
	assert.Zero(t, h)
}

func TestDownsample(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 1000, 250))
	out := Downsample(img, 50)
	assert.Equal(t, image.Rect(0, 0, 200, 50), out.Bounds())

	small := image.NewGray(image.Rect(0, 0, 100, 25))
	assert.Same(t, small, Downsample(small, 50))
}

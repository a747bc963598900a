package images

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestFromBytes(t *testing.T) {
	p, err := FromBytes(testJPEG(t, 120, 80))
	require.NoError(t, err)
	require.Equal(t, "image/jpeg", p.MIME)
	require.Equal(t, 120, p.Width)
	require.Equal(t, 80, p.Height)
}

func TestFromBytesRejectsGarbage(t *testing.T) {
	_, err := FromBytes([]byte("not an image at all"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "capture failed")

	_, err = FromBytes(nil)
	require.Error(t, err)
}

func TestDataURIRoundTrip(t *testing.T) {
	p, err := FromBytes(testJPEG(t, 40, 40))
	require.NoError(t, err)

	uri := p.DataURI()
	require.True(t, strings.HasPrefix(uri, "data:image/jpeg;base64,"))

	back, err := FromDataURI(uri)
	require.NoError(t, err)
	require.Equal(t, p.Width, back.Width)
	require.Equal(t, p.Height, back.Height)
}

func TestFromDataURIRejectsMalformed(t *testing.T) {
	_, err := FromDataURI("http://example.com/image.jpg")
	require.Error(t, err)

	_, err = FromDataURI("data:image/jpeg,no-base64-marker")
	require.Error(t, err)

	_, err = FromDataURI("data:image/jpeg;base64,!!!not-base64!!!")
	require.Error(t, err)
}

func TestCompressDownscalesWideImages(t *testing.T) {
	p, err := FromBytes(testJPEG(t, 2000, 1000))
	require.NoError(t, err)

	out, ok := Compress(p, 800, 80)
	require.True(t, ok)
	require.Equal(t, 800, out.Width)
	require.Equal(t, 400, out.Height)
	require.Equal(t, "image/jpeg", out.MIME)
}

func TestCompressKeepsNarrowImageDimensions(t *testing.T) {
	p, err := FromBytes(testJPEG(t, 300, 200))
	require.NoError(t, err)

	out, ok := Compress(p, 800, 80)
	require.True(t, ok)
	require.Equal(t, 300, out.Width)
	require.Equal(t, 200, out.Height)
}

func TestCompressFallsBackOnUndecodableData(t *testing.T) {
	original := Payload{Data: []byte("junk"), MIME: "image/jpeg", Width: 1, Height: 1}
	out, ok := Compress(original, 800, 80)
	require.False(t, ok)
	require.Equal(t, original, out)
}

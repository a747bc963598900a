// Package images acquires and bounds ID photos. Captures arrive as raw
// bytes or base64 data URIs, get decoded, optionally downscaled to a maximum
// width, and leave as JPEG data URIs small enough to embed in the
// extraction and submission payloads.
package images

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"math"
	"strings"

	xdraw "golang.org/x/image/draw"
)

const (
	// DefaultMaxWidth bounds captured ID photos before they are embedded.
	DefaultMaxWidth = 1280
	// DefaultQuality is the lossy JPEG re-encode factor.
	DefaultQuality = 80
)

// Payload is one self-contained captured image.
type Payload struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// DataURI renders the payload in the data:<mime>;base64,<data> interchange
// format the rest of the system carries images in.
func (p Payload) DataURI() string {
	return "data:" + p.MIME + ";base64," + base64.StdEncoding.EncodeToString(p.Data)
}

// FromBytes decodes a raw camera frame or uploaded file into a Payload.
func FromBytes(data []byte) (Payload, error) {
	if len(data) == 0 {
		return Payload{}, fmt.Errorf("capture failed: no image data")
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Payload{}, fmt.Errorf("capture failed: %w", err)
	}

	bounds := img.Bounds()
	slog.Debug("Image captured", "format", format, "width", bounds.Dx(), "height", bounds.Dy(), "bytes", len(data))

	mime := "image/" + format
	if format == "jpeg" {
		mime = "image/jpeg"
	}
	return Payload{Data: data, MIME: mime, Width: bounds.Dx(), Height: bounds.Dy()}, nil
}

// FromDataURI decodes a data:<mime>;base64,<data> string into a Payload.
func FromDataURI(uri string) (Payload, error) {
	if !strings.HasPrefix(uri, "data:") {
		return Payload{}, fmt.Errorf("capture failed: not a data URI")
	}
	comma := strings.IndexByte(uri, ',')
	if comma < 0 || !strings.Contains(uri[:comma], ";base64") {
		return Payload{}, fmt.Errorf("capture failed: malformed data URI")
	}

	data, err := base64.StdEncoding.DecodeString(uri[comma+1:])
	if err != nil {
		return Payload{}, fmt.Errorf("capture failed: invalid base64 payload: %w", err)
	}
	return FromBytes(data)
}

// Compress re-encodes the payload as JPEG at the given quality, downscaling
// first when the image is wider than maxWidth (aspect ratio preserved).
// Compression never blocks a capture: on any error the original payload is
// returned with ok=false so callers can surface a soft notice and move on.
func Compress(p Payload, maxWidth, quality int) (Payload, bool) {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	img, _, err := image.Decode(bytes.NewReader(p.Data))
	if err != nil {
		slog.Warn("Compression skipped, keeping original image", "error", err)
		return p, false
	}

	if img.Bounds().Dx() > maxWidth {
		img = scaleToWidth(img, maxWidth)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		slog.Warn("JPEG encode failed, keeping original image", "error", err)
		return p, false
	}

	out := Payload{
		Data:   buf.Bytes(),
		MIME:   "image/jpeg",
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}
	slog.Debug("Image compressed", "width", out.Width, "height", out.Height, "bytes_before", len(p.Data), "bytes_after", len(out.Data))
	return out, true
}

// scaleToWidth downscales src to the given width, keeping aspect ratio.
func scaleToWidth(src image.Image, width int) image.Image {
	bw := src.Bounds().Dx()
	bh := src.Bounds().Dy()

	scale := float64(width) / float64(bw)
	if scale >= 1.0 {
		return src // already small enough
	}
	h := int(math.Max(1, math.Round(float64(bh)*scale)))

	dst := image.NewRGBA(image.Rect(0, 0, width, h))
	// CatmullRom = high quality, good for document photos.
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}

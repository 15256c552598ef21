package render

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"math"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

const (
	// MaxPixelsPerPoint caps the embedded raster resolution of a signature
	MaxPixelsPerPoint = 4.0
	// MaxImageSide and MaxImagePixels bound the dimensions an image header may
	// declare. Larger images are refused before any pixel buffer is allocated
	MaxImageSide   = 8192
	MaxImagePixels = 4096 * 4096
)

var (
	ErrEmptyImage    = errors.New("empty image")
	ErrImageTooLarge = errors.New("image too large")
)

// DecodeImage accepts raw image bytes, standard base64 or a data URL
// ("data:image/png;base64,...") and decodes PNG, JPEG or WebP
func DecodeImage(encoded string) (image.Image, error) {
	raw, err := decodePayload(strings.TrimSpace(encoded))
	if err != nil {
		return nil, err
	}
	if err = checkImageSize(raw); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		var webpErr error
		if img, webpErr = webp.Decode(bytes.NewReader(raw)); webpErr != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, ErrEmptyImage
	}
	return img, nil
}

// checkImageSize reads only the image header
func checkImageSize(raw []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		var webpErr error
		if cfg, webpErr = webp.DecodeConfig(bytes.NewReader(raw)); webpErr != nil {
			return fmt.Errorf("decode image: %w", err)
		}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return ErrEmptyImage
	}
	if cfg.Width > MaxImageSide || cfg.Height > MaxImageSide || cfg.Width*cfg.Height > MaxImagePixels {
		return fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}
	return nil
}

func decodePayload(s string) ([]byte, error) {
	if s == "" {
		return nil, ErrEmptyImage
	}
	if strings.HasPrefix(s, "data:") {
		header, data, ok := strings.Cut(s, ",")
		if !ok {
			return nil, errors.New("malformed data url")
		}
		if !strings.HasSuffix(header, ";base64") {
			return nil, fmt.Errorf("unsupported data url encoding %q", header)
		}
		s = data
	} else if looksBinary(s) {
		return []byte(s), nil
	}
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		if raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); err != nil {
			return nil, fmt.Errorf("decode base64: %w", err)
		}
	}
	return raw, nil
}

// looksBinary detects raw PNG/JPEG/WebP bytes passed through unencoded
func looksBinary(s string) bool {
	return strings.HasPrefix(s, "\x89PNG") ||
		strings.HasPrefix(s, "\xff\xd8\xff") ||
		(strings.HasPrefix(s, "RIFF") && len(s) > 12 && s[8:12] == "WEBP")
}

// FitBox scales an image of imgW x imgH uniformly to fit boxW x boxH
func FitBox(imgW, imgH, boxW, boxH float64) (float64, float64) {
	if imgW <= 0 || imgH <= 0 {
		return 0, 0
	}
	s := math.Min(boxW/imgW, boxH/imgH)
	return imgW * s, imgH * s
}

// Downsample shrinks img so it has at most MaxPixelsPerPoint pixels per point
// of the drawn width w. Smaller images are returned unchanged
func Downsample(img image.Image, w float64) image.Image {
	b := img.Bounds()
	maxPx := int(math.Ceil(w * MaxPixelsPerPoint))
	if maxPx <= 0 || b.Dx() <= maxPx {
		return img
	}
	h := int(math.Round(float64(b.Dy()) * float64(maxPx) / float64(b.Dx())))
	if h < 1 {
		h = 1
	}
	dst := image.NewNRGBA(image.Rect(0, 0, maxPx, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}

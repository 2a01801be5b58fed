// Package imaging prepares uploaded files for the vision model: MIME
// detection, SVG rasterization and downscaling of large photos.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

const (
	// CanvasSize is the edge length of the square canvas SVGs are drawn on.
	CanvasSize = 1024
	// MaxUploadWidth is the widest raster image sent to the model as is.
	MaxUploadWidth = 2048
	// JPEGQuality is used whenever an image is re-encoded.
	JPEGQuality = 85
)

var extensionTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".pdf":  "application/pdf",
}

// DetectMIME returns the MIME type of a file from its extension, falling
// back to content sniffing.
func DetectMIME(name string, data []byte) string {
	if mt, ok := extensionTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return mt
	}
	mt := http.DetectContentType(data)
	if i := strings.Index(mt, ";"); i != -1 {
		mt = mt[:i]
	}
	return mt
}

// IsVideo reports whether mimeType is a video type.
func IsVideo(mimeType string) bool {
	return strings.HasPrefix(mimeType, "video/")
}

// RasterizeSVG draws an SVG document centered on a white CanvasSize square
// canvas, keeping its aspect ratio, and returns it PNG encoded.
func RasterizeSVG(svg []byte) ([]byte, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svg), oksvg.WarnErrorMode)
	if err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}

	x, y, w, h := fitCanvas(icon.ViewBox.W, icon.ViewBox.H, CanvasSize)
	icon.SetTarget(x, y, w, h)

	canvas := image.NewRGBA(image.Rect(0, 0, CanvasSize, CanvasSize))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(CanvasSize, CanvasSize, canvas, canvas.Bounds())
	icon.Draw(rasterx.NewDasher(CanvasSize, CanvasSize, scanner), 1)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// fitCanvas returns the target rectangle that fits a w x h drawing into a
// size x size canvas.
func fitCanvas(w, h float64, size int) (x, y, tw, th float64) {
	s := float64(size)
	if w <= 0 || h <= 0 {
		return 0, 0, s, s
	}
	scale := s / w
	if h*scale > s {
		scale = s / h
	}
	tw, th = w*scale, h*scale
	return (s - tw) / 2, (s - th) / 2, tw, th
}

// Downscale re-encodes an image as JPEG no wider than maxWidth, keeping the
// aspect ratio. Images already narrow enough are returned untouched.
func Downscale(data []byte, maxWidth int) ([]byte, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image config: %w", err)
	}
	if maxWidth <= 0 || cfg.Width <= maxWidth {
		return data, "image/" + format, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}

	newHeight := uint(float64(maxWidth) * float64(cfg.Height) / float64(cfg.Width))
	resized := resize.Resize(uint(maxWidth), newHeight, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, "", fmt.Errorf("encode resized image: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}

// Prepare returns the bytes and MIME type to send to the model for an
// uploaded file. SVGs are rasterized, wide photos downscaled and videos
// passed through.
func Prepare(data []byte, mimeType string) ([]byte, string, error) {
	switch {
	case mimeType == "image/svg+xml":
		out, err := RasterizeSVG(data)
		if err != nil {
			return nil, "", err
		}
		return out, "image/png", nil
	case mimeType == "image/jpeg" || mimeType == "image/png":
		return Downscale(data, MaxUploadWidth)
	default:
		return data, mimeType, nil
	}
}

package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 200 100" width="200" height="100">
  <rect x="0" y="0" width="200" height="100" fill="#ff0000"/>
</svg>`

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.Black)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRasterizeSVG_FixedCanvas(t *testing.T) {
	out, err := RasterizeSVG([]byte(testSVG))
	if err != nil {
		t.Fatal(err)
	}

	img, format, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "png", format)
	assert.Equal(t, CanvasSize, img.Bounds().Dx())
	assert.Equal(t, CanvasSize, img.Bounds().Dy())

	// 2:1 drawing is letterboxed: top edge white, center red.
	r, g, b, _ := img.At(CanvasSize/2, 10).RGBA()
	assert.Equal(t, [3]uint32{0xffff, 0xffff, 0xffff}, [3]uint32{r, g, b})
	r, g, b, _ = img.At(CanvasSize/2, CanvasSize/2).RGBA()
	assert.Equal(t, [3]uint32{0xffff, 0, 0}, [3]uint32{r, g, b})
}

func TestRasterizeSVG_InvalidInput(t *testing.T) {
	_, err := RasterizeSVG([]byte("not an svg <"))
	assert.Error(t, err)
}

func TestFitCanvas(t *testing.T) {
	x, y, w, h := fitCanvas(200, 100, 1000)
	assert.Equal(t, []float64{0, 250, 1000, 500}, []float64{x, y, w, h})

	x, y, w, h = fitCanvas(50, 100, 1000)
	assert.Equal(t, []float64{250, 0, 500, 1000}, []float64{x, y, w, h})

	x, y, w, h = fitCanvas(0, 0, 1000)
	assert.Equal(t, []float64{0, 0, 1000, 1000}, []float64{x, y, w, h})
}

func TestDownscale(t *testing.T) {
	data := encodePNG(t, 4096, 20)

	out, mimeType, err := Downscale(data, 2048)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "image/jpeg", mimeType)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 2048, cfg.Width)
	assert.Equal(t, 10, cfg.Height)
}

func TestDownscale_SmallImageUntouched(t *testing.T) {
	data := encodePNG(t, 100, 50)

	out, mimeType, err := Downscale(data, 2048)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, data, out)
}

func TestDetectMIME(t *testing.T) {
	assert.Equal(t, "image/svg+xml", DetectMIME("logo.SVG", nil))
	assert.Equal(t, "video/mp4", DetectMIME("clip.mp4", nil))
	assert.Equal(t, "application/pdf", DetectMIME("doc.pdf", nil))
	assert.Equal(t, "image/png", DetectMIME("noext", encodePNG(t, 2, 2)))
}

func TestPrepare(t *testing.T) {
	out, mimeType, err := Prepare([]byte(testSVG), "image/svg+xml")
	assert.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)
	assert.NotEmpty(t, out)

	video := []byte("fake video")
	out, mimeType, err = Prepare(video, "video/mp4")
	assert.NoError(t, err)
	assert.Equal(t, "video/mp4", mimeType)
	assert.Equal(t, video, out)
}

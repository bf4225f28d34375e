package builder

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/yuanying/epubkit/internal/epub"
)

func makeSolidNRGBA(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func mustEncodeJPEG(t *testing.T, img image.Image, quality int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		t.Fatalf("jpeg.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func mustEncodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func TestCoverProcessor_ResizeOverMaxWidth(t *testing.T) {
	src := makeSolidNRGBA(1200, 800, color.NRGBA{R: 20, G: 50, B: 200, A: 255})
	data := mustEncodeJPEG(t, src, 90)
	proc := NewCoverProcessor(600, 0)

	out, err := proc.Process("image/jpeg", data)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if out.Width != 600 || out.Height != 400 {
		t.Fatalf("got %dx%d, want 600x400", out.Width, out.Height)
	}
	if out.Warning != "" {
		t.Errorf("Warning = %q, want empty", out.Warning)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(out.Data))
	if err != nil {
		t.Fatalf("DecodeConfig() error = %v", err)
	}
	if format != "jpeg" || cfg.Width != 600 {
		t.Errorf("output = %s %dpx wide, want jpeg 600px", format, cfg.Width)
	}
}

func TestCoverProcessor_KeepsPNG(t *testing.T) {
	src := makeSolidNRGBA(300, 200, color.NRGBA{R: 10, G: 80, B: 180, A: 120})
	data := mustEncodePNG(t, src)
	proc := NewCoverProcessor(0, 0)

	out, err := proc.Process("image/png", data)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if out.Width != 300 || out.Height != 200 {
		t.Errorf("got %dx%d, want 300x200", out.Width, out.Height)
	}
	if _, format, err := image.DecodeConfig(bytes.NewReader(out.Data)); err != nil || format != "png" {
		t.Errorf("output format = %q, %v, want png", format, err)
	}
}

func TestCoverProcessor_PassthroughAnimatedGIF(t *testing.T) {
	pal := color.Palette{color.RGBA{0, 0, 0, 255}, color.RGBA{255, 255, 255, 255}}
	anim := &gif.GIF{
		Image: []*image.Paletted{
			image.NewPaletted(image.Rect(0, 0, 20, 20), pal),
			image.NewPaletted(image.Rect(0, 0, 20, 20), pal),
		},
		Delay: []int{10, 10},
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		t.Fatalf("gif.EncodeAll() error = %v", err)
	}

	out, err := NewCoverProcessor(10, 0).Process("image/gif", buf.Bytes())
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !bytes.Equal(out.Data, buf.Bytes()) {
		t.Error("animated GIF was re-encoded")
	}
	if out.Warning == "" {
		t.Error("Warning is empty for animated GIF")
	}
}

func TestCoverProcessor_PassthroughUndecodable(t *testing.T) {
	input := []byte("not an image")
	out, err := NewCoverProcessor(0, 0).Process("image/jpeg", input)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !bytes.Equal(out.Data, input) || out.Warning == "" {
		t.Errorf("Process() = %q, warning %q, want passthrough with warning", out.Data, out.Warning)
	}
}

func TestCoverProcessor_PassthroughTooManyPixels(t *testing.T) {
	src := makeSolidNRGBA(100, 100, color.NRGBA{A: 255})
	data := mustEncodePNG(t, src)
	proc := NewCoverProcessor(50, 0)
	proc.MaxPixels = 100

	out, err := proc.Process("image/png", data)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !bytes.Equal(out.Data, data) || out.Warning == "" {
		t.Error("oversized image was not passed through with a warning")
	}
}

func TestDetectCoverItem(t *testing.T) {
	pkg, err := epub.New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if detectCoverItem(pkg) != nil {
		t.Fatal("detectCoverItem() on empty package is not nil")
	}
	pkg.AddItem("", "images/fig1.png", "")
	pkg.AddItem("", "images/cover.svg", "")
	cover, _ := pkg.AddItem("", "images/Cover.JPG", "")
	if got := detectCoverItem(pkg); got != cover {
		t.Errorf("detectCoverItem() = %v, want images/Cover.JPG", got)
	}

	marked, _ := pkg.AddItem("", "images/front.png", "")
	marked.SetCoverImage()
	if got := detectCoverItem(pkg); got != marked {
		t.Errorf("detectCoverItem() = %v, want item with cover-image property", got)
	}
}

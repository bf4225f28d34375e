package builder

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/yuanying/epubkit/internal/epub"
)

const (
	defaultCoverMaxWidth    = 1600
	defaultCoverJPEGQuality = 90
	defaultMaxPixels        = 100 * 1000 * 1000 // 100 megapixels
)

// CoverProcessor bounds and re-encodes cover images.
type CoverProcessor struct {
	MaxWidth    int
	JPEGQuality int
	MaxPixels   int // Total pixel count limit for decode (width * height)
}

// CoverImage holds processed cover data.
// Warning is set (non-empty) when the image was returned as-is (passthrough).
// Data is usable either way.
type CoverImage struct {
	Data      []byte
	Width     int
	Height    int
	MediaType string
	Warning   string
}

// NewCoverProcessor creates a cover processor, filling in defaults for unset fields.
func NewCoverProcessor(maxWidth, quality int) *CoverProcessor {
	if maxWidth <= 0 {
		maxWidth = defaultCoverMaxWidth
	}
	if quality <= 0 {
		quality = defaultCoverJPEGQuality
	}
	if quality > 100 {
		quality = 100
	}
	return &CoverProcessor{
		MaxWidth:    maxWidth,
		JPEGQuality: quality,
		MaxPixels:   defaultMaxPixels,
	}
}

// Process decodes a cover image, shrinks it to MaxWidth and re-encodes it in
// its original format so the manifest href and media type stay valid.
// Undecodable, oversized and animated images pass through with a Warning.
func (c *CoverProcessor) Process(mediaType string, input []byte) (CoverImage, error) {
	out := CoverImage{Data: input, MediaType: mediaType}

	cfg, _, cfgErr := image.DecodeConfig(bytes.NewReader(input))
	if cfgErr == nil {
		out.Width = cfg.Width
		out.Height = cfg.Height
		pixels := uint64(cfg.Width) * uint64(cfg.Height)
		if c.MaxPixels > 0 && pixels > uint64(c.MaxPixels) {
			out.Warning = fmt.Sprintf("image too large to decode: %dx%d (%d pixels)", cfg.Width, cfg.Height, pixels)
			return out, nil
		}
	}

	format, ok := imagingFormat(mediaType)
	if !ok {
		out.Warning = fmt.Sprintf("unsupported cover media type %q", mediaType)
		return out, nil
	}
	if format == imaging.GIF {
		if animated, err := isAnimatedGIF(input); err == nil && animated {
			out.Warning = "animated GIF kept as-is"
			return out, nil
		}
	}

	src, err := imaging.Decode(bytes.NewReader(input), imaging.AutoOrientation(true))
	if err != nil {
		out.Warning = fmt.Sprintf("image decode failed: %v", err)
		return out, nil
	}

	processed := src
	if c.MaxWidth > 0 && src.Bounds().Dx() > c.MaxWidth {
		processed = imaging.Resize(src, c.MaxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, processed, format, imaging.JPEGQuality(c.JPEGQuality)); err != nil {
		return out, fmt.Errorf("failed to encode cover: %w", err)
	}

	out.Data = buf.Bytes()
	out.Width = processed.Bounds().Dx()
	out.Height = processed.Bounds().Dy()
	return out, nil
}

func imagingFormat(mediaType string) (imaging.Format, bool) {
	switch strings.ToLower(mediaType) {
	case "image/jpeg", "image/jpg":
		return imaging.JPEG, true
	case "image/png":
		return imaging.PNG, true
	case "image/gif":
		return imaging.GIF, true
	}
	return 0, false
}

func isAnimatedGIF(data []byte) (bool, error) {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return false, err
	}
	return len(g.Image) > 1, nil
}

// detectCoverItem returns the cover image of pkg: an item already marked as
// cover, then the first raster image whose file name contains "cover".
func detectCoverItem(pkg *epub.Package) *epub.Item {
	if it := pkg.CoverItem(); it != nil {
		return it
	}
	for _, it := range pkg.Manifest.Items() {
		if !isRasterImage(it.MediaType) {
			continue
		}
		if strings.Contains(strings.ToLower(path.Base(it.Href())), "cover") {
			return it
		}
	}
	return nil
}

// isRasterImage checks if a media type indicates a raster image file.
func isRasterImage(mediaType string) bool {
	if mediaType == "image/svg+xml" {
		return false
	}
	return strings.HasPrefix(mediaType, "image/")
}

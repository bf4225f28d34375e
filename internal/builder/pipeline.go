// Package builder assembles an EPUB publication from XHTML chapter files on
// disk: it derives the table of contents from chapter headings, pulls in the
// stylesheets and images chapters reference, processes the cover image and
// writes the container through internal/epub.
package builder

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuanying/epubkit/internal/epub"
	"golang.org/x/text/language"
)

// ErrNoChapters is returned when none of the inputs could be loaded as a chapter.
var ErrNoChapters = errors.New("no valid XHTML chapters found")

// Options holds options for the build pipeline.
type Options struct {
	Chapters   []string // Chapter files in reading order
	BaseDir    string   // Directory hrefs are made relative to; defaults to the first chapter's directory
	OutputPath string

	Title       string // Defaults to the first chapter's title
	Language    string // BCP 47 tag; defaults to the first chapter's lang
	Creators    []string
	Identifier  string
	Publisher   string
	Description string
	Rights      string
	Subjects    []string
	Date        string

	Version        string // OPF version, "3.0" when empty
	BackwardCompat bool
	Layout         string // rendition:layout
	Direction      string // page-progression-direction

	CoverPath        string // Cover image; detected from file names when empty
	CoverMaxWidth    int
	CoverJPEGQuality int

	Logger *slog.Logger
	Now    func() time.Time
}

// Pipeline orchestrates building an EPUB from chapter files.
type Pipeline struct {
	Options Options
	logger  *slog.Logger
}

// NewPipeline creates a new build pipeline.
func NewPipeline(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{Options: opts, logger: logger}
}

// Build assembles the package and writes it to OutputPath.
func (p *Pipeline) Build() error {
	pkg, err := p.Package()
	if err != nil {
		return err
	}

	f, err := os.Create(p.Options.OutputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	n, err := pkg.WriteTo(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to write EPUB: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}

	p.logger.Info("wrote EPUB", "path", p.Options.OutputPath, "bytes", n, "items", pkg.Manifest.Len())
	return nil
}

// Package assembles the publication in memory without writing it.
func (p *Pipeline) Package() (*epub.Package, error) {
	if len(p.Options.Chapters) == 0 {
		return nil, ErrNoChapters
	}

	pkgOpts := []epub.Option{
		epub.WithBackwardCompat(p.Options.BackwardCompat),
		epub.WithLogger(p.logger),
	}
	if p.Options.Version != "" {
		pkgOpts = append(pkgOpts, epub.WithVersion(p.Options.Version))
	}
	if p.Options.Now != nil {
		pkgOpts = append(pkgOpts, epub.WithClock(p.Options.Now))
	}
	pkg, err := epub.New(pkgOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create package: %w", err)
	}

	baseDir := p.Options.BaseDir
	if baseDir == "" {
		baseDir = filepath.Dir(p.Options.Chapters[0])
	}

	chapters, err := p.addChapters(pkg, baseDir)
	if err != nil {
		return nil, err
	}
	if err := p.applyMetadata(pkg, chapters[0]); err != nil {
		return nil, err
	}
	if err := p.applyCover(pkg, baseDir); err != nil {
		return nil, err
	}
	if err := p.applyLayout(pkg); err != nil {
		return nil, err
	}
	return pkg, nil
}

// addChapters loads every chapter, adds it to the manifest, spine and table
// of contents and pulls in the resources it references.
func (p *Pipeline) addChapters(pkg *epub.Package, baseDir string) ([]*Chapter, error) {
	var chapters []*Chapter
	for _, file := range p.Options.Chapters {
		href, err := relativeHref(baseDir, file)
		if err != nil {
			p.logger.Warn("chapter outside base directory, skipping", "path", file, "error", err)
			continue
		}

		data, err := os.ReadFile(file)
		if err != nil {
			p.logger.Warn("failed to read chapter, skipping", "path", file, "error", err)
			continue
		}

		chapter, err := LoadChapter(href, data)
		if err != nil {
			p.logger.Warn("failed to parse chapter, skipping", "path", file, "error", err)
			continue
		}

		item, err := pkg.AddItem("", href, epub.MediaTypeXHTML)
		if err != nil {
			p.logger.Warn("failed to add chapter, skipping", "href", href, "error", err)
			continue
		}
		item.SetContent(data)
		pkg.Spine.Push(item)

		label := chapter.Title
		if label == "" {
			label = strings.TrimSuffix(path.Base(href), path.Ext(href))
		}
		pkg.AddTOCEntry(href, label)

		for _, ref := range chapter.CSSLinks {
			p.addResource(pkg, baseDir, ref)
		}
		for _, ref := range chapter.ImageRefs {
			p.addResource(pkg, baseDir, ref)
		}
		chapters = append(chapters, chapter)
		p.logger.Debug("added chapter", "href", href, "title", chapter.Title)
	}

	if len(chapters) == 0 {
		return nil, ErrNoChapters
	}
	return chapters, nil
}

// addResource adds a referenced file to the manifest once. Missing files are
// logged and skipped.
func (p *Pipeline) addResource(pkg *epub.Package, baseDir, href string) {
	if pkg.Manifest.ItemByHref(href) != nil {
		return
	}
	if strings.HasPrefix(href, "../") || href == ".." {
		p.logger.Warn("resource outside base directory, skipping", "href", href)
		return
	}
	data, err := os.ReadFile(filepath.Join(baseDir, filepath.FromSlash(href)))
	if err != nil {
		p.logger.Warn("failed to read resource, skipping", "href", href, "error", err)
		return
	}
	item, err := pkg.AddItem("", href, "")
	if err != nil {
		p.logger.Warn("failed to add resource, skipping", "href", href, "error", err)
		return
	}
	if item.MediaType == "" {
		item.MediaType = "application/octet-stream"
		p.logger.Warn("unknown media type", "href", href)
	}
	item.SetContent(data)
}

func (p *Pipeline) applyMetadata(pkg *epub.Package, first *Chapter) error {
	md := pkg.Metadata

	lang := p.Options.Language
	if lang == "" {
		lang = first.Lang
	}
	if lang != "" {
		tag, err := language.Parse(lang)
		if err != nil {
			return fmt.Errorf("invalid language %q: %w", lang, err)
		}
		pkg.Lang = tag.String()
	}

	title := p.Options.Title
	if title == "" {
		title = first.Title
	}
	if title == "" {
		title = "Untitled"
	}
	if _, err := md.AddTitle(title, "", epub.TitleMain); err != nil {
		return err
	}

	if p.Options.Identifier != "" {
		if _, err := md.AddIdentifier(p.Options.Identifier, "", ""); err != nil {
			return err
		}
	}
	for i, name := range p.Options.Creators {
		c, err := md.AddCreator(name, "", "aut")
		if err != nil {
			return err
		}
		if len(p.Options.Creators) > 1 {
			c.SetDisplaySeq(i + 1)
		}
	}

	simple := []struct {
		kind  epub.Element
		value string
	}{
		{epub.DCPublisher, p.Options.Publisher},
		{epub.DCDescription, p.Options.Description},
		{epub.DCRights, p.Options.Rights},
		{epub.DCDate, p.Options.Date},
	}
	for _, s := range simple {
		if s.value == "" {
			continue
		}
		if _, err := md.Add(s.kind, s.value, ""); err != nil {
			return err
		}
	}
	for _, subject := range p.Options.Subjects {
		if _, err := md.Add(epub.DCSubject, subject, ""); err != nil {
			return err
		}
	}
	return nil
}

// applyCover adds or detects the cover image, resizes it and marks it.
func (p *Pipeline) applyCover(pkg *epub.Package, baseDir string) error {
	var item *epub.Item
	if p.Options.CoverPath != "" {
		href, err := relativeHref(baseDir, p.Options.CoverPath)
		if err != nil {
			href = "images/" + filepath.Base(p.Options.CoverPath)
		}
		if item = pkg.Manifest.ItemByHref(href); item == nil {
			data, err := os.ReadFile(p.Options.CoverPath)
			if err != nil {
				return fmt.Errorf("failed to read cover: %w", err)
			}
			if item, err = pkg.AddItem("", href, ""); err != nil {
				return fmt.Errorf("failed to add cover: %w", err)
			}
			item.SetContent(data)
		}
	} else {
		item = detectCoverItem(pkg)
	}
	if item == nil {
		return nil
	}

	data, ok := item.Content()
	if !ok {
		return nil
	}
	proc := NewCoverProcessor(p.Options.CoverMaxWidth, p.Options.CoverJPEGQuality)
	img, err := proc.Process(item.MediaType, data)
	if err != nil {
		return err
	}
	if img.Warning != "" {
		p.logger.Warn("cover kept as-is", "href", item.Href(), "reason", img.Warning)
	}
	item.SetContent(img.Data)
	item.SetCoverImage()
	p.logger.Debug("cover image", "href", item.Href(), "width", img.Width, "height", img.Height)
	return nil
}

func (p *Pipeline) applyLayout(pkg *epub.Package) error {
	if p.Options.Layout != "" {
		if err := pkg.Metadata.SetRendition("layout", p.Options.Layout); err != nil {
			return err
		}
	}
	switch p.Options.Direction {
	case "":
	case "ltr", "rtl", "default":
		pkg.Spine.PageProgressionDirection = p.Options.Direction
		if p.Options.Direction != "default" {
			pkg.Dir = p.Options.Direction
		}
	default:
		return fmt.Errorf("%w: page progression direction %q", epub.ErrInvalidProperty, p.Options.Direction)
	}
	return nil
}

// relativeHref returns file relative to baseDir as a slash-separated href.
func relativeHref(baseDir, file string) (string, error) {
	rel, err := filepath.Rel(baseDir, file)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is outside %s", file, baseDir)
	}
	return rel, nil
}

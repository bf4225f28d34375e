package builder

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Chapter represents a parsed XHTML chapter file
type Chapter struct {
	Href      string   // Path relative to the package document
	Title     string   // First heading, or the <title> element
	Lang      string   // lang or xml:lang of the root element
	CSSLinks  []string // Referenced stylesheet hrefs, resolved against Href
	ImageRefs []string // Referenced image hrefs, resolved against Href
}

// LoadChapter parses an XHTML chapter and collects the resources it references.
// href: path relative to the package document (used for relative path resolution)
func LoadChapter(href string, content []byte) (*Chapter, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse XHTML: %w", err)
	}

	c := &Chapter{
		Href:      href,
		CSSLinks:  []string{},
		ImageRefs: []string{},
	}
	c.Title = chapterTitle(doc)

	root := doc.Find("html").First()
	if lang, ok := root.Attr("xml:lang"); ok {
		c.Lang = lang
	} else if lang, ok := root.Attr("lang"); ok {
		c.Lang = lang
	}

	baseDir := path.Dir(href)

	doc.Find("link[rel='stylesheet']").Each(func(i int, s *goquery.Selection) {
		if h, exists := s.Attr("href"); exists && isLocalRef(h) {
			c.CSSLinks = appendUnique(c.CSSLinks, resolvePath(baseDir, h))
		}
	})

	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		if src, exists := s.Attr("src"); exists && isLocalRef(src) {
			c.ImageRefs = appendUnique(c.ImageRefs, resolvePath(baseDir, src))
		}
	})
	// SVG <image> elements; the HTML parser drops the xlink prefix from the attribute key.
	doc.Find("image").Each(func(i int, s *goquery.Selection) {
		if src, exists := s.Attr("href"); exists && isLocalRef(src) {
			c.ImageRefs = appendUnique(c.ImageRefs, resolvePath(baseDir, src))
		}
	})

	return c, nil
}

func chapterTitle(doc *goquery.Document) string {
	for _, sel := range []string{"h1", "h2", "title"} {
		if t := strings.Join(strings.Fields(doc.Find(sel).First().Text()), " "); t != "" {
			return t
		}
	}
	return ""
}

// resolvePath resolves a relative reference against a base directory
// baseDir: base directory (e.g., "text" for "text/chapter1.xhtml")
// relPath: relative path (e.g., "../images/photo.jpg#frag")
// returns: resolved path (e.g., "images/photo.jpg")
func resolvePath(baseDir, relPath string) string {
	relPath, _, _ = strings.Cut(relPath, "#")
	relPath, _, _ = strings.Cut(relPath, "?")
	return path.Clean(path.Join(baseDir, relPath))
}

// isLocalRef reports whether ref points inside the publication.
func isLocalRef(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") || strings.HasPrefix(ref, "//") {
		return false
	}
	return !strings.Contains(ref, ":")
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}

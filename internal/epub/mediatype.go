package epub

import (
	"path"
	"strings"
)

// Media types the package writes itself.
const (
	MediaTypeXHTML = "application/xhtml+xml"
	MediaTypeNCX   = "application/x-dtbncx+xml"
	MediaTypeOPF   = "application/oebps-package+xml"
	MediaTypeEPUB  = "application/epub+zip"
)

var extensionMediaTypes = map[string]string{
	"html":  MediaTypeXHTML,
	"htm":   MediaTypeXHTML,
	"xhtml": MediaTypeXHTML,
	"xht":   MediaTypeXHTML,
	"css":   "text/css",
	"js":    "text/javascript",
	"jpg":   "image/jpeg",
	"jpeg":  "image/jpeg",
	"png":   "image/png",
	"gif":   "image/gif",
	"webp":  "image/webp",
	"svg":   "image/svg+xml",
	"opf":   MediaTypeOPF,
	"ncx":   MediaTypeNCX,
	"otf":   "application/vnd.ms-opentype",
	"ttf":   "application/vnd.ms-opentype",
	"ttc":   "application/vnd.ms-opentype",
	"eot":   "application/vnd.ms-fontobject",
	"woff":  "application/font-woff",
	"woff2": "font/woff2",
	"mp4":   "video/mp4",
	"m4a":   "audio/mp4",
	"mp3":   "audio/mpeg",
	"smil":  "application/smil+xml",
	"pls":   "application/pls+xml",
	"xml":   "application/xml",
}

// GuessMediaType maps the extension of href to a media type.
func GuessMediaType(href string) (string, bool) {
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		href = href[:i]
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(href), "."))
	mt, ok := extensionMediaTypes[ext]
	return mt, ok
}

func isXHTML(mediaType string) bool {
	return mediaType == MediaTypeXHTML
}

package epub

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// remoteRefAttrs lists, per element, the attribute that embeds a resource.
// Hyperlinks (a[href]) are not resource references.
var remoteRefAttrs = map[string]string{
	"img":    "src",
	"audio":  "src",
	"video":  "src",
	"source": "src",
	"track":  "src",
	"script": "src",
	"embed":  "src",
	"iframe": "src",
	"object": "data",
	"link":   "href",
	"image":  "xlink:href",
}

// DetectContentProperties reports the manifest properties an XHTML content
// document needs, in the order remote-resources, scripted, mathml, svg, switch.
func DetectContentProperties(content []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse XHTML: %w", err)
	}

	found := make(map[string]bool)
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		name := goquery.NodeName(s)
		local := name
		if i := strings.LastIndexByte(name, ':'); i >= 0 {
			local = name[i+1:]
		}
		switch {
		case name == "epub:switch":
			found[PropertySwitch] = true
		case local == "math":
			found[PropertyMathML] = true
		case local == "svg":
			found[PropertySVG] = true
		case local == "script", local == "form":
			found[PropertyScripted] = true
		}
		if isRemoteReference(s, local) {
			found[PropertyRemoteResources] = true
		}
	})

	var props []string
	for _, p := range []string{PropertyRemoteResources, PropertyScripted, PropertyMathML, PropertySVG, PropertySwitch} {
		if found[p] {
			props = append(props, p)
		}
	}
	return props, nil
}

func isRemoteReference(s *goquery.Selection, local string) bool {
	attr, ok := remoteRefAttrs[local]
	if !ok {
		return false
	}
	if local == "link" {
		if rel, _ := s.Attr("rel"); !strings.Contains(strings.ToLower(rel), "stylesheet") {
			return false
		}
	}
	v, ok := s.Attr(attr)
	if !ok && local == "image" {
		v, ok = s.Attr("href")
	}
	return ok && isRemoteURL(v)
}

func isRemoteURL(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") || strings.HasPrefix(v, "//")
}

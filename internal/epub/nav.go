package epub

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

const (
	nsXHTML = "http://www.w3.org/1999/xhtml"
	nsOPS   = "http://www.idpf.org/2007/ops"
)

type navDocument struct {
	XMLName xml.Name `xml:"html"`
	Xmlns   string   `xml:"xmlns,attr"`
	Epub    string   `xml:"xmlns:epub,attr"`
	XMLLang string   `xml:"xml:lang,attr,omitempty"`
	Lang    string   `xml:"lang,attr,omitempty"`
	Dir     string   `xml:"dir,attr,omitempty"`
	Head    navHead  `xml:"head"`
	Body    navBody  `xml:"body"`
}

type navHead struct {
	Title string `xml:"title"`
}

type navBody struct {
	Nav navNav `xml:"nav"`
}

type navNav struct {
	Type    string  `xml:"epub:type,attr"`
	ID      string  `xml:"id,attr"`
	Heading string  `xml:"h1,omitempty"`
	List    navList `xml:"ol"`
}

type navList struct {
	Items []navListItem `xml:"li"`
}

type navListItem struct {
	Link navLink `xml:"a"`
}

type navLink struct {
	Href string `xml:"href,attr"`
	Text string `xml:",chardata"`
}

// Nav serializes the EPUB 3 navigation document without changing the package.
func (p *Package) Nav() ([]byte, error) {
	lang := p.Lang
	if lang == "" {
		if l := p.Metadata.First(DCLanguage); l != nil {
			lang = l.Content
		}
	}
	title := p.Metadata.Title()
	doc := navDocument{
		Xmlns:   nsXHTML,
		Epub:    nsOPS,
		XMLLang: lang,
		Lang:    lang,
		Dir:     p.Dir,
		Head:    navHead{Title: title},
		Body: navBody{Nav: navNav{
			Type:    "toc",
			ID:      "toc",
			Heading: title,
		}},
	}
	for _, e := range p.navEntries() {
		doc.Body.Nav.List.Items = append(doc.Body.Nav.List.Items, navListItem{
			Link: navLink{Href: e.Href, Text: e.Label},
		})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString("<!DOCTYPE html>\n")
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode nav document: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

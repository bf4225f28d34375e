package epub

import (
	"encoding/xml"
	"strconv"
)

const nsNCX = "http://www.daisy.org/z3986/2005/ncx/"

// ncxDocument represents the NCX XML structure
type ncxDocument struct {
	XMLName  xml.Name  `xml:"ncx"`
	Xmlns    string    `xml:"xmlns,attr"`
	Version  string    `xml:"version,attr"`
	Head     ncxHead   `xml:"head"`
	DocTitle ncxText   `xml:"docTitle"`
	NavMap   ncxNavMap `xml:"navMap"`
}

type ncxHead struct {
	Metas []ncxMeta `xml:"meta"`
}

type ncxMeta struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

type ncxText struct {
	Text string `xml:"text"`
}

type ncxNavMap struct {
	NavPoints []ncxNavPoint `xml:"navPoint"`
}

// ncxNavPoint represents a single navigation point in the table of contents.
type ncxNavPoint struct {
	ID        string     `xml:"id,attr"`
	PlayOrder int        `xml:"playOrder,attr"`
	NavLabel  ncxText    `xml:"navLabel"`
	Content   ncxContent `xml:"content"`
}

type ncxContent struct {
	Src string `xml:"src,attr"`
}

// NCX serializes the EPUB 2 navigation control file. Like OPF it does not
// change the package.
func (p *Package) NCX() ([]byte, error) {
	id, idents, err := p.serializedIdentifiers()
	if err != nil {
		return nil, err
	}
	uid := ""
	for _, m := range idents {
		if m.id == id {
			uid = m.Content
			break
		}
	}

	doc := ncxDocument{
		Xmlns:   nsNCX,
		Version: "2005-1",
		Head: ncxHead{Metas: []ncxMeta{
			{Name: "dtb:uid", Content: uid},
			{Name: "dtb:depth", Content: "1"},
			{Name: "dtb:totalPageCount", Content: "0"},
			{Name: "dtb:maxPageNumber", Content: "0"},
		}},
		DocTitle: ncxText{Text: p.Metadata.Title()},
	}
	for i, e := range p.navEntries() {
		doc.NavMap.NavPoints = append(doc.NavMap.NavPoints, ncxNavPoint{
			ID:        "navPoint-" + strconv.Itoa(i+1),
			PlayOrder: i + 1,
			NavLabel:  ncxText{Text: e.Label},
			Content:   ncxContent{Src: e.Href},
		})
	}
	return marshalDocument(doc)
}

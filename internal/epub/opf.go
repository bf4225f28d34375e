package epub

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

const (
	nsOPF = "http://www.idpf.org/2007/opf"
	nsDC  = "http://purl.org/dc/elements/1.1/"
)

// opfPackage represents the OPF XML structure
type opfPackage struct {
	XMLName  xml.Name     `xml:"package"`
	Xmlns    string       `xml:"xmlns,attr"`
	Version  string       `xml:"version,attr"`
	UniqueID string       `xml:"unique-identifier,attr"`
	Lang     string       `xml:"xml:lang,attr,omitempty"`
	Dir      string       `xml:"dir,attr,omitempty"`
	Prefix   string       `xml:"prefix,attr,omitempty"`
	Metadata opfMetadata  `xml:"metadata"`
	Manifest opfManifest  `xml:"manifest"`
	Spine    opfSpine     `xml:"spine"`
	Bindings *opfBindings `xml:"bindings,omitempty"`
}

// opfMetadata holds dc: elements and meta elements in document order.
type opfMetadata struct {
	DC    string `xml:"xmlns:dc,attr"`
	OPF   string `xml:"xmlns:opf,attr,omitempty"`
	Nodes []any
}

// opfDCElement represents a Dublin Core element
type opfDCElement struct {
	XMLName xml.Name
	ID      string     `xml:"id,attr,omitempty"`
	Lang    string     `xml:"xml:lang,attr,omitempty"`
	Dir     string     `xml:"dir,attr,omitempty"`
	Role    string     `xml:"opf:role,attr,omitempty"`
	FileAs  string     `xml:"opf:file-as,attr,omitempty"`
	Scheme  string     `xml:"opf:scheme,attr,omitempty"`
	Attrs   []xml.Attr `xml:",any,attr"`
	Value   string     `xml:",chardata"`
}

// opfMeta represents a meta element (EPUB 2.0 and 3.0)
type opfMeta struct {
	XMLName  xml.Name   `xml:"meta"`
	ID       string     `xml:"id,attr,omitempty"`
	Refines  string     `xml:"refines,attr,omitempty"`
	Property string     `xml:"property,attr,omitempty"`
	Scheme   string     `xml:"scheme,attr,omitempty"`
	Lang     string     `xml:"xml:lang,attr,omitempty"`
	Dir      string     `xml:"dir,attr,omitempty"`
	Name     string     `xml:"name,attr,omitempty"`
	Content  string     `xml:"content,attr,omitempty"`
	Attrs    []xml.Attr `xml:",any,attr"`
	Value    string     `xml:",chardata"`
}

// opfManifest represents the manifest section
type opfManifest struct {
	Items []opfManifestItem `xml:"item"`
}

// opfManifestItem represents an item in the manifest
type opfManifestItem struct {
	ID           string `xml:"id,attr"`
	Href         string `xml:"href,attr"`
	MediaType    string `xml:"media-type,attr"`
	Fallback     string `xml:"fallback,attr,omitempty"`
	Properties   string `xml:"properties,attr,omitempty"`
	MediaOverlay string `xml:"media-overlay,attr,omitempty"`
}

// opfSpine represents the spine section
type opfSpine struct {
	Toc                      string       `xml:"toc,attr,omitempty"`
	PageProgressionDirection string       `xml:"page-progression-direction,attr,omitempty"`
	ItemRefs                 []opfItemRef `xml:"itemref"`
}

// opfItemRef represents an itemref in the spine
type opfItemRef struct {
	IDRef      string `xml:"idref,attr"`
	Linear     string `xml:"linear,attr,omitempty"`
	Properties string `xml:"properties,attr,omitempty"`
}

type opfBindings struct {
	MediaTypes []opfMediaType `xml:"mediaType"`
}

type opfMediaType struct {
	MediaType string `xml:"media-type,attr"`
	Handler   string `xml:"handler,attr"`
}

// onixSchemes maps ONIX code list 5 identifier types to OPF 2 opf:scheme names.
var onixSchemes = map[string]string{
	"02": "ISBN",
	"06": "DOI",
	"15": "ISBN",
	"22": "URN",
}

// OPF serializes the package document. It leaves the package unchanged,
// except that refined statements without an id are issued one. Call Finalize
// first to include the generated navigation items and dcterms:modified.
func (p *Package) OPF() ([]byte, error) {
	uid, idents, err := p.serializedIdentifiers()
	if err != nil {
		return nil, err
	}
	doc := opfPackage{
		Xmlns:    nsOPF,
		Version:  p.version,
		UniqueID: uid,
		Lang:     p.Lang,
		Dir:      p.Dir,
		Metadata: p.buildMetadata(idents),
		Manifest: p.buildManifest(),
		Spine:    p.buildSpine(),
	}
	prefixes := append(p.Prefixes(), p.autoPrefixes()...)
	if p.epub3() && len(prefixes) > 0 {
		parts := make([]string, 0, len(prefixes))
		for _, pr := range prefixes {
			parts = append(parts, pr.Name+": "+pr.URI)
		}
		doc.Prefix = strings.Join(parts, " ")
	}
	if p.Bindings.Len() > 0 {
		b := &opfBindings{}
		for _, e := range p.Bindings.entries {
			b.MediaTypes = append(b.MediaTypes, opfMediaType{MediaType: e.MediaType, Handler: e.Handler})
		}
		doc.Bindings = b
	}
	return marshalDocument(doc)
}

func (p *Package) buildMetadata(idents []*Meta) opfMetadata {
	md := opfMetadata{DC: nsDC}
	if p.legacy() {
		md.OPF = nsOPF
	}

	for _, m := range p.serializedLanguages() {
		md.Nodes = p.appendDCElement(md.Nodes, m)
	}
	for _, kind := range contentNodeList {
		var nodes []*Meta
		switch kind {
		case DCLanguage:
			continue
		case DCIdentifier:
			nodes = idents
		default:
			nodes = p.Metadata.Sorted(kind)
		}
		for _, m := range nodes {
			md.Nodes = p.appendDCElement(md.Nodes, m)
		}
	}

	if p.epub3() {
		for _, m := range p.Metadata.metas {
			md.Nodes = p.appendMeta(md.Nodes, m, "")
		}
	}

	hasCoverMeta := false
	for _, m := range p.Metadata.named {
		name := m.Attr("name")
		if name == "cover" {
			hasCoverMeta = true
		}
		md.Nodes = append(md.Nodes, opfMeta{
			Name:    name,
			Content: m.Content,
			Attrs:   xmlAttrs(m, "name"),
		})
	}
	if p.legacy() && !hasCoverMeta {
		for _, it := range p.Manifest.items {
			if it.HasProperty(PropertyCoverImage) {
				md.Nodes = append(md.Nodes, opfMeta{Name: "cover", Content: it.id})
			}
		}
	}
	return md
}

// appendDCElement emits a dc: element followed by its refiners.
func (p *Package) appendDCElement(nodes []any, m *Meta) []any {
	if p.epub3() && len(m.refiners) > 0 {
		m.ensureID(m.Name + "_")
	}
	el := opfDCElement{
		XMLName: xml.Name{Local: "dc:" + m.Name},
		ID:      m.id,
		Lang:    m.Lang,
		Dir:     m.Dir,
		Attrs:   xmlAttrs(m),
		Value:   m.Content,
	}
	if p.legacy() {
		el.Role = m.Role()
		el.FileAs = m.FileAs()
		if typ := m.refinerValue(RefineIdentifierType); typ != "" {
			if scheme, ok := onixSchemes[typ]; ok {
				el.Scheme = scheme
			} else {
				el.Scheme = typ
			}
		}
	}
	nodes = append(nodes, el)
	if !p.epub3() {
		return nodes
	}
	for _, r := range m.refiners {
		nodes = p.appendMeta(nodes, r, "#"+m.id)
	}
	return nodes
}

// appendMeta emits a <meta property> element and, recursively, its refiners.
func (p *Package) appendMeta(nodes []any, m *Meta, refines string) []any {
	if len(m.refiners) > 0 {
		m.ensureID("meta_")
	}
	nodes = append(nodes, opfMeta{
		ID:       m.id,
		Refines:  refines,
		Property: m.Property,
		Scheme:   m.Scheme,
		Lang:     m.Lang,
		Dir:      m.Dir,
		Attrs:    xmlAttrs(m),
		Value:    m.Content,
	})
	for _, r := range m.refiners {
		nodes = p.appendMeta(nodes, r, "#"+m.id)
	}
	return nodes
}

func (p *Package) buildManifest() opfManifest {
	var out opfManifest
	for _, it := range p.Manifest.items {
		out.Items = append(out.Items, opfManifestItem{
			ID:           it.id,
			Href:         it.href,
			MediaType:    it.MediaType,
			Fallback:     it.fallback,
			Properties:   strings.Join(it.properties, " "),
			MediaOverlay: it.MediaOverlay,
		})
	}
	return out
}

func (p *Package) buildSpine() opfSpine {
	out := opfSpine{PageProgressionDirection: p.Spine.PageProgressionDirection}
	if p.legacy() {
		if ncx := p.ncxItem(); ncx != nil {
			out.Toc = ncx.id
		}
	}
	for _, ref := range p.Spine.refs {
		r := opfItemRef{IDRef: ref.IDRef}
		if !ref.Linear {
			r.Linear = "no"
		}
		if p.epub3() {
			r.Properties = strings.Join(ref.properties, " ")
		}
		out.ItemRefs = append(out.ItemRefs, r)
	}
	return out
}

// xmlAttrs converts the extension attributes of m, minus skip, to xml.Attr.
func xmlAttrs(m *Meta, skip ...string) []xml.Attr {
	var attrs []xml.Attr
outer:
	for _, a := range m.ExtraAttrs() {
		for _, s := range skip {
			if a.Name == s {
				continue outer
			}
		}
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: a.Name}, Value: a.Value})
	}
	return attrs
}

// marshalDocument writes v as an indented XML document with declaration.
func marshalDocument(v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode XML: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

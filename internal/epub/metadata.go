package epub

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Element names a Dublin Core element carried in <metadata>.
type Element string

const (
	DCIdentifier  Element = "identifier"
	DCTitle       Element = "title"
	DCLanguage    Element = "language"
	DCContributor Element = "contributor"
	DCCreator     Element = "creator"
	DCCoverage    Element = "coverage"
	DCDate        Element = "date"
	DCDescription Element = "description"
	DCFormat      Element = "format"
	DCPublisher   Element = "publisher"
	DCRelation    Element = "relation"
	DCRights      Element = "rights"
	DCSource      Element = "source"
	DCSubject     Element = "subject"
	DCType        Element = "type"
)

// contentNodeList is the order in which element families are serialized.
var contentNodeList = []Element{
	DCIdentifier, DCTitle, DCLanguage, DCContributor, DCCreator, DCCoverage, DCDate, DCDescription,
	DCFormat, DCPublisher, DCRelation, DCRights, DCSource, DCSubject, DCType,
}

// Elements returns every supported Dublin Core element in serialization order.
func Elements() []Element {
	out := make([]Element, len(contentNodeList))
	copy(out, contentNodeList)
	return out
}

func (e Element) valid() bool {
	for _, k := range contentNodeList {
		if k == e {
			return true
		}
	}
	return false
}

// Values of the title-type refiner.
const (
	TitleMain       = "main"
	TitleSubtitle   = "subtitle"
	TitleShort      = "short"
	TitleCollection = "collection"
	TitleEdition    = "edition"
	TitleExpanded   = "expanded"
)

const (
	modifiedProperty = "dcterms:modified"
	modifiedLayout   = "2006-01-02T15:04:05Z"
)

// noDisplaySeq sorts statements without a display-seq after numbered ones.
const noDisplaySeq = math.MaxInt

// Metadata holds the Dublin Core statements and package-level <meta>
// elements of a package.
type Metadata struct {
	pool  *IDPool
	nodes map[Element][]*Meta
	metas []*Meta // <meta property="...">value</meta>
	named []*Meta // <meta name="..." content="..."/>
}

func newMetadata(pool *IDPool) *Metadata {
	return &Metadata{
		pool:  pool,
		nodes: make(map[Element][]*Meta),
	}
}

// Add appends a statement of kind. A non-empty id is reserved in the pool.
func (md *Metadata) Add(kind Element, content, id string) (*Meta, error) {
	if !kind.valid() {
		return nil, fmt.Errorf("%w: unknown element %q", ErrInvalidProperty, kind)
	}
	m := newMeta(md.pool, string(kind), content)
	if id != "" {
		if err := m.SetID(id); err != nil {
			return nil, err
		}
	}
	md.nodes[kind] = append(md.nodes[kind], m)
	return m, nil
}

// AddIdentifier adds a dc:identifier. typ, when set, becomes the
// identifier-type refiner.
func (md *Metadata) AddIdentifier(value, id, typ string) (*Meta, error) {
	m, err := md.Add(DCIdentifier, value, id)
	if err != nil {
		return nil, err
	}
	m.SetIdentifierType(typ)
	return m, nil
}

// AddTitle adds a dc:title refined by titleType when given.
func (md *Metadata) AddTitle(value, id, titleType string) (*Meta, error) {
	m, err := md.Add(DCTitle, value, id)
	if err != nil {
		return nil, err
	}
	m.SetTitleType(titleType)
	return m, nil
}

// AddCreator adds a dc:creator with an optional MARC relator role.
func (md *Metadata) AddCreator(name, id, role string) (*Meta, error) {
	m, err := md.Add(DCCreator, name, id)
	if err != nil {
		return nil, err
	}
	m.SetRole(role)
	return m, nil
}

// AddContributor adds a dc:contributor with an optional MARC relator role.
func (md *Metadata) AddContributor(name, id, role string) (*Meta, error) {
	m, err := md.Add(DCContributor, name, id)
	if err != nil {
		return nil, err
	}
	m.SetRole(role)
	return m, nil
}

// List returns the statements of kind in insertion order.
func (md *Metadata) List(kind Element) []*Meta {
	nodes := md.nodes[kind]
	out := make([]*Meta, len(nodes))
	copy(out, nodes)
	return out
}

// Sorted returns the statements of kind ordered by display-seq. The sort is
// stable, so statements with equal or missing display-seq keep insertion order.
func (md *Metadata) Sorted(kind Element) []*Meta {
	out := md.List(kind)
	sort.SliceStable(out, func(i, j int) bool {
		return displaySeqKey(out[i]) < displaySeqKey(out[j])
	})
	return out
}

func displaySeqKey(m *Meta) int {
	if n, ok := m.DisplaySeq(); ok {
		return n
	}
	return noDisplaySeq
}

// First returns the first statement of kind in display order, or nil.
func (md *Metadata) First(kind Element) *Meta {
	sorted := md.Sorted(kind)
	if len(sorted) == 0 {
		return nil
	}
	return sorted[0]
}

// MainTitle returns the title refined as "main", falling back to the first title.
func (md *Metadata) MainTitle() *Meta {
	sorted := md.Sorted(DCTitle)
	for _, t := range sorted {
		if t.TitleType() == TitleMain {
			return t
		}
	}
	if len(sorted) == 0 {
		return nil
	}
	return sorted[0]
}

// Title returns the content of MainTitle, or "".
func (md *Metadata) Title() string {
	if t := md.MainTitle(); t != nil {
		return t.Content
	}
	return ""
}

// Clear removes every statement of kind and releases their ids.
func (md *Metadata) Clear(kind Element) {
	for _, m := range md.nodes[kind] {
		m.release()
	}
	delete(md.nodes, kind)
}

// Remove deletes a single statement and releases its ids.
func (md *Metadata) Remove(m *Meta) bool {
	kind := Element(m.Name)
	nodes := md.nodes[kind]
	for i, n := range nodes {
		if n == m {
			md.nodes[kind] = append(nodes[:i:i], nodes[i+1:]...)
			m.release()
			return true
		}
	}
	return false
}

// findByID returns the statement of kind with the given id.
func (md *Metadata) findByID(kind Element, id string) *Meta {
	for _, m := range md.nodes[kind] {
		if m.id == id {
			return m
		}
	}
	return nil
}

// AddMeta appends a package-level <meta property="...">.
func (md *Metadata) AddMeta(property, content string) *Meta {
	m := newMeta(md.pool, "meta", content)
	m.Property = property
	md.metas = append(md.metas, m)
	return m
}

// SetMeta replaces every package-level <meta> of property with one holding content.
func (md *Metadata) SetMeta(property, content string) *Meta {
	md.RemoveMeta(property)
	return md.AddMeta(property, content)
}

// RemoveMeta drops the package-level <meta> elements of property.
func (md *Metadata) RemoveMeta(property string) {
	kept := md.metas[:0]
	for _, m := range md.metas {
		if m.Property == property {
			m.release()
			continue
		}
		kept = append(kept, m)
	}
	md.metas = kept
}

// Meta returns the first package-level <meta> of property, or nil.
func (md *Metadata) Meta(property string) *Meta {
	for _, m := range md.metas {
		if m.Property == property {
			return m
		}
	}
	return nil
}

// Metas returns the package-level <meta property> elements in insertion order.
func (md *Metadata) Metas() []*Meta {
	out := make([]*Meta, len(md.metas))
	copy(out, md.metas)
	return out
}

// SetModified records dcterms:modified in UTC with second precision.
func (md *Metadata) SetModified(t time.Time) *Meta {
	return md.SetMeta(modifiedProperty, t.UTC().Format(modifiedLayout))
}

// Modified returns dcterms:modified, or the zero time if unset or unparsable.
func (md *Metadata) Modified() time.Time {
	m := md.Meta(modifiedProperty)
	if m == nil {
		return time.Time{}
	}
	t, err := time.Parse(modifiedLayout, m.Content)
	if err != nil {
		return time.Time{}
	}
	return t
}

// SetRendition sets a package-wide rendition:layout, rendition:orientation or
// rendition:spread value.
func (md *Metadata) SetRendition(axis, value string) error {
	if err := validateRendition(axis, value); err != nil {
		return err
	}
	md.SetMeta("rendition:"+axis, value)
	return nil
}

// Rendition returns the package-wide value of a rendition axis.
func (md *Metadata) Rendition(axis string) string {
	if m := md.Meta("rendition:" + axis); m != nil {
		return m.Content
	}
	return ""
}

// SetIBooks sets an iBooks vocabulary property such as "specified-fonts".
func (md *Metadata) SetIBooks(name, value string) *Meta {
	return md.SetMeta("ibooks:"+name, value)
}

// AddNameMeta appends an OPF 2 style <meta name="..." content="..."/>.
func (md *Metadata) AddNameMeta(name, content string) *Meta {
	m := newMeta(md.pool, "meta", content)
	_ = m.SetAttr("name", name)
	md.named = append(md.named, m)
	return m
}

// NameMetas returns the OPF 2 style <meta name> elements in insertion order.
func (md *Metadata) NameMetas() []*Meta {
	out := make([]*Meta, len(md.named))
	copy(out, md.named)
	return out
}

// usesVocabulary reports whether any package-level meta uses prefix.
func (md *Metadata) usesVocabulary(prefix string) bool {
	for _, m := range md.metas {
		if strings.HasPrefix(m.Property, prefix+":") {
			return true
		}
	}
	return false
}

package epub

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

// Refinement properties understood by the typed helpers on Meta.
const (
	RefineRole            = "role"
	RefineFileAs          = "file-as"
	RefineTitleType       = "title-type"
	RefineDisplaySeq      = "display-seq"
	RefineGroupPosition   = "group-position"
	RefineIdentifierType  = "identifier-type"
	RefineAlternateScript = "alternate-script"
)

// refinerSchemes holds the default scheme attached to a refinement property.
var refinerSchemes = map[string]string{
	RefineRole:           "marc:relators",
	RefineIdentifierType: "onix:codelist5",
}

// Attr is an XML attribute attached to a metadata statement.
type Attr struct {
	Name  string
	Value string
}

// Meta is one metadata statement: a Dublin Core element, a package-level
// <meta>, or a refiner attached to another statement.
type Meta struct {
	Name     string // element name without the dc: prefix, "meta" for refiners
	Content  string
	Property string
	Scheme   string
	Lang     string // xml:lang
	Dir      string

	id       string
	extra    map[string]string
	refiners []*Meta
	pool     *IDPool
}

func newMeta(pool *IDPool, name, content string) *Meta {
	return &Meta{Name: name, Content: content, pool: pool}
}

// ID returns the statement's XML id, or "" if it has none.
func (m *Meta) ID() string {
	return m.id
}

// SetID assigns an XML id, reserving it in the package id pool.
func (m *Meta) SetID(id string) error {
	if id == m.id {
		return nil
	}
	if id != "" && m.pool != nil {
		if err := m.pool.Reserve(id); err != nil {
			return err
		}
	}
	if m.id != "" && m.pool != nil {
		m.pool.Release(m.id)
	}
	m.id = id
	return nil
}

// ensureID issues an id from the pool when the statement has none.
func (m *Meta) ensureID(prefix string) string {
	if m.id == "" && m.pool != nil {
		m.id = m.pool.Generate(prefix, "")
	}
	return m.id
}

// SetContent replaces the statement's value.
func (m *Meta) SetContent(value string) {
	m.Content = value
}

// Attr returns the named attribute.
func (m *Meta) Attr(name string) string {
	switch name {
	case "id":
		return m.id
	case "xml:lang":
		return m.Lang
	case "dir":
		return m.Dir
	case "property":
		return m.Property
	case "scheme":
		return m.Scheme
	}
	return m.extra[name]
}

// SetAttr sets the named attribute. Setting "id" goes through the id pool and
// may fail with ErrDuplicateID.
func (m *Meta) SetAttr(name, value string) error {
	switch name {
	case "id":
		return m.SetID(value)
	case "xml:lang":
		m.Lang = value
	case "dir":
		m.Dir = value
	case "property":
		m.Property = value
	case "scheme":
		m.Scheme = value
	default:
		if m.extra == nil {
			m.extra = make(map[string]string)
		}
		if value == "" {
			delete(m.extra, name)
		} else {
			m.extra[name] = value
		}
	}
	return nil
}

// ExtraAttrs returns the attributes without a typed field, sorted by name.
func (m *Meta) ExtraAttrs() []Attr {
	attrs := make([]Attr, 0, len(m.extra))
	for k, v := range m.extra {
		attrs = append(attrs, Attr{Name: k, Value: v})
	}
	sort.Slice(attrs, func(i, j int) bool { return attrs[i].Name < attrs[j].Name })
	return attrs
}

// Refine replaces every refiner of property with a single one holding value.
// An empty value leaves the statement untouched and returns nil.
func (m *Meta) Refine(property, value string, attrs ...Attr) *Meta {
	if value == "" {
		return nil
	}
	m.RemoveRefiners(property)
	return m.AddRefiner(property, value, attrs...)
}

// AddRefiner appends a refiner without touching existing ones.
// Attributes named "id" are ignored; call SetID on the result instead.
func (m *Meta) AddRefiner(property, value string, attrs ...Attr) *Meta {
	r := newMeta(m.pool, "meta", value)
	r.Property = property
	r.Scheme = refinerSchemes[property]
	for _, a := range attrs {
		if a.Name == "id" {
			continue
		}
		_ = r.SetAttr(a.Name, a.Value)
	}
	m.refiners = append(m.refiners, r)
	return r
}

// RemoveRefiners drops every refiner of property and releases their ids.
func (m *Meta) RemoveRefiners(property string) {
	kept := m.refiners[:0]
	for _, r := range m.refiners {
		if r.Property == property {
			r.release()
			continue
		}
		kept = append(kept, r)
	}
	for i := len(kept); i < len(m.refiners); i++ {
		m.refiners[i] = nil
	}
	m.refiners = kept
}

// FirstRefiner returns the first refiner of property, or nil.
func (m *Meta) FirstRefiner(property string) *Meta {
	for _, r := range m.refiners {
		if r.Property == property {
			return r
		}
	}
	return nil
}

// Refiners returns the refiners of property in insertion order.
func (m *Meta) Refiners(property string) []*Meta {
	var out []*Meta
	for _, r := range m.refiners {
		if r.Property == property {
			out = append(out, r)
		}
	}
	return out
}

// AllRefiners returns every refiner in insertion order.
func (m *Meta) AllRefiners() []*Meta {
	out := make([]*Meta, len(m.refiners))
	copy(out, m.refiners)
	return out
}

func (m *Meta) refinerValue(property string) string {
	if r := m.FirstRefiner(property); r != nil {
		return r.Content
	}
	return ""
}

// release returns the ids held by the statement and its refiners to the pool.
func (m *Meta) release() {
	for _, r := range m.refiners {
		r.release()
	}
	if m.id != "" && m.pool != nil {
		m.pool.Release(m.id)
	}
	m.id = ""
}

// SetRole sets the MARC relator code, such as "aut".
func (m *Meta) SetRole(role string) *Meta { return m.Refine(RefineRole, role) }

// SetFileAs sets the sort form of the value.
func (m *Meta) SetFileAs(v string) *Meta { return m.Refine(RefineFileAs, v) }

// SetTitleType sets the title-type refiner, one of the Title* values.
func (m *Meta) SetTitleType(v string) *Meta { return m.Refine(RefineTitleType, v) }

// SetGroupPosition sets the position within a collection.
func (m *Meta) SetGroupPosition(v string) *Meta { return m.Refine(RefineGroupPosition, v) }

// SetIdentifierType records the ONIX code list 5 type of an identifier
// ("15" for ISBN-13, for example).
func (m *Meta) SetIdentifierType(v string) *Meta { return m.Refine(RefineIdentifierType, v) }

// SetDisplaySeq sets the display order used by Metadata.Sorted.
func (m *Meta) SetDisplaySeq(seq int) *Meta {
	return m.Refine(RefineDisplaySeq, strconv.Itoa(seq))
}

// AddAlternateScript adds a rendering of the value in another language or script.
func (m *Meta) AddAlternateScript(lang, value string) *Meta {
	return m.AddRefiner(RefineAlternateScript, value, Attr{Name: "xml:lang", Value: lang})
}

// Role returns the role refiner, or "".
func (m *Meta) Role() string { return m.refinerValue(RefineRole) }

// FileAs returns the file-as refiner, or "".
func (m *Meta) FileAs() string { return m.refinerValue(RefineFileAs) }

// TitleType returns the title-type refiner, or "".
func (m *Meta) TitleType() string { return m.refinerValue(RefineTitleType) }

// DisplaySeq returns the display-seq refiner as a number.
func (m *Meta) DisplaySeq() (int, bool) {
	v := m.refinerValue(RefineDisplaySeq)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return n, true
}

// LocalizedValue returns the alternate-script value whose language tag is the
// longest subtag prefix of tag, or Content when none matches.
func (m *Meta) LocalizedValue(tag string) string {
	want := subtags(tag)
	best, bestLen := m.Content, 0
	for _, r := range m.Refiners(RefineAlternateScript) {
		have := subtags(r.Lang)
		if len(have) == 0 || len(have) > len(want) || len(have) <= bestLen {
			continue
		}
		if hasSubtagPrefix(want, have) {
			best, bestLen = r.Content, len(have)
		}
	}
	return best
}

// String returns the element name and value for debugging.
func (m *Meta) String() string {
	return fmt.Sprintf("%s(%q)", m.Name, m.Content)
}

func subtags(tag string) []string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil
	}
	if t, err := language.Parse(tag); err == nil {
		tag = t.String()
	}
	return strings.Split(strings.ToLower(strings.ReplaceAll(tag, "_", "-")), "-")
}

func hasSubtagPrefix(tags, prefix []string) bool {
	for i := range prefix {
		if tags[i] != prefix[i] {
			return false
		}
	}
	return true
}

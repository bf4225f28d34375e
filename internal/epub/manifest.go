package epub

import (
	"fmt"
	"path"
	"strings"
)

// Manifest item properties written by this package.
const (
	PropertyCoverImage      = "cover-image"
	PropertyNav             = "nav"
	PropertyMathML          = "mathml"
	PropertyRemoteResources = "remote-resources"
	PropertyScripted        = "scripted"
	PropertySVG             = "svg"
	PropertySwitch          = "switch"
)

// Item is one publication resource listed in the manifest.
type Item struct {
	MediaType    string
	MediaOverlay string // id of a SMIL media overlay item

	id         string
	href       string
	fallback   string
	properties []string
	content    []byte
	hasContent bool
	generated  bool
	manifest   *Manifest
}

// ID returns the item's id.
func (it *Item) ID() string { return it.id }

// Href returns the item's path relative to the package document.
func (it *Item) Href() string { return it.href }

// FallbackID returns the id of the fallback item, or "".
func (it *Item) FallbackID() string { return it.fallback }

// SetContent assigns the bytes written for this item when packaging.
func (it *Item) SetContent(data []byte) *Item {
	it.content = data
	it.hasContent = true
	return it
}

// Content returns the item's bytes and whether any were assigned.
func (it *Item) Content() ([]byte, bool) {
	return it.content, it.hasContent
}

// AddProperty adds p unless it is already present.
func (it *Item) AddProperty(p string) *Item {
	it.properties = addToSet(it.properties, p)
	return it
}

// RemoveProperty drops p.
func (it *Item) RemoveProperty(p string) *Item {
	it.properties = removeFromSet(it.properties, func(s string) bool { return s == p })
	return it
}

// HasProperty reports whether p is set.
func (it *Item) HasProperty(p string) bool {
	for _, s := range it.properties {
		if s == p {
			return true
		}
	}
	return false
}

// Properties returns the item's properties in insertion order.
func (it *Item) Properties() []string {
	out := make([]string, len(it.properties))
	copy(out, it.properties)
	return out
}

// SetCoverImage marks the item as the publication's cover image.
func (it *Item) SetCoverImage() *Item { return it.AddProperty(PropertyCoverImage) }

// SetNav marks the item as the EPUB 3 navigation document.
func (it *Item) SetNav() *Item { return it.AddProperty(PropertyNav) }

// SetFallback points the item at fb. A nil fb clears the fallback. The link is
// rejected when fb is the item itself or already falls back to it.
func (it *Item) SetFallback(fb *Item) error {
	if fb == nil {
		it.fallback = ""
		return nil
	}
	if fb.manifest != it.manifest || it.manifest == nil {
		return fmt.Errorf("%w: fallback %q is not in the same manifest", ErrInvalidProperty, fb.id)
	}
	if fb == it || it.manifest.chainReaches(fb, map[string]bool{it.id: true}) {
		return fmt.Errorf("%w: %q -> %q", ErrFallbackCycle, it.id, fb.id)
	}
	it.fallback = fb.id
	return nil
}

// Manifest indexes the items of a package by id and by href, keeping
// insertion order for serialization.
type Manifest struct {
	pool   *IDPool
	items  []*Item
	byID   map[string]*Item
	byHref map[string]*Item
}

func newManifest(pool *IDPool) *Manifest {
	return &Manifest{
		pool:   pool,
		byID:   make(map[string]*Item),
		byHref: make(map[string]*Item),
	}
}

// AddItem registers a resource. An empty id is derived from the file name of
// href; an empty mediaType is guessed from its extension.
func (m *Manifest) AddItem(id, href, mediaType string) (*Item, error) {
	if href == "" {
		return nil, fmt.Errorf("%w: empty href", ErrInvalidProperty)
	}
	if _, ok := m.byHref[href]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateHref, href)
	}
	if id == "" {
		id = m.pool.Generate("item_"+sanitizeID(basenameWithoutExt(href)), "", OmitCounter())
	} else if err := m.pool.Reserve(id); err != nil {
		return nil, err
	}
	if mediaType == "" {
		mediaType, _ = GuessMediaType(href)
	}

	it := &Item{
		id:        id,
		href:      href,
		MediaType: mediaType,
		manifest:  m,
	}
	m.items = append(m.items, it)
	m.byID[id] = it
	m.byHref[href] = it
	return it, nil
}

// ItemByHref returns the item registered at href, or nil.
func (m *Manifest) ItemByHref(href string) *Item { return m.byHref[href] }

// ItemByID returns the item with id, or nil.
func (m *Manifest) ItemByID(id string) *Item { return m.byID[id] }

// Items returns every item in insertion order.
func (m *Manifest) Items() []*Item {
	out := make([]*Item, len(m.items))
	copy(out, m.items)
	return out
}

// Len returns the number of items.
func (m *Manifest) Len() int { return len(m.items) }

// Remove deletes item, releasing its id and href. Fallbacks pointing at it are cleared.
func (m *Manifest) Remove(item *Item) bool {
	if item == nil || m.byID[item.id] != item {
		return false
	}
	delete(m.byID, item.id)
	delete(m.byHref, item.href)
	m.pool.Release(item.id)
	for i, it := range m.items {
		if it == item {
			m.items = append(m.items[:i:i], m.items[i+1:]...)
			break
		}
	}
	for _, it := range m.items {
		if it.fallback == item.id {
			it.fallback = ""
		}
	}
	item.manifest = nil
	return true
}

// ChainFallbacks links items so that items[k] falls back to items[k+1].
// Nothing is changed when the chain would contain a cycle.
func (m *Manifest) ChainFallbacks(items ...*Item) error {
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if it == nil || m.byID[it.id] != it {
			return fmt.Errorf("%w: item is not in the manifest", ErrInvalidProperty)
		}
		if seen[it.id] {
			return fmt.Errorf("%w: %q appears twice", ErrFallbackCycle, it.id)
		}
		seen[it.id] = true
	}
	if len(items) < 2 {
		return nil
	}
	last := items[len(items)-1]
	if next := m.byID[last.fallback]; next != nil && (seen[next.id] || m.chainReaches(next, seen)) {
		return fmt.Errorf("%w: %q already falls back into the chain", ErrFallbackCycle, last.id)
	}
	for k := 0; k < len(items)-1; k++ {
		items[k].fallback = items[k+1].id
	}
	return nil
}

// FallbackChain returns the items reached by following fallbacks from start,
// start excluded.
func (m *Manifest) FallbackChain(start *Item) []*Item {
	var chain []*Item
	visited := map[string]bool{start.id: true}
	for next := m.byID[start.fallback]; next != nil && !visited[next.id]; next = m.byID[next.fallback] {
		visited[next.id] = true
		chain = append(chain, next)
	}
	return chain
}

// chainReaches reports whether following fallbacks from start hits an id in targets.
func (m *Manifest) chainReaches(start *Item, targets map[string]bool) bool {
	visited := make(map[string]bool)
	for it := start; it != nil && !visited[it.id]; it = m.byID[it.fallback] {
		if targets[it.id] {
			return true
		}
		visited[it.id] = true
	}
	return false
}

func basenameWithoutExt(href string) string {
	base := path.Base(href)
	return strings.TrimSuffix(base, path.Ext(base))
}

// sanitizeID replaces characters that are not valid in an XML id.
func sanitizeID(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func addToSet(set []string, v string) []string {
	for _, s := range set {
		if s == v {
			return set
		}
	}
	return append(set, v)
}

func removeFromSet(set []string, drop func(string) bool) []string {
	out := set[:0]
	for _, s := range set {
		if !drop(s) {
			out = append(out, s)
		}
	}
	return out
}

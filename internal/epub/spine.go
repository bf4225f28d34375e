package epub

import (
	"fmt"
	"strings"
)

// Page spread sides accepted by Spine.SetPageSpread.
const (
	SpreadLeft   = "left"
	SpreadRight  = "right"
	SpreadCenter = "center"
)

// renditionValues lists the accepted values per rendition axis.
var renditionValues = map[string][]string{
	"layout":      {"pre-paginated", "reflowable"},
	"orientation": {"auto", "landscape", "portrait"},
	"spread":      {"none", "landscape", "portrait", "both", "auto"},
}

func validateRendition(axis, value string) error {
	values, ok := renditionValues[axis]
	if !ok {
		return fmt.Errorf("%w: unknown rendition axis %q", ErrInvalidProperty, axis)
	}
	for _, v := range values {
		if v == value {
			return nil
		}
	}
	return fmt.Errorf("%w: rendition:%s cannot be %q", ErrInvalidProperty, axis, value)
}

// Itemref is one entry of the reading order.
type Itemref struct {
	IDRef  string
	Linear bool

	properties []string
}

// Properties returns the itemref's properties in insertion order.
func (r *Itemref) Properties() []string {
	out := make([]string, len(r.properties))
	copy(out, r.properties)
	return out
}

// HasProperty reports whether p is set.
func (r *Itemref) HasProperty(p string) bool {
	for _, s := range r.properties {
		if s == p {
			return true
		}
	}
	return false
}

// Rendition returns the itemref's override for axis, or "".
func (r *Itemref) Rendition(axis string) string {
	prefix := "rendition:" + axis + "-"
	for _, s := range r.properties {
		if strings.HasPrefix(s, prefix) {
			return strings.TrimPrefix(s, prefix)
		}
	}
	return ""
}

// Spine is the reading order of the publication.
type Spine struct {
	// PageProgressionDirection is "ltr", "rtl", "default" or empty.
	PageProgressionDirection string

	refs []*Itemref
}

// Push appends an itemref for item. Pushing the same item twice yields two
// entries. A nil item is ignored and returns nil.
func (s *Spine) Push(item *Item) *Itemref {
	if item == nil {
		return nil
	}
	ref := &Itemref{IDRef: item.ID(), Linear: true}
	s.refs = append(s.refs, ref)
	return ref
}

// Itemrefs returns the spine entries in reading order.
func (s *Spine) Itemrefs() []*Itemref {
	out := make([]*Itemref, len(s.refs))
	copy(out, s.refs)
	return out
}

// Len returns the number of entries.
func (s *Spine) Len() int { return len(s.refs) }

// Find returns the first itemref referencing idref, or nil.
func (s *Spine) Find(idref string) *Itemref {
	for _, r := range s.refs {
		if r.IDRef == idref {
			return r
		}
	}
	return nil
}

// RemoveByIDs drops every itemref whose idref is in ids.
func (s *Spine) RemoveByIDs(ids ...string) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := s.refs[:0]
	for _, r := range s.refs {
		if !drop[r.IDRef] {
			kept = append(kept, r)
		}
	}
	for i := len(kept); i < len(s.refs); i++ {
		s.refs[i] = nil
	}
	s.refs = kept
}

func (s *Spine) contains(ref *Itemref) bool {
	for _, r := range s.refs {
		if r == ref {
			return true
		}
	}
	return false
}

// SetRenditionAxis replaces any rendition:{axis}-* property of ref with
// rendition:{axis}-{value}.
func (s *Spine) SetRenditionAxis(ref *Itemref, axis, value string) error {
	if !s.contains(ref) {
		return ErrInvalidScope
	}
	if err := validateRendition(axis, value); err != nil {
		return err
	}
	prefix := "rendition:" + axis + "-"
	ref.properties = removeFromSet(ref.properties, func(p string) bool { return strings.HasPrefix(p, prefix) })
	ref.properties = append(ref.properties, prefix+value)
	return nil
}

// SetPageSpread places ref on the left or right page of a spread. "center"
// maps to rendition:page-spread-center. A previous side is replaced.
func (s *Spine) SetPageSpread(ref *Itemref, side string) error {
	if !s.contains(ref) {
		return ErrInvalidScope
	}
	var prop string
	switch side {
	case SpreadLeft, SpreadRight:
		prop = "page-spread-" + side
	case SpreadCenter:
		prop = "rendition:page-spread-center"
	default:
		return fmt.Errorf("%w: page spread %q", ErrInvalidProperty, side)
	}
	ref.properties = removeFromSet(ref.properties, isPageSpread)
	ref.properties = append(ref.properties, prop)
	return nil
}

// PageSpread returns the side set by SetPageSpread, or "".
func (r *Itemref) PageSpread() string {
	for _, p := range r.properties {
		switch p {
		case "page-spread-left":
			return SpreadLeft
		case "page-spread-right":
			return SpreadRight
		case "rendition:page-spread-center":
			return SpreadCenter
		}
	}
	return ""
}

func isPageSpread(p string) bool {
	return strings.HasPrefix(p, "page-spread-") || strings.HasPrefix(p, "rendition:page-spread-")
}

// AddProperty adds an arbitrary itemref property.
func (s *Spine) AddProperty(ref *Itemref, p string) error {
	if !s.contains(ref) {
		return ErrInvalidScope
	}
	ref.properties = addToSet(ref.properties, p)
	return nil
}

// usesRendition reports whether any itemref carries a rendition: property.
func (s *Spine) usesRendition() bool {
	for _, r := range s.refs {
		for _, p := range r.properties {
			if strings.HasPrefix(p, "rendition:") {
				return true
			}
		}
	}
	return false
}

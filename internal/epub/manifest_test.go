package epub

import (
	"errors"
	"testing"
)

func TestManifest_AddItem(t *testing.T) {
	m := newManifest(NewIDPool())

	it, err := m.AddItem("", "text/chap 1.xhtml", "")
	if err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}
	if it.ID() != "item_chap_1" {
		t.Errorf("ID() = %q, want item_chap_1", it.ID())
	}
	if it.MediaType != MediaTypeXHTML {
		t.Errorf("MediaType = %q, want %q", it.MediaType, MediaTypeXHTML)
	}

	other, err := m.AddItem("", "images/chap 1.xhtml", "")
	if err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}
	if other.ID() == it.ID() {
		t.Errorf("AddItem() reused id %q", it.ID())
	}

	if _, err := m.AddItem("x", "text/chap 1.xhtml", ""); !errors.Is(err, ErrDuplicateHref) {
		t.Errorf("AddItem() duplicate href error = %v, want ErrDuplicateHref", err)
	}
	if _, err := m.AddItem(it.ID(), "other.xhtml", ""); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("AddItem() duplicate id error = %v, want ErrDuplicateID", err)
	}
	if _, err := m.AddItem("", "", ""); !errors.Is(err, ErrInvalidProperty) {
		t.Errorf("AddItem() empty href error = %v, want ErrInvalidProperty", err)
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
}

func TestManifest_Lookup(t *testing.T) {
	m := newManifest(NewIDPool())
	it, _ := m.AddItem("css", "style.css", "")
	if m.ItemByID("css") != it || m.ItemByHref("style.css") != it {
		t.Fatal("lookup did not return the added item")
	}
	if it.MediaType != "text/css" {
		t.Errorf("MediaType = %q, want text/css", it.MediaType)
	}
	if m.ItemByID("missing") != nil {
		t.Error("ItemByID(missing) is not nil")
	}
}

func TestManifest_Remove(t *testing.T) {
	m := newManifest(NewIDPool())
	a, _ := m.AddItem("a", "a.xhtml", "")
	b, _ := m.AddItem("b", "b.xhtml", "")
	if err := a.SetFallback(b); err != nil {
		t.Fatalf("SetFallback() error = %v", err)
	}
	if !m.Remove(b) {
		t.Fatal("Remove() = false")
	}
	if a.FallbackID() != "" {
		t.Errorf("fallback = %q after removing target, want empty", a.FallbackID())
	}
	if _, err := m.AddItem("b", "b.xhtml", ""); err != nil {
		t.Errorf("AddItem() after Remove error = %v", err)
	}
}

func TestItem_Properties(t *testing.T) {
	m := newManifest(NewIDPool())
	it, _ := m.AddItem("", "cover.jpg", "")
	it.SetCoverImage().AddProperty(PropertyCoverImage).AddProperty(PropertySVG)
	props := it.Properties()
	if len(props) != 2 || props[0] != PropertyCoverImage || props[1] != PropertySVG {
		t.Fatalf("Properties() = %v", props)
	}
	it.RemoveProperty(PropertySVG)
	if it.HasProperty(PropertySVG) {
		t.Error("HasProperty(svg) after RemoveProperty")
	}
}

func TestItem_Content(t *testing.T) {
	m := newManifest(NewIDPool())
	it, _ := m.AddItem("", "empty.css", "")
	if _, ok := it.Content(); ok {
		t.Fatal("Content() ok = true before SetContent")
	}
	it.SetContent(nil)
	if _, ok := it.Content(); !ok {
		t.Error("Content() ok = false after SetContent(nil)")
	}
}

func TestManifest_ChainFallbacks(t *testing.T) {
	m := newManifest(NewIDPool())
	a, _ := m.AddItem("A", "a.xhtml", "")
	b, _ := m.AddItem("B", "b.svg", "")
	c, _ := m.AddItem("C", "c.png", "")

	if err := m.ChainFallbacks(a, b, c); err != nil {
		t.Fatalf("ChainFallbacks() error = %v", err)
	}
	if a.FallbackID() != "B" || b.FallbackID() != "C" || c.FallbackID() != "" {
		t.Errorf("fallbacks = %q, %q, %q, want B, C, empty", a.FallbackID(), b.FallbackID(), c.FallbackID())
	}

	chain := m.FallbackChain(a)
	if len(chain) != 2 || chain[0] != b || chain[1] != c {
		t.Errorf("FallbackChain() = %v", chain)
	}
}

func TestManifest_FallbackCycles(t *testing.T) {
	tests := []struct {
		name string
		run  func(a, b, c *Item, m *Manifest) error
	}{
		{
			name: "self",
			run:  func(a, _, _ *Item, _ *Manifest) error { return a.SetFallback(a) },
		},
		{
			name: "two items",
			run: func(a, b, _ *Item, _ *Manifest) error {
				if err := a.SetFallback(b); err != nil {
					return err
				}
				return b.SetFallback(a)
			},
		},
		{
			name: "chain repeats item",
			run:  func(a, b, _ *Item, m *Manifest) error { return m.ChainFallbacks(a, b, a) },
		},
		{
			name: "chain closes existing loop",
			run: func(a, b, c *Item, m *Manifest) error {
				if err := c.SetFallback(a); err != nil {
					return err
				}
				return m.ChainFallbacks(a, b, c)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newManifest(NewIDPool())
			a, _ := m.AddItem("A", "a.xhtml", "")
			b, _ := m.AddItem("B", "b.xhtml", "")
			c, _ := m.AddItem("C", "c.xhtml", "")
			if err := tt.run(a, b, c, m); !errors.Is(err, ErrFallbackCycle) {
				t.Fatalf("error = %v, want ErrFallbackCycle", err)
			}
		})
	}
}

func TestManifest_ChainFallbacksLeavesItemsUntouchedOnError(t *testing.T) {
	m := newManifest(NewIDPool())
	a, _ := m.AddItem("A", "a.xhtml", "")
	b, _ := m.AddItem("B", "b.xhtml", "")
	if err := m.ChainFallbacks(a, b, a); err == nil {
		t.Fatal("ChainFallbacks() error = nil")
	}
	if a.FallbackID() != "" || b.FallbackID() != "" {
		t.Errorf("fallbacks changed on error: %q, %q", a.FallbackID(), b.FallbackID())
	}
}

func TestManifest_FallbackAcrossManifests(t *testing.T) {
	m1 := newManifest(NewIDPool())
	m2 := newManifest(NewIDPool())
	a, _ := m1.AddItem("A", "a.xhtml", "")
	b, _ := m2.AddItem("B", "b.xhtml", "")
	if err := a.SetFallback(b); !errors.Is(err, ErrInvalidProperty) {
		t.Errorf("SetFallback() error = %v, want ErrInvalidProperty", err)
	}
}

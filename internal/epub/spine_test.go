package epub

import (
	"errors"
	"testing"
)

func newTestSpine(t *testing.T) (*Spine, *Itemref) {
	t.Helper()
	m := newManifest(NewIDPool())
	it, err := m.AddItem("p1", "p1.xhtml", "")
	if err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}
	s := &Spine{}
	return s, s.Push(it)
}

func TestSpine_Push(t *testing.T) {
	m := newManifest(NewIDPool())
	it, _ := m.AddItem("c1", "c1.xhtml", "")
	s := &Spine{}
	first := s.Push(it)
	s.Push(it)
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	if !first.Linear || first.IDRef != "c1" {
		t.Errorf("Push() = %+v, want linear itemref to c1", first)
	}
	if s.Find("c1") != first {
		t.Error("Find() did not return the first itemref")
	}
	s.RemoveByIDs("c1")
	if s.Len() != 0 {
		t.Errorf("Len() after RemoveByIDs = %d, want 0", s.Len())
	}
}

func TestSpine_SetRenditionAxisReplaces(t *testing.T) {
	s, ref := newTestSpine(t)
	if err := s.SetRenditionAxis(ref, "layout", "pre-paginated"); err != nil {
		t.Fatalf("SetRenditionAxis() error = %v", err)
	}
	if err := s.SetRenditionAxis(ref, "orientation", "landscape"); err != nil {
		t.Fatalf("SetRenditionAxis() error = %v", err)
	}
	if err := s.SetRenditionAxis(ref, "layout", "reflowable"); err != nil {
		t.Fatalf("SetRenditionAxis() error = %v", err)
	}

	props := ref.Properties()
	want := []string{"rendition:orientation-landscape", "rendition:layout-reflowable"}
	if len(props) != len(want) {
		t.Fatalf("Properties() = %v, want %v", props, want)
	}
	for i := range want {
		if props[i] != want[i] {
			t.Errorf("Properties()[%d] = %q, want %q", i, props[i], want[i])
		}
	}
	if got := ref.Rendition("layout"); got != "reflowable" {
		t.Errorf("Rendition(layout) = %q, want reflowable", got)
	}
}

func TestSpine_InvalidScope(t *testing.T) {
	s, _ := newTestSpine(t)
	foreign := &Itemref{IDRef: "p1", Linear: true}

	if err := s.SetRenditionAxis(foreign, "layout", "reflowable"); !errors.Is(err, ErrInvalidScope) {
		t.Errorf("SetRenditionAxis() error = %v, want ErrInvalidScope", err)
	}
	if err := s.SetPageSpread(foreign, SpreadLeft); !errors.Is(err, ErrInvalidScope) {
		t.Errorf("SetPageSpread() error = %v, want ErrInvalidScope", err)
	}
	if err := s.AddProperty(foreign, "x"); !errors.Is(err, ErrInvalidScope) {
		t.Errorf("AddProperty() error = %v, want ErrInvalidScope", err)
	}
}

func TestSpine_SetPageSpread(t *testing.T) {
	tests := []struct {
		side string
		want string
	}{
		{SpreadLeft, "page-spread-left"},
		{SpreadRight, "page-spread-right"},
		{SpreadCenter, "rendition:page-spread-center"},
	}
	for _, tt := range tests {
		t.Run(tt.side, func(t *testing.T) {
			s, ref := newTestSpine(t)
			if err := s.SetPageSpread(ref, tt.side); err != nil {
				t.Fatalf("SetPageSpread() error = %v", err)
			}
			if !ref.HasProperty(tt.want) {
				t.Errorf("Properties() = %v, want %q", ref.Properties(), tt.want)
			}
		})
	}

	s, ref := newTestSpine(t)
	if err := s.SetPageSpread(ref, "top"); !errors.Is(err, ErrInvalidProperty) {
		t.Errorf("SetPageSpread(top) error = %v, want ErrInvalidProperty", err)
	}
}

func TestSpine_SetPageSpreadReplaces(t *testing.T) {
	tests := []struct {
		first  string
		second string
		want   string
	}{
		{SpreadLeft, SpreadRight, "page-spread-right"},
		{SpreadRight, SpreadCenter, "rendition:page-spread-center"},
		{SpreadCenter, SpreadLeft, "page-spread-left"},
	}
	for _, tt := range tests {
		t.Run(tt.first+"-"+tt.second, func(t *testing.T) {
			s, ref := newTestSpine(t)
			if err := s.AddProperty(ref, "rendition:layout-pre-paginated"); err != nil {
				t.Fatalf("AddProperty() error = %v", err)
			}
			if err := s.SetPageSpread(ref, tt.first); err != nil {
				t.Fatalf("SetPageSpread(%s) error = %v", tt.first, err)
			}
			if err := s.SetPageSpread(ref, tt.second); err != nil {
				t.Fatalf("SetPageSpread(%s) error = %v", tt.second, err)
			}
			got := ref.Properties()
			if len(got) != 2 || got[0] != "rendition:layout-pre-paginated" || got[1] != tt.want {
				t.Errorf("Properties() = %v, want [rendition:layout-pre-paginated %s]", got, tt.want)
			}
			if side := ref.PageSpread(); side != tt.second {
				t.Errorf("PageSpread() = %q, want %q", side, tt.second)
			}
		})
	}
}

func TestSpine_PushNil(t *testing.T) {
	s, _ := newTestSpine(t)
	before := s.Len()
	if ref := s.Push(nil); ref != nil {
		t.Errorf("Push(nil) = %v, want nil", ref)
	}
	if s.Len() != before {
		t.Errorf("Len() = %d after Push(nil), want %d", s.Len(), before)
	}
}

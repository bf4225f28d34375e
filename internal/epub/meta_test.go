package epub

import "testing"

func TestMeta_RefineReplaces(t *testing.T) {
	md := newMetadata(NewIDPool())
	m, err := md.Add(DCCreator, "Author", "")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	m.Refine(RefineRole, "aut")
	m.Refine(RefineRole, "edt")

	refs := m.Refiners(RefineRole)
	if len(refs) != 1 {
		t.Fatalf("role refiners = %d, want 1", len(refs))
	}
	if refs[0].Content != "edt" {
		t.Errorf("role = %q, want %q", refs[0].Content, "edt")
	}
	if refs[0].Scheme != "marc:relators" {
		t.Errorf("role scheme = %q, want marc:relators", refs[0].Scheme)
	}
}

func TestMeta_RefineEmptyValueIsNoop(t *testing.T) {
	m := newMeta(NewIDPool(), "title", "Sample")
	m.Refine(RefineTitleType, "main")
	if r := m.Refine(RefineTitleType, ""); r != nil {
		t.Errorf("Refine(\"\") = %v, want nil", r)
	}
	if got := m.TitleType(); got != "main" {
		t.Errorf("TitleType() = %q, want main", got)
	}
}

func TestMeta_AddRefinerAppends(t *testing.T) {
	m := newMeta(NewIDPool(), "title", "Sample")
	m.AddRefiner(RefineAlternateScript, "サンプル", Attr{Name: "xml:lang", Value: "ja"})
	m.AddRefiner(RefineAlternateScript, "Muster", Attr{Name: "xml:lang", Value: "de"})

	refs := m.Refiners(RefineAlternateScript)
	if len(refs) != 2 {
		t.Fatalf("alternate-script refiners = %d, want 2", len(refs))
	}
	if refs[0].Lang != "ja" || refs[1].Lang != "de" {
		t.Errorf("refiner langs = %q, %q, want ja, de", refs[0].Lang, refs[1].Lang)
	}
}

func TestMeta_RemoveRefinersReleasesIDs(t *testing.T) {
	pool := NewIDPool()
	m := newMeta(pool, "creator", "Author")
	r := m.Refine(RefineFileAs, "Author, An")
	if err := r.SetID("fileas1"); err != nil {
		t.Fatalf("SetID() error = %v", err)
	}
	m.Refine(RefineFileAs, "Other")
	if pool.Used("fileas1") {
		t.Error("replaced refiner id still reserved")
	}
}

func TestMeta_SetID(t *testing.T) {
	pool := NewIDPool()
	a := newMeta(pool, "title", "A")
	b := newMeta(pool, "title", "B")
	if err := a.SetID("t1"); err != nil {
		t.Fatalf("SetID() error = %v", err)
	}
	if err := b.SetID("t1"); err == nil {
		t.Fatal("SetID() duplicate succeeded, want error")
	}
	if err := a.SetID("t2"); err != nil {
		t.Fatalf("SetID() rename error = %v", err)
	}
	if pool.Used("t1") {
		t.Error("old id still reserved after rename")
	}
}

func TestMeta_Attrs(t *testing.T) {
	m := newMeta(NewIDPool(), "title", "A")
	for _, a := range []Attr{{"xml:lang", "en"}, {"dir", "ltr"}, {"opf:alt-rep", "x"}, {"data-b", "1"}} {
		if err := m.SetAttr(a.Name, a.Value); err != nil {
			t.Fatalf("SetAttr(%q) error = %v", a.Name, err)
		}
	}
	if m.Lang != "en" || m.Attr("xml:lang") != "en" {
		t.Errorf("Lang = %q, want en", m.Lang)
	}
	if m.Attr("dir") != "ltr" {
		t.Errorf("dir = %q, want ltr", m.Attr("dir"))
	}
	extra := m.ExtraAttrs()
	if len(extra) != 2 || extra[0].Name != "data-b" || extra[1].Name != "opf:alt-rep" {
		t.Errorf("ExtraAttrs() = %v, want sorted [data-b opf:alt-rep]", extra)
	}
}

func TestMeta_DisplaySeq(t *testing.T) {
	m := newMeta(NewIDPool(), "creator", "A")
	if _, ok := m.DisplaySeq(); ok {
		t.Error("DisplaySeq() ok = true without refiner")
	}
	m.SetDisplaySeq(3)
	if n, ok := m.DisplaySeq(); !ok || n != 3 {
		t.Errorf("DisplaySeq() = %d, %v, want 3, true", n, ok)
	}
}

func TestMeta_LocalizedValue(t *testing.T) {
	m := newMeta(NewIDPool(), "title", "Primary")
	m.AddAlternateScript("en", "English")
	m.AddAlternateScript("en-US", "American")
	m.AddAlternateScript("zh-Hant", "繁體")

	tests := []struct {
		tag  string
		want string
	}{
		{"en-US", "American"},
		{"en-us", "American"},
		{"en-GB", "English"},
		{"en", "English"},
		{"fr", "Primary"},
		{"zh-Hant-TW", "繁體"},
		{"", "Primary"},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			if got := m.LocalizedValue(tt.tag); got != tt.want {
				t.Errorf("LocalizedValue(%q) = %q, want %q", tt.tag, got, tt.want)
			}
		})
	}
}

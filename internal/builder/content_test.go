package builder

import (
	"reflect"
	"testing"
)

func TestLoadChapter(t *testing.T) {
	xhtml := `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xml:lang="ja">
<head>
  <title>Document Title</title>
  <link rel="stylesheet" type="text/css" href="../style/main.css"/>
  <link rel="stylesheet" href="https://fonts.example.com/a.css"/>
  <link rel="stylesheet" href="../style/main.css"/>
</head>
<body>
  <h1>  Chapter
    One </h1>
  <img src="../images/a.png" alt=""/>
  <img src="images/b.jpg#x" alt=""/>
  <img src="http://example.com/remote.png" alt=""/>
  <img src="data:image/png;base64,AAAA" alt=""/>
  <svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink">
    <image xlink:href="../images/c.jpg"/>
  </svg>
</body>
</html>`

	c, err := LoadChapter("text/ch1.xhtml", []byte(xhtml))
	if err != nil {
		t.Fatalf("LoadChapter() error = %v", err)
	}
	if c.Title != "Chapter One" {
		t.Errorf("Title = %q, want %q", c.Title, "Chapter One")
	}
	if c.Lang != "ja" {
		t.Errorf("Lang = %q, want ja", c.Lang)
	}
	if want := []string{"style/main.css"}; !reflect.DeepEqual(c.CSSLinks, want) {
		t.Errorf("CSSLinks = %v, want %v", c.CSSLinks, want)
	}
	if want := []string{"images/a.png", "text/images/b.jpg", "images/c.jpg"}; !reflect.DeepEqual(c.ImageRefs, want) {
		t.Errorf("ImageRefs = %v, want %v", c.ImageRefs, want)
	}
}

func TestLoadChapter_TitleFallback(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"h1", `<html><head><title>T</title></head><body><h1>H</h1></body></html>`, "H"},
		{"h2", `<html><head><title>T</title></head><body><h2>Sub</h2></body></html>`, "Sub"},
		{"title", `<html><head><title>T</title></head><body><p>x</p></body></html>`, "T"},
		{"none", `<html><body><p>x</p></body></html>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := LoadChapter("ch.xhtml", []byte(tt.html))
			if err != nil {
				t.Fatalf("LoadChapter() error = %v", err)
			}
			if c.Title != tt.want {
				t.Errorf("Title = %q, want %q", c.Title, tt.want)
			}
		})
	}
}

func TestResolvePath(t *testing.T) {
	tests := []struct {
		baseDir string
		relPath string
		want    string
	}{
		{"text", "../images/photo.jpg", "images/photo.jpg"},
		{".", "style.css", "style.css"},
		{"a/b", "./c.png?v=1", "a/b/c.png"},
		{"text", "notes.xhtml#n1", "text/notes.xhtml"},
	}
	for _, tt := range tests {
		if got := resolvePath(tt.baseDir, tt.relPath); got != tt.want {
			t.Errorf("resolvePath(%q, %q) = %q, want %q", tt.baseDir, tt.relPath, got, tt.want)
		}
	}
}

func TestIsLocalRef(t *testing.T) {
	tests := map[string]bool{
		"images/a.png":          true,
		"../a.css":              true,
		"":                      false,
		"#frag":                 false,
		"//cdn.example.com/a":   false,
		"https://example.com/a": false,
		"mailto:a@example.com":  false,
	}
	for ref, want := range tests {
		if got := isLocalRef(ref); got != want {
			t.Errorf("isLocalRef(%q) = %v, want %v", ref, got, want)
		}
	}
}

// Package epub models an EPUB publication in memory and serializes it into
// the OPF package document, NCX and Nav tables of contents, container.xml and
// the OCF zip container.
//
// A Package has a single writer: callers must not mutate one Package from
// several goroutines. Serializing a finished Package is repeatable and
// deterministic.
package epub

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultVersion        = "3.0"
	defaultContentsPrefix = "OEBPS/"
	defaultOPFName        = "package.opf"
	defaultUniqueID       = "BookId"
)

// Well-known vocabularies enabled automatically when their properties are used.
const (
	PrefixRendition = "rendition"
	PrefixIBooks    = "ibooks"
)

var knownVocabularies = map[string]string{
	PrefixRendition: "http://www.idpf.org/vocab/rendition/#",
	PrefixIBooks:    "http://vocabulary.itunes.apple.com/rdf/ibooks/vocabulary-extensions-1.0/",
}

// Prefix is one entry of the package prefix attribute.
type Prefix struct {
	Name string
	URI  string
}

// TOCEntry is one table of contents entry written to the NCX and Nav documents.
type TOCEntry struct {
	Href  string
	Label string
}

// PropertyDetector inspects XHTML content and returns manifest properties
// such as "scripted" or "svg".
type PropertyDetector func(content []byte) ([]string, error)

// Package aggregates the metadata, manifest, spine and bindings of a publication.
type Package struct {
	Metadata *Metadata
	Manifest *Manifest
	Spine    *Spine
	Bindings *Bindings

	// UniqueIdentifier is the id of the dc:identifier naming the publication.
	// A urn:uuid identifier is written when no identifier matches.
	UniqueIdentifier string
	Lang             string
	Dir              string

	version        string
	versionNum     float64
	backwardCompat bool
	contentsPrefix string
	opfName        string
	prefixes       []Prefix
	toc            []TOCEntry
	generatedUID   string

	pool   *IDPool
	logger *slog.Logger
	now    func() time.Time
	detect PropertyDetector
}

// Option configures a Package.
type Option func(*Package) error

// WithVersion sets the OPF version, "3.0" by default.
func WithVersion(v string) Option {
	return func(p *Package) error { return p.SetVersion(v) }
}

// WithBackwardCompat also writes the EPUB 2 fallbacks (NCX, legacy cover
// meta, opf: attributes) in a 3.0 package.
func WithBackwardCompat(on bool) Option {
	return func(p *Package) error {
		p.backwardCompat = on
		return nil
	}
}

// WithContentsPrefix sets the directory holding the package document and
// resources inside the container, "OEBPS/" by default.
func WithContentsPrefix(prefix string) Option {
	return func(p *Package) error {
		if prefix != "" && !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		p.contentsPrefix = prefix
		return nil
	}
}

// WithOPFName sets the package document file name, "package.opf" by default.
func WithOPFName(name string) Option {
	return func(p *Package) error {
		if name == "" {
			return fmt.Errorf("%w: empty OPF name", ErrInvalidProperty)
		}
		p.opfName = name
		return nil
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(p *Package) error {
		if l != nil {
			p.logger = l
		}
		return nil
	}
}

// WithClock sets the time source for dcterms:modified.
func WithClock(now func() time.Time) Option {
	return func(p *Package) error {
		if now != nil {
			p.now = now
		}
		return nil
	}
}

// WithPropertyDetector replaces the XHTML property detector. nil disables detection.
func WithPropertyDetector(d PropertyDetector) Option {
	return func(p *Package) error {
		p.detect = d
		return nil
	}
}

// New creates an empty package with its own id pool.
func New(opts ...Option) (*Package, error) {
	pool := NewIDPool()
	p := &Package{
		Metadata:       newMetadata(pool),
		Manifest:       newManifest(pool),
		Spine:          &Spine{},
		Bindings:       &Bindings{},
		contentsPrefix: defaultContentsPrefix,
		opfName:        defaultOPFName,
		pool:           pool,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:            time.Now,
		detect:         DetectContentProperties,
		generatedUID:   "urn:uuid:" + uuid.NewString(),
	}
	if err := p.SetVersion(defaultVersion); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// IDPool returns the pool shared by every component of the package.
func (p *Package) IDPool() *IDPool { return p.pool }

// Version returns the OPF version string.
func (p *Package) Version() string { return p.version }

// SetVersion sets the OPF version. It fails with ErrUnsupportedVersion when v
// is not a number.
func (p *Package) SetVersion(v string) error {
	n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrUnsupportedVersion, v)
	}
	p.version = strings.TrimSpace(v)
	p.versionNum = n
	return nil
}

// BackwardCompat reports whether EPUB 2 fallbacks are written.
func (p *Package) BackwardCompat() bool { return p.backwardCompat }

// SetBackwardCompat toggles the EPUB 2 fallbacks.
func (p *Package) SetBackwardCompat(on bool) { p.backwardCompat = on }

// ContentsPrefix returns the container directory of the package document.
func (p *Package) ContentsPrefix() string { return p.contentsPrefix }

// OPFPath returns the container path of the package document.
func (p *Package) OPFPath() string { return p.contentsPrefix + p.opfName }

func (p *Package) epub3() bool { return p.versionNum >= 3 }

// legacy reports whether EPUB 2 structures are written.
func (p *Package) legacy() bool { return !p.epub3() || p.backwardCompat }

// AddPrefix registers a vocabulary prefix. Registering a name again replaces its URI.
func (p *Package) AddPrefix(name, uri string) {
	for i, pr := range p.prefixes {
		if pr.Name == name {
			p.prefixes[i].URI = uri
			return
		}
	}
	p.prefixes = append(p.prefixes, Prefix{Name: name, URI: uri})
}

// Prefixes returns the registered vocabulary prefixes in registration order.
func (p *Package) Prefixes() []Prefix {
	out := make([]Prefix, len(p.prefixes))
	copy(out, p.prefixes)
	return out
}

func (p *Package) hasPrefix(name string) bool {
	for _, pr := range p.prefixes {
		if pr.Name == name {
			return true
		}
	}
	return false
}

// AddItem adds a resource to the manifest. See Manifest.AddItem.
func (p *Package) AddItem(id, href, mediaType string) (*Item, error) {
	return p.Manifest.AddItem(id, href, mediaType)
}

// RemoveItem removes item from the manifest and every spine entry pointing at it.
func (p *Package) RemoveItem(item *Item) bool {
	id := item.ID()
	if !p.Manifest.Remove(item) {
		return false
	}
	p.Spine.RemoveByIDs(id)
	return true
}

// AddTOCEntry appends a table of contents entry.
func (p *Package) AddTOCEntry(href, label string) {
	p.toc = append(p.toc, TOCEntry{Href: href, Label: label})
}

// TOCEntries returns the registered table of contents entries.
func (p *Package) TOCEntries() []TOCEntry {
	out := make([]TOCEntry, len(p.toc))
	copy(out, p.toc)
	return out
}

// navEntries returns the TOC entries, or a single unlabeled entry for the
// first spine item when none were registered.
func (p *Package) navEntries() []TOCEntry {
	if len(p.toc) > 0 {
		return p.TOCEntries()
	}
	for _, ref := range p.Spine.refs {
		if it := p.Manifest.ItemByID(ref.IDRef); it != nil {
			p.logger.Debug("synthesized table of contents entry", "href", it.Href())
			return []TOCEntry{{Href: it.Href()}}
		}
	}
	return nil
}

// CoverItem returns the cover image item: the first item carrying the
// cover-image property, then the target of a legacy <meta name="cover">.
func (p *Package) CoverItem() *Item {
	for _, it := range p.Manifest.items {
		if it.HasProperty(PropertyCoverImage) {
			return it
		}
	}
	for _, m := range p.Metadata.named {
		if m.Attr("name") == "cover" {
			if it := p.Manifest.ItemByID(m.Content); it != nil {
				return it
			}
		}
	}
	return nil
}

// PrimaryIdentifier returns the dc:identifier named by UniqueIdentifier, or nil.
func (p *Package) PrimaryIdentifier() *Meta {
	if p.UniqueIdentifier == "" {
		return nil
	}
	return p.Metadata.findByID(DCIdentifier, p.UniqueIdentifier)
}

// Finalize completes the package for distribution. It stores the unique
// identifier and dc:language, stamps dcterms:modified, registers the
// vocabulary prefixes in use, records detected item properties and adds or
// refreshes the generated Nav and NCX items. WriteTo calls it; OPF, NCX and
// Nav do not. Finalize is idempotent.
func (p *Package) Finalize() error {
	if err := p.ensureUniqueIdentifier(); err != nil {
		return err
	}
	if p.Lang != "" && len(p.Metadata.nodes[DCLanguage]) == 0 {
		if _, err := p.Metadata.Add(DCLanguage, p.Lang, ""); err != nil {
			return err
		}
	}
	if p.epub3() {
		if p.Metadata.Meta(modifiedProperty) == nil {
			p.Metadata.SetModified(p.now())
		}
		for _, pr := range p.autoPrefixes() {
			p.AddPrefix(pr.Name, pr.URI)
			p.logger.Debug("enabled vocabulary prefix", "prefix", pr.Name)
		}
		p.detectProperties()
	}
	return p.refreshNavigation()
}

func (p *Package) ensureUniqueIdentifier() error {
	if p.UniqueIdentifier != "" {
		if p.PrimaryIdentifier() != nil {
			return nil
		}
		if _, err := p.Metadata.Add(DCIdentifier, p.generatedUID, p.UniqueIdentifier); err != nil {
			return fmt.Errorf("failed to create unique identifier: %w", err)
		}
		p.logger.Debug("generated unique identifier", "id", p.UniqueIdentifier, "value", p.generatedUID)
		return nil
	}

	if first := p.Metadata.First(DCIdentifier); first != nil {
		if first.id == "" {
			first.id = p.pool.Generate(defaultUniqueID, "", OmitCounter())
		}
		p.UniqueIdentifier = first.id
		return nil
	}

	id := p.pool.Generate(defaultUniqueID, "", OmitCounter())
	m := newMeta(p.pool, string(DCIdentifier), p.generatedUID)
	m.id = id
	p.Metadata.nodes[DCIdentifier] = append(p.Metadata.nodes[DCIdentifier], m)
	p.UniqueIdentifier = id
	p.logger.Debug("generated unique identifier", "id", id, "value", p.generatedUID)
	return nil
}

// serializedIdentifiers returns the unique-identifier id and the
// dc:identifier statements to write. When the package lacks the identifier
// it names, or has none, a statement holding the package's generated
// urn:uuid is written without being added to Metadata.
func (p *Package) serializedIdentifiers() (string, []*Meta, error) {
	idents := p.Metadata.Sorted(DCIdentifier)
	if uid := p.UniqueIdentifier; uid != "" {
		if p.PrimaryIdentifier() != nil {
			return uid, idents, nil
		}
		if p.pool.Used(uid) {
			return "", nil, fmt.Errorf("failed to create unique identifier: %w: %q", ErrDuplicateID, uid)
		}
		return uid, append(idents, p.generatedIdentifier(uid)), nil
	}
	if len(idents) > 0 {
		if idents[0].id != "" {
			return idents[0].id, idents, nil
		}
		first := *idents[0]
		first.id = p.freeID(defaultUniqueID)
		idents[0] = &first
		return first.id, idents, nil
	}
	id := p.freeID(defaultUniqueID)
	return id, []*Meta{p.generatedIdentifier(id)}, nil
}

func (p *Package) generatedIdentifier(id string) *Meta {
	m := newMeta(nil, string(DCIdentifier), p.generatedUID)
	m.id = id
	return m
}

// serializedLanguages returns the dc:language statements to write, falling
// back to Lang when Metadata has none.
func (p *Package) serializedLanguages() []*Meta {
	langs := p.Metadata.Sorted(DCLanguage)
	if len(langs) == 0 && p.Lang != "" {
		return []*Meta{newMeta(nil, string(DCLanguage), p.Lang)}
	}
	return langs
}

// freeID returns prefix, or prefix followed by the lowest free counter,
// without reserving it.
func (p *Package) freeID(prefix string) string {
	if !p.pool.Used(prefix) {
		return prefix
	}
	for n := 1; ; n++ {
		if id := prefix + strconv.Itoa(n); !p.pool.Used(id) {
			return id
		}
	}
}

// autoPrefixes returns the well-known vocabularies used by the package but
// not registered.
func (p *Package) autoPrefixes() []Prefix {
	var out []Prefix
	if !p.hasPrefix(PrefixRendition) && (p.Metadata.usesVocabulary(PrefixRendition) || p.Spine.usesRendition()) {
		out = append(out, Prefix{Name: PrefixRendition, URI: knownVocabularies[PrefixRendition]})
	}
	if !p.hasPrefix(PrefixIBooks) && p.Metadata.usesVocabulary(PrefixIBooks) {
		out = append(out, Prefix{Name: PrefixIBooks, URI: knownVocabularies[PrefixIBooks]})
	}
	return out
}

func (p *Package) detectProperties() {
	if p.detect == nil {
		return
	}
	for _, it := range p.Manifest.items {
		if it.generated || !isXHTML(it.MediaType) || !it.hasContent {
			continue
		}
		props, err := p.detect(it.content)
		if err != nil {
			p.logger.Warn("failed to detect content properties", "href", it.href, "error", err)
			continue
		}
		for _, prop := range props {
			it.AddProperty(prop)
		}
	}
}

// refreshNavigation adds the generated Nav and NCX items the target version
// needs and regenerates their content.
func (p *Package) refreshNavigation() error {
	if p.epub3() {
		nav := p.findItem(func(it *Item) bool { return it.HasProperty(PropertyNav) })
		if nav == nil {
			var err error
			if nav, err = p.addGeneratedItem("nav", "nav", ".xhtml", MediaTypeXHTML); err != nil {
				return err
			}
			nav.SetNav()
		}
		if nav.generated {
			data, err := p.Nav()
			if err != nil {
				return err
			}
			nav.SetContent(data)
		}
	}

	if p.legacy() {
		ncx := p.ncxItem()
		if ncx == nil {
			var err error
			if ncx, err = p.addGeneratedItem("ncx", "toc", ".ncx", MediaTypeNCX); err != nil {
				return err
			}
		}
		if ncx.generated {
			data, err := p.NCX()
			if err != nil {
				return err
			}
			ncx.SetContent(data)
		}
	}
	return nil
}

func (p *Package) ncxItem() *Item {
	return p.findItem(func(it *Item) bool { return it.MediaType == MediaTypeNCX })
}

func (p *Package) findItem(match func(*Item) bool) *Item {
	for _, it := range p.Manifest.items {
		if match(it) {
			return it
		}
	}
	return nil
}

func (p *Package) addGeneratedItem(idPrefix, base, ext, mediaType string) (*Item, error) {
	href := base + ext
	for n := 1; p.Manifest.ItemByHref(href) != nil; n++ {
		href = base + strconv.Itoa(n) + ext
	}
	id := p.pool.Generate(idPrefix, "", OmitCounter())
	p.pool.Release(id)
	it, err := p.Manifest.AddItem(id, href, mediaType)
	if err != nil {
		return nil, err
	}
	it.generated = true
	p.logger.Debug("added generated navigation item", "id", id, "href", href)
	return it, nil
}

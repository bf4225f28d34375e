package epub

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

const (
	mimetypeEntry  = "mimetype"
	containerEntry = "META-INF/container.xml"
)

type zipEntry struct {
	name  string
	data  []byte
	store bool
}

// WriteTo writes the publication as an OCF zip container: the stored
// mimetype entry first, then container.xml, the package document and every
// manifest item in manifest order.
func (p *Package) WriteTo(w io.Writer) (int64, error) {
	entries, err := p.archiveEntries()
	if err != nil {
		return 0, err
	}

	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})
	for _, e := range entries {
		if err := writeEntry(zw, e.name, e.data, e.store); err != nil {
			return cw.n, err
		}
		p.logger.Debug("packaged entry", "name", e.name, "bytes", len(e.data), "stored", e.store)
	}
	if err := zw.Close(); err != nil {
		return cw.n, fmt.Errorf("failed to finish archive: %w", err)
	}
	return cw.n, nil
}

// Bytes returns the packaged publication.
func (p *Package) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := p.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// archiveEntries renders every entry before anything is written, so a missing
// item content fails the whole packaging call.
func (p *Package) archiveEntries() ([]zipEntry, error) {
	if err := p.Finalize(); err != nil {
		return nil, err
	}
	for _, it := range p.Manifest.items {
		if !it.hasContent {
			return nil, fmt.Errorf("%w: %s", ErrMissingContent, it.href)
		}
	}

	opf, err := p.OPF()
	if err != nil {
		return nil, err
	}
	containerXML, err := ContainerXML(p.OPFPath())
	if err != nil {
		return nil, err
	}

	entries := []zipEntry{
		{name: mimetypeEntry, data: []byte(MediaTypeEPUB), store: true},
		{name: containerEntry, data: containerXML},
		{name: p.OPFPath(), data: opf},
	}
	seen := map[string]bool{mimetypeEntry: true, containerEntry: true, p.OPFPath(): true}
	for _, it := range p.Manifest.items {
		name := p.contentsPrefix + it.href
		if seen[name] {
			return nil, fmt.Errorf("%w: %s collides with another archive entry", ErrDuplicateHref, name)
		}
		seen[name] = true
		entries = append(entries, zipEntry{name: name, data: it.content})
	}
	return entries, nil
}

// writeEntry adds one file to the archive, stored or deflated.
func writeEntry(zw *zip.Writer, name string, data []byte, store bool) error {
	method := zip.Deflate
	if store {
		method = zip.Store
	}
	fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method})
	if err != nil {
		return fmt.Errorf("failed to create entry %s: %w", name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("failed to write entry %s: %w", name, err)
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.n += int64(n)
	return n, err
}

package epub

// MediaTypeHandler binds a foreign media type to the manifest item that renders it.
type MediaTypeHandler struct {
	MediaType string
	Handler   string // manifest id of the handler
}

// Bindings is the <bindings> element of an EPUB 3.0 package. Every
// registration is kept for serialization; lookup uses the latest one.
type Bindings struct {
	entries []MediaTypeHandler
	byType  map[string]string
}

// Add registers handlerID for mediaType.
func (b *Bindings) Add(handlerID, mediaType string) {
	if b.byType == nil {
		b.byType = make(map[string]string)
	}
	b.entries = append(b.entries, MediaTypeHandler{MediaType: mediaType, Handler: handlerID})
	b.byType[mediaType] = handlerID
}

// Handler returns the handler id registered last for mediaType.
func (b *Bindings) Handler(mediaType string) (string, bool) {
	id, ok := b.byType[mediaType]
	return id, ok
}

// Entries returns every registration in order.
func (b *Bindings) Entries() []MediaTypeHandler {
	out := make([]MediaTypeHandler, len(b.entries))
	copy(out, b.entries)
	return out
}

// Len returns the number of registrations.
func (b *Bindings) Len() int { return len(b.entries) }

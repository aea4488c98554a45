package entity

// Metadata is what a probe learns about a remote resource before downloading it.
type Metadata struct {
	URL           string // Final URL after redirects
	ContentType   string // Raw Content-Type header
	MediaType     string // Lowercased media type without parameters
	ContentLength int64  // -1 when the server did not declare a usable size
	Filename      string // Decoded filename hint from Content-Disposition, if any
}

func (m *Metadata) HasLength() bool {
	return m.ContentLength >= 0
}

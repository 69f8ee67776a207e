// Package signature holds the byte-signature catalog used to identify
// file types from raw content. The catalog is an immutable, ordered table:
// entries are checked most-specific-first and the first structural match
// wins. Container formats (zip, OLE compound) only identify the outer
// container here; telling sibling formats apart is the classifier's job.
package signature

// Kind tells the classifier whether a match is final or needs
// container-aware refinement.
type Kind int

const (
	KindExact Kind = iota // extension/label/MIME are final
	KindZip               // zip container, probe internal paths
	KindOLE               // OLE compound document, probe stream names
	KindRIFF              // RIFF container, inspect the form type
)

// Entry is one catalog row. Pattern is matched at Offset; a zero byte in
// Mask marks a wildcard position (nil Mask means exact match). Ext carries
// the leading dot.
type Entry struct {
	Kind    Kind
	Pattern []byte
	Mask    []byte
	Offset  int
	Ext     string
	Label   string
	MIME    string
}

// MinLen is the minimum payload the entry can match.
func (e *Entry) MinLen() int {
	return e.Offset + len(e.Pattern)
}

func (e *Entry) match(data []byte) bool {
	if len(data) < e.MinLen() {
		return false
	}
	window := data[e.Offset:]
	for i, p := range e.Pattern {
		if e.Mask != nil && e.Mask[i] == 0 {
			continue
		}
		if window[i] != p {
			return false
		}
	}
	return true
}

// catalog is ordered from most specific to least specific. The zip and OLE
// rows sit first because several document formats share their magic bytes
// and must win over any shorter prefix below.
var catalog = []Entry{
	{Kind: KindZip, Pattern: []byte{0x50, 0x4B, 0x03, 0x04}, Ext: ".zip", Label: "ZIP archive", MIME: "application/zip"},
	{Kind: KindZip, Pattern: []byte{0x50, 0x4B, 0x05, 0x06}, Ext: ".zip", Label: "ZIP archive (empty)", MIME: "application/zip"},
	{Kind: KindOLE, Pattern: []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, Ext: ".ole", Label: "OLE compound document", MIME: "application/octet-stream"},

	{Kind: KindExact, Pattern: []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, Ext: ".png", Label: "PNG image", MIME: "image/png"},
	{Kind: KindExact, Pattern: []byte("{\\rtf1"), Ext: ".rtf", Label: "Rich Text document", MIME: "application/rtf"},
	{Kind: KindExact, Pattern: []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}, Ext: ".7z", Label: "7-Zip archive", MIME: "application/x-7z-compressed"},
	{Kind: KindExact, Pattern: []byte("{\\rtf"), Ext: ".rtf", Label: "Rich Text document", MIME: "application/rtf"},
	{Kind: KindExact, Pattern: []byte("ftyp"), Offset: 4, Ext: ".mp4", Label: "MP4 video", MIME: "video/mp4"},
	{Kind: KindExact, Pattern: []byte{0x25, 0x50, 0x44, 0x46}, Ext: ".pdf", Label: "PDF document", MIME: "application/pdf"},
	{Kind: KindExact, Pattern: []byte{0x47, 0x49, 0x46, 0x38}, Ext: ".gif", Label: "GIF image", MIME: "image/gif"},
	{Kind: KindRIFF, Pattern: []byte{0x52, 0x49, 0x46, 0x46}, Ext: ".riff", Label: "RIFF container", MIME: "application/octet-stream"},
	{Kind: KindExact, Pattern: []byte{0x7F, 0x45, 0x4C, 0x46}, Ext: ".elf", Label: "ELF executable", MIME: "application/octet-stream"},
	{Kind: KindExact, Pattern: []byte{0xFF, 0xD8, 0xFF}, Ext: ".jpg", Label: "JPEG image", MIME: "image/jpeg"},
	{Kind: KindExact, Pattern: []byte{0x49, 0x44, 0x33}, Ext: ".mp3", Label: "MP3 audio", MIME: "audio/mpeg"},
	{Kind: KindExact, Pattern: []byte{0x42, 0x5A, 0x68}, Ext: ".bz2", Label: "Bzip2 archive", MIME: "application/x-bzip2"},
	{Kind: KindExact, Pattern: []byte{0xEF, 0xBB, 0xBF}, Ext: ".txt", Label: "Text file (UTF-8 BOM)", MIME: "text/plain"},
	{Kind: KindExact, Pattern: []byte{0x1F, 0x8B}, Ext: ".gz", Label: "Gzip archive", MIME: "application/gzip"},
	{Kind: KindExact, Pattern: []byte{0xFF, 0xFB}, Ext: ".mp3", Label: "MP3 audio", MIME: "audio/mpeg"},
	{Kind: KindExact, Pattern: []byte{0xFF, 0xFE}, Ext: ".txt", Label: "Text file (UTF-16 LE)", MIME: "text/plain"},
	{Kind: KindExact, Pattern: []byte{0xFE, 0xFF}, Ext: ".txt", Label: "Text file (UTF-16 BE)", MIME: "text/plain"},
	{Kind: KindExact, Pattern: []byte{0x4D, 0x5A}, Ext: ".exe", Label: "Windows executable", MIME: "application/x-msdownload"},
	{Kind: KindExact, Pattern: []byte{0x42, 0x4D}, Ext: ".bmp", Label: "BMP image", MIME: "image/bmp"},
}

// shortestPattern is the smallest payload any entry can match; inputs
// below this length short-circuit to no match.
var shortestPattern = func() int {
	min := catalog[0].MinLen()
	for _, e := range catalog[1:] {
		if n := e.MinLen(); n < min {
			min = n
		}
	}
	return min
}()

// ShortestPattern reports the minimum data length needed for any catalog
// entry to match.
func ShortestPattern() int { return shortestPattern }

// Match returns the first (most specific) catalog entry whose pattern
// matches data, or false when no signature is recognized.
func Match(data []byte) (Entry, bool) {
	if len(data) < shortestPattern {
		return Entry{}, false
	}
	for _, e := range catalog {
		if e.match(data) {
			return e, true
		}
	}
	return Entry{}, false
}

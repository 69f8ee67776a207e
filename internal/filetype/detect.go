// Package filetype resolves the true type of a byte payload independent of
// any filename the container claims. Detection is pure: no input, however
// truncated or malformed, produces an error — the worst case is the
// generic binary sentinel.
package filetype

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gnemet/deckextract/internal/ole"
	"github.com/gnemet/deckextract/internal/signature"
)

// Confidence records how a type was resolved.
type Confidence int

const (
	// Signature means the byte signature (plus container probes where
	// applicable) identified the type.
	Signature Confidence = iota
	// HintExtension means no signature matched and the type was inferred
	// from the filename hint.
	HintExtension
	// Generic means nothing matched; the payload is reported as unknown
	// binary (or sniffed plain text).
	Generic
)

// TypeInfo is the classifier's verdict for one payload.
type TypeInfo struct {
	Ext        string // with leading dot
	Label      string
	MIME       string
	Confidence Confidence
}

// Unknown is the sentinel returned when nothing about the payload is
// recognizable.
var Unknown = TypeInfo{Ext: ".bin", Label: "Unknown binary", MIME: "application/octet-stream", Confidence: Generic}

// zipProbes disambiguates sibling formats that share the outer zip
// signature. Rows are ordered by specificity; the first internal path
// present in the archive wins.
var zipProbes = []struct {
	path string
	info TypeInfo
}{
	{"word/document.xml", TypeInfo{".docx", "Word document", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", Signature}},
	{"xl/workbook.xml", TypeInfo{".xlsx", "Excel workbook", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", Signature}},
	{"ppt/presentation.xml", TypeInfo{".pptx", "PowerPoint presentation", "application/vnd.openxmlformats-officedocument.presentationml.presentation", Signature}},
}

// contentTypeProbes matches markers inside [Content_Types].xml for OOXML
// packages whose part names deviate from the defaults above.
var contentTypeProbes = []struct {
	marker string
	info   TypeInfo
}{
	{"wordprocessingml", TypeInfo{".docx", "Word document", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", Signature}},
	{"spreadsheetml", TypeInfo{".xlsx", "Excel workbook", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", Signature}},
	{"presentationml", TypeInfo{".pptx", "PowerPoint presentation", "application/vnd.openxmlformats-officedocument.presentationml.presentation", Signature}},
}

// odfProbes maps the OpenDocument mimetype entry to its format.
var odfProbes = []struct {
	mime string
	info TypeInfo
}{
	{"application/vnd.oasis.opendocument.text", TypeInfo{".odt", "OpenDocument text", "application/vnd.oasis.opendocument.text", Signature}},
	{"application/vnd.oasis.opendocument.spreadsheet", TypeInfo{".ods", "OpenDocument spreadsheet", "application/vnd.oasis.opendocument.spreadsheet", Signature}},
	{"application/vnd.oasis.opendocument.presentation", TypeInfo{".odp", "OpenDocument presentation", "application/vnd.oasis.opendocument.presentation", Signature}},
}

// oleInfo maps the stream-probe verdict from the ole package onto full
// type triples.
var oleInfo = map[string]TypeInfo{
	".doc": {".doc", "Word document (legacy)", "application/msword", Signature},
	".xls": {".xls", "Excel workbook (legacy)", "application/vnd.ms-excel", Signature},
	".ppt": {".ppt", "PowerPoint presentation (legacy)", "application/vnd.ms-powerpoint", Signature},
}

// hintTypes is the extension vocabulary accepted from filename hints when
// no signature matches.
var hintTypes = map[string]TypeInfo{
	"docx": {".docx", "Word document", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", HintExtension},
	"xlsx": {".xlsx", "Excel workbook", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", HintExtension},
	"pptx": {".pptx", "PowerPoint presentation", "application/vnd.openxmlformats-officedocument.presentationml.presentation", HintExtension},
	"doc":  {".doc", "Word document (legacy)", "application/msword", HintExtension},
	"xls":  {".xls", "Excel workbook (legacy)", "application/vnd.ms-excel", HintExtension},
	"ppt":  {".ppt", "PowerPoint presentation (legacy)", "application/vnd.ms-powerpoint", HintExtension},
	"pdf":  {".pdf", "PDF document", "application/pdf", HintExtension},
	"rtf":  {".rtf", "Rich Text document", "application/rtf", HintExtension},
	"txt":  {".txt", "Text file", "text/plain", HintExtension},
	"csv":  {".csv", "CSV file", "text/csv", HintExtension},
	"xml":  {".xml", "XML file", "application/xml", HintExtension},
	"jpg":  {".jpg", "JPEG image", "image/jpeg", HintExtension},
	"jpeg": {".jpg", "JPEG image", "image/jpeg", HintExtension},
	"png":  {".png", "PNG image", "image/png", HintExtension},
	"gif":  {".gif", "GIF image", "image/gif", HintExtension},
	"bmp":  {".bmp", "BMP image", "image/bmp", HintExtension},
	"zip":  {".zip", "ZIP archive", "application/zip", HintExtension},
	"mp3":  {".mp3", "MP3 audio", "audio/mpeg", HintExtension},
	"wav":  {".wav", "WAV audio", "audio/wav", HintExtension},
	"mp4":  {".mp4", "MP4 video", "video/mp4", HintExtension},
	"avi":  {".avi", "AVI video", "video/x-msvideo", HintExtension},
}

// Detect classifies a payload. hint is an optional filename whose suffix
// is consulted only when no byte signature matches. Detect never fails;
// unrecognizable input yields the Unknown sentinel.
func Detect(data []byte, hint string) TypeInfo {
	if len(data) >= signature.ShortestPattern() {
		if entry, ok := signature.Match(data); ok {
			switch entry.Kind {
			case signature.KindZip:
				return detectZip(data)
			case signature.KindOLE:
				return detectOLE(data)
			case signature.KindRIFF:
				return detectRIFF(data)
			default:
				return TypeInfo{Ext: entry.Ext, Label: entry.Label, MIME: entry.MIME, Confidence: Signature}
			}
		}
	}

	if hint != "" {
		if i := strings.LastIndexByte(hint, '.'); i >= 0 && i < len(hint)-1 {
			ext := strings.ToLower(hint[i+1:])
			if info, ok := hintTypes[ext]; ok {
				info.Label += " (extension-inferred)"
				return info
			}
		}
	}

	if looksLikeText(data) {
		return TypeInfo{Ext: ".txt", Label: "Text file", MIME: "text/plain", Confidence: Generic}
	}
	return Unknown
}

// detectZip refines a zip-signature match into a concrete document format
// by probing well-known internal paths. A zip that cannot be opened
// (truncated or corrupt central directory) still classifies as a plain
// zip archive rather than failing the call.
func detectZip(data []byte) TypeInfo {
	plainZip := TypeInfo{Ext: ".zip", Label: "ZIP archive", MIME: "application/zip", Confidence: Signature}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return plainZip
	}

	parts := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		parts[f.Name] = f
	}

	for _, p := range zipProbes {
		if _, ok := parts[p.path]; ok {
			return p.info
		}
	}

	if f, ok := parts["[Content_Types].xml"]; ok {
		if body, err := readZipEntry(f); err == nil {
			for _, p := range contentTypeProbes {
				if bytes.Contains(body, []byte(p.marker)) {
					return p.info
				}
			}
		}
	}

	if f, ok := parts["mimetype"]; ok {
		if body, err := readZipEntry(f); err == nil {
			mime := strings.TrimSpace(string(body))
			for _, p := range odfProbes {
				if strings.HasPrefix(mime, p.mime) {
					return p.info
				}
			}
		}
	}

	return plainZip
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func detectOLE(data []byte) TypeInfo {
	if ext := ole.DetectExt(data); ext != "" {
		if info, ok := oleInfo[ext]; ok {
			return info
		}
	}
	return TypeInfo{Ext: ".ole", Label: "OLE compound document", MIME: "application/octet-stream", Confidence: Signature}
}

// detectRIFF splits the shared RIFF prefix into WAV vs AVI by the form
// type at offset 8.
func detectRIFF(data []byte) TypeInfo {
	if len(data) >= 12 {
		switch string(data[8:12]) {
		case "WAVE":
			return TypeInfo{Ext: ".wav", Label: "WAV audio", MIME: "audio/wav", Confidence: Signature}
		case "AVI ":
			return TypeInfo{Ext: ".avi", Label: "AVI video", MIME: "video/x-msvideo", Confidence: Signature}
		}
	}
	return TypeInfo{Ext: ".riff", Label: "RIFF container", MIME: "application/octet-stream", Confidence: Signature}
}

// looksLikeText samples up to 1KB and accepts the payload as text when at
// least 70% of the runes are printable. Invalid UTF-8 sequences count
// against the payload, so NUL-free random binary stays binary.
func looksLikeText(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	sample := data
	if len(sample) > 1024 {
		sample = sample[:1024]
	}
	if bytes.ContainsRune(sample, 0) { // NUL bytes rule out text outright
		return false
	}
	printable := 0
	total := 0
	for i := 0; i < len(sample); {
		r, size := utf8.DecodeRune(sample[i:])
		i += size
		total++
		if r == utf8.RuneError && size == 1 {
			continue
		}
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printable++
		}
	}
	return total > 0 && float64(printable)/float64(total) > 0.7
}

// Category groups an extension into a coarse family for report grouping.
func Category(ext string) string {
	switch strings.TrimPrefix(strings.ToLower(ext), ".") {
	case "doc", "docx", "pdf", "rtf", "txt", "odt":
		return "document"
	case "xls", "xlsx", "ods", "csv":
		return "spreadsheet"
	case "ppt", "pptx", "odp":
		return "presentation"
	case "jpg", "jpeg", "png", "gif", "bmp", "tif", "tiff", "svg":
		return "image"
	case "mp3", "wav", "wma", "aac", "flac", "ogg":
		return "audio"
	case "mp4", "avi", "mkv", "mov", "wmv", "webm":
		return "video"
	case "zip", "rar", "7z", "tar", "gz", "bz2":
		return "archive"
	case "exe", "elf", "msi", "deb", "rpm", "dmg":
		return "executable"
	default:
		return "other"
	}
}

// FormatSize renders a byte count in human units.
func FormatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(n)/float64(div), "KMGT"[exp])
}

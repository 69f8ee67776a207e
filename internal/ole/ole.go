// Package ole inspects OLE compound documents (the pre-2007 Office
// container and the wrapper format PowerPoint uses for embedded objects).
// It answers two questions: which legacy Office format a compound document
// holds, and whether it is a Packager object carrying a foreign file with
// its original name in the \x01Ole10Native stream.
package ole

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"

	"github.com/richardlehane/mscfb"
)

const nativeStreamName = "\x01Ole10Native"

// streamProbes maps characteristic stream names to legacy Office
// extensions, checked in order. The table mirrors the zip-path probe table
// in the classifier so both disambiguation paths stay auditable.
var streamProbes = []struct {
	stream string
	ext    string
}{
	{"WordDocument", ".doc"},
	{"Workbook", ".xls"},
	{"Book", ".xls"},
	{"PowerPoint Document", ".ppt"},
}

// DetectExt opens data as a compound document and returns the legacy
// Office extension its streams identify, or "" when the document is
// unreadable or matches no probe.
func DetectExt(data []byte) string {
	names, err := streamNames(data)
	if err != nil {
		return ""
	}
	for _, p := range streamProbes {
		if names[p.stream] {
			return p.ext
		}
	}
	return ""
}

func streamNames(data []byte) (map[string]bool, error) {
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	names := make(map[string]bool)
	for {
		entry, err := doc.Next()
		if err != nil {
			break
		}
		names[entry.Name] = true
	}
	return names, nil
}

// NativePackage extracts the wrapped file from a Packager object. When
// data is a compound document with an Ole10Native stream, it returns the
// original filename recorded by the packager and the verbatim file bytes.
// Any structural problem reports ok=false so callers fall back to the raw
// payload.
func NativePackage(data []byte) (name string, content []byte, ok bool) {
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return "", nil, false
	}
	for {
		entry, err := doc.Next()
		if err != nil {
			return "", nil, false
		}
		if entry.Name == nativeStreamName {
			stream, err := io.ReadAll(entry)
			if err != nil {
				return "", nil, false
			}
			return ParseNativeStream(stream)
		}
	}
}

// ParseNativeStream decodes the Ole10Native stream layout:
//
//	u32 size            size of everything that follows
//	u16 type            0x0002 for an embedded object
//	cstr label          display name
//	cstr path           original file path on the authoring machine
//	u32 reserved
//	u32 tempLen         length-prefixed temp path, trailing NUL included
//	u8  temp[tempLen]
//	u32 dataLen
//	u8  data[dataLen]   the wrapped file, byte for byte
//
// The original path is reduced to its base name; packager paths are
// Windows-style, so both separator kinds are stripped.
func ParseNativeStream(stream []byte) (name string, content []byte, ok bool) {
	if len(stream) < 6 {
		return "", nil, false
	}
	total := binary.LittleEndian.Uint32(stream[0:4])
	if int(total) > len(stream)-4 {
		return "", nil, false
	}
	pos := 6 // skip size and type

	label, pos, ok := readCString(stream, pos)
	if !ok {
		return "", nil, false
	}
	origPath, pos, ok := readCString(stream, pos)
	if !ok {
		return "", nil, false
	}

	if pos+8 > len(stream) {
		return "", nil, false
	}
	pos += 4 // reserved
	tempLen := int(binary.LittleEndian.Uint32(stream[pos : pos+4]))
	pos += 4
	if tempLen < 0 || pos+tempLen+4 > len(stream) {
		return "", nil, false
	}
	pos += tempLen

	dataLen := int(binary.LittleEndian.Uint32(stream[pos : pos+4]))
	pos += 4
	if dataLen <= 0 || pos+dataLen > len(stream) {
		return "", nil, false
	}

	name = baseName(origPath)
	if name == "" {
		name = baseName(label)
	}
	return name, stream[pos : pos+dataLen], true
}

func readCString(b []byte, pos int) (string, int, bool) {
	if pos >= len(b) {
		return "", pos, false
	}
	end := bytes.IndexByte(b[pos:], 0)
	if end < 0 {
		return "", pos, false
	}
	return string(b[pos : pos+end]), pos + end + 1, true
}

// baseName strips Windows and POSIX directory components.
func baseName(p string) string {
	if i := strings.LastIndexAny(p, `\/`); i >= 0 {
		p = p[i+1:]
	}
	return strings.TrimSpace(p)
}

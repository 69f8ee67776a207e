package ole

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildNativeStream assembles an Ole10Native stream around content,
// recording label and origPath the way the packager does.
func buildNativeStream(label, origPath, tempPath string, content []byte) []byte {
	var body bytes.Buffer
	binary.Write(&body, binary.LittleEndian, uint16(0x0002))
	body.WriteString(label)
	body.WriteByte(0)
	body.WriteString(origPath)
	body.WriteByte(0)
	binary.Write(&body, binary.LittleEndian, uint32(0))
	binary.Write(&body, binary.LittleEndian, uint32(len(tempPath)+1))
	body.WriteString(tempPath)
	body.WriteByte(0)
	binary.Write(&body, binary.LittleEndian, uint32(len(content)))
	body.Write(content)

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

func TestParseNativeStream(t *testing.T) {
	content := []byte("%PDF-1.4 embedded document body")

	tests := []struct {
		name     string
		stream   []byte
		wantName string
		wantOK   bool
	}{
		{
			name:     "windows path reduced to base name",
			stream:   buildNativeStream("report.pdf", `C:\Users\anna\Documents\report.pdf`, `C:\Temp\report.pdf`, content),
			wantName: "report.pdf",
			wantOK:   true,
		},
		{
			name:     "label used when path is empty",
			stream:   buildNativeStream("budget.xlsx", "", `C:\Temp\budget.xlsx`, content),
			wantName: "budget.xlsx",
			wantOK:   true,
		},
		{
			name:   "empty stream",
			stream: nil,
			wantOK: false,
		},
		{
			name:   "header only",
			stream: []byte{0x04, 0x00, 0x00, 0x00, 0x02, 0x00},
			wantOK: false,
		},
		{
			name: "truncated before data section",
			stream: func() []byte {
				s := buildNativeStream("a.txt", "a.txt", "tmp", content)
				return s[:len(s)-len(content)-2]
			}(),
			wantOK: false,
		},
		{
			name: "declared size exceeds stream",
			stream: func() []byte {
				s := buildNativeStream("a.txt", "a.txt", "tmp", content)
				binary.LittleEndian.PutUint32(s[0:4], uint32(len(s)*2))
				return s
			}(),
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, got, ok := ParseNativeStream(tt.stream)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if name != tt.wantName {
				t.Errorf("name = %q, want %q", name, tt.wantName)
			}
			if !bytes.Equal(got, content) {
				t.Errorf("content mismatch: got %d bytes, want %d", len(got), len(content))
			}
		})
	}
}

func TestDetectExtRejectsGarbage(t *testing.T) {
	if ext := DetectExt([]byte("not a compound document at all")); ext != "" {
		t.Errorf("DetectExt = %q, want empty", ext)
	}
	if ext := DetectExt(nil); ext != "" {
		t.Errorf("DetectExt(nil) = %q, want empty", ext)
	}
}

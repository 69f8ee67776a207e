package pptx

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
)

const (
	nsMain = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsRel  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsPkg  = "http://schemas.openxmlformats.org/package/2006/relationships"

	typeSlide  = nsRel + "/slide"
	typeOLE    = nsRel + "/oleObject"
	typePkgObj = nsRel + "/package"
	typeImage  = nsRel + "/image"
)

// writeDeck materializes a deck as a .pptx file in a temp dir.
func writeDeck(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deck.pptx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, body := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

// presentationXML builds ppt/presentation.xml with slides listed in the
// given relationship-id order.
func presentationXML(relIDs ...string) string {
	body := ""
	for i, id := range relIDs {
		body += fmt.Sprintf(`<p:sldId id="%d" r:id="%s"/>`, 256+i, id)
	}
	return fmt.Sprintf(`<p:presentation xmlns:p=%q xmlns:r=%q><p:sldIdLst>%s</p:sldIdLst></p:presentation>`,
		nsMain, nsRel, body)
}

func relsXML(rels ...string) string {
	body := ""
	for _, r := range rels {
		body += r
	}
	return fmt.Sprintf(`<Relationships xmlns=%q>%s</Relationships>`, nsPkg, body)
}

func rel(id, relType, target string) string {
	return fmt.Sprintf(`<Relationship Id=%q Type=%q Target=%q/>`, id, relType, target)
}

func externalRel(id, relType, target string) string {
	return fmt.Sprintf(`<Relationship Id=%q Type=%q Target=%q TargetMode="External"/>`, id, relType, target)
}

func drainScanner(t *testing.T, sc *Scanner) []*Payload {
	t.Helper()
	var out []*Payload
	for {
		p, err := sc.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		out = append(out, p)
	}
}

func TestScanDocumentOrder(t *testing.T) {
	// sldIdLst lists slide2 before slide1, so slide2 is document slide 1.
	deck := writeDeck(t, map[string]string{
		"ppt/presentation.xml":            presentationXML("rId2", "rId1"),
		"ppt/_rels/presentation.xml.rels": relsXML(rel("rId1", typeSlide, "slides/slide1.xml"), rel("rId2", typeSlide, "slides/slide2.xml")),
		"ppt/slides/slide1.xml":           "<sld/>",
		"ppt/slides/slide2.xml":           "<sld/>",
		"ppt/slides/_rels/slide1.xml.rels": relsXML(
			rel("rId1", typeOLE, "../embeddings/oleObject1.bin"),
		),
		"ppt/slides/_rels/slide2.xml.rels": relsXML(
			rel("rId1", typePkgObj, "../embeddings/package1.xlsx"),
		),
		"ppt/embeddings/oleObject1.bin":  "payload-one",
		"ppt/embeddings/package1.xlsx":   "payload-two",
		"ppt/media/image1.png":           "not an embedding",
	})

	sc, err := Open(deck)
	if err != nil {
		t.Fatal(err)
	}
	defer sc.Close()

	got := drainScanner(t, sc)
	if len(got) != 2 {
		t.Fatalf("got %d payloads, want 2", len(got))
	}
	if got[0].SlideIndex != 1 || got[0].PartPath != "ppt/embeddings/package1.xlsx" {
		t.Errorf("first payload = slide %d %s, want slide 1 ppt/embeddings/package1.xlsx",
			got[0].SlideIndex, got[0].PartPath)
	}
	if string(got[0].Data) != "payload-two" {
		t.Errorf("first payload data = %q", got[0].Data)
	}
	if got[1].SlideIndex != 2 || got[1].PartPath != "ppt/embeddings/oleObject1.bin" {
		t.Errorf("second payload = slide %d %s", got[1].SlideIndex, got[1].PartPath)
	}

	// The scanner is exhausted for good.
	if _, err := sc.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next after EOF = %v, want io.EOF", err)
	}
}

func TestScanFiltersNonEmbeddings(t *testing.T) {
	deck := writeDeck(t, map[string]string{
		"ppt/presentation.xml":            presentationXML("rId1"),
		"ppt/_rels/presentation.xml.rels": relsXML(rel("rId1", typeSlide, "slides/slide1.xml")),
		"ppt/slides/slide1.xml":           "<sld/>",
		"ppt/slides/_rels/slide1.xml.rels": relsXML(
			rel("rId1", typeImage, "../media/image1.png"),
			externalRel("rId2", typeOLE, "file:///C:/external.bin"),
			rel("rId3", typeOLE, "../embeddings/oleObject1.bin"),
		),
		"ppt/media/image1.png":          "image bytes",
		"ppt/embeddings/oleObject1.bin": "real payload",
	})

	sc, err := Open(deck)
	if err != nil {
		t.Fatal(err)
	}
	defer sc.Close()

	got := drainScanner(t, sc)
	if len(got) != 1 {
		t.Fatalf("got %d payloads, want 1 (images and external targets filtered)", len(got))
	}
	if got[0].RelID != "rId3" {
		t.Errorf("payload rel = %s, want rId3", got[0].RelID)
	}
}

func TestScanDanglingReference(t *testing.T) {
	deck := writeDeck(t, map[string]string{
		"ppt/presentation.xml":            presentationXML("rId1"),
		"ppt/_rels/presentation.xml.rels": relsXML(rel("rId1", typeSlide, "slides/slide1.xml")),
		"ppt/slides/slide1.xml":           "<sld/>",
		"ppt/slides/_rels/slide1.xml.rels": relsXML(
			rel("rId1", typeOLE, "../embeddings/gone.bin"),
			rel("rId2", typeOLE, "../embeddings/present.bin"),
		),
		"ppt/embeddings/present.bin": "still here",
	})

	sc, err := Open(deck)
	if err != nil {
		t.Fatal(err)
	}
	defer sc.Close()

	got := drainScanner(t, sc)
	if len(got) != 2 {
		t.Fatalf("got %d payloads, want 2 (dangling still counts)", len(got))
	}

	var dangling *DanglingReferenceError
	if !errors.As(got[0].Err, &dangling) {
		t.Fatalf("first payload err = %v, want DanglingReferenceError", got[0].Err)
	}
	if dangling.Target != "ppt/embeddings/gone.bin" {
		t.Errorf("dangling target = %s", dangling.Target)
	}
	if got[1].Err != nil {
		t.Errorf("second payload err = %v, want nil", got[1].Err)
	}
}

func TestScanOrphans(t *testing.T) {
	entries := map[string]string{
		"ppt/presentation.xml":            presentationXML("rId1"),
		"ppt/_rels/presentation.xml.rels": relsXML(rel("rId1", typeSlide, "slides/slide1.xml")),
		"ppt/slides/slide1.xml":           "<sld/>",
		"ppt/slides/_rels/slide1.xml.rels": relsXML(
			rel("rId1", typeOLE, "../embeddings/referenced.bin"),
		),
		"ppt/embeddings/referenced.bin": "referenced",
		"ppt/embeddings/zz_orphan.bin":  "orphaned",
		"ppt/embeddings/aa_orphan.bin":  "orphaned too",
	}

	t.Run("disabled by default", func(t *testing.T) {
		sc, err := Open(writeDeck(t, entries))
		if err != nil {
			t.Fatal(err)
		}
		defer sc.Close()
		if got := drainScanner(t, sc); len(got) != 1 {
			t.Errorf("got %d payloads, want 1", len(got))
		}
	})

	t.Run("enabled", func(t *testing.T) {
		sc, err := Open(writeDeck(t, entries))
		if err != nil {
			t.Fatal(err)
		}
		defer sc.Close()
		sc.IncludeOrphans = true

		got := drainScanner(t, sc)
		if len(got) != 3 {
			t.Fatalf("got %d payloads, want 3", len(got))
		}
		// Orphans come after all slides, sorted by name, with index 0.
		if got[1].PartPath != "ppt/embeddings/aa_orphan.bin" || got[2].PartPath != "ppt/embeddings/zz_orphan.bin" {
			t.Errorf("orphan order = %s, %s", got[1].PartPath, got[2].PartPath)
		}
		if got[1].SlideIndex != 0 || got[2].SlideIndex != 0 {
			t.Errorf("orphan slide indexes = %d, %d, want 0", got[1].SlideIndex, got[2].SlideIndex)
		}
	})
}

func TestOpenRejectsBadInputs(t *testing.T) {
	t.Run("legacy binary presentation", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "old.ppt")
		data := append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, make([]byte, 512)...)
		if err := os.WriteFile(path, data, 0644); err != nil {
			t.Fatal(err)
		}
		_, err := Open(path)
		var fe *FormatError
		if !errors.As(err, &fe) {
			t.Fatalf("err = %v, want FormatError", err)
		}
	})

	t.Run("not a zip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "notes.txt")
		if err := os.WriteFile(path, []byte("just some text"), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := Open(path)
		var fe *FormatError
		if !errors.As(err, &fe) {
			t.Fatalf("err = %v, want FormatError", err)
		}
	})

	t.Run("zip without presentation part", func(t *testing.T) {
		path := writeDeck(t, map[string]string{"word/document.xml": "<doc/>"})
		_, err := Open(path)
		var fe *FormatError
		if !errors.As(err, &fe) {
			t.Fatalf("err = %v, want FormatError", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Open(filepath.Join(t.TempDir(), "nope.pptx"))
		var fe *FormatError
		if !errors.As(err, &fe) {
			t.Fatalf("err = %v, want FormatError", err)
		}
	})
}

func TestResolveTarget(t *testing.T) {
	tests := []struct {
		base, target, want string
	}{
		{"ppt/slides", "../embeddings/oleObject1.bin", "ppt/embeddings/oleObject1.bin"},
		{"ppt/slides", "media/image1.png", "ppt/slides/media/image1.png"},
		{"ppt", "slides/slide1.xml", "ppt/slides/slide1.xml"},
		{"ppt/slides", "/ppt/embeddings/a.bin", "ppt/embeddings/a.bin"},
	}
	for _, tt := range tests {
		if got := resolveTarget(tt.base, tt.target); got != tt.want {
			t.Errorf("resolveTarget(%q, %q) = %q, want %q", tt.base, tt.target, got, tt.want)
		}
	}
}

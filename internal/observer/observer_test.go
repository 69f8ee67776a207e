package observer

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/gnemet/deckextract/internal/config"
)

const (
	nsMain = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsRel  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsPkg  = "http://schemas.openxmlformats.org/package/2006/relationships"
)

var pngPayload = append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, []byte("fake image body")...)

// writeDeck materializes a single-slide deck with one embedded object.
func writeDeck(t *testing.T, path string) {
	t.Helper()
	entries := map[string][]byte{
		"ppt/presentation.xml": []byte(fmt.Sprintf(
			`<p:presentation xmlns:p=%q xmlns:r=%q><p:sldIdLst><p:sldId id="256" r:id="rId1"/></p:sldIdLst></p:presentation>`,
			nsMain, nsRel)),
		"ppt/_rels/presentation.xml.rels": []byte(fmt.Sprintf(
			`<Relationships xmlns=%q><Relationship Id="rId1" Type="%s/slide" Target="slides/slide1.xml"/></Relationships>`,
			nsPkg, nsRel)),
		"ppt/slides/slide1.xml": []byte("<sld/>"),
		"ppt/slides/_rels/slide1.xml.rels": []byte(fmt.Sprintf(
			`<Relationships xmlns=%q><Relationship Id="rId1" Type="%s/oleObject" Target="../embeddings/oleObject1.bin"/></Relationships>`,
			nsPkg, nsRel)),
		"ppt/embeddings/oleObject1.bin": pngPayload,
	}

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
		if _, err := w.Write(body); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	return &config.Config{
		Application: config.ApplicationConfig{
			Storage: config.StorageConfig{
				Stage:     filepath.Join(root, "stage"),
				Output:    filepath.Join(root, "extracted"),
				Processed: filepath.Join(root, "processed"),
			},
		},
	}
}

func TestProcessFileExtractsAndMovesDeck(t *testing.T) {
	cfg := testConfig(t)
	if err := os.MkdirAll(cfg.Application.Storage.Stage, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(cfg.Application.Storage.Processed, 0755); err != nil {
		t.Fatal(err)
	}

	deckPath := filepath.Join(cfg.Application.Storage.Stage, "quarterly.pptx")
	writeDeck(t, deckPath)

	obs := NewObserver(cfg, nil, nil)
	obs.processFile(deckPath)

	extracted := filepath.Join(cfg.Application.Storage.Output, "quarterly", "slide1_object1.png")
	if _, err := os.Stat(extracted); err != nil {
		t.Errorf("extracted payload missing: %v", err)
	}
	moved := filepath.Join(cfg.Application.Storage.Processed, "quarterly.pptx")
	if _, err := os.Stat(moved); err != nil {
		t.Errorf("deck not moved to processed: %v", err)
	}
	if _, err := os.Stat(deckPath); !os.IsNotExist(err) {
		t.Error("deck still in stage after processing")
	}
	if obs.IsProcessing() {
		t.Error("IsProcessing must report false after processFile returns")
	}
}

func TestReprocessAllMovesDecksBackAndRescans(t *testing.T) {
	cfg := testConfig(t)
	if err := os.MkdirAll(cfg.Application.Storage.Processed, 0755); err != nil {
		t.Fatal(err)
	}

	// A previously processed deck sits in the processed directory; no
	// stage directory exists yet.
	writeDeck(t, filepath.Join(cfg.Application.Storage.Processed, "archive.pptx"))

	obs := NewObserver(cfg, nil, nil)
	obs.ReprocessAll()

	// The deck went back to stage, was re-extracted, and ended up in
	// processed again.
	extracted := filepath.Join(cfg.Application.Storage.Output, "archive", "slide1_object1.png")
	if _, err := os.Stat(extracted); err != nil {
		t.Errorf("reprocessed payload missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Application.Storage.Processed, "archive.pptx")); err != nil {
		t.Errorf("deck not back in processed: %v", err)
	}
	entries, err := os.ReadDir(cfg.Application.Storage.Stage)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("stage still holds %d entries after reprocess", len(entries))
	}
	if obs.IsProcessing() {
		t.Error("IsProcessing must report false after ReprocessAll returns")
	}
}

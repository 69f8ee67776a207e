// Package pptx scans a PowerPoint package (the zip-based OOXML format)
// for embedded binary objects. It walks slides in document order, follows
// each slide's relationship records, and yields the raw bytes of every
// embedded-object target together with provenance.
package pptx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
)

const (
	presentationPart = "ppt/presentation.xml"
	presentationRels = "ppt/_rels/presentation.xml.rels"
	embeddingsDir    = "ppt/embeddings/"
	slidesBase       = "ppt/slides"
)

// oleMagic is the compound-document signature of the legacy binary .ppt
// format, which this scanner explicitly does not support.
var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// FormatError reports that the input is not a scannable presentation
// package. It is fatal: no payloads are produced.
type FormatError struct {
	Path   string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

func (e *FormatError) Unwrap() error { return e.Err }

// DanglingReferenceError marks a relationship whose target part is absent
// from the archive. It is attached to the affected payload only; the scan
// continues.
type DanglingReferenceError struct {
	RelID  string
	Target string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("relationship %s references missing part %s", e.RelID, e.Target)
}

// Payload is one discovered embedded object. When Err is non-nil the
// target could not be read and Data is empty; the caller must still
// account for the payload.
type Payload struct {
	SlideIndex int    // 1-based position in document order; 0 for orphans
	PartPath   string // container-internal path of the target
	RelID      string
	RelType    string
	Data       []byte
	Err        error
}

type relationship struct {
	id         string
	relType    string
	target     string
	targetMode string
}

// Scanner yields embedded payloads one at a time via Next. It is a single
// forward pass: once Next returns io.EOF the scanner is exhausted and the
// package must be reopened to scan again.
type Scanner struct {
	// IncludeOrphans adds a final pass over ppt/embeddings/ entries that
	// no slide relationship references. Set before the first Next call.
	IncludeOrphans bool

	zr     *zip.ReadCloser
	parts  map[string]*zip.File
	slides []string // slide part paths in document order

	slidePos int
	pending  []Payload
	pendPos  int

	visited map[string]bool
	orphans []string
	orphPos int
	orphSet bool
}

// Open validates that path is a zip-based presentation package and
// prepares a scanner over it. The archive handle stays open until Close.
func Open(pkgPath string) (*Scanner, error) {
	f, err := os.Open(pkgPath)
	if err != nil {
		return nil, &FormatError{Path: pkgPath, Reason: "cannot open input", Err: err}
	}
	head := make([]byte, 8)
	n, _ := io.ReadFull(f, head)
	f.Close()
	if n >= len(oleMagic) && bytes.Equal(head[:len(oleMagic)], oleMagic) {
		return nil, &FormatError{Path: pkgPath, Reason: "legacy binary presentation format is not supported, convert to pptx first"}
	}

	zr, err := zip.OpenReader(pkgPath)
	if err != nil {
		return nil, &FormatError{Path: pkgPath, Reason: "not a zip package", Err: err}
	}

	s := &Scanner{
		zr:      zr,
		parts:   make(map[string]*zip.File, len(zr.File)),
		visited: make(map[string]bool),
	}
	for _, zf := range zr.File {
		s.parts[zf.Name] = zf
	}

	if _, ok := s.parts[presentationPart]; !ok {
		zr.Close()
		return nil, &FormatError{Path: pkgPath, Reason: "zip package contains no presentation part"}
	}

	slides, err := s.slideOrder()
	if err != nil {
		zr.Close()
		return nil, &FormatError{Path: pkgPath, Reason: "cannot resolve slide order", Err: err}
	}
	s.slides = slides
	return s, nil
}

// Close releases the archive handle. Safe to call more than once.
func (s *Scanner) Close() error {
	if s.zr == nil {
		return nil
	}
	err := s.zr.Close()
	s.zr = nil
	return err
}

// Next returns the next embedded payload in canonical order: slides in
// document order, relationships within a slide in the order the
// relationship file lists them. It returns io.EOF when the scan is done.
func (s *Scanner) Next() (*Payload, error) {
	for {
		if s.pendPos < len(s.pending) {
			p := s.pending[s.pendPos]
			s.pendPos++
			return &p, nil
		}

		if s.slidePos < len(s.slides) {
			slidePart := s.slides[s.slidePos]
			s.slidePos++
			s.pending = s.loadSlide(slidePart, s.slidePos)
			s.pendPos = 0
			continue
		}

		if s.IncludeOrphans {
			if !s.orphSet {
				s.collectOrphans()
			}
			if s.orphPos < len(s.orphans) {
				part := s.orphans[s.orphPos]
				s.orphPos++
				p := Payload{SlideIndex: 0, PartPath: part}
				p.Data, p.Err = s.readPart(part)
				return &p, nil
			}
		}

		return nil, io.EOF
	}
}

// slideOrder reads the presentation part's sldIdLst and resolves each
// r:id through the presentation relationship file. The resulting order is
// document order, not zip storage order.
func (s *Scanner) slideOrder() ([]string, error) {
	rels, err := s.parseRels(presentationRels)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]relationship, len(rels))
	for _, r := range rels {
		byID[r.id] = r
	}

	zf := s.parts[presentationPart]
	rc, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var slides []string
	dec := xml.NewDecoder(rc)
	inList := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "sldIdLst":
				inList = true
			case "sldId":
				if !inList {
					continue
				}
				for _, a := range el.Attr {
					// sldId carries two id attributes: the numeric slide
					// id (no namespace) and the relationship id (r:id).
					if a.Name.Local == "id" && strings.HasSuffix(a.Name.Space, "relationships") {
						if rel, ok := byID[a.Value]; ok {
							slides = append(slides, resolveTarget("ppt", rel.target))
						}
					}
				}
			}
		case xml.EndElement:
			if el.Name.Local == "sldIdLst" {
				inList = false
			}
		}
	}
	return slides, nil
}

// loadSlide collects the slide's embedded-object relationships as
// payloads, in relationship-file order. A slide without a relationship
// file simply contributes nothing.
func (s *Scanner) loadSlide(slidePart string, slideIndex int) []Payload {
	rels, err := s.parseRels(relsPathFor(slidePart))
	if err != nil {
		return nil
	}

	var out []Payload
	for _, r := range rels {
		if !isEmbeddingRel(r.relType) {
			continue
		}
		if strings.EqualFold(r.targetMode, "External") {
			continue
		}
		target := resolveTarget(slidesBase, r.target)
		s.visited[target] = true
		p := Payload{
			SlideIndex: slideIndex,
			PartPath:   target,
			RelID:      r.id,
			RelType:    r.relType,
		}
		p.Data, p.Err = s.readPart(target)
		out = append(out, p)
	}
	return out
}

func (s *Scanner) readPart(target string) ([]byte, error) {
	zf, ok := s.parts[target]
	if !ok {
		return nil, &DanglingReferenceError{Target: target}
	}
	rc, err := zf.Open()
	if err != nil {
		return nil, fmt.Errorf("open part %s: %w", target, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read part %s: %w", target, err)
	}
	return data, nil
}

// parseRels decodes an OPC relationship file into its records, preserving
// file order.
func (s *Scanner) parseRels(relPart string) ([]relationship, error) {
	zf, ok := s.parts[relPart]
	if !ok {
		return nil, fmt.Errorf("missing %s", relPart)
	}
	rc, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var rels []relationship
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if el, ok := tok.(xml.StartElement); ok && el.Name.Local == "Relationship" {
			var r relationship
			for _, a := range el.Attr {
				switch a.Name.Local {
				case "Id":
					r.id = a.Value
				case "Type":
					r.relType = a.Value
				case "Target":
					r.target = a.Value
				case "TargetMode":
					r.targetMode = a.Value
				}
			}
			rels = append(rels, r)
		}
	}
	return rels, nil
}

// collectOrphans finds ppt/embeddings/ entries no relationship pointed
// at. Sorted by name so the pass is deterministic.
func (s *Scanner) collectOrphans() {
	s.orphSet = true
	for name := range s.parts {
		if strings.HasPrefix(name, embeddingsDir) && !strings.HasSuffix(name, "/") && !s.visited[name] {
			s.orphans = append(s.orphans, name)
		}
	}
	sort.Strings(s.orphans)
}

// isEmbeddingRel reports whether a relationship type marks an embedded
// object (OLE object or embedded OOXML package), as opposed to images,
// hyperlinks, notes and the rest.
func isEmbeddingRel(relType string) bool {
	return strings.HasSuffix(relType, "/oleObject") || strings.HasSuffix(relType, "/package")
}

// relsPathFor maps a part path to its relationship file, e.g.
// ppt/slides/slide1.xml -> ppt/slides/_rels/slide1.xml.rels.
func relsPathFor(part string) string {
	dir, base := path.Split(part)
	return dir + "_rels/" + base + ".rels"
}

// resolveTarget resolves a relationship target against the directory of
// the part that declared it. Targets are zip paths, so the slash-only
// path package applies, not filepath.
func resolveTarget(base, target string) string {
	if strings.HasPrefix(target, "/") {
		return path.Clean(strings.TrimPrefix(target, "/"))
	}
	return path.Clean(path.Join(base, target))
}

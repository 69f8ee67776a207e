// Package extract drives a full extraction run: scan a presentation
// package, classify every embedded payload, and write each one to the
// output directory under a resolved, collision-free name.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gnemet/deckextract/internal/filetype"
	"github.com/gnemet/deckextract/internal/ole"
	"github.com/gnemet/deckextract/internal/pptx"
)

// ErrorKind classifies a failure record.
type ErrorKind string

const (
	KindDanglingReference ErrorKind = "dangling_reference"
	KindIO                ErrorKind = "io"
	KindFormat            ErrorKind = "format"
)

// Success records one payload written to disk.
type Success struct {
	SlideIndex   int
	PartPath     string
	DeclaredName string // original filename recovered from a packager wrapper, if any
	FileName     string // final name in the output directory
	OutputPath   string
	Type         filetype.TypeInfo
	Size         int64
	Unwrapped    bool // payload was a packager object and the inner file was written
}

// Failure records one payload that could not be written.
type Failure struct {
	SlideIndex   int
	PartPath     string
	DeclaredName string
	Kind         ErrorKind
	Err          error
}

// Result is the outcome of a run. Found always equals
// len(Succeeded)+len(Failed): every discovered payload is accounted for
// exactly once.
type Result struct {
	InputPath  string
	OutputDir  string
	Found      int
	Succeeded  []Success
	Failed     []Failure
	TotalBytes int64
	Elapsed    time.Duration
}

// Hooks are optional per-event callbacks. Any nil field is skipped, so
// callers subscribe only to what they care about.
type Hooks struct {
	PayloadFound   func(p *pptx.Payload)
	PayloadWritten func(rec Success)
	PayloadFailed  func(rec Failure)
}

// Options tunes a run beyond the input/output pair.
type Options struct {
	// IncludeOrphans also extracts ppt/embeddings/ entries that no slide
	// references.
	IncludeOrphans bool
	Hooks          Hooks
}

var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// Run extracts every embedded object from the presentation at inputPath
// into outputDir with default options.
func Run(inputPath, outputDir string) (*Result, error) {
	return RunWithOptions(inputPath, outputDir, Options{})
}

// RunWithOptions is Run with orphan handling and hooks. It fails fast
// when the input is not a scannable package or the output directory
// cannot be created; after that, per-payload problems become failure
// records and the run continues.
func RunWithOptions(inputPath, outputDir string, opts Options) (*Result, error) {
	start := time.Now()

	// Validate the input before touching the output path: a fatal
	// format error must leave no trace on disk.
	sc, err := pptx.Open(inputPath)
	if err != nil {
		return nil, err
	}
	defer sc.Close()
	sc.IncludeOrphans = opts.IncludeOrphans

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", outputDir, err)
	}

	res := &Result{InputPath: inputPath, OutputDir: outputDir}
	used := make(map[string]bool)
	perSlide := make(map[int]int) // object ordinal within each slide

	for {
		p, err := sc.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		res.Found++
		perSlide[p.SlideIndex]++
		if opts.Hooks.PayloadFound != nil {
			opts.Hooks.PayloadFound(p)
		}

		if p.Err != nil {
			res.fail(opts.Hooks, Failure{
				SlideIndex: p.SlideIndex,
				PartPath:   p.PartPath,
				Kind:       kindOf(p.Err),
				Err:        p.Err,
			})
			continue
		}

		content, declared, unwrapped := unwrap(p.Data)
		info := filetype.Detect(content, firstNonEmpty(declared, path.Base(p.PartPath)))

		name := resolveName(declared, info, p.SlideIndex, perSlide[p.SlideIndex])
		name = uniqueName(outputDir, name, used)
		used[strings.ToLower(name)] = true

		outPath := filepath.Join(outputDir, name)
		if err := os.WriteFile(outPath, content, 0644); err != nil {
			res.fail(opts.Hooks, Failure{
				SlideIndex:   p.SlideIndex,
				PartPath:     p.PartPath,
				DeclaredName: declared,
				Kind:         KindIO,
				Err:          err,
			})
			continue
		}

		rec := Success{
			SlideIndex:   p.SlideIndex,
			PartPath:     p.PartPath,
			DeclaredName: declared,
			FileName:     name,
			OutputPath:   outPath,
			Type:         info,
			Size:         int64(len(content)),
			Unwrapped:    unwrapped,
		}
		res.Succeeded = append(res.Succeeded, rec)
		res.TotalBytes += rec.Size
		if opts.Hooks.PayloadWritten != nil {
			opts.Hooks.PayloadWritten(rec)
		}
	}

	res.Elapsed = time.Since(start)
	return res, nil
}

func (r *Result) fail(h Hooks, f Failure) {
	r.Failed = append(r.Failed, f)
	if h.PayloadFailed != nil {
		h.PayloadFailed(f)
	}
}

func kindOf(err error) ErrorKind {
	var dangling *pptx.DanglingReferenceError
	if errors.As(err, &dangling) {
		return KindDanglingReference
	}
	return KindIO
}

// unwrap recovers the inner file from a packager compound document. For
// anything else it returns the payload untouched.
func unwrap(data []byte) (content []byte, declared string, unwrapped bool) {
	if bytes.HasPrefix(data, oleMagic) {
		if name, inner, ok := ole.NativePackage(data); ok {
			return inner, name, true
		}
	}
	return data, "", false
}

// resolveName picks the output filename: the declared original name when
// one was recovered (extension appended if it has none), otherwise a
// positional slideN_objectM name with the detected extension.
func resolveName(declared string, info filetype.TypeInfo, slideIndex, ordinal int) string {
	if declared != "" {
		name := sanitize(declared)
		if name != "" {
			if !strings.Contains(name, ".") {
				name += info.Ext
			}
			return name
		}
	}
	return fmt.Sprintf("slide%d_object%d%s", slideIndex, ordinal, info.Ext)
}

// uniqueName appends _2, _3, ... to the stem until the name collides with
// neither a file already written this run nor one already on disk.
// Existing files are never overwritten.
func uniqueName(dir, name string, used map[string]bool) string {
	taken := func(n string) bool {
		if used[strings.ToLower(n)] {
			return true
		}
		_, err := os.Stat(filepath.Join(dir, n))
		return err == nil
	}
	if !taken(name) {
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if !taken(candidate) {
			return candidate
		}
	}
}

// sanitize strips directory components and characters that do not belong
// in a bare filename.
func sanitize(name string) string {
	if i := strings.LastIndexAny(name, `\/`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	return strings.TrimSpace(name)
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

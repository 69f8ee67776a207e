// Package report renders extraction results for people: a plain-text
// summary, a Markdown variant, and HTML produced from the Markdown.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/russross/blackfriday/v2"

	"github.com/gnemet/deckextract/internal/extract"
	"github.com/gnemet/deckextract/internal/filetype"
)

const rule = "============================================================"

// Text renders the run as a plain-text report: summary counts, the
// extracted files grouped by category, and any failures. A run that found
// nothing says so explicitly instead of printing empty sections.
func Text(res *extract.Result) string {
	var b strings.Builder
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "EMBEDDED OBJECT EXTRACTION REPORT")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Input:      %s\n", res.InputPath)
	fmt.Fprintf(&b, "Output dir: %s\n", res.OutputDir)
	fmt.Fprintf(&b, "Found:      %d\n", res.Found)
	fmt.Fprintf(&b, "Extracted:  %d\n", len(res.Succeeded))
	fmt.Fprintf(&b, "Failed:     %d\n", len(res.Failed))
	fmt.Fprintf(&b, "Total size: %s\n", filetype.FormatSize(res.TotalBytes))
	fmt.Fprintf(&b, "Elapsed:    %s\n", res.Elapsed.Round(time.Millisecond))

	if res.Found == 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "No embedded objects found in this presentation.")
		return b.String()
	}

	for _, cat := range categories(res.Succeeded) {
		fmt.Fprintln(&b)
		fmt.Fprintf(&b, "--- %s ---\n", strings.ToUpper(cat))
		for _, rec := range res.Succeeded {
			if filetype.Category(rec.Type.Ext) != cat {
				continue
			}
			fmt.Fprintf(&b, "  %-40s %10s  %s (slide %d)\n",
				rec.FileName, filetype.FormatSize(rec.Size), rec.Type.Label, rec.SlideIndex)
		}
	}

	if len(res.Failed) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "--- FAILURES ---")
		for _, f := range res.Failed {
			fmt.Fprintf(&b, "  slide %d, %s [%s]: %v\n", f.SlideIndex, f.PartPath, f.Kind, f.Err)
		}
	}
	return b.String()
}

// Markdown renders the same content as Text in Markdown.
func Markdown(res *extract.Result) string {
	var b strings.Builder
	fmt.Fprintln(&b, "# Embedded Object Extraction Report")
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "- **Input:** %s\n", res.InputPath)
	fmt.Fprintf(&b, "- **Output dir:** %s\n", res.OutputDir)
	fmt.Fprintf(&b, "- **Found:** %d, **extracted:** %d, **failed:** %d\n",
		res.Found, len(res.Succeeded), len(res.Failed))
	fmt.Fprintf(&b, "- **Total size:** %s in %s\n",
		filetype.FormatSize(res.TotalBytes), res.Elapsed.Round(time.Millisecond))

	if res.Found == 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "No embedded objects found in this presentation.")
		return b.String()
	}

	for _, cat := range categories(res.Succeeded) {
		fmt.Fprintln(&b)
		fmt.Fprintf(&b, "## %s\n", titleCase(cat))
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "| File | Size | Type | Slide |")
		fmt.Fprintln(&b, "|---|---|---|---|")
		for _, rec := range res.Succeeded {
			if filetype.Category(rec.Type.Ext) != cat {
				continue
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %d |\n",
				rec.FileName, filetype.FormatSize(rec.Size), rec.Type.Label, rec.SlideIndex)
		}
	}

	if len(res.Failed) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "## Failures")
		fmt.Fprintln(&b)
		for _, f := range res.Failed {
			fmt.Fprintf(&b, "- slide %d, `%s` (%s): %v\n", f.SlideIndex, f.PartPath, f.Kind, f.Err)
		}
	}
	return b.String()
}

// HTML renders the Markdown report to HTML.
func HTML(res *extract.Result) string {
	return string(blackfriday.Run([]byte(Markdown(res))))
}

// FatalText renders a run that never produced a result: the input could
// not be scanned at all.
func FatalText(inputPath string, err error) string {
	var b strings.Builder
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "EMBEDDED OBJECT EXTRACTION REPORT")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Input: %s\n", inputPath)
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "FATAL: %v\n", err)
	fmt.Fprintln(&b, "No files were extracted.")
	return b.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// categories lists the categories present among the successes, in a fixed
// display order.
func categories(recs []extract.Success) []string {
	order := map[string]int{
		"document": 0, "spreadsheet": 1, "presentation": 2, "image": 3,
		"audio": 4, "video": 5, "archive": 6, "executable": 7, "other": 8,
	}
	seen := make(map[string]bool)
	var cats []string
	for _, rec := range recs {
		cat := filetype.Category(rec.Type.Ext)
		if !seen[cat] {
			seen[cat] = true
			cats = append(cats, cat)
		}
	}
	sort.Slice(cats, func(i, j int) bool { return order[cats[i]] < order[cats[j]] })
	return cats
}

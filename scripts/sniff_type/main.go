// Debug tool: classify arbitrary files with the same detector the
// extractor uses.
//
// Usage: go run ./scripts/sniff_type file1 [file2 ...]
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/gnemet/deckextract/internal/filetype"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: %s <file> [file ...]", os.Args[0])
	}

	for _, path := range os.Args[1:] {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("%s: %v", path, err)
			continue
		}
		info := filetype.Detect(data, filepath.Base(path))
		fmt.Printf("%s: %s (%s, %s, %s)\n",
			path, info.Label, info.Ext, info.MIME, filetype.FormatSize(int64(len(data))))
	}
}

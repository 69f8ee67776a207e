// Debug tool: print every embedded payload a presentation references,
// without writing anything to disk.
//
// Usage: go run ./scripts/dump_rels deck.pptx
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/gnemet/deckextract/internal/pptx"
)

func main() {
	if len(os.Args) != 2 {
		log.Fatalf("usage: %s <presentation.pptx>", os.Args[0])
	}

	sc, err := pptx.Open(os.Args[1])
	if err != nil {
		log.Fatal(err)
	}
	defer sc.Close()
	sc.IncludeOrphans = true

	fmt.Println("Slide | RelID | Part | Size | Status")
	for {
		p, err := sc.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Fatal(err)
		}
		status := "ok"
		if p.Err != nil {
			status = p.Err.Error()
		}
		fmt.Printf("%5d | %-6s | %s | %d | %s\n", p.SlideIndex, p.RelID, p.PartPath, len(p.Data), status)
	}
}

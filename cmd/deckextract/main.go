package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gnemet/deckextract/internal/config"
	"github.com/gnemet/deckextract/internal/database"
	"github.com/gnemet/deckextract/internal/extract"
	"github.com/gnemet/deckextract/internal/filetype"
	"github.com/gnemet/deckextract/internal/observer"
	"github.com/gnemet/deckextract/internal/report"
)

func main() {
	var (
		outDir    = flag.String("out", "", "output directory (default: <deck name> next to the input)")
		format    = flag.String("format", "", "report format: text, markdown or html")
		orphans   = flag.Bool("orphans", false, "also extract unreferenced ppt/embeddings entries")
		watch     = flag.Bool("watch", false, "run as a service watching the stage directory")
		reprocess = flag.Bool("reprocess", false, "with -watch: clear persisted runs and reprocess every deck")
		history   = flag.Bool("history", false, "list persisted extraction runs (optionally for one deck name) and exit")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <presentation.pptx>\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *format != "" {
		cfg.Application.ReportFormat = *format
	}
	if *orphans {
		cfg.Application.Orphans = true
	}

	if *history {
		runHistory(cfg, flag.Arg(0))
		return
	}

	if *watch {
		runWatch(cfg, *reprocess)
		return
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	inputPath := flag.Arg(0)

	output := *outDir
	if output == "" {
		base := filepath.Base(inputPath)
		output = strings.TrimSuffix(base, filepath.Ext(base))
	}

	res, err := extract.RunWithOptions(inputPath, output, extract.Options{
		IncludeOrphans: cfg.Application.Orphans,
	})
	if err != nil {
		fmt.Fprint(os.Stderr, report.FatalText(inputPath, err))
		os.Exit(1)
	}

	switch cfg.Application.ReportFormat {
	case "markdown":
		fmt.Print(report.Markdown(res))
	case "html":
		fmt.Print(report.HTML(res))
	default:
		fmt.Print(report.Text(res))
	}

	if len(res.Failed) > 0 {
		os.Exit(1)
	}
}

func connect(cfg *config.Config) *sql.DB {
	db, err := database.NewConnection(cfg.Database.GetConnectStr())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.EnsureSchema(db); err != nil {
		log.Fatalf("database: %v", err)
	}
	return db
}

// runHistory prints the persisted runs, newest first, with their
// per-payload records.
func runHistory(cfg *config.Config, deckName string) {
	if !cfg.Database.IsConfigured() {
		log.Fatal("no database configured, nothing to list")
	}
	db := connect(cfg)
	defer db.Close()

	var runs []database.ExtractionRun
	var err error
	if deckName != "" {
		runs, err = database.GetRunsByDeck(db, deckName)
	} else {
		runs, err = database.GetAllRuns(db)
	}
	if err != nil {
		log.Fatalf("list runs: %v", err)
	}

	for _, r := range runs {
		fmt.Printf("#%d  %s  %s  found=%d extracted=%d failed=%d  %s in %s\n",
			r.ID, r.CreatedAt.Format(time.RFC3339), r.DeckName,
			r.Found, r.Succeeded, r.Failed,
			filetype.FormatSize(r.TotalBytes), r.Elapsed)

		recs, err := database.GetRecordsByRun(db, r.ID)
		if err != nil {
			log.Fatalf("list records for run %d: %v", r.ID, err)
		}
		for _, rec := range recs {
			if rec.Status == "extracted" {
				fmt.Printf("    slide %d  %s -> %s (%s, %s)\n",
					rec.SlideNum, rec.PartPath, rec.FileName, rec.TypeLabel, filetype.FormatSize(rec.SizeBytes))
			} else {
				fmt.Printf("    slide %d  %s FAILED [%s]: %s\n",
					rec.SlideNum, rec.PartPath, rec.ErrorKind, rec.ErrorText)
			}
		}
	}

	total, err := database.GetTotalExtractedCount(db)
	if err != nil {
		log.Fatalf("count records: %v", err)
	}
	fmt.Printf("%d runs, %d payloads extracted in total\n", len(runs), total)
}

func runWatch(cfg *config.Config, reprocess bool) {
	var db *sql.DB
	if cfg.Database.IsConfigured() {
		db = connect(cfg)
		defer db.Close()
	} else {
		log.Println("No database configured, runs will not be persisted")
	}

	logChan := make(chan string, 100)
	go func() {
		for range logChan {
			// drained so the observer never blocks; messages already go
			// through the standard logger
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs := observer.NewObserver(cfg, db, logChan)
	if reprocess {
		obs.ReprocessAll()
	}
	if err := obs.Start(ctx); err != nil {
		log.Fatalf("observer: %v", err)
	}

	// Let an in-flight extraction finish before the process exits.
	for obs.IsProcessing() {
		time.Sleep(200 * time.Millisecond)
	}
}

package observer

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gnemet/deckextract/internal/config"
	"github.com/gnemet/deckextract/internal/database"
	"github.com/gnemet/deckextract/internal/extract"
)

// Observer watches the stage directory for incoming presentations,
// extracts their embedded objects into a per-deck output directory,
// persists the run when a database is attached, and moves the deck to
// the processed directory.
type Observer struct {
	cfg         *config.Config
	db          *sql.DB // nil disables persistence
	activeTasks int
	mu          sync.Mutex
	LogChan     chan string
}

func NewObserver(cfg *config.Config, db *sql.DB, logChan chan string) *Observer {
	return &Observer{
		cfg:     cfg,
		db:      db,
		LogChan: logChan,
	}
}

func (o *Observer) log(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	log.Println(msg)
	if o.LogChan != nil {
		select {
		case o.LogChan <- msg:
		default:
			// fast non-blocking drop if buffer full
		}
	}
}

func (o *Observer) incrementTask() {
	o.mu.Lock()
	o.activeTasks++
	o.mu.Unlock()
}

func (o *Observer) decrementTask() {
	o.mu.Lock()
	o.activeTasks--
	o.mu.Unlock()
}

func (o *Observer) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	stageDir := o.cfg.Application.Storage.Stage
	if stageDir == "" {
		return fmt.Errorf("stage storage directory not configured")
	}

	if err := os.MkdirAll(stageDir, 0755); err != nil {
		return fmt.Errorf("failed to create stage directory: %v", err)
	}

	processedDir := o.cfg.Application.Storage.Processed
	if processedDir != "" {
		if err := os.MkdirAll(processedDir, 0755); err != nil {
			o.log("Failed to create processed directory: %v", err)
		}
	}

	err = watcher.Add(stageDir)
	if err != nil {
		return err
	}

	o.log("Background observer started, watching: %s", stageDir)

	// Initial scan
	o.scanDirectory(stageDir)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if strings.HasSuffix(strings.ToLower(event.Name), ".pptx") {
					o.log("Detected change in: %s", event.Name)

					// Debounce/delay for file transfer to complete
					time.Sleep(2 * time.Second)
					o.processFile(event.Name)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			o.log("Watcher error: %v", err)

		case <-ctx.Done():
			return nil
		}
	}
}

func (o *Observer) scanDirectory(dir string) {
	files, err := os.ReadDir(dir)
	if err != nil {
		o.log("Failed to scan directory: %v", err)
		return
	}

	for _, f := range files {
		if !f.IsDir() && strings.HasSuffix(strings.ToLower(f.Name()), ".pptx") {
			fullPath := filepath.Join(dir, f.Name())
			o.processFile(fullPath)
		}
	}
}

func (o *Observer) processFile(path string) {
	o.incrementTask()
	defer o.decrementTask()

	filename := filepath.Base(path)
	deckName := strings.TrimSuffix(filename, filepath.Ext(filename))
	o.log("Processing deck: %s", filename)

	outputDir := filepath.Join(o.cfg.Application.Storage.Output, deckName)

	opts := extract.Options{
		IncludeOrphans: o.cfg.Application.Orphans,
		Hooks: extract.Hooks{
			PayloadWritten: func(rec extract.Success) {
				o.log("Extracted %s (%s, %d bytes) from slide %d of %s",
					rec.FileName, rec.Type.Label, rec.Size, rec.SlideIndex, filename)
			},
			PayloadFailed: func(rec extract.Failure) {
				o.log("Failed payload on slide %d of %s (%s): %v",
					rec.SlideIndex, filename, rec.Kind, rec.Err)
			},
		},
	}

	res, err := extract.RunWithOptions(path, outputDir, opts)
	if err != nil {
		o.log("Extraction failed for %s: %v", filename, err)
		return
	}

	o.log("Finished %s: %d found, %d extracted, %d failed",
		filename, res.Found, len(res.Succeeded), len(res.Failed))

	o.persistRun(deckName, res)
	o.finalizeFile(path, filename)
}

// persistRun stores the run and its records. A nil database means the
// observer runs report-only.
func (o *Observer) persistRun(deckName string, res *extract.Result) {
	if o.db == nil {
		return
	}

	runID, err := database.SaveRun(o.db, &database.ExtractionRun{
		DeckName:   deckName,
		InputPath:  res.InputPath,
		OutputDir:  res.OutputDir,
		Found:      res.Found,
		Succeeded:  len(res.Succeeded),
		Failed:     len(res.Failed),
		TotalBytes: res.TotalBytes,
		Elapsed:    res.Elapsed,
	})
	if err != nil {
		o.log("Failed to save run to DB: %v", err)
		return
	}

	for _, rec := range res.Succeeded {
		err := database.SaveRecord(o.db, &database.ExtractionRecord{
			RunID:        runID,
			SlideNum:     rec.SlideIndex,
			PartPath:     rec.PartPath,
			FileName:     rec.FileName,
			DeclaredName: rec.DeclaredName,
			TypeLabel:    rec.Type.Label,
			MIME:         rec.Type.MIME,
			SizeBytes:    rec.Size,
			Status:       "extracted",
		})
		if err != nil {
			o.log("Failed to save record %s: %v", rec.FileName, err)
		}
	}
	for _, f := range res.Failed {
		err := database.SaveRecord(o.db, &database.ExtractionRecord{
			RunID:     runID,
			SlideNum:  f.SlideIndex,
			PartPath:  f.PartPath,
			Status:    "failed",
			ErrorKind: string(f.Kind),
			ErrorText: f.Err.Error(),
		})
		if err != nil {
			o.log("Failed to save failure record for %s: %v", f.PartPath, err)
		}
	}
}

func (o *Observer) finalizeFile(path, filename string) {
	if o.cfg.Application.Storage.Processed == "" {
		return
	}

	newPath := filepath.Join(o.cfg.Application.Storage.Processed, filename)

	// If path is already newPath, we are done
	if path == newPath {
		return
	}

	if err := os.Rename(path, newPath); err != nil {
		o.log("Failed to move %s to processed folder: %v", filename, err)
	} else {
		o.log("Moved %s to %s", filename, newPath)
	}
}

// ReprocessAll clears persisted runs, moves processed decks back to the
// stage directory and rescans it.
func (o *Observer) ReprocessAll() {
	o.incrementTask()
	defer o.decrementTask()

	o.log("STARTING FULL REPROCESS: Resetting state...")

	if o.db != nil {
		if err := database.ClearDatabase(o.db); err != nil {
			o.log("CRITICAL: Failed to clear database during reprocess: %v", err)
			return
		}
	}

	stageDir := o.cfg.Application.Storage.Stage
	processedDir := o.cfg.Application.Storage.Processed

	if stageDir != "" {
		if err := os.MkdirAll(stageDir, 0755); err != nil {
			o.log("Failed to create stage directory: %v", err)
			return
		}
	}

	if processedDir != "" && stageDir != "" {
		files, err := os.ReadDir(processedDir)
		if err == nil {
			for _, file := range files {
				if !file.IsDir() && strings.HasSuffix(strings.ToLower(file.Name()), ".pptx") {
					oldPath := filepath.Join(processedDir, file.Name())
					newPath := filepath.Join(stageDir, file.Name())
					if err := os.Rename(oldPath, newPath); err != nil {
						o.log("Failed to move %s back to stage: %v", file.Name(), err)
					} else {
						o.log("Moved %s back to stage for reprocessing", file.Name())
					}
				}
			}
		}
	}

	o.log("Retriggering full scan of %s", stageDir)
	o.scanDirectory(stageDir)
}

func (o *Observer) IsProcessing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.activeTasks > 0
}

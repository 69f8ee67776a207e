package database

import (
	"database/sql"
	"time"
)

type ExtractionRun struct {
	ID         int           `json:"id"`
	DeckName   string        `json:"deck_name"`
	InputPath  string        `json:"input_path"`
	OutputDir  string        `json:"output_dir"`
	Found      int           `json:"found"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	TotalBytes int64         `json:"total_bytes"`
	Elapsed    time.Duration `json:"elapsed"`
	CreatedAt  time.Time     `json:"created_at"`
}

type ExtractionRecord struct {
	ID           int       `json:"id"`
	RunID        int       `json:"run_id"`
	SlideNum     int       `json:"slide_number"`
	PartPath     string    `json:"part_path"`
	FileName     string    `json:"file_name"`
	DeclaredName string    `json:"declared_name"`
	TypeLabel    string    `json:"type_label"`
	MIME         string    `json:"mime"`
	SizeBytes    int64     `json:"size_bytes"`
	Status       string    `json:"status"` // extracted or failed
	ErrorKind    string    `json:"error_kind"`
	ErrorText    string    `json:"error_text"`
	CreatedAt    time.Time `json:"created_at"`
}

func SaveRun(db *sql.DB, r *ExtractionRun) (int, error) {
	query := `
		INSERT INTO extraction_runs (deck_name, input_path, output_dir, found, succeeded, failed, total_bytes, elapsed_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	var id int
	err := db.QueryRow(query, r.DeckName, r.InputPath, r.OutputDir, r.Found, r.Succeeded, r.Failed, r.TotalBytes, r.Elapsed.Milliseconds()).Scan(&id)
	return id, err
}

func SaveRecord(db *sql.DB, rec *ExtractionRecord) error {
	query := `
		INSERT INTO extraction_records (run_id, slide_number, part_path, file_name, declared_name, type_label, mime, size_bytes, status, error_kind, error_text)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := db.Exec(query, rec.RunID, rec.SlideNum, rec.PartPath, rec.FileName, rec.DeclaredName, rec.TypeLabel, rec.MIME, rec.SizeBytes, rec.Status, rec.ErrorKind, rec.ErrorText)
	return err
}

func GetRunsByDeck(db *sql.DB, deckName string) ([]ExtractionRun, error) {
	rows, err := db.Query("SELECT id, deck_name, input_path, output_dir, found, succeeded, failed, total_bytes, elapsed_ms, created_at FROM extraction_runs WHERE deck_name = $1 ORDER BY created_at DESC", deckName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []ExtractionRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, nil
}

func GetAllRuns(db *sql.DB) ([]ExtractionRun, error) {
	rows, err := db.Query("SELECT id, deck_name, input_path, output_dir, found, succeeded, failed, total_bytes, elapsed_ms, created_at FROM extraction_runs ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []ExtractionRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, nil
}

func scanRun(rows *sql.Rows) (ExtractionRun, error) {
	var r ExtractionRun
	var elapsedMs int64
	err := rows.Scan(&r.ID, &r.DeckName, &r.InputPath, &r.OutputDir, &r.Found, &r.Succeeded, &r.Failed, &r.TotalBytes, &elapsedMs, &r.CreatedAt)
	r.Elapsed = time.Duration(elapsedMs) * time.Millisecond
	return r, err
}

func GetRecordsByRun(db *sql.DB, runID int) ([]ExtractionRecord, error) {
	rows, err := db.Query("SELECT id, run_id, slide_number, part_path, file_name, declared_name, type_label, mime, size_bytes, status, error_kind, error_text, created_at FROM extraction_records WHERE run_id = $1 ORDER BY id", runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []ExtractionRecord
	for rows.Next() {
		var rec ExtractionRecord
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.SlideNum, &rec.PartPath, &rec.FileName, &rec.DeclaredName, &rec.TypeLabel, &rec.MIME, &rec.SizeBytes, &rec.Status, &rec.ErrorKind, &rec.ErrorText, &rec.CreatedAt); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func GetTotalExtractedCount(db *sql.DB) (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM extraction_records WHERE status = 'extracted'").Scan(&count)
	return count, err
}

func ClearDatabase(db *sql.DB) error {
	_, err := db.Exec("DELETE FROM extraction_runs")
	return err
}

package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"quotedesk/internal"
)

type DB struct {
	conn *sql.DB
}

type Run struct {
	TraceID   string             `json:"trace_id"`
	SessionID string             `json:"session_id"`
	FileID    string             `json:"file_id"`
	Step      string             `json:"step"`
	Timings   map[string]float64 `json:"timings"`
	Counts    map[string]int     `json:"counts"`
	CreatedAt string             `json:"created_at"`
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS files (
  sessionId TEXT NOT NULL,
  fileId TEXT NOT NULL,
  originalName TEXT NOT NULL,
  storedPath TEXT NOT NULL,
  kind TEXT NOT NULL,
  pageCount INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'uploaded',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY(sessionId, fileId)
);
CREATE INDEX IF NOT EXISTS idx_files_session ON files(sessionId);

CREATE TABLE IF NOT EXISTS stages (
  sessionId TEXT NOT NULL,
  fileId TEXT NOT NULL,
  stage TEXT NOT NULL,
  valueJson TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY(sessionId, fileId, stage)
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  sessionId TEXT NOT NULL,
  fileId TEXT NOT NULL,
  step TEXT NOT NULL,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_runs_file ON runs(sessionId, fileId);

CREATE TABLE IF NOT EXISTS mails (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT NOT NULL DEFAULT '',
  sender TEXT NOT NULL DEFAULT '',
  receivedAt TEXT NOT NULL DEFAULT '',
  hash TEXT NOT NULL,
  rawRef TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  sessionId TEXT NOT NULL DEFAULT '',
  fileId TEXT NOT NULL DEFAULT '',
  error TEXT NOT NULL DEFAULT '',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);
CREATE INDEX IF NOT EXISTS idx_mails_status ON mails(status);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) UpsertFile(f internal.FileRecord) (internal.FileRecord, error) {
	if f.Status == "" {
		f.Status = internal.StatusUploaded
	}
	_, err := d.conn.Exec(`
INSERT INTO files (sessionId, fileId, originalName, storedPath, kind, pageCount, status)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(sessionId, fileId) DO UPDATE SET
  originalName=excluded.originalName,
  storedPath=excluded.storedPath,
  kind=excluded.kind,
  pageCount=excluded.pageCount,
  status=excluded.status,
  updatedAt=CURRENT_TIMESTAMP
`, f.SessionID, f.FileID, f.OriginalName, f.StoredPath, string(f.Kind), f.PageCount, string(f.Status))
	if err != nil {
		return internal.FileRecord{}, err
	}

	row, err := d.GetFile(f.SessionID, f.FileID)
	if err != nil {
		return internal.FileRecord{}, err
	}
	if row == nil {
		return internal.FileRecord{}, errors.New("failed to upsert file")
	}
	return *row, nil
}

func (d *DB) GetFile(sessionID, fileID string) (*internal.FileRecord, error) {
	var row internal.FileRecord
	err := d.conn.QueryRow(`
SELECT sessionId, fileId, originalName, storedPath, kind, pageCount, status, createdAt, updatedAt
FROM files WHERE sessionId = ? AND fileId = ?
`, sessionID, fileID).Scan(
		&row.SessionID, &row.FileID, &row.OriginalName, &row.StoredPath, &row.Kind, &row.PageCount, &row.Status, &row.CreatedAt, &row.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// MustFile is GetFile with a missing row reported as internal.ErrFileNotFound.
func (d *DB) MustFile(sessionID, fileID string) (internal.FileRecord, error) {
	row, err := d.GetFile(sessionID, fileID)
	if err != nil {
		return internal.FileRecord{}, err
	}
	if row == nil {
		return internal.FileRecord{}, fmt.Errorf("%w: session=%s file=%s", internal.ErrFileNotFound, sessionID, fileID)
	}
	return *row, nil
}

func (d *DB) ListFiles(sessionID string) ([]internal.FileRecord, error) {
	rows, err := d.conn.Query(`
SELECT sessionId, fileId, originalName, storedPath, kind, pageCount, status, createdAt, updatedAt
FROM files WHERE sessionId = ? ORDER BY createdAt ASC, fileId ASC
`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.FileRecord
	for rows.Next() {
		var row internal.FileRecord
		if err := rows.Scan(&row.SessionID, &row.FileID, &row.OriginalName, &row.StoredPath, &row.Kind, &row.PageCount, &row.Status, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateFileStatus(sessionID, fileID string, status internal.FileStatus) error {
	res, err := d.conn.Exec(`UPDATE files SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE sessionId = ? AND fileId = ?`, string(status), sessionID, fileID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: session=%s file=%s", internal.ErrFileNotFound, sessionID, fileID)
	}
	return nil
}

// PutStage stores value as the JSON result of stage, replacing any earlier one.
func (d *DB) PutStage(sessionID, fileID string, stage internal.Stage, value any) error {
	blob, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode stage %s: %w", stage, err)
	}
	_, err = d.conn.Exec(`
INSERT INTO stages (sessionId, fileId, stage, valueJson) VALUES (?, ?, ?, ?)
ON CONFLICT(sessionId, fileId, stage) DO UPDATE SET valueJson = excluded.valueJson, updatedAt = CURRENT_TIMESTAMP
`, sessionID, fileID, string(stage), string(blob))
	return err
}

// GetStage decodes the stored stage into dst and reports whether one existed.
func (d *DB) GetStage(sessionID, fileID string, stage internal.Stage, dst any) (bool, error) {
	var blob string
	err := d.conn.QueryRow(`SELECT valueJson FROM stages WHERE sessionId = ? AND fileId = ? AND stage = ?`, sessionID, fileID, string(stage)).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(blob), dst); err != nil {
		return false, fmt.Errorf("decode stage %s: %w", stage, err)
	}
	return true, nil
}

// DeleteStages drops the named stages of one file. Missing stages are ignored.
func (d *DB) DeleteStages(sessionID, fileID string, stages ...internal.Stage) error {
	for _, stage := range stages {
		if _, err := d.conn.Exec(`DELETE FROM stages WHERE sessionId = ? AND fileId = ? AND stage = ?`, sessionID, fileID, string(stage)); err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) DeleteFile(sessionID, fileID string) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM stages WHERE sessionId = ? AND fileId = ?`, sessionID, fileID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM files WHERE sessionId = ? AND fileId = ?`, sessionID, fileID); err != nil {
		return err
	}
	return tx.Commit()
}

func (d *DB) DeleteSession(sessionID string) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []string{
		`DELETE FROM stages WHERE sessionId = ?`,
		`DELETE FROM files WHERE sessionId = ?`,
		`DELETE FROM runs WHERE sessionId = ?`,
	} {
		if _, err := tx.Exec(q, sessionID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (d *DB) InsertRun(traceID, sessionID, fileID, step string, timings map[string]float64, counts map[string]int) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.Exec(`INSERT INTO runs (traceId, sessionId, fileId, step, timingsJson, countsJson) VALUES (?, ?, ?, ?, ?, ?)`,
		traceID, sessionID, fileID, step, string(timingsJSON), string(countsJSON))
	return err
}

func (d *DB) ListRuns(sessionID, fileID string) ([]Run, error) {
	rows, err := d.conn.Query(`
SELECT traceId, sessionId, fileId, step, timingsJson, countsJson, createdAt
FROM runs WHERE sessionId = ? AND fileId = ? ORDER BY id ASC
`, sessionID, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var timingsJSON, countsJSON string
		if err := rows.Scan(&r.TraceID, &r.SessionID, &r.FileID, &r.Step, &timingsJSON, &countsJSON, &r.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(timingsJSON), &r.Timings)
		_ = json.Unmarshal([]byte(countsJSON), &r.Counts)
		out = append(out, r)
	}
	return out, rows.Err()
}

const mailColumns = `id, provider, messageId, subject, sender, receivedAt, hash, rawRef, status, sessionId, fileId, error`

func scanMail(scan func(...any) error) (internal.MailRecord, error) {
	var row internal.MailRecord
	err := scan(&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.RawRef, &row.Status, &row.SessionID, &row.FileID, &row.Error)
	return row, err
}

// UpsertMail records a fetched message. A message seen before keeps its
// status so that it is not processed twice.
func (d *DB) UpsertMail(m internal.FetchedMail, hash, rawRef string) (internal.MailRecord, error) {
	_, err := d.conn.Exec(`
INSERT INTO mails (provider, messageId, subject, sender, receivedAt, hash, rawRef, status)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, m.Provider, m.MessageID, m.Subject, m.From, m.ReceivedAt, hash, rawRef, string(internal.MailFetched))
	if err != nil {
		return internal.MailRecord{}, err
	}

	row, err := d.GetMail(m.Provider, m.MessageID)
	if err != nil {
		return internal.MailRecord{}, err
	}
	if row == nil {
		return internal.MailRecord{}, errors.New("failed to upsert mail")
	}
	return *row, nil
}

func (d *DB) GetMail(provider, messageID string) (*internal.MailRecord, error) {
	row, err := scanMail(d.conn.QueryRow(`SELECT `+mailColumns+` FROM mails WHERE provider = ? AND messageId = ?`, provider, messageID).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) ListMailsByStatus(status internal.MailStatus, limit int) ([]internal.MailRecord, error) {
	rows, err := d.conn.Query(`SELECT `+mailColumns+` FROM mails WHERE status = ? ORDER BY receivedAt ASC, id ASC LIMIT ?`, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.MailRecord
	for rows.Next() {
		row, err := scanMail(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// UpdateMailStatus sets the outcome of processing a mail. fileID and errText
// may be empty.
func (d *DB) UpdateMailStatus(id int, status internal.MailStatus, sessionID, fileID, errText string) error {
	_, err := d.conn.Exec(`UPDATE mails SET status = ?, sessionId = ?, fileId = ?, error = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`,
		string(status), sessionID, fileID, errText, id)
	return err
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"manifest/internal"
)

type DB struct {
	conn *sql.DB
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
CREATE TABLE IF NOT EXISTS emails (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS documents (
  id TEXT PRIMARY KEY,
  emailId INTEGER,
  name TEXT NOT NULL,
  source TEXT NOT NULL,
  hash TEXT NOT NULL,
  status TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(emailId) REFERENCES emails(id)
);
CREATE INDEX IF NOT EXISTS idx_documents_hash ON documents(hash);

CREATE TABLE IF NOT EXISTS shipments (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  documentId TEXT NOT NULL,
  seq INTEGER NOT NULL,
  loadNumber TEXT,
  orderNumber TEXT,
  shipToCustomer TEXT,
  confidence REAL NOT NULL,
  needsReview INTEGER NOT NULL,
  payloadJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(documentId, seq),
  FOREIGN KEY(documentId) REFERENCES documents(id)
);
CREATE INDEX IF NOT EXISTS idx_shipments_loadNumber ON shipments(loadNumber);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  emailId INTEGER,
  documentId TEXT,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(emailId) REFERENCES emails(id)
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// UpsertDocument stores doc, assigning a new ID when doc.ID is empty.
func (d *DB) UpsertDocument(doc internal.DocumentRow) (internal.DocumentRow, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	_, err := d.conn.Exec(`
INSERT INTO documents (id, emailId, name, source, hash, status)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  emailId=excluded.emailId,
  name=excluded.name,
  source=excluded.source,
  hash=excluded.hash,
  status=excluded.status,
  updatedAt=CURRENT_TIMESTAMP
`, doc.ID, doc.EmailID, doc.Name, doc.Source, doc.Hash, doc.Status)
	if err != nil {
		return internal.DocumentRow{}, err
	}

	row, err := d.GetDocument(doc.ID)
	if err != nil {
		return internal.DocumentRow{}, err
	}
	if row == nil {
		return internal.DocumentRow{}, errors.New("failed to upsert document")
	}
	return *row, nil
}

const documentColumns = `id, emailId, name, source, hash, status, createdAt`

func scanDocument(s interface{ Scan(...any) error }) (internal.DocumentRow, error) {
	var row internal.DocumentRow
	var emailID sql.NullInt64
	if err := s.Scan(&row.ID, &emailID, &row.Name, &row.Source, &row.Hash, &row.Status, &row.CreatedAt); err != nil {
		return internal.DocumentRow{}, err
	}
	if emailID.Valid {
		id := int(emailID.Int64)
		row.EmailID = &id
	}
	return row, nil
}

func (d *DB) GetDocument(id string) (*internal.DocumentRow, error) {
	row, err := scanDocument(d.conn.QueryRow(`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// GetDocumentByHash returns the newest document with this content hash.
func (d *DB) GetDocumentByHash(hash string) (*internal.DocumentRow, error) {
	row, err := scanDocument(d.conn.QueryRow(`SELECT `+documentColumns+` FROM documents WHERE hash = ? ORDER BY createdAt DESC LIMIT 1`, hash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) ListDocuments(limit int) ([]internal.DocumentRow, error) {
	rows, err := d.conn.Query(`SELECT `+documentColumns+` FROM documents ORDER BY createdAt DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.DocumentRow
	for rows.Next() {
		row, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateDocumentStatus(id, status string) error {
	_, err := d.conn.Exec(`UPDATE documents SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, id)
	return err
}

// ReplaceShipments swaps the stored shipments of a document for records, in
// order, inside one transaction.
func (d *DB) ReplaceShipments(documentID string, records []internal.ShipmentRecord) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM shipments WHERE documentId = ?`, documentID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
INSERT INTO shipments (documentId, seq, loadNumber, orderNumber, shipToCustomer, confidence, needsReview, payloadJson)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode shipment %d: %w", i, err)
		}
		if _, err := stmt.Exec(documentID, i, rec.LoadNumber, rec.OrderNumber, rec.ShipToCustomer, rec.Confidence, rec.NeedsReview, string(payload)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) ListShipments(documentID string) ([]internal.ShipmentRecord, error) {
	rows, err := d.conn.Query(`SELECT payloadJson FROM shipments WHERE documentId = ? ORDER BY seq ASC`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ShipmentRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var rec internal.ShipmentRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("decode shipment: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountShipmentsForReview counts stored shipments still flagged for review.
func (d *DB) CountShipmentsForReview() (int, error) {
	var n int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM shipments WHERE needsReview = 1`).Scan(&n)
	return n, err
}

func (d *DB) UpsertEmail(provider, messageID, subject, sender, receivedAt, hash, rawRef, status string) (internal.EmailRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO emails (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, status, rawRef)
	if err != nil {
		return internal.EmailRow{}, err
	}

	row, err := d.GetEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.EmailRow{}, err
	}
	if row == nil {
		return internal.EmailRow{}, errors.New("failed to upsert email")
	}
	return *row, nil
}

func (d *DB) GetEmailByProviderMessageID(provider, messageID string) (*internal.EmailRow, error) {
	var row internal.EmailRow
	err := d.conn.QueryRow(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM emails WHERE provider = ? AND messageId = ?
`, provider, messageID).Scan(
		&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) ListEmailsByStatus(status string, limit int) ([]internal.EmailRow, error) {
	rows, err := d.conn.Query(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM emails WHERE status = ? ORDER BY receivedAt ASC LIMIT ?
`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.EmailRow
	for rows.Next() {
		var row internal.EmailRow
		if err := rows.Scan(&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateEmailStatus(emailID int, status string) error {
	_, err := d.conn.Exec(`UPDATE emails SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, emailID)
	return err
}

// LatestDocumentForEmail returns the document produced by the last run over
// an email, if any.
func (d *DB) LatestDocumentForEmail(emailID int) (*internal.DocumentRow, error) {
	row, err := scanDocument(d.conn.QueryRow(`SELECT `+documentColumns+` FROM documents WHERE emailId = ? ORDER BY createdAt DESC LIMIT 1`, emailID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) InsertRun(traceID string, emailID *int, documentID string, timings map[string]float64, counts map[string]int) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	var doc any
	if documentID != "" {
		doc = documentID
	}
	_, err := d.conn.Exec(`INSERT INTO runs (traceId, emailId, documentId, timingsJson, countsJson) VALUES (?, ?, ?, ?, ?)`,
		traceID, emailID, doc, string(timingsJSON), string(countsJSON))
	return err
}

// CountRuns is used by tests and the CLI status line.
func (d *DB) CountRuns() (int, error) {
	var n int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&n)
	return n, err
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

func (d *DB) MustEmailByProviderMessageID(provider, messageID string) (internal.EmailRow, error) {
	row, err := d.GetEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.EmailRow{}, err
	}
	if row == nil {
		return internal.EmailRow{}, fmt.Errorf("email not found: provider=%s messageId=%s", provider, messageID)
	}
	return *row, nil
}

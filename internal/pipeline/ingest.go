package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"manifest/internal"
	"manifest/internal/storage"
	"manifest/internal/util"
)

const (
	StatusFetched    = "fetched"
	StatusProcessing = "processing"
	StatusProcessed  = "processed"
	StatusSkipped    = "skipped"
	StatusExported   = "exported"
	StatusFailed     = "failed"
)

// Ingestor runs stored emails and dropped files through the Processor and
// persists the shipments with a run row per document.
type Ingestor struct {
	db     *storage.DB
	proc   *Processor
	opts   internal.ParseOptions
	logger *zap.Logger
}

func NewIngestor(db *storage.DB, proc *Processor, opts internal.ParseOptions, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{db: db, proc: proc, opts: opts, logger: logger}
}

type ProcessResult struct {
	EmailID    int
	DocumentID string
	Shipments  int
	Review     int
	Skipped    bool
}

func (s *Ingestor) ProcessByProviderMessageID(ctx context.Context, provider, messageID string) (ProcessResult, error) {
	email, err := s.db.MustEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return ProcessResult{}, err
	}
	return s.ProcessEmail(ctx, email)
}

// ProcessPending handles up to limit fetched emails, optionally only those of
// one provider. It returns the number of emails and shipments processed. An
// email that fails is marked failed and the batch moves on.
func (s *Ingestor) ProcessPending(ctx context.Context, limit int, provider string) (int, int, error) {
	pending, err := s.db.ListEmailsByStatus(StatusFetched, limit)
	if err != nil {
		return 0, 0, err
	}
	processedEmails := 0
	processedShipments := 0
	for _, email := range pending {
		if provider != "" && email.Provider != provider {
			continue
		}
		if err := ctx.Err(); err != nil {
			return processedEmails, processedShipments, err
		}
		res, err := s.ProcessEmail(ctx, email)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return processedEmails, processedShipments, ctxErr
			}
			s.logger.Warn("email failed",
				zap.Int("email_id", email.ID), zap.String("message_id", email.MessageID), zap.Error(err))
			continue
		}
		processedEmails++
		processedShipments += res.Shipments
	}
	return processedEmails, processedShipments, nil
}

func (s *Ingestor) ProcessEmail(ctx context.Context, email internal.EmailRow) (ProcessResult, error) {
	start := time.Now()
	trace := traceID()
	raw, err := os.ReadFile(email.RawRef)
	if err != nil {
		_ = s.db.UpdateEmailStatus(email.ID, StatusFailed)
		return ProcessResult{}, fmt.Errorf("email %d: %w", email.ID, err)
	}

	content, err := ReadEmail(raw)
	if err != nil {
		_ = s.db.UpdateEmailStatus(email.ID, StatusFailed)
		return ProcessResult{}, fmt.Errorf("email %d: %w", email.ID, err)
	}

	detect := DetectManifest(util.FirstNonEmpty(content.Subject, email.Subject), content.Text+"\n"+content.HTML, content.AttachmentNames())
	if !detect.IsManifest {
		s.logger.Info("email skipped",
			zap.String("trace_id", trace), zap.Int("email_id", email.ID), zap.Float64("score", detect.Score))
		_ = s.db.UpdateEmailStatus(email.ID, StatusSkipped)
		_ = s.db.InsertRun(trace, &email.ID, "", elapsed(start), map[string]int{"shipments": 0, "review": 0})
		return ProcessResult{EmailID: email.ID, Skipped: true}, nil
	}

	records, err := s.proc.ProcessEmail(ctx, raw, s.opts)
	if err != nil {
		_ = s.db.UpdateEmailStatus(email.ID, StatusFailed)
		return ProcessResult{}, err
	}

	// Reprocessing an email replaces the shipments of its earlier document.
	docID := ""
	if prev, err := s.db.LatestDocumentForEmail(email.ID); err != nil {
		_ = s.db.UpdateEmailStatus(email.ID, StatusFailed)
		return ProcessResult{}, err
	} else if prev != nil {
		docID = prev.ID
	}
	doc, err := s.db.UpsertDocument(internal.DocumentRow{
		ID:      docID,
		EmailID: &email.ID,
		Name:    util.FirstNonEmpty(email.Subject, email.MessageID),
		Source:  string(internal.SourceEmail),
		Hash:    email.Hash,
		Status:  StatusProcessing,
	})
	if err != nil {
		_ = s.db.UpdateEmailStatus(email.ID, StatusFailed)
		return ProcessResult{}, err
	}
	res, err := s.persist(trace, &email.ID, doc, records, start)
	if err != nil {
		_ = s.db.UpdateEmailStatus(email.ID, StatusFailed)
		return ProcessResult{}, err
	}
	if err := s.db.UpdateEmailStatus(email.ID, StatusProcessed); err != nil {
		return ProcessResult{}, err
	}
	res.EmailID = email.ID
	return res, nil
}

// IngestFile processes a dropped manifest file. Content already stored under
// the same hash is skipped unless that attempt never completed, in which case
// the same document is filled in again.
func (s *Ingestor) IngestFile(ctx context.Context, path string) (ProcessResult, error) {
	start := time.Now()
	trace := traceID()
	content, err := os.ReadFile(path)
	if err != nil {
		return ProcessResult{}, err
	}
	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])

	existing, err := s.db.GetDocumentByHash(hash)
	if err != nil {
		return ProcessResult{}, err
	}
	docID := ""
	if existing != nil {
		if existing.Status != StatusFailed && existing.Status != StatusProcessing {
			s.logger.Info("file already ingested", zap.String("path", path), zap.String("document_id", existing.ID))
			return ProcessResult{DocumentID: existing.ID, Skipped: true}, nil
		}
		s.logger.Info("retrying incomplete ingest",
			zap.String("path", path), zap.String("document_id", existing.ID), zap.String("status", existing.Status))
		docID = existing.ID
	}

	name := filepath.Base(path)
	records, err := s.proc.ProcessContent(ctx, name, content, s.opts)
	if err != nil {
		return ProcessResult{}, err
	}
	doc, err := s.db.UpsertDocument(internal.DocumentRow{
		ID:     docID,
		Name:   name,
		Source: sourceForFile(name),
		Hash:   hash,
		Status: StatusProcessing,
	})
	if err != nil {
		return ProcessResult{}, err
	}
	return s.persist(trace, nil, doc, records, start)
}

// persist stores records for a document left in StatusProcessing and settles
// its status. A document whose shipments could not be written ends up failed
// so the next ingest of the same content retries it.
func (s *Ingestor) persist(trace string, emailID *int, doc internal.DocumentRow, records []internal.ShipmentRecord, start time.Time) (ProcessResult, error) {
	if err := s.db.ReplaceShipments(doc.ID, records); err != nil {
		if serr := s.db.UpdateDocumentStatus(doc.ID, StatusFailed); serr != nil {
			s.logger.Warn("document status not recorded", zap.String("document_id", doc.ID), zap.Error(serr))
		}
		return ProcessResult{}, fmt.Errorf("store shipments for %s: %w", doc.ID, err)
	}
	if err := s.db.UpdateDocumentStatus(doc.ID, StatusProcessed); err != nil {
		return ProcessResult{}, err
	}
	review := 0
	for _, r := range records {
		if r.NeedsReview {
			review++
		}
	}
	counts := map[string]int{"shipments": len(records), "review": review}
	if err := s.db.InsertRun(trace, emailID, doc.ID, elapsed(start), counts); err != nil {
		s.logger.Warn("run not recorded", zap.String("trace_id", trace), zap.Error(err))
	}
	s.logger.Info("document processed",
		zap.String("trace_id", trace),
		zap.String("document_id", doc.ID),
		zap.String("name", doc.Name),
		zap.Int("shipments", len(records)),
		zap.Int("review", review))
	return ProcessResult{DocumentID: doc.ID, Shipments: len(records), Review: review}, nil
}

// ExportDocument writes a stored document's shipments to outputPath.
func (s *Ingestor) ExportDocument(documentID, outputPath string) (int, error) {
	records, err := s.db.ListShipments(documentID)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	if err := ExportShipmentsToXLSX(records, outputPath); err != nil {
		return 0, err
	}
	return len(records), nil
}

func sourceForFile(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return string(internal.SourceXLSX)
	case ".html", ".htm":
		return string(internal.SourceHTMLTable)
	case ".pdf":
		return string(internal.SourcePDF)
	case ".png", ".jpg", ".jpeg", ".webp":
		return string(internal.SourceOCR)
	case ".eml":
		return string(internal.SourceEmail)
	default:
		return string(internal.SourceText)
	}
}

func elapsed(start time.Time) map[string]float64 {
	return map[string]float64{"totalMs": float64(time.Since(start).Milliseconds())}
}

func traceID() string {
	return uuid.NewString()
}

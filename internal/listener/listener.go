package listener

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"manifest/internal/config"
	"manifest/internal/connectors"
	gmailconnector "manifest/internal/connectors/gmail"
	imapconnector "manifest/internal/connectors/imap"
	"manifest/internal/pipeline"
	"manifest/internal/storage"
)

// ConnectorFactory builds the mail connector for a provider name.
type ConnectorFactory func(ctx context.Context, provider string) (connectors.MailConnector, error)

// Service polls a mailbox, runs new mail through the pipeline and optionally
// exports each processed email's shipments.
type Service struct {
	db            *storage.DB
	cfg           config.Config
	ingestor      *pipeline.Ingestor
	makeConnector ConnectorFactory
	logger        *zap.Logger
}

func NewService(db *storage.DB, cfg config.Config, ingestor *pipeline.Ingestor, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:       db,
		cfg:      cfg,
		ingestor: ingestor,
		makeConnector: func(ctx context.Context, provider string) (connectors.MailConnector, error) {
			return NewConnector(ctx, cfg, provider)
		},
		logger: logger,
	}
}

// WithConnectorFactory replaces how connectors are built.
func (s *Service) WithConnectorFactory(f ConnectorFactory) *Service {
	s.makeConnector = f
	return s
}

func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.MailListenerIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	for {
		if err := s.RunCycle(ctx); err != nil {
			s.logger.Warn("listener cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

// RunCycle does one fetch, process and export pass.
func (s *Service) RunCycle(ctx context.Context) error {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.MailListenerProvider))
	mailConnector, err := s.makeConnector(ctx, provider)
	if err != nil {
		return err
	}

	fetchService := connectors.NewFetchService(s.db, s.cfg.RawMailDir, mailConnector, s.logger)
	fetchResult, err := fetchService.FetchAndStore(ctx, s.cfg.MailListenerLabel, s.cfg.MailListenerFetchMax)
	if err != nil {
		return err
	}

	processedEmails, shipments, err := s.ingestor.ProcessPending(ctx, s.cfg.MailListenerProcessBatch, provider)
	if err != nil {
		return err
	}

	exported := 0
	if s.cfg.MailListenerAutoExport {
		if exported, err = s.exportProcessed(provider); err != nil {
			return err
		}
	}

	s.logger.Info("listener cycle done",
		zap.String("provider", provider),
		zap.Int("fetched", fetchResult.Fetched),
		zap.Int("stored", fetchResult.Stored),
		zap.Int("processed", processedEmails),
		zap.Int("shipments", shipments),
		zap.Int("exported", exported))
	return nil
}

func (s *Service) exportProcessed(provider string) (int, error) {
	emails, err := s.db.ListEmailsByStatus(pipeline.StatusProcessed, 200)
	if err != nil {
		return 0, err
	}

	exported := 0
	for _, email := range emails {
		if email.Provider != provider {
			continue
		}
		doc, err := s.db.LatestDocumentForEmail(email.ID)
		if err != nil {
			return exported, err
		}
		if doc == nil {
			continue
		}
		filename := fmt.Sprintf("%d_%s.xlsx", email.ID, sanitizeFileName(email.MessageID))
		outputPath := filepath.Join(s.cfg.OutputDir, "listener", filename)
		n, err := s.ingestor.ExportDocument(doc.ID, outputPath)
		if err != nil {
			return exported, err
		}
		if n == 0 {
			continue
		}
		_ = s.db.UpdateEmailStatus(email.ID, pipeline.StatusExported)
		exported++
	}
	return exported, nil
}

// NewConnector builds a connector from configuration.
func NewConnector(ctx context.Context, cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch provider {
	case "gmail":
		return gmailconnector.NewConnector(ctx, cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported listener provider: %s", provider)
	}
}

func sanitizeFileName(input string) string {
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_")
	out := repl.Replace(input)
	if len(out) > 120 {
		out = out[:120]
	}
	return out
}

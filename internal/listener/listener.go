package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"quotedesk/internal"
	"quotedesk/internal/config"
	"quotedesk/internal/connectors"
	"quotedesk/internal/logger"
	"quotedesk/internal/pipeline"
	"quotedesk/internal/storage"
)

// Service polls a mailbox and feeds every new quotation mail through the
// processing pipeline: ingest the first supported attachment, extract,
// build items and optionally export the extracted tables.
type Service struct {
	db        *storage.DB
	cfg       config.Config
	connector connectors.MailConnector
	proc      *pipeline.ProcessingService
	log       *slog.Logger
}

type CycleResult struct {
	Fetched   int
	Stored    int
	Processed int
	Skipped   int
	Failed    int
}

func NewService(db *storage.DB, cfg config.Config, connector connectors.MailConnector, proc *pipeline.ProcessingService) *Service {
	return &Service{db: db, cfg: cfg, connector: connector, proc: proc, log: logger.Get("listener")}
}

func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(max(s.cfg.MailListenerIntervalSec, 1)) * time.Second
	for {
		res, err := s.RunCycle(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			s.log.Info("listener stopping", "processed", res.Processed)
		case err != nil:
			s.log.Error("listener cycle failed", "error", err)
		default:
			s.log.Info("listener cycle done", "provider", s.cfg.MailListenerProvider, "fetched", res.Fetched, "stored", res.Stored,
				"processed", res.Processed, "skipped", res.Skipped, "failed", res.Failed)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

// RunCycle fetches once and processes every mail still in the fetched state,
// including ones left over from an interrupted cycle.
func (s *Service) RunCycle(ctx context.Context) (CycleResult, error) {
	fetch := connectors.NewFetchService(s.db, s.cfg.RawMailDir, s.connector)
	fetched, err := fetch.FetchAndStore(ctx, s.cfg.MailListenerLabel, s.cfg.MailListenerFetchMax)
	if err != nil {
		return CycleResult{}, err
	}
	res := CycleResult{Fetched: fetched.Fetched, Stored: fetched.Stored}
	if err := s.db.SetMetadata(lastFetchKey(s.cfg.MailListenerProvider), time.Now().UTC().Format(time.RFC3339)); err != nil {
		s.log.Warn("record fetch time", "error", err)
	}

	pending, err := s.db.ListMailsByStatus(internal.MailFetched, max(s.cfg.MailListenerFetchMax, 1))
	if err != nil {
		return res, err
	}
	for _, mail := range pending {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		switch status := s.processMail(ctx, mail); status {
		case internal.MailFetched:
			if err := ctx.Err(); err != nil {
				return res, err
			}
			return res, context.Canceled
		case internal.MailProcessed:
			res.Processed++
		case internal.MailSkipped:
			res.Skipped++
		default:
			res.Failed++
		}
	}
	return res, nil
}

func lastFetchKey(provider string) string {
	return "mail_last_fetch:" + provider
}

func (s *Service) processMail(ctx context.Context, mail internal.MailRecord) internal.MailStatus {
	session := s.cfg.MailListenerSession
	log := s.log.With("message_id", mail.MessageID, "subject", mail.Subject)

	fileID, err := s.runPipeline(ctx, session, mail.RawRef)
	if err != nil && (ctx.Err() != nil || errors.Is(err, context.Canceled)) {
		// Interrupted: the mail stays fetched and is picked up by the next cycle.
		if fileID != "" {
			if ferr := s.proc.Forget(session, fileID); ferr != nil {
				log.Warn("drop partial file", "file", fileID, "error", ferr)
			}
		}
		log.Info("mail processing interrupted", "error", err)
		return internal.MailFetched
	}

	status := internal.MailProcessed
	errText := ""
	switch {
	case errors.Is(err, internal.ErrUnsupportedFormat):
		status = internal.MailSkipped
		errText = err.Error()
		log.Info("mail skipped", "reason", err)
	case err != nil:
		status = internal.MailFailed
		errText = err.Error()
		log.Error("mail processing failed", "error", err)
	default:
		log.Info("mail processed", "session", session, "file", fileID)
	}

	if err := s.db.UpdateMailStatus(mail.ID, status, session, fileID, errText); err != nil {
		log.Error("update mail status", "error", err)
	}
	return status
}

func (s *Service) runPipeline(ctx context.Context, session, rawPath string) (string, error) {
	rec, err := s.proc.Ingest(session, rawPath)
	if err != nil {
		return "", err
	}
	if rec.Kind != internal.KindXLSX {
		if _, err := s.proc.Extract(ctx, session, rec.FileID); err != nil {
			return rec.FileID, fmt.Errorf("extract: %w", err)
		}
	}
	if _, err := s.proc.Items(session, rec.FileID); err != nil {
		return rec.FileID, fmt.Errorf("items: %w", err)
	}
	if s.cfg.MailListenerAutoExport {
		path, err := s.proc.Export(session, rec.FileID, pipeline.ExportExtracted)
		if err != nil {
			return rec.FileID, fmt.Errorf("export: %w", err)
		}
		s.log.Debug("exported", "file", rec.FileID, "path", path)
	}
	return rec.FileID, nil
}

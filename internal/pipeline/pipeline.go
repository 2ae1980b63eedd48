// Package pipeline composes rendering, recognition and assembly into the
// resumable per-document run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/inkworks/folio/internal/assemble"
	"github.com/inkworks/folio/internal/document"
	"github.com/inkworks/folio/internal/notify"
	"github.com/inkworks/folio/internal/recognize"
	"github.com/inkworks/folio/internal/status"
	"github.com/inkworks/folio/internal/window"
	"github.com/inkworks/folio/pkg/logger"
)

// Pipeline runs one document end to end: resume, then strictly sequential
// page processing in increasing index order, then finalization.
type Pipeline struct {
	doc        *document.Info
	windows    *window.Builder
	recognizer recognize.Recognizer
	assembler  *assemble.Assembler
	notifier   notify.Notifier
	retry      *Controller
	tracker    *status.Tracker
	logger     logger.Logger
}

func New(
	doc *document.Info,
	windows *window.Builder,
	recognizer recognize.Recognizer,
	assembler *assemble.Assembler,
	notifier notify.Notifier,
	retry *Controller,
	tracker *status.Tracker,
	log logger.Logger,
) *Pipeline {
	p := &Pipeline{
		doc:        doc,
		windows:    windows,
		recognizer: recognizer,
		assembler:  assembler,
		notifier:   notifier,
		retry:      retry,
		tracker:    tracker,
		logger:     log,
	}
	retry.OnQuotaWait = func(page int, wait time.Duration) {
		tracker.Update(func(s *status.Snapshot) {
			s.State = "waiting_quota"
			s.CurrentPage = page
		})
	}
	return p
}

// Run executes one pass over the document. It returns nil when every page
// from the resume point through the last page is recorded.
func (p *Pipeline) Run(ctx context.Context) error {
	start := time.Now()

	// Heal any manifest reference lost to a crash between a fragment
	// write and its manifest update, and bootstrap the preamble on a
	// fresh workspace.
	if err := p.assembler.Reconcile(ctx); err != nil {
		return fmt.Errorf("manifest reconciliation failed: %w", err)
	}

	startPage, err := p.assembler.Fragments().StartPage(ctx)
	if err != nil {
		return fmt.Errorf("resume scan failed: %w", err)
	}

	total := p.doc.TotalPages
	p.logger.Info("Starting run",
		logger.String("document", p.doc.Path),
		logger.Int("totalPages", total),
		logger.Int("startPage", startPage),
	)
	p.tracker.Update(func(s *status.Snapshot) {
		s.State = "running"
		s.TotalPages = total
		s.CurrentPage = startPage
		s.Recorded = startPage - 1
	})

	for page := startPage; page <= total; page++ {
		p.tracker.Update(func(s *status.Snapshot) {
			s.State = "running"
			s.CurrentPage = page
		})

		if err := p.retry.Run(ctx, page, func(ctx context.Context) error {
			return p.processPage(ctx, page, total)
		}); err != nil {
			var exhausted *PageExhaustedError
			if errors.As(err, &exhausted) {
				p.logger.Error("Halting run: page attempts exhausted",
					logger.Int("page", exhausted.Page),
					logger.Int("attempts", exhausted.Attempts),
					logger.Error(exhausted.Cause),
				)
				p.tracker.Update(func(s *status.Snapshot) {
					s.State = "failed"
					s.LastError = exhausted.Error()
				})
				p.notifier.Notify(ctx, notify.Message(p.doc.Path, exhausted.Page, exhausted.Attempts, exhausted.Cause))
				// The halted run still gets its closing marker; pages are
				// never skipped, so later pages stay unprocessed until the
				// cause is fixed and the run restarted.
				if ferr := p.assembler.Finalize(ctx); ferr != nil {
					p.logger.Error("Finalization after halt failed", logger.Error(ferr))
				}
				return err
			}
			// Cancellation or a configuration fault: stop without
			// finalizing so a resumed run continues cleanly.
			p.tracker.Update(func(s *status.Snapshot) {
				s.State = "failed"
				s.LastError = err.Error()
			})
			return err
		}

		p.logger.Info("Recorded page",
			logger.Int("page", page),
			logger.Int("totalPages", total),
		)
		p.tracker.Update(func(s *status.Snapshot) {
			s.Recorded = page
		})
	}

	if err := p.assembler.Finalize(ctx); err != nil {
		return fmt.Errorf("finalization failed: %w", err)
	}

	p.tracker.Update(func(s *status.Snapshot) {
		s.State = "completed"
	})
	p.logger.Info("Run complete",
		logger.Int("pages", total-startPage+1),
		logger.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// processPage is one full attempt: render the window, recognize, record.
// The window is rebuilt on every attempt; renders are never cached across
// attempts.
func (p *Pipeline) processPage(ctx context.Context, page, total int) error {
	w, err := p.windows.Build(ctx, page, total)
	if err != nil {
		return err
	}

	text, err := p.recognizer.Recognize(ctx, &recognize.Request{
		Page:         page,
		Images:       w.Images(),
		CurrentIndex: w.CurrentIndex(),
	})
	if err != nil {
		return err
	}

	return p.assembler.RecordPage(ctx, page, text)
}

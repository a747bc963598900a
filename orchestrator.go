package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go-guest-registry/extraction"
	"go-guest-registry/models"
	"go-guest-registry/payload"
	"go-guest-registry/validation"
	"go-guest-registry/wizard"
)

// Orchestrator drives the two external-boundary flows of a session: the ID
// extraction cycle and the final submission. It owns the begin/complete
// discipline so stale results never land on a session that moved on.
type Orchestrator struct {
	sessions  SessionStorage
	extractor extraction.Extractor
	sink      SinkClient
	receipts  ReceiptCreator
	metrics   *Metrics
}

func NewOrchestrator(sessions SessionStorage, extractor extraction.Extractor, sink SinkClient, receipts ReceiptCreator, metrics *Metrics) *Orchestrator {
	return &Orchestrator{
		sessions:  sessions,
		extractor: extractor,
		sink:      sink,
		receipts:  receipts,
		metrics:   metrics,
	}
}

// RunExtraction reads the active guest's ID images through the extraction
// service and merges whatever came back. Failures release the in-flight slot
// and are returned to the caller; the guest simply types the fields by hand.
func (o *Orchestrator) RunExtraction(ctx context.Context, session *wizard.Session) error {
	gen, guest, front, back, err := session.BeginExtraction()
	if err != nil {
		return err
	}
	// the in-flight slot must be visible to concurrent requests before the
	// external call starts, or a second trigger would pass the guard
	if err := o.sessions.SaveSession(session); err != nil {
		session.AbortExtraction(gen)
		return fmt.Errorf("failed to persist session: %w", err)
	}

	start := time.Now()
	fields, err := o.extractor.Extract(ctx, models.ExtractionRequest{
		FrontImage: front,
		BackImage:  back,
	})
	if err != nil {
		session.AbortExtraction(gen)
		if saveErr := o.sessions.SaveSession(session); saveErr != nil {
			slog.Error("Failed to save session after extraction failure", "session_id", session.ID, "error", saveErr)
		}
		o.metrics.ObserveExtraction(start, "failed")
		return err
	}

	if session.ApplyExtraction(gen, guest, fields) {
		o.metrics.ObserveExtraction(start, "ok")
	} else {
		o.metrics.ObserveExtraction(start, "discarded")
	}
	return nil
}

// Submit validates the whole record, normalizes it, delivers it to the sink
// and lands the outcome on the session. A validation failure is returned as
// field errors; an accepted outcome also mints the receipt token.
func (o *Orchestrator) Submit(ctx context.Context, session *wizard.Session) (validation.Result, error) {
	gen, res, err := session.BeginSubmission()
	if err != nil {
		return nil, err
	}
	if !res.Valid() {
		return res, nil
	}
	// same persist-before-call discipline as RunExtraction: the SUBMITTING
	// phase has to land in storage before the sink sees the document
	if err := o.sessions.SaveSession(session); err != nil {
		session.AbortSubmission(gen)
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	doc := payload.Normalize(&session.Record)

	start := time.Now()
	outcome := o.sink.Send(ctx, doc)
	if !session.CompleteSubmission(gen, outcome) {
		o.metrics.ObserveSubmission(start, "discarded")
		return nil, nil
	}

	if outcome.Accepted {
		o.metrics.ObserveSubmission(start, "accepted")
		if o.receipts != nil {
			token, err := o.receipts.CreateReceiptJwt(session.ID, &session.Record)
			if err != nil {
				slog.Error("Failed to create receipt token", "session_id", session.ID, "error", err)
			} else {
				session.ReceiptToken = token
			}
		}
	} else {
		o.metrics.ObserveSubmission(start, "rejected")
	}
	return nil, nil
}

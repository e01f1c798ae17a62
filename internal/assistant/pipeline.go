package assistant

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pranhealth/drai/internal/history"
	"github.com/pranhealth/drai/internal/idempotency"
	"github.com/pranhealth/drai/internal/observability/metrics"
	"github.com/pranhealth/drai/pkg/logging"
)

// Inbound is one incoming patient message event.
type Inbound struct {
	SenderID  string
	Message   string
	PatientID string
}

// Pipeline wires the guard, classifier, retriever, generator and history
// store into the single entry point for inbound events. Invocations run fully
// in parallel; the only shared state is the guard's store.
type Pipeline struct {
	guard      *idempotency.Guard
	classifier *Classifier
	retriever  *Retriever
	generator  *Generator
	history    history.Store
	logger     *logging.Logger
	metrics    *metrics.PipelineMetrics
}

// NewPipeline assembles the pipeline. The history store may be nil; turns are
// then simply not persisted.
func NewPipeline(
	guard *idempotency.Guard,
	classifier *Classifier,
	retriever *Retriever,
	generator *Generator,
	store history.Store,
	logger *logging.Logger,
	m *metrics.PipelineMetrics,
) *Pipeline {
	if guard == nil {
		panic("assistant: guard cannot be nil")
	}
	if classifier == nil {
		panic("assistant: classifier cannot be nil")
	}
	if retriever == nil {
		panic("assistant: retriever cannot be nil")
	}
	if generator == nil {
		panic("assistant: generator cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Pipeline{
		guard:      guard,
		classifier: classifier,
		retriever:  retriever,
		generator:  generator,
		history:    store,
		logger:     logger,
		metrics:    m,
	}
}

// Handle processes one inbound event end to end. The returned bool reports
// whether the response was actually delivered; a suppressed duplicate inbound
// returns ("", false) and must produce no user-visible output at all.
//
// The stages run strictly in order: classification, then retrieval, then
// generation. There is no mid-pipeline cancellation; each stage is bounded by
// its own timeout and degrades on failure instead of aborting.
func (p *Pipeline) Handle(ctx context.Context, in Inbound) (string, bool) {
	start := time.Now()
	logger := p.logger.With("sender_id", in.SenderID, "invocation_id", uuid.NewString())

	if !p.guard.ShouldAcceptInbound(ctx, in.SenderID, in.Message) {
		p.metrics.ObserveInbound(false)
		return "", false
	}
	p.metrics.ObserveInbound(true)

	var recent []history.Turn
	if p.history != nil {
		turns, err := p.history.Recent(ctx, in.SenderID, historyTurnBudget)
		if err != nil {
			logger.Warn("history lookup failed, continuing without context", "error", err.Error())
		} else {
			recent = turns
		}
	}

	cls := p.classifier.Classify(ctx, in.Message)
	logger.Info("message classified",
		"specialty", string(cls.Specialty),
		"urgency", string(cls.Urgency),
		"confidence", cls.Confidence)

	rctx := p.retriever.Retrieve(ctx, in.Message, in.PatientID, cls, recent)

	text := p.generator.Generate(ctx, in.Message, cls, rctx, recent)

	p.appendTurns(ctx, logger, in, cls, text)

	delivery := p.guard.NewDelivery()
	sent := delivery.TrySend(ctx, in.SenderID, text)
	p.metrics.ObserveOutbound(sent)
	p.metrics.ObservePipelineLatency(time.Since(start).Seconds())

	if !sent {
		return "", false
	}
	return text, true
}

// appendTurns persists the user and assistant turns. Failures are logged and
// discarded; history is context, not a system of record the reply depends on.
func (p *Pipeline) appendTurns(ctx context.Context, logger *logging.Logger, in Inbound, cls Classification, response string) {
	if p.history == nil {
		return
	}
	now := time.Now().UTC()

	entities := make([]history.Entity, 0, len(cls.Symptoms))
	for _, s := range cls.Symptoms {
		entities = append(entities, history.Entity{Name: "symptom", Value: s})
	}

	userTurn := history.Turn{
		SenderID:  in.SenderID,
		Text:      in.Message,
		IsUser:    true,
		Intent:    string(cls.Specialty),
		Entities:  entities,
		CreatedAt: now,
	}
	if err := p.history.Append(ctx, userTurn); err != nil {
		logger.Warn("failed to persist user turn", "error", err.Error())
	}

	assistantTurn := history.Turn{
		SenderID:  in.SenderID,
		Text:      response,
		IsUser:    false,
		CreatedAt: now.Add(time.Millisecond),
	}
	if err := p.history.Append(ctx, assistantTurn); err != nil {
		logger.Warn("failed to persist assistant turn", "error", err.Error())
	}
}

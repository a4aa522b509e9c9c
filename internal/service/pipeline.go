package service

import (
	"context"
	"time"

	"github.com/guregu/null/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-assistant/internal/domain"
	"github.com/spec-kit/support-assistant/internal/observability"
)

// PipelineResult records what each stage produced for one message.
type PipelineResult struct {
	Reply          string
	Classification domain.Classification
	TicketID       null.String
	Evidence       []domain.Evidence
}

// PipelineDependencies bundles the three stages.
type PipelineDependencies struct {
	Classifier *IntentClassifier
	Resolver   *TicketResolver
	Composer   *ResponseComposer
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// MessagePipeline runs classify, resolve and compose for each message.
type MessagePipeline struct {
	classifier *IntentClassifier
	resolver   *TicketResolver
	composer   *ResponseComposer
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewMessagePipeline constructs the pipeline.
func NewMessagePipeline(deps PipelineDependencies) *MessagePipeline {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessagePipeline{
		classifier: deps.Classifier,
		resolver:   deps.Resolver,
		composer:   deps.Composer,
		logger:     logger,
		metrics:    deps.Metrics,
	}
}

// Handle returns the reply for message. It always produces a reply.
func (p *MessagePipeline) Handle(ctx context.Context, message, username string) string {
	return p.Process(ctx, message, username).Reply
}

// Process is Handle with the intermediate results exposed.
func (p *MessagePipeline) Process(ctx context.Context, message, username string) PipelineResult {
	start := time.Now()
	username = domain.NormalizeUsername(username)
	log := p.logger.With(zap.String("username", username))

	classification := p.classifier.Classify(ctx, message)
	log.Info("message classified",
		zap.String("intent", string(classification.Intent)),
		zap.String("ticket_id", classification.TicketID.String))

	result := PipelineResult{Classification: classification}
	switch classification.Intent {
	case domain.IntentTicketInfo:
		result.Evidence = p.resolver.ResolveInfo(ctx, classification.TicketID, username)
	case domain.IntentTicketRequest:
		resolved := p.resolver.ResolveRequest(ctx, classification.Summary, username)
		result.Evidence = resolved.Evidence
		result.TicketID = resolved.TicketID
		log.Info("ticket request resolved",
			zap.Bool("success", resolved.Success),
			zap.String("ticket_id", resolved.TicketID.String))
	}

	result.Reply = p.composer.Compose(ctx, ComposeInput{
		Message:  message,
		Intent:   classification.Intent,
		Summary:  classification.Summary,
		Evidence: result.Evidence,
		TicketID: result.TicketID,
	})

	elapsed := time.Since(start)
	p.metrics.RecordMessage(string(classification.Intent), elapsed)
	log.Info("reply composed",
		zap.String("intent", string(classification.Intent)),
		zap.Int("evidence", len(result.Evidence)),
		zap.Duration("elapsed", elapsed))
	return result
}

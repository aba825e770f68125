package usecase

import (
	"context"
	"fmt"
	"strings"

	"blograg/internal/domain"
	"blograg/internal/port"
)

// StreamSinks receives the events of a streamed query.
//
// Call order and cardinality: OnSources exactly once (possibly with an empty
// list) before any text; OnChunk zero or more times with non-overlapping
// fragments whose concatenation is the full answer; then exactly one of
// OnComplete or OnError. Nothing follows a terminal event.
type StreamSinks struct {
	OnSources  func(sources []domain.Source)
	OnChunk    func(delta string)
	OnComplete func(tokensUsed int)
	OnError    func(err error)
}

func (s StreamSinks) normalized() StreamSinks {
	if s.OnSources == nil {
		s.OnSources = func([]domain.Source) {}
	}
	if s.OnChunk == nil {
		s.OnChunk = func(string) {}
	}
	if s.OnComplete == nil {
		s.OnComplete = func(int) {}
	}
	if s.OnError == nil {
		s.OnError = func(error) {}
	}
	return s
}

// StreamQuery answers a question as an incremental stream. Every failure
// path routes through sinks.OnError; nothing is ever raised past the sinks.
// Cancelling ctx stops generation promptly and terminates with OnError.
func (q *QueryEngine) StreamQuery(ctx context.Context, question string, opts QueryOptions, sinks StreamSinks) {
	sinks = sinks.normalized()
	if err := q.streamQuery(ctx, question, opts, sinks); err != nil {
		sinks.OnError(err)
	}
}

func (q *QueryEngine) streamQuery(ctx context.Context, question string, opts QueryOptions, sinks StreamSinks) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return fmt.Errorf("question: %w", domain.ErrValidation)
	}
	opts = opts.withDefaults()

	hits := q.retrieveOrDegrade(ctx, question, opts)
	sources, messages, mode := q.assemble(question, hits, opts)

	sinks.OnSources(sources)
	q.log.Debug("streaming answer", "mode", mode, "sources", len(sources))

	result, err := q.generator.ChatStream(ctx, messages, port.ChatOptions{
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}, func(delta string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		sinks.OnChunk(delta)
		return nil
	})
	if err != nil {
		return err
	}

	sinks.OnComplete(result.TokensUsed)
	return nil
}

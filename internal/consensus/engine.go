// Package consensus reconciles the readings of several unreliable extractors
// into a single value.
package consensus

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"meter_reading/internal/extractor"
	"meter_reading/internal/logger"
	"meter_reading/internal/models"
)

const defaultCallTimeout = 20 * time.Second

// Source supplies the extractors for one run.
type Source interface {
	Remotes() []extractor.Extractor
	Locals() []extractor.Extractor
}

// Engine fans an image out to every extractor and votes on the results.
type Engine struct {
	source      Source
	callTimeout time.Duration
	log         *logger.Logger
}

func NewEngine(source Source, callTimeout time.Duration, log *logger.Logger) *Engine {
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	return &Engine{source: source, callTimeout: callTimeout, log: log}
}

// Resolve runs all extractors concurrently, waits for every one of them (each is
// bounded by the per-call timeout) and applies the voting rules. A FinalValue of 0
// means no reading.
func (e *Engine) Resolve(ctx context.Context, image []byte, hint, prompt string) models.ConsensusOutcome {
	remoteExts := e.source.Remotes()
	exts := append(append(make([]extractor.Extractor, 0, len(remoteExts)+len(e.source.Locals())), remoteExts...), e.source.Locals()...)
	results := e.runAll(ctx, exts, image, hint, prompt)

	out := Decide(results[:len(remoteExts)], results[len(remoteExts):], hint)
	if e.log != nil {
		for _, r := range out.Results {
			e.log.Debugw("extractor_result",
				"source", r.SourceID,
				"value", r.Value,
				"raw_text", r.RawText,
				"confidence", r.Confidence,
				"error", r.Error,
			)
		}
		e.log.Infow("consensus_resolved",
			"final_value", out.FinalValue,
			"rule", out.Rule,
			"sources", out.ContributingSources,
			"confidence", out.Confidence,
		)
	}
	return out
}

// runAll keeps results in input order so priority survives the fan-out.
func (e *Engine) runAll(ctx context.Context, exts []extractor.Extractor, image []byte, hint, prompt string) []models.ExtractionResult {
	results := make([]models.ExtractionResult, len(exts))
	var g errgroup.Group
	for i, ext := range exts {
		g.Go(func() error {
			results[i] = e.callOne(ctx, ext, image, hint, prompt)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// callOne bounds a single extractor. An extractor that ignores its context is
// abandoned at the deadline and reported as timed out.
func (e *Engine) callOne(ctx context.Context, ext extractor.Extractor, image []byte, hint, prompt string) models.ExtractionResult {
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	done := make(chan models.ExtractionResult, 1)
	go func() {
		done <- ext.Extract(callCtx, image, hint, prompt)
	}()

	select {
	case res := <-done:
		res.SourceID = ext.ID()
		return res
	case <-callCtx.Done():
		err := callCtx.Err()
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = errors.New("extractor timed out after " + e.callTimeout.String())
		}
		return models.ExtractionResult{SourceID: ext.ID(), Error: err.Error()}
	}
}

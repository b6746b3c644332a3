// Package extractor turns a meter photo into a numeric reading. Every variant
// degrades failures to a zero value instead of returning an error, so the
// consensus engine can treat all sources uniformly.
package extractor

import (
	"context"

	"meter_reading/internal/models"
)

// Kind separates the two priority classes used by consensus voting.
type Kind string

const (
	KindLocal  Kind = "local"
	KindRemote Kind = "remote"
)

// Extractor is one reading source.
type Extractor interface {
	ID() string
	Kind() Kind
	// Extract never fails: a failed read yields Value 0 and a message in Error.
	Extract(ctx context.Context, image []byte, hint, prompt string) models.ExtractionResult
}

func failed(id string, raw string, err error) models.ExtractionResult {
	res := models.ExtractionResult{SourceID: id, RawText: raw}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"meter_reading/internal/logger"
	"meter_reading/internal/models"
	"meter_reading/internal/repository"
	"meter_reading/internal/validation"
)

// ReadingService runs ad-hoc consensus readings on uploaded images.
type ReadingService struct {
	meters   repository.MeterRepo
	resolver validation.Resolver
	log      *logger.Logger
}

func NewReadingService(meters repository.MeterRepo, resolver validation.Resolver, log *logger.Logger) *ReadingService {
	return &ReadingService{meters: meters, resolver: resolver, log: orNop(log).Named("readings")}
}

// Extract resolves one reading. When a meter serial is given, the meter's
// custom prompt and expected reading fill in a missing prompt and hint.
func (s *ReadingService) Extract(ctx context.Context, p ExtractParams) (models.ConsensusOutcome, error) {
	if len(p.Image) == 0 {
		return models.ConsensusOutcome{}, fmt.Errorf("%w: image is empty", ErrInvalidInput)
	}
	hint, prompt := strings.TrimSpace(p.Hint), strings.TrimSpace(p.Prompt)

	if serial := strings.TrimSpace(p.MeterSerial); serial != "" {
		m, err := s.meters.GetBySerial(ctx, serial)
		if err != nil {
			return models.ConsensusOutcome{}, err
		}
		if m == nil {
			return models.ConsensusOutcome{}, fmt.Errorf("%w: %q", ErrMeterNotFound, serial)
		}
		if prompt == "" {
			prompt = m.CustomPrompt
		}
		if hint == "" && m.ExpectedReading != nil {
			hint = strconv.FormatFloat(*m.ExpectedReading, 'f', -1, 64)
		}
	}

	out := s.resolver.Resolve(ctx, p.Image, hint, prompt)
	if err := ctx.Err(); err != nil {
		return models.ConsensusOutcome{}, err
	}
	s.log.Infow("reading_extracted", "meter_serial", p.MeterSerial, "value", out.FinalValue, "rule", out.Rule)
	return out, nil
}

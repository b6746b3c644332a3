package consensus

import (
	"meter_reading/internal/extractor"
	"meter_reading/internal/models"
)

// Confidence reported per rule. Fallback reports the source's own confidence,
// capped at FallbackConfidenceCap.
const (
	CalibrationConfidence          = 1.0
	RemoteAgreementConfidence      = 0.95
	RemoteLocalAgreementConfidence = 0.9
	LocalAgreementConfidence       = 0.85
	FallbackConfidenceCap          = 0.75
)

// Decide applies the voting rules in order and returns the first that matches.
// remotes and locals must be in priority order. Values are compared exactly.
func Decide(remotes, locals []models.ExtractionResult, hint string) models.ConsensusOutcome {
	out := models.ConsensusOutcome{
		Rule:                models.RuleNone,
		ContributingSources: []string{},
		Results:             append(append(make([]models.ExtractionResult, 0, len(remotes)+len(locals)), remotes...), locals...),
	}

	if hv, ok := extractor.ParseHint(hint); ok && hv > 0 {
		var sources []string
		for _, r := range out.Results {
			if r.Value == hv {
				sources = append(sources, r.SourceID)
			}
		}
		if len(sources) > 0 {
			return resolved(out, hv, models.RuleCalibration, CalibrationConfidence, sources...)
		}
	}

	for i := 0; i < len(remotes); i++ {
		if !remotes[i].HasValue() {
			continue
		}
		for j := i + 1; j < len(remotes); j++ {
			if remotes[j].Value == remotes[i].Value {
				return resolved(out, remotes[i].Value, models.RuleRemoteAgreement, RemoteAgreementConfidence,
					remotes[i].SourceID, remotes[j].SourceID)
			}
		}
	}

	if len(remotes) > 0 && remotes[0].HasValue() {
		for _, l := range locals {
			if l.Value == remotes[0].Value {
				return resolved(out, l.Value, models.RuleRemoteLocalAgreement, RemoteLocalAgreementConfidence,
					remotes[0].SourceID, l.SourceID)
			}
		}
	}

	for i := 0; i < len(locals); i++ {
		if !locals[i].HasValue() {
			continue
		}
		for j := i + 1; j < len(locals); j++ {
			if locals[j].Value == locals[i].Value {
				return resolved(out, locals[i].Value, models.RuleLocalAgreement, LocalAgreementConfidence,
					locals[i].SourceID, locals[j].SourceID)
			}
		}
	}

	for _, r := range out.Results {
		if r.HasValue() {
			return resolved(out, r.Value, models.RulePriorityFallback, min(r.Confidence, FallbackConfidenceCap), r.SourceID)
		}
	}
	return out
}

func resolved(out models.ConsensusOutcome, value float64, rule models.ConsensusRule, confidence float64, sources ...string) models.ConsensusOutcome {
	out.FinalValue = value
	out.Rule = rule
	out.Confidence = confidence
	out.ContributingSources = sources
	return out
}

package models

// ExtractionResult is what a single extractor produced for one image.
// Value 0 means "no usable reading"; it is not an error.
type ExtractionResult struct {
	SourceID   string  `json:"source_id"`
	Value      float64 `json:"value"`
	RawText    string  `json:"raw_text"`
	Confidence float64 `json:"confidence"`
	Calibrated bool    `json:"calibrated,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// HasValue reports whether the extractor produced a positive reading.
func (r ExtractionResult) HasValue() bool { return r.Value > 0 }

// ConsensusRule names the voting rule that decided a consensus outcome.
type ConsensusRule string

const (
	RuleCalibration          ConsensusRule = "calibration"
	RuleRemoteAgreement      ConsensusRule = "remote_agreement"
	RuleRemoteLocalAgreement ConsensusRule = "remote_local_agreement"
	RuleLocalAgreement       ConsensusRule = "local_agreement"
	RulePriorityFallback     ConsensusRule = "priority_fallback"
	RuleNone                 ConsensusRule = "none"
)

// ConsensusOutcome is the reconciled reading. FinalValue 0 is the no-reading sentinel.
type ConsensusOutcome struct {
	FinalValue          float64            `json:"final_value"`
	Rule                ConsensusRule      `json:"rule_applied"`
	ContributingSources []string           `json:"contributing_sources"`
	Confidence          float64            `json:"confidence"`
	Results             []ExtractionResult `json:"results"`
}

// HasReading reports whether consensus produced a reading at all.
func (o ConsensusOutcome) HasReading() bool { return o.FinalValue > 0 }

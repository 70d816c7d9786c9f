// Package risk derives normalized risk scores and levels from sets of scored
// threat signals. The severity weight table and the score thresholds are
// policy data, kept separate from the algorithm so they can be tuned without
// touching it.
package risk

import (
	"fmt"
	"sort"

	"github.com/xkilldash9x/threatgraph/api/schemas"
)

// Threat is the minimal signal shape the classifier consumes: a severity and
// a confidence on the [0,1] scale.
type Threat struct {
	Severity   schemas.Severity
	Confidence float64
}

// Policy bundles the tunable constants of the classifier.
type Policy struct {
	// Weights maps each severity level to its integer importance.
	Weights map[schemas.Severity]int
	// NormalizationFactor scales the weighted sum onto [0,100]. It is chosen
	// so a single critical signal at full confidence lands near, but not at,
	// the cap; reaching 100 takes corroborating signals.
	NormalizationFactor float64
	// Thresholds maps minimum scores to levels, evaluated highest first.
	Thresholds []Threshold
}

// Threshold is one score boundary in the score-to-level mapping.
type Threshold struct {
	MinScore float64
	Level    schemas.RiskLevel
}

// DefaultPolicy returns the standard weight table and thresholds.
func DefaultPolicy() Policy {
	return Policy{
		Weights: map[schemas.Severity]int{
			schemas.SeverityCritical: 10,
			schemas.SeverityHigh:     8,
			schemas.SeverityMedium:   5,
			schemas.SeverityLow:      2,
			schemas.SeverityInfo:     1,
			schemas.SeverityUnknown:  0,
		},
		NormalizationFactor: 9.5,
		Thresholds: []Threshold{
			{MinScore: 80, Level: schemas.RiskCritical},
			{MinScore: 60, Level: schemas.RiskHigh},
			{MinScore: 35, Level: schemas.RiskMedium},
			{MinScore: 10, Level: schemas.RiskLow},
			{MinScore: 0, Level: schemas.RiskInfo},
		},
	}
}

// SeverityWeight returns the policy weight for a severity level. Unknown or
// unrecognized severities weigh zero.
func (p Policy) SeverityWeight(s schemas.Severity) int {
	return p.Weights[s]
}

// LevelForScore maps a [0,100] score to its discrete level.
func (p Policy) LevelForScore(score float64) schemas.RiskLevel {
	for _, t := range p.Thresholds {
		if score >= t.MinScore {
			return t.Level
		}
	}
	return schemas.RiskInfo
}

// Classify computes the aggregate risk score and level for a set of threat
// signals. The input is canonicalized (severity weight descending, then
// confidence descending) before summation so any permutation of the same
// multiset produces the identical result. An empty input is not an error: it
// scores 0 / info.
func Classify(threats []Threat, policy Policy) (float64, schemas.RiskLevel) {
	if len(threats) == 0 {
		return 0, schemas.RiskInfo
	}

	ordered := make([]Threat, len(threats))
	copy(ordered, threats)
	sort.SliceStable(ordered, func(i, j int) bool {
		wi, wj := policy.SeverityWeight(ordered[i].Severity), policy.SeverityWeight(ordered[j].Severity)
		if wi != wj {
			return wi > wj
		}
		return ordered[i].Confidence > ordered[j].Confidence
	})

	var sum float64
	for _, t := range ordered {
		conf := clamp01(t.Confidence)
		sum += float64(policy.SeverityWeight(t.Severity)) * conf
	}

	score := sum * policy.NormalizationFactor
	if score > 100 {
		score = 100
	}
	return score, policy.LevelForScore(score)
}

// ClassifyThreats adapts a slice of wire-format detected threats to the
// classifier. Used by the SMS ingestion path to validate backend scores.
func ClassifyThreats(detected []schemas.DetectedThreat, policy Policy) (float64, schemas.RiskLevel) {
	threats := make([]Threat, 0, len(detected))
	for _, d := range detected {
		threats = append(threats, Threat{Severity: d.Severity, Confidence: d.Confidence})
	}
	return Classify(threats, policy)
}

// -- Confidence Scale Conversions --
// Entities carry [0,1] float confidence, indicators carry 0-100 integer
// percent. The two scales never convert implicitly.

// FromPercent converts an indicator's 0-100 integer confidence to the [0,1]
// float scale. Out-of-range input is an error, never silently clamped.
func FromPercent(percent int) (float64, error) {
	if percent < 0 || percent > 100 {
		return 0, fmt.Errorf("confidence percent %d out of range [0,100]", percent)
	}
	return float64(percent) / 100.0, nil
}

// ToPercent converts a [0,1] float confidence to integer percent.
func ToPercent(confidence float64) (int, error) {
	if confidence < 0 || confidence > 1 {
		return 0, fmt.Errorf("confidence %g out of range [0,1]", confidence)
	}
	return int(confidence*100.0 + 0.5), nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

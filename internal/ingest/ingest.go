// Package ingest is the boundary between backend-delivered payloads and the
// correlation graph. It applies entity/relation batches transactionally,
// folds threat indicators into the catalog with explicit confidence scale
// conversion, and validates backend-supplied SMS risk scores against the
// local classifier.
package ingest

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/threatgraph/api/schemas"
	"github.com/xkilldash9x/threatgraph/internal/graph"
	"github.com/xkilldash9x/threatgraph/internal/risk"
)

// scoreTolerance is how far the backend's risk score may drift from the
// recomputed one before the mismatch is surfaced as a warning.
const scoreTolerance = 0.5

// Adapter applies external payloads to a Graph.
type Adapter struct {
	graph  *graph.Graph
	policy risk.Policy
	logger *zap.Logger
}

// New creates an ingestion adapter. A nil logger falls back to a no-op.
func New(g *graph.Graph, policy risk.Policy, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		graph:  g,
		policy: policy,
		logger: logger.Named("ingest"),
	}
}

// ApplyBatch applies one batch atomically. See graph.ApplyBatch for the
// two-phase semantics.
func (a *Adapter) ApplyBatch(batch schemas.IngestBatch) (schemas.BatchResult, error) {
	return a.graph.ApplyBatch(batch)
}

// IngestIndicators folds feed indicators into the catalog as indicator
// entities, converting their 0-100 integer confidence to the entity scale
// explicitly. Expired indicators are still upserted: they stay present in
// the graph, they just stop contributing to risk (see ScoreIndicators).
// Attribution fields become relations when the referenced campaign or actor
// is already known; unknown attributions are reported as rejections.
func (a *Adapter) IngestIndicators(indicators []schemas.ThreatIndicator) (schemas.BatchResult, error) {
	batch := schemas.IngestBatch{}
	for _, indicator := range indicators {
		confidence, err := risk.FromPercent(indicator.Confidence)
		if err != nil {
			return schemas.BatchResult{}, fmt.Errorf("indicator %q: %w", indicator.ID, err)
		}

		firstSeen := indicator.CreatedAt
		lastSeen := indicator.UpdatedAt
		batch.Entities = append(batch.Entities, schemas.Entity{
			ID:         indicator.ID,
			Name:       indicator.Value,
			Kind:       schemas.KindIndicator,
			Confidence: &confidence,
			Severity:   indicator.Severity,
			FirstSeen:  &firstSeen,
			LastSeen:   &lastSeen,
		})

		if indicator.CampaignID != "" {
			batch.Relations = append(batch.Relations, schemas.Relation{
				ID:           fmt.Sprintf("%s:part-of:%s", indicator.ID, indicator.CampaignID),
				SourceID:     indicator.ID,
				TargetID:     indicator.CampaignID,
				RelationType: schemas.RelationPartOf,
			})
		}
		if indicator.ActorID != "" {
			batch.Relations = append(batch.Relations, schemas.Relation{
				ID:           fmt.Sprintf("%s:attributed-to:%s", indicator.ID, indicator.ActorID),
				SourceID:     indicator.ID,
				TargetID:     indicator.ActorID,
				RelationType: schemas.RelationAttributedTo,
			})
		}
	}
	return a.graph.ApplyBatch(batch)
}

// ScoreIndicators classifies the given indicators as one threat set.
// Indicators past their expiry are present but inactive, so they are
// excluded from the aggregation rather than scored at zero weight.
func (a *Adapter) ScoreIndicators(indicators []schemas.ThreatIndicator, now time.Time) (float64, schemas.RiskLevel, error) {
	threats := make([]risk.Threat, 0, len(indicators))
	for _, indicator := range indicators {
		if !indicator.Active(now) {
			continue
		}
		confidence, err := risk.FromPercent(indicator.Confidence)
		if err != nil {
			return 0, schemas.RiskInfo, fmt.Errorf("indicator %q: %w", indicator.ID, err)
		}
		threats = append(threats, risk.Threat{Severity: indicator.Severity, Confidence: confidence})
	}
	score, level := risk.Classify(threats, a.policy)
	return score, level, nil
}

// IngestSMS folds one analyzed message into the graph. The overall risk is
// recomputed locally from the detected threats; a disagreement with the
// backend-supplied score beyond the tolerance is reported as a warning on
// the result, which is how inconsistent upstream data gets spotted.
func (a *Adapter) IngestSMS(analysis schemas.SMSAnalysisResponse) (schemas.BatchResult, error) {
	score, level := risk.ClassifyThreats(analysis.DetectedThreats, a.policy)

	batch := schemas.IngestBatch{}
	for _, threat := range analysis.DetectedThreats {
		if threat.IndicatorID == "" {
			continue // signal without a backing indicator, nothing to correlate
		}
		name := threat.MatchedPattern
		if name == "" {
			name = threat.Type
		}
		confidence := threat.Confidence
		analyzedAt := analysis.AnalyzedAt
		batch.Entities = append(batch.Entities, schemas.Entity{
			ID:         threat.IndicatorID,
			Name:       name,
			Kind:       schemas.KindIndicator,
			Confidence: &confidence,
			Severity:   threat.Severity,
			LastSeen:   &analyzedAt,
		})
	}

	result, err := a.graph.ApplyBatch(batch)
	if err != nil {
		return schemas.BatchResult{}, err
	}

	if math.Abs(score-analysis.RiskScore) > scoreTolerance || level != analysis.RiskLevel {
		warning := fmt.Sprintf(
			"backend risk %.1f/%s disagrees with recomputed %.1f/%s for message %s",
			analysis.RiskScore, analysis.RiskLevel, score, level, analysis.ID)
		result.Warnings = append(result.Warnings, warning)
		a.logger.Warn("Backend risk score mismatch",
			zap.String("message_id", analysis.ID),
			zap.Float64("backend_score", analysis.RiskScore),
			zap.Float64("recomputed_score", score))
	}

	return result, nil
}

// ClassifyThreats exposes the classifier through the adapter so callers
// holding only the ingestion surface can validate threat sets.
func (a *Adapter) ClassifyThreats(threats []schemas.DetectedThreat) (float64, schemas.RiskLevel) {
	return risk.ClassifyThreats(threats, a.policy)
}

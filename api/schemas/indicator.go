package schemas

import "time"

// ThreatIndicator is a feed-delivered observable with attribution and a
// lifecycle. Note the confidence scale: indicators use integer percent
// (0-100), unlike Entity's [0,1] float. Conversions between the two scales
// are explicit, see risk.FromPercent / risk.ToPercent.
type ThreatIndicator struct {
	ID          string        `json:"id"`
	Value       string        `json:"value"`
	Type        IndicatorType `json:"type"`
	Severity    Severity      `json:"severity"`
	Confidence  int           `json:"confidence"` // 0-100
	Platforms   []Platform    `json:"platforms,omitempty"`
	CampaignID  string        `json:"campaign_id,omitempty"`
	ActorID     string        `json:"actor_id,omitempty"`
	Description string        `json:"description,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	ExpiresAt   *time.Time    `json:"expires_at,omitempty"`
}

// Active reports whether the indicator should still contribute to risk
// scoring at the given instant. Expired indicators remain present in the
// catalog but are treated as inactive until explicitly purged.
func (i *ThreatIndicator) Active(now time.Time) bool {
	if i.ExpiresAt == nil {
		return true
	}
	return now.Before(*i.ExpiresAt)
}

// AppliesTo reports whether the indicator is scoped to the given platform.
// An empty platform set or an "all" entry matches every platform.
func (i *ThreatIndicator) AppliesTo(p Platform) bool {
	if len(i.Platforms) == 0 {
		return true
	}
	for _, candidate := range i.Platforms {
		if candidate == PlatformAll || candidate == p {
			return true
		}
	}
	return false
}

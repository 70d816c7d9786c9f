package schemas

// EntityKind categorizes nodes in the threat correlation graph.
type EntityKind string

const (
	KindIndicator EntityKind = "indicator"
	KindCampaign  EntityKind = "campaign"
	KindActor     EntityKind = "actor"
	KindMalware   EntityKind = "malware"
	KindTool      EntityKind = "tool"
)

// AllEntityKinds lists every valid kind, used for validation.
var AllEntityKinds = []EntityKind{
	KindIndicator, KindCampaign, KindActor, KindMalware, KindTool,
}

// IsValid reports whether the kind is a member of the closed enumeration.
func (k EntityKind) IsValid() bool {
	for _, valid := range AllEntityKinds {
		if k == valid {
			return true
		}
	}
	return false
}

// Severity is the ordered severity scale shared by entities, indicators and
// detected threats. Its numeric weight lives in the risk package's policy
// table, not here.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
	SeverityUnknown  Severity = "unknown"
)

// AllSeverities lists every valid severity, ordered from most to least severe.
var AllSeverities = []Severity{
	SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo, SeverityUnknown,
}

// IsValid reports whether the severity is a known level.
func (s Severity) IsValid() bool {
	for _, valid := range AllSeverities {
		if s == valid {
			return true
		}
	}
	return false
}

// RiskLevel is the discretized category derived from a [0,100] risk score.
type RiskLevel string

const (
	RiskCritical RiskLevel = "critical"
	RiskHigh     RiskLevel = "high"
	RiskMedium   RiskLevel = "medium"
	RiskLow      RiskLevel = "low"
	RiskInfo     RiskLevel = "info"
)

// IndicatorType categorizes the observable an indicator matches against.
type IndicatorType string

const (
	IndicatorDomain   IndicatorType = "domain"
	IndicatorURL      IndicatorType = "url"
	IndicatorIP       IndicatorType = "ip"
	IndicatorHash     IndicatorType = "hash"
	IndicatorEmail    IndicatorType = "email"
	IndicatorPhone    IndicatorType = "phone"
	IndicatorDeviceID IndicatorType = "device_id"
)

// AllIndicatorTypes lists every valid indicator type.
var AllIndicatorTypes = []IndicatorType{
	IndicatorDomain, IndicatorURL, IndicatorIP, IndicatorHash,
	IndicatorEmail, IndicatorPhone, IndicatorDeviceID,
}

// IsValid reports whether the indicator type is known.
func (t IndicatorType) IsValid() bool {
	for _, valid := range AllIndicatorTypes {
		if t == valid {
			return true
		}
	}
	return false
}

// Platform marks which client platforms an indicator applies to.
type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
	PlatformWeb     Platform = "web"
	PlatformAll     Platform = "all"
)

// RelationType is the label on a directed edge. The backend treats it as an
// open vocabulary, so no closed validation is applied; well-known values are
// listed for convenience.
type RelationType string

const (
	RelationUses         RelationType = "uses"
	RelationAttributedTo RelationType = "attributed-to"
	RelationIndicates    RelationType = "indicates"
	RelationPartOf       RelationType = "part-of"
	RelationDelivers     RelationType = "delivers"
	RelationTargets      RelationType = "targets"
)

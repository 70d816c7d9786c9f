package schemas

import "time"

// -- SMS Analysis Models --
// The content analysis itself happens upstream; these types mirror the
// finished result the backend delivers. The ingestion path re-derives the
// overall risk from DetectedThreats to validate the backend's numbers.

// DetectedThreat is one scored signal found in a message.
type DetectedThreat struct {
	Type           string   `json:"type"`
	Severity       Severity `json:"severity"`
	Confidence     float64  `json:"confidence"` // [0,1]
	MatchedPattern string   `json:"matched_pattern,omitempty"`
	IndicatorID    string   `json:"indicator_id,omitempty"`
}

// DetectedIntent is a persuasion technique identified in the message body.
type DetectedIntent struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"` // [0,1]
	Evidence   string  `json:"evidence,omitempty"`
}

// SenderAnalysis summarizes what is known about the sending number or id.
type SenderAnalysis struct {
	Sender        string `json:"sender"`
	IsSpoofed     bool   `json:"is_spoofed"`
	IsKnownSender bool   `json:"is_known_sender"`
	CountryCode   string `json:"country_code,omitempty"`
	CarrierInfo   string `json:"carrier_info,omitempty"`
}

// ExtractedURL is a URL pulled out of the message content.
type ExtractedURL struct {
	URL         string `json:"url"`
	Domain      string `json:"domain"`
	IsShortened bool   `json:"is_shortened"`
	ExpandedURL string `json:"expanded_url,omitempty"`
	IsMalicious bool   `json:"is_malicious"`
}

// SMSAnalysisResponse is the backend's finished analysis of one message.
type SMSAnalysisResponse struct {
	ID              string           `json:"id"`
	Content         string           `json:"content"`
	Sender          string           `json:"sender"`
	ExtractedURLs   []ExtractedURL   `json:"extracted_urls,omitempty"`
	DetectedThreats []DetectedThreat `json:"detected_threats,omitempty"`
	DetectedIntents []DetectedIntent `json:"detected_intents,omitempty"`
	SenderAnalysis  *SenderAnalysis  `json:"sender_analysis,omitempty"`
	IsPhishing      bool             `json:"is_phishing"`
	RiskScore       float64          `json:"risk_score"` // [0,100]
	RiskLevel       RiskLevel        `json:"risk_level"`
	AnalyzedAt      time.Time        `json:"analyzed_at"`
}

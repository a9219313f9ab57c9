package models

// Alert statuses.
const (
	SOSActive     = "active"
	SOSResponding = "responding"
	SOSResolved   = "resolved"
	SOSFalseAlarm = "false_alarm"
)

// Alert types and urgencies accepted at create time.
var (
	SOSTypes     = []string{"medical", "fire", "crime", "accident", "other"}
	SOSUrgencies = []string{"low", "medium", "high", "critical"}
)

// Location is a point plus the best-effort reverse-geocoded address.
type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
	City    string  `json:"city,omitempty"`
}

type SOSAlert struct {
	ID       string `json:"id"`
	Incident string `json:"incident,omitempty"`
	User     string `json:"user"`
	Type     string `json:"type"`
	Urgency  string `json:"urgency"`
	Message  string `json:"message,omitempty"`

	Location Location `json:"location"`

	Status    string `json:"status"`
	Responder string `json:"responder,omitempty"`

	CreatedTS  int64 `json:"created_ts"`
	UpdatedTS  int64 `json:"updated_ts,omitempty"`
	ResolvedTS int64 `json:"resolved_ts,omitempty"`
}

// Terminal reports whether the alert is in a final state.
func (a *SOSAlert) Terminal() bool {
	return a.Status == SOSResolved || a.Status == SOSFalseAlarm
}

// CanTransition reports whether moving from the alert's current status to
// next is allowed. Terminal states never transition.
func (a *SOSAlert) CanTransition(next string) bool {
	if a.Terminal() {
		return false
	}
	switch a.Status {
	case SOSActive:
		return next == SOSResponding || next == SOSResolved || next == SOSFalseAlarm
	case SOSResponding:
		return next == SOSResolved || next == SOSFalseAlarm
	}
	return false
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// ValidSOSType reports whether t is an accepted alert type.
func ValidSOSType(t string) bool { return contains(SOSTypes, t) }

// ValidSOSUrgency reports whether u is an accepted urgency.
func ValidSOSUrgency(u string) bool { return contains(SOSUrgencies, u) }

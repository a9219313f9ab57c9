package models

// Report statuses.
const (
	ReportOpen      = "open"
	ReportReviewed  = "reviewed"
	ReportDismissed = "dismissed"
)

// Report flags.
var ReportFlags = []string{"offensive", "spam", "fake", "harassment", "other"}

// Report target kinds.
const (
	TargetMessage = "message"
	TargetUser    = "user"
)

// Report is an abuse report filed against a message or a user.
type Report struct {
	ID          string `json:"id"`
	Reporter    string `json:"reporter"`
	TargetKind  string `json:"target_kind"`
	TargetID    string `json:"target_id"`
	Flag        string `json:"flag"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	CreatedTS   int64  `json:"created_ts"`
	ReviewedBy  string `json:"reviewed_by,omitempty"`
	ReviewedTS  int64  `json:"reviewed_ts,omitempty"`
}

// ValidReportFlag reports whether f is an accepted abuse flag.
func ValidReportFlag(f string) bool { return contains(ReportFlags, f) }

// ValidTargetKind reports whether k names a reportable entity.
func ValidTargetKind(k string) bool { return k == TargetMessage || k == TargetUser }

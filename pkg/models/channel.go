package models

// Channel is the per-city chat feed metadata. Channels are created
// implicitly the first time a message is posted for a city.
type Channel struct {
	City      string `json:"city"`
	CreatedTS int64  `json:"created_ts,omitempty"`
	// UpdatedTS is the timestamp of the last message activity
	UpdatedTS int64 `json:"updated_ts,omitempty"`
	// LastAuthor and LastPreview drive channel list screens
	LastAuthor  string `json:"last_author,omitempty"`
	LastPreview string `json:"last_preview,omitempty"`
}

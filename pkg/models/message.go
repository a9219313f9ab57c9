package models

// MessageKind enumerates the supported attachment modes of a chat message.
const (
	KindText     = "text"
	KindImage    = "image"
	KindVideo    = "video"
	KindAudio    = "audio"
	KindDocument = "document"
	KindLocation = "location"
)

// Attachment carries the metadata of a non-text message payload. URL
// points into the media store (or an external object URL).
type Attachment struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
	Size int64  `json:"size,omitempty"`
	Mime string `json:"mime,omitempty"`
	// DurationSec is set for audio/video attachments
	DurationSec float64 `json:"duration_sec,omitempty"`
	// Lat/Lng are set for location attachments
	Lat float64 `json:"lat,omitempty"`
	Lng float64 `json:"lng,omitempty"`
}

type Message struct {
	ID     string `json:"id"`
	City   string `json:"city"`
	Author string `json:"author,omitempty"`
	TS     int64  `json:"ts"`
	Kind   string `json:"kind,omitempty"`
	Body   string `json:"body,omitempty"`
	// Attachment is present for non-text kinds
	Attachment *Attachment `json:"attachment,omitempty"`
	// ReadBy lists user ids that have seen the message
	ReadBy []string `json:"read_by,omitempty"`
	// Deleted flag; soft-delete implemented as an appended tombstone version
	Deleted bool `json:"deleted,omitempty"`
	// DeletedTS records when the tombstone was written; retention ages
	// tombstones by this, not by creation time
	DeletedTS int64 `json:"deleted_ts,omitempty"`
	// Reactions maps user id -> reaction key
	Reactions map[string]string `json:"reactions,omitempty"`
}

// ValidKind reports whether k is a known message kind. Empty is treated
// as text for older clients.
func ValidKind(k string) bool {
	switch k {
	case "", KindText, KindImage, KindVideo, KindAudio, KindDocument, KindLocation:
		return true
	}
	return false
}

// MarkRead appends reader to ReadBy once. Returns false when the reader
// was already recorded.
func (m *Message) MarkRead(reader string) bool {
	for _, r := range m.ReadBy {
		if r == reader {
			return false
		}
	}
	m.ReadBy = append(m.ReadBy, reader)
	return true
}

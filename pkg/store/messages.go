package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"citysafe/pkg/logger"
	"citysafe/pkg/models"

	"github.com/cockroachdb/pebble"
)

// seq reduces version-key collisions when updates land on the same
// nanosecond timestamp.
var seq uint64

// msgKey is stable per message: the creation timestamp orders the
// channel, the ID suffix keeps same-nanosecond messages distinct and
// lets updates overwrite in place.
func msgKey(city string, ts int64, id string) string {
	return fmt.Sprintf("chat:%s:msg:%020d-%s", city, ts, id)
}

func channelMetaKey(city string) string {
	return "chat:" + city + ":meta"
}

// SaveMessage writes a message into its city channel under a key
// derived from the creation timestamp, appends a copy to the
// per-message version namespace and refreshes the channel metadata.
// Saving the same message again (read receipts, reactions, deletes)
// overwrites the channel slot and appends a new version.
func SaveMessage(msg models.Message) error {
	if db == nil {
		return notOpen()
	}
	if msg.City == "" {
		return fmt.Errorf("message city is required")
	}
	if msg.ID == "" {
		return fmt.Errorf("message id is required")
	}
	if msg.TS == 0 {
		msg.TS = time.Now().UTC().UnixNano()
	}
	key := msgKey(msg.City, msg.TS, msg.ID)

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := db.Set([]byte(key), data, pebble.Sync); err != nil {
		logger.Error("save_message_failed", "city", msg.City, "key", key, "error", err)
		return err
	}

	// append-only version trail, keyed by write time
	now := time.Now().UTC().UnixNano()
	s := atomic.AddUint64(&seq, 1)
	idxKey := fmt.Sprintf("version:msg:%s:%020d-%06d", msg.ID, now, s)
	if err := db.Set([]byte(idxKey), data, pebble.Sync); err != nil {
		logger.Error("save_message_index_failed", "key", idxKey, "error", err)
		return err
	}

	if err := touchChannel(msg); err != nil {
		logger.Warn("channel_touch_failed", "city", msg.City, "error", err)
	}
	logger.Info("message_saved", "city", msg.City, "id", msg.ID)
	return nil
}

// touchChannel creates or refreshes the channel metadata for a message.
func touchChannel(msg models.Message) error {
	var ch models.Channel
	if s, err := GetKey(channelMetaKey(msg.City)); err == nil {
		_ = json.Unmarshal([]byte(s), &ch)
	} else {
		ch = models.Channel{City: msg.City, CreatedTS: msg.TS}
	}
	// re-saves of an older message (reads, reactions, deletes) must not
	// rewind the channel's last activity
	if msg.TS < ch.UpdatedTS {
		return nil
	}
	ch.City = msg.City
	ch.UpdatedTS = msg.TS
	ch.LastAuthor = msg.Author
	if !msg.Deleted {
		ch.LastPreview = preview(msg)
	}
	b, err := json.Marshal(ch)
	if err != nil {
		return err
	}
	return SaveKey(channelMetaKey(msg.City), b)
}

// preview returns the single line shown in channel lists.
func preview(msg models.Message) string {
	if msg.Kind == "" || msg.Kind == models.KindText {
		body := msg.Body
		if len(body) > 80 {
			body = body[:80]
		}
		return body
	}
	return "[" + msg.Kind + "]"
}

// ListMessages returns a city channel's messages in insertion order.
// after (unix ns, exclusive) skips older entries; limit > 0 caps the
// returned count.
func ListMessages(city string, after int64, limit int) ([]models.Message, error) {
	if db == nil {
		return nil, notOpen()
	}
	prefix := []byte("chat:" + city + ":msg:")
	seekTo := prefix
	if after > 0 {
		seekTo = []byte(fmt.Sprintf("chat:%s:msg:%020d-", city, after+1))
	}
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Message
	for iter.SeekGE(seekTo); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			logger.Warn("invalid_stored_message", "key", string(iter.Key()))
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, iter.Error()
}

// ListMessageVersions returns all stored versions for a message ID in
// chronological order.
func ListMessageVersions(msgID string) ([]string, error) {
	return scanPrefix("version:msg:"+msgID+":", 0)
}

// GetLatestMessage returns the newest version for a message ID.
func GetLatestMessage(msgID string) (models.Message, error) {
	var m models.Message
	vers, err := ListMessageVersions(msgID)
	if err != nil {
		return m, err
	}
	if len(vers) == 0 {
		return m, fmt.Errorf("message not found: %s", msgID)
	}
	if err := json.Unmarshal([]byte(vers[len(vers)-1]), &m); err != nil {
		return m, fmt.Errorf("invalid stored message: %w", err)
	}
	return m, nil
}

// ListChannels returns all channel metadata values.
func ListChannels() ([]models.Channel, error) {
	if db == nil {
		return nil, notOpen()
	}
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	prefix := []byte("chat:")
	var out []models.Channel
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		if !strings.HasSuffix(string(iter.Key()), ":meta") {
			continue
		}
		var ch models.Channel
		if err := json.Unmarshal(iter.Value(), &ch); err == nil {
			out = append(out, ch)
		}
	}
	return out, iter.Error()
}

// PurgeMessage removes every stored copy of a message: channel entries
// and the version namespace. Used by the retention sweeper.
func PurgeMessage(city, msgID string) error {
	if db == nil {
		return notOpen()
	}
	// channel entries: scan and match on id
	prefix := []byte("chat:" + city + ":msg:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return err
	}
	var doomed [][]byte
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var m models.Message
		if json.Unmarshal(iter.Value(), &m) == nil && m.ID == msgID {
			doomed = append(doomed, append([]byte(nil), iter.Key()...))
		}
	}
	if err := iter.Error(); err != nil {
		iter.Close()
		return err
	}
	iter.Close()
	for _, k := range doomed {
		if err := db.Delete(k, pebble.Sync); err != nil {
			return err
		}
	}
	vkeys, err := ListKeys("version:msg:" + msgID + ":")
	if err != nil {
		return err
	}
	for _, k := range vkeys {
		if err := db.Delete([]byte(k), pebble.Sync); err != nil {
			return err
		}
	}
	return nil
}

package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"citysafe/pkg/logger"
	"citysafe/pkg/models"
)

func sosKey(id string) string { return "sos:alert:" + id }

var incidentMu sync.Mutex

// NextIncident returns the next incident number for an alert raised at
// now: the UTC date plus a zero-padded daily counter. The counter is a
// store key so numbers survive restarts; dispatchers quote them, and a
// reissued number could point at two different alerts.
func NextIncident(now time.Time) (string, error) {
	if db == nil {
		return "", notOpen()
	}
	day := now.UTC().Format("20060102")
	incidentMu.Lock()
	defer incidentMu.Unlock()
	n := uint64(1)
	if s, err := GetKey("incident:" + day); err == nil {
		if prev, perr := strconv.ParseUint(s, 10, 64); perr == nil {
			n = prev + 1
		}
	}
	if err := SaveKey("incident:"+day, []byte(strconv.FormatUint(n, 10))); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%06d", day, n), nil
}

func sosUserKey(user, id string) string { return "sos:user:" + user + ":" + id }

// SaveSOS stores an alert and the owner index entry.
func SaveSOS(a models.SOSAlert) error {
	if db == nil {
		return notOpen()
	}
	if a.ID == "" {
		return fmt.Errorf("alert id is required")
	}
	b, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}
	if err := SaveKey(sosKey(a.ID), b); err != nil {
		return err
	}
	if a.User != "" {
		if err := SaveKey(sosUserKey(a.User, a.ID), []byte(a.ID)); err != nil {
			return err
		}
	}
	logger.Info("sos_saved", "id", a.ID, "status", a.Status)
	return nil
}

// GetSOS returns the alert for an id.
func GetSOS(id string) (models.SOSAlert, error) {
	var a models.SOSAlert
	s, err := GetKey(sosKey(id))
	if err != nil {
		return a, fmt.Errorf("alert not found: %s", id)
	}
	if err := json.Unmarshal([]byte(s), &a); err != nil {
		return a, fmt.Errorf("invalid stored alert: %w", err)
	}
	return a, nil
}

// ListSOS returns alerts filtered by status and/or city; empty filters
// match everything. Results are in id order.
func ListSOS(status, city string, limit int) ([]models.SOSAlert, error) {
	vals, err := scanPrefix("sos:alert:", 0)
	if err != nil {
		return nil, err
	}
	var out []models.SOSAlert
	for _, v := range vals {
		var a models.SOSAlert
		if err := json.Unmarshal([]byte(v), &a); err != nil {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		if city != "" && a.Location.City != city {
			continue
		}
		out = append(out, a)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ListSOSByUser returns the alerts raised by a user.
func ListSOSByUser(user string) ([]models.SOSAlert, error) {
	ids, err := scanPrefix("sos:user:"+user+":", 0)
	if err != nil {
		return nil, err
	}
	var out []models.SOSAlert
	for _, id := range ids {
		a, err := GetSOS(id)
		if err != nil {
			logger.Warn("sos_index_dangling", "user", user, "id", id)
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// DeleteSOS removes an alert and its owner index entry.
func DeleteSOS(a models.SOSAlert) error {
	if db == nil {
		return notOpen()
	}
	if err := DeleteKey(sosKey(a.ID)); err != nil {
		return err
	}
	if a.User != "" {
		if err := DeleteKey(sosUserKey(a.User, a.ID)); err != nil {
			return err
		}
	}
	return nil
}

package store

import (
	"encoding/json"
	"fmt"

	"citysafe/pkg/models"
)

func reportKey(id string) string { return "report:" + id }

// SaveReport stores an abuse report.
func SaveReport(r models.Report) error {
	if db == nil {
		return notOpen()
	}
	if r.ID == "" {
		return fmt.Errorf("report id is required")
	}
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return SaveKey(reportKey(r.ID), b)
}

// GetReport returns the report for an id.
func GetReport(id string) (models.Report, error) {
	var r models.Report
	s, err := GetKey(reportKey(id))
	if err != nil {
		return r, fmt.Errorf("report not found: %s", id)
	}
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return r, fmt.Errorf("invalid stored report: %w", err)
	}
	return r, nil
}

// ListReports returns reports, optionally filtered by status.
func ListReports(status string) ([]models.Report, error) {
	vals, err := scanPrefix("report:", 0)
	if err != nil {
		return nil, err
	}
	var out []models.Report
	for _, v := range vals {
		var r models.Report
		if err := json.Unmarshal([]byte(v), &r); err != nil {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// DeleteReport removes a report record.
func DeleteReport(id string) error {
	if db == nil {
		return notOpen()
	}
	return DeleteKey(reportKey(id))
}

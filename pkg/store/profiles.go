package store

import (
	"encoding/json"
	"fmt"

	"citysafe/pkg/models"
)

func profileKey(id string) string { return "profile:" + id }

// SaveProfile stores a profile record.
func SaveProfile(p models.Profile) error {
	if db == nil {
		return notOpen()
	}
	if p.ID == "" {
		return fmt.Errorf("profile id is required")
	}
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	return SaveKey(profileKey(p.ID), b)
}

// GetProfile returns the profile for an id.
func GetProfile(id string) (models.Profile, error) {
	var p models.Profile
	s, err := GetKey(profileKey(id))
	if err != nil {
		return p, fmt.Errorf("profile not found: %s", id)
	}
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return p, fmt.Errorf("invalid stored profile: %w", err)
	}
	return p, nil
}

// ListProfiles returns all stored profiles.
func ListProfiles() ([]models.Profile, error) {
	vals, err := scanPrefix("profile:", 0)
	if err != nil {
		return nil, err
	}
	var out []models.Profile
	for _, v := range vals {
		var p models.Profile
		if err := json.Unmarshal([]byte(v), &p); err == nil {
			out = append(out, p)
		}
	}
	return out, nil
}

package models

// Roles. Employees see dashboards, admins additionally manage roles and
// raw store access.
const (
	RoleUser     = "user"
	RoleEmployee = "employee"
	RoleAdmin    = "admin"
)

// EmergencyContact is a person notified when the owner raises an alert.
type EmergencyContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Privacy controls what other users see on a profile.
type Privacy struct {
	HidePhone    bool `json:"hide_phone,omitempty"`
	HideContacts bool `json:"hide_contacts,omitempty"`
}

type Profile struct {
	ID         string             `json:"id"`
	Name       string             `json:"name,omitempty"`
	Phone      string             `json:"phone,omitempty"`
	City       string             `json:"city,omitempty"`
	PhotoURL   string             `json:"photo_url,omitempty"`
	BloodGroup string             `json:"blood_group,omitempty"`
	Contacts   []EmergencyContact `json:"contacts,omitempty"`
	Role       string             `json:"role,omitempty"`
	Privacy    Privacy            `json:"privacy,omitempty"`
	// PasswordHash is bcrypt, set only for employee/admin accounts. Never
	// serialized in API responses; handlers call Sanitized first.
	PasswordHash string `json:"password_hash,omitempty"`
	CreatedTS    int64  `json:"created_ts,omitempty"`
	UpdatedTS    int64  `json:"updated_ts,omitempty"`
}

// Staff reports whether the profile belongs to an employee or admin.
func (p *Profile) Staff() bool {
	return p.Role == RoleEmployee || p.Role == RoleAdmin
}

// Sanitized returns a copy safe to return to any caller: the password
// hash is always stripped; phone and contacts are stripped per privacy
// flags unless the viewer owns the profile or is staff.
func (p Profile) Sanitized(viewer string, viewerStaff bool) Profile {
	p.PasswordHash = ""
	if viewer == p.ID || viewerStaff {
		return p
	}
	if p.Privacy.HidePhone {
		p.Phone = ""
	}
	if p.Privacy.HideContacts {
		p.Contacts = nil
	}
	return p
}

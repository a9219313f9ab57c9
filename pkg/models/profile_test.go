package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizedStripsPasswordHash(t *testing.T) {
	p := Profile{ID: "u1", PasswordHash: "$2a$10$x"}
	require.Empty(t, p.Sanitized("u1", false).PasswordHash)
	require.Empty(t, p.Sanitized("", true).PasswordHash)
}

func TestSanitizedPrivacy(t *testing.T) {
	p := Profile{
		ID:       "u1",
		Phone:    "+905551112233",
		Contacts: []EmergencyContact{{Name: "mom", Phone: "+905550000000"}},
		Privacy:  Privacy{HidePhone: true, HideContacts: true},
	}

	stranger := p.Sanitized("u2", false)
	require.Empty(t, stranger.Phone)
	require.Nil(t, stranger.Contacts)

	owner := p.Sanitized("u1", false)
	require.Equal(t, p.Phone, owner.Phone)
	require.Len(t, owner.Contacts, 1)

	staff := p.Sanitized("u2", true)
	require.Equal(t, p.Phone, staff.Phone)
	require.Len(t, staff.Contacts, 1)
}

func TestStaff(t *testing.T) {
	require.False(t, (&Profile{Role: RoleUser}).Staff())
	require.True(t, (&Profile{Role: RoleEmployee}).Staff())
	require.True(t, (&Profile{Role: RoleAdmin}).Staff())
}

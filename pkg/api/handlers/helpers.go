package handlers

import (
	"net/http"
	"strconv"

	"citysafe/pkg/auth"
	"citysafe/pkg/models"
	"citysafe/pkg/store"
)

func roleName(r *http.Request) string { return r.Header.Get("X-Role-Name") }

func isAdminKey(r *http.Request) bool   { return roleName(r) == "admin" }
func isBackendKey(r *http.Request) bool { return roleName(r) == "backend" || isAdminKey(r) }

// callerID returns the verified user identity, if any.
func callerID(r *http.Request) string {
	return auth.UserIDFromContext(r.Context())
}

// isStaff reports whether the caller may use employee surfaces: either
// a backend/admin key, or a signed user whose profile carries an
// employee or admin role.
func isStaff(r *http.Request) bool {
	if isBackendKey(r) {
		return true
	}
	uid := callerID(r)
	if uid == "" {
		return false
	}
	p, err := store.GetProfile(uid)
	if err != nil {
		return false
	}
	return p.Staff()
}

// isAdminCaller is like isStaff but only admits the admin tier.
func isAdminCaller(r *http.Request) bool {
	if isAdminKey(r) {
		return true
	}
	uid := callerID(r)
	if uid == "" {
		return false
	}
	p, err := store.GetProfile(uid)
	if err != nil {
		return false
	}
	return p.Role == models.RoleAdmin
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func queryInt64(r *http.Request, name string, def int64) int64 {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func queryFloat(r *http.Request, name string) (float64, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

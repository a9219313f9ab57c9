package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"citysafe/pkg/auth"
	"citysafe/pkg/models"
	"citysafe/pkg/store"
	"citysafe/pkg/utils"
)

// RegisterProfiles mounts the user profile endpoints.
func RegisterProfiles(r *mux.Router) {
	r.HandleFunc("/profiles", listProfilesHandler).Methods("GET")
	r.HandleFunc("/profiles/{id}", putProfileHandler).Methods("PUT")
	r.HandleFunc("/profiles/{id}", getProfileHandler).Methods("GET")
	r.HandleFunc("/profiles/{id}/role", setRoleHandler).Methods("POST")
}

// profilePayload is the writable subset of a profile. Role and the
// password hash are managed through their own endpoints.
type profilePayload struct {
	Name       string                    `json:"name"`
	Phone      string                    `json:"phone"`
	City       string                    `json:"city"`
	PhotoURL   string                    `json:"photo_url"`
	BloodGroup string                    `json:"blood_group"`
	Contacts   []models.EmergencyContact `json:"contacts"`
	Privacy    models.Privacy            `json:"privacy"`
	Password   string                    `json:"password,omitempty"`
}

// putProfileHandler creates or updates a profile. A signed user may
// only write their own record; backend and admin keys may write any.
//
// @Summary Upsert profile
// @Tags profiles
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} models.Profile
// @Router /v1/profiles/{id} [put]
func putProfileHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id != callerID(r) && !isBackendKey(r) {
		utils.JSONError(w, http.StatusForbidden, "not your profile")
		return
	}
	var payload profilePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	now := time.Now().UnixNano()
	p, err := store.GetProfile(id)
	if err != nil {
		p = models.Profile{ID: id, Role: models.RoleUser, CreatedTS: now}
	}
	p.Name = payload.Name
	p.Phone = payload.Phone
	p.City = payload.City
	p.PhotoURL = payload.PhotoURL
	p.BloodGroup = payload.BloodGroup
	p.Contacts = payload.Contacts
	p.Privacy = payload.Privacy
	p.UpdatedTS = now
	if payload.Password != "" {
		hash, err := auth.HashPassword(payload.Password)
		if err != nil {
			utils.JSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		p.PasswordHash = hash
	}
	if err := store.SaveProfile(p); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "save failed")
		return
	}
	utils.JSONWrite(w, http.StatusOK, p.Sanitized(id, true))
}

// getProfileHandler returns a profile with privacy fields stripped for
// non-staff viewers who are not the owner.
func getProfileHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	p, err := store.GetProfile(id)
	if err != nil {
		utils.JSONError(w, http.StatusNotFound, "not found")
		return
	}
	utils.JSONWrite(w, http.StatusOK, p.Sanitized(callerID(r), isStaff(r)))
}

// listProfilesHandler is the staff directory.
func listProfilesHandler(w http.ResponseWriter, r *http.Request) {
	if !isStaff(r) {
		utils.JSONError(w, http.StatusForbidden, "staff only")
		return
	}
	profiles, err := store.ListProfiles()
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "list failed")
		return
	}
	out := make([]models.Profile, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p.Sanitized("", true))
	}
	utils.JSONWrite(w, http.StatusOK, out)
}

// setRoleHandler promotes or demotes a user. Admin only.
func setRoleHandler(w http.ResponseWriter, r *http.Request) {
	if !isAdminCaller(r) {
		utils.JSONError(w, http.StatusForbidden, "admin only")
		return
	}
	id := mux.Vars(r)["id"]
	var body struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	switch body.Role {
	case models.RoleUser, models.RoleEmployee, models.RoleAdmin:
	default:
		utils.JSONError(w, http.StatusBadRequest, "invalid role")
		return
	}
	p, err := store.GetProfile(id)
	if err != nil {
		utils.JSONError(w, http.StatusNotFound, "not found")
		return
	}
	p.Role = body.Role
	p.UpdatedTS = time.Now().UnixNano()
	if err := store.SaveProfile(p); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "save failed")
		return
	}
	utils.JSONWrite(w, http.StatusOK, p.Sanitized("", true))
}

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"citysafe/pkg/auth"
	"citysafe/pkg/config"
	"citysafe/pkg/logger"
	"citysafe/pkg/store"
	"citysafe/pkg/utils"
)

// RegisterLogin mounts the password login endpoint.
func RegisterLogin(r *mux.Router) {
	r.HandleFunc("/login", loginHandler).Methods("POST")
}

// loginHandler exchanges user credentials for a signed identity the
// client sends on subsequent requests. Failures are reported uniformly
// so the response does not reveal whether the account exists.
//
// @Summary Login
// @Tags profiles
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /v1/login [post]
func loginHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		User     string `json:"user"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.User == "" || body.Password == "" {
		utils.JSONError(w, http.StatusBadRequest, "missing credentials")
		return
	}
	p, err := store.GetProfile(body.User)
	if err != nil || p.PasswordHash == "" || !auth.CheckPassword(p.PasswordHash, body.Password) {
		logger.Warn("login_failed", "user", body.User)
		utils.JSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	secret := ""
	for k := range config.GetSigningKeys() {
		secret = k
		break
	}
	if secret == "" {
		utils.JSONError(w, http.StatusInternalServerError, "no signing key configured")
		return
	}
	utils.JSONWrite(w, http.StatusOK, map[string]string{
		"user":      p.ID,
		"signature": auth.Sign(secret, p.ID),
		"role":      p.Role,
	})
}

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"citysafe/pkg/auth"
	"citysafe/pkg/config"
	"citysafe/pkg/utils"
)

// RegisterSigning mounts the identity signing endpoint. Application
// backends call it after their own authentication to mint the
// signature mobile clients attach to every request.
func RegisterSigning(r *mux.Router) {
	r.HandleFunc("/sign", signHandler).Methods("POST")
}

func signHandler(w http.ResponseWriter, r *http.Request) {
	if !isBackendKey(r) {
		utils.JSONError(w, http.StatusForbidden, "backend key required")
		return
	}
	var body struct {
		User string `json:"user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.User == "" {
		utils.JSONError(w, http.StatusBadRequest, "missing user")
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
		"user":      body.User,
		"signature": auth.Sign(secret, body.User),
	})
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"citysafe/pkg/external"
	"citysafe/pkg/live"
	"citysafe/pkg/logger"
	"citysafe/pkg/models"
	"citysafe/pkg/store"
	"citysafe/pkg/utils"
)

// RegisterSOS mounts the emergency alert endpoints.
func RegisterSOS(r *mux.Router, hub *live.Hub, geo *external.GeocodeClient) {
	r.HandleFunc("/sos", createSOSHandler(hub, geo)).Methods("POST")
	r.HandleFunc("/sos", listSOSHandler).Methods("GET")
	r.HandleFunc("/sos/mine", listMySOSHandler).Methods("GET")
	r.HandleFunc("/sos/live", sosLiveHandler(hub)).Methods("GET")
	r.HandleFunc("/sos/{id}", getSOSHandler).Methods("GET")
	r.HandleFunc("/sos/{id}/assign", assignSOSHandler(hub)).Methods("POST")
	r.HandleFunc("/sos/{id}/resolve", resolveSOSHandler(hub)).Methods("POST")
}

// createSOSHandler raises a new alert. The caller's coordinates are
// reverse geocoded best-effort so dashboards get a readable address
// even when the client sent none; a geocoder outage never blocks the
// alert.
//
// @Summary Raise SOS alert
// @Tags sos
// @Accept json
// @Produce json
// @Success 201 {object} models.SOSAlert
// @Router /v1/sos [post]
func createSOSHandler(hub *live.Hub, geo *external.GeocodeClient) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := callerID(r)
		if uid == "" {
			utils.JSONError(w, http.StatusUnauthorized, "missing identity")
			return
		}
		var a models.SOSAlert
		if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
			utils.JSONError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if !models.ValidSOSType(a.Type) {
			utils.JSONError(w, http.StatusBadRequest, "invalid type")
			return
		}
		if a.Urgency == "" {
			a.Urgency = "high"
		}
		if !models.ValidSOSUrgency(a.Urgency) {
			utils.JSONError(w, http.StatusBadRequest, "invalid urgency")
			return
		}
		if a.Location.Lat == 0 && a.Location.Lng == 0 {
			utils.JSONError(w, http.StatusBadRequest, "missing location")
			return
		}
		if a.Location.Address == "" && geo != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			place, err := geo.Reverse(ctx, a.Location.Lat, a.Location.Lng)
			cancel()
			if err != nil {
				logger.Warn("sos_geocode_failed", "err", err)
			} else {
				a.Location.Address = place.Address
				if a.Location.City == "" {
					a.Location.City = place.City
				}
			}
		}
		incident, err := store.NextIncident(time.Now())
		if err != nil {
			logger.Error("incident_number_failed", "err", err)
			utils.JSONError(w, http.StatusInternalServerError, "save failed")
			return
		}
		now := time.Now().UnixNano()
		a.ID = utils.GenID()
		a.Incident = incident
		a.User = uid
		a.Status = models.SOSActive
		a.Responder = ""
		a.CreatedTS = now
		a.UpdatedTS = now
		a.ResolvedTS = 0
		if err := store.SaveSOS(a); err != nil {
			logger.Error("sos_save_failed", "err", err)
			utils.JSONError(w, http.StatusInternalServerError, "save failed")
			return
		}
		logger.Info("sos_created", "id", a.ID, "incident", a.Incident, "type", a.Type, "city", a.Location.City)
		hub.PublishJSON(live.TopicSOS, "sos_created", a)
		utils.JSONWrite(w, http.StatusCreated, a)
	}
}

// listSOSHandler returns alerts for the dashboard, filterable by
// status and city. Staff only.
//
// @Summary List SOS alerts
// @Tags sos
// @Produce json
// @Param status query string false "Filter by status"
// @Param city query string false "Filter by city"
// @Success 200 {array} models.SOSAlert
// @Router /v1/sos [get]
func listSOSHandler(w http.ResponseWriter, r *http.Request) {
	if !isStaff(r) {
		utils.JSONError(w, http.StatusForbidden, "staff only")
		return
	}
	q := r.URL.Query()
	alerts, err := store.ListSOS(q.Get("status"), q.Get("city"), queryInt(r, "limit", 200))
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "list failed")
		return
	}
	utils.JSONWrite(w, http.StatusOK, alerts)
}

func listMySOSHandler(w http.ResponseWriter, r *http.Request) {
	uid := callerID(r)
	if uid == "" {
		utils.JSONError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	alerts, err := store.ListSOSByUser(uid)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "list failed")
		return
	}
	utils.JSONWrite(w, http.StatusOK, alerts)
}

func getSOSHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	a, err := store.GetSOS(id)
	if err != nil {
		utils.JSONError(w, http.StatusNotFound, "not found")
		return
	}
	if a.User != callerID(r) && !isStaff(r) {
		utils.JSONError(w, http.StatusForbidden, "not your alert")
		return
	}
	utils.JSONWrite(w, http.StatusOK, a)
}

// assignSOSHandler moves an active alert to responding and records the
// responder. Staff only.
func assignSOSHandler(hub *live.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !isStaff(r) {
			utils.JSONError(w, http.StatusForbidden, "staff only")
			return
		}
		id := mux.Vars(r)["id"]
		a, err := store.GetSOS(id)
		if err != nil {
			utils.JSONError(w, http.StatusNotFound, "not found")
			return
		}
		var body struct {
			Responder string `json:"responder"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Responder == "" {
			body.Responder = callerID(r)
		}
		if !a.CanTransition(models.SOSResponding) {
			utils.JSONError(w, http.StatusConflict, "alert is "+a.Status)
			return
		}
		a.Status = models.SOSResponding
		a.Responder = body.Responder
		a.UpdatedTS = time.Now().UnixNano()
		if err := store.SaveSOS(a); err != nil {
			utils.JSONError(w, http.StatusInternalServerError, "save failed")
			return
		}
		hub.PublishJSON(live.TopicSOS, "sos_assigned", a)
		utils.JSONWrite(w, http.StatusOK, a)
	}
}

// resolveSOSHandler closes an alert as resolved or false_alarm.
// The author may close their own alert; any close by staff works too.
func resolveSOSHandler(hub *live.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		a, err := store.GetSOS(id)
		if err != nil {
			utils.JSONError(w, http.StatusNotFound, "not found")
			return
		}
		if a.User != callerID(r) && !isStaff(r) {
			utils.JSONError(w, http.StatusForbidden, "not your alert")
			return
		}
		var body struct {
			Status string `json:"status"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Status == "" {
			body.Status = models.SOSResolved
		}
		if body.Status != models.SOSResolved && body.Status != models.SOSFalseAlarm {
			utils.JSONError(w, http.StatusBadRequest, "invalid status")
			return
		}
		if !a.CanTransition(body.Status) {
			utils.JSONError(w, http.StatusConflict, "alert is "+a.Status)
			return
		}
		now := time.Now().UnixNano()
		a.Status = body.Status
		a.UpdatedTS = now
		a.ResolvedTS = now
		if err := store.SaveSOS(a); err != nil {
			utils.JSONError(w, http.StatusInternalServerError, "save failed")
			return
		}
		logger.Info("sos_closed", "id", a.ID, "status", a.Status)
		hub.PublishJSON(live.TopicSOS, "sos_closed", a)
		utils.JSONWrite(w, http.StatusOK, a)
	}
}

func sosLiveHandler(hub *live.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !isStaff(r) {
			utils.JSONError(w, http.StatusForbidden, "staff only")
			return
		}
		live.ServeSSE(hub, live.TopicSOS, w, r)
	}
}

package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"citysafe/pkg/logger"
	"citysafe/pkg/models"
	"citysafe/pkg/store"
	"citysafe/pkg/utils"
)

// RegisterReports mounts the abuse report endpoints.
func RegisterReports(r *mux.Router) {
	r.HandleFunc("/reports", createReportHandler).Methods("POST")
	r.HandleFunc("/reports", listReportsHandler).Methods("GET")
	r.HandleFunc("/reports/{id}/review", reviewReportHandler).Methods("POST")
}

// createReportHandler files an abuse report against a message or user.
//
// @Summary File report
// @Tags reports
// @Accept json
// @Produce json
// @Success 201 {object} models.Report
// @Router /v1/reports [post]
func createReportHandler(w http.ResponseWriter, r *http.Request) {
	uid := callerID(r)
	if uid == "" {
		utils.JSONError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	var rep models.Report
	if err := json.NewDecoder(r.Body).Decode(&rep); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if !models.ValidTargetKind(rep.TargetKind) || rep.TargetID == "" {
		utils.JSONError(w, http.StatusBadRequest, "invalid target")
		return
	}
	if !models.ValidReportFlag(rep.Flag) {
		utils.JSONError(w, http.StatusBadRequest, "invalid flag")
		return
	}
	if rep.TargetKind == models.TargetMessage {
		if _, err := store.GetLatestMessage(rep.TargetID); err != nil {
			utils.JSONError(w, http.StatusNotFound, "target message not found")
			return
		}
	}
	rep.ID = utils.GenID()
	rep.Reporter = uid
	rep.Status = models.ReportOpen
	rep.CreatedTS = time.Now().UnixNano()
	rep.ReviewedBy = ""
	rep.ReviewedTS = 0
	if err := store.SaveReport(rep); err != nil {
		logger.Error("report_save_failed", "err", err)
		utils.JSONError(w, http.StatusInternalServerError, "save failed")
		return
	}
	utils.JSONWrite(w, http.StatusCreated, rep)
}

// listReportsHandler returns reports for the moderation queue,
// filterable by status. Staff only.
func listReportsHandler(w http.ResponseWriter, r *http.Request) {
	if !isStaff(r) {
		utils.JSONError(w, http.StatusForbidden, "staff only")
		return
	}
	reports, err := store.ListReports(r.URL.Query().Get("status"))
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "list failed")
		return
	}
	utils.JSONWrite(w, http.StatusOK, reports)
}

// reviewReportHandler closes a report as reviewed or dismissed and
// records who handled it. Staff only.
func reviewReportHandler(w http.ResponseWriter, r *http.Request) {
	if !isStaff(r) {
		utils.JSONError(w, http.StatusForbidden, "staff only")
		return
	}
	id := mux.Vars(r)["id"]
	rep, err := store.GetReport(id)
	if err != nil {
		utils.JSONError(w, http.StatusNotFound, "not found")
		return
	}
	if rep.Status != models.ReportOpen {
		utils.JSONError(w, http.StatusConflict, "report is "+rep.Status)
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.Status == "" {
		body.Status = models.ReportReviewed
	}
	if body.Status != models.ReportReviewed && body.Status != models.ReportDismissed {
		utils.JSONError(w, http.StatusBadRequest, "invalid status")
		return
	}
	rep.Status = body.Status
	rep.ReviewedBy = callerID(r)
	rep.ReviewedTS = time.Now().UnixNano()
	if err := store.SaveReport(rep); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "save failed")
		return
	}
	utils.JSONWrite(w, http.StatusOK, rep)
}

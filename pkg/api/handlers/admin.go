package handlers

import (
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"

	"citysafe/pkg/logger"
	"citysafe/pkg/models"
	"citysafe/pkg/store"
	"citysafe/pkg/utils"
)

// RegisterAdmin mounts the operator surface. Every route requires the
// admin key tier or an admin profile.
func RegisterAdmin(r *mux.Router, retentionRun func() error) {
	r.Use(requireAdmin)
	r.HandleFunc("/stats", adminStatsHandler).Methods("GET")
	r.HandleFunc("/sos", adminSOSHandler).Methods("GET")
	r.HandleFunc("/reports", adminReportsHandler).Methods("GET")
	r.HandleFunc("/keys", adminKeysHandler).Methods("GET")
	r.HandleFunc("/retention/run", adminRetentionHandler(retentionRun)).Methods("POST")
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isAdminCaller(r) {
			utils.JSONError(w, http.StatusForbidden, "admin only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// adminStatsHandler reports store-wide counts and disk usage.
//
// @Summary Operator stats
// @Tags admin
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /v1/admin/stats [get]
func adminStatsHandler(w http.ResponseWriter, r *http.Request) {
	channels, _ := store.ListChannels()
	profiles, _ := store.ListKeys("profile:")
	reports, _ := store.ListReports("")
	alerts, _ := store.ListSOS("", "", 0)

	open := 0
	for _, rep := range reports {
		if rep.Status == models.ReportOpen {
			open++
		}
	}
	byStatus := map[string]int{}
	for _, a := range alerts {
		byStatus[a.Status]++
	}
	messages := 0
	for _, c := range channels {
		ks, _ := store.ListKeys("chat:" + c.City + ":msg:")
		messages += len(ks)
	}
	disk := store.DiskUsage()
	utils.JSONWrite(w, http.StatusOK, map[string]any{
		"channels":      len(channels),
		"messages":      messages,
		"profiles":      len(profiles),
		"sos_total":     len(alerts),
		"sos_by_status": byStatus,
		"reports_total": len(reports),
		"reports_open":  open,
		"disk_bytes":    disk,
		"disk_human":    humanize.Bytes(disk),
	})
}

// adminSOSHandler lists every alert, terminal states included.
func adminSOSHandler(w http.ResponseWriter, r *http.Request) {
	alerts, err := store.ListSOS(r.URL.Query().Get("status"), r.URL.Query().Get("city"), 0)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "list failed")
		return
	}
	utils.JSONWrite(w, http.StatusOK, alerts)
}

func adminReportsHandler(w http.ResponseWriter, r *http.Request) {
	reports, err := store.ListReports(r.URL.Query().Get("status"))
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "list failed")
		return
	}
	utils.JSONWrite(w, http.StatusOK, reports)
}

// adminKeysHandler lists raw store keys under an optional prefix. It is
// a debugging aid for operators; values are never returned.
func adminKeysHandler(w http.ResponseWriter, r *http.Request) {
	keys, err := store.ListKeys(r.URL.Query().Get("prefix"))
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "list failed")
		return
	}
	if keys == nil {
		keys = []string{}
	}
	utils.JSONWrite(w, http.StatusOK, map[string]any{"count": len(keys), "keys": keys})
}

func adminRetentionHandler(run func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if run == nil {
			utils.JSONError(w, http.StatusServiceUnavailable, "retention disabled")
			return
		}
		if err := run(); err != nil {
			logger.Error("retention_run_failed", "err", err)
			utils.JSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

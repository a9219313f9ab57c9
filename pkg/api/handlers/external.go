package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"citysafe/pkg/external"
	"citysafe/pkg/logger"
	"citysafe/pkg/utils"
)

// RegisterExternal mounts the weather and reverse geocoding proxies.
// Both hide upstream API keys from clients and normalize the payloads.
func RegisterExternal(r *mux.Router, wc *external.WeatherClient, gc *external.GeocodeClient) {
	r.HandleFunc("/weather", weatherHandler(wc)).Methods("GET")
	r.HandleFunc("/geocode/reverse", reverseGeocodeHandler(gc)).Methods("GET")
}

// weatherHandler returns current conditions at a coordinate.
//
// @Summary Current weather
// @Tags external
// @Produce json
// @Param lat query number true "Latitude"
// @Param lon query number true "Longitude"
// @Success 200 {object} external.Conditions
// @Failure 502 {object} map[string]string
// @Router /v1/weather [get]
func weatherHandler(wc *external.WeatherClient) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lat, ok1 := queryFloat(r, "lat")
		lon, ok2 := queryFloat(r, "lon")
		if !ok1 || !ok2 {
			utils.JSONError(w, http.StatusBadRequest, "lat and lon are required")
			return
		}
		if wc == nil {
			utils.JSONError(w, http.StatusServiceUnavailable, "weather not configured")
			return
		}
		cond, err := wc.Current(r.Context(), lat, lon)
		if err != nil {
			logger.Warn("weather_upstream_failed", "err", err)
			utils.JSONError(w, http.StatusBadGateway, "weather upstream failed")
			return
		}
		utils.JSONWrite(w, http.StatusOK, cond)
	}
}

// reverseGeocodeHandler resolves a coordinate to an address.
func reverseGeocodeHandler(gc *external.GeocodeClient) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lat, ok1 := queryFloat(r, "lat")
		lon, ok2 := queryFloat(r, "lon")
		if !ok1 || !ok2 {
			utils.JSONError(w, http.StatusBadRequest, "lat and lon are required")
			return
		}
		if gc == nil {
			utils.JSONError(w, http.StatusServiceUnavailable, "geocoding not configured")
			return
		}
		place, err := gc.Reverse(r.Context(), lat, lon)
		if err != nil {
			logger.Warn("geocode_upstream_failed", "err", err)
			utils.JSONError(w, http.StatusBadGateway, "geocoding upstream failed")
			return
		}
		utils.JSONWrite(w, http.StatusOK, place)
	}
}

package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"citysafe/pkg/live"
	"citysafe/pkg/store"
	"citysafe/pkg/utils"
)

// RegisterChannels mounts the channel directory and live feeds.
func RegisterChannels(r *mux.Router, hub *live.Hub) {
	r.HandleFunc("/channels", listChannelsHandler).Methods("GET")
	r.HandleFunc("/channels/{city}/live", chatLiveHandler(hub)).Methods("GET")
	r.HandleFunc("/channels/{city}/ws", chatWSHandler(hub)).Methods("GET")
}

// listChannelsHandler returns every city channel with activity,
// most recently active first.
//
// @Summary List channels
// @Tags chat
// @Produce json
// @Success 200 {array} models.Channel
// @Router /v1/channels [get]
func listChannelsHandler(w http.ResponseWriter, r *http.Request) {
	chans, err := store.ListChannels()
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "list failed")
		return
	}
	utils.JSONWrite(w, http.StatusOK, chans)
}

func chatLiveHandler(hub *live.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		city := mux.Vars(r)["city"]
		if city == "" {
			utils.JSONError(w, http.StatusBadRequest, "missing city")
			return
		}
		live.ServeSSE(hub, live.ChatTopic(city), w, r)
	}
}

func chatWSHandler(hub *live.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		city := mux.Vars(r)["city"]
		if city == "" {
			utils.JSONError(w, http.StatusBadRequest, "missing city")
			return
		}
		live.ServeWS(hub, live.ChatTopic(city), w, r)
	}
}

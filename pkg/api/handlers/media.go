package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"citysafe/pkg/logger"
	"citysafe/pkg/media"
	"citysafe/pkg/utils"
)

// RegisterMediaWrite mounts the attachment upload endpoint.
func RegisterMediaWrite(r *mux.Router, ms *media.Store) {
	r.HandleFunc("/media", uploadMediaHandler(ms)).Methods("POST")
}

// RegisterMediaRead mounts the attachment download endpoint. Reads are
// not identity-gated: attachment URLs circulate inside chat payloads
// and the blob ID is unguessable.
func RegisterMediaRead(r *mux.Router, ms *media.Store) {
	r.HandleFunc("/media/{id}", getMediaHandler(ms)).Methods("GET")
}

// uploadMediaHandler accepts a multipart upload and returns the blob
// descriptor clients embed in message attachments.
//
// @Summary Upload attachment
// @Tags media
// @Accept multipart/form-data
// @Produce json
// @Success 201 {object} media.Blob
// @Failure 413 {object} map[string]string
// @Router /v1/media [post]
func uploadMediaHandler(ms *media.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := callerID(r)
		if owner == "" {
			utils.JSONError(w, http.StatusUnauthorized, "missing identity")
			return
		}
		if err := r.ParseMultipartForm(ms.MaxBytes()); err != nil {
			utils.JSONError(w, http.StatusBadRequest, "invalid multipart body")
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			utils.JSONError(w, http.StatusBadRequest, "missing file field")
			return
		}
		defer f.Close()
		mime := hdr.Header.Get("Content-Type")
		if mime == "" {
			mime = "application/octet-stream"
		}
		blob, err := ms.Save(hdr.Filename, mime, owner, f)
		if err != nil {
			if err == media.ErrTooLarge {
				utils.JSONError(w, http.StatusRequestEntityTooLarge, "file too large")
				return
			}
			logger.Error("media_save_failed", "err", err)
			utils.JSONError(w, http.StatusInternalServerError, "save failed")
			return
		}
		utils.JSONWrite(w, http.StatusCreated, blob)
	}
}

func getMediaHandler(ms *media.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		blob, rc, err := ms.Get(id)
		if err != nil {
			utils.JSONError(w, http.StatusNotFound, "not found")
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", blob.Mime)
		w.Header().Set("Content-Length", strconv.FormatInt(blob.Size, 10))
		w.Header().Set("Content-Disposition", `inline; filename="`+blob.Name+`"`)
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, rc); err != nil {
			logger.Debug("media_stream_aborted", "id", id, "err", err)
		}
	}
}

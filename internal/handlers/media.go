package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"

	"realestate/internal/media"

	"github.com/go-chi/chi/v5"
)

// Upload stores a single multipart image under the "file" field and returns
// the reference to put in a listing or a deposit's transfer_bill.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if _, ok := actorFrom(r); !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, media.MaxFileSize+1<<20)
	if err := r.ParseMultipartForm(media.MaxFileSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_upload")
		return
	}
	part, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing_file")
		return
	}
	defer part.Close()
	data, err := io.ReadAll(io.LimitReader(part, media.MaxFileSize+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_upload")
		return
	}
	if len(data) > media.MaxFileSize {
		respondError(w, http.StatusRequestEntityTooLarge, "file_too_large")
		return
	}
	contentType := http.DetectContentType(data)
	if !media.IsImage(contentType) {
		respondError(w, http.StatusBadRequest, "unsupported_media_type")
		return
	}
	folder := r.FormValue("folder")
	if folder != "deposits" {
		folder = "listings"
	}
	ref, err := h.files.Save(r.Context(), media.File{
		Name:        filepath.Base(header.Filename),
		Folder:      folder,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		if errors.Is(err, media.ErrInvalidData) || errors.Is(err, media.ErrTooLarge) {
			respondError(w, http.StatusBadRequest, "invalid_upload")
			return
		}
		log.Printf("upload: %v", err)
		respondError(w, http.StatusInternalServerError, "upload_failed")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"url": ref})
}

func (h *Handler) GetMedia(w http.ResponseWriter, r *http.Request) {
	file, err := h.files.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, media.ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found")
			return
		}
		log.Printf("open media: %v", err)
		respondError(w, http.StatusInternalServerError, "unable_to_load_media")
		return
	}
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Data)
}

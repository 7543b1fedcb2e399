package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/logger"
	"rentacar-backend/internal/service"

	"github.com/gorilla/mux"
)

// multipartOverhead is allowed on top of the file size for the other form
// fields and part headers.
const multipartOverhead = 1 << 20

type documentHandler struct {
	documents service.DocumentService
	maxUpload int64
}

func (h *documentHandler) limit() int64 {
	if h.maxUpload > 0 {
		return h.maxUpload
	}
	return domain.MaxDocumentSize
}

// upload accepts multipart/form-data with a "file" part and a "type" field.
func (h *documentHandler) upload(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.limit()+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, domain.NewFieldError("file", fmt.Sprintf("file must not exceed %d MB", h.limit()>>20)))
			return
		}
		writeError(w, r, badRequest("expected a multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, domain.NewFieldError("file", "file is required"))
		return
	}
	defer file.Close()

	doc, err := h.documents.UploadDocument(r.Context(), actor, service.UploadDocumentInput{
		Filename: header.Filename,
		Type:     domain.DocumentType(strings.TrimSpace(r.FormValue("type"))),
		Size:     header.Size,
		Content:  file,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (h *documentHandler) listMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	page, err := pageRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.documents.ListMyDocuments(r.Context(), actor, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *documentHandler) listAll(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	page, err := pageRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter := domain.DocumentFilter{Status: domain.DocumentStatus(strings.ToUpper(r.URL.Query().Get("status")))}
	if filter.UserID, err = queryInt64(r, "user_id"); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.documents.ListAllDocuments(r.Context(), actor, filter, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *documentHandler) delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.documents.DeleteDocument(r.Context(), actor, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *documentHandler) approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, true)
}

func (h *documentHandler) reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, false)
}

func (h *documentHandler) review(w http.ResponseWriter, r *http.Request, approve bool) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	doc, err := h.documents.ReviewDocument(r.Context(), actor, id, approve)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// download streams a stored document to its owner or to staff.
func (h *documentHandler) download(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	key := mux.Vars(r)["key"]
	rc, doc, err := h.documents.OpenDocumentFile(r.Context(), actor, key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer rc.Close()

	contentType, ok := domain.DocumentContentType(doc.StorageKey)
	if !ok {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, strings.ReplaceAll(doc.Name, `"`, "")))
	w.Header().Set("Cache-Control", "private, no-store")
	if _, err := io.Copy(w, rc); err != nil {
		logger.WarnContext(r.Context(), "Document download interrupted", "documentID", doc.ID, "error", err)
	}
}

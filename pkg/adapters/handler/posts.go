package handler

import (
	"net/http"
	"strconv"

	"github.com/solidsystems/qr-trackr/pkg/core/domain"
	"github.com/solidsystems/qr-trackr/pkg/ports"
)

type PostHandler struct {
	service ports.PostService
}

func NewPostHandler(service ports.PostService) *PostHandler {
	return &PostHandler{service: service}
}

type createPostRequest struct {
	Title     string `json:"title" validate:"required,max=255"`
	Permalink string `json:"permalink" validate:"required,max=2048"`
	Status    string `json:"status" validate:"omitempty,oneof=publish draft trash"`
}

func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	post, err := h.service.Create(r.Context(), req.Title, req.Permalink, domain.PostStatus(req.Status))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (h *PostHandler) TrashPost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	if err := h.service.Trash(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SearchPosts answers the destination autocomplete
func (h *PostHandler) SearchPosts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	results, err := h.service.Search(r.Context(), r.URL.Query().Get("term"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

package handler

import (
	"net/http"

	"github.com/readtrack/readtrack/internal/model"
)

// MsgBookCreated is the success message of CreateBook
const MsgBookCreated = "Book created successfully"

// CreateBook creates a book together with its authors
func (h *Handler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var in model.CreateBookInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.books.CreateBook(r.Context(), in); err != nil {
		h.fail(w, r, err)
		return
	}

	h.resp.WriteSuccess(w, http.StatusCreated, nil, MsgBookCreated)
}

// GetBook returns an active book with its authors
func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	book, err := h.books.GetBook(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.resp.WriteSuccess(w, http.StatusOK, book, "")
}

// ListBooks returns one page of active books
func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	list, err := h.books.ListBooks(r.Context(), page, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.resp.WriteSuccess(w, http.StatusOK, list, "")
}

// DeleteBook soft-deletes a book
func (h *Handler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.books.DeleteBook(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}

	h.resp.WriteSuccess(w, http.StatusOK, nil, "Book deleted successfully")
}

// PurgeBook permanently removes a book and its author links
func (h *Handler) PurgeBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.books.PurgeBook(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}

	h.resp.WriteSuccess(w, http.StatusOK, nil, "Book permanently deleted")
}

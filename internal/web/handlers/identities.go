package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/recognition"
)

// ReferenceDeleter removes the stored reference images of an identity.
type ReferenceDeleter interface {
	Delete(ctx context.Context, identityID string) (int, error)
}

// IdentitiesHandler lists and removes enrolled identities and rebuilds the
// in-memory index after enrollment changes.
type IdentitiesHandler struct {
	store database.EnrollmentStore
	index *recognition.IndexHolder
	refs  ReferenceDeleter // optional
}

// NewIdentitiesHandler creates a new identities handler
func NewIdentitiesHandler(index *recognition.IndexHolder, refs ReferenceDeleter) *IdentitiesHandler {
	h := &IdentitiesHandler{index: index, refs: refs}
	if store, err := database.GetEnrollmentStore(context.Background()); err == nil {
		h.store = store
	}
	return h
}

// List returns all enrolled identities.
func (h *IdentitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, http.StatusServiceUnavailable, "storage backend not available")
		return
	}

	identities, err := h.store.ListIdentities(r.Context())
	if err != nil {
		log.Printf("[identities] list failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list identities")
		return
	}
	if identities == nil {
		identities = []database.IdentitySummary{}
	}
	respondJSON(w, http.StatusOK, identities)
}

// Delete removes an identity and rebuilds the index without it.
func (h *IdentitiesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, http.StatusServiceUnavailable, "storage backend not available")
		return
	}

	id := chi.URLParam(r, "id")
	deleted, err := h.store.DeleteIdentity(r.Context(), id)
	if err != nil {
		log.Printf("[identities] delete %s failed: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to delete identity")
		return
	}

	removed := 0
	if h.refs != nil {
		removed, err = h.refs.Delete(r.Context(), id)
		if err != nil {
			log.Printf("[identities] deleting reference images of %s failed: %v", sanitizeForLog(id), err)
			respondError(w, http.StatusInternalServerError, "failed to delete reference images")
			return
		}
	}
	if !deleted && removed == 0 {
		respondError(w, http.StatusNotFound, "identity not found")
		return
	}

	h.rebuild(w, r)
}

// RebuildIndex reloads all enrollments from the store and swaps the index.
// The previous index stays active when loading fails.
func (h *IdentitiesHandler) RebuildIndex(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, http.StatusServiceUnavailable, "storage backend not available")
		return
	}
	h.rebuild(w, r)
}

func (h *IdentitiesHandler) rebuild(w http.ResponseWriter, r *http.Request) {
	idx, err := h.index.Rebuild(r.Context(), h.store)
	if err != nil {
		log.Printf("[identities] index rebuild failed: %v", err)
		respondError(w, http.StatusInternalServerError, "index rebuild failed: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{
		"embeddings": idx.Len(),
		"identities": len(idx.Identities()),
	})
}

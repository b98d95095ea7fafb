package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"kwlnk/cmd/identity"
	"kwlnk/cmd/internal/links"
)

func (h *Handler) handleListLinks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	total, err := h.links.Count(ctx)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	p, err := parsePagination(r, total)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	list, err := h.links.List(ctx, links.ListOptions{Offset: p.offset(), Limit: p.PerPage})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	out := make([]linkResponse, 0, len(list))
	for _, l := range list {
		out = append(out, toLinkResponse(l))
	}
	writeJSON(w, http.StatusOK, envelope{
		Data:    out,
		Meta:    paginationMeta{Pagination: p},
		Message: "Links retrieved successfully.",
	})
}

// expiryFromRequest applies the expires_at / ttl_minutes pair. Supplying
// both is rejected. set reports whether either was present.
func (h *Handler) expiryFromRequest(at optionalTime, ttl *int) (value *time.Time, set bool, err error) {
	switch {
	case at.Set && ttl != nil:
		return nil, false, identity.OpError{Op: "api.expiry", Kind: links.ErrInvalidInput, Msg: "use either expires_at or ttl_minutes, not both"}
	case ttl != nil:
		v, err := links.ExpiryFromTTL(h.clock.Now(), *ttl)
		return v, true, err
	case at.Set:
		return at.Value, true, nil
	}
	return nil, false, nil
}

func (h *Handler) handleCreateLink(w http.ResponseWriter, r *http.Request) {
	_, actorID, err := actor(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var req createLinkRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid input data.", err.Error())
		return
	}
	exp, _, err := h.expiryFromRequest(req.ExpiresAt, req.TTLMinutes)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	l, err := h.links.Create(r.Context(), actorID, links.CreateInput{Key: req.Key, URI: req.URI, ExpiresAt: exp})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.audit(r, "links.create", actorID, "key", l.Key)
	writeData(w, http.StatusCreated, toLinkResponse(l), "Link created successfully.")
}

func (h *Handler) handleGetLink(w http.ResponseWriter, r *http.Request) {
	l, err := h.links.Get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toLinkResponse(l), "Link retrieved successfully.")
}

func (h *Handler) handleUpdateLink(w http.ResponseWriter, r *http.Request) {
	_, actorID, err := actor(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var req updateLinkRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid input data.", err.Error())
		return
	}
	exp, setExp, err := h.expiryFromRequest(req.ExpiresAt, req.TTLMinutes)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	key := chi.URLParam(r, "key")
	l, err := h.links.Update(r.Context(), actorID, key, links.UpdateInput{
		URI:       req.URI,
		SetExpiry: setExp,
		ExpiresAt: exp,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.audit(r, "links.update", actorID, "key", key)
	writeData(w, http.StatusOK, toLinkResponse(l), "Link updated successfully.")
}

func (h *Handler) handleDeleteLink(w http.ResponseWriter, r *http.Request) {
	_, actorID, err := actor(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	key := chi.URLParam(r, "key")
	if err := h.links.Delete(r.Context(), actorID, key); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.audit(r, "links.delete", actorID, "key", key)
	writeJSON(w, http.StatusOK, envelope{Message: "Link deleted successfully."})
}

func (h *Handler) handleRedirect(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	l, err := h.links.Resolve(r.Context(), key)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, links.ErrLinkNotFound):
			status = http.StatusNotFound
		case errors.Is(err, links.ErrLinkExpired):
			status = http.StatusGone
		}
		redirectTotal.WithLabelValues(strconv.Itoa(status)).Inc()
		h.writeServiceError(w, r, err)
		return
	}

	redirectTotal.WithLabelValues(strconv.Itoa(http.StatusMovedPermanently)).Inc()
	w.Header().Set("Location", l.URI)
	w.Header().Set("X-Redirected-By", h.cfg.AppName)
	w.Header().Set("X-Redirect-Key", l.Key)
	w.WriteHeader(http.StatusMovedPermanently)
}

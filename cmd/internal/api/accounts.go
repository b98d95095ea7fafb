package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"kwlnk/cmd/identity"
	"kwlnk/cmd/internal/auth/security"
)

// accountParam resolves the {id} path segment, mapping the self alias to the
// caller.
func accountParam(r *http.Request, sc *security.Context) (string, error) {
	id := chi.URLParam(r, "id")
	if id == identity.SelfAlias {
		return sc.ID()
	}
	return id, nil
}

func (h *Handler) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	total, err := h.accounts.Count(ctx)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	p, err := parsePagination(r, total)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	list, err := h.accounts.List(ctx, identity.ListOptions{Offset: p.offset(), Limit: p.PerPage})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	out := make([]accountResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toAccountResponse(a))
	}
	writeJSON(w, http.StatusOK, envelope{
		Data:    out,
		Meta:    paginationMeta{Pagination: p},
		Message: "Accounts retrieved successfully.",
	})
}

func (h *Handler) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	_, actorID, err := actor(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var req createAccountRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid input data.", err.Error())
		return
	}

	id := identity.NormalizeID(req.ID)
	if err := h.idPolicy.ValidateNew(id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if err := h.hasher.Validate(req.Password); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	acct := identity.Account{ID: id, Disabled: req.Disabled}
	if err := acct.SetPassword(h.hasher, req.Password); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	acct.Stamp(h.clock.Now(), actorID)

	if err := h.accounts.Insert(r.Context(), acct); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.audit(r, "accounts.create", actorID, "account_id", id)
	writeData(w, http.StatusCreated, toAccountResponse(acct), "Account created successfully.")
}

func (h *Handler) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	sc, _, err := actor(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	id, err := accountParam(r, sc)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	acct, err := h.accounts.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toAccountResponse(acct), "Account retrieved successfully.")
}

func (h *Handler) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	sc, actorID, err := actor(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	id, err := accountParam(r, sc)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var req updateAccountRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid input data.", err.Error())
		return
	}

	ctx := r.Context()
	acct, err := h.accounts.Get(ctx, id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if req.Password != nil {
		if err := h.hasher.Validate(*req.Password); err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		if err := acct.SetPassword(h.hasher, *req.Password); err != nil {
			h.writeServiceError(w, r, err)
			return
		}
	}
	if req.Disabled != nil {
		acct.Disabled = *req.Disabled
	}
	acct.Touch(h.clock.Now(), actorID)

	if err := h.accounts.Update(ctx, acct); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.audit(r, "accounts.update", actorID, "account_id", id,
		"password_changed", req.Password != nil, "disabled", acct.Disabled)
	writeData(w, http.StatusOK, toAccountResponse(acct), "Account updated successfully.")
}

func (h *Handler) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	sc, actorID, err := actor(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	id, err := accountParam(r, sc)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if err := h.accounts.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.audit(r, "accounts.delete", actorID, "account_id", id)
	writeJSON(w, http.StatusOK, envelope{Message: "Account deleted successfully."})
}

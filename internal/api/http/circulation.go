package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"equiptrack-backend/internal/domain"
)

type deliveryNoteResponse struct {
	*domain.DeliveryNote
	Status domain.DeliveryNoteStatus `json:"status"`
}

func deliveryNoteView(note *domain.DeliveryNote) deliveryNoteResponse {
	return deliveryNoteResponse{DeliveryNote: note, Status: note.Status()}
}

type recoverResponse struct {
	Checkout  *domain.Checkout  `json:"checkout"`
	Equipment *domain.Equipment `json:"equipment"`
}

// notes are optional on the circulation endpoints
func optionalNotes(r *http.Request) (string, error) {
	if r.ContentLength == 0 {
		return "", nil
	}
	var req notesRequest
	if err := decode(r, &req); err != nil {
		return "", err
	}
	return req.Notes, nil
}

func (h *Handler) GetDeliveryNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.circulation.GetDeliveryNote(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deliveryNoteView(note))
}

func (h *Handler) Return(w http.ResponseWriter, r *http.Request) {
	notes, err := optionalNotes(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.circulation.Return(r.Context(), mux.Vars(r)["id"], notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) MarkLost(w http.ResponseWriter, r *http.Request) {
	notes, err := optionalNotes(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.circulation.MarkLost(r.Context(), mux.Vars(r)["id"], notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) Recover(w http.ResponseWriter, r *http.Request) {
	notes, err := optionalNotes(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, eq, err := h.circulation.Recover(r.Context(), mux.Vars(r)["id"], notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recoverResponse{Checkout: c, Equipment: eq})
}

func (h *Handler) StartMaintenance(w http.ResponseWriter, r *http.Request) {
	eq, err := h.circulation.StartMaintenance(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, eq)
}

func (h *Handler) EndMaintenance(w http.ResponseWriter, r *http.Request) {
	eq, err := h.circulation.EndMaintenance(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, eq)
}

func (h *Handler) Retire(w http.ResponseWriter, r *http.Request) {
	eq, err := h.circulation.Retire(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, eq)
}

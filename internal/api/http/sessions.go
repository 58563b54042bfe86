package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"equiptrack-backend/internal/domain"
	"equiptrack-backend/internal/scan"
)

type selectUserRequest struct {
	UserID string `json:"user_id"`
}

type createUserRequest struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Department string `json:"department"`
}

type scanRequest struct {
	Code     string `json:"code"`
	Quantity int32  `json:"quantity"`
}

type scanResponse struct {
	Session    any             `json:"session,omitempty"`
	Resolution scan.Resolution `json:"resolution"`
}

type itemRequest struct {
	EquipmentID string `json:"equipment_id"`
	Quantity    int32  `json:"quantity"`
}

type dueDateRequest struct {
	DueDate string `json:"due_date"` // YYYY-MM-DD
}

type notesRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.checkout.StartSession(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.checkout.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) CancelSession(w http.ResponseWriter, r *http.Request) {
	if err := h.checkout.Cancel(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SelectUser(w http.ResponseWriter, r *http.Request) {
	var req selectUserRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := h.checkout.SelectUser(r.Context(), mux.Vars(r)["id"], req.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) CreateUserAndSelect(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user := &domain.User{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Phone:      req.Phone,
		Department: req.Department,
		Role:       domain.UserRoleBorrower,
	}
	sess, err := h.checkout.CreateUserAndSelect(r.Context(), mux.Vars(r)["id"], user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	users, err := h.checkout.SearchUsers(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if users == nil {
		users = []domain.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// Scan resolves the code and adds it to the cart. A miss still returns the
// attempted variants so the desk can show them.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	sess, res, err := h.checkout.Scan(r.Context(), mux.Vars(r)["id"], req.Code, req.Quantity)
	if err != nil {
		if !res.Found() && res.Variants != nil {
			writeJSON(w, http.StatusNotFound, scanResponse{Resolution: res})
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scanResponse{Session: sess, Resolution: res})
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := h.checkout.AddEquipment(r.Context(), mux.Vars(r)["id"], req.EquipmentID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	vars := mux.Vars(r)
	sess, err := h.checkout.SetQuantity(r.Context(), vars["id"], vars["equipmentId"], req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sess, err := h.checkout.RemoveItem(r.Context(), vars["id"], vars["equipmentId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	sess, err := h.checkout.Review(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) SetDueDate(w http.ResponseWriter, r *http.Request) {
	var req dueDateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	due, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		writeError(w, r, &domain.ValidationError{Field: "due_date", Message: "expected YYYY-MM-DD"})
		return
	}
	sess, err := h.checkout.SetDueDate(r.Context(), mux.Vars(r)["id"], due)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) SetNotes(w http.ResponseWriter, r *http.Request) {
	var req notesRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := h.checkout.SetNotes(r.Context(), mux.Vars(r)["id"], req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	sess, err := h.checkout.Back(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	note, err := h.checkout.Commit(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, deliveryNoteView(note))
}

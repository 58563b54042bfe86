package http

import (
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"equiptrack-backend/internal/domain"
	"equiptrack-backend/internal/ledger"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type createEquipmentRequest struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	SerialNumber  string        `json:"serial_number"`
	ArticleNumber string        `json:"article_number"`
	Category      string        `json:"category"`
	Location      string        `json:"location"`
	TotalQuantity int32         `json:"total_quantity"`
	QRType        domain.QRType `json:"qr_type"`
}

type equipmentResponse struct {
	Equipment *domain.Equipment `json:"equipment"`
	Instances []domain.Instance `json:"instances,omitempty"`
}

type provisionRequest struct {
	Count int32 `json:"count"`
}

type stockRequest struct {
	TotalQuantity int32 `json:"total_quantity"`
}

type reconcileResponse struct {
	Adjustments []ledger.Adjustment `json:"adjustments"`
}

type overdueResponse struct {
	Checkouts []domain.Checkout `json:"checkouts"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	client, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		client = r.RemoteAddr
	}
	token, expires, err := h.auth.Login(client, req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{AccessToken: token, ExpiresAt: expires})
}

func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	res, err := h.inventory.Resolve(r.Context(), r.URL.Query().Get("code"))
	if err != nil && !res.Found() && res.Variants != nil {
		writeJSON(w, http.StatusNotFound, res)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) ListEquipment(w http.ResponseWriter, r *http.Request) {
	list, err := h.inventory.ListEquipment(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []domain.Equipment{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) GetEquipment(w http.ResponseWriter, r *http.Request) {
	eq, instances, err := h.inventory.GetEquipment(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, equipmentResponse{Equipment: eq, Instances: instances})
}

func (h *Handler) CreateEquipment(w http.ResponseWriter, r *http.Request) {
	var req createEquipmentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	eq := &domain.Equipment{
		ID:            req.ID,
		Name:          req.Name,
		SerialNumber:  req.SerialNumber,
		ArticleNumber: req.ArticleNumber,
		Category:      req.Category,
		Location:      req.Location,
		TotalQuantity: req.TotalQuantity,
		QRType:        req.QRType,
	}
	instances, err := h.inventory.CreateEquipment(r.Context(), eq)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, equipmentResponse{Equipment: eq, Instances: instances})
}

func (h *Handler) ProvisionInstances(w http.ResponseWriter, r *http.Request) {
	var req provisionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	instances, err := h.inventory.ProvisionInstances(r.Context(), mux.Vars(r)["id"], req.Count)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, instances)
}

func (h *Handler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var req stockRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	eq, instances, err := h.inventory.AdjustStock(r.Context(), mux.Vars(r)["id"], req.TotalQuantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, equipmentResponse{Equipment: eq, Instances: instances})
}

func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	adjustments, err := h.inventory.Reconcile(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if adjustments == nil {
		adjustments = []ledger.Adjustment{}
	}
	writeJSON(w, http.StatusOK, reconcileResponse{Adjustments: adjustments})
}

func (h *Handler) MarkOverdue(w http.ResponseWriter, r *http.Request) {
	changed, err := h.inventory.MarkOverdue(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if changed == nil {
		changed = []domain.Checkout{}
	}
	writeJSON(w, http.StatusOK, overdueResponse{Checkouts: changed})
}

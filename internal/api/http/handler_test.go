package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"equiptrack-backend/internal/checkout"
	"equiptrack-backend/internal/domain"
	"equiptrack-backend/internal/ledger"
	"equiptrack-backend/internal/repository/memory"
	"equiptrack-backend/internal/security"
	"equiptrack-backend/internal/service"
	"equiptrack-backend/internal/session"
)

type testAPI struct {
	t      *testing.T
	server *httptest.Server
	store  *memory.Store
	token  string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := memory.NewStore()
	locks := ledger.NewLocks()
	opts := service.Options{Timeout: time.Second}

	hash, err := bcrypt.GenerateFromPassword([]byte("secret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	tokens := security.NewTokenManager("0123456789abcdef0123456789abcdef", time.Hour)
	auth := security.NewAuthenticator([]security.Operator{
		{Username: "admin", PasswordHash: string(hash), Role: security.RoleAdmin},
		{Username: "desk", PasswordHash: string(hash), Role: security.RoleOperator},
	}, tokens, 600, 20)

	h := NewHandler(
		service.NewCheckoutService(store.Equipment(), store.Users(), store.Gateway(), session.NewMemoryStore(time.Hour), nil, locks, nil, opts),
		service.NewCirculationService(store.Equipment(), store.Checkouts(), store.Gateway(), locks, nil, opts),
		service.NewInventoryService(store.Equipment(), store.Checkouts(), store.Gateway(), nil, locks, nil, opts),
		auth, tokens,
	)
	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)
	return &testAPI{t: t, server: srv, store: store}
}

func (a *testAPI) do(method, path string, body any, out any) int {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, a.server.URL+path, &buf)
	require.NoError(a.t, err)
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (a *testAPI) login(username string) {
	a.t.Helper()
	a.token = ""
	var resp loginResponse
	status := a.do("POST", "/api/v1/auth/login", loginRequest{Username: username, Password: "secret-pass"}, &resp)
	require.Equal(a.t, http.StatusOK, status)
	a.token = resp.AccessToken
}

func TestCheckoutFlow(t *testing.T) {
	api := newTestAPI(t)
	api.login("admin")

	var created equipmentResponse
	status := api.do("POST", "/api/v1/equipment", createEquipmentRequest{
		ID: "X1", Name: "Camera", SerialNumber: "SN-100", TotalQuantity: 1,
	}, &created)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, int32(1), created.Equipment.AvailableQuantity)

	var sess checkout.Session
	require.Equal(t, http.StatusCreated, api.do("POST", "/api/v1/sessions", nil, &sess))
	base := "/api/v1/sessions/" + sess.ID

	require.Equal(t, http.StatusCreated, api.do("POST", base+"/user", createUserRequest{FirstName: "Ada", LastName: "Lovelace"}, &sess))
	assert.Equal(t, checkout.StateSelectingEquipment, sess.State)

	var missing scanResponse
	require.Equal(t, http.StatusNotFound, api.do("POST", base+"/scan", scanRequest{Code: "QQ"}, &missing))
	assert.False(t, missing.Resolution.Found())
	assert.Contains(t, missing.Resolution.Variants, "QQ")

	var scanned struct {
		Resolution struct {
			Match struct {
				Method string `json:"method"`
			} `json:"match"`
		} `json:"resolution"`
	}
	require.Equal(t, http.StatusOK, api.do("POST", base+"/scan", scanRequest{Code: " sn-100 \n"}, &scanned))
	assert.Equal(t, "exact", scanned.Resolution.Match.Method)

	var errResp errorResponse
	require.Equal(t, http.StatusConflict, api.do("POST", base+"/scan", scanRequest{Code: "SN-100"}, &errResp))
	assert.Equal(t, "unavailable", errResp.Code)
	assert.Equal(t, string(domain.ReasonInsufficient), errResp.Reason)

	require.Equal(t, http.StatusOK, api.do("POST", base+"/review", nil, &sess))
	assert.Equal(t, checkout.StateReviewingSummary, sess.State)

	var note struct {
		ID        string            `json:"id"`
		Number    string            `json:"number"`
		Status    string            `json:"status"`
		Checkouts []domain.Checkout `json:"checkouts"`
	}
	require.Equal(t, http.StatusCreated, api.do("POST", base+"/commit", nil, &note))
	assert.Equal(t, "DN-000001", note.Number)
	assert.Equal(t, "active", note.Status)
	require.Len(t, note.Checkouts, 1)

	require.Equal(t, http.StatusConflict, api.do("POST", base+"/commit", nil, &errResp))
	assert.Equal(t, "invalid_state", errResp.Code)

	var returned domain.Checkout
	require.Equal(t, http.StatusOK, api.do("POST", "/api/v1/checkouts/"+note.Checkouts[0].ID+"/return", notesRequest{Notes: "ok"}, &returned))
	assert.Equal(t, domain.CheckoutStatusReturned, returned.Status)

	require.Equal(t, http.StatusOK, api.do("GET", "/api/v1/delivery-notes/"+note.ID, nil, &note))
	assert.Equal(t, "returned", note.Status)
}

func TestAuthorization(t *testing.T) {
	api := newTestAPI(t)

	var errResp errorResponse
	assert.Equal(t, http.StatusUnauthorized, api.do("POST", "/api/v1/sessions", nil, &errResp))
	assert.Equal(t, http.StatusOK, api.do("GET", "/healthz", nil, nil))

	api.token = "garbage"
	assert.Equal(t, http.StatusUnauthorized, api.do("POST", "/api/v1/sessions", nil, &errResp))

	api.login("desk")
	assert.Equal(t, http.StatusForbidden, api.do("POST", "/api/v1/admin/reconcile", nil, &errResp))
	assert.Equal(t, "forbidden", errResp.Code)

	api.token = ""
	status := api.do("POST", "/api/v1/auth/login", loginRequest{Username: "desk", Password: "nope"}, &errResp)
	assert.Equal(t, http.StatusUnauthorized, status)

	api.login("admin")
	var rec reconcileResponse
	assert.Equal(t, http.StatusOK, api.do("POST", "/api/v1/admin/reconcile", nil, &rec))
	assert.Empty(t, rec.Adjustments)
}

func TestErrorMapping(t *testing.T) {
	api := newTestAPI(t)
	api.login("admin")

	var errResp errorResponse
	assert.Equal(t, http.StatusNotFound, api.do("GET", "/api/v1/sessions/unknown", nil, &errResp))
	assert.Equal(t, "not_found", errResp.Code)

	status := api.do("POST", "/api/v1/equipment", createEquipmentRequest{Name: "Tripod", TotalQuantity: 1}, &errResp)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "serial_number", errResp.Field)

	require.Equal(t, http.StatusCreated, api.do("POST", "/api/v1/equipment", createEquipmentRequest{
		ID: "X2", Name: "Tripod", SerialNumber: "TRI-777", TotalQuantity: 1,
	}, nil))
	require.Equal(t, http.StatusOK, api.do("POST", "/api/v1/equipment/X2/retire", nil, nil))
	assert.Equal(t, http.StatusConflict, api.do("DELETE", "/api/v1/equipment/X2/maintenance", nil, &errResp))
	assert.Equal(t, "invalid_state", errResp.Code)

	var sess checkout.Session
	require.Equal(t, http.StatusCreated, api.do("POST", "/api/v1/sessions", nil, &sess))
	status = api.do("PUT", "/api/v1/sessions/"+sess.ID+"/due-date", dueDateRequest{DueDate: "tomorrow"}, &errResp)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "due_date", errResp.Field)
}

func TestErrorMapping_CartAndStore(t *testing.T) {
	api := newTestAPI(t)
	api.login("desk")

	var sess checkout.Session
	require.Equal(t, http.StatusCreated, api.do("POST", "/api/v1/sessions", nil, &sess))
	base := "/api/v1/sessions/" + sess.ID
	require.Equal(t, http.StatusCreated, api.do("POST", base+"/user", createUserRequest{FirstName: "Ada", LastName: "Lovelace"}, nil))

	var errResp errorResponse
	assert.Equal(t, http.StatusUnprocessableEntity, api.do("POST", base+"/review", nil, &errResp))
	assert.Equal(t, "validation", errResp.Code)
	assert.Equal(t, "cart", errResp.Field)

	api.login("admin")
	require.Equal(t, http.StatusCreated, api.do("POST", "/api/v1/equipment", createEquipmentRequest{
		ID: "X1", Name: "Camera", SerialNumber: "SN-100", TotalQuantity: 1,
	}, nil))
	require.Equal(t, http.StatusOK, api.do("POST", base+"/scan", scanRequest{Code: "SN-100"}, nil))
	require.Equal(t, http.StatusOK, api.do("POST", base+"/review", nil, nil))

	api.store.Faults().FailOn("create_delivery_note", 1, errors.New(`pq: password authentication failed for user "equiptrack"`))
	assert.Equal(t, http.StatusServiceUnavailable, api.do("POST", base+"/commit", nil, &errResp))
	assert.Equal(t, "persistence", errResp.Code)
	assert.Equal(t, "could not save changes, please retry", errResp.Error)
	assert.NotContains(t, errResp.Error, "pq:")
}

func TestAdjustStock(t *testing.T) {
	api := newTestAPI(t)
	api.login("admin")
	require.Equal(t, http.StatusCreated, api.do("POST", "/api/v1/equipment", createEquipmentRequest{
		ID: "X1", Name: "Camera", SerialNumber: "SN-100", TotalQuantity: 1,
	}, nil))

	var resized equipmentResponse
	require.Equal(t, http.StatusOK, api.do("PUT", "/api/v1/equipment/X1/stock", stockRequest{TotalQuantity: 4}, &resized))
	assert.Equal(t, int32(4), resized.Equipment.TotalQuantity)
	assert.Equal(t, int32(4), resized.Equipment.AvailableQuantity)

	var errResp errorResponse
	assert.Equal(t, http.StatusUnprocessableEntity, api.do("PUT", "/api/v1/equipment/X1/stock", stockRequest{TotalQuantity: 0}, &errResp))
	assert.Equal(t, "total_quantity", errResp.Field)

	api.login("desk")
	assert.Equal(t, http.StatusForbidden, api.do("PUT", "/api/v1/equipment/X1/stock", stockRequest{TotalQuantity: 2}, &errResp))
}

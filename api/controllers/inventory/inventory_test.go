package inventory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalinventory "github.com/nstc/opsdesk-backend/internal/inventory"
	"github.com/nstc/opsdesk-backend/internal/transfers"
	"github.com/nstc/opsdesk-backend/pkg/access"
	"github.com/nstc/opsdesk-backend/pkg/db/models"
	"github.com/nstc/opsdesk-backend/pkg/enums"
	"github.com/nstc/opsdesk-backend/pkg/logger"
)

type stubInventory struct {
	internalinventory.Service

	created  *internalinventory.CreateItemInput
	adjusted *internalinventory.AdjustInput
	deleted  uint64
	adjErr   error
}

func (s *stubInventory) CreateItem(_ context.Context, _ *access.Actor, input internalinventory.CreateItemInput) (*models.InventoryItem, error) {
	s.created = &input
	return &models.InventoryItem{ID: 1, NameEn: input.NameEn, Qty: input.Qty, Location: input.Location}, nil
}

func (s *stubInventory) AdjustQuantity(_ context.Context, _ *access.Actor, input internalinventory.AdjustInput) (*models.InventoryItem, error) {
	s.adjusted = &input
	if s.adjErr != nil {
		return nil, s.adjErr
	}
	return &models.InventoryItem{ID: 1, NameEn: input.ItemName}, nil
}

func (s *stubInventory) DeleteItem(_ context.Context, _ *access.Actor, id uint64) error {
	s.deleted = id
	return nil
}

type stubTransfers struct {
	transfers.Service

	transfer *transfers.TransferInput
	ret      *transfers.ReturnInput
}

func (s *stubTransfers) Transfer(_ context.Context, _ *access.Actor, input transfers.TransferInput) (*transfers.TransferResult, error) {
	s.transfer = &input
	return &transfers.TransferResult{}, nil
}

func (s *stubTransfers) Return(_ context.Context, _ *access.Actor, input transfers.ReturnInput) (*models.InventoryItem, error) {
	s.ret = &input
	return &models.InventoryItem{}, nil
}

func newRouter(inv internalinventory.Service, mv transfers.Service) http.Handler {
	logg := logger.Nop()
	r := chi.NewRouter()
	r.Post("/inventory", Create(inv, logg))
	r.Post("/inventory/adjust", Adjust(inv, logg))
	r.Post("/inventory/transfer", Transfer(mv, logg))
	r.Post("/inventory/return", Return(mv, logg))
	r.Delete("/inventory/{itemId}", Delete(inv, logg))
	return r
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req = req.WithContext(access.WithActor(req.Context(), access.Actor{Name: "Sami", Role: enums.RoleManager}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateReturnsCreated(t *testing.T) {
	inv := &stubInventory{}
	rec := serve(newRouter(inv, nil), http.MethodPost, "/inventory", `{"name_en":"Gloves","qty":12,"location":"NSTC","unit":"pairs"}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, inv.created)
	assert.Equal(t, "Gloves", inv.created.NameEn)
	assert.Equal(t, 12, inv.created.Qty)
}

func TestCreateRejectsNegativeQuantity(t *testing.T) {
	inv := &stubInventory{}
	rec := serve(newRouter(inv, nil), http.MethodPost, "/inventory", `{"name_en":"Gloves","qty":-1,"location":"NSTC"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, inv.created)
}

func TestAdjustSurfacesAvailableQuantity(t *testing.T) {
	inv := &stubInventory{adjErr: internalinventory.InsufficientStock("Gloves", "NSTC", 3)}
	rec := serve(newRouter(inv, nil), http.MethodPost, "/inventory/adjust", `{"item_name":"Gloves","location":"NSTC","change_amount":-5}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"available":3`)
	require.NotNil(t, inv.adjusted)
	assert.Equal(t, -5, inv.adjusted.Delta)
}

func TestDeleteReturnsNoContent(t *testing.T) {
	inv := &stubInventory{}
	rec := serve(newRouter(inv, nil), http.MethodDelete, "/inventory/42", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, uint64(42), inv.deleted)
}

func TestTransferRequiresDestination(t *testing.T) {
	mv := &stubTransfers{}
	rec := serve(newRouter(nil, mv), http.MethodPost, "/inventory/transfer", `{"item_name":"Gloves","qty":3,"from":"NSTC"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, mv.transfer)
}

func TestReturnAcceptsItemNameWithoutID(t *testing.T) {
	mv := &stubTransfers{}
	rec := serve(newRouter(nil, mv), http.MethodPost, "/inventory/return", `{"item_name":"Gloves","qty":3,"project":"Metro","destination":"NSTC"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, mv.ret)
	assert.Equal(t, "Gloves", mv.ret.ItemName)

	rec = serve(newRouter(nil, mv), http.MethodPost, "/inventory/return", `{"qty":3,"project":"Metro"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuantitiesBeyondColumnRangeAreRejected(t *testing.T) {
	inv := &stubInventory{}
	h := newRouter(inv, nil)

	for _, amount := range []string{"2147483648", "-2147483648", "-9223372036854775808"} {
		rec := serve(h, http.MethodPost, "/inventory/adjust", `{"item_name":"Gloves","location":"NSTC","change_amount":`+amount+`}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code, amount)
	}
	assert.Nil(t, inv.adjusted)

	rec := serve(h, http.MethodPost, "/inventory", `{"name_en":"Gloves","qty":2147483648,"location":"NSTC"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, inv.created)

	rec = serve(h, http.MethodPost, "/inventory/adjust", `{"item_name":"Gloves","location":"NSTC","change_amount":-2147483647}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

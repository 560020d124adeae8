package controllers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delicado-shop/delicado-api/api/middleware"
	"github.com/delicado-shop/delicado-api/internal/cart"
)

type fakeCart struct {
	session  string
	quantity int
	lineID   string
}

func (f *fakeCart) Get(ctx context.Context, sessionID string) (cart.State, error) {
	f.session = sessionID
	return cart.Empty(), nil
}

func (f *fakeCart) AddItem(ctx context.Context, sessionID string, input cart.AddItemInput) (cart.State, error) {
	f.session = sessionID
	return cart.State{Items: []cart.LineItem{{ID: "l1", ProductID: input.ProductID, Quantity: 1}}, ItemCount: 1}, nil
}

func (f *fakeCart) SetQuantity(ctx context.Context, sessionID, lineID string, quantity int) (cart.State, error) {
	f.session, f.lineID, f.quantity = sessionID, lineID, quantity
	return cart.Empty(), nil
}

func (f *fakeCart) RemoveItem(ctx context.Context, sessionID, lineID string) (cart.State, error) {
	f.session, f.lineID = sessionID, lineID
	return cart.Empty(), nil
}

func (f *fakeCart) Clear(ctx context.Context, sessionID string) (cart.State, error) {
	f.session = sessionID
	return cart.Empty(), nil
}

func withSession(req *http.Request, id string) *http.Request {
	return req.WithContext(middleware.WithSessionID(req.Context(), id))
}

func TestCart_RequiresSession(t *testing.T) {
	rec := httptest.NewRecorder()
	GetCart(&fakeCart{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddCartItem(t *testing.T) {
	svc := &fakeCart{}
	body := []byte(`{"product_id":"` + uuid.NewString() + `","quantity":1}`)
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/cart/items", bytes.NewReader(body)), "sess-1")
	rec := httptest.NewRecorder()

	AddCartItem(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "sess-1", svc.session)
	assert.Contains(t, rec.Body.String(), `"item_count":1`)
}

func TestSetCartItemQuantity(t *testing.T) {
	svc := &fakeCart{}
	req := httptest.NewRequest(http.MethodPatch, "/", bytes.NewReader([]byte(`{"quantity":0}`)))
	req = withSession(withURLParam(req, "lineID", "l1"), "sess-1")
	rec := httptest.NewRecorder()

	SetCartItemQuantity(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "l1", svc.lineID)
	assert.Zero(t, svc.quantity)

	req = httptest.NewRequest(http.MethodPatch, "/", bytes.NewReader([]byte(`{}`)))
	req = withSession(withURLParam(req, "lineID", "l1"), "sess-1")
	rec = httptest.NewRecorder()
	SetCartItemQuantity(svc, nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemoveAndClearCart(t *testing.T) {
	svc := &fakeCart{}
	req := withSession(withURLParam(httptest.NewRequest(http.MethodDelete, "/", nil), "lineID", "l9"), "sess-2")
	rec := httptest.NewRecorder()
	RemoveCartItem(svc, nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "l9", svc.lineID)

	rec = httptest.NewRecorder()
	ClearCart(svc, nil).ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodDelete, "/api/cart", nil), "sess-2"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

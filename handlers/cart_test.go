package handlers

import (
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"tallycart-backend/cart"
)

func TestAddToCartFromCatalog(t *testing.T) {
	db := freshDB()
	router, _ := setupTestRouter(db, cart.DefaultConfig())

	_, token := seedTestUser(db, "cart@test.com", "customer")
	prod := seedProduct(db, "Cart Product", 5.99, 10)

	body := map[string]interface{}{
		"product_id": prod.ID.String(),
		"quantity":   2,
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/cart", body, token))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := parseResponse(w)
	if qty, ok := resp["qty"].(float64); !ok || qty != 2 {
		t.Errorf("expected qty 2, got %v", resp["qty"])
	}
	if resp["id"] != prod.ID.String() {
		t.Errorf("expected item id %s, got %v", prod.ID, resp["id"])
	}
	if resp["rowId"] == "" {
		t.Error("expected a rowId in the response")
	}
}

func TestAddToCartCustomItem(t *testing.T) {
	db := freshDB()
	router, _ := setupTestRouter(db, cart.DefaultConfig())

	_, token := seedTestUser(db, "custom@test.com", "customer")

	body := map[string]interface{}{
		"id":       "sku-1",
		"name":     "Custom Thing",
		"price":    12.50,
		"quantity": 1,
		"options":  map[string]string{"color": "red"},
		"tax_rate": 10,
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/cart", body, token))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := parseResponse(w)
	if resp["name"] != "Custom Thing" {
		t.Errorf("name = %v", resp["name"])
	}
	tax, _ := resp["tax"].(float64)
	if math.Abs(tax-1.25) > 1e-9 {
		t.Errorf("tax = %v, want 1.25", resp["tax"])
	}
}

func TestAddToCartInsufficientStock(t *testing.T) {
	db := freshDB()
	router, _ := setupTestRouter(db, cart.DefaultConfig())

	_, token := seedTestUser(db, "stock@test.com", "customer")
	prod := seedProduct(db, "Scarce Product", 5.99, 1)

	body := map[string]interface{}{
		"product_id": prod.ID.String(),
		"quantity":   5,
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/cart", body, token))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAddToCartMissingFields(t *testing.T) {
	db := freshDB()
	router, _ := setupTestRouter(db, cart.DefaultConfig())

	_, token := seedTestUser(db, "missing@test.com", "customer")

	// No product_id and no id/name/price triplet.
	body := map[string]interface{}{"quantity": 1}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/cart", body, token))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAddToCartRequiresAuth(t *testing.T) {
	db := freshDB()
	router, _ := setupTestRouter(db, cart.DefaultConfig())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/api/cart", map[string]interface{}{"quantity": 1}))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Code)
	}
}

func TestGetCartTotals(t *testing.T) {
	db := freshDB()
	router, _ := setupTestRouter(db, cart.DefaultConfig())

	_, token := seedTestUser(db, "totals@test.com", "customer")

	// 2 x 10.00 at 23%, plus a 5.00 fee at 10%.
	addBody := map[string]interface{}{
		"id": "sku-1", "name": "Widget", "price": 10.0, "quantity": 2,
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/cart", addBody, token))
	if w.Code != http.StatusOK {
		t.Fatalf("add failed: %d %s", w.Code, w.Body.String())
	}

	feeBody := map[string]interface{}{"name": "delivery", "amount": 5.0, "tax_rate": 10.0}
	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/cart/fees", feeBody, token))
	if w.Code != http.StatusOK {
		t.Fatalf("add fee failed: %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/cart", nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("get cart failed: %d %s", w.Code, w.Body.String())
	}

	resp := parseResponse(w)
	if count, _ := resp["count"].(float64); count != 2 {
		t.Errorf("count = %v, want 2", resp["count"])
	}
	items, _ := resp["items"].([]interface{})
	if len(items) != 1 {
		t.Errorf("expected 1 item, got %d", len(items))
	}
	fees, _ := resp["fees"].([]interface{})
	if len(fees) != 1 {
		t.Errorf("expected 1 fee, got %d", len(fees))
	}

	totals, _ := resp["totals"].(map[string]interface{})
	expect := map[string]string{
		"subtotal":          "20.0000",
		"subtotal_with_tax": "24.6000",
		"tax":               "5.1000",
		"fee_tax":           "0.5000",
		"fee_total":         "5.5000",
		"total":             "30.1000",
	}
	for key, want := range expect {
		if totals[key] != want {
			t.Errorf("totals[%s] = %v, want %s", key, totals[key], want)
		}
	}
}

func TestUpdateCartItemQuantity(t *testing.T) {
	db := freshDB()
	router, _ := setupTestRouter(db, cart.DefaultConfig())

	_, token := seedTestUser(db, "update@test.com", "customer")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/cart", map[string]interface{}{
		"id": "sku-1", "name": "Widget", "price": 10.0, "quantity": 1,
	}, token))
	rowID := parseResponse(w)["rowId"].(string)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("PUT", "/api/cart/items/"+rowID,
		map[string]interface{}{"quantity": 5}, token))
	if w.Code != http.StatusOK {
		t.Fatalf("update failed: %d %s", w.Code, w.Body.String())
	}
	if qty, _ := parseResponse(w)["qty"].(float64); qty != 5 {
		t.Errorf("qty = %v, want 5", qty)
	}
}

func TestUpdateCartItemToZeroRemoves(t *testing.T) {
	db := freshDB()
	router, _ := setupTestRouter(db, cart.DefaultConfig())

	_, token := seedTestUser(db, "zero@test.com", "customer")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/cart", map[string]interface{}{
		"id": "sku-1", "name": "Widget", "price": 10.0, "quantity": 1,
	}, token))
	rowID := parseResponse(w)["rowId"].(string)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("PUT", "/api/cart/items/"+rowID,
		map[string]interface{}{"quantity": 0}, token))
	if w.Code != http.StatusOK {
		t.Fatalf("update failed: %d %s", w.Code, w.Body.String())
	}
	if removed, _ := parseResponse(w)["removed"].(bool); !removed {
		t.Error("expected the response to flag the removal")
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/cart", nil, token))
	if count, _ := parseResponse(w)["count"].(float64); count != 0 {
		t.Errorf("count = %v after removal", count)
	}
}

func TestUpdateCartItemUnknownRow(t *testing.T) {
	db := freshDB()
	router, _ := setupTestRouter(db, cart.DefaultConfig())

	_, token := seedTestUser(db, "unknown@test.com", "customer")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("PUT", "/api/cart/items/deadbeef",
		map[string]interface{}{"quantity": 2}, token))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRemoveCartItem(t *testing.T) {
	db := freshDB()
	router, _ := setupTestRouter(db, cart.DefaultConfig())

	_, token := seedTestUser(db, "remove@test.com", "customer")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/cart", map[string]interface{}{
		"id": "sku-1", "name": "Widget", "price": 10.0, "quantity": 1,
	}, token))
	rowID := parseResponse(w)["rowId"].(string)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("DELETE", "/api/cart/items/"+rowID, nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("remove failed: %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("DELETE", "/api/cart/items/"+rowID, nil, token))
	if w.Code != http.StatusNotFound {
		t.Errorf("removing a missing row must 404, got %d", w.Code)
	}
}

func TestClearCart(t *testing.T) {
	db := freshDB()
	router, _ := setupTestRouter(db, cart.DefaultConfig())

	_, token := seedTestUser(db, "clear@test.com", "customer")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/cart", map[string]interface{}{
		"id": "sku-1", "name": "Widget", "price": 10.0, "quantity": 3,
	}, token))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("DELETE", "/api/cart", nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("clear failed: %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/cart", nil, token))
	if count, _ := parseResponse(w)["count"].(float64); count != 0 {
		t.Errorf("count = %v after clear", count)
	}
}

func TestCartInstanceQuery(t *testing.T) {
	db := freshDB()
	router, _ := setupTestRouter(db, cart.DefaultConfig())

	_, token := seedTestUser(db, "instance@test.com", "customer")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/cart?instance=wishlist", map[string]interface{}{
		"id": "sku-1", "name": "Widget", "price": 10.0, "quantity": 1,
	}, token))
	if w.Code != http.StatusOK {
		t.Fatalf("add failed: %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/cart", nil, token))
	if count, _ := parseResponse(w)["count"].(float64); count != 0 {
		t.Errorf("default instance count = %v, want 0", count)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/cart?instance=wishlist", nil, token))
	resp := parseResponse(w)
	if resp["instance"] != "wishlist" {
		t.Errorf("instance = %v", resp["instance"])
	}
	if count, _ := resp["count"].(float64); count != 1 {
		t.Errorf("wishlist count = %v, want 1", count)
	}
}

func TestCartsAreScopedPerUser(t *testing.T) {
	db := freshDB()
	router, _ := setupTestRouter(db, cart.DefaultConfig())

	_, aliceToken := seedTestUser(db, "alice@test.com", "customer")
	_, bobToken := seedTestUser(db, "bob@test.com", "customer")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/cart", map[string]interface{}{
		"id": "sku-1", "name": "Widget", "price": 10.0, "quantity": 2,
	}, aliceToken))
	if w.Code != http.StatusOK {
		t.Fatalf("add failed: %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/cart", nil, bobToken))
	if count, _ := parseResponse(w)["count"].(float64); count != 0 {
		t.Errorf("bob sees alice's cart, count = %v", count)
	}
}

func TestFeeEndpoints(t *testing.T) {
	db := freshDB()
	router, _ := setupTestRouter(db, cart.DefaultConfig())

	_, token := seedTestUser(db, "fees@test.com", "customer")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/cart/fees",
		map[string]interface{}{"name": "delivery", "amount": 5.0, "tax_rate": 10.0}, token))
	if w.Code != http.StatusOK {
		t.Fatalf("add fee failed: %d %s", w.Code, w.Body.String())
	}

	// A negative rate is rejected before anything is stored.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/cart/fees",
		map[string]interface{}{"name": "bad", "amount": 5.0, "tax_rate": -1.0}, token))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for negative rate, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/cart/fees", nil, token))
	if fees := parseResponseArray(w); len(fees) != 1 {
		t.Errorf("expected 1 fee, got %d", len(fees))
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("DELETE", "/api/cart/fees/delivery", nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("remove fee failed: %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/cart/fees", nil, token))
	if fees := parseResponseArray(w); len(fees) != 0 {
		t.Errorf("expected no fees, got %d", len(fees))
	}
}

func TestStoreAndRestoreCartEndpoints(t *testing.T) {
	db := freshDB()
	router, _ := setupTestRouter(db, cart.DefaultConfig())

	_, token := seedTestUser(db, "store@test.com", "customer")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/cart", map[string]interface{}{
		"id": "sku-1", "name": "Widget", "price": 10.0, "quantity": 2,
	}, token))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/cart/store",
		map[string]interface{}{"identifier": "order-42"}, token))
	if w.Code != http.StatusOK {
		t.Fatalf("store failed: %d %s", w.Code, w.Body.String())
	}

	var stored int64
	db.Table("stored_carts").Where("identifier = ?", "order-42").Count(&stored)
	if stored != 1 {
		t.Fatalf("expected 1 stored row, got %d", stored)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("DELETE", "/api/cart", nil, token))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/cart/restore",
		map[string]interface{}{"identifier": "order-42"}, token))
	if w.Code != http.StatusOK {
		t.Fatalf("restore failed: %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/cart", nil, token))
	if count, _ := parseResponse(w)["count"].(float64); count != 2 {
		t.Errorf("count = %v after restore, want 2", count)
	}
}

func TestAssociateAndTaxEndpoints(t *testing.T) {
	db := freshDB()
	router, _ := setupTestRouter(db, cart.DefaultConfig())

	_, token := seedTestUser(db, "assoc@test.com", "customer")
	prod := seedProduct(db, "Assoc Product", 10.0, 5)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/cart", map[string]interface{}{
		"product_id": prod.ID.String(), "quantity": 1,
	}, token))
	rowID := parseResponse(w)["rowId"].(string)

	// Catalog adds are associated automatically; re-associating is fine.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("PUT", fmt.Sprintf("/api/cart/items/%s/associate", rowID),
		map[string]interface{}{"type": "product"}, token))
	if w.Code != http.StatusOK {
		t.Fatalf("associate failed: %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("PUT", fmt.Sprintf("/api/cart/items/%s/associate", rowID),
		map[string]interface{}{"type": "ghost"}, token))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unregistered type, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("PUT", fmt.Sprintf("/api/cart/items/%s/tax", rowID),
		map[string]interface{}{"tax_rate": 8.0}, token))
	if w.Code != http.StatusOK {
		t.Fatalf("set tax failed: %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/cart", nil, token))
	items, _ := parseResponse(w)["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	item, _ := items[0].(map[string]interface{})
	tax, _ := item["tax"].(float64)
	if math.Abs(tax-0.80) > 1e-9 {
		t.Errorf("tax = %v, want 0.80 after rate change", item["tax"])
	}
}

package test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gulitdev/gulit-api/core/cart"
)

type cartTest struct {
	*TestEnv
}

// createItemOK puts a product in the logged-in buyer's cart.
func (rt *cartTest) createItemOK(t *testing.T, productID string, quantity int) {
	b, err := json.Marshal(map[string]any{"productId": productID, "quantity": quantity})
	if err != nil {
		t.Fatal(err)
	}

	r, err := http.NewRequest(http.MethodPut, rt.URL+"/cart/items", bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	r.Header.Set("Content-Type", "application/json")

	w, err := rt.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK && w.StatusCode != http.StatusCreated {
		t.Fatalf("can't add product %s to cart: status code %s", productID, w.Status)
	}
}

func (rt *cartTest) showCartOK(t *testing.T) cart.Cart {
	w, err := rt.Client().Get(rt.URL + "/cart")
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't fetch cart: status code %s", w.Status)
	}

	var crt cart.Cart
	if err := json.NewDecoder(w.Body).Decode(&crt); err != nil {
		t.Fatalf("cannot unmarshal cart: %v", err)
	}
	return crt
}

func TestCart(t *testing.T) {
	env, err := NewTestEnv(t, "cart_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	pt := &productTest{env}
	rt := &cartTest{env}

	p1 := pt.createProductOK(t, 100, 10)
	p2 := pt.createProductOK(t, 300, 10)

	if err := Login(env.Server, env.UserEmail, env.UserPass); err != nil {
		t.Fatal(err)
	}
	defer Logout(env.Server)

	rt.createItemOK(t, p1.ID, 2)
	rt.createItemOK(t, p2.ID, 1)

	crt := rt.showCartOK(t)
	if len(crt.Items) != 2 {
		t.Fatalf("expected 2 cart items, got %d", len(crt.Items))
	}

	// Re-adding the same product replaces the quantity of the single line.
	rt.createItemOK(t, p1.ID, 3)
	crt = rt.showCartOK(t)
	if len(crt.Items) != 2 {
		t.Fatalf("expected 2 cart items after upsert, got %d", len(crt.Items))
	}
	for _, it := range crt.Items {
		if it.ProductID == p1.ID && it.Quantity != 3 {
			t.Fatalf("expected quantity 3 for product %s, got %d", p1.ID, it.Quantity)
		}
	}

	r, err := http.NewRequest(http.MethodDelete, env.URL+"/cart/items/"+p2.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	w, err := env.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	w.Body.Close()
	if w.StatusCode != http.StatusNoContent {
		t.Fatalf("can't remove cart item: status code %s", w.Status)
	}

	crt = rt.showCartOK(t)
	if len(crt.Items) != 1 {
		t.Fatalf("expected 1 cart item after removal, got %d", len(crt.Items))
	}

	r, err = http.NewRequest(http.MethodDelete, env.URL+"/cart", nil)
	if err != nil {
		t.Fatal(err)
	}
	w, err = env.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	w.Body.Close()
	if w.StatusCode != http.StatusNoContent {
		t.Fatalf("can't flush cart: status code %s", w.Status)
	}

	crt = rt.showCartOK(t)
	if len(crt.Items) != 0 {
		t.Fatalf("expected an empty cart, got %d items", len(crt.Items))
	}
}

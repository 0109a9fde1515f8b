package test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gulitdev/gulit-api/core/product"
)

type productTest struct {
	*TestEnv
}

func (pt *productTest) createProductOK(t *testing.T, price int, quantity int) product.Product {
	if err := Login(pt.Server, pt.SellerEmail, pt.SellerPass); err != nil {
		t.Fatal(err)
	}
	defer Logout(pt.Server)

	body := map[string]any{
		"name":        "Roasted Yirgacheffe",
		"description": "Single origin, light roast",
		"category":    "coffee",
		"price":       price,
		"quantity":    quantity,
	}

	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}

	w, err := pt.Client().Post(pt.URL+"/products", "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusCreated {
		t.Fatalf("can't create product: status code %s", w.Status)
	}

	var prd product.Product
	if err := json.NewDecoder(w.Body).Decode(&prd); err != nil {
		t.Fatalf("cannot unmarshal created product: %v", err)
	}
	return prd
}

func (pt *productTest) showProductOK(t *testing.T, id string) product.Product {
	w, err := pt.Client().Get(pt.URL + "/products/" + id)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't fetch product %s: status code %s", id, w.Status)
	}

	var prd product.Product
	if err := json.NewDecoder(w.Body).Decode(&prd); err != nil {
		t.Fatalf("cannot unmarshal product: %v", err)
	}
	return prd
}

func TestProduct(t *testing.T) {
	env, err := NewTestEnv(t, "product_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	pt := &productTest{env}

	prd := pt.createProductOK(t, 250, 5)
	got := pt.showProductOK(t, prd.ID)
	if got.Price != 250 || got.Quantity != 5 {
		t.Fatalf("unexpected product state: price %d quantity %d", got.Price, got.Quantity)
	}

	// Buyers cannot create products.
	if err := Login(env.Server, env.UserEmail, env.UserPass); err != nil {
		t.Fatal(err)
	}
	defer Logout(env.Server)

	b, _ := json.Marshal(map[string]any{
		"name": "x", "description": "y", "category": "z", "price": 1,
	})
	w, err := env.Client().Post(env.URL+"/products", "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusUnauthorized && w.StatusCode != http.StatusForbidden {
		t.Fatalf("buyer could create a product: status code %s", w.Status)
	}

	pt.testRating(t, prd.ID)
}

func TestProductMine(t *testing.T) {
	env, err := NewTestEnv(t, "product_mine_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	pt := &productTest{env}
	prd := pt.createProductOK(t, 120, 3)

	if err := Login(env.Server, env.SellerEmail, env.SellerPass); err != nil {
		t.Fatal(err)
	}
	defer Logout(env.Server)

	w, err := env.Client().Get(env.URL + "/products/mine")
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't list own products: status code %s", w.Status)
	}

	var mine []product.Product
	if err := json.NewDecoder(w.Body).Decode(&mine); err != nil {
		t.Fatalf("cannot unmarshal own products: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != prd.ID {
		t.Fatalf("own listings are %d entries, want the single created one", len(mine))
	}
}

func TestProductManagerRole(t *testing.T) {
	env, err := NewTestEnv(t, "product_manager_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	pt := &productTest{env}
	prd := pt.createProductOK(t, 80, 2)

	// Managers are provisioned out of band, like admins.
	if err := Signup(env.Server, "Manager", "manager@test.com", "managerpass1", "seller"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.DB.Exec(`UPDATE users SET role = 'manager' WHERE email = $1`, "manager@test.com"); err != nil {
		t.Fatal(err)
	}
	if err := Login(env.Server, "manager@test.com", "managerpass1"); err != nil {
		t.Fatal(err)
	}
	defer Logout(env.Server)

	// A manager may mutate any listing, not just its own: update, image
	// binding and deletion all answer under the same rule.
	b, _ := json.Marshal(map[string]any{"price": 95})
	r, err := http.NewRequest(http.MethodPut, env.URL+"/products/"+prd.ID, bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	r.Header.Set("Content-Type", "application/json")

	w, err := env.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	w.Body.Close()
	if w.StatusCode != http.StatusOK {
		t.Fatalf("manager can't update a foreign listing: status code %s", w.Status)
	}

	r, err = http.NewRequest(http.MethodDelete, env.URL+"/products/"+prd.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	w, err = env.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	w.Body.Close()
	if w.StatusCode != http.StatusNoContent {
		t.Fatalf("manager can't delete a foreign listing: status code %s", w.Status)
	}
}

func (pt *productTest) testRating(t *testing.T, productID string) {
	if err := Login(pt.Server, pt.UserEmail, pt.UserPass); err != nil {
		t.Fatal(err)
	}
	defer Logout(pt.Server)

	rate := func(value int) *http.Response {
		b, _ := json.Marshal(map[string]any{"value": value, "review": "ok"})
		r, err := http.NewRequest(http.MethodPut, pt.URL+"/products/"+productID+"/ratings", bytes.NewReader(b))
		if err != nil {
			t.Fatal(err)
		}
		r.Header.Set("Content-Type", "application/json")

		w, err := pt.Client().Do(r)
		if err != nil {
			t.Fatal(err)
		}
		return w
	}

	w := rate(4)
	w.Body.Close()
	if w.StatusCode != http.StatusOK && w.StatusCode != http.StatusCreated {
		t.Fatalf("can't rate product: status code %s", w.Status)
	}

	// Rating again replaces the previous score instead of stacking.
	w = rate(2)
	w.Body.Close()
	if w.StatusCode != http.StatusOK && w.StatusCode != http.StatusCreated {
		t.Fatalf("can't re-rate product: status code %s", w.Status)
	}

	l, err := pt.Client().Get(pt.URL + "/products/" + productID + "/ratings")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Body.Close()

	var out struct {
		Average float64          `json:"average"`
		Ratings []product.Rating `json:"ratings"`
	}
	if err := json.NewDecoder(l.Body).Decode(&out); err != nil {
		t.Fatalf("cannot unmarshal ratings: %v", err)
	}

	if len(out.Ratings) != 1 {
		t.Fatalf("expected a single rating, got %d", len(out.Ratings))
	}
	if out.Ratings[0].Value != 2 {
		t.Fatalf("expected the last value to win, got %d", out.Ratings[0].Value)
	}
	if out.Average != 2 {
		t.Fatalf("expected average 2, got %f", out.Average)
	}

	w = rate(9)
	w.Body.Close()
	if w.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("out of range score accepted: status code %s", w.Status)
	}
}

func (pt *productTest) favoriteOK(t *testing.T, productID string) {
	w, err := pt.Client().Post(pt.URL+"/products/"+productID+"/favorite", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusCreated && w.StatusCode != http.StatusNoContent {
		t.Fatalf("can't favorite product: status code %s", w.Status)
	}
}

func TestFavorites(t *testing.T) {
	env, err := NewTestEnv(t, "favorites_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	pt := &productTest{env}
	p1 := pt.createProductOK(t, 100, 1)
	p2 := pt.createProductOK(t, 200, 1)

	if err := Login(env.Server, env.UserEmail, env.UserPass); err != nil {
		t.Fatal(err)
	}
	defer Logout(env.Server)

	pt.favoriteOK(t, p1.ID)
	pt.favoriteOK(t, p2.ID)

	w, err := env.Client().Get(env.URL + "/products/favorites")
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't list favorites: status code %s", w.Status)
	}

	var favs []product.Product
	if err := json.NewDecoder(w.Body).Decode(&favs); err != nil {
		t.Fatalf("cannot unmarshal favorites: %v", err)
	}

	if len(favs) != 2 {
		t.Fatalf("expected 2 favorites, got %d", len(favs))
	}

	r, err := http.NewRequest(http.MethodDelete, env.URL+"/products/"+p1.ID+"/favorite", nil)
	if err != nil {
		t.Fatal(err)
	}
	d, err := env.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	d.Body.Close()
	if d.StatusCode != http.StatusNoContent {
		t.Fatalf("can't unfavorite product: status code %s", d.Status)
	}
}

func (pt *productTest) deleteProductOK(t *testing.T, id string) {
	if err := Login(pt.Server, pt.SellerEmail, pt.SellerPass); err != nil {
		t.Fatal(err)
	}
	defer Logout(pt.Server)

	r, err := http.NewRequest(http.MethodDelete, pt.URL+"/products/"+id, nil)
	if err != nil {
		t.Fatal(err)
	}

	w, err := pt.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusNoContent {
		t.Fatalf("can't delete product %s: status code %s", id, w.Status)
	}
}

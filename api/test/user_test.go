package test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gulitdev/gulit-api/core/user"
)

type userTest struct {
	*TestEnv
}

func (ut *userTest) currentOK(t *testing.T) user.User {
	w, err := ut.Client().Get(ut.URL + "/users/current")
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't fetch current user: status code %s", w.Status)
	}

	var usr user.User
	if err := json.NewDecoder(w.Body).Decode(&usr); err != nil {
		t.Fatalf("cannot unmarshal user: %v", err)
	}
	return usr
}

func TestAuth(t *testing.T) {
	env, err := NewTestEnv(t, "auth_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	ut := &userTest{env}

	// Not logged in.
	w, err := env.Client().Get(env.URL + "/users/current")
	if err != nil {
		t.Fatal(err)
	}
	w.Body.Close()
	if w.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous current-user answered %s, want 401", w.Status)
	}

	if err := Login(env.Server, env.UserEmail, env.UserPass); err != nil {
		t.Fatal(err)
	}

	usr := ut.currentOK(t)
	if usr.Email != env.UserEmail {
		t.Fatalf("current user is %s, want %s", usr.Email, env.UserEmail)
	}

	if err := Logout(env.Server); err != nil {
		t.Fatal(err)
	}

	w, err = env.Client().Get(env.URL + "/users/current")
	if err != nil {
		t.Fatal(err)
	}
	w.Body.Close()
	if w.StatusCode != http.StatusUnauthorized {
		t.Fatalf("current-user after logout answered %s, want 401", w.Status)
	}

	// A second signup on the same email is rejected.
	if err := Signup(env.Server, "Copycat", env.UserEmail, "anotherpass1", ""); err == nil {
		t.Fatal("duplicate signup succeeded")
	}

	if err := Login(env.Server, env.UserEmail, "wrongpassword"); err == nil {
		t.Fatal("login with a wrong password succeeded")
	}
}

func TestFollow(t *testing.T) {
	env, err := NewTestEnv(t, "follow_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	ut := &userTest{env}

	if err := Login(env.Server, env.SellerEmail, env.SellerPass); err != nil {
		t.Fatal(err)
	}
	seller := ut.currentOK(t)
	Logout(env.Server)

	if err := Login(env.Server, env.UserEmail, env.UserPass); err != nil {
		t.Fatal(err)
	}
	defer Logout(env.Server)
	buyer := ut.currentOK(t)

	w, err := env.Client().Post(env.URL+"/users/"+seller.ID+"/follow", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	w.Body.Close()
	if w.StatusCode != http.StatusCreated && w.StatusCode != http.StatusNoContent {
		t.Fatalf("can't follow user: status code %s", w.Status)
	}

	// Following yourself is rejected.
	w, err = env.Client().Post(env.URL+"/users/"+buyer.ID+"/follow", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	w.Body.Close()
	if w.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("self-follow answered %s, want 422", w.Status)
	}

	l, err := env.Client().Get(env.URL + "/users/" + seller.ID + "/followers")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Body.Close()

	var followers []user.User
	if err := json.NewDecoder(l.Body).Decode(&followers); err != nil {
		t.Fatalf("cannot unmarshal followers: %v", err)
	}
	if len(followers) != 1 || followers[0].ID != buyer.ID {
		t.Fatalf("unexpected followers list: %+v", followers)
	}

	r, err := http.NewRequest(http.MethodDelete, env.URL+"/users/"+seller.ID+"/follow", nil)
	if err != nil {
		t.Fatal(err)
	}
	d, err := env.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	d.Body.Close()
	if d.StatusCode != http.StatusNoContent {
		t.Fatalf("can't unfollow user: status code %s", d.Status)
	}
}

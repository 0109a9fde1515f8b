package weberr

import (
	"errors"
	"net/http"
	"testing"
)

func TestWrapNil(t *testing.T) {
	if err := Wrap(nil, WithFields(map[string]interface{}{"k": "v"})); err != nil {
		t.Fatalf("wrapping nil should stay nil, got %v", err)
	}
}

func TestFieldsMerge(t *testing.T) {
	err := errors.New("boom")
	err = Wrap(err, WithFields(map[string]interface{}{"inner": 1, "shared": "old"}))
	err = Wrap(err, WithFields(map[string]interface{}{"outer": 2, "shared": "new"}))

	fields, ok := Fields(err)
	if !ok {
		t.Fatal("expected fields on wrapped error")
	}
	if fields["inner"] != 1 || fields["outer"] != 2 {
		t.Fatalf("fields not merged: %v", fields)
	}
	if fields["shared"] != "new" {
		t.Fatalf("outer wrap should win on collisions, got %v", fields["shared"])
	}
}

func TestResponseThroughWraps(t *testing.T) {
	base := errors.New("missing")
	err := NotFound(base, WithFields(map[string]interface{}{"id": "42"}))

	body, status, ok := Response(err)
	if !ok {
		t.Fatal("expected a response behavior")
	}
	if status != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", status, http.StatusNotFound)
	}
	if er, ok := body.(*ErrorResponse); !ok || er.Error == "" {
		t.Fatalf("unexpected body %#v", body)
	}
	if !errors.Is(err, base) {
		t.Fatal("wrapping should preserve the error chain")
	}
}

package firestore

import (
	"errors"
	"testing"
)

func TestProductDocumentPrice(t *testing.T) {
	cases := []struct {
		name    string
		price   any
		want    string
		missing bool
		fails   bool
	}{
		{name: "integer", price: int64(12), want: "12"},
		{name: "float", price: 9.5, want: "9.5"},
		{name: "string keeps precision", price: " 9.995 ", want: "9.995"},
		{name: "absent", price: nil, missing: true},
		{name: "blank string", price: "  ", missing: true},
		{name: "malformed string", price: "ten", fails: true},
		{name: "unsupported type", price: true, fails: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := productDocument{Price: tc.price}.price()
			switch {
			case tc.missing:
				if !errors.Is(err, errMissingPrice) {
					t.Fatalf("expected missing price, got %v", err)
				}
			case tc.fails:
				if err == nil || errors.Is(err, errMissingPrice) {
					t.Fatalf("expected decode error, got %v", err)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got.String() != tc.want {
					t.Fatalf("expected %s, got %s", tc.want, got)
				}
			}
		})
	}
}

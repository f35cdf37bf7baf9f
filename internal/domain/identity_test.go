package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseIdentity(t *testing.T) {
	tests := []struct {
		in      string
		want    Identity
		wantErr error
	}{
		{"staff:t1", Identity{ID: "t1", Role: Staff}, nil},
		{" Student:s-9 ", Identity{ID: "s-9", Role: Student}, nil},
		{"parent:p:1", Identity{ID: "p:1", Role: Parent}, nil},
		{"lecturer:t1", Identity{}, ErrUnknownRole},
		{"staff:", Identity{}, ErrInvalid},
		{"t1", Identity{}, ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseIdentity(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			if back, _ := ParseIdentity(got.String()); back != got {
				t.Fatalf("String does not round trip: %v", back)
			}
		})
	}
}

func TestPairKeyUnordered(t *testing.T) {
	a := Identity{ID: "s1", Role: Student}
	b := Identity{ID: "t1", Role: Staff}
	if PairKey(a, b) != PairKey(b, a) {
		t.Fatal("pair key depends on order")
	}
	if PairKey(a, b) == PairKey(a, Identity{ID: "t1", Role: Parent}) {
		t.Fatal("role is part of the key")
	}
}

func TestCounterpart(t *testing.T) {
	me := Identity{ID: "s1", Role: Student}
	other := Identity{ID: "t1", Role: Staff}
	c := &Conversation{Participant1: other, Participant2: me, LastMessageAt: time.Now()}

	if got := c.Counterpart(me); got != other {
		t.Fatalf("counterpart = %v", got)
	}
	if !c.Involves("s1") || c.Involves("x") {
		t.Fatal("involves")
	}
	if !c.HasPair(me, other) {
		t.Fatal("has pair")
	}
}

func TestDisplayNameFallbacks(t *testing.T) {
	var nilProfile *Profile
	if nilProfile.DisplayName() != "" {
		t.Fatal("nil profile")
	}
	p := &Profile{Identity: Identity{ID: "t1", Role: Staff}}
	if p.DisplayName() != "staff:t1" {
		t.Fatalf("got %q", p.DisplayName())
	}
	p.Email = "lee@school.test"
	if p.DisplayName() != "lee@school.test" {
		t.Fatalf("got %q", p.DisplayName())
	}
	p.Name = "Ms. Lee"
	if p.DisplayName() != "Ms. Lee" {
		t.Fatalf("got %q", p.DisplayName())
	}
}

package utils

import "testing"

func TestItoa(t *testing.T) {
	cases := map[int64]string{
		0:     "0",
		1:     "1",
		-1:    "-1",
		42:    "42",
		-42:   "-42",
		12345: "12345",
	}
	for in, want := range cases {
		if got := Itoa(in); got != want {
			t.Fatalf("Itoa(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestMix64Distinct(t *testing.T) {
	a, b := Mix64(1), Mix64(2)
	if a == b {
		t.Fatalf("Mix64 collided on adjacent inputs")
	}
	if Mix64(1) != a {
		t.Fatalf("Mix64 not deterministic")
	}
}

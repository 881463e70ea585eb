package racechrono

import (
	"math"
	"testing"
)

func isNaN32(v float32) bool {
	return math.IsNaN(float64(v))
}

func TestRegistryAdd(t *testing.T) {
	var r Registry

	rpm, err := r.Add("rpm", 1)
	if err != nil {
		t.Fatal(err)
	}
	speed, err := r.Add("speed", 10)
	if err != nil {
		t.Fatal(err)
	}

	if r.Len() != 2 {
		t.Fatalf("expected 2 equations, got %d", r.Len())
	}
	if r.At(0) != rpm || r.At(1) != speed {
		t.Fatal("registry order does not match add order")
	}
	if !isNaN32(rpm.Value()) || rpm.Valid() {
		t.Fatal("fresh equation should hold NaN")
	}

	if _, err := r.Add("bad", 0); err == nil {
		t.Fatal("expected error for zero scale")
	}
	if _, err := r.Add("bad", -1); err == nil {
		t.Fatal("expected error for negative scale")
	}
}

func TestRegistryDecode(t *testing.T) {
	tests := []struct {
		Name     string
		Scale    float32
		Raw      int32
		Expected float32
	}{
		{
			Name:     "unit scale",
			Scale:    1,
			Raw:      10,
			Expected: 10,
		},
		{
			Name:     "scaled",
			Scale:    2,
			Raw:      10,
			Expected: 5,
		},
		{
			Name:     "negative raw",
			Scale:    4,
			Raw:      -250,
			Expected: -62.5,
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			var r Registry
			eq, err := r.Add("x", test.Scale)
			if err != nil {
				t.Fatal(err)
			}

			if !r.Decode(0, test.Raw) {
				t.Fatal("decode rejected a registered index")
			}
			if eq.Value() != test.Expected {
				t.Fatalf("expected %g, got %g", test.Expected, eq.Value())
			}
			if !eq.Valid() {
				t.Fatal("expected equation to be valid")
			}
		})
	}
}

func TestRegistryDecodeSentinel(t *testing.T) {
	// The invalid sentinel decodes to NaN whatever the scale is.
	for _, scale := range []float32{0.5, 1, 2, 100} {
		var r Registry
		eq, err := r.Add("x", scale)
		if err != nil {
			t.Fatal(err)
		}

		if !r.Decode(0, 2147483647) {
			t.Fatal("decode rejected a registered index")
		}
		if !isNaN32(eq.Value()) || eq.Valid() {
			t.Fatalf("scale %g: expected NaN, got %g", scale, eq.Value())
		}
	}
}

func TestRegistryDecodeUnknownIndex(t *testing.T) {
	var r Registry
	if r.Decode(0, 1) {
		t.Fatal("decode accepted an index on an empty registry")
	}

	if _, err := r.Add("x", 1); err != nil {
		t.Fatal(err)
	}
	if r.Decode(1, 1) {
		t.Fatal("decode accepted an out-of-range index")
	}
}

func TestRegistryResetAll(t *testing.T) {
	var r Registry

	// Hold on to the equations handed out at add time; the reset has
	// to be observable through them, not just through the registry.
	a, err := r.Add("a", 1)
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Add("b", 2)
	if err != nil {
		t.Fatal(err)
	}

	r.Decode(0, 100)
	r.Decode(1, 100)
	if !a.Valid() || !b.Valid() {
		t.Fatal("expected both equations valid before reset")
	}

	r.ResetAll()

	if !isNaN32(a.Value()) || !isNaN32(b.Value()) {
		t.Fatal("reset did not clear the stored equations in place")
	}
}

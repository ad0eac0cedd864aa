package domain

import (
	"math"
	"testing"
)

const tol = 1e-6

func TestVectorNormalized(t *testing.T) {
	v := Vector{3, 4, 0}
	n := v.Normalized()

	if math.Abs(n.Norm()-1.0) > tol {
		t.Errorf("normalized vector norm = %v, want 1", n.Norm())
	}
	if math.Abs(float64(n[0])-0.6) > tol || math.Abs(float64(n[1])-0.8) > tol {
		t.Errorf("normalized = %v, want [0.6 0.8 0]", n)
	}
}

func TestVectorNormalizedZero(t *testing.T) {
	z := ZeroVector(4)
	n := z.Normalized()
	if !n.IsZero() {
		t.Errorf("zero vector should normalize to itself, got %v", n)
	}
	if n.Dim() != 4 {
		t.Errorf("dimension changed: got %d, want 4", n.Dim())
	}
}

func TestCosineBounds(t *testing.T) {
	cases := []struct {
		name string
		a, b Vector
	}{
		{"identical", Vector{1, 0, 0}, Vector{1, 0, 0}},
		{"orthogonal", Vector{1, 0, 0}, Vector{0, 1, 0}},
		{"opposite", Vector{1, 0, 0}, Vector{-1, 0, 0}},
		{"arbitrary", Vector{0.3, 0.7, 0.2}, Vector{0.9, 0.1, 0.4}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := tc.a.Normalized().Cosine(tc.b.Normalized())
			if c < -1-tol || c > 1+tol {
				t.Errorf("cosine out of [-1,1]: %v", c)
			}
		})
	}
}

func TestCosineSelf(t *testing.T) {
	v := Vector{0.2, 0.5, 0.1, 0.8}.Normalized()
	if c := v.Cosine(v); math.Abs(c-1.0) > tol {
		t.Errorf("cosine(a,a) = %v, want 1", c)
	}
}

func TestDotEqualsCosineForUnitVectors(t *testing.T) {
	a := Vector{0.1, 0.9, 0.3}.Normalized()
	b := Vector{0.7, 0.2, 0.5}.Normalized()
	if math.Abs(a.Dot(b)-a.Cosine(b)) > tol {
		t.Errorf("dot %v != cosine %v for unit vectors", a.Dot(b), a.Cosine(b))
	}
}

func TestCosineZeroVector(t *testing.T) {
	z := ZeroVector(3)
	v := Vector{1, 0, 0}
	if c := z.Cosine(v); c != 0 {
		t.Errorf("cosine with zero vector = %v, want 0", c)
	}
}

func TestVectorScanValueRoundTrip(t *testing.T) {
	v := Vector{0.5, -0.25, 1}
	raw, err := v.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}

	var out Vector
	if err := out.Scan(raw); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if out.Dim() != v.Dim() {
		t.Fatalf("dimension mismatch after round trip: %d != %d", out.Dim(), v.Dim())
	}
	for i := range v {
		if out[i] != v[i] {
			t.Errorf("component %d: got %v, want %v", i, out[i], v[i])
		}
	}
}

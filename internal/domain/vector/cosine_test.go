package vector

import (
	"errors"
	"math"
	"testing"

	"github.com/kailas-cloud/readnext/internal/domain"
)

const tolerance = 1e-9

func TestCosine_SelfIsOne(t *testing.T) {
	vecs := [][]float32{
		{1},
		{0.1, 0.2, 0.3},
		{-3, 4, 0, 12},
		{1e-3, -2e-3, 5e-4},
	}
	for _, v := range vecs {
		s, err := Cosine(v, v)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if math.Abs(s-1) > tolerance {
			t.Errorf("Cosine(%v, %v) = %v, want 1", v, v, s)
		}
	}
}

func TestCosine_ScaleInvariant(t *testing.T) {
	a := []float32{0.5, -1.5, 2}
	for _, scale := range []float32{0.25, 2, 1000} {
		b := make([]float32, len(a))
		for i := range a {
			b[i] = a[i] * scale
		}
		s, err := Cosine(a, b)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if math.Abs(s-1) > 1e-6 {
			t.Errorf("scale %v: got %v, want 1", scale, s)
		}
	}
}

func TestCosine_OppositeAndOrthogonal(t *testing.T) {
	s, _ := Cosine([]float32{1, 0}, []float32{-1, 0})
	if math.Abs(s+1) > tolerance {
		t.Errorf("opposite: got %v, want -1", s)
	}
	s, _ = Cosine([]float32{1, 0}, []float32{0, 1})
	if math.Abs(s) > tolerance {
		t.Errorf("orthogonal: got %v, want 0", s)
	}
}

func TestCosine_ZeroVectorIsUndefined(t *testing.T) {
	s, err := Cosine([]float32{0, 0, 0}, []float32{1, 2, 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.IsNaN(s) {
		t.Fatal("got NaN")
	}
	if !IsUndefined(s) {
		t.Errorf("expected Undefined, got %v", s)
	}
	if s >= -1 {
		t.Errorf("Undefined must rank below every threshold, got %v", s)
	}

	s, _ = Cosine([]float32{1, 2}, []float32{0, 0})
	if !IsUndefined(s) {
		t.Errorf("expected Undefined for zero right operand, got %v", s)
	}
}

func TestCosine_InvalidArgument(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
	}{
		{"length mismatch", []float32{1, 2}, []float32{1}},
		{"both empty", nil, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Cosine(tc.a, tc.b)
			if !errors.Is(err, domain.ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

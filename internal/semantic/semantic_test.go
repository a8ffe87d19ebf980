package semantic

import (
	"math"
	"testing"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"scaled", []float32{1, 1}, []float32{5, 5}, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cosine(tt.a, tt.b)
			if err != nil {
				t.Fatalf("cosine: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("cosine = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineErrors(t *testing.T) {
	if _, err := cosine([]float32{1, 2}, []float32{1}); err == nil {
		t.Error("expected error for mismatched dimensions")
	}
	if _, err := cosine(nil, nil); err == nil {
		t.Error("expected error for empty vectors")
	}
	if _, err := cosine([]float32{0, 0}, []float32{1, 1}); err == nil {
		t.Error("expected error for zero-magnitude vector")
	}
}

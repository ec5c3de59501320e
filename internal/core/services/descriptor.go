package services

import (
	"fmt"
	"math"

	"github.com/Deynao1996/missing-persons-finder/internal/core/domain"
)

// ValidateDescriptor rejects empty descriptors and non-finite components.
func ValidateDescriptor(d domain.Descriptor) error {
	if len(d) == 0 {
		return fmt.Errorf("%w: empty descriptor", domain.ErrInvalidDescriptor)
	}
	for i, v := range d {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: component %d is not finite", domain.ErrInvalidDescriptor, i)
		}
	}
	return nil
}

// Similarity returns 1 - euclideanDistance(a, b).
// Larger means closer; the value is not bounded to [0, 1].
func Similarity(a, b domain.Descriptor) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, fmt.Errorf("%w: empty descriptor", domain.ErrInvalidDescriptor)
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: length %d != %d", domain.ErrInvalidDescriptor, len(a), len(b))
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return 1 - math.Sqrt(sum), nil
}

// IsMatch applies the inclusive similarity threshold.
func IsMatch(similarity, threshold float64) bool {
	return similarity >= threshold
}

package enums

import (
	"fmt"
	"slices"
)

// parseEnum returns the member of valid equal to raw.
func parseEnum[T ~string](valid []T, raw, kind string) (T, error) {
	if i := slices.Index(valid, T(raw)); i >= 0 {
		return valid[i], nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}

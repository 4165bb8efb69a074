package storage

import (
	"fmt"
	"strconv"
)

// Fitness values travel as strings in archived rows so that -Inf and NaN,
// which SQL float columns and JSON both mishandle, survive a round trip.
func formatFitness(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func parseFitness(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed fitness %q: %w", s, err)
	}
	return f, nil
}

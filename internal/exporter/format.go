package exporter

import (
	"fmt"
	"strconv"
)

// formatSample formats a sample value at full precision so a re-import
// round-trips exactly.
func formatSample(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// formatMetric formats a derived metric for report output with a fixed
// number of decimal places.
func formatMetric(f float64) string {
	return fmt.Sprintf("%.4f", f)
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}

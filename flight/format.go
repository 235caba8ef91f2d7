package flight

import (
	"fmt"
	"math"
	"strconv"
)

var compassPoints = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// FormatAltitude renders feet with thousands separators, e.g. 35,000.
func FormatAltitude(altitude int) string {
	s := strconv.Itoa(altitude)
	neg := altitude < 0
	if neg {
		s = s[1:]
	}

	out := make([]byte, 0, len(s)+len(s)/3)
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}

	if neg {
		return "-" + string(out)
	}
	return string(out)
}

// FormatHeading renders a heading as three zero-padded digits.
func FormatHeading(heading int) string {
	return fmt.Sprintf("%03d", heading)
}

// CompassDirection converts a heading to one of eight compass points.
func CompassDirection(heading int) string {
	idx := int(math.RoundToEven(float64(heading)/45)) % 8
	if idx < 0 {
		idx += 8
	}
	return compassPoints[idx]
}

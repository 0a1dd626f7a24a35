package types

import (
	"fmt"
	"math"
)

// FormatDuration renders a number of seconds as "HH:MM:SS".
// Zero (no duration recorded) is reported as "n/a". Hours are not wrapped at 24.
func FormatDuration(seconds float64) string {
	if seconds == 0 {
		return "n/a"
	}

	minutes := math.Floor(seconds / 60)
	hours := math.Floor(minutes / 60)

	return fmt.Sprintf("%02d:%02d:%02d",
		int(hours),
		int(math.Mod(minutes, 60)),
		int(math.Mod(seconds, 60)),
	)
}

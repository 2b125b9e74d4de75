package iostreams

import (
	"time"

	units "github.com/docker/go-units"
)

// FormatDuration renders a wait or timeout for console messages,
// e.g. "10 seconds" or "About a minute".
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "0 seconds"
	}
	if d < time.Second {
		return d.String()
	}
	return units.HumanDuration(d)
}

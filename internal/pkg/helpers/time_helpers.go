package helpers

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// ParseDuration parses a duration string, returns default duration on error.
func ParseDuration(durationStr string, defaultDuration time.Duration) time.Duration {
	duration, err := time.ParseDuration(durationStr)
	if err != nil {
		log.Warn().Err(err).Str("durationStr", durationStr).Dur("defaultDuration", defaultDuration).Msg("Failed to parse duration string, using default")
		return defaultDuration
	}
	return duration
}

// CurrentSchoolYear returns the "YYYY-YYYY" school year containing t.
// A school year starts in June.
func CurrentSchoolYear(t time.Time) string {
	start := t.Year()
	if t.Month() < time.June {
		start--
	}
	return fmt.Sprintf("%d-%d", start, start+1)
}

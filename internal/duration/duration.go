// Package duration parses and formats the compact ?W?D?H?M?S durations used by commands
package duration

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	Day  = 24 * time.Hour
	Week = 7 * Day
)

var (
	ErrInvalid = errors.New("invalid duration")

	durationRe = regexp.MustCompile(`^(?:([0-9]+)W)?(?:([0-9]+)D)?(?:([0-9]+)H)?(?:([0-9]+)M)?(?:([0-9]+)S)?$`)
	units      = []time.Duration{Week, Day, time.Hour, time.Minute, time.Second}
)

// Parse parses s as weeks, days, hours, minutes and seconds, in that order and each optional,
// case and spaces are ignored. At least one component must be present.
func Parse(s string) (time.Duration, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	match := durationRe.FindStringSubmatch(normalized)
	if match == nil {
		return 0, errors.WithStack(ErrInvalid)
	}

	var (
		out   time.Duration
		found bool
	)
	for i, part := range match[1:] {
		if part == "" {
			continue
		}

		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return 0, errors.Wrapf(ErrInvalid, "component %q", part)
		}

		found = true
		out += time.Duration(n) * units[i]
	}

	if !found {
		return 0, errors.WithStack(ErrInvalid)
	}

	return out, nil
}

// Format renders d as "1d 2h 3m 4s", leading zero components are omitted
func Format(d time.Duration) string {
	if d < 0 {
		d = -d
	}

	secs := int64(d / time.Second)
	days, secs := secs/86400, secs%86400
	hours, secs := secs/3600, secs%3600
	minutes, secs := secs/60, secs%60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, secs)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, secs)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, secs)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}

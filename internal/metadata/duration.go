package metadata

import (
	"fmt"
	"regexp"
	"strconv"
)

var isoDurationPattern = regexp.MustCompile(`^P(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)(?:\.\d+)?S)?)?$`)

// ParseISODuration converts an ISO-8601 duration such as PT1H2M3S into whole
// seconds. Absent components count as zero; fractional seconds are truncated.
func ParseISODuration(value string) (int, error) {
	m := isoDurationPattern.FindStringSubmatch(value)
	if m == nil || value == "P" || value == "PT" {
		return 0, fmt.Errorf("invalid ISO-8601 duration %q", value)
	}
	units := []int{7 * 86400, 86400, 3600, 60, 1}
	total := 0
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, fmt.Errorf("invalid ISO-8601 duration %q: %w", value, err)
		}
		total += n * unit
	}
	return total, nil
}

// FormatDuration renders seconds as m:ss, or h:mm:ss from one hour up.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

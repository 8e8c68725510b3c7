package matching

import (
	"fmt"
	"strings"

	"songline/internal/textutil"
)

// BuildQueries returns the ordered, de-duplicated catalog search strings for a
// video title.
func BuildQueries(raw, channel string, d Decomposition) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(q string) {
		q = textutil.CollapseSpace(q)
		if q == "" || degenerate(q) {
			return
		}
		key := textutil.Fold(q)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, q)
	}

	if d.Channel == "" {
		d.Channel = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(channel), topicMarker))
	}
	primary := d.Primary()
	if primary.Artist != "" && primary.Title != "" {
		add(primary.Artist + " " + primary.Title)
		add(fmt.Sprintf("track:%q artist:%q", primary.Title, primary.Artist))
	}
	for _, alt := range d.Interpretations[min(1, len(d.Interpretations)):] {
		if alt.Artist != "" && alt.Title != "" {
			add(alt.Artist + " " + alt.Title)
		}
	}

	cleaned := Clean(raw)
	add(cleaned)
	if d.Channel != "" && !textutil.EqualFold(d.Channel, primary.Artist) && primary.Title != "" {
		add(d.Channel + " " + primary.Title)
	}
	if d.Channel != "" && cleaned != "" {
		add(d.Channel + " " + cleaned)
	}
	add(raw)
	return out
}

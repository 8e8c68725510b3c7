package matching

import (
	"strings"
)

// topicMarker is appended by the video platform to auto-generated artist
// channels ("Artist - Topic").
const topicMarker = " - Topic"

var separators = []string{" - ", " – ", " — ", " | ", " -- ", " ~ "}

// Interpretation is one guess at which part of a video title names the artist.
type Interpretation struct {
	Artist string
	Title  string
}

// Decomposition is the ordered set of interpretations for a title. The first
// entry is the primary interpretation.
type Decomposition struct {
	Interpretations []Interpretation
	// Channel is the uploader name with any auto-generated marker removed.
	Channel string
	Topic   bool
}

// Primary returns the preferred interpretation, or the zero value.
func (d Decomposition) Primary() Interpretation {
	if len(d.Interpretations) == 0 {
		return Interpretation{}
	}
	return d.Interpretations[0]
}

// Decomposer splits a raw video title into artist/title interpretations.
type Decomposer interface {
	Decompose(title, channel string) Decomposition
}

// SeparatorDecomposer splits on the first dash, en-dash, em-dash or pipe that
// is surrounded by spaces.
type SeparatorDecomposer struct{}

// Decompose implements Decomposer.
func (SeparatorDecomposer) Decompose(title, channel string) Decomposition {
	d := Decomposition{Channel: strings.TrimSpace(channel)}
	if trimmed, ok := strings.CutSuffix(d.Channel, topicMarker); ok {
		d.Channel = strings.TrimSpace(trimmed)
		d.Topic = true
	}

	left, right, found := splitFirst(title)
	if !found {
		cleaned := Clean(title)
		if d.Topic {
			d.Interpretations = []Interpretation{{Artist: d.Channel, Title: cleaned}}
		} else {
			d.Interpretations = []Interpretation{{Title: cleaned}}
		}
		return d
	}

	left, right = Clean(left), Clean(right)
	straight := Interpretation{Artist: left, Title: right}
	swapped := Interpretation{Artist: right, Title: left}
	if d.Topic {
		straight, swapped = swapped, straight
	}
	d.Interpretations = []Interpretation{straight}
	if swapped != straight {
		d.Interpretations = append(d.Interpretations, swapped)
	}
	return d
}

func splitFirst(title string) (string, string, bool) {
	best := -1
	width := 0
	for _, sep := range separators {
		if i := strings.Index(title, sep); i >= 0 && (best < 0 || i < best) {
			best, width = i, len(sep)
		}
	}
	if best < 0 {
		return "", "", false
	}
	left := strings.TrimSpace(title[:best])
	right := strings.TrimSpace(title[best+width:])
	if left == "" || right == "" {
		return "", "", false
	}
	return left, right, true
}

package metadata

import (
	"net/url"
	"strings"
)

const videoIDLength = 11

var pathPrefixes = []string{"/shorts/", "/embed/", "/live/", "/v/", "/e/"}

// ParseReference extracts the canonical 11-character video id from a
// watch, short-link, shorts, embed, live or mobile/music URL, or from a bare
// id. It never touches the network.
func ParseReference(ref string) (string, error) {
	input := ref
	ref = strings.TrimSpace(ref)
	ref = strings.TrimSuffix(strings.TrimPrefix(ref, "<"), ">")
	if ref == "" {
		return "", &ValidationError{Input: input, Reason: "empty reference"}
	}
	if isVideoID(ref) {
		return ref, nil
	}

	if !strings.Contains(ref, "://") {
		ref = "https://" + ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", &ValidationError{Input: input, Reason: "not a URL"}
	}
	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))

	var candidate string
	switch host {
	case "youtu.be":
		candidate = firstSegment(u.Path)
	case "youtube.com", "m.youtube.com", "music.youtube.com", "youtube-nocookie.com":
		if u.Path == "/watch" || u.Path == "/watch/" {
			candidate = u.Query().Get("v")
			break
		}
		for _, prefix := range pathPrefixes {
			if rest, ok := strings.CutPrefix(u.Path, prefix); ok {
				candidate = firstSegment(rest)
				break
			}
		}
	default:
		return "", &ValidationError{Input: input, Reason: "not a YouTube link"}
	}

	if !isVideoID(candidate) {
		return "", &ValidationError{Input: input, Reason: "no video id in link"}
	}
	return candidate, nil
}

// ExtractReference finds the first video reference in free-form text such as a
// donation message.
func ExtractReference(text string) (string, bool) {
	for _, field := range strings.Fields(text) {
		field = strings.Trim(field, "()[]{}<>\"',.!")
		lower := strings.ToLower(field)
		if !strings.Contains(lower, "youtu") {
			continue
		}
		if id, err := ParseReference(field); err == nil {
			return id, true
		}
	}
	return "", false
}

func firstSegment(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexAny(path, "/?#"); i >= 0 {
		path = path[:i]
	}
	return path
}

func isVideoID(s string) bool {
	if len(s) != videoIDLength {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

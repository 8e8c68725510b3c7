package matching

import (
	"songline/internal/queue"
	"songline/internal/services/spotify"
)

const (
	titleWeight   = 0.6
	artistWeight  = 0.4
	MinScore      = 0.5
	strongBonus   = 0.10
	balancedBonus = 0.05
)

// Candidate is a scored catalog result. It is never persisted.
type Candidate struct {
	Track       spotify.Track
	Score       float64
	TitleScore  float64
	ArtistScore float64
}

// ScoreTrack rates a catalog track against the raw title, uploader channel
// and every interpretation of the title.
func ScoreTrack(track spotify.Track, raw, channel string, d Decomposition) Candidate {
	titleScore := Similarity(track.Name, raw)
	for _, in := range d.Interpretations {
		titleScore = max(titleScore, Similarity(track.Name, in.Title))
	}

	if d.Channel != "" {
		channel = d.Channel
	}
	artistScore := 0.0
	for _, performer := range track.ArtistNames() {
		artistScore = max(artistScore, Similarity(performer, channel))
		for _, in := range d.Interpretations {
			if in.Artist != "" {
				artistScore = max(artistScore, Similarity(performer, in.Artist))
			}
		}
	}

	return Candidate{
		Track:       track,
		Score:       Combine(titleScore, artistScore),
		TitleScore:  titleScore,
		ArtistScore: artistScore,
	}
}

// Combine weights title and artist scores and applies the agreement bonuses.
func Combine(title, artist float64) float64 {
	score := titleWeight*title + artistWeight*artist
	if (title > 0.8 && artist > 0.4) || (artist > 0.8 && title > 0.4) {
		score += strongBonus
	}
	if title > 0.6 && artist > 0.6 {
		score += balancedBonus
	}
	return min(score, 1)
}

// primaryArtistScore recomputes the artist agreement against the primary
// interpretation only, falling back to the channel name.
func primaryArtistScore(track spotify.Track, d Decomposition) float64 {
	target := d.Primary().Artist
	if target == "" {
		target = d.Channel
	}
	best := 0.0
	for _, performer := range track.ArtistNames() {
		best = max(best, Similarity(performer, target))
	}
	return best
}

// Select picks the winning candidate. Candidates below MinScore are dropped;
// ties at the top score are broken by artist agreement with the primary
// interpretation and then by encounter order.
func Select(candidates []Candidate, d Decomposition) (Candidate, bool) {
	top := -1.0
	var tied []Candidate
	for _, c := range candidates {
		if c.Score < MinScore {
			continue
		}
		switch {
		case c.Score > top:
			top = c.Score
			tied = append(tied[:0], c)
		case c.Score == top:
			tied = append(tied, c)
		}
	}
	switch len(tied) {
	case 0:
		return Candidate{}, false
	case 1:
		return tied[0], true
	}

	best := tied[0]
	bestArtist := primaryArtistScore(best.Track, d)
	for _, c := range tied[1:] {
		if s := primaryArtistScore(c.Track, d); s > bestArtist {
			best, bestArtist = c, s
		}
	}
	return best, true
}

// Describe converts a catalog track into the persisted match descriptor.
func Describe(track spotify.Track, score float64) *queue.TrackMatch {
	return &queue.TrackMatch{
		ID:         track.ID,
		Name:       track.Name,
		Performers: track.ArtistNames(),
		Album: queue.Album{
			ID:          track.Album.ID,
			Name:        track.Album.Name,
			ImageURL:    track.Album.LargestImage(),
			ReleaseDate: track.Album.ReleaseDate,
		},
		DurationMS:       track.DurationMS,
		URL:              track.URL(),
		PreviewAvailable: track.PreviewURL != "",
		Score:            score,
	}
}

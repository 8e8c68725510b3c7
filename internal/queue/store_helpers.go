package queue

import (
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const requestColumns = "id, source_ref, video_id, title, artist, channel_id, duration_seconds, thumbnail, requester_login, requester_display, requester_avatar, priority, bypass, submitted_at, match_json, status, archived_at"

func scanRequest(scanner interface{ Scan(dest ...any) error }) (*Request, error) {
	var (
		req          Request
		channelID    sql.NullString
		thumbnail    sql.NullString
		display      sql.NullString
		avatar       sql.NullString
		priority     string
		bypass       int
		submittedRaw string
		matchJSON    sql.NullString
		status       string
		archivedRaw  sql.NullString
	)
	if err := scanner.Scan(
		&req.ID,
		&req.SourceRef,
		&req.VideoID,
		&req.Title,
		&req.Artist,
		&channelID,
		&req.DurationSeconds,
		&thumbnail,
		&req.Requester.Login,
		&display,
		&avatar,
		&priority,
		&bypass,
		&submittedRaw,
		&matchJSON,
		&status,
		&archivedRaw,
	); err != nil {
		return nil, err
	}

	req.ChannelID = channelID.String
	req.Thumbnail = thumbnail.String
	req.Requester.DisplayName = display.String
	req.Requester.AvatarURL = avatar.String
	req.Priority = Priority(priority)
	req.Bypass = bypass != 0
	req.Status = Status(status)
	if submitted, err := parseTimeString(submittedRaw); err == nil {
		req.SubmittedAt = submitted
	}
	if archivedRaw.Valid {
		if archived, err := parseTimeString(archivedRaw.String); err == nil {
			req.ArchivedAt = &archived
		}
	}
	if matchJSON.Valid && strings.TrimSpace(matchJSON.String) != "" {
		var match TrackMatch
		// A corrupt descriptor only loses enrichment, never the request.
		if err := json.Unmarshal([]byte(matchJSON.String), &match); err == nil {
			req.Match = &match
		}
	}
	return &req, nil
}

func encodeMatch(match *TrackMatch) (any, error) {
	if match == nil {
		return nil, nil
	}
	data, err := json.Marshal(match)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}

// timeLayout is fixed width so stored timestamps sort as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}

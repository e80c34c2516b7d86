package domain

type TrackID int64

type Track struct {
	ID              TrackID `json:"id"`
	SourceType      string  `json:"sourceType"`
	Title           string  `json:"title"`
	Artist          string  `json:"artist"`
	DurationSeconds *int    `json:"durationSeconds,omitempty"`
	URL             string  `json:"url"`
}

// Playback is the synchronized video position of a karaoke room.
type Playback struct {
	RoomID     RoomID    `json:"roomId"`
	TrackID    *TrackID  `json:"trackId,omitempty"`
	TrackTitle *string   `json:"trackTitle,omitempty"`
	PositionMs int64     `json:"positionMs"`
	Playing    bool      `json:"playing"`
	UpdatedAt  Timestamp `json:"updatedAt"`
}

type PlaybackUpdate struct {
	TrackID    *TrackID `json:"trackId,omitempty"`
	PositionMs int64    `json:"positionMs"`
	Playing    bool     `json:"playing"`
}

type QueueStatus string

const (
	QueuePending QueueStatus = "PENDING"
	QueuePlaying QueueStatus = "PLAYING"
	QueueDone    QueueStatus = "DONE"
	QueueSkipped QueueStatus = "SKIPPED"
)

func (s QueueStatus) Valid() bool {
	switch s {
	case QueuePending, QueuePlaying, QueueDone, QueueSkipped:
		return true
	}
	return false
}

type QueueItem struct {
	ID          int64       `json:"id"`
	TrackID     TrackID     `json:"trackId"`
	TrackTitle  string      `json:"trackTitle"`
	TrackArtist string      `json:"trackArtist"`
	RequestedBy UserID      `json:"requestedBy"`
	Status      QueueStatus `json:"status"`
	SortOrder   int         `json:"sortOrder"`
	CreatedAt   Timestamp   `json:"createdAt"`
}

type QueueAdd struct {
	TrackID     TrackID     `json:"trackId"`
	RequestedBy UserID      `json:"requestedBy"`
	Status      QueueStatus `json:"status,omitempty"`
	SortOrder   *int        `json:"sortOrder,omitempty"`
}

type QueueUpdate struct {
	Status    QueueStatus `json:"status,omitempty"`
	SortOrder *int        `json:"sortOrder,omitempty"`
}

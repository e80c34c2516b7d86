package domain

type RoomID int64

type RoomMode string

const (
	RoomModeKaraoke     RoomMode = "KARAOKE"
	RoomModeTranslation RoomMode = "TRANSLATION"
)

type Visibility string

const (
	VisibilityPublic  Visibility = "PUBLIC"
	VisibilityPrivate Visibility = "PRIVATE"
)

func (m RoomMode) Valid() bool {
	return m == RoomModeKaraoke || m == RoomModeTranslation
}

func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

type RoomSummary struct {
	ID           RoomID     `json:"id"`
	Title        string     `json:"title"`
	Mode         RoomMode   `json:"mode"`
	Visibility   Visibility `json:"visibility"`
	HostNickname string     `json:"hostNickname"`
	MemberCount  int64      `json:"memberCount"`
	CreatedAt    Timestamp  `json:"createdAt"`
}

type RoomDetail struct {
	RoomSummary
	Members []RoomMember `json:"members"`
}

type NewRoom struct {
	Title        string     `json:"title"`
	Mode         RoomMode   `json:"mode"`
	Visibility   Visibility `json:"visibility"`
	PasswordHash string     `json:"passwordHash,omitempty"`
	HostID       UserID     `json:"hostId"`
}

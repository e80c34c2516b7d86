package domain

type RoomRole string

const (
	RoleHost      RoomRole = "HOST"
	RolePerformer RoomRole = "PERFORMER"
	RoleAudience  RoomRole = "AUDIENCE"
)

// RoomMember is the backend's membership record for a room.
// No transport or lifecycle logic here.
type RoomMember struct {
	ID         int64     `json:"id"`
	UserID     UserID    `json:"userId"`
	Nickname   string    `json:"nickname"`
	Role       RoomRole  `json:"role"`
	Muted      bool      `json:"muted"`
	DeviceInfo string    `json:"deviceInfo"`
	JoinedAt   Timestamp `json:"joinedAt"`
}

type JoinRequest struct {
	UserID     UserID   `json:"userId"`
	Role       RoomRole `json:"role,omitempty"`
	Muted      bool     `json:"muted,omitempty"`
	DeviceInfo string   `json:"deviceInfo,omitempty"`
}

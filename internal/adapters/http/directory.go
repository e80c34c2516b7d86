package http

import (
	"context"

	"github.com/dkeye/Duet/internal/app"
	"github.com/dkeye/Duet/internal/domain"
)

//go:generate mockgen -destination=mock_directory_test.go -package=http . Directory

// Directory is the account/room backend; *rest.Client implements it.
type Directory interface {
	Register(ctx context.Context, r domain.Registration) (*domain.User, error)
	Login(ctx context.Context, cr domain.Credentials) (*domain.User, error)
	Rooms(ctx context.Context) ([]domain.RoomSummary, error)
	Room(ctx context.Context, id domain.RoomID) (*domain.RoomDetail, error)
	CreateRoom(ctx context.Context, r domain.NewRoom) (*domain.RoomSummary, error)
	JoinRoom(ctx context.Context, id domain.RoomID, j domain.JoinRequest) (*domain.RoomMember, error)
	LeaveRoom(ctx context.Context, id domain.RoomID, uid domain.UserID) error
	Members(ctx context.Context, id domain.RoomID) ([]domain.RoomMember, error)
	Playback(ctx context.Context, id domain.RoomID) (*domain.Playback, error)
	UpdatePlayback(ctx context.Context, id domain.RoomID, u domain.PlaybackUpdate) (*domain.Playback, error)
	Queue(ctx context.Context, id domain.RoomID) ([]domain.QueueItem, error)
	AddToQueue(ctx context.Context, id domain.RoomID, a domain.QueueAdd) (*domain.QueueItem, error)
	UpdateQueueItem(ctx context.Context, id domain.RoomID, itemID int64, u domain.QueueUpdate) (*domain.QueueItem, error)
	SearchTracks(ctx context.Context, query string) ([]domain.Track, error)
}

// VisitService is implemented by *app.Visits.
type VisitService interface {
	Start(room domain.RoomID, user domain.User) (*app.Visit, error)
	Get(room domain.RoomID) (*app.Visit, bool)
	Stop(ctx context.Context, room domain.RoomID) error
}

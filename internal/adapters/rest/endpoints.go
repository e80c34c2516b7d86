package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dkeye/Duet/internal/domain"
)

func (c *Client) Register(ctx context.Context, r domain.Registration) (*domain.User, error) {
	var u domain.User
	if err := c.do(ctx, http.MethodPost, "/auth/register", r, &u, "Registration failed"); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) Login(ctx context.Context, cr domain.Credentials) (*domain.User, error) {
	var u domain.User
	if err := c.do(ctx, http.MethodPost, "/auth/login", cr, &u, "Invalid email or password"); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) Rooms(ctx context.Context) ([]domain.RoomSummary, error) {
	var rooms []domain.RoomSummary
	if err := c.do(ctx, http.MethodGet, "/rooms", nil, &rooms, "Failed to fetch rooms"); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (c *Client) Room(ctx context.Context, id domain.RoomID) (*domain.RoomDetail, error) {
	var room domain.RoomDetail
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/rooms/%d", id), nil, &room, "Failed to fetch room"); err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *Client) CreateRoom(ctx context.Context, r domain.NewRoom) (*domain.RoomSummary, error) {
	var room domain.RoomSummary
	if err := c.do(ctx, http.MethodPost, "/rooms", r, &room, "Failed to create room"); err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *Client) JoinRoom(ctx context.Context, id domain.RoomID, j domain.JoinRequest) (*domain.RoomMember, error) {
	var m domain.RoomMember
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/rooms/%d/join", id), j, &m, "Failed to join room"); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) LeaveRoom(ctx context.Context, id domain.RoomID, uid domain.UserID) error {
	body := struct {
		UserID domain.UserID `json:"userId"`
	}{uid}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/rooms/%d/leave", id), body, nil, "Failed to leave room")
}

func (c *Client) Members(ctx context.Context, id domain.RoomID) ([]domain.RoomMember, error) {
	var members []domain.RoomMember
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/rooms/%d/members", id), nil, &members, "Failed to fetch members"); err != nil {
		return nil, err
	}
	return members, nil
}

func (c *Client) Playback(ctx context.Context, id domain.RoomID) (*domain.Playback, error) {
	var p domain.Playback
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/rooms/%d/playback", id), nil, &p, "Failed to fetch playback"); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdatePlayback(ctx context.Context, id domain.RoomID, u domain.PlaybackUpdate) (*domain.Playback, error) {
	var p domain.Playback
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/rooms/%d/playback", id), u, &p, "Failed to update playback"); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Queue(ctx context.Context, id domain.RoomID) ([]domain.QueueItem, error) {
	var items []domain.QueueItem
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/rooms/%d/queue", id), nil, &items, "Failed to fetch queue"); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) AddToQueue(ctx context.Context, id domain.RoomID, a domain.QueueAdd) (*domain.QueueItem, error) {
	var item domain.QueueItem
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/rooms/%d/queue", id), a, &item, "Failed to add to queue"); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) UpdateQueueItem(ctx context.Context, id domain.RoomID, itemID int64, u domain.QueueUpdate) (*domain.QueueItem, error) {
	var item domain.QueueItem
	path := fmt.Sprintf("/rooms/%d/queue/%d", id, itemID)
	if err := c.do(ctx, http.MethodPatch, path, u, &item, "Failed to update queue item"); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) SearchTracks(ctx context.Context, query string) ([]domain.Track, error) {
	var tracks []domain.Track
	path := "/tracks/search?" + url.Values{"query": {query}}.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &tracks, "Failed to search tracks"); err != nil {
		return nil, err
	}
	return tracks, nil
}

package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dkeye/Duet/internal/adapters/rest"
	"github.com/dkeye/Duet/internal/app"
	"github.com/dkeye/Duet/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

const (
	sessionUserKey = "user"
	ctxUserKey     = "user"
)

var validationErrors = []error{
	domain.ErrEmailEmpty,
	domain.ErrPasswordEmpty,
	domain.ErrNicknameEmpty,
	domain.ErrNicknameTooLong,
	domain.ErrEmptyMessage,
}

// fail writes err as a JSON error with a status derived from its kind.
func fail(c *gin.Context, err error) {
	var apiErr *rest.APIError
	if errors.As(err, &apiErr) {
		c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr.Message})
		return
	}
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, app.ErrNoVisit), errors.Is(err, app.ErrNoFeed):
		status = http.StatusNotFound
	case errors.Is(err, app.ErrNotRecording), errors.Is(err, app.ErrRecordingDisabled):
		status = http.StatusConflict
	default:
		for _, v := range validationErrors {
			if errors.Is(err, v) {
				status = http.StatusBadRequest
				break
			}
		}
	}
	if status >= 500 {
		log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func saveUser(c *gin.Context, u *domain.User) error {
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	s := sessions.Default(c)
	s.Set(sessionUserKey, string(b))
	return s.Save()
}

func loadUser(c *gin.Context) (domain.User, bool) {
	raw, ok := sessions.Default(c).Get(sessionUserKey).(string)
	if !ok || raw == "" {
		return domain.User{}, false
	}
	var u domain.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return domain.User{}, false
	}
	return u, true
}

func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := loadUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
			return
		}
		c.Set(ctxUserKey, u)
		c.Next()
	}
}

func currentUser(c *gin.Context) domain.User {
	u, _ := c.MustGet(ctxUserKey).(domain.User)
	return u
}

func roomID(c *gin.Context) (domain.RoomID, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bad room id"})
		return 0, false
	}
	return domain.RoomID(id), true
}

func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bad request body"})
		return false
	}
	return true
}

func (s *Server) register(c *gin.Context) {
	var in domain.Registration
	if !bind(c, &in) {
		return
	}
	if err := in.Validate(); err != nil {
		fail(c, err)
		return
	}
	u, err := s.Dir.Register(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	s.signIn(c, u)
}

func (s *Server) login(c *gin.Context) {
	var in domain.Credentials
	if !bind(c, &in) {
		return
	}
	if err := in.Validate(); err != nil {
		fail(c, err)
		return
	}
	u, err := s.Dir.Login(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	s.signIn(c, u)
}

func (s *Server) signIn(c *gin.Context, u *domain.User) {
	if err := saveUser(c, u); err != nil {
		fail(c, err)
		return
	}
	log.Info().Str("module", "adapters.http").Int64("user", int64(u.ID)).Msg("signed in")
	c.JSON(http.StatusOK, u)
}

func (s *Server) logout(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Clear()
	_ = sess.Save()
	c.Status(http.StatusNoContent)
}

func (s *Server) me(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

func (s *Server) listRooms(c *gin.Context) {
	rooms, err := s.Dir.Rooms(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if rooms == nil {
		rooms = []domain.RoomSummary{}
	}
	c.JSON(http.StatusOK, rooms)
}

func (s *Server) createRoom(c *gin.Context) {
	var in domain.NewRoom
	if !bind(c, &in) {
		return
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" || !in.Mode.Valid() || !in.Visibility.Valid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "title, mode and visibility are required"})
		return
	}
	in.HostID = currentUser(c).ID
	room, err := s.Dir.CreateRoom(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (s *Server) room(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	room, err := s.Dir.Room(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// joinRoom records membership with the backend, then starts the visit.
func (s *Server) joinRoom(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	user := currentUser(c)
	var in domain.JoinRequest
	if c.Request.ContentLength > 0 && !bind(c, &in) {
		return
	}
	in.UserID = user.ID

	_, err := s.Dir.JoinRoom(c.Request.Context(), id, in)
	if err != nil && !rest.IsAlreadyJoined(err) {
		fail(c, err)
		return
	}
	v, err := s.Visits.Start(id, user)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v.View())
}

func (s *Server) leaveRoom(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	if err := s.Visits.Stop(c.Request.Context(), id); err != nil && !errors.Is(err, app.ErrNoVisit) {
		log.Warn().Err(err).Str("module", "adapters.http").Int64("room", int64(id)).Msg("stop visit")
	}
	if err := s.Dir.LeaveRoom(c.Request.Context(), id, currentUser(c).ID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) members(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	members, err := s.Dir.Members(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if members == nil {
		members = []domain.RoomMember{}
	}
	c.JSON(http.StatusOK, members)
}

func (s *Server) playback(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	p, err := s.Dir.Playback(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) updatePlayback(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	var in domain.PlaybackUpdate
	if !bind(c, &in) {
		return
	}
	if in.PositionMs < 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "positionMs must not be negative"})
		return
	}
	p, err := s.Dir.UpdatePlayback(c.Request.Context(), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) queue(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	items, err := s.Dir.Queue(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if items == nil {
		items = []domain.QueueItem{}
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) addToQueue(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	var in domain.QueueAdd
	if !bind(c, &in) {
		return
	}
	if in.TrackID <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "trackId is required"})
		return
	}
	in.RequestedBy = currentUser(c).ID
	item, err := s.Dir.AddToQueue(c.Request.Context(), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (s *Server) updateQueueItem(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	itemID, err := strconv.ParseInt(c.Param("itemId"), 10, 64)
	if err != nil || itemID <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bad queue item id"})
		return
	}
	var in domain.QueueUpdate
	if !bind(c, &in) {
		return
	}
	if in.Status == "" && in.SortOrder == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "status or sortOrder is required"})
		return
	}
	if in.Status != "" && !in.Status.Valid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown queue status"})
		return
	}
	item, err := s.Dir.UpdateQueueItem(c.Request.Context(), id, itemID, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) searchTracks(c *gin.Context) {
	q := strings.TrimSpace(c.Query("query"))
	if q == "" {
		c.JSON(http.StatusOK, []domain.Track{})
		return
	}
	tracks, err := s.Dir.SearchTracks(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}
	if tracks == nil {
		tracks = []domain.Track{}
	}
	c.JSON(http.StatusOK, tracks)
}

func (s *Server) liveVisit(c *gin.Context) (*app.Visit, bool) {
	id, ok := roomID(c)
	if !ok {
		return nil, false
	}
	v, ok := s.Visits.Get(id)
	if !ok {
		fail(c, app.ErrNoVisit)
		return nil, false
	}
	return v, true
}

func (s *Server) visit(c *gin.Context) {
	v, ok := s.liveVisit(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, v.View())
}

func (s *Server) toggleMute(c *gin.Context) {
	v, ok := s.liveVisit(c)
	if !ok {
		return
	}
	if err := v.ToggleMute(); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (s *Server) toggleCamera(c *gin.Context) {
	v, ok := s.liveVisit(c)
	if !ok {
		return
	}
	if err := v.ToggleCamera(); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (s *Server) sendChat(c *gin.Context) {
	v, ok := s.liveVisit(c)
	if !ok {
		return
	}
	var in struct {
		Content string `json:"content"`
	}
	if !bind(c, &in) {
		return
	}
	if err := v.SendChat(in.Content); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (s *Server) startRecording(c *gin.Context) {
	v, ok := s.liveVisit(c)
	if !ok {
		return
	}
	rec, err := v.StartRecording()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) stopRecording(c *gin.Context) {
	v, ok := s.liveVisit(c)
	if !ok {
		return
	}
	rec, err := v.StopRecording()
	if rec == nil {
		fail(c, err)
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("module", "adapters.http").Int64("room", int64(v.Room)).Msg("recording not finalized cleanly")
	}
	c.JSON(http.StatusOK, rec)
}

// pauseRecording stops or resumes recording one remote member.
func (s *Server) pauseRecording(c *gin.Context) {
	v, ok := s.liveVisit(c)
	if !ok {
		return
	}
	feed, err := strconv.ParseUint(c.Param("feed"), 10, 64)
	if err != nil || feed == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bad feed id"})
		return
	}
	var in struct {
		Paused bool `json:"paused"`
	}
	if !bind(c, &in) {
		return
	}
	if err := v.PauseRecording(feed, in.Paused); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

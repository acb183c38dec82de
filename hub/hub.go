// Package hub implements the sync hub: a single authoritative relay that
// owns the canonical document, fans wire messages out to participants,
// and persists the session across restarts.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"pkt.systems/pslog"

	"pkt.systems/tileboard/internal/logx"
	"pkt.systems/tileboard/internal/persist"
	"pkt.systems/tileboard/schema"
)

type inboundFrame struct {
	from *client
	data []byte
}

type joinRequest struct {
	conn      *websocket.Conn
	role      schema.Role
	studentID schema.ParticipantID
}

// Hub relays messages between participants. All state mutation happens on
// the Run loop; HTTP handlers talk to it over channels.
type Hub struct {
	log          pslog.Logger
	state        *DocumentState
	store        *persist.Store
	saveDebounce time.Duration

	clients map[*client]struct{}
	nextID  schema.ParticipantID
	// knownStudents maps ids handed out earlier to their names so a
	// reconnecting student keeps its identity.
	knownStudents map[schema.ParticipantID]string

	join       chan joinRequest
	unregister chan *client
	inbound    chan inboundFrame
	rosterReq  chan chan []schema.Participant
	clearReq   chan chan error

	saveTimer *time.Timer
	savePing  chan struct{}
	done      chan struct{}
}

// New constructs a hub over canonical state. store may be nil to disable
// persistence.
func New(state *DocumentState, store *persist.Store, saveDebounce time.Duration, logger pslog.Logger) *Hub {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Hub{
		log:           logger,
		state:         state,
		store:         store,
		saveDebounce:  saveDebounce,
		clients:       make(map[*client]struct{}),
		knownStudents: make(map[schema.ParticipantID]string),
		join:          make(chan joinRequest),
		unregister:    make(chan *client),
		inbound:       make(chan inboundFrame, 64),
		rosterReq:     make(chan chan []schema.Participant),
		clearReq:      make(chan chan error),
		savePing:      make(chan struct{}, 1),
		done:          make(chan struct{}),
	}
}

// Run drives the hub until ctx is canceled. A pending debounced save is
// flushed on the way out.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			if h.saveTimer != nil && h.saveTimer.Stop() {
				h.saveNow()
			}
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return
		case req := <-h.join:
			h.handleJoin(req)
		case c := <-h.unregister:
			h.handleLeave(c)
		case f := <-h.inbound:
			h.handleFrame(f.from, f.data)
		case <-h.savePing:
			h.saveNow()
		case reply := <-h.rosterReq:
			reply <- h.roster()
		case reply := <-h.clearReq:
			reply <- h.clearSession()
		}
	}
}

// Connect hands an upgraded connection to the hub loop. studentID carries
// a previously assigned id for reconnecting students, 0 otherwise.
func (h *Hub) Connect(conn *websocket.Conn, role schema.Role, studentID schema.ParticipantID) error {
	select {
	case h.join <- joinRequest{conn: conn, role: role, studentID: studentID}:
		return nil
	case <-h.done:
		return schema.ErrHubClosed
	}
}

// Roster returns the connected participants.
func (h *Hub) Roster(ctx context.Context) ([]schema.Participant, error) {
	reply := make(chan []schema.Participant, 1)
	select {
	case h.rosterReq <- reply:
	case <-h.done:
		return nil, schema.ErrHubClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case users := <-reply:
		return users, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Clear wipes the canonical document and the persisted session file.
func (h *Hub) Clear(ctx context.Context) error {
	reply := make(chan error, 1)
	select {
	case h.clearReq <- reply:
	case <-h.done:
		return schema.ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) handleJoin(req joinRequest) {
	var id schema.ParticipantID
	var name string
	switch {
	case req.role == schema.RoleTeacher:
		h.nextID++
		id = h.nextID
		name = "Teacher"
	case req.studentID != 0 && h.knownStudents[req.studentID] != "":
		id = req.studentID
		name = h.knownStudents[req.studentID]
	default:
		h.nextID++
		id = h.nextID
		name = fmt.Sprintf("Student %d", id)
		h.knownStudents[id] = name
	}

	streamID := uuid.NewString()
	c := &client{
		id:       id,
		name:     name,
		role:     req.role,
		streamID: streamID,
		hub:      h,
		conn:     req.conn,
		send:     make(chan []byte, sendQueueDepth),
		log:      logx.WithRole(h.log.With("participant", int(id)), req.role).With("stream", streamID),
	}
	h.clients[c] = struct{}{}
	go c.writePump()
	go c.readPump()

	c.log.Info("participant connected", "name", name)

	h.sendTo(c, schema.Init{
		Type:           schema.MessageInit,
		State:          h.state.Board(),
		YourID:         id,
		YourRole:       req.role,
		ConnectedUsers: h.roster(),
	})
	h.broadcast(schema.UserJoined{
		Type:           schema.MessageUserJoined,
		User:           c.participant(),
		ConnectedUsers: h.roster(),
	}, c)
}

func (h *Hub) handleLeave(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	c.log.Info("participant disconnected", "name", c.name)
	h.broadcast(schema.UserLeft{
		Type:           schema.MessageUserLeft,
		UserID:         c.id,
		UserName:       c.name,
		ConnectedUsers: h.roster(),
	}, nil)
}

func (h *Hub) handleFrame(c *client, data []byte) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	msg, err := schema.Decode(data)
	if err != nil {
		c.log.Warn("dropping malformed message", "err", err)
		return
	}
	switch m := msg.(type) {
	case *schema.CodeUpdate:
		h.state.SetCode(m.Code, c.id)
		h.scheduleSave()
		h.broadcast(schema.CodeUpdate{
			Type:        schema.MessageCodeUpdate,
			Code:        m.Code,
			CursorRow:   m.CursorRow,
			CursorCol:   m.CursorCol,
			UpdatedBy:   c.id,
			UpdaterName: c.name,
			UpdaterRole: c.role,
			UserID:      c.id,
		}, c)
	case *schema.CursorUpdate:
		h.broadcastTeachers(schema.CursorUpdate{
			Type:     schema.MessageCursorUpdate,
			Position: m.Position,
			Line:     m.Line,
			Column:   m.Column,
			UserID:   c.id,
			UserName: c.name,
			UserRole: c.role,
		}, c)
	case *schema.HighlightTiles:
		m.Type = schema.MessageHighlightTiles
		m.UserID, m.UserName, m.UserRole = c.id, c.name, c.role
		h.broadcast(m, c)
	case *schema.HighlightSelection:
		m.Type = schema.MessageHighlightSelection
		m.UserID, m.UserName, m.UserRole = c.id, c.name, c.role
		h.broadcast(m, c)
	case *schema.LaserPoint:
		m.Type = schema.MessageLaserPoint
		m.UserID, m.UserName, m.UserRole = c.id, c.name, c.role
		h.broadcast(m, c)
	case *schema.PDFLoad:
		m.Type = schema.MessagePDFLoad
		m.UserID, m.UserName = c.id, c.name
		h.broadcast(m, c)
	case *schema.PDFSync:
		m.Type = schema.MessagePDFSync
		m.UserID = c.id
		h.broadcast(m, c)
	case *schema.PDFLaser:
		m.Type = schema.MessagePDFLaser
		m.UserID = c.id
		h.broadcast(m, c)
	case *schema.ModeChange:
		m.Type = schema.MessageModeChange
		m.UserID = c.id
		h.broadcast(m, c)
	case *schema.MarkdownContent:
		m.Type = schema.MessageMarkdownContent
		m.UserID, m.UserName = c.id, c.name
		h.broadcast(m, c)
	case *schema.MarkdownState:
		m.Type = schema.MessageMarkdownState
		m.UserID = c.id
		h.broadcast(m, c)
	case *schema.MarkdownLaser:
		m.Type = schema.MessageMarkdownLaser
		m.UserID = c.id
		h.broadcast(m, c)
	case *schema.TemplateLoaded:
		h.state.SetTemplate(m.Code)
		h.broadcast(schema.TemplateLoaded{
			Type:         schema.MessageTemplateLoaded,
			Code:         m.Code,
			TemplateName: m.TemplateName,
			LoadedBy:     c.name,
		}, c)
	case *schema.LanguageChange:
		if c.role != schema.RoleTeacher {
			c.log.Debug("ignoring language_change from student")
			return
		}
		h.state.SetLanguage(m.Language)
		h.log.Info("language changed", "language", m.Language)
		h.broadcast(schema.LanguageChange{
			Type:      schema.MessageLanguageChange,
			Language:  m.Language,
			ChangedBy: c.name,
		}, c)
	case *schema.HandRaise:
		h.broadcastTeachers(schema.HandRaise{
			Type:     schema.MessageHandRaise,
			Raised:   m.Raised,
			UserID:   c.id,
			UserName: c.name,
		}, c)
	case *schema.Reaction:
		h.broadcastTeachers(schema.Reaction{
			Type:     schema.MessageReaction,
			Reaction: m.Reaction,
			Emoji:    m.Emoji,
			UserID:   c.id,
			UserName: c.name,
		}, c)
	case *schema.ClearReactions:
		if c.role != schema.RoleTeacher {
			return
		}
		h.broadcast(schema.ClearReactions{Type: schema.MessageClearReactions}, c)
	case *schema.FocusMode:
		if c.role != schema.RoleTeacher {
			return
		}
		h.log.Info("focus mode", "enabled", m.Enabled)
		h.broadcast(schema.FocusMode{Type: schema.MessageFocusMode, Enabled: m.Enabled}, c)
	case *schema.Breakpoints:
		if c.role != schema.RoleTeacher {
			return
		}
		h.broadcast(schema.Breakpoints{Type: schema.MessageBreakpoints, Rows: m.Rows}, c)
	case *schema.ScrollToLine:
		if c.role != schema.RoleTeacher {
			return
		}
		h.broadcast(schema.ScrollToLine{Type: schema.MessageScrollToLine, LineNumber: m.LineNumber}, c)
	case *schema.Ping:
		h.sendTo(c, schema.Pong{Type: schema.MessagePong})
	default:
		c.log.Debug("ignoring unexpected message", "data_len", len(data))
	}
}

func (h *Hub) roster() []schema.Participant {
	users := make([]schema.Participant, 0, len(h.clients))
	for c := range h.clients {
		users = append(users, c.participant())
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

func (h *Hub) sendTo(c *client, msg schema.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Warn("encode failed", "err", err)
		return
	}
	h.deliver(c, data)
}

func (h *Hub) broadcast(msg schema.Message, except *client) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Warn("encode failed", "err", err)
		return
	}
	for c := range h.clients {
		if c == except {
			continue
		}
		h.deliver(c, data)
	}
}

func (h *Hub) broadcastTeachers(msg schema.Message, except *client) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Warn("encode failed", "err", err)
		return
	}
	for c := range h.clients {
		if c == except || c.role != schema.RoleTeacher {
			continue
		}
		h.deliver(c, data)
	}
}

// deliver queues a frame without blocking the loop. A participant whose
// queue is full is disconnected rather than allowed to stall everyone.
func (h *Hub) deliver(c *client, data []byte) {
	select {
	case c.send <- data:
	default:
		c.log.Warn("send queue overflow, disconnecting")
		h.handleLeave(c)
	}
}

func (h *Hub) scheduleSave() {
	if h.store == nil {
		return
	}
	if h.saveTimer == nil {
		h.saveTimer = time.AfterFunc(h.saveDebounce, func() {
			select {
			case h.savePing <- struct{}{}:
			default:
			}
		})
		return
	}
	h.saveTimer.Reset(h.saveDebounce)
}

func (h *Hub) saveNow() {
	if h.store == nil {
		return
	}
	rec := persist.SessionRecord{
		Code:          h.state.Code(),
		SavedAt:       time.Now().UTC(),
		LastUpdatedBy: h.state.LastUpdatedBy(),
	}
	if err := h.store.Save(rec); err != nil {
		// State stays intact; the next change reschedules a save.
		h.log.Warn("session save failed", "err", err)
		return
	}
	h.log.Debug("session state saved", "bytes", len(rec.Code))
}

func (h *Hub) clearSession() error {
	h.state.Clear()
	if h.saveTimer != nil {
		h.saveTimer.Stop()
	}
	select {
	case <-h.savePing:
	default:
	}
	if h.store == nil {
		return nil
	}
	if err := h.store.Clear(); err != nil {
		return err
	}
	h.log.Info("session cleared")
	return nil
}

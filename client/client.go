// Package client implements the sync client: it keeps a websocket to the
// hub alive across network failures, pushes local edits out with
// debouncing and throttling, and applies remote state to the local
// editor and overlay.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"pkt.systems/pslog"

	"pkt.systems/tileboard/core"
	"pkt.systems/tileboard/internal/eventbus"
	"pkt.systems/tileboard/schema"
)

const (
	defaultCodeDebounce      = 150 * time.Millisecond
	defaultCursorThrottle    = 100 * time.Millisecond
	defaultHighlightThrottle = 100 * time.Millisecond
	defaultLaserThrottle     = 50 * time.Millisecond
	defaultPingInterval      = 30 * time.Second
	defaultReconnectBase     = time.Second
	defaultReconnectMax      = 30 * time.Second

	sendTimeout = 10 * time.Second
)

// Options configures a Client. URL, Editor and Overlay are required in
// practice; everything else has a sensible default.
type Options struct {
	// URL is the hub websocket endpoint, e.g. ws://host:3000/ws.
	URL      string
	Role     schema.Role
	Password string

	Editor   *core.Editor
	Overlay  *core.Overlay
	Identity *IdentityStore

	OverlaySink OverlaySink
	ViewerSink  ViewerSink
	ControlSink ControlSink
	StatusSink  StatusSink
	Bus         *eventbus.Bus

	Logger pslog.Logger

	CodeDebounce      time.Duration
	CursorThrottle    time.Duration
	HighlightThrottle time.Duration
	LaserThrottle     time.Duration
	PingInterval      time.Duration
	ReconnectBase     time.Duration
	ReconnectMax      time.Duration
}

// Client synchronizes a local editor and overlay with the hub.
type Client struct {
	log      pslog.Logger
	url      string
	password string
	wantRole schema.Role

	editor   *core.Editor
	overlay  *core.Overlay
	identity *IdentityStore

	overlaySink OverlaySink
	viewerSink  ViewerSink
	controlSink ControlSink
	statusSink  StatusSink

	codeDeb     *debounce
	cursorTh    *throttle
	highlightTh *throttle
	laserTh     *throttle

	pingInterval time.Duration
	policy       *backoff.ExponentialBackOff

	online chan struct{}

	// edMu serializes editor access between the read loop, the outbound
	// timer closures, and local editing through WithEditor.
	edMu sync.Mutex

	mu             sync.Mutex
	conn           *websocket.Conn
	writeMu        sync.Mutex
	id             schema.ParticipantID
	role           schema.Role
	fallbackViewer bool
}

// New builds a client. It does not connect; call Run.
func New(opts Options) (*Client, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("client: URL is required")
	}
	if _, err := url.Parse(opts.URL); err != nil {
		return nil, fmt.Errorf("client: bad URL: %w", err)
	}
	role := opts.Role
	if !role.Valid() {
		role = schema.RoleStudent
	}
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	editor := opts.Editor
	if editor == nil {
		editor = core.NewEditor("")
	}
	overlay := opts.Overlay
	if overlay == nil {
		overlay = core.NewOverlay()
	}
	overlaySink := opts.OverlaySink
	if overlaySink == nil {
		overlaySink = nopOverlaySink{}
	}
	viewerSink := opts.ViewerSink
	if viewerSink == nil {
		viewerSink = nopViewerSink{}
	}
	controlSink := opts.ControlSink
	if controlSink == nil {
		controlSink = nopControlSink{}
	}
	statusSink := opts.StatusSink
	if statusSink == nil {
		bus := opts.Bus
		if bus == nil {
			bus = eventbus.New(logger)
		}
		statusSink = busStatusSink{bus: bus}
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = orDefault(opts.ReconnectBase, defaultReconnectBase)
	policy.MaxInterval = orDefault(opts.ReconnectMax, defaultReconnectMax)
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxElapsedTime = 0
	policy.Reset()

	return &Client{
		log:          logger,
		url:          opts.URL,
		password:     opts.Password,
		wantRole:     role,
		editor:       editor,
		overlay:      overlay,
		identity:     opts.Identity,
		overlaySink:  overlaySink,
		viewerSink:   viewerSink,
		controlSink:  controlSink,
		statusSink:   statusSink,
		codeDeb:      newDebounce(orDefault(opts.CodeDebounce, defaultCodeDebounce)),
		cursorTh:     newThrottle(orDefault(opts.CursorThrottle, defaultCursorThrottle)),
		highlightTh:  newThrottle(orDefault(opts.HighlightThrottle, defaultHighlightThrottle)),
		laserTh:      newThrottle(orDefault(opts.LaserThrottle, defaultLaserThrottle)),
		pingInterval: orDefault(opts.PingInterval, defaultPingInterval),
		policy:       policy,
		online:       make(chan struct{}, 1),
	}, nil
}

func orDefault(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

// Editor returns the local editor the client synchronizes. Once Run has
// started, edit through WithEditor instead; remote updates land on the
// read loop and direct calls would race with them.
func (c *Client) Editor() *core.Editor {
	return c.editor
}

// WithEditor runs fn with exclusive access to the editor.
func (c *Client) WithEditor(fn func(ed *core.Editor)) {
	c.edMu.Lock()
	defer c.edMu.Unlock()
	fn(c.editor)
}

// Overlay returns the remote overlay the client maintains.
func (c *Client) Overlay() *core.Overlay {
	return c.overlay
}

// ID returns the hub-assigned participant id, 0 before the first init.
func (c *Client) ID() schema.ParticipantID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// Role returns the effective role granted by the hub.
func (c *Client) Role() schema.Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.role != "" {
		return c.role
	}
	return c.wantRole
}

// Run connects and keeps reconnecting until ctx is canceled.
func (c *Client) Run(ctx context.Context) error {
	defer func() {
		c.codeDeb.Stop()
		c.cursorTh.Stop()
		c.highlightTh.Stop()
		c.laserTh.Stop()
	}()
	attempt := 0
	for {
		attempt++
		c.statusSink.ConnectionChanged(eventbus.ConnectionEvent{
			State:   eventbus.StateConnecting,
			Attempt: attempt,
		})
		conn, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			wait := c.policy.NextBackOff()
			c.log.Warn("connect failed", "err", err, "attempt", attempt, "retry_in", wait)
			c.statusSink.ConnectionChanged(eventbus.ConnectionEvent{
				State:   eventbus.StateDisconnected,
				Attempt: attempt,
				RetryIn: wait,
			})
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			case <-c.online:
				c.policy.Reset()
			}
			continue
		}

		c.policy.Reset()
		attempt = 0
		// Stale remote artifacts from the previous connection are gone.
		c.overlay.Reset()
		c.setConn(conn)
		c.statusSink.ConnectionChanged(eventbus.ConnectionEvent{State: eventbus.StateConnected})
		c.log.Info("connected", "url", c.url)

		err = c.readLoop(ctx, conn)
		c.setConn(nil)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("connection lost", "err", err)
	}
}

// NetworkOnline forces an immediate reconnect attempt when the client is
// waiting out a backoff window.
func (c *Client) NetworkOnline() {
	select {
	case c.online <- struct{}{}:
	default:
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return nil, err
	}
	role := c.wantRole
	password := c.password
	c.mu.Lock()
	if c.fallbackViewer {
		role = schema.RoleStudent
		password = ""
	}
	c.mu.Unlock()

	q := u.Query()
	q.Set("role", string(role))
	if password != "" {
		q.Set("password", password)
	}
	if role == schema.RoleStudent && c.identity != nil {
		if id, err := c.identity.StudentID(); err == nil && id != 0 {
			q.Set("studentId", strconv.Itoa(int(id)))
		}
	}
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	return conn, err
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	pingCtx, cancelPing := context.WithCancel(ctx)
	defer cancelPing()
	go c.pingLoop(pingCtx)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.handleMessage(data)
	}
}

func (c *Client) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.send(schema.Ping{Type: schema.MessagePing})
		}
	}
}

// send marshals and writes a message on the current connection. Messages
// sent while disconnected are dropped; the next init carries fresh state.
func (c *Client) send(msg schema.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Warn("encode failed", "err", err)
		return
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		c.log.Debug("dropping message while disconnected")
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(sendTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.log.Warn("write failed", "err", err)
	}
}

// PushContent schedules a debounced code_update carrying the editor's
// current content. Wire this to the editor's OnContent hook.
func (c *Client) PushContent() {
	c.codeDeb.Do(func() {
		c.edMu.Lock()
		cur := c.editor.Cursor()
		code := c.editor.Value()
		c.edMu.Unlock()
		c.send(schema.CodeUpdate{
			Type:      schema.MessageCodeUpdate,
			Code:      code,
			CursorRow: cur.Row + 1,
			CursorCol: cur.Col + 1,
		})
	})
}

// PushCursor schedules a throttled cursor_update from the editor's
// current cursor. Wire this to the editor's OnCursor hook.
func (c *Client) PushCursor() {
	c.cursorTh.Do(func() {
		c.edMu.Lock()
		cur := c.editor.Cursor()
		position := c.editor.Document().CursorOffset()
		c.edMu.Unlock()
		c.send(schema.CursorUpdate{
			Type:     schema.MessageCursorUpdate,
			Position: position,
			Line:     cur.Row + 1,
			Column:   cur.Col + 1,
		})
	})
}

// PushHighlights shares the enumerated highlight tile set.
func (c *Client) PushHighlights(tiles []schema.Tile, active bool) {
	c.highlightTh.Do(func() {
		c.send(schema.HighlightTiles{
			Type:   schema.MessageHighlightTiles,
			Tiles:  tiles,
			Active: active,
		})
	})
}

// PushSelection shares the current selection in the legacy range form.
func (c *Client) PushSelection(sel schema.HighlightSelection) {
	sel.Type = schema.MessageHighlightSelection
	c.highlightTh.Do(func() {
		c.send(sel)
	})
}

// PointLaser shares the laser pointer tile.
func (c *Client) PointLaser(row, col int) {
	c.laserTh.Do(func() {
		c.send(schema.LaserPoint{
			Type:   schema.MessageLaserPoint,
			Row:    &row,
			Col:    &col,
			Active: true,
		})
	})
}

// ClearLaser hides the laser pointer.
func (c *Client) ClearLaser() {
	c.laserTh.Do(func() {
		c.send(schema.LaserPoint{Type: schema.MessageLaserPoint})
	})
}

// RaiseHand raises or lowers the hand.
func (c *Client) RaiseHand(raised bool) {
	c.send(schema.HandRaise{Type: schema.MessageHandRaise, Raised: raised})
}

// SendReaction sends a named reaction with its emoji.
func (c *Client) SendReaction(name, emoji string) {
	c.send(schema.Reaction{Type: schema.MessageReaction, Reaction: name, Emoji: emoji})
}

// ClearReactions clears everyone's reactions.
func (c *Client) ClearReactions() {
	c.send(schema.ClearReactions{Type: schema.MessageClearReactions})
}

// SetLanguage switches the shared language.
func (c *Client) SetLanguage(language string) {
	c.send(schema.LanguageChange{Type: schema.MessageLanguageChange, Language: language})
}

// SetFocusMode toggles focus mode for all students.
func (c *Client) SetFocusMode(enabled bool) {
	c.send(schema.FocusMode{Type: schema.MessageFocusMode, Enabled: enabled})
}

// SetBreakpoints shares the set of marked rows.
func (c *Client) SetBreakpoints(rows []int) {
	c.send(schema.Breakpoints{Type: schema.MessageBreakpoints, Rows: rows})
}

// ScrollStudentsToLine scrolls every student to a 1-based line.
func (c *Client) ScrollStudentsToLine(lineNumber int) {
	c.send(schema.ScrollToLine{Type: schema.MessageScrollToLine, LineNumber: lineNumber})
}

// LoadTemplate replaces the shared document with a named template. The
// local editor is updated first so the sender sees it immediately.
func (c *Client) LoadTemplate(code, templateName string) {
	c.edMu.Lock()
	c.editor.SetValue(code, core.SetValueOptions{SkipNotify: true})
	c.edMu.Unlock()
	c.send(schema.TemplateLoaded{
		Type:         schema.MessageTemplateLoaded,
		Code:         code,
		TemplateName: templateName,
	})
}

// SharePDF shares a base64-encoded PDF with all participants.
func (c *Client) SharePDF(pdfData, fileName string) {
	c.send(schema.PDFLoad{Type: schema.MessagePDFLoad, PDFData: pdfData, FileName: fileName})
}

// SyncPDF shares the PDF viewport.
func (c *Client) SyncPDF(page int, scrollTop, scrollLeft, scale float64) {
	c.send(schema.PDFSync{
		Type:       schema.MessagePDFSync,
		Page:       page,
		ScrollTop:  scrollTop,
		ScrollLeft: scrollLeft,
		Scale:      scale,
	})
}

// PointPDFLaser shares the laser pointer in PDF coordinates.
func (c *Client) PointPDFLaser(x, y float64, active bool) {
	c.laserTh.Do(func() {
		c.send(schema.PDFLaser{Type: schema.MessagePDFLaser, X: x, Y: y, Active: active})
	})
}

// ChangeMode switches the shared view mode.
func (c *Client) ChangeMode(mode string) {
	c.send(schema.ModeChange{Type: schema.MessageModeChange, Mode: mode})
}

// ShareMarkdown shares a markdown document with all participants.
func (c *Client) ShareMarkdown(content, fileName string) {
	c.send(schema.MarkdownContent{Type: schema.MessageMarkdownContent, Content: content, FileName: fileName})
}

// SyncMarkdown shares the markdown viewport.
func (c *Client) SyncMarkdown(scrollTop, scrollHeight, scale float64) {
	c.send(schema.MarkdownState{
		Type:         schema.MessageMarkdownState,
		ScrollTop:    scrollTop,
		ScrollHeight: scrollHeight,
		Scale:        scale,
	})
}

// PointMarkdownLaser shares the laser pointer over markdown.
func (c *Client) PointMarkdownLaser(x, y float64, active bool) {
	c.laserTh.Do(func() {
		c.send(schema.MarkdownLaser{Type: schema.MessageMarkdownLaser, X: x, Y: y, Active: active})
	})
}

func presenterContent(s string) bool {
	return strings.TrimSpace(s) != ""
}

package client

import (
	"pkt.systems/tileboard/core"
	"pkt.systems/tileboard/internal/eventbus"
	"pkt.systems/tileboard/schema"
)

// handleMessage is the single decode boundary for inbound frames.
func (c *Client) handleMessage(data []byte) {
	msg, err := schema.Decode(data)
	if err != nil {
		c.log.Warn("ignoring malformed message", "err", err)
		return
	}
	switch m := msg.(type) {
	case *schema.Init:
		c.handleInit(m)
	case *schema.CodeUpdate:
		c.applyRemoteContent(m)
	case *schema.CursorUpdate:
		t := schema.Tile{Row: m.Line - 1, Col: m.Column - 1}
		if t.Row < 0 {
			t.Row = 0
		}
		if t.Col < 0 {
			t.Col = 0
		}
		c.overlay.SetCursor(t)
		c.overlaySink.CursorMoved(m.Line, m.Column, schema.Participant{ID: m.UserID, Name: m.UserName, Role: m.UserRole})
	case *schema.HighlightTiles:
		if m.Active {
			c.overlay.SetHighlights(m.Tiles)
		} else {
			c.overlay.ClearHighlights()
		}
		c.overlaySink.HighlightsChanged(m.Tiles, m.Active, schema.Participant{ID: m.UserID, Name: m.UserName, Role: m.UserRole})
	case *schema.HighlightSelection:
		if !m.Active {
			c.overlay.ClearHighlights()
		}
		c.overlaySink.SelectionHighlighted(*m)
	case *schema.LaserPoint:
		if m.Active && m.Row != nil && m.Col != nil {
			c.overlay.SetLaser(schema.Tile{Row: *m.Row, Col: *m.Col})
		} else {
			c.overlay.ClearLaser()
		}
		c.overlaySink.LaserMoved(m.Row, m.Col, m.Active, schema.Participant{ID: m.UserID, Name: m.UserName, Role: m.UserRole})
	case *schema.Breakpoints:
		c.overlay.SetBreakpoints(m.Rows)
		c.overlaySink.BreakpointsChanged(m.Rows)
	case *schema.HandRaise:
		c.overlay.SetHandRaised(m.UserID, m.UserName, m.Raised)
		c.overlaySink.HandRaised(m.UserName, m.Raised)
	case *schema.Reaction:
		c.overlay.AddReaction(m.Emoji)
		c.overlaySink.ReactionReceived(m.UserName, m.Emoji)
	case *schema.ClearReactions:
		c.overlay.ClearReactions()
		c.overlaySink.ReactionsCleared()
	case *schema.FocusMode:
		c.controlSink.FocusModeChanged(m.Enabled)
	case *schema.ScrollToLine:
		c.controlSink.ScrolledToLine(m.LineNumber)
	case *schema.LanguageChange:
		c.controlSink.LanguageChanged(m.Language, m.ChangedBy)
	case *schema.TemplateLoaded:
		c.edMu.Lock()
		c.editor.SetValue(m.Code, core.SetValueOptions{SkipNotify: true})
		c.edMu.Unlock()
		c.controlSink.TemplateLoaded(m.TemplateName, m.LoadedBy)
	case *schema.ModeChange:
		c.viewerSink.ModeChanged(m.Mode)
	case *schema.PDFLoad:
		c.viewerSink.PDFLoaded(m.PDFData, m.FileName)
	case *schema.PDFSync:
		c.viewerSink.PDFSynced(m.Page, m.ScrollTop, m.ScrollLeft, m.Scale)
	case *schema.PDFLaser:
		c.viewerSink.PDFLaserMoved(m.X, m.Y, m.Active)
	case *schema.MarkdownContent:
		c.viewerSink.MarkdownLoaded(m.Content, m.FileName)
	case *schema.MarkdownState:
		c.viewerSink.MarkdownSynced(m.ScrollTop, m.ScrollHeight, m.Scale)
	case *schema.MarkdownLaser:
		c.viewerSink.MarkdownLaserMoved(m.X, m.Y, m.Active)
	case *schema.UserJoined:
		joined := m.User
		c.statusSink.RosterChanged(eventbus.RosterEvent{Users: m.ConnectedUsers, Joined: &joined})
	case *schema.UserLeft:
		c.overlay.SetHandRaised(m.UserID, m.UserName, false)
		c.statusSink.RosterChanged(eventbus.RosterEvent{Users: m.ConnectedUsers, LeftName: m.UserName})
	case *schema.AuthError:
		c.mu.Lock()
		c.fallbackViewer = true
		c.mu.Unlock()
		c.log.Warn("teacher authentication rejected, falling back to student")
		c.statusSink.AuthFailed(m.Message)
	case *schema.Pong:
		// Keepalive answered.
	default:
		c.log.Debug("ignoring unexpected message type")
	}
}

func (c *Client) handleInit(m *schema.Init) {
	c.mu.Lock()
	c.id = m.YourID
	c.role = m.YourRole
	c.mu.Unlock()

	if m.YourRole == schema.RoleStudent && c.identity != nil {
		if err := c.identity.SetStudentID(m.YourID); err != nil {
			c.log.Warn("storing student id failed", "err", err)
		}
	}

	c.edMu.Lock()
	local := c.editor.Value()
	keepLocal := m.YourRole == schema.RoleTeacher && presenterContent(local)
	var cur schema.Tile
	if keepLocal {
		cur = c.editor.Cursor()
	} else {
		c.editor.SetValue(m.State.Code, core.SetValueOptions{
			PreserveCursor: true,
			SkipUndo:       true,
			SkipNotify:     true,
		})
	}
	c.edMu.Unlock()
	if keepLocal {
		// The presenter's local content wins and becomes canonical.
		c.send(schema.CodeUpdate{
			Type:      schema.MessageCodeUpdate,
			Code:      local,
			CursorRow: cur.Row + 1,
			CursorCol: cur.Col + 1,
		})
	}
	if m.State.Language != "" {
		c.controlSink.LanguageChanged(m.State.Language, "")
	}
	c.statusSink.RosterChanged(eventbus.RosterEvent{Users: m.ConnectedUsers})
	c.log.Info("joined session", "id", int(m.YourID), "role", string(m.YourRole), "participants", len(m.ConnectedUsers))
}

// applyRemoteContent loads a relayed code_update into the local editor.
// SkipNotify keeps the update from echoing back out through OnContent.
func (c *Client) applyRemoteContent(m *schema.CodeUpdate) {
	c.edMu.Lock()
	c.editor.SetValue(m.Code, core.SetValueOptions{
		PreserveCursor: true,
		SkipNotify:     true,
	})
	c.edMu.Unlock()
	if m.CursorRow > 0 && m.CursorCol > 0 {
		c.overlay.SetCursor(schema.Tile{Row: m.CursorRow - 1, Col: m.CursorCol - 1})
		c.overlaySink.CursorMoved(m.CursorRow, m.CursorCol, schema.Participant{ID: m.UpdatedBy, Name: m.UpdaterName, Role: m.UpdaterRole})
	}
}

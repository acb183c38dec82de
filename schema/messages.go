package schema

import (
	"encoding/json"
	"fmt"
)

// MessageType discriminates wire messages. Every message is a single JSON
// object with a "type" field.
type MessageType string

const (
	// MessageInit delivers canonical state to a joining participant.
	MessageInit MessageType = "init"
	// MessageCodeUpdate carries a full replacement of the shared document.
	MessageCodeUpdate MessageType = "code_update"
	// MessageCursorUpdate carries a participant's cursor position.
	MessageCursorUpdate MessageType = "cursor_update"
	// MessageHighlightTiles carries an enumerated tile highlight set.
	MessageHighlightTiles MessageType = "highlight_tiles"
	// MessageHighlightSelection carries a legacy range-form highlight.
	MessageHighlightSelection MessageType = "highlight_selection"
	// MessageLaserPoint carries the transient laser pointer position.
	MessageLaserPoint MessageType = "laser_point"
	// MessagePDFLoad carries a PDF document for side-by-side viewing.
	MessagePDFLoad MessageType = "pdf_load"
	// MessagePDFSync carries PDF viewport state.
	MessagePDFSync MessageType = "pdf_sync"
	// MessagePDFLaser carries the laser pointer over a PDF.
	MessagePDFLaser MessageType = "pdf_laser"
	// MessageModeChange switches the shared view mode.
	MessageModeChange MessageType = "mode_change"
	// MessageMarkdownContent carries a markdown document.
	MessageMarkdownContent MessageType = "markdown_content"
	// MessageMarkdownState carries markdown viewport state.
	MessageMarkdownState MessageType = "markdown_state"
	// MessageMarkdownLaser carries the laser pointer over markdown.
	MessageMarkdownLaser MessageType = "markdown_laser"
	// MessageTemplateLoaded announces a template replacing the document.
	MessageTemplateLoaded MessageType = "template_loaded"
	// MessageLanguageChange switches the shared language.
	MessageLanguageChange MessageType = "language_change"
	// MessageHandRaise signals a raised or lowered hand.
	MessageHandRaise MessageType = "hand_raise"
	// MessageReaction carries a student reaction.
	MessageReaction MessageType = "reaction"
	// MessageClearReactions clears all reactions.
	MessageClearReactions MessageType = "clear_reactions"
	// MessageFocusMode toggles focus mode for students.
	MessageFocusMode MessageType = "focus_mode"
	// MessageBreakpoints carries the set of marked rows.
	MessageBreakpoints MessageType = "breakpoints"
	// MessageScrollToLine scrolls students to a line.
	MessageScrollToLine MessageType = "scroll_to_line"
	// MessagePing is a keepalive probe.
	MessagePing MessageType = "ping"
	// MessagePong answers a ping.
	MessagePong MessageType = "pong"
	// MessageAuthError reports a rejected presenter secret.
	MessageAuthError MessageType = "auth_error"
	// MessageUserJoined announces a participant joining.
	MessageUserJoined MessageType = "user_joined"
	// MessageUserLeft announces a participant leaving.
	MessageUserLeft MessageType = "user_left"
)

// Message is a decoded wire message. All concrete message structs in this
// package implement it.
type Message interface {
	isMessage()
}

// Init is sent by the hub to a participant right after a successful join.
type Init struct {
	Type           MessageType   `json:"type"`
	State          BoardState    `json:"state"`
	YourID         ParticipantID `json:"yourId"`
	YourRole       Role          `json:"yourRole"`
	ConnectedUsers []Participant `json:"connectedUsers"`
}

// CodeUpdate replaces the whole shared document. CursorRow and CursorCol
// are 1-based hints. The hub stamps the updater fields on relay.
type CodeUpdate struct {
	Type        MessageType   `json:"type"`
	Code        string        `json:"code"`
	CursorRow   int           `json:"cursorRow,omitempty"`
	CursorCol   int           `json:"cursorCol,omitempty"`
	UpdatedBy   ParticipantID `json:"updatedBy,omitempty"`
	UpdaterName string        `json:"updaterName,omitempty"`
	UpdaterRole Role          `json:"updaterRole,omitempty"`
	UserID      ParticipantID `json:"userId,omitempty"`
}

// CursorUpdate carries a cursor move. Position is the linear offset, Line
// and Column are 1-based. Relayed to teacher-role participants only.
type CursorUpdate struct {
	Type     MessageType   `json:"type"`
	Position int           `json:"position"`
	Line     int           `json:"line"`
	Column   int           `json:"column"`
	UserID   ParticipantID `json:"userId,omitempty"`
	UserName string        `json:"userName,omitempty"`
	UserRole Role          `json:"userRole,omitempty"`
}

// HighlightTiles carries the enumerated highlight tile set. An empty set
// with Active false clears the highlight.
type HighlightTiles struct {
	Type     MessageType   `json:"type"`
	Tiles    []Tile        `json:"tiles"`
	Active   bool          `json:"active"`
	UserID   ParticipantID `json:"userId,omitempty"`
	UserName string        `json:"userName,omitempty"`
	UserRole Role          `json:"userRole,omitempty"`
}

// HighlightSelection is the legacy range form of a highlight. Rows and
// columns are 0-based and direction-independent.
type HighlightSelection struct {
	Type     MessageType   `json:"type"`
	StartRow int           `json:"startRow"`
	StartCol int           `json:"startCol"`
	EndRow   int           `json:"endRow"`
	EndCol   int           `json:"endCol"`
	Text     string        `json:"text,omitempty"`
	Active   bool          `json:"active"`
	UserID   ParticipantID `json:"userId,omitempty"`
	UserName string        `json:"userName,omitempty"`
	UserRole Role          `json:"userRole,omitempty"`
}

// LaserPoint carries the laser pointer tile. Row and Col are null when the
// pointer leaves the board; Col may exceed the line length.
type LaserPoint struct {
	Type     MessageType   `json:"type"`
	Row      *int          `json:"row"`
	Col      *int          `json:"col"`
	Active   bool          `json:"active"`
	UserID   ParticipantID `json:"userId,omitempty"`
	UserName string        `json:"userName,omitempty"`
	UserRole Role          `json:"userRole,omitempty"`
}

// PDFLoad carries base64 PDF data for the shared viewer.
type PDFLoad struct {
	Type     MessageType   `json:"type"`
	PDFData  string        `json:"pdfData"`
	FileName string        `json:"fileName"`
	UserID   ParticipantID `json:"userId,omitempty"`
	UserName string        `json:"userName,omitempty"`
}

// PDFSync carries the presenter's PDF viewport.
type PDFSync struct {
	Type       MessageType   `json:"type"`
	Page       int           `json:"page"`
	ScrollTop  float64       `json:"scrollTop"`
	ScrollLeft float64       `json:"scrollLeft"`
	Scale      float64       `json:"scale"`
	UserID     ParticipantID `json:"userId,omitempty"`
}

// PDFLaser carries the laser pointer in PDF coordinates.
type PDFLaser struct {
	Type   MessageType   `json:"type"`
	X      float64       `json:"x"`
	Y      float64       `json:"y"`
	Active bool          `json:"active"`
	UserID ParticipantID `json:"userId,omitempty"`
}

// ModeChange switches the shared view between code, pdf and markdown.
type ModeChange struct {
	Type   MessageType   `json:"type"`
	Mode   string        `json:"mode"`
	UserID ParticipantID `json:"userId,omitempty"`
}

// MarkdownContent carries a markdown document for the shared viewer.
type MarkdownContent struct {
	Type     MessageType   `json:"type"`
	Content  string        `json:"content"`
	FileName string        `json:"fileName"`
	UserID   ParticipantID `json:"userId,omitempty"`
	UserName string        `json:"userName,omitempty"`
}

// MarkdownState carries the presenter's markdown viewport.
type MarkdownState struct {
	Type         MessageType   `json:"type"`
	ScrollTop    float64       `json:"scrollTop"`
	ScrollHeight float64       `json:"scrollHeight"`
	Scale        float64       `json:"scale"`
	UserID       ParticipantID `json:"userId,omitempty"`
}

// MarkdownLaser carries the laser pointer over markdown.
type MarkdownLaser struct {
	Type   MessageType   `json:"type"`
	X      float64       `json:"x"`
	Y      float64       `json:"y"`
	Active bool          `json:"active"`
	UserID ParticipantID `json:"userId,omitempty"`
}

// TemplateLoaded replaces the shared document with a named template.
type TemplateLoaded struct {
	Type         MessageType `json:"type"`
	Code         string      `json:"code"`
	TemplateName string      `json:"templateName"`
	LoadedBy     string      `json:"loadedBy,omitempty"`
}

// LanguageChange switches the shared language. Teacher only.
type LanguageChange struct {
	Type      MessageType `json:"type"`
	Language  string      `json:"language"`
	ChangedBy string      `json:"changedBy,omitempty"`
}

// HandRaise signals a raised or lowered hand. Relayed to teachers only.
type HandRaise struct {
	Type     MessageType   `json:"type"`
	Raised   bool          `json:"raised"`
	UserID   ParticipantID `json:"userId,omitempty"`
	UserName string        `json:"userName,omitempty"`
}

// Reaction carries a student reaction. Relayed to teachers only.
type Reaction struct {
	Type     MessageType   `json:"type"`
	Reaction string        `json:"reaction"`
	Emoji    string        `json:"emoji"`
	UserID   ParticipantID `json:"userId,omitempty"`
	UserName string        `json:"userName,omitempty"`
}

// ClearReactions clears all student reactions. Teacher only.
type ClearReactions struct {
	Type MessageType `json:"type"`
}

// FocusMode toggles focus mode for students. Teacher only.
type FocusMode struct {
	Type    MessageType `json:"type"`
	Enabled bool        `json:"enabled"`
}

// Breakpoints carries the set of marked rows. Teacher only.
type Breakpoints struct {
	Type MessageType `json:"type"`
	Rows []int       `json:"rows"`
}

// ScrollToLine scrolls students to a 1-based line. Teacher only.
type ScrollToLine struct {
	Type       MessageType `json:"type"`
	LineNumber int         `json:"lineNumber"`
}

// Ping is a keepalive probe. Answered by the hub with Pong.
type Ping struct {
	Type MessageType `json:"type"`
}

// Pong answers a Ping.
type Pong struct {
	Type MessageType `json:"type"`
}

// AuthError reports a rejected presenter secret. The hub sends it right
// before closing the connection with CloseAuthFailure.
type AuthError struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

// UserJoined announces a participant joining, with the updated roster.
type UserJoined struct {
	Type           MessageType   `json:"type"`
	User           Participant   `json:"user"`
	ConnectedUsers []Participant `json:"connectedUsers"`
}

// UserLeft announces a participant leaving, with the updated roster.
type UserLeft struct {
	Type           MessageType   `json:"type"`
	UserID         ParticipantID `json:"userId"`
	UserName       string        `json:"userName"`
	ConnectedUsers []Participant `json:"connectedUsers"`
}

func (Init) isMessage()               {}
func (CodeUpdate) isMessage()         {}
func (CursorUpdate) isMessage()       {}
func (HighlightTiles) isMessage()     {}
func (HighlightSelection) isMessage() {}
func (LaserPoint) isMessage()         {}
func (PDFLoad) isMessage()            {}
func (PDFSync) isMessage()            {}
func (PDFLaser) isMessage()           {}
func (ModeChange) isMessage()         {}
func (MarkdownContent) isMessage()    {}
func (MarkdownState) isMessage()      {}
func (MarkdownLaser) isMessage()      {}
func (TemplateLoaded) isMessage()     {}
func (LanguageChange) isMessage()     {}
func (HandRaise) isMessage()          {}
func (Reaction) isMessage()           {}
func (ClearReactions) isMessage()     {}
func (FocusMode) isMessage()          {}
func (Breakpoints) isMessage()        {}
func (ScrollToLine) isMessage()       {}
func (Ping) isMessage()               {}
func (Pong) isMessage()               {}
func (AuthError) isMessage()          {}
func (UserJoined) isMessage()         {}
func (UserLeft) isMessage()           {}

// CloseAuthFailure is the websocket close code sent after AuthError. It is
// distinguishable from ordinary disconnects so clients do not retry with
// the same secret.
const CloseAuthFailure = 4001

// Decode parses a wire message and returns the concrete message struct.
// Unknown types return ErrUnknownMessageType; malformed payloads return an
// error wrapping ErrInvalidMessage.
func Decode(data []byte) (Message, error) {
	var probe struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	var msg Message
	switch probe.Type {
	case MessageInit:
		msg = &Init{}
	case MessageCodeUpdate:
		msg = &CodeUpdate{}
	case MessageCursorUpdate:
		msg = &CursorUpdate{}
	case MessageHighlightTiles:
		msg = &HighlightTiles{}
	case MessageHighlightSelection:
		msg = &HighlightSelection{}
	case MessageLaserPoint:
		msg = &LaserPoint{}
	case MessagePDFLoad:
		msg = &PDFLoad{}
	case MessagePDFSync:
		msg = &PDFSync{}
	case MessagePDFLaser:
		msg = &PDFLaser{}
	case MessageModeChange:
		msg = &ModeChange{}
	case MessageMarkdownContent:
		msg = &MarkdownContent{}
	case MessageMarkdownState:
		msg = &MarkdownState{}
	case MessageMarkdownLaser:
		msg = &MarkdownLaser{}
	case MessageTemplateLoaded:
		msg = &TemplateLoaded{}
	case MessageLanguageChange:
		msg = &LanguageChange{}
	case MessageHandRaise:
		msg = &HandRaise{}
	case MessageReaction:
		msg = &Reaction{}
	case MessageClearReactions:
		msg = &ClearReactions{}
	case MessageFocusMode:
		msg = &FocusMode{}
	case MessageBreakpoints:
		msg = &Breakpoints{}
	case MessageScrollToLine:
		msg = &ScrollToLine{}
	case MessagePing:
		msg = &Ping{}
	case MessagePong:
		msg = &Pong{}
	case MessageAuthError:
		msg = &AuthError{}
	case MessageUserJoined:
		msg = &UserJoined{}
	case MessageUserLeft:
		msg = &UserLeft{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, probe.Type)
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return msg, nil
}

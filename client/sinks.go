package client

import (
	"pkt.systems/tileboard/internal/eventbus"
	"pkt.systems/tileboard/schema"
)

// OverlaySink receives remote overlay changes after they land in the
// client's core.Overlay. A UI layer implements the methods it cares about.
type OverlaySink interface {
	CursorMoved(line, column int, by schema.Participant)
	HighlightsChanged(tiles []schema.Tile, active bool, by schema.Participant)
	SelectionHighlighted(sel schema.HighlightSelection)
	LaserMoved(row, col *int, active bool, by schema.Participant)
	BreakpointsChanged(rows []int)
	HandRaised(name string, raised bool)
	ReactionReceived(name, emoji string)
	ReactionsCleared()
}

// ViewerSink receives shared viewer state for the non-code modes.
type ViewerSink interface {
	ModeChanged(mode string)
	PDFLoaded(pdfData, fileName string)
	PDFSynced(page int, scrollTop, scrollLeft, scale float64)
	PDFLaserMoved(x, y float64, active bool)
	MarkdownLoaded(content, fileName string)
	MarkdownSynced(scrollTop, scrollHeight, scale float64)
	MarkdownLaserMoved(x, y float64, active bool)
}

// ControlSink receives teacher-driven viewport commands.
type ControlSink interface {
	FocusModeChanged(enabled bool)
	ScrolledToLine(lineNumber int)
	LanguageChanged(language, changedBy string)
	TemplateLoaded(templateName, loadedBy string)
}

// StatusSink receives connection and session lifecycle events. The
// default sink publishes them on an eventbus.Bus.
type StatusSink interface {
	ConnectionChanged(event eventbus.ConnectionEvent)
	RosterChanged(event eventbus.RosterEvent)
	AuthFailed(message string)
}

type busStatusSink struct {
	bus *eventbus.Bus
}

func (s busStatusSink) ConnectionChanged(event eventbus.ConnectionEvent) {
	s.bus.OnConnection(event)
}

func (s busStatusSink) RosterChanged(event eventbus.RosterEvent) {
	s.bus.OnRoster(event)
}

func (s busStatusSink) AuthFailed(message string) {
	s.bus.OnNotice(eventbus.NoticeEvent{Kind: "auth_error", Text: message})
}

type nopOverlaySink struct{}

func (nopOverlaySink) CursorMoved(int, int, schema.Participant)                  {}
func (nopOverlaySink) HighlightsChanged([]schema.Tile, bool, schema.Participant) {}
func (nopOverlaySink) SelectionHighlighted(schema.HighlightSelection)            {}
func (nopOverlaySink) LaserMoved(*int, *int, bool, schema.Participant)           {}
func (nopOverlaySink) BreakpointsChanged([]int)                                  {}
func (nopOverlaySink) HandRaised(string, bool)                                   {}
func (nopOverlaySink) ReactionReceived(string, string)                           {}
func (nopOverlaySink) ReactionsCleared()                                         {}

type nopViewerSink struct{}

func (nopViewerSink) ModeChanged(string)                        {}
func (nopViewerSink) PDFLoaded(string, string)                  {}
func (nopViewerSink) PDFSynced(int, float64, float64, float64)  {}
func (nopViewerSink) PDFLaserMoved(float64, float64, bool)      {}
func (nopViewerSink) MarkdownLoaded(string, string)             {}
func (nopViewerSink) MarkdownSynced(float64, float64, float64)  {}
func (nopViewerSink) MarkdownLaserMoved(float64, float64, bool) {}

type nopControlSink struct{}

func (nopControlSink) FocusModeChanged(bool)          {}
func (nopControlSink) ScrolledToLine(int)             {}
func (nopControlSink) LanguageChanged(string, string) {}
func (nopControlSink) TemplateLoaded(string, string)  {}

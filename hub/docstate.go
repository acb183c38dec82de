package hub

import (
	"pkt.systems/tileboard/core"
	"pkt.systems/tileboard/schema"
)

// DocumentState is the canonical shared state. It is owned by the hub's
// event loop; nothing else touches it.
type DocumentState struct {
	doc           *core.Document
	language      string
	lastUpdatedBy *schema.ParticipantID
}

// NewDocumentState returns canonical state holding code with the given
// language.
func NewDocumentState(code, language string) *DocumentState {
	return &DocumentState{
		doc:      core.NewDocument(code),
		language: language,
	}
}

// Code returns the canonical document text.
func (s *DocumentState) Code() string {
	return s.doc.Value()
}

// SetCode replaces the canonical document and records the writer.
func (s *DocumentState) SetCode(code string, by schema.ParticipantID) {
	s.doc.ReplaceAll(code, false)
	s.lastUpdatedBy = &by
}

// SetTemplate replaces the canonical document without touching the
// writer record.
func (s *DocumentState) SetTemplate(code string) {
	s.doc.ReplaceAll(code, false)
}

// Language returns the shared language.
func (s *DocumentState) Language() string {
	return s.language
}

// SetLanguage switches the shared language.
func (s *DocumentState) SetLanguage(language string) {
	s.language = language
}

// LastUpdatedBy returns the last writer's id, or nil.
func (s *DocumentState) LastUpdatedBy() *schema.ParticipantID {
	return s.lastUpdatedBy
}

// Clear wipes the canonical document and the writer record. The language
// is kept; it tracks the presenter, not the session file.
func (s *DocumentState) Clear() {
	s.doc.ReplaceAll("", false)
	s.lastUpdatedBy = nil
}

// Board returns the wire form of the canonical state.
func (s *DocumentState) Board() schema.BoardState {
	return schema.BoardState{
		Code:           s.doc.Value(),
		CursorPosition: s.doc.CursorOffset(),
		Language:       s.language,
	}
}

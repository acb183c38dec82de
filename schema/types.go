package schema

// ParticipantID identifies a connected participant. IDs are assigned
// sequentially by the hub and stay stable across a student's reconnects.
type ParticipantID int

// Role is a participant's capability class.
type Role string

const (
	// RoleTeacher is the presenter role.
	RoleTeacher Role = "teacher"
	// RoleStudent is the viewer role.
	RoleStudent Role = "student"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleTeacher || r == RoleStudent
}

// Tile addresses a single character cell in a document. Row and Col are
// 0-indexed; Col may equal the line length, which addresses the insertion
// point at the end of the line.
type Tile struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Less orders tiles by row, then column.
func (t Tile) Less(u Tile) bool {
	if t.Row != u.Row {
		return t.Row < u.Row
	}
	return t.Col < u.Col
}

// Participant is one roster entry.
type Participant struct {
	ID   ParticipantID `json:"id"`
	Name string        `json:"name"`
	Role Role          `json:"role"`
}

// BoardState is the canonical shared state a joining participant receives.
// CursorPosition is a linear offset carried for wire compatibility.
type BoardState struct {
	Code           string `json:"code"`
	CursorPosition int    `json:"cursorPosition"`
	Language       string `json:"language"`
}

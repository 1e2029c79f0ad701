// Package entities contains core business entities.
// These are the enterprise business rules - pure domain objects with no external dependencies.
package entities

import (
	"encoding/json"
	"time"
)

// Course is a single catalog record.
// Optional fields are nil when the upstream source has no data for them.
type Course struct {
	ID                 string   `json:"id"`
	Abbreviation       string   `json:"abbreviation"`
	CourseNumber       string   `json:"courseNumber"`
	Title              string   `json:"title"`
	OpenSeats          *int     `json:"openSeats,omitempty"`
	EnrolledPercentage float64  `json:"enrolledPercentage"`
	Units              *float64 `json:"units,omitempty"`
	LetterAverage      *string  `json:"letterAverage,omitempty"`
	GradeAverage       *float64 `json:"gradeAverage,omitempty"`
}

// Code renders the course as "DEPT NUM".
func (c Course) Code() string {
	return c.Abbreviation + " " + c.CourseNumber
}

// HasOpenSeats reports whether seat data exists and at least one seat is free.
func (c Course) HasOpenSeats() bool {
	return c.OpenSeats != nil && *c.OpenSeats > 0
}

// ChatMessage represents a conversation turn.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatRequest represents a question with conversation context, oldest turn first.
type ChatRequest struct {
	Question string        `json:"question"`
	History  []ChatMessage `json:"history,omitempty"`
}

// Answer is the router's output: a text summary plus the courses it is about.
type Answer struct {
	Text    string
	Courses []Course

	// Plain marks the oracle's raw text returned when no course could be
	// recovered from it. Plain answers encode as a bare JSON string.
	Plain bool
	// Route names the handler or extraction stage that produced the answer.
	Route string
}

// MarshalJSON encodes plain answers as a string and structured ones as
// {"text": ..., "courses": [...]}.
func (a Answer) MarshalJSON() ([]byte, error) {
	if a.Plain {
		return json.Marshal(a.Text)
	}
	courses := a.Courses
	if courses == nil {
		courses = []Course{}
	}
	return json.Marshal(struct {
		Text    string   `json:"text"`
		Courses []Course `json:"courses"`
	}{Text: a.Text, Courses: courses})
}

// Document is one serialized course record fed to the retrieval index.
type Document struct {
	ID        string
	Name      string
	Content   string
	CreatedAt time.Time
}

// Chunk represents a piece of a document for embedding.
type Chunk struct {
	ID         string
	DocumentID string
	Source     string // citation label, e.g. "COMPSCI 61A"
	Content    string
	Index      int       // Position in document
	Embedding  []float32 // Vector representation (populated by adapter)
}

// SearchResult is a chunk returned by the vector store with its relevance.
type SearchResult struct {
	Chunk     Chunk
	Score     float64 // Similarity score
	SourceDoc string  // Document name for citation
}

package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// courseWire mirrors the upstream catalog record. Numeric fields arrive as
// numbers, strings, or null depending on the export.
type courseWire struct {
	ID                 string          `json:"id"`
	Abbreviation       string          `json:"abbreviation"`
	CourseNumber       string          `json:"courseNumber"`
	Title              string          `json:"title"`
	OpenSeats          json.RawMessage `json:"openSeats"`
	EnrolledPercentage json.RawMessage `json:"enrolledPercentage"`
	Units              json.RawMessage `json:"units"`
	LetterAverage      json.RawMessage `json:"letterAverage"`
	GradeAverage       json.RawMessage `json:"gradeAverage"`
}

var leadingNumber = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// UnmarshalJSON decodes a catalog record and turns the upstream "-1" no-data
// sentinels into nil.
func (c *Course) UnmarshalJSON(data []byte) error {
	var w courseWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	out := Course{
		ID:           w.ID,
		Abbreviation: strings.TrimSpace(w.Abbreviation),
		CourseNumber: strings.TrimSpace(w.CourseNumber),
		Title:        strings.TrimSpace(w.Title),
	}

	// Optional fields that do not parse ("N/A", "TBD") count as no data.
	if seats, err := decodeNumber(w.OpenSeats); err == nil && seats != nil && *seats >= 0 {
		n := int(*seats)
		out.OpenSeats = &n
	}

	enrolled, err := decodeNumber(w.EnrolledPercentage)
	if err != nil {
		return fmt.Errorf("course %s: enrolledPercentage: %w", w.ID, err)
	}
	if enrolled != nil {
		out.EnrolledPercentage = *enrolled
	}

	// "3 - 4" keeps the lower bound.
	if units, err := decodeNumber(w.Units); err == nil && units != nil && *units >= 0 {
		out.Units = units
	}

	if grade, err := decodeNumber(w.GradeAverage); err == nil && grade != nil && *grade >= 0 {
		out.GradeAverage = grade
	}

	if letter := decodeString(w.LetterAverage); letter != "" && letter != "-1" && letter != "-1.0" {
		out.LetterAverage = &letter
	}

	*c = out
	return nil
}

func decodeNumber(raw json.RawMessage) (*float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, nil
		}
		m := leadingNumber.FindString(s)
		if m == "" {
			return nil, fmt.Errorf("not a number: %q", s)
		}
		v, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return nil, err
		}
		return &v, nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func decodeString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	// Some exports encode a missing letter grade as the number -1.
	return strings.TrimSpace(string(raw))
}

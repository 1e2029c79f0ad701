// Package grade parses grade thresholds out of questions and maps letter
// grades onto the 4.0 scale.
package grade

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// letters lists the scale from best to worst; the plain letter precedes its
// "+" variant where both share a value so reverse lookups prefer it.
var letters = []struct {
	letter string
	value  float64
}{
	{"A", 4.0}, {"A+", 4.0}, {"A-", 3.7},
	{"B+", 3.3}, {"B", 3.0}, {"B-", 2.7},
	{"C+", 2.3}, {"C", 2.0}, {"C-", 1.7},
	{"D+", 1.3}, {"D", 1.0}, {"D-", 0.7},
	{"F", 0.0},
}

// LetterToValue converts a letter grade to its GPA value.
func LetterToValue(letter string) (float64, bool) {
	letter = strings.ToUpper(strings.TrimSpace(letter))
	for _, l := range letters {
		if l.letter == letter {
			return l.value, true
		}
	}
	return 0, false
}

// ValueToLetter returns the letter whose GPA value is closest to v.
func ValueToLetter(v float64) string {
	best := letters[0]
	bestDist := math.Inf(1)
	for _, l := range letters {
		if d := math.Abs(l.value - v); d < bestDist {
			best, bestDist = l, d
		}
	}
	return best.letter
}

// Constraint is a parsed grade threshold.
type Constraint struct {
	Value float64
	// Exact asks for courses at the value (within tolerance) rather than at
	// or above it.
	Exact bool
	// Label is the threshold as the user wrote it, e.g. "B+" or "3.5".
	Label string
}

const (
	maxGPA = 4.0

	// qualifier words allowed between the grade keyword and the threshold
	qualifier = `exactly\s+|precisely\s+|equal\s+to\s+|at\s+least\s+|above\s+|over\s+`
)

var (
	contextualLetter = regexp.MustCompile(
		`\b(?:with|has|having)\s+(?:an?\s+)?([abcdf][+-]?)\s+(?:grade\s+)?(?:average|avg|grade)\b`)

	letterThenAverage = regexp.MustCompile(
		`\b([abcdf][+-]?)\s+(?:grade\s+)?(?:average|avg|grade)\b`)
	averageThenLetter = regexp.MustCompile(
		`\b(?:average|avg|grade)\s+(?:grade\s+)?(?:of\s+)?(?:`+qualifier+`)?(?:an?\s+)?([abcdf][+-]?)(?:[^a-z0-9+-]|$)`)

	numberThenAverage = regexp.MustCompile(
		`\b(\d(?:\.\d+)?)\s+(?:gpa\s+)?(?:average|avg|grade)\b`)
	averageThenNumber = regexp.MustCompile(
		`\b(?:average|avg|grade|gpa)\s+(?:grade\s+)?(?:of\s+)?(?:`+qualifier+`)?(\d(?:\.\d+)?)\b`)

	exactQualifier = regexp.MustCompile(`\b(?:exactly|precisely|equal\s+to|just)\b`)

	// "a grade ..." uses "a" as an article unless another article precedes
	// it, as in "an a grade".
	articleBefore = regexp.MustCompile(`\ban?\s+$`)
	gradeAfter    = regexp.MustCompile(`^\s+grade\b`)
)

// Parse looks for a grade threshold in question. Phrasings are tried from the
// most to the least reliable; a phrasing whose token does not convert is
// skipped. The second return value is false when nothing usable was found.
func Parse(question string) (Constraint, bool) {
	q := strings.ToLower(question)

	c, ok := parseLetter(q, contextualLetter)
	if !ok {
		c, ok = parseLetter(q, letterThenAverage, averageThenLetter)
	}
	if !ok {
		c, ok = parseNumber(q, numberThenAverage, averageThenNumber)
	}
	if !ok {
		return Constraint{}, false
	}

	c.Exact = exactQualifier.MatchString(q)
	return c, true
}

func parseLetter(q string, patterns ...*regexp.Regexp) (Constraint, bool) {
	for _, re := range patterns {
		for _, loc := range re.FindAllStringSubmatchIndex(q, -1) {
			start, end := loc[2], loc[3]
			if isArticle(q, start, end) {
				continue
			}
			label := strings.ToUpper(q[start:end])
			v, ok := LetterToValue(label)
			if !ok {
				continue
			}
			return Constraint{Value: v, Label: label}, true
		}
	}
	return Constraint{}, false
}

func isArticle(q string, start, end int) bool {
	return q[start:end] == "a" &&
		gradeAfter.MatchString(q[end:]) &&
		!articleBefore.MatchString(q[:start])
}

func parseNumber(q string, patterns ...*regexp.Regexp) (Constraint, bool) {
	for _, re := range patterns {
		m := re.FindStringSubmatch(q)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil || v < 0 || v > maxGPA {
			continue
		}
		return Constraint{Value: v, Label: m[1]}, true
	}
	return Constraint{}, false
}

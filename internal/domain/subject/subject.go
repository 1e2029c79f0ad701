// Package subject maps coarse topic phrases ("math", "comp sci") onto the
// department codes that teach them, and spots department codes in free text.
//
// The subject table here is the only copy; every handler and extraction
// strategy reads it through this package.
package subject

import (
	"regexp"
	"sort"
	"strings"
)

// Math is the subject with a dedicated fallback in course extraction.
const Math = "math"

type entry struct {
	name        string
	pattern     *regexp.Regexp
	departments []string
}

func phrase(p string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(?:` + p + `)\b`)
}

// table is ordered: more specific phrases come before the ones they contain.
var table = []entry{
	{"data science", phrase(`data\s+sci(?:ence)?`), []string{"DATA", "STAT", "COMPSCI"}},
	{"computer science", phrase(`computer\s+science|comp\s*sci|compsci|cs|eecs`), []string{"COMPSCI", "EECS"}},
	{"political science", phrase(`political\s+science|poli\s*sci|polisci`), []string{"POL SCI"}},
	{Math, phrase(`maths?|mathematics|calculus|calc|algebra`), []string{"MATH", "STAT"}},
	{"statistics", phrase(`statistics|stats?`), []string{"STAT"}},
	{"economics", phrase(`economics|econ`), []string{"ECON"}},
	{"physics", phrase(`physics`), []string{"PHYSICS"}},
	{"chemistry", phrase(`chemistry|chem`), []string{"CHEM"}},
	{"biology", phrase(`biology|bio`), []string{"BIOLOGY", "MCELLBI", "INTEGBI"}},
	{"psychology", phrase(`psychology|psych`), []string{"PSYCH"}},
	{"engineering", phrase(`engineering`), []string{"ENGIN", "EL ENG", "MEC ENG", "CIV ENG"}},
	{"business", phrase(`business`), []string{"UGBA"}},
	{"english", phrase(`english|literature`), []string{"ENGLISH"}},
	{"history", phrase(`history`), []string{"HISTORY"}},
	{"philosophy", phrase(`philosophy`), []string{"PHILOS"}},
}

// Resolve returns the first subject whose phrase appears in question.
func Resolve(question string) (string, bool) {
	for _, e := range table {
		if e.pattern.MatchString(question) {
			return e.name, true
		}
	}
	return "", false
}

// SubjectAt returns the subject whose phrase in text covers byte offset pos.
func SubjectAt(text string, pos int) (string, bool) {
	for _, e := range table {
		for _, m := range e.pattern.FindAllStringIndex(text, -1) {
			if m[0] <= pos && pos < m[1] {
				return e.name, true
			}
		}
	}
	return "", false
}

// SubjectsIn returns every subject mentioned in text, in table order.
func SubjectsIn(text string) []string {
	var out []string
	for _, e := range table {
		if e.pattern.MatchString(text) {
			out = append(out, e.name)
		}
	}
	return out
}

// DepartmentsFor returns the department codes for a subject. Unknown
// subjects yield nil.
func DepartmentsFor(subject string) []string {
	subject = strings.ToLower(strings.TrimSpace(subject))
	for _, e := range table {
		if e.name == subject {
			return append([]string(nil), e.departments...)
		}
	}
	return nil
}

// Contains reports whether dept belongs to subject.
func Contains(subject, dept string) bool {
	for _, d := range DepartmentsFor(subject) {
		if strings.EqualFold(d, dept) {
			return true
		}
	}
	return false
}

// Resolver detects catalog department codes appearing verbatim in text.
type Resolver struct {
	mentions *regexp.Regexp
}

// NewResolver builds a Resolver over the department codes a catalog knows.
func NewResolver(departments []string) *Resolver {
	codes := make([]string, 0, len(departments))
	seen := make(map[string]bool, len(departments))
	for _, d := range departments {
		d = strings.TrimSpace(d)
		// Whole-word matching needs a word character at both ends.
		if d == "" || seen[d] || !isWordByte(d[0]) || !isWordByte(d[len(d)-1]) {
			continue
		}
		seen[d] = true
		codes = append(codes, d)
	}
	if len(codes) == 0 {
		return &Resolver{}
	}

	// Longest first so "MATH" never wins over a longer code sharing its prefix.
	sort.SliceStable(codes, func(i, j int) bool { return len(codes[i]) > len(codes[j]) })
	alts := make([]string, len(codes))
	for i, c := range codes {
		alts[i] = regexp.QuoteMeta(c)
	}
	return &Resolver{mentions: regexp.MustCompile(`\b(?:` + strings.Join(alts, "|") + `)\b`)}
}

// FindDepartmentMentions returns the department codes found in text as whole
// words, case-sensitively, in order of first appearance.
func (r *Resolver) FindDepartmentMentions(text string) []string {
	if r.mentions == nil {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	for _, m := range r.mentions.FindAllString(text, -1) {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

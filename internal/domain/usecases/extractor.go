package usecases

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/0xcro3dile/coursechat-go/internal/domain/catalog"
	"github.com/0xcro3dile/coursechat-go/internal/domain/entities"
	"github.com/0xcro3dile/coursechat-go/internal/domain/subject"
)

// Extraction stages, most specific first.
const (
	StageSubjectCodes       = "subject_codes"
	StageCourseCodes        = "course_codes"
	StageCourseIDs          = "course_ids"
	StageSubjectPhrases     = "subject_phrases"
	StageDepartmentMentions = "department_mentions"
	StageTitleSubstring     = "title_substring"
	StageQuotedTitle        = "quoted_title"
)

const (
	minTitleLength = 5
	minTitleRatio  = 0.5
)

var (
	// DEPT NUM with up to three words of department code, e.g. "EL ENG 16A"
	codePairPattern = regexp.MustCompile(`\b([A-Z]{2,}(?:\s+[A-Z]{2,}){0,2})\s+([A-Z]{0,2}\d+[A-Z]{0,3})\b`)
	courseIDPattern = regexp.MustCompile(`Q291cnNlVHlwZTo[A-Za-z0-9+/=]*`)
	quotedPattern   = regexp.MustCompile(`"([^"]+)"|“([^”]+)”`)
)

// Extractor recovers the catalog courses a free-text answer is about.
// It holds no per-call state and is safe for concurrent use.
type Extractor struct {
	catalog  *catalog.Catalog
	resolver *subject.Resolver
}

// NewExtractor builds an extractor over cat.
func NewExtractor(cat *catalog.Catalog) *Extractor {
	return &Extractor{
		catalog:  cat,
		resolver: subject.NewResolver(cat.Departments()),
	}
}

type extraction struct {
	answer   string
	question string
	hint     string
}

type strategy struct {
	stage string
	run   func(e *Extractor, in extraction) []entities.Course
}

var strategies = []strategy{
	{StageSubjectCodes, (*Extractor).subjectCodes},
	{StageCourseCodes, (*Extractor).courseCodes},
	{StageCourseIDs, (*Extractor).courseIDs},
	{StageSubjectPhrases, (*Extractor).subjectPhrases},
	{StageDepartmentMentions, (*Extractor).departmentMentions},
	{StageTitleSubstring, (*Extractor).titleSubstring},
	{StageQuotedTitle, (*Extractor).quotedTitle},
}

// Extract returns up to MaxAnswerCourses distinct courses mentioned by answer.
// subjectHint is the subject detected in the question, or "".
func (e *Extractor) Extract(answer, question, subjectHint string) []entities.Course {
	courses, _ := e.ExtractWithStage(answer, question, subjectHint)
	return courses
}

// ExtractWithStage is Extract that also names the stage that produced the
// result. The stage is "" when nothing was found.
func (e *Extractor) ExtractWithStage(answer, question, subjectHint string) ([]entities.Course, string) {
	in := extraction{answer: answer, question: question, hint: subjectHint}
	for _, s := range strategies {
		if found := distinct(s.run(e, in)); len(found) > 0 {
			return found, s.stage
		}
	}
	return nil, ""
}

// distinct drops repeated ids and caps the result.
func distinct(courses []entities.Course) []entities.Course {
	if len(courses) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(courses))
	out := make([]entities.Course, 0, MaxAnswerCourses)
	for _, c := range courses {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
		if len(out) == MaxAnswerCourses {
			break
		}
	}
	return out
}

type codePair struct {
	dept   string
	number string
}

// departments lists the code itself, then each shorter trailing run of words.
// "RECOMMEND EL ENG" yields "RECOMMEND EL ENG", "EL ENG", "ENG".
func (p codePair) departments() []string {
	words := strings.Fields(p.dept)
	out := make([]string, 0, len(words))
	for i := range words {
		out = append(out, strings.Join(words[i:], " "))
	}
	return out
}

func codePairs(text string) []codePair {
	matches := codePairPattern.FindAllStringSubmatch(text, -1)
	pairs := make([]codePair, 0, len(matches))
	for _, m := range matches {
		pairs = append(pairs, codePair{dept: m[1], number: m[2]})
	}
	return pairs
}

func (e *Extractor) subjectCodes(in extraction) []entities.Course {
	if in.hint == "" {
		return nil
	}
	departments := subject.DepartmentsFor(in.hint)
	if len(departments) == 0 {
		return nil
	}

	var out []entities.Course
	mentioned := false
	for _, pair := range codePairs(in.answer) {
		for _, dept := range pair.departments() {
			if !subject.Contains(in.hint, dept) {
				continue
			}
			mentioned = true
			if c, ok := e.catalog.Lookup(dept, pair.number); ok {
				out = append(out, c)
				break
			}
		}
	}
	if !mentioned {
		return openSeatCourses(e.catalog, departments)
	}
	return out
}

func (e *Extractor) courseCodes(in extraction) []entities.Course {
	var out []entities.Course
	for _, pair := range codePairs(in.answer) {
		for _, dept := range pair.departments() {
			if c, ok := e.catalog.Lookup(dept, pair.number); ok {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

func (e *Extractor) courseIDs(in extraction) []entities.Course {
	var out []entities.Course
	for _, id := range courseIDPattern.FindAllString(in.answer, -1) {
		if c, ok := e.catalog.ByID(id); ok {
			out = append(out, c)
		}
	}
	return out
}

func (e *Extractor) subjectPhrases(in extraction) []entities.Course {
	var out []entities.Course
	for _, name := range subject.SubjectsIn(in.answer) {
		out = append(out, openSeatCourses(e.catalog, subject.DepartmentsFor(name))...)
	}
	if len(out) > 0 {
		return out
	}

	if strings.Contains(strings.ToLower(in.question), subject.Math) ||
		strings.Contains(strings.ToLower(in.answer), subject.Math) {
		return openSeatCourses(e.catalog, subject.DepartmentsFor(subject.Math))
	}
	return nil
}

func (e *Extractor) departmentMentions(in extraction) []entities.Course {
	return openSeatCourses(e.catalog, e.resolver.FindDepartmentMentions(in.answer))
}

func (e *Extractor) titleSubstring(in extraction) []entities.Course {
	var out []entities.Course
	for _, c := range e.catalog.All() {
		if utf8.RuneCountInString(c.Title) < minTitleLength {
			continue
		}
		if strings.Contains(in.answer, c.Title) {
			out = append(out, c)
			if len(out) == MaxAnswerCourses {
				break
			}
		}
	}
	return out
}

func (e *Extractor) quotedTitle(in extraction) []entities.Course {
	var out []entities.Course
	for _, m := range quotedPattern.FindAllStringSubmatch(in.answer, -1) {
		candidate := strings.TrimSpace(m[1] + m[2])
		if utf8.RuneCountInString(candidate) < minTitleLength {
			continue
		}
		if c, ok := e.closestTitle(candidate); ok {
			out = append(out, c)
		}
	}
	return out
}

// closestTitle finds the course whose title best overlaps candidate, by
// len(candidate) / max(len(candidate), len(title)) over titles that contain
// or are contained in candidate. Ties keep the earlier course.
func (e *Extractor) closestTitle(candidate string) (entities.Course, bool) {
	lc := strings.ToLower(candidate)
	n := utf8.RuneCountInString(lc)

	var best entities.Course
	bestRatio := 0.0
	for _, c := range e.catalog.All() {
		lt := strings.ToLower(c.Title)
		m := utf8.RuneCountInString(lt)
		if m < minTitleLength {
			continue
		}
		if !strings.Contains(lt, lc) && !strings.Contains(lc, lt) {
			continue
		}
		ratio := float64(n) / float64(max(n, m))
		if ratio > bestRatio {
			best, bestRatio = c, ratio
		}
	}
	return best, bestRatio > minTitleRatio
}

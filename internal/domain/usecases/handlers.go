package usecases

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/0xcro3dile/coursechat-go/internal/domain/catalog"
	"github.com/0xcro3dile/coursechat-go/internal/domain/entities"
	"github.com/0xcro3dile/coursechat-go/internal/domain/grade"
	"github.com/0xcro3dile/coursechat-go/internal/domain/subject"
)

// Routes reported on answers produced without the oracle.
const (
	RouteMostOpenSeats     = "most_open_seats"
	RouteAverageEnrollment = "average_enrollment"
	RouteGradeThreshold    = "grade_threshold"
	RouteSubjectOpenSeats  = "subject_open_seats"
)

const (
	// MaxAnswerCourses caps the courses attached to any answer.
	MaxAnswerCourses = 5
	// perDepartmentSample caps open-seat listings per department.
	perDepartmentSample = 3
)

// question is what the router knows about a request before dispatch.
type question struct {
	normalized string

	grade    grade.Constraint
	hasGrade bool

	subject    string
	hasSubject bool
}

func newQuestion(raw string) question {
	q := question{normalized: strings.ToLower(strings.TrimSpace(raw))}
	q.grade, q.hasGrade = grade.Parse(q.normalized)
	q.subject, q.hasSubject = subject.Resolve(q.normalized)
	return q
}

// intentHandler answers one question shape straight from the catalog.
type intentHandler struct {
	route  string
	handle func(cat *catalog.Catalog, q question) (entities.Answer, bool)
}

// intents in priority order; the first match answers.
var intents = []intentHandler{
	{RouteMostOpenSeats, mostOpenSeats},
	{RouteAverageEnrollment, averageEnrollment},
	{RouteGradeThreshold, gradeThreshold},
	{RouteSubjectOpenSeats, subjectOpenSeats},
}

var (
	mostOpenSeatsPattern = regexp.MustCompile(`\b(?:most|max|maximum)\b.*\bopen\s+seats?\b`)
	averageEnrolledRe    = regexp.MustCompile(`\baverage\b.*?\benroll(?:ed|ment)\b`)
	departmentCoursesRe  = regexp.MustCompile(`\b([a-z][a-z0-9]*)\s+(?:courses|classes)\b`)
	openSeatsPattern     = regexp.MustCompile(`\b(?:open|available|free)\s+seats?\b`)
)

// words that can precede "courses" without naming a department
var notDepartments = map[string]bool{
	"all": true, "the": true, "any": true, "my": true, "these": true,
	"those": true, "open": true, "available": true, "other": true,
}

func mostOpenSeats(cat *catalog.Catalog, q question) (entities.Answer, bool) {
	if !mostOpenSeatsPattern.MatchString(q.normalized) {
		return entities.Answer{}, false
	}
	best, ok := cat.MostOpenSeats()
	if !ok {
		return entities.Answer{Text: "I don't have open seat data for any course right now."}, true
	}
	return entities.Answer{
		Text:    fmt.Sprintf("%s – %d open seats", best.Code(), *best.OpenSeats),
		Courses: []entities.Course{best},
	}, true
}

func averageEnrollment(cat *catalog.Catalog, q question) (entities.Answer, bool) {
	loc := averageEnrolledRe.FindStringIndex(q.normalized)
	if loc == nil {
		return entities.Answer{}, false
	}

	dept, depts := enrollmentScope(cat, q.normalized[loc[1]:])
	avg, n, ok := cat.AverageEnrollment(depts...)
	switch {
	case !ok && dept != "":
		return entities.Answer{Text: fmt.Sprintf("No enrollment data available for %s courses.", dept)}, true
	case !ok:
		return entities.Answer{Text: "No enrollment data available."}, true
	case dept != "":
		return entities.Answer{Text: fmt.Sprintf(
			"Average enrolled percentage for %s courses: %.2f%% (%s).", dept, avg*100, pluralize(n, "course", "courses"))}, true
	default:
		return entities.Answer{Text: fmt.Sprintf(
			"Average enrolled percentage across all courses: %.2f%% (%s).", avg*100, pluralize(n, "course", "courses"))}, true
	}
}

// enrollmentScope reads the "<word> courses" phrase after the enrollment
// keyword. A word that names no catalog department but sits inside a subject
// phrase ("computer science courses") scopes to that subject's departments.
func enrollmentScope(cat *catalog.Catalog, rest string) (label string, depts []string) {
	m := departmentCoursesRe.FindStringSubmatchIndex(rest)
	if m == nil || notDepartments[rest[m[2]:m[3]]] {
		return "", nil
	}
	dept := strings.ToUpper(rest[m[2]:m[3]])
	if _, _, ok := cat.AverageEnrollment(dept); ok {
		return dept, []string{dept}
	}
	if name, ok := subject.SubjectAt(rest, m[2]); ok {
		if sd := subject.DepartmentsFor(name); len(sd) > 0 {
			if _, _, ok := cat.AverageEnrollment(sd...); ok {
				return name, sd
			}
		}
	}
	return dept, []string{dept}
}

func gradeThreshold(cat *catalog.Catalog, q question) (entities.Answer, bool) {
	if !q.hasGrade {
		return entities.Answer{}, false
	}

	matches := cat.FilterByGrade(q.grade.Value, q.grade.Exact)
	scope := ""
	if q.hasSubject {
		var narrowed []entities.Course
		for _, c := range matches {
			if subject.Contains(q.subject, c.Abbreviation) {
				narrowed = append(narrowed, c)
			}
		}
		if len(narrowed) > 0 {
			matches = narrowed
			scope = q.subject + " "
		}
	}
	if len(matches) > MaxAnswerCourses {
		matches = matches[:MaxAnswerCourses]
	}

	return entities.Answer{Text: gradeSummary(q.grade, scope, matches), Courses: matches}, true
}

func gradeSummary(c grade.Constraint, scope string, courses []entities.Course) string {
	var threshold string
	if c.Exact {
		threshold = fmt.Sprintf("exactly %s %s average", article(c.Label), c.Label)
	} else {
		threshold = fmt.Sprintf("%s %s average or better", article(c.Label), c.Label)
	}

	switch len(courses) {
	case 0:
		return fmt.Sprintf("I couldn't find any %scourses with %s.", scope, threshold)
	case 1:
		return fmt.Sprintf("I found 1 %scourse with %s: %s.", scope, threshold, gradeLine(courses[0]))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "I found %d %scourses with %s:", len(courses), scope, threshold)
	for _, course := range courses {
		sb.WriteString("\n- ")
		sb.WriteString(gradeLine(course))
	}
	return sb.String()
}

func gradeLine(c entities.Course) string {
	return fmt.Sprintf("%s (%s) – %.2f average", c.Title, c.Code(), *c.GradeAverage)
}

// article picks "a" or "an" for a grade label as it is read aloud.
func article(label string) string {
	if strings.HasPrefix(label, "A") || strings.HasPrefix(label, "F") {
		return "an"
	}
	return "a"
}

func subjectOpenSeats(cat *catalog.Catalog, q question) (entities.Answer, bool) {
	if !q.hasSubject || !openSeatsPattern.MatchString(q.normalized) {
		return entities.Answer{}, false
	}

	courses := openSeatCourses(cat, subject.DepartmentsFor(q.subject))
	if len(courses) > MaxAnswerCourses {
		courses = courses[:MaxAnswerCourses]
	}

	switch len(courses) {
	case 0:
		return entities.Answer{Text: fmt.Sprintf("I couldn't find any %s courses with open seats right now.", q.subject)}, true
	case 1:
		return entities.Answer{
			Text:    fmt.Sprintf("Here is 1 %s course with open seats: %s.", q.subject, seatLine(courses[0])),
			Courses: courses,
		}, true
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Here are %d %s courses with open seats:", len(courses), q.subject)
	for _, course := range courses {
		sb.WriteString("\n- ")
		sb.WriteString(seatLine(course))
	}
	return entities.Answer{Text: sb.String(), Courses: courses}, true
}

// openSeatCourses samples open-seat courses from each department in turn.
func openSeatCourses(cat *catalog.Catalog, departments []string) []entities.Course {
	var out []entities.Course
	for _, dept := range departments {
		out = append(out, cat.OpenSeatSample(dept, perDepartmentSample)...)
	}
	return out
}

func seatLine(c entities.Course) string {
	return fmt.Sprintf("%s: %s (%s)", c.Code(), c.Title, pluralize(*c.OpenSeats, "open seat", "open seats"))
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}

// Package catalog holds the read-only set of course records every handler
// consults. A Catalog is built once and never mutated, so it is safe to share
// between concurrent requests; reloading means building a new one.
package catalog

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/0xcro3dile/coursechat-go/internal/domain/entities"
	"github.com/0xcro3dile/coursechat-go/internal/pkg/apperrors"
)

const (
	// GradeTolerance is how far from the target an "exactly" match may be.
	GradeTolerance = 0.05
	// MaxGradeResults caps FilterByGrade before any downstream capping.
	MaxGradeResults = 10

	// absorbs float noise such as 3.75-3.7 = 0.05000000000000027
	toleranceSlack = 1e-9
)

// Catalog is an immutable, indexed list of courses.
type Catalog struct {
	courses     []entities.Course
	byID        map[string]int
	byCode      map[string]int
	departments []string
}

// New indexes courses. Order is preserved; it breaks ties everywhere.
func New(courses []entities.Course) (*Catalog, error) {
	c := &Catalog{
		courses: make([]entities.Course, len(courses)),
		byID:    make(map[string]int, len(courses)),
		byCode:  make(map[string]int, len(courses)),
	}
	copy(c.courses, courses)

	seenDept := make(map[string]bool)
	for i, course := range c.courses {
		if _, dup := c.byID[course.ID]; dup {
			return nil, fmt.Errorf("%w: %q", apperrors.ErrDuplicateCourseID, course.ID)
		}
		c.byID[course.ID] = i

		key := codeKey(course.Abbreviation, course.CourseNumber)
		if _, ok := c.byCode[key]; !ok {
			c.byCode[key] = i
		}

		if course.Abbreviation != "" && !seenDept[course.Abbreviation] {
			seenDept[course.Abbreviation] = true
			c.departments = append(c.departments, course.Abbreviation)
		}
	}
	return c, nil
}

func codeKey(dept, number string) string {
	return strings.ToUpper(strings.TrimSpace(dept)) + "|" + strings.ToUpper(strings.TrimSpace(number))
}

// Len returns the number of courses.
func (c *Catalog) Len() int { return len(c.courses) }

// All returns a copy of every course in catalog order.
func (c *Catalog) All() []entities.Course {
	return append([]entities.Course(nil), c.courses...)
}

// ByID returns the course with the given opaque id.
func (c *Catalog) ByID(id string) (entities.Course, bool) {
	i, ok := c.byID[id]
	if !ok {
		return entities.Course{}, false
	}
	return c.courses[i], true
}

// Lookup finds a course by department code and number, case-insensitively.
func (c *Catalog) Lookup(dept, number string) (entities.Course, bool) {
	i, ok := c.byCode[codeKey(dept, number)]
	if !ok {
		return entities.Course{}, false
	}
	return c.courses[i], true
}

// Departments lists distinct department codes in catalog order.
func (c *Catalog) Departments() []string {
	return append([]string(nil), c.departments...)
}

// ByDepartment returns every course of dept in catalog order.
func (c *Catalog) ByDepartment(dept string) []entities.Course {
	var out []entities.Course
	for _, course := range c.courses {
		if strings.EqualFold(course.Abbreviation, dept) {
			out = append(out, course)
		}
	}
	return out
}

// MostOpenSeats returns the course with the most open seats. Courses without
// seat data are ignored; the first of equal maxima wins.
func (c *Catalog) MostOpenSeats() (entities.Course, bool) {
	best := -1
	for i, course := range c.courses {
		if course.OpenSeats == nil {
			continue
		}
		if best < 0 || *course.OpenSeats > *c.courses[best].OpenSeats {
			best = i
		}
	}
	if best < 0 {
		return entities.Course{}, false
	}
	return c.courses[best], true
}

// OpenSeatSample returns up to n courses of dept that have open seats.
func (c *Catalog) OpenSeatSample(dept string, n int) []entities.Course {
	var out []entities.Course
	for _, course := range c.courses {
		if len(out) >= n {
			break
		}
		if strings.EqualFold(course.Abbreviation, dept) && course.HasOpenSeats() {
			out = append(out, course)
		}
	}
	return out
}

// AverageEnrollment returns the mean enrolled fraction of the courses in
// depts, or of the whole catalog when no department is given. ok is false
// for an empty subset.
func (c *Catalog) AverageEnrollment(depts ...string) (avg float64, count int, ok bool) {
	var filter []string
	for _, d := range depts {
		if d != "" {
			filter = append(filter, d)
		}
	}

	var sum float64
	for _, course := range c.courses {
		if len(filter) > 0 && !containsFold(filter, course.Abbreviation) {
			continue
		}
		sum += course.EnrolledPercentage
		count++
	}
	if count == 0 {
		return 0, 0, false
	}
	return sum / float64(count), count, true
}

// FilterByGrade returns courses meeting a grade threshold. Courses without
// grade data never qualify. In exact mode results lie within GradeTolerance
// of value, closest first; otherwise they are at or above value, best first.
// At most MaxGradeResults are returned.
func (c *Catalog) FilterByGrade(value float64, exact bool) []entities.Course {
	var out []entities.Course
	for _, course := range c.courses {
		if course.GradeAverage == nil {
			continue
		}
		g := *course.GradeAverage
		if exact {
			if math.Abs(g-value) <= GradeTolerance+toleranceSlack {
				out = append(out, course)
			}
		} else if g >= value {
			out = append(out, course)
		}
	}

	if exact {
		sort.SliceStable(out, func(i, j int) bool {
			return math.Abs(*out[i].GradeAverage-value) < math.Abs(*out[j].GradeAverage-value)
		})
	} else {
		sort.SliceStable(out, func(i, j int) bool {
			return *out[i].GradeAverage > *out[j].GradeAverage
		})
	}

	if len(out) > MaxGradeResults {
		out = out[:MaxGradeResults]
	}
	return out
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

package usecases

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/coursechat-go/internal/domain/catalog"
	"github.com/0xcro3dile/coursechat-go/internal/domain/entities"
)

func extractorCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]entities.Course{
		{ID: "1", Abbreviation: "COMPSCI", CourseNumber: "61A", Title: "Structure and Interpretation of Computer Programs", OpenSeats: seats(40)},
		{ID: "2", Abbreviation: "MATH", CourseNumber: "1A", Title: "Calculus", OpenSeats: seats(5)},
		{ID: "3", Abbreviation: "STAT", CourseNumber: "20", Title: "Introduction to Probability and Statistics", OpenSeats: seats(0)},
		{ID: "4", Abbreviation: "EL ENG", CourseNumber: "16A", Title: "Designing Information Devices and Systems I", OpenSeats: seats(10)},
		{ID: "Q291cnNlVHlwZTo2NjA1", Abbreviation: "ASTRON", CourseNumber: "7A", Title: "Introduction to the Solar System", OpenSeats: seats(3)},
		{ID: "7", Abbreviation: "ASTRON", CourseNumber: "10", Title: "Introduction to General Astronomy", OpenSeats: seats(0)},
		{ID: "8", Abbreviation: "PHYSICS", CourseNumber: "7A", Title: "Physics for Scientists and Engineers"},
	})
	require.NoError(t, err)
	return c
}

func ids(courses []entities.Course) []string {
	out := make([]string, 0, len(courses))
	for _, c := range courses {
		out = append(out, c.ID)
	}
	return out
}

func TestExtract_Stages(t *testing.T) {
	e := NewExtractor(extractorCatalog(t))

	tests := []struct {
		name     string
		answer   string
		question string
		hint     string
		wantIDs  []string
		stage    string
	}{
		{"subject scoped codes", "MATH 1A and COMPSCI 61A are both good.", "", "math", []string{"2"}, StageSubjectCodes},
		{"subject hint without matching codes", "COMPSCI 61A is great.", "", "math", []string{"2"}, StageSubjectCodes},
		{"course code", "Try COMPSCI 61A, a great intro course.", "", "", []string{"1"}, StageCourseCodes},
		{"multi-word department", "Take EL ENG 16A next.", "", "", []string{"4"}, StageCourseCodes},
		{"shouted prefix is dropped", "I RECOMMEND COMPSCI 61A", "", "", []string{"1"}, StageCourseCodes},
		{"opaque id", "See Q291cnNlVHlwZTo2NjA1 for details.", "", "", []string{"Q291cnNlVHlwZTo2NjA1"}, StageCourseIDs},
		{"subject phrase", "Lots of calculus options exist.", "", "", []string{"2"}, StageSubjectPhrases},
		{"math carve-out from question", "Sure, there are a few.", "any math classes?", "", []string{"2"}, StageSubjectPhrases},
		{"department mention", "ASTRON has openings.", "", "", []string{"Q291cnNlVHlwZTo2NjA1"}, StageDepartmentMentions},
		{"title substring", "Introduction to General Astronomy is popular.", "", "", []string{"7"}, StageTitleSubstring},
		{"quoted title", `Look for "to the Solar System" in the listings.`, "", "", []string{"Q291cnNlVHlwZTo2NjA1"}, StageQuotedTitle},
		{"curly quoted title", "Look for “to the Solar System” in the listings.", "", "", []string{"Q291cnNlVHlwZTo2NjA1"}, StageQuotedTitle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, stage := e.ExtractWithStage(tt.answer, tt.question, tt.hint)
			assert.Equal(t, tt.wantIDs, ids(got))
			assert.Equal(t, tt.stage, stage)
		})
	}
}

func TestExtract_NothingFound(t *testing.T) {
	e := NewExtractor(extractorCatalog(t))

	got, stage := e.ExtractWithStage("I'm not sure, sorry.", "what should I take?", "")
	assert.Empty(t, got)
	assert.Equal(t, "", stage)
}

func TestExtract_QuotedTitleNeedsMajorityOverlap(t *testing.T) {
	e := NewExtractor(extractorCatalog(t))

	// 16 of 32 characters is exactly half, which is not enough
	assert.Empty(t, e.Extract(`Look for "the Solar System".`, "", ""))
	assert.Empty(t, e.Extract(`Look for "Solar".`, "", ""))
	assert.Empty(t, e.Extract(`Look for "Sol".`, "", ""))
}

func TestExtract_ExactCodeBeatsQuotedTitle(t *testing.T) {
	e := NewExtractor(extractorCatalog(t))

	got, stage := e.ExtractWithStage(`Consider COMPSCI 61A or "to the Solar System".`, "", "")
	assert.Equal(t, []string{"1"}, ids(got))
	assert.Equal(t, StageCourseCodes, stage)
}

func TestExtract_DepartmentMentionsAreWholeWords(t *testing.T) {
	e := NewExtractor(extractorCatalog(t))
	assert.Empty(t, e.Extract("ASTRONOMY is fun.", "", ""))
}

func TestExtract_CapsAndDeduplicates(t *testing.T) {
	courses := make([]entities.Course, 0, 12)
	for i := 1; i <= 12; i++ {
		courses = append(courses, entities.Course{
			ID: fmt.Sprintf("cs%d", i), Abbreviation: "COMPSCI", CourseNumber: fmt.Sprint(i),
			Title: fmt.Sprintf("Topics in Computing %d", i), OpenSeats: seats(i),
		})
	}
	cat, err := catalog.New(courses)
	require.NoError(t, err)
	e := NewExtractor(cat)

	got := e.Extract("COMPSCI 1, COMPSCI 1, COMPSCI 2, COMPSCI 3, COMPSCI 4, COMPSCI 5, COMPSCI 6", "", "")
	assert.Equal(t, []string{"cs1", "cs2", "cs3", "cs4", "cs5"}, ids(got))
}

func TestExtract_NeverExceedsCapOrRepeats(t *testing.T) {
	e := NewExtractor(extractorCatalog(t))
	fragments := []string{
		"COMPSCI 61A", "MATH 1A", "EL ENG 16A", "ASTRON 7A", "ASTRON", "Q291cnNlVHlwZTo2NjA1",
		"calculus", "statistics", "\"Calculus\"", "Introduction to General Astronomy",
		"physics", "engineering", "nothing here", "PHYSICS 7A", "STAT 20",
	}
	hints := []string{"", "math", "computer science", "engineering", "physics"}

	r := rand.New(rand.NewSource(7))
	for round := 0; round < 200; round++ {
		parts := make([]string, 1+r.Intn(8))
		for i := range parts {
			parts[i] = fragments[r.Intn(len(fragments))]
		}
		answer := strings.Join(parts, " and ")
		got := e.Extract(answer, "", hints[r.Intn(len(hints))])

		assert.LessOrEqual(t, len(got), MaxAnswerCourses, answer)
		seen := map[string]bool{}
		for _, c := range got {
			assert.False(t, seen[c.ID], "duplicate %s in %q", c.ID, answer)
			seen[c.ID] = true
		}
	}
}

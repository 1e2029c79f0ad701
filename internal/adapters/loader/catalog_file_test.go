package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/coursechat-go/internal/domain/entities"
	"github.com/0xcro3dile/coursechat-go/internal/pkg/apperrors"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "courses.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCatalogFile_LoadEdgeWrapped(t *testing.T) {
	path := writeFile(t, `[
		{"node": {"id": "Q291cnNlVHlwZTox", "abbreviation": "COMPSCI", "courseNumber": "61A",
		          "title": "Structure and Interpretation of Computer Programs",
		          "openSeats": 40, "enrolledPercentage": 0.8, "gradeAverage": -1}},
		{"node": {"id": "Q291cnNlVHlwZToy", "abbreviation": "MATH", "courseNumber": "1A",
		          "title": "Calculus", "openSeats": -1, "enrolledPercentage": 0.95, "letterAverage": "A-"}}
	]`)

	courses, err := NewCatalogFile().Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, courses, 2)

	assert.Equal(t, "COMPSCI 61A", courses[0].Code())
	require.NotNil(t, courses[0].OpenSeats)
	assert.Equal(t, 40, *courses[0].OpenSeats)
	assert.Nil(t, courses[0].GradeAverage)
	assert.Nil(t, courses[1].OpenSeats)
	require.NotNil(t, courses[1].LetterAverage)
	assert.Equal(t, "A-", *courses[1].LetterAverage)
}

func TestCatalogFile_LoadBareRecords(t *testing.T) {
	path := writeFile(t, `[{"id": "1", "abbreviation": "STAT", "courseNumber": "20", "title": "Probability"}]`)

	courses, err := NewCatalogFile().Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "STAT", courses[0].Abbreviation)
}

func TestCatalogFile_LoadErrors(t *testing.T) {
	ctx := context.Background()
	store := NewCatalogFile()

	_, err := store.Load(ctx, filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = store.Load(ctx, writeFile(t, `[]`))
	assert.ErrorIs(t, err, apperrors.ErrCatalogEmpty)

	_, err = store.Load(ctx, writeFile(t, `{"id": "1"}`))
	assert.Error(t, err)

	_, err = store.Load(ctx, writeFile(t, `[{"abbreviation": "MATH"}]`))
	assert.ErrorContains(t, err, "missing id")

	_, err = store.Load(ctx, writeFile(t, `[{"id": "1", "enrolledPercentage": "most"}]`))
	assert.ErrorContains(t, err, "record 0")

	_, err = store.Load(ctx, writeFile(t, `not json`))
	assert.Error(t, err)
}

func TestCatalogFile_LoadKeepsRecordsWithUnparsableOptionals(t *testing.T) {
	courses, err := NewCatalogFile().Load(context.Background(), writeFile(t,
		`[{"id": "1", "abbreviation": "MATH", "courseNumber": "1A", "openSeats": "N/A", "gradeAverage": "N/A"}]`))
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Nil(t, courses[0].OpenSeats)
	assert.Nil(t, courses[0].GradeAverage)
}

func TestCatalogFile_SaveThenLoad(t *testing.T) {
	ctx := context.Background()
	store := NewCatalogFile()
	path := filepath.Join(t.TempDir(), "data", "courses.json")

	seats := 12
	in := []entities.Course{
		{ID: "1", Abbreviation: "EL ENG", CourseNumber: "16A", Title: "Designing Information Devices and Systems I", OpenSeats: &seats, EnrolledPercentage: 0.7},
	}
	require.NoError(t, store.Save(ctx, path, in))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"node"`)

	out, err := store.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestCatalogFile_RespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCatalogFile().Load(ctx, writeFile(t, `[{"id": "1"}]`))
	assert.ErrorIs(t, err, context.Canceled)
}

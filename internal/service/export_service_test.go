package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillsphere/skillsphere-api/internal/models"
	appErrors "github.com/skillsphere/skillsphere-api/pkg/errors"
)

type mockExportCourses struct {
	details    []models.CourseDetail
	err        error
	lastFilter models.CourseFilter
}

func (m *mockExportCourses) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, 0, m.err
	}
	return m.details, len(m.details), nil
}

func newExportService(courses *mockExportCourses) *ExportService {
	svc := NewExportService(courses, nil, nil, nil)
	svc.now = func() time.Time {
		return time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	}
	return svc
}

func TestExportReviewQueueCSV(t *testing.T) {
	category := "Programming"
	courses := &mockExportCourses{details: []models.CourseDetail{
		{
			Course: models.Course{
				Title:     "Go Basics",
				Status:    models.CourseStatusPending,
				Price:     49.99,
				UpdatedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			},
			InstructorName: "Ada Price",
			CategoryName:   &category,
			LessonCount:    7,
		},
	}}
	svc := newExportService(courses)

	file, err := svc.ReviewQueue(context.Background(), adminActor(), ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "review-queue-20250314-093000.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	body := string(file.Payload)
	assert.True(t, strings.HasPrefix(body, "Course,Instructor,Category,Price,Lessons,Submitted"))
	assert.Contains(t, body, "Go Basics,Ada Price,Programming,49.99,7,2025-03-01")

	assert.Equal(t, []models.CourseStatus{models.CourseStatusPending}, courses.lastFilter.Statuses)
	assert.Equal(t, "asc", courses.lastFilter.SortOrder)
}

func TestExportReviewQueueRequiresAdmin(t *testing.T) {
	svc := newExportService(&mockExportCourses{})

	_, err := svc.ReviewQueue(context.Background(), instructorActor("ins1"), ExportFormatCSV)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestExportInstructorCoursesScopesToActor(t *testing.T) {
	courses := &mockExportCourses{details: []models.CourseDetail{
		{
			Course: models.Course{
				Title:     "Free Intro",
				Status:    models.CourseStatusApproved,
				CreatedAt: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
			},
			LessonCount:     3,
			EnrollmentCount: 42,
		},
	}}
	svc := newExportService(courses)

	file, err := svc.InstructorCourses(context.Background(), instructorActor("ins1"), ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "ins1", courses.lastFilter.InstructorID)
	assert.Len(t, courses.lastFilter.Statuses, 4)

	body := string(file.Payload)
	assert.Contains(t, body, "Free Intro,APPROVED,Free,3,42,2025-01-10")
}

func TestExportInstructorCoursesRequiresInstructor(t *testing.T) {
	svc := newExportService(&mockExportCourses{})

	_, err := svc.InstructorCourses(context.Background(), learnerActor("l1"), ExportFormatCSV)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestExportPDFFormat(t *testing.T) {
	svc := newExportService(&mockExportCourses{})

	file, err := svc.ReviewQueue(context.Background(), adminActor(), ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "review-queue-20250314-093000.pdf", file.Filename)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Payload), "%PDF"))
}

func TestExportUnknownFormat(t *testing.T) {
	svc := newExportService(&mockExportCourses{})

	_, err := svc.ReviewQueue(context.Background(), adminActor(), ExportFormat("xlsx"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportStoreFailure(t *testing.T) {
	svc := newExportService(&mockExportCourses{err: sql.ErrConnDone})

	_, err := svc.ReviewQueue(context.Background(), adminActor(), ExportFormatCSV)
	require.Error(t, err)
	assert.True(t, appErrors.Retryable(err))
}

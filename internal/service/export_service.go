package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/skillsphere/skillsphere-api/internal/models"
	appErrors "github.com/skillsphere/skillsphere-api/pkg/errors"
	"github.com/skillsphere/skillsphere-api/pkg/export"
)

// ExportFormat selects the rendered output type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type exportCourseLister interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
}

// ExportFile is a rendered document ready to stream to the client.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders admin and instructor reports as downloadable files.
type ExportService struct {
	courses exportCourseLister
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(courses exportCourseLister, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{courses: courses, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// ReviewQueue exports all courses awaiting review. Admin only.
func (s *ExportService) ReviewQueue(ctx context.Context, actor models.Actor, format ExportFormat) (*ExportFile, error) {
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins may export the review queue")
	}

	courses, _, err := s.courses.List(ctx, models.CourseFilter{
		Statuses:  []models.CourseStatus{models.CourseStatusPending},
		Page:      1,
		PageSize:  1000,
		SortBy:    "created_at",
		SortOrder: "asc",
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load review queue")
	}

	dataset := export.Dataset{
		Headers: []string{"Course", "Instructor", "Category", "Price", "Lessons", "Submitted"},
	}
	for _, course := range courses {
		category := ""
		if course.CategoryName != nil {
			category = *course.CategoryName
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Course":     course.Title,
			"Instructor": course.InstructorName,
			"Category":   category,
			"Price":      formatPrice(course.Price),
			"Lessons":    strconv.Itoa(course.LessonCount),
			"Submitted":  course.UpdatedAt.Format("2006-01-02"),
		})
	}

	return s.render(dataset, "Review Queue", "review-queue", format)
}

// InstructorCourses exports the actor's own courses with enrollment counts.
func (s *ExportService) InstructorCourses(ctx context.Context, actor models.Actor, format ExportFormat) (*ExportFile, error) {
	if actor.Role != models.RoleInstructor {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only instructors may export their course report")
	}

	courses, _, err := s.courses.List(ctx, models.CourseFilter{
		InstructorID: actor.ID,
		Statuses: []models.CourseStatus{
			models.CourseStatusDraft,
			models.CourseStatusPending,
			models.CourseStatusApproved,
			models.CourseStatusRejected,
		},
		Page:      1,
		PageSize:  1000,
		SortBy:    "created_at",
		SortOrder: "desc",
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load instructor courses")
	}

	dataset := export.Dataset{
		Headers: []string{"Course", "Status", "Price", "Lessons", "Enrollments", "Created"},
	}
	for _, course := range courses {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Course":      course.Title,
			"Status":      string(course.Status),
			"Price":       formatPrice(course.Price),
			"Lessons":     strconv.Itoa(course.LessonCount),
			"Enrollments": strconv.Itoa(course.EnrollmentCount),
			"Created":     course.CreatedAt.Format("2006-01-02"),
		})
	}

	return s.render(dataset, "Course Report", "course-report", format)
}

func (s *ExportService) render(dataset export.Dataset, title, stem string, format ExportFormat) (*ExportFile, error) {
	timestamp := s.now().UTC().Format("20060102-150405")
	switch format {
	case ExportFormatCSV:
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("%s-%s.csv", stem, timestamp),
			ContentType: "text/csv",
			Payload:     payload,
		}, nil
	case ExportFormatPDF:
		payload, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("%s-%s.pdf", stem, timestamp),
			ContentType: "application/pdf",
			Payload:     payload,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func formatPrice(price float64) string {
	if price == 0 {
		return "Free"
	}
	return strconv.FormatFloat(price, 'f', 2, 64)
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/skillsphere/skillsphere-api/internal/models"
)

// ErrDuplicateEnrollment is returned when the (learner, course) pair already
// exists. The unique constraint makes concurrent double-enrolls lose cleanly.
var ErrDuplicateEnrollment = errors.New("enrollment already exists for learner and course")

const pqUniqueViolation = "23505"

// EnrollmentRepository handles persistence of enrollments and progress.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentDetailQuery = `SELECT e.id, e.learner_id, e.course_id, e.progress, e.enrolled_at, e.updated_at,
        c.title AS course_title, c.status AS course_status, c.thumbnail_url, c.price,
        u.full_name AS instructor_name
        FROM enrollments e
        JOIN courses c ON c.id = e.course_id
        JOIN users u ON u.id = c.instructor_id`

// List returns enrollment details filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.LearnerID != "" {
		conditions = append(conditions, fmt.Sprintf("e.learner_id = $%d", len(args)+1))
		args = append(args, filter.LearnerID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("e.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Completed != nil {
		if *filter.Completed {
			conditions = append(conditions, "e.progress = 100")
		} else {
			conditions = append(conditions, "e.progress < 100")
		}
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"enrolled_at": "e.enrolled_at",
		"progress":    "e.progress",
		"updated_at":  "e.updated_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "e.enrolled_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("%s%s ORDER BY %s %s LIMIT %d OFFSET %d", enrollmentDetailQuery, clause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM enrollments e%s`, clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, learner_id, course_id, progress, enrolled_at, updated_at FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindByPair returns the enrollment for a (learner, course) pair.
func (r *EnrollmentRepository) FindByPair(ctx context.Context, learnerID, courseID string) (*models.Enrollment, error) {
	const query = `SELECT id, learner_id, course_id, progress, enrolled_at, updated_at FROM enrollments WHERE learner_id = $1 AND course_id = $2`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, learnerID, courseID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Exists checks whether the learner is already enrolled in the course.
func (r *EnrollmentRepository) Exists(ctx context.Context, learnerID, courseID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE learner_id = $1 AND course_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, learnerID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// Create persists a new enrollment. The (learner_id, course_id) unique
// constraint is the authority on duplicates; a violation is reported as
// ErrDuplicateEnrollment so concurrent enrolls for the same pair cannot both
// succeed.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	now := time.Now().UTC()
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = now
	}
	enrollment.UpdatedAt = now
	const query = `INSERT INTO enrollments (id, learner_id, course_id, progress, enrolled_at, updated_at)
        VALUES (:id, :learner_id, :course_id, :progress, :enrolled_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ErrDuplicateEnrollment
		}
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdateProgress stores a new progress value for an enrollment.
func (r *EnrollmentRepository) UpdateProgress(ctx context.Context, id string, progress int) error {
	const query = `UPDATE enrollments SET progress = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, progress, time.Now().UTC()); err != nil {
		return fmt.Errorf("update enrollment progress: %w", err)
	}
	return nil
}

// CountForLearner returns total and completed enrollment counts.
func (r *EnrollmentRepository) CountForLearner(ctx context.Context, learnerID string) (total, completed int, err error) {
	const query = `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE progress = 100) AS completed FROM enrollments WHERE learner_id = $1`
	row := struct {
		Total     int `db:"total"`
		Completed int `db:"completed"`
	}{}
	if err := r.db.GetContext(ctx, &row, query, learnerID); err != nil {
		return 0, 0, fmt.Errorf("count learner enrollments: %w", err)
	}
	return row.Total, row.Completed, nil
}

package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/skillsphere/skillsphere-api/internal/models"
)

// CourseRepository handles persistence of courses and their lifecycle audit
// trail.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseDetailColumns = `c.id, c.instructor_id, c.category_id, c.title, c.description, c.syllabus, c.price,
        c.thumbnail_url, c.status, c.admin_comment, c.created_at, c.updated_at,
        u.full_name AS instructor_name, cat.name AS category_name,
        (SELECT COUNT(*) FROM lessons l WHERE l.course_id = c.id) AS lesson_count,
        (SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id) AS enrollment_count`

const courseDetailJoins = `FROM courses c
JOIN users u ON u.id = c.instructor_id
LEFT JOIN categories cat ON cat.id = c.category_id`

// List returns course details filtered by the provided criteria.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.InstructorID != "" {
		conditions = append(conditions, fmt.Sprintf("c.instructor_id = $%d", len(args)+1))
		args = append(args, filter.InstructorID)
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, status)
		}
		conditions = append(conditions, fmt.Sprintf("c.status IN (%s)", strings.Join(placeholders, ", ")))
	}
	if len(filter.CategoryIDs) > 0 {
		placeholders := make([]string, len(filter.CategoryIDs))
		for i, id := range filter.CategoryIDs {
			placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, id)
		}
		conditions = append(conditions, fmt.Sprintf("c.category_id IN (%s)", strings.Join(placeholders, ", ")))
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(c.title) LIKE $%d OR LOWER(c.description) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.IsFree != nil {
		if *filter.IsFree {
			conditions = append(conditions, "c.price = 0")
		} else {
			conditions = append(conditions, "c.price > 0")
		}
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at": "c.created_at",
		"price":      "c.price",
		"title":      "c.title",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "c.created_at"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s, c.id %s LIMIT %d OFFSET %d",
		courseDetailColumns, courseDetailJoins+clause, orderBy, order, order, size, offset)

	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", courseDetailJoins+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindByID returns a course by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, instructor_id, category_id, title, description, syllabus, price, thumbnail_url, status, admin_comment, created_at, updated_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindDetailByID returns a course with instructor and category info.
func (r *CourseRepository) FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE c.id = $1", courseDetailColumns, courseDetailJoins)
	var detail models.CourseDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create persists a new course record.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	now := time.Now().UTC()
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	if course.Status == "" {
		course.Status = models.CourseStatusDraft
	}
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, instructor_id, category_id, title, description, syllabus, price, thumbnail_url, status, admin_comment, created_at, updated_at)
        VALUES (:id, :instructor_id, :category_id, :title, :description, :syllabus, :price, :thumbnail_url, :status, :admin_comment, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// UpdateContent applies content field edits without touching status.
func (r *CourseRepository) UpdateContent(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET category_id = :category_id, title = :title, description = :description,
        syllabus = :syllabus, price = :price, thumbnail_url = :thumbnail_url, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course content: %w", err)
	}
	return nil
}

// UpdateStatus moves a course between lifecycle states under a compare-and-set
// discipline: the update only applies while the stored status still equals
// from. It returns false when the course was not in the expected state, which
// callers must treat as a lost race.
func (r *CourseRepository) UpdateStatus(ctx context.Context, id string, from, to models.CourseStatus, adminComment string) (bool, error) {
	const query = `UPDATE courses SET status = $3, admin_comment = $4, updated_at = $5 WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, id, from, to, adminComment, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("update course status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update course status: %w", err)
	}
	return affected == 1, nil
}

// DeleteDraft removes a course only while it is still in DRAFT. Returns false
// when no row matched.
func (r *CourseRepository) DeleteDraft(ctx context.Context, id string) (bool, error) {
	const query = `DELETE FROM courses WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, id, models.CourseStatusDraft)
	if err != nil {
		return false, fmt.Errorf("delete draft course: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete draft course: %w", err)
	}
	return affected == 1, nil
}

// CountByStatusForInstructor groups an instructor's courses by status.
func (r *CourseRepository) CountByStatusForInstructor(ctx context.Context, instructorID string) (models.CourseStatusCounts, error) {
	const query = `SELECT COUNT(*) AS total,
        COUNT(*) FILTER (WHERE status = 'DRAFT') AS draft,
        COUNT(*) FILTER (WHERE status = 'PENDING') AS pending,
        COUNT(*) FILTER (WHERE status = 'APPROVED') AS approved,
        COUNT(*) FILTER (WHERE status = 'REJECTED') AS rejected
        FROM courses WHERE instructor_id = $1`
	var counts models.CourseStatusCounts
	if err := r.db.GetContext(ctx, &counts, query, instructorID); err != nil {
		return counts, fmt.Errorf("count instructor courses: %w", err)
	}
	return counts, nil
}

// CountByStatus groups all courses by status for the admin dashboard.
func (r *CourseRepository) CountByStatus(ctx context.Context) (models.CourseStatusCounts, error) {
	const query = `SELECT COUNT(*) AS total,
        COUNT(*) FILTER (WHERE status = 'DRAFT') AS draft,
        COUNT(*) FILTER (WHERE status = 'PENDING') AS pending,
        COUNT(*) FILTER (WHERE status = 'APPROVED') AS approved,
        COUNT(*) FILTER (WHERE status = 'REJECTED') AS rejected
        FROM courses`
	var counts models.CourseStatusCounts
	if err := r.db.GetContext(ctx, &counts, query); err != nil {
		return counts, fmt.Errorf("count courses by status: %w", err)
	}
	return counts, nil
}

// CountDistinctInstructors returns the number of instructors with at least one
// course.
func (r *CourseRepository) CountDistinctInstructors(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(DISTINCT instructor_id) FROM courses`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count distinct instructors: %w", err)
	}
	return count, nil
}

// CreateTransition appends a lifecycle audit record.
func (r *CourseRepository) CreateTransition(ctx context.Context, transition *models.StatusTransition) error {
	if transition.ID == "" {
		transition.ID = uuid.NewString()
	}
	if transition.CreatedAt.IsZero() {
		transition.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO course_status_transitions (id, course_id, actor_id, from_status, to_status, comment, created_at)
        VALUES (:id, :course_id, :actor_id, :from_status, :to_status, :comment, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, transition); err != nil {
		return fmt.Errorf("create status transition: %w", err)
	}
	return nil
}

// ListTransitions returns the lifecycle history for a course, oldest first.
func (r *CourseRepository) ListTransitions(ctx context.Context, courseID string) ([]models.StatusTransition, error) {
	const query = `SELECT id, course_id, actor_id, from_status, to_status, comment, created_at
        FROM course_status_transitions WHERE course_id = $1 ORDER BY created_at ASC, id ASC`
	var transitions []models.StatusTransition
	if err := r.db.SelectContext(ctx, &transitions, query, courseID); err != nil {
		return nil, fmt.Errorf("list status transitions: %w", err)
	}
	return transitions, nil
}

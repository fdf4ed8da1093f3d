package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/coursehub/internal/app/models"
	"github.com/yigit/coursehub/internal/db"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
	"github.com/yigit/coursehub/internal/pkg/dberrors"
	"github.com/yigit/coursehub/internal/pkg/helpers"
	"github.com/yigit/coursehub/internal/pkg/logger"
)

var courseColumns = []string{"id", "subject", "number", "title", "term", "instructor_id"}

// ICourseRepository defines the interface for course database operations
type ICourseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	GetByID(ctx context.Context, id int64) (*models.Course, error)
	List(ctx context.Context, filter models.CourseFilter, page helpers.PageRequest) ([]models.Course, int64, error)
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id int64) ([]string, error)
}

// CourseRepository handles course database operations
type CourseRepository struct {
	db *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewCourseRepository creates a new CourseRepository
func NewCourseRepository(database *db.PostgresDB) *CourseRepository {
	return &CourseRepository{
		db: database,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanCourse(row pgx.Row) (*models.Course, error) {
	var c models.Course
	if err := row.Scan(&c.ID, &c.Subject, &c.Number, &c.Title, &c.Term, &c.InstructorID); err != nil {
		return nil, err
	}
	return &c, nil
}

// instructorError maps a dangling instructor reference to invalid input.
func instructorError(err error) error {
	if dberrors.IsForeignKeyViolation(err) {
		return apperrors.NewValidationError("instructorId", "instructor does not exist")
	}
	return err
}

// Create inserts course and fills in its id.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	sql, args, err := r.sb.Insert("courses").
		Columns("subject", "number", "title", "term", "instructor_id").
		Values(course.Subject, course.Number, course.Title, course.Term, course.InstructorID).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create course query: %w", err)
	}

	err = r.db.WithTransaction(ctx, db.ReadCommitted, func(ctx context.Context, tx pgx.Tx) error {
		return tx.QueryRow(ctx, sql, args...).Scan(&course.ID)
	})
	if err != nil {
		return instructorError(err)
	}

	logger.FromContext(ctx).Info().Int64("courseID", course.ID).Int64("instructorID", course.InstructorID).Msg("Course created")
	return nil
}

// GetByID retrieves a course by ID
func (r *CourseRepository) GetByID(ctx context.Context, id int64) (*models.Course, error) {
	sql, args, err := r.sb.Select(courseColumns...).From("courses").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get course query: %w", err)
	}

	var course *models.Course
	err = r.db.WithRetry(ctx, func(ctx context.Context, q db.Querier) error {
		var err error
		course, err = scanCourse(q.QueryRow(ctx, sql, args...))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCourseNotFound
		}
		return nil, err
	}
	return course, nil
}

// applyCourseFilter restricts a query to the allow-listed filters that are set.
func applyCourseFilter(b squirrel.SelectBuilder, f models.CourseFilter) squirrel.SelectBuilder {
	if f.Subject != "" {
		b = b.Where(squirrel.Eq{"subject": f.Subject})
	}
	if f.Number != "" {
		b = b.Where(squirrel.Eq{"number": f.Number})
	}
	if f.Term != "" {
		b = b.Where(squirrel.Eq{"term": f.Term})
	}
	return b
}

// List returns one page of courses matching filter ordered by id, and the
// total number of matching courses.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter, page helpers.PageRequest) ([]models.Course, int64, error) {
	countSQL, countArgs, err := applyCourseFilter(r.sb.Select("count(*)").From("courses"), filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build course count query: %w", err)
	}

	listSQL, listArgs, err := applyCourseFilter(r.sb.Select(courseColumns...).From("courses"), filter).
		OrderBy("id ASC").
		Limit(page.Limit()).
		Offset(page.Offset()).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build course list query: %w", err)
	}

	var (
		total   int64
		courses []models.Course
	)
	err = r.db.WithRetry(ctx, func(ctx context.Context, q db.Querier) error {
		if err := q.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
			return err
		}
		courses = make([]models.Course, 0, page.PageSize)
		if total == 0 {
			return nil
		}

		rows, err := q.Query(ctx, listSQL, listArgs...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			c, err := scanCourse(rows)
			if err != nil {
				return err
			}
			courses = append(courses, *c)
		}
		return rows.Err()
	})
	if err != nil {
		logger.FromContext(ctx).Error().Err(err).Msg("Error listing courses")
		return nil, 0, err
	}

	return courses, total, nil
}

// Update writes every mutable column of course.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	sql, args, err := r.sb.Update("courses").
		Set("subject", course.Subject).
		Set("number", course.Number).
		Set("title", course.Title).
		Set("term", course.Term).
		Set("instructor_id", course.InstructorID).
		Where(squirrel.Eq{"id": course.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update course query: %w", err)
	}

	err = r.db.WithTransaction(ctx, db.ReadCommitted, func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return apperrors.ErrCourseNotFound
		}
		return nil
	})
	return instructorError(err)
}

// Delete removes the course; enrollments, assignments and submissions
// cascade. It returns the storage paths of the removed submissions so their
// blobs can be cleaned up after commit.
func (r *CourseRepository) Delete(ctx context.Context, id int64) ([]string, error) {
	pathsSQL, pathsArgs, err := r.sb.Select("s.storage_path").
		From("submissions s").
		Join("assignments a ON a.id = s.assignment_id").
		Where(squirrel.Eq{"a.course_id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build submission paths query: %w", err)
	}

	deleteSQL, deleteArgs, err := r.sb.Delete("courses").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build delete course query: %w", err)
	}

	var paths []string
	err = r.db.WithTransaction(ctx, db.ReadCommitted, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, pathsSQL, pathsArgs...)
		if err != nil {
			return err
		}
		if paths, err = pgx.CollectRows(rows, pgx.RowTo[string]); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, deleteSQL, deleteArgs...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return apperrors.ErrCourseNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info().Int64("courseID", id).Int("submissions", len(paths)).Msg("Course deleted")
	return paths, nil
}

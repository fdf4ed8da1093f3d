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
	"github.com/yigit/coursehub/internal/pkg/logger"
)

var assignmentColumns = []string{"id", "course_id", "title", "description", "points", "due"}

// IAssignmentRepository defines the interface for assignment database operations
type IAssignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	GetByID(ctx context.Context, id int64) (*models.Assignment, error)
	ListByCourse(ctx context.Context, courseID int64) ([]models.Assignment, error)
	Update(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id int64) ([]string, error)
}

// AssignmentRepository handles assignment database operations
type AssignmentRepository struct {
	db *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewAssignmentRepository creates a new AssignmentRepository
func NewAssignmentRepository(database *db.PostgresDB) *AssignmentRepository {
	return &AssignmentRepository{
		db: database,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanAssignment(row pgx.Row) (*models.Assignment, error) {
	var a models.Assignment
	if err := row.Scan(&a.ID, &a.CourseID, &a.Title, &a.Description, &a.Points, &a.Due); err != nil {
		return nil, err
	}
	return &a, nil
}

func courseRefError(err error) error {
	if dberrors.IsForeignKeyViolation(err) {
		return apperrors.ErrCourseNotFound
	}
	return err
}

// Create inserts assignment and fills in its id. A missing course is reported
// as apperrors.ErrCourseNotFound.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	sql, args, err := r.sb.Insert("assignments").
		Columns("course_id", "title", "description", "points", "due").
		Values(assignment.CourseID, assignment.Title, assignment.Description, assignment.Points, assignment.Due).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create assignment query: %w", err)
	}

	err = r.db.WithTransaction(ctx, db.ReadCommitted, func(ctx context.Context, tx pgx.Tx) error {
		return tx.QueryRow(ctx, sql, args...).Scan(&assignment.ID)
	})
	if err != nil {
		return courseRefError(err)
	}

	logger.FromContext(ctx).Info().Int64("assignmentID", assignment.ID).Int64("courseID", assignment.CourseID).Msg("Assignment created")
	return nil
}

// GetByID retrieves an assignment by ID
func (r *AssignmentRepository) GetByID(ctx context.Context, id int64) (*models.Assignment, error) {
	sql, args, err := r.sb.Select(assignmentColumns...).From("assignments").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get assignment query: %w", err)
	}

	var assignment *models.Assignment
	err = r.db.WithRetry(ctx, func(ctx context.Context, q db.Querier) error {
		var err error
		assignment, err = scanAssignment(q.QueryRow(ctx, sql, args...))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrAssignmentNotFound
		}
		return nil, err
	}
	return assignment, nil
}

// ListByCourse returns every assignment of a course ordered by id.
func (r *AssignmentRepository) ListByCourse(ctx context.Context, courseID int64) ([]models.Assignment, error) {
	sql, args, err := r.sb.Select(assignmentColumns...).From("assignments").
		Where(squirrel.Eq{"course_id": courseID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list assignments query: %w", err)
	}

	assignments := []models.Assignment{}
	err = r.db.WithRetry(ctx, func(ctx context.Context, q db.Querier) error {
		rows, err := q.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		assignments = assignments[:0]
		for rows.Next() {
			a, err := scanAssignment(rows)
			if err != nil {
				return err
			}
			assignments = append(assignments, *a)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

// Update writes every mutable column of assignment.
func (r *AssignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	sql, args, err := r.sb.Update("assignments").
		Set("course_id", assignment.CourseID).
		Set("title", assignment.Title).
		Set("description", assignment.Description).
		Set("points", assignment.Points).
		Set("due", assignment.Due).
		Where(squirrel.Eq{"id": assignment.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update assignment query: %w", err)
	}

	err = r.db.WithTransaction(ctx, db.ReadCommitted, func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return apperrors.ErrAssignmentNotFound
		}
		return nil
	})
	return courseRefError(err)
}

// Delete removes the assignment and its submissions, returning the storage
// paths of the removed submissions.
func (r *AssignmentRepository) Delete(ctx context.Context, id int64) ([]string, error) {
	pathsSQL, pathsArgs, err := r.sb.Select("storage_path").From("submissions").
		Where(squirrel.Eq{"assignment_id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build submission paths query: %w", err)
	}

	deleteSQL, deleteArgs, err := r.sb.Delete("assignments").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build delete assignment query: %w", err)
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
			return apperrors.ErrAssignmentNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info().Int64("assignmentID", id).Int("submissions", len(paths)).Msg("Assignment deleted")
	return paths, nil
}

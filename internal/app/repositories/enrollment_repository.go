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
)

// IEnrollmentRepository defines the interface for enrollment database operations
type IEnrollmentRepository interface {
	ApplyDelta(ctx context.Context, courseID int64, add, remove []int64) (models.EnrollmentDelta, error)
	IsEnrolled(ctx context.Context, courseID, userID int64) (bool, error)
	ListRoster(ctx context.Context, courseID int64) ([]models.RosterEntry, error)
}

// EnrollmentRepository handles the course/student enrollment relation
type EnrollmentRepository struct {
	db *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewEnrollmentRepository creates a new EnrollmentRepository
func NewEnrollmentRepository(database *db.PostgresDB) *EnrollmentRepository {
	return &EnrollmentRepository{
		db: database,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

const insertEnrollmentsSQL = `
	INSERT INTO enrollments (course_id, user_id)
	SELECT $1, unnest($2::bigint[])
	ON CONFLICT (course_id, user_id) DO NOTHING`

// ApplyDelta enrolls the students in add and unenrolls the users in remove
// in one serializable transaction holding the course row lock. add and
// remove must already be disjoint. Ids in add that do not reference a
// student are skipped. Counts report rows actually changed.
func (r *EnrollmentRepository) ApplyDelta(ctx context.Context, courseID int64, add, remove []int64) (models.EnrollmentDelta, error) {
	var delta models.EnrollmentDelta

	lockSQL, lockArgs, err := r.sb.Select("id").From("courses").Where(squirrel.Eq{"id": courseID}).Suffix("FOR UPDATE").ToSql()
	if err != nil {
		return delta, fmt.Errorf("failed to build course lock query: %w", err)
	}

	err = r.db.WithTransaction(ctx, db.Serializable, func(ctx context.Context, tx pgx.Tx) error {
		var locked int64
		if err := tx.QueryRow(ctx, lockSQL, lockArgs...).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ErrCourseNotFound
			}
			return err
		}

		if len(add) > 0 {
			students, err := r.filterStudents(ctx, tx, add)
			if err != nil {
				return err
			}
			delta.Skipped = len(add) - len(students)

			if len(students) > 0 {
				tag, err := tx.Exec(ctx, insertEnrollmentsSQL, courseID, students)
				if err != nil {
					return err
				}
				delta.Added = int(tag.RowsAffected())
			}
		}

		if len(remove) > 0 {
			sql, args, err := r.sb.Delete("enrollments").
				Where(squirrel.Eq{"course_id": courseID}).
				Where("user_id = ANY(?)", remove).
				ToSql()
			if err != nil {
				return fmt.Errorf("failed to build unenroll query: %w", err)
			}
			tag, err := tx.Exec(ctx, sql, args...)
			if err != nil {
				return err
			}
			delta.Removed = int(tag.RowsAffected())
		}
		return nil
	})
	if err != nil {
		return models.EnrollmentDelta{}, err
	}
	return delta, nil
}

// filterStudents returns the ids in ids that reference student users.
func (r *EnrollmentRepository) filterStudents(ctx context.Context, q db.Querier, ids []int64) ([]int64, error) {
	sql, args, err := r.sb.Select("id").From("users").
		Where("id = ANY(?)", ids).
		Where(squirrel.Eq{"role": models.RoleStudent}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build student filter query: %w", err)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// IsEnrolled reports whether userID is enrolled in courseID.
func (r *EnrollmentRepository) IsEnrolled(ctx context.Context, courseID, userID int64) (bool, error) {
	sql, args, err := r.sb.Select("1").From("enrollments").
		Where(squirrel.Eq{"course_id": courseID, "user_id": userID}).
		Prefix("SELECT EXISTS (").Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build enrollment query: %w", err)
	}

	var enrolled bool
	err = r.db.WithRetry(ctx, func(ctx context.Context, q db.Querier) error {
		return q.QueryRow(ctx, sql, args...).Scan(&enrolled)
	})
	return enrolled, err
}

// ListRoster returns the students enrolled in courseID ordered by id.
func (r *EnrollmentRepository) ListRoster(ctx context.Context, courseID int64) ([]models.RosterEntry, error) {
	sql, args, err := r.sb.Select("u.id", "u.name", "u.email").
		From("enrollments e").
		Join("users u ON u.id = e.user_id").
		Where(squirrel.Eq{"e.course_id": courseID}).
		OrderBy("u.id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build roster query: %w", err)
	}

	var roster []models.RosterEntry
	err = r.db.WithRetry(ctx, func(ctx context.Context, q db.Querier) error {
		rows, err := q.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		roster, err = pgx.CollectRows(rows, pgx.RowToStructByPos[models.RosterEntry])
		return err
	})
	if err != nil {
		return nil, err
	}
	if roster == nil {
		roster = []models.RosterEntry{}
	}
	return roster, nil
}

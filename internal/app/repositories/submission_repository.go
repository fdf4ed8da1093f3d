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

var submissionColumns = []string{
	"id", "assignment_id", "student_id", "submitted_at",
	"filename", "storage_path", "content_type", "file_size", "grade",
}

// ISubmissionRepository defines the interface for submission database operations
type ISubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id int64) (*models.Submission, error)
	List(ctx context.Context, filter models.SubmissionFilter, page helpers.PageRequest) ([]models.Submission, int64, error)
	UpdateGrade(ctx context.Context, id int64, grade float64) (*models.Submission, error)
}

// SubmissionRepository handles submission database operations
type SubmissionRepository struct {
	db *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewSubmissionRepository creates a new SubmissionRepository
func NewSubmissionRepository(database *db.PostgresDB) *SubmissionRepository {
	return &SubmissionRepository{
		db: database,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanSubmission(row pgx.Row) (*models.Submission, error) {
	var s models.Submission
	err := row.Scan(&s.ID, &s.AssignmentID, &s.StudentID, &s.Timestamp,
		&s.Filename, &s.StoragePath, &s.ContentType, &s.FileSize, &s.Grade)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts submission and fills in its id and timestamp.
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	sql, args, err := r.sb.Insert("submissions").
		Columns("assignment_id", "student_id", "filename", "storage_path", "content_type", "file_size").
		Values(submission.AssignmentID, submission.StudentID, submission.Filename,
			submission.StoragePath, submission.ContentType, submission.FileSize).
		Suffix("RETURNING id, submitted_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create submission query: %w", err)
	}

	err = r.db.WithTransaction(ctx, db.ReadCommitted, func(ctx context.Context, tx pgx.Tx) error {
		return tx.QueryRow(ctx, sql, args...).Scan(&submission.ID, &submission.Timestamp)
	})
	if err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.ErrAssignmentNotFound
		}
		return err
	}

	logger.FromContext(ctx).Info().
		Int64("submissionID", submission.ID).
		Int64("assignmentID", submission.AssignmentID).
		Int64("studentID", submission.StudentID).
		Msg("Submission created")
	return nil
}

// GetByID retrieves a submission by ID
func (r *SubmissionRepository) GetByID(ctx context.Context, id int64) (*models.Submission, error) {
	sql, args, err := r.sb.Select(submissionColumns...).From("submissions").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get submission query: %w", err)
	}

	var submission *models.Submission
	err = r.db.WithRetry(ctx, func(ctx context.Context, q db.Querier) error {
		var err error
		submission, err = scanSubmission(q.QueryRow(ctx, sql, args...))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSubmissionNotFound
		}
		return nil, err
	}
	return submission, nil
}

func applySubmissionFilter(b squirrel.SelectBuilder, f models.SubmissionFilter) squirrel.SelectBuilder {
	b = b.Where(squirrel.Eq{"assignment_id": f.AssignmentID})
	if f.StudentID != nil {
		b = b.Where(squirrel.Eq{"student_id": *f.StudentID})
	}
	return b
}

// List returns one page of an assignment's submissions ordered by id, and
// the total number of matching submissions.
func (r *SubmissionRepository) List(ctx context.Context, filter models.SubmissionFilter, page helpers.PageRequest) ([]models.Submission, int64, error) {
	countSQL, countArgs, err := applySubmissionFilter(r.sb.Select("count(*)").From("submissions"), filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build submission count query: %w", err)
	}

	listSQL, listArgs, err := applySubmissionFilter(r.sb.Select(submissionColumns...).From("submissions"), filter).
		OrderBy("id ASC").
		Limit(page.Limit()).
		Offset(page.Offset()).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build submission list query: %w", err)
	}

	var (
		total       int64
		submissions []models.Submission
	)
	err = r.db.WithRetry(ctx, func(ctx context.Context, q db.Querier) error {
		if err := q.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
			return err
		}
		submissions = make([]models.Submission, 0, page.PageSize)
		if total == 0 {
			return nil
		}

		rows, err := q.Query(ctx, listSQL, listArgs...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			s, err := scanSubmission(rows)
			if err != nil {
				return err
			}
			submissions = append(submissions, *s)
		}
		return rows.Err()
	})
	if err != nil {
		logger.FromContext(ctx).Error().Err(err).Int64("assignmentID", filter.AssignmentID).Msg("Error listing submissions")
		return nil, 0, err
	}

	return submissions, total, nil
}

// UpdateGrade sets the grade and returns the updated submission. No other
// column is writable after creation.
func (r *SubmissionRepository) UpdateGrade(ctx context.Context, id int64, grade float64) (*models.Submission, error) {
	sql, args, err := r.sb.Update("submissions").
		Set("grade", grade).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + joinColumns(submissionColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build update grade query: %w", err)
	}

	var submission *models.Submission
	err = r.db.WithTransaction(ctx, db.ReadCommitted, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		submission, err = scanSubmission(tx.QueryRow(ctx, sql, args...))
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrSubmissionNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return submission, nil
}

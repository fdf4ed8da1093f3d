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

// initialAdminLockKey serializes concurrent initial-admin bootstraps.
const initialAdminLockKey int64 = 0x636f7572736568

var userColumns = []string{"id", "name", "email", "password", "role", "created_at"}

// IUserRepository defines the interface for user-related database operations
type IUserRepository interface {
	Create(ctx context.Context, user *models.User) error
	CreateInitialAdmin(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ListCourseIDs(ctx context.Context, user *models.User) ([]int64, error)
}

// UserRepository handles user database operations
type UserRepository struct {
	db *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(database *db.PostgresDB) *UserRepository {
	return &UserRepository{
		db: database,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.RoleType, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) insertQuery(user *models.User) (string, []interface{}, error) {
	return r.sb.Insert("users").
		Columns("name", "email", "password", "role").
		Values(user.Name, user.Email, user.Password, user.RoleType).
		Suffix("RETURNING id, created_at").
		ToSql()
}

func (r *UserRepository) insert(ctx context.Context, q db.Querier, user *models.User) error {
	sql, args, err := r.insertQuery(user)
	if err != nil {
		return fmt.Errorf("failed to build create user query: %w", err)
	}

	if err := q.QueryRow(ctx, sql, args...).Scan(&user.ID, &user.CreatedAt); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "users_email_key") {
			logger.FromContext(ctx).Warn().Str("email", user.Email).Msg("Attempted to create user with duplicate email")
			return apperrors.ErrEmailAlreadyExists
		}
		return err
	}
	return nil
}

// Create inserts user and fills in its id and creation time.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	err := r.db.WithTransaction(ctx, db.ReadCommitted, func(ctx context.Context, tx pgx.Tx) error {
		return r.insert(ctx, tx, user)
	})
	if err != nil {
		return err
	}

	logger.FromContext(ctx).Info().Int64("userID", user.ID).Str("role", string(user.RoleType)).Msg("User created")
	return nil
}

// CreateInitialAdmin inserts user as the first admin. It fails with
// apperrors.ErrAdminAlreadyExists once any admin exists; concurrent callers
// are serialized on a transaction-scoped advisory lock so exactly one wins.
func (r *UserRepository) CreateInitialAdmin(ctx context.Context, user *models.User) error {
	user.RoleType = models.RoleAdmin

	err := r.db.WithTransaction(ctx, db.ReadCommitted, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", initialAdminLockKey); err != nil {
			return err
		}

		sql, args, err := r.sb.Select("1").From("users").
			Where(squirrel.Eq{"role": models.RoleAdmin}).
			Prefix("SELECT EXISTS (").Suffix(")").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build admin exists query: %w", err)
		}

		var exists bool
		if err := tx.QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return apperrors.ErrAdminAlreadyExists
		}

		return r.insert(ctx, tx, user)
	})
	if err != nil {
		return err
	}

	logger.FromContext(ctx).Info().Int64("userID", user.ID).Msg("Initial admin created")
	return nil
}

func (r *UserRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.User, error) {
	sql, args, err := r.sb.Select(userColumns...).From("users").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get user query: %w", err)
	}

	var user *models.User
	err = r.db.WithRetry(ctx, func(ctx context.Context, q db.Querier) error {
		var err error
		user, err = scanUser(q.QueryRow(ctx, sql, args...))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"email": email})
}

// ListCourseIDs returns the courses a student is enrolled in, or the courses
// an instructor or admin teaches, in ascending id order.
func (r *UserRepository) ListCourseIDs(ctx context.Context, user *models.User) ([]int64, error) {
	query := r.sb.Select("id").From("courses").Where(squirrel.Eq{"instructor_id": user.ID}).OrderBy("id ASC")
	if user.RoleType == models.RoleStudent {
		query = r.sb.Select("course_id").From("enrollments").Where(squirrel.Eq{"user_id": user.ID}).OrderBy("course_id ASC")
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build course ids query: %w", err)
	}

	var ids []int64
	err = r.db.WithRetry(ctx, func(ctx context.Context, q db.Querier) error {
		rows, err := q.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		ids, err = pgx.CollectRows(rows, pgx.RowTo[int64])
		return err
	})
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}

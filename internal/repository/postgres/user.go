package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/logger"
	"rentacar-backend/internal/repository"
)

type userRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) repository.UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, branch_id, name, email, password_hash, phone, role, registered_at, deleted_at`

func scanUser(row interface{ Scan(...any) error }, u *domain.User) error {
	var branchID sql.NullInt64
	var deletedAt sql.NullTime
	if err := row.Scan(&u.ID, &branchID, &u.Name, &u.Email, &u.PasswordHash, &u.Phone, &u.Role, &u.RegisteredAt, &deletedAt); err != nil {
		return err
	}
	u.BranchID = int64Ptr(branchID)
	if deletedAt.Valid {
		t := deletedAt.Time
		u.DeletedAt = &t
	}
	return nil
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	logger.EnterMethod("userRepository.Create", "email", u.Email, "role", u.Role)

	query := `INSERT INTO users (branch_id, name, email, password_hash, phone, role, registered_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	if u.RegisteredAt.IsZero() {
		u.RegisteredAt = time.Now().UTC()
	}
	err := r.db.QueryRowContext(ctx, query, nullInt64(u.BranchID), u.Name, u.Email, u.PasswordHash, u.Phone, u.Role, u.RegisteredAt).Scan(&u.ID)
	if err != nil {
		logger.ExitMethodWithError("userRepository.Create", err, "email", u.Email)
		return fmt.Errorf("insert user: %w", err)
	}

	logger.ExitMethod("userRepository.Create", "userID", u.ID)
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	u := &domain.User{}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`
	if err := scanUser(r.db.QueryRowContext(ctx, query, id), u); err != nil {
		return nil, notFound(err, "user", id)
	}
	return u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u := &domain.User{}
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1) AND deleted_at IS NULL`
	if err := scanUser(r.db.QueryRowContext(ctx, query, email), u); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.Error{Kind: domain.ErrorKindNotFound, Code: "NOT_FOUND", Message: "user not found"}
		}
		return nil, err
	}
	return u, nil
}

func (r *userRepository) Update(ctx context.Context, u *domain.User) error {
	logger.EnterMethod("userRepository.Update", "userID", u.ID)

	query := `UPDATE users SET branch_id=$1, name=$2, email=$3, password_hash=$4, phone=$5, role=$6
	          WHERE id=$7 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, nullInt64(u.BranchID), u.Name, u.Email, u.PasswordHash, u.Phone, u.Role, u.ID)
	if err != nil {
		logger.ExitMethodWithError("userRepository.Update", err, "userID", u.ID)
		return fmt.Errorf("update user: %w", err)
	}
	if err := requireAffected(res, "user", u.ID); err != nil {
		return err
	}

	logger.ExitMethod("userRepository.Update", "userID", u.ID)
	return nil
}

// SoftDelete keeps the row so reservations and payments stay intact.
func (r *userRepository) SoftDelete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireAffected(res, "user", id)
}

func (r *userRepository) List(ctx context.Context, filter domain.UserFilter, page domain.PageRequest) ([]domain.User, int64, error) {
	logger.EnterMethod("userRepository.List", "search", filter.Search, "role", filter.Role)

	b := &queryBuilder{}
	b.where = append(b.where, "deleted_at IS NULL")
	if filter.Search != "" {
		b.add("(name ILIKE $%[1]d OR email ILIKE $%[1]d)", "%"+filter.Search+"%")
	}
	if filter.Role != "" {
		b.add("role = $%d", filter.Role)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM users`+b.clause(), b.args...).Scan(&total); err != nil {
		logger.ExitMethodWithError("userRepository.List", err)
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	suffix, args := b.page(page)
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users`+b.clause()+` ORDER BY name, id`+suffix, args...)
	if err != nil {
		logger.ExitMethodWithError("userRepository.List", err)
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := scanUser(rows, &u); err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	logger.ExitMethod("userRepository.List", "count", len(users), "total", total)
	return users, total, nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM users WHERE deleted_at IS NULL`).Scan(&n)
	return n, err
}

package pgrepo

import (
	"context"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/fsdevblog/escrow-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/escrow-ledger/pkg/uow"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, created_at, updated_at, phone, full_name, role::text, encrypted_password`

type UserRepository struct {
	db uow.DBTX
}

func NewUserRepository(db uow.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (u *UserRepository) CreateUser(ctx context.Context, args repoargs.CreateUser) (*domain.User, error) {
	row := u.db.QueryRow(ctx,
		`INSERT INTO users (phone, full_name, role, encrypted_password)
		VALUES ($1, $2, $3::user_role_type, $4)
		RETURNING `+userColumns,
		args.Phone, args.FullName, string(args.Role), args.EncryptedPassword,
	)
	user, err := scanUser(row)
	if err != nil {
		return nil, convertErr(err, "creating user with phone `%s`", args.Phone)
	}
	return user, nil
}

func (u *UserRepository) FindUserByPhone(ctx context.Context, phone string) (*domain.User, error) {
	row := u.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE phone = $1`, phone)
	user, err := scanUser(row)
	if err != nil {
		return nil, convertErr(err, "finding user by phone `%s`", phone)
	}
	return user, nil
}

func (u *UserRepository) FindUserByID(ctx context.Context, id int64) (*domain.User, error) {
	row := u.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		return nil, convertErr(err, "finding user by id %d", id)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	var role string
	if err := row.Scan(
		&user.ID,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.Phone,
		&user.FullName,
		&role,
		&user.EncryptedPassword,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}
	user.Role = domain.UserRole(role)
	return &user, nil
}

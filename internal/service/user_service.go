package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/fsdevblog/escrow-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/escrow-ledger/internal/service/tokens"
	"github.com/fsdevblog/escrow-ledger/pkg/uow"
)

const JWTTokenExpire = 24 * time.Hour

type UserService struct {
	uow            uow.UOW
	userRepo       UserRepository
	hasher         PasswordHasher
	jwtTokenSecret []byte
}

func NewUserService(u uow.UOW, hasher PasswordHasher, jwtTokenSecret []byte) (*UserService, error) {
	userRepo, userRepoErr := uow.GetRepositoryAs[UserRepository](u, uow.RepositoryName(repoargs.UserRepoName))
	if userRepoErr != nil {
		return nil, userRepoErr //nolint:wrapcheck
	}
	return &UserService{
		uow:            u,
		userRepo:       userRepo,
		hasher:         hasher,
		jwtTokenSecret: jwtTokenSecret,
	}, nil
}

type RegisterUserArgs struct {
	Phone    string
	Password string
	FullName string
	Role     domain.UserRole
}

// Register создает пользователя и его кошелек в одной транзакции и выпускает jwt token. Возвращает 3 значения:
// созданный юзер, токен и ошибку. Роль ADMIN через регистрацию не выдается.
func (s *UserService) Register(ctx context.Context, args RegisterUserArgs) (*domain.User, string, error) {
	if args.Role == "" {
		args.Role = domain.RoleClient
	}
	if args.Role != domain.RoleClient && args.Role != domain.RoleArtisan {
		return nil, "", fmt.Errorf("registering user: role %s: %w", args.Role, domain.ErrUnauthorized)
	}
	user, err := s.create(ctx, args)
	if err != nil {
		return nil, "", fmt.Errorf("registering user: %w", err)
	}
	token, tokenErr := tokens.GenerateUserJWT(user.ID, string(user.Role), JWTTokenExpire, s.jwtTokenSecret)
	if tokenErr != nil {
		return nil, "", fmt.Errorf("registering user: %w", tokenErr)
	}
	return user, token, nil
}

// EnsureAdmin создает администратора при старте, если пользователя с таким телефоном еще нет.
func (s *UserService) EnsureAdmin(ctx context.Context, phone, password string) (*domain.User, error) {
	existing, err := s.userRepo.FindUserByPhone(ctx, phone)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrRecordNotFound) {
		return nil, fmt.Errorf("ensuring admin: %w", err)
	}
	user, err := s.create(ctx, RegisterUserArgs{
		Phone:    phone,
		Password: password,
		FullName: "Administrator",
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		return nil, fmt.Errorf("ensuring admin: %w", err)
	}
	return user, nil
}

func (s *UserService) create(ctx context.Context, args RegisterUserArgs) (*domain.User, error) {
	password, hashErr := s.hasher.HashPassword(args.Password)
	if hashErr != nil {
		return nil, hashErr //nolint:wrapcheck
	}
	var user *domain.User
	err := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		userRepo, userRepoErr := uow.GetAs[UserRepository](tx, uow.RepositoryName(repoargs.UserRepoName))
		if userRepoErr != nil {
			return userRepoErr //nolint:wrapcheck
		}
		walletRepo, walletRepoErr := uow.GetAs[WalletRepository](tx, uow.RepositoryName(repoargs.WalletRepoName))
		if walletRepoErr != nil {
			return walletRepoErr //nolint:wrapcheck
		}
		var userErr error
		user, userErr = userRepo.CreateUser(c, repoargs.CreateUser{
			Phone:             args.Phone,
			FullName:          args.FullName,
			Role:              args.Role,
			EncryptedPassword: password,
		})
		if userErr != nil {
			return userErr //nolint:wrapcheck
		}
		_, walletErr := walletRepo.Create(c, user.ID)
		return walletErr //nolint:wrapcheck
	})
	if err != nil {
		return nil, txErr("creating user", err)
	}
	return user, nil
}

// Login проверяет пароль и выпускает токен. Неизвестный телефон и неверный пароль дают
// ErrPasswordMissMatch, чтобы не раскрывать наличие пользователя.
func (s *UserService) Login(ctx context.Context, phone, password string) (*domain.User, string, error) {
	user, err := s.userRepo.FindUserByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, "", fmt.Errorf("login: %w", domain.ErrPasswordMissMatch)
		}
		return nil, "", fmt.Errorf("login: %w", err)
	}
	if !s.hasher.ComparePassword(password, user.EncryptedPassword) {
		return nil, "", fmt.Errorf("login: %w", domain.ErrPasswordMissMatch)
	}
	token, tokenErr := tokens.GenerateUserJWT(user.ID, string(user.Role), JWTTokenExpire, s.jwtTokenSecret)
	if tokenErr != nil {
		return nil, "", fmt.Errorf("login: %w", tokenErr)
	}
	return user, token, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"librarydesk/internal/auth"
	"librarydesk/internal/models"
	"librarydesk/internal/repositories"
)

// NewUser is an admin-created account.
type NewUser struct {
	Name       string
	Email      string
	Password   string
	IsAdmin    bool
	IsVerified bool
}

// UserUpdate holds optional changes; nil fields are left alone.
type UserUpdate struct {
	Name    *string
	Email   *string
	IsAdmin *bool
}

type UserQuery struct {
	Search   string
	ByEmail  bool
	Verified *bool
	Pagination
}

type UserSummary struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	IsAdmin       bool      `json:"is_admin"`
	EmailVerified bool      `json:"email_verified"`
}

type UserPage struct {
	Users      []UserSummary `json:"users"`
	TotalPages int           `json:"totalPages"`
}

type Profile struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	IsAdmin bool      `json:"is_admin"`
}

// Session is the result of a successful login.
type Session struct {
	Token   string
	Profile Profile
}

// AccountService manages user accounts. Deleting an account snapshots the
// borrower identity into the borrow ledger exactly once; renames never touch
// existing borrows.
type AccountService interface {
	Login(ctx context.Context, email, password string, rememberMe bool) (*Session, error)
	Profile(ctx context.Context, id uuid.UUID) (*Profile, error)
	CreateUser(ctx context.Context, in NewUser) (*models.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, in UserUpdate) (*models.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
	ListUsers(ctx context.Context, q UserQuery) (*UserPage, error)
}

type accountService struct {
	db         *gorm.DB
	userRepo   repositories.UserRepository
	borrowRepo repositories.BorrowRepository
	tokens     *auth.TokenManager
	log        *zap.Logger
}

func NewAccountService(
	db *gorm.DB,
	userRepo repositories.UserRepository,
	borrowRepo repositories.BorrowRepository,
	tokens *auth.TokenManager,
	log *zap.Logger,
) AccountService {
	return &accountService{
		db:         db,
		userRepo:   userRepo,
		borrowRepo: borrowRepo,
		tokens:     tokens,
		log:        log.Named("account"),
	}
}

func (s *accountService) Login(ctx context.Context, email, password string, rememberMe bool) (*Session, error) {
	user, err := s.userRepo.GetByEmail(s.db.WithContext(ctx), strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !auth.CheckPassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsVerified {
		return nil, ErrUnverified
	}
	token, err := s.tokens.Issue(auth.Principal{ID: user.ID, Email: user.Email, IsAdmin: user.IsAdmin}, rememberMe)
	if err != nil {
		return nil, err
	}
	s.log.Info("Login: token issued", zap.String("user_id", user.ID.String()), zap.Bool("remember_me", rememberMe))
	return &Session{Token: token, Profile: profileOf(user)}, nil
}

func profileOf(u *models.User) Profile {
	return Profile{ID: u.ID, Name: u.Name, Email: u.Email, IsAdmin: u.IsAdmin}
}

func (s *accountService) Profile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	user, err := s.userRepo.GetByID(s.db.WithContext(ctx), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	p := profileOf(user)
	return &p, nil
}

func (s *accountService) CreateUser(ctx context.Context, in NewUser) (*models.User, error) {
	in.Name, in.Email = strings.TrimSpace(in.Name), strings.TrimSpace(in.Email)
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, Validationf("All fields are required")
	}
	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{
		Name:       in.Name,
		Email:      in.Email,
		Password:   hashed,
		IsAdmin:    in.IsAdmin,
		IsVerified: in.IsVerified,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.userRepo.GetByEmail(tx, in.Email); err == nil {
			return ErrEmailTaken
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return s.userRepo.Create(tx, user)
	})
	if err != nil {
		if KindOf(err) == KindInternal {
			s.log.Error("CreateUser: transaction failed", zap.Error(err))
		}
		return nil, err
	}
	s.log.Info("CreateUser: created", zap.String("user_id", user.ID.String()), zap.Bool("is_admin", user.IsAdmin))
	return user, nil
}

// UpdateUser applies the given changes. A changed email clears is_verified.
func (s *accountService) UpdateUser(ctx context.Context, id uuid.UUID, in UserUpdate) (*models.User, error) {
	var updated *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.userRepo.GetByIDForUpdate(tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
			user.Name = strings.TrimSpace(*in.Name)
		}
		if in.Email != nil {
			email := strings.TrimSpace(*in.Email)
			if email != "" && email != user.Email {
				if other, err := s.userRepo.GetByEmail(tx, email); err == nil && other.ID != user.ID {
					return ErrEmailTaken
				} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
					return err
				}
				user.Email = email
				user.IsVerified = false
			}
		}
		if in.IsAdmin != nil {
			user.IsAdmin = *in.IsAdmin
		}
		if err := s.userRepo.Save(tx, user); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		if KindOf(err) == KindInternal {
			s.log.Error("UpdateUser: transaction failed", zap.String("user_id", id.String()), zap.Error(err))
		}
		return nil, err
	}
	return updated, nil
}

// DeleteUser removes the account after snapshotting its identity into every
// borrow it owns, all in one transaction.
func (s *accountService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	var detached int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.userRepo.GetByIDForUpdate(tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		detached, err = s.borrowRepo.SnapshotAndDetachUser(tx, user.ID, user.Name, user.Email)
		if err != nil {
			return fmt.Errorf("snapshot borrows: %w", err)
		}
		return s.userRepo.Delete(tx, user.ID)
	})
	if err != nil {
		if KindOf(err) == KindInternal {
			s.log.Error("DeleteUser: transaction failed", zap.String("user_id", id.String()), zap.Error(err))
		}
		return err
	}
	s.log.Info("DeleteUser: deleted", zap.String("user_id", id.String()), zap.Int64("borrows_snapshotted", detached))
	return nil
}

func (s *accountService) ListUsers(ctx context.Context, q UserQuery) (*UserPage, error) {
	q.Pagination = NewPagination(q.Page, q.Limit)
	users, total, err := s.userRepo.List(s.db.WithContext(ctx), repositories.UserFilter{
		Search:   q.Search,
		ByEmail:  q.ByEmail,
		Verified: q.Verified,
		Page:     q.window(),
	})
	if err != nil {
		s.log.Error("ListUsers: query failed", zap.Error(err))
		return nil, err
	}
	summaries := make([]UserSummary, 0, len(users))
	for _, u := range users {
		summaries = append(summaries, UserSummary{
			ID:            u.ID,
			Name:          u.Name,
			Email:         u.Email,
			IsAdmin:       u.IsAdmin,
			EmailVerified: u.IsVerified,
		})
	}
	return &UserPage{Users: summaries, TotalPages: q.TotalPages(total)}, nil
}

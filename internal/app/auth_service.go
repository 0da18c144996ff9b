package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"offerdesk/internal/model"
	"offerdesk/internal/pkg/jwtutil"
	"offerdesk/internal/repository"
)

type AuthService struct {
	db            *gorm.DB
	userRepo      *repository.UserRepository
	orgRepo       *repository.OrganizationRepository
	jwtSecret     string
	jwtExpiration time.Duration
}

// RegisterInput creates a user together with a new organization. An empty
// Organization defaults to the username.
type RegisterInput struct {
	Username     string
	Email        string
	Password     string
	Organization string
}

type LoginInput struct {
	Username string
	Password string
}

type AuthResult struct {
	Token string
	User  *model.User
}

func NewAuthService(db *gorm.DB, userRepo *repository.UserRepository, orgRepo *repository.OrganizationRepository, jwtSecret string, jwtExpiration time.Duration) *AuthService {
	return &AuthService{
		db:            db,
		userRepo:      userRepo,
		orgRepo:       orgRepo,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
	}
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(strings.ToLower(input.Email))
	password := strings.TrimSpace(input.Password)
	orgName := strings.TrimSpace(input.Organization)
	if orgName == "" {
		orgName = username
	}

	if username == "" || email == "" || password == "" || len(password) < 8 {
		return nil, ErrInvalidInput
	}

	existingByName, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existingByName != nil {
		return nil, ErrUsernameExists
	}

	existingByEmail, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existingByEmail != nil {
		return nil, ErrEmailExists
	}

	existingOrg, err := s.orgRepo.GetByName(ctx, orgName)
	if err != nil {
		return nil, err
	}
	if existingOrg != nil {
		return nil, ErrOrganizationTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password failed: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		org := &model.Organization{Name: orgName}
		if err := s.orgRepo.WithTx(tx).Create(ctx, org); err != nil {
			return err
		}
		user.OrgID = org.ID
		return s.userRepo.WithTx(tx).Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	token, err := jwtutil.GenerateToken(s.jwtSecret, s.jwtExpiration, user.ID, user.OrgID, user.Username)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	password := strings.TrimSpace(input.Password)
	if username == "" || password == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredential
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredential
	}

	token, err := jwtutil.GenerateToken(s.jwtSecret, s.jwtExpiration, user.ID, user.OrgID, user.Username)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) GetUserByID(ctx context.Context, id uint) (*model.User, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}
	return s.userRepo.GetByID(ctx, id)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/flicky/luxbag-api/internal/apperror"
	"github.com/flicky/luxbag-api/internal/dto"
	"github.com/flicky/luxbag-api/internal/model"
	"github.com/flicky/luxbag-api/internal/repository"
)

const minPasswordLength = 6

var (
	ErrMissingRegisterFields = apperror.New(apperror.InvalidArgument, "Please provide all required fields")
	ErrMissingCredentials    = apperror.New(apperror.InvalidArgument, "Please provide email and password")
	ErrPasswordTooShort      = apperror.New(apperror.InvalidArgument, "Password must be at least 6 characters")
	ErrUserAlreadyExists     = apperror.New(apperror.InvalidArgument, "User already exists with this email")
	ErrInvalidCredentials    = apperror.New(apperror.InvalidArgument, "Invalid email or password")
	ErrUserNotFound          = apperror.New(apperror.NotFound, "User not found")
	ErrInvalidToken          = apperror.New(apperror.Unauthorized, "Not authorized, token failed")
)

// Claims is the verified content of a bearer token.
type Claims struct {
	UserID uuid.UUID
	Role   model.Role
}

type AuthService struct {
	userRepo  repository.UserRepository
	jwtSecret []byte
	jwtExpiry time.Duration
}

func NewAuthService(userRepo repository.UserRepository, jwtSecret string, jwtExpiry time.Duration) *AuthService {
	return &AuthService{userRepo: userRepo, jwtSecret: []byte(jwtSecret), jwtExpiry: jwtExpiry}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest) (string, *model.User, error) {
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	if name == "" || email == "" || req.Password == "" {
		return "", nil, ErrMissingRegisterFields
	}
	if len(req.Password) < minPasswordLength {
		return "", nil, ErrPasswordTooShort
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, fmt.Errorf("check user: %w", err)
	}
	if existing != nil {
		return "", nil, ErrUserAlreadyExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{Name: name, Email: email, Password: string(hashed), Role: model.RoleUser}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return "", nil, ErrUserAlreadyExists
		}
		return "", nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}
	return token, user, nil
}

func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (string, *model.User, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return "", nil, ErrMissingCredentials
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}
	return token, user, nil
}

func (s *AuthService) Profile(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UpdateProfile applies the non-empty fields of req and returns a fresh token
// alongside the updated user.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, req dto.UpdateProfileRequest) (string, *model.User, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return "", nil, err
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = name
	}
	if email := normalizeEmail(req.Email); email != "" && email != user.Email {
		other, err := s.userRepo.GetByEmail(ctx, email)
		if err != nil {
			return "", nil, fmt.Errorf("check email: %w", err)
		}
		if other != nil {
			return "", nil, ErrUserAlreadyExists
		}
		user.Email = email
	}
	if req.Password != "" {
		if len(req.Password) < minPasswordLength {
			return "", nil, ErrPasswordTooShort
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return "", nil, fmt.Errorf("hash password: %w", err)
		}
		user.Password = string(hashed)
	}
	if req.Addresses != nil {
		user.Addresses = req.Addresses
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return "", nil, ErrUserAlreadyExists
		}
		return "", nil, fmt.Errorf("update user: %w", err)
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}
	return token, user, nil
}

// ParseToken verifies an HS256 token and returns its subject and role.
func (s *AuthService) ParseToken(raw string) (Claims, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	role, _ := claims["role"].(string)
	return Claims{UserID: userID, Role: model.Role(role)}, nil
}

func (s *AuthService) generateToken(user *model.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": string(user.Role),
		"exp":  time.Now().Add(s.jwtExpiry).Unix(),
		"iat":  time.Now().Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

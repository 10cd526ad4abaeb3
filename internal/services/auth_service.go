package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/wemake-app/wemake-api/internal/constants"
	"github.com/wemake-app/wemake-api/internal/models"
	"github.com/wemake-app/wemake-api/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken              = errors.New("email already registered")
	ErrInvalidEmail            = errors.New("invalid email address")
	ErrNameRequired            = errors.New("name is required")
	ErrInvalidCredentials      = errors.New("invalid email or password")
	ErrPasswordTooShort        = errors.New("password too short")
	ErrUserNotFound            = errors.New("user not found")
	ErrFailedToHashPassword    = errors.New("failed to hash password")
	ErrInvalidToken            = errors.New("invalid or expired token")
	ErrInvalidIDToken          = errors.New("invalid identity token")
	ErrFederatedNotConfigured  = errors.New("federated sign-in is not configured")
	ErrSelectedBoardNotAllowed = errors.New("selected board must be one of your boards")
)

const tokenIssuer = "wemake"

// AuthService handles authentication and profile business logic.
type AuthService struct {
	userRepo  repository.UserRepository
	boardRepo repository.BoardRepository
	verifier  IdentityVerifier
	jwtSecret []byte
	now       func() time.Time
}

// NewAuthService creates a new AuthService. verifier may be nil when
// federated sign-in is disabled.
func NewAuthService(userRepo repository.UserRepository, boardRepo repository.BoardRepository, verifier IdentityVerifier, jwtSecret string) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		boardRepo: boardRepo,
		verifier:  verifier,
		jwtSecret: []byte(jwtSecret),
		now:       time.Now,
	}
}

// SignupInput represents the required information to create a new user.
type SignupInput struct {
	Email    string
	Name     string
	Password string
}

// Signup creates a new password user.
func (s *AuthService) Signup(input SignupInput) (*models.User, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	if _, err := s.userRepo.FindByEmail(email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	user := &models.User{
		Email:                email,
		Name:                 name,
		PasswordHash:         string(hashedPassword),
		AuthProvider:         models.AuthProviderPassword,
		NotificationsEnabled: true,
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and returns the authenticated user.
func (s *AuthService) Login(input LoginInput) (*models.User, error) {
	user, err := s.userRepo.FindByEmail(strings.TrimSpace(input.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// SignInFederated verifies an external ID token and finds or creates the user
// keyed by the provider UID.
func (s *AuthService) SignInFederated(ctx context.Context, idToken string) (*models.User, error) {
	if s.verifier == nil {
		return nil, ErrFederatedNotConfigured
	}

	identity, err := s.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIDToken, err)
	}

	user, err := s.userRepo.FindByID(identity.UID)
	switch {
	case err == nil:
		changed := false
		if identity.Name != "" && identity.Name != user.Name {
			user.Name = identity.Name
			changed = true
		}
		if identity.PhotoURL != "" && identity.PhotoURL != user.PhotoURL {
			user.PhotoURL = identity.PhotoURL
			changed = true
		}
		if changed {
			if err := s.userRepo.Update(user); err != nil {
				return nil, fmt.Errorf("failed to update user profile: %w", err)
			}
		}
		return user, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	email := strings.ToLower(strings.TrimSpace(identity.Email))
	if email == "" {
		email = identity.UID + "@users.wemake.local"
	}
	name := strings.TrimSpace(identity.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	user = &models.User{
		ID:                   identity.UID,
		Email:                email,
		Name:                 name,
		PhotoURL:             identity.PhotoURL,
		AuthProvider:         models.AuthProviderFirebase,
		NotificationsEnabled: true,
	}
	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(id string) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// IssueToken signs a bearer token for the user.
func (s *AuthService) IssueToken(userID string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(constants.TokenTTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})

	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseToken validates a bearer token and returns its user ID.
func (s *AuthService) ParseToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// PreferencesInput holds optional preference updates.
type PreferencesInput struct {
	SelectedBoardID      *string
	NotificationsEnabled *bool
	DeviceToken          *string
}

// UpdatePreferences saves the selected board, notification opt-in and device token.
// An empty selected board id clears the selection.
func (s *AuthService) UpdatePreferences(userID string, input PreferencesInput) (*models.User, error) {
	user, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}

	if input.SelectedBoardID != nil {
		boardID := strings.TrimSpace(*input.SelectedBoardID)
		if boardID == "" {
			user.SelectedBoardID = nil
		} else {
			if _, err := s.boardRepo.FindMember(boardID, userID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, ErrSelectedBoardNotAllowed
				}
				return nil, fmt.Errorf("failed to verify board membership: %w", err)
			}
			user.SelectedBoardID = &boardID
		}
	}
	if input.NotificationsEnabled != nil {
		user.NotificationsEnabled = *input.NotificationsEnabled
	}
	if input.DeviceToken != nil {
		user.DeviceToken = strings.TrimSpace(*input.DeviceToken)
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, fmt.Errorf("failed to update preferences: %w", err)
	}
	return user, nil
}

// SearchUsers finds users by name or email prefix.
func (s *AuthService) SearchUsers(query string) ([]models.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.User{}, nil
	}

	users, err := s.userRepo.SearchByPrefix(query, constants.UserSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

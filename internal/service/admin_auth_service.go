package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/GTDGit/gradeshop_api/internal/models"
	"github.com/GTDGit/gradeshop_api/internal/repository"
	"github.com/GTDGit/gradeshop_api/internal/utils"
)

// MinAdminPasswordLen is enforced when creating panel accounts.
const MinAdminPasswordLen = 8

// Admin account failures surfaced to the handler and the CLI.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrAdminExists        = errors.New("admin email already registered")
	ErrWeakPassword       = errors.New("password must have at least 8 characters")
)

// AdminUserStore is the persistence needed by AdminAuthService.
type AdminUserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	Create(ctx context.Context, user *models.AdminUser) error
	TouchLastLogin(ctx context.Context, id int) error
}

// AdminSession is what a successful login hands to the panel.
type AdminSession struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	AdminID   int       `json:"adminId"`
	Name      string    `json:"name"`
}

// AdminAuthService authenticates catalog operators.
type AdminAuthService struct {
	admins AdminUserStore
	jwt    *utils.JWTIssuer
	now    func() time.Time
}

func NewAdminAuthService(admins AdminUserStore, jwt *utils.JWTIssuer) *AdminAuthService {
	return &AdminAuthService{admins: admins, jwt: jwt, now: time.Now}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login checks the password and issues a session token. Unknown emails and
// wrong passwords return the same error.
func (s *AdminAuthService) Login(ctx context.Context, email, password string) (*AdminSession, error) {
	email = normalizeEmail(email)

	user, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Error().Err(err).Str("email", email).Msg("admin lookup failed")
			return nil, err
		}
		log.Warn().Str("email", email).Msg("login for unknown admin")
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		log.Warn().Int("admin_id", user.ID).Msg("login for inactive admin")
		return nil, ErrAccountInactive
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Warn().Int("admin_id", user.ID).Msg("wrong admin password")
		return nil, ErrInvalidCredentials
	}

	issuedAt := s.now()
	token, err := s.jwt.GenerateJWT(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	if err := s.admins.TouchLastLogin(ctx, user.ID); err != nil {
		log.Warn().Err(err).Int("admin_id", user.ID).Msg("failed to record last login")
	}

	log.Info().Int("admin_id", user.ID).Msg("admin logged in")
	return &AdminSession{
		Token:     token,
		ExpiresAt: issuedAt.Add(s.jwt.TTL()),
		AdminID:   user.ID,
		Name:      user.Name,
	}, nil
}

// CreateAdmin registers an active operator account.
func (s *AdminAuthService) CreateAdmin(ctx context.Context, email, password, name string) (*models.AdminUser, error) {
	email = normalizeEmail(email)
	if len(password) < MinAdminPasswordLen {
		return nil, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	if name = strings.TrimSpace(name); name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	user := &models.AdminUser{
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		IsActive:     true,
	}
	if err := s.admins.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrAdminExists
		}
		return nil, err
	}
	return user, nil
}

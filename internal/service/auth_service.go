package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"rapidroad/internal/apperror"
	"rapidroad/internal/credential"
	"rapidroad/internal/model"
	"rapidroad/internal/repository"
	"rapidroad/internal/token"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const passwordCost = 12

const magicLinkMessage = "If an account exists for this email, a sign-in link has been sent"

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// MagicLinkRequest.Tenant selects the front-end host: "admin", "driver" or empty for customers.
type MagicLinkRequest struct {
	Email  string `json:"email" binding:"required,email"`
	Tenant string `json:"tenant" binding:"omitempty,oneof=admin driver customer"`
}

type MagicLinkResponse struct {
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
}

type SessionResponse struct {
	token.Pair
	User *UserResponse `json:"user"`
}

type AuthConfig struct {
	MagicLinkTTL   time.Duration
	DomainRoot     string
	ReturnMagicURL bool
}

// AuthService issues and rotates sessions.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*SessionResponse, error)
	Login(ctx context.Context, req LoginRequest) (*SessionResponse, error)
	RequestMagicLink(ctx context.Context, req MagicLinkRequest) (*MagicLinkResponse, error)
	ConsumeMagicLink(ctx context.Context, magicToken string) (*SessionResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*SessionResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, userID uuid.UUID) (*UserResponse, error)
	IssueSession(ctx context.Context, user *model.User) (*token.Pair, error)
}

type authService struct {
	users  repository.UserRepository
	store  credential.Store
	tokens *token.Manager
	cfg    AuthConfig
	cost   int

	dummyOnce sync.Once
	dummyHash []byte
}

func NewAuthService(users repository.UserRepository, store credential.Store, tokens *token.Manager, cfg AuthConfig) AuthService {
	return &authService{
		users:  users,
		store:  store,
		tokens: tokens,
		cfg:    cfg,
		cost:   passwordCost,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) IssueSession(ctx context.Context, user *model.User) (*token.Pair, error) {
	access, err := s.tokens.IssueAccess(token.Principal{ID: user.ID, Email: user.Email, Role: user.Role})
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, jti, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	if err := s.store.Set(ctx, credential.RefreshKey(user.ID, jti), "1", s.tokens.RefreshTTL()); err != nil {
		return nil, fmt.Errorf("failed to record refresh token: %w", err)
	}
	return &token.Pair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *authService) session(ctx context.Context, user *model.User) (*SessionResponse, error) {
	pair, err := s.IssueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	return &SessionResponse{Pair: *pair, User: mapUser(user)}, nil
}

func (s *authService) Register(ctx context.Context, req RegisterRequest) (*SessionResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, apperror.BadRequest("email and password are required")
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperror.Conflict("email already registered")
	} else if !repository.IsNotFound(err) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         model.RoleCustomer,
		Status:       model.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if repository.IsDuplicate(err) {
			return nil, apperror.Conflict("email already registered")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.session(ctx, user)
}

// compareDummy spends the same bcrypt work as a real comparison so unknown
// emails cannot be told apart by response time.
func (s *authService) compareDummy(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.cost)
	})
	_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*SessionResponse, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if !repository.IsNotFound(err) {
			return nil, fmt.Errorf("failed to look up user: %w", err)
		}
		s.compareDummy(req.Password)
		return nil, apperror.Unauthorized("invalid credentials")
	}
	if user.PasswordHash == "" {
		s.compareDummy(req.Password)
		return nil, apperror.Unauthorized("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperror.Unauthorized("invalid credentials")
	}
	if !user.IsActive() {
		return nil, apperror.Unauthorized("user is not active")
	}

	s.touchLogin(ctx, user)
	return s.session(ctx, user)
}

func (s *authService) touchLogin(ctx context.Context, user *model.User) {
	now := time.Now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		log.Printf("failed to update last login user=%s err=%v", user.ID, err)
		return
	}
	user.LastLoginAt = &now
}

func (s *authService) magicLinkURL(tenant, magicToken string) string {
	host := s.cfg.DomainRoot
	switch tenant {
	case "admin":
		host = "admin." + host
	case "driver":
		host = "driver." + host
	}
	return fmt.Sprintf("https://%s/magic?token=%s", host, magicToken)
}

func (s *authService) RequestMagicLink(ctx context.Context, req MagicLinkRequest) (*MagicLinkResponse, error) {
	res := &MagicLinkResponse{Message: magicLinkMessage}

	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if repository.IsNotFound(err) {
			return res, nil
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if !user.IsActive() {
		return res, nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate magic token: %w", err)
	}
	magicToken := hex.EncodeToString(buf)

	if err := s.store.Set(ctx, credential.MagicKey(magicToken), user.ID.String(), s.cfg.MagicLinkTTL); err != nil {
		return nil, fmt.Errorf("failed to store magic token: %w", err)
	}

	// No mail is sent from here; the link is echoed only when configured to.
	url := s.magicLinkURL(req.Tenant, magicToken)
	if s.cfg.ReturnMagicURL {
		res.URL = url
	}
	return res, nil
}

func (s *authService) ConsumeMagicLink(ctx context.Context, magicToken string) (*SessionResponse, error) {
	if magicToken == "" {
		return nil, apperror.Unauthorized("invalid or expired link")
	}

	// Deleted before the user is loaded so a replay can never win.
	value, err := s.store.GetDel(ctx, credential.MagicKey(magicToken))
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return nil, apperror.Unauthorized("invalid or expired link")
		}
		return nil, fmt.Errorf("failed to consume magic token: %w", err)
	}

	user, err := s.activeUser(ctx, value)
	if err != nil {
		return nil, err
	}

	s.touchLogin(ctx, user)
	return s.session(ctx, user)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*SessionResponse, error) {
	sub, jti, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, apperror.Unauthorized("invalid refresh token")
	}

	if _, err := s.store.GetDel(ctx, credential.RefreshKey(sub, jti)); err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return nil, apperror.Unauthorized("refresh token revoked")
		}
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	user, err := s.activeUser(ctx, sub.String())
	if err != nil {
		return nil, err
	}
	return s.session(ctx, user)
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	sub, jti, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil
	}
	if err := s.store.Del(ctx, credential.RefreshKey(sub, jti)); err != nil {
		log.Printf("failed to revoke refresh token user=%s err=%v", sub, err)
	}
	return nil
}

func (s *authService) Me(ctx context.Context, userID uuid.UUID) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.NotFound("user not found")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return mapUser(user), nil
}

func (s *authService) activeUser(ctx context.Context, rawID string) (*model.User, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, apperror.Unauthorized("invalid session subject")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.Unauthorized("user not found")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive() {
		return nil, apperror.Unauthorized("user is not active")
	}
	return user, nil
}

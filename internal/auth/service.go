package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"idcards/internal/kvstore"
	"idcards/internal/roster"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Accounts is the account storage the service needs.
type Accounts interface {
	CreateAccount(ctx context.Context, a roster.Account) (roster.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (roster.Account, error)
	GetAccount(ctx context.Context, id string) (roster.Account, error)
}

// Settings are the token parameters.
type Settings struct {
	Issuer      string
	SigningKey  string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	RememberTTL time.Duration
}

// Service logs accounts in and keeps refresh sessions and remembered usernames
// in a kvstore.
type Service struct {
	accounts Accounts
	kv       kvstore.Store
	cfg      Settings
	log      *zap.Logger
}

func NewService(accounts Accounts, kv kvstore.Store, cfg Settings, log *zap.Logger) *Service {
	return &Service{accounts: accounts, kv: kv, cfg: cfg, log: log}
}

// LoginRequest is a username/password login from one device.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	DeviceID string `json:"device_id"`
	Remember bool   `json:"remember"`
}

// Session is a successful login.
type Session struct {
	Tokens  TokenPair      `json:"tokens"`
	Account roster.Account `json:"account"`
}

func refreshKey(id string) string   { return "refresh:" + id }
func rememberKey(dev string) string { return "remember:" + dev }

func identity(a roster.Account) Identity {
	return Identity{AccountID: a.ID, Role: a.Role, SchoolID: a.SchoolScope()}
}

// Login checks credentials and issues tokens. With Remember set and a device
// id, the username is kept for RememberTTL so the device can prefill it.
func (s *Service) Login(ctx context.Context, req LoginRequest) (Session, error) {
	acct, err := s.accounts.GetAccountByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, roster.ErrAccountNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if !CheckPassword(acct.PasswordHash, req.Password) {
		return Session{}, ErrInvalidCredentials
	}

	tokens, err := s.issue(ctx, acct)
	if err != nil {
		return Session{}, err
	}
	if req.DeviceID != "" {
		if req.Remember {
			if err := s.kv.Set(ctx, rememberKey(req.DeviceID), acct.Username, s.cfg.RememberTTL); err != nil {
				s.log.Warn("remember username failed", zap.String("device_id", req.DeviceID), zap.Error(err))
			}
		} else {
			_ = s.kv.Delete(ctx, rememberKey(req.DeviceID))
		}
	}
	s.log.Info("login", zap.String("username", acct.Username), zap.String("role", acct.Role))
	return Session{Tokens: tokens, Account: acct}, nil
}

// Refresh exchanges a refresh token for a new pair. Each refresh token is
// single-use.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := Parse(refreshToken, s.cfg.SigningKey, s.cfg.Issuer)
	if err != nil || claims.Kind != KindRefresh || claims.ID == "" {
		return TokenPair{}, ErrInvalidToken
	}
	accountID, err := s.kv.Get(ctx, refreshKey(claims.ID))
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return TokenPair{}, ErrInvalidToken
		}
		return TokenPair{}, err
	}
	if err := s.kv.Delete(ctx, refreshKey(claims.ID)); err != nil {
		return TokenPair{}, err
	}
	acct, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, roster.ErrAccountNotFound) {
			return TokenPair{}, ErrInvalidToken
		}
		return TokenPair{}, err
	}
	return s.issue(ctx, acct)
}

// Logout revokes the refresh session and forgets the device's username.
func (s *Service) Logout(ctx context.Context, refreshToken, deviceID string) error {
	if claims, err := Parse(refreshToken, s.cfg.SigningKey, s.cfg.Issuer); err == nil && claims.ID != "" {
		if err := s.kv.Delete(ctx, refreshKey(claims.ID)); err != nil {
			return err
		}
	}
	if deviceID != "" {
		return s.kv.Delete(ctx, rememberKey(deviceID))
	}
	return nil
}

// Remembered returns the username remembered for deviceID, or "".
func (s *Service) Remembered(ctx context.Context, deviceID string) (string, error) {
	if deviceID == "" {
		return "", nil
	}
	v, err := s.kv.Get(ctx, rememberKey(deviceID))
	if errors.Is(err, kvstore.ErrNotFound) {
		return "", nil
	}
	return v, err
}

// CreateTeacher adds a teacher account bound to schoolID.
func (s *Service) CreateTeacher(ctx context.Context, schoolID, username, password string) (roster.Account, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return roster.Account{}, fmt.Errorf("hash password: %w", err)
	}
	school := schoolID
	return s.accounts.CreateAccount(ctx, roster.Account{
		Username:     strings.TrimSpace(username),
		PasswordHash: hash,
		Role:         roster.RoleTeacher,
		SchoolID:     &school,
	})
}

// EnsureAdmin creates the bootstrap admin account if it does not exist yet.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	_, err := s.accounts.GetAccountByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, roster.ErrAccountNotFound) {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if _, err := s.accounts.CreateAccount(ctx, roster.Account{Username: username, PasswordHash: hash, Role: roster.RoleAdmin}); err != nil {
		return err
	}
	s.log.Info("admin account created", zap.String("username", username))
	return nil
}

func (s *Service) issue(ctx context.Context, acct roster.Account) (TokenPair, error) {
	tokens, err := Issue(identity(acct), s.cfg.Issuer, s.cfg.SigningKey, s.cfg.AccessTTL, s.cfg.RefreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}
	if err := s.kv.Set(ctx, refreshKey(tokens.RefreshID), acct.ID, s.cfg.RefreshTTL); err != nil {
		return TokenPair{}, fmt.Errorf("store refresh session: %w", err)
	}
	return tokens, nil
}

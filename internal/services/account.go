package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jjudge-oj/accountsvc/internal/store"
	"github.com/jjudge-oj/accountsvc/types"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (types.Account, error)
	GetByEmail(ctx context.Context, email string) (types.Account, error)
	Create(ctx context.Context, account types.Account) (types.Account, error)
	Update(ctx context.Context, account types.Account) (types.Account, error)
	List(ctx context.Context, offset, limit int) ([]types.Account, int, error)
}

// Notifier delivers account lifecycle events to downstream consumers.
type Notifier interface {
	Notify(ctx context.Context, event types.AccountEvent) error
}

// AccountFields carries the optional attributes set at account creation.
type AccountFields struct {
	FirstName        string
	LastName         string
	Phone            string
	Address          string
	SecurityQuestion types.SecurityQuestion
	SecurityAnswer   string
	IsStaff          bool
	IsSuperuser      bool
}

type RegisterInput struct {
	Email            string
	Password         string
	Password2        string
	FirstName        string
	LastName         string
	Phone            string
	SecurityQuestion types.SecurityQuestion
	SecurityAnswer   string
}

// ProfilePatch is a partial profile update; nil fields are left untouched.
type ProfilePatch struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Address   *string
}

type ChangePasswordInput struct {
	OldPassword  string
	NewPassword  string
	NewPassword2 string
}

type ResetPasswordInput struct {
	Email          string
	SecurityAnswer string
	NewPassword    string
	NewPassword2   string
}

// AccountService encapsulates account use-cases.
type AccountService struct {
	repo     AccountRepository
	notifier Notifier
	logger   *zap.Logger
	hashCost int
	newID    func() uuid.UUID
	now      func() time.Time
}

// Option configures an AccountService.
type Option func(*AccountService)

// WithNotifier publishes account events through n.
func WithNotifier(n Notifier) Option {
	return func(s *AccountService) { s.notifier = n }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *AccountService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithHashCost overrides the bcrypt cost.
func WithHashCost(cost int) Option {
	return func(s *AccountService) { s.hashCost = cost }
}

func NewAccountService(repo AccountRepository, opts ...Option) *AccountService {
	s := &AccountService{
		repo:     repo,
		logger:   zap.NewNop(),
		hashCost: bcrypt.DefaultCost,
		newID:    uuid.New,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AccountService) GetByID(ctx context.Context, id uuid.UUID) (types.Account, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *AccountService) List(ctx context.Context, offset, limit int) ([]types.Account, int, error) {
	return s.repo.List(ctx, offset, limit)
}

// Register validates a sign-up request and creates an active account.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (types.Account, error) {
	if err := validateRegister(in); err != nil {
		return types.Account{}, err
	}

	account, err := s.CreateAccount(ctx, in.Email, in.Password, AccountFields{
		FirstName:        in.FirstName,
		LastName:         in.LastName,
		Phone:            in.Phone,
		SecurityQuestion: in.SecurityQuestion,
		SecurityAnswer:   in.SecurityAnswer,
	})
	if err != nil {
		return types.Account{}, err
	}

	s.notify(ctx, types.AccountRegistered, account)
	return account, nil
}

// CreateAccount hashes rawPassword and persists a new active account under
// the normalized email.
func (s *AccountService) CreateAccount(ctx context.Context, email, rawPassword string, fields AccountFields) (types.Account, error) {
	verr := newValidationError()
	validateEmail(verr, "email", email)
	validatePassword(verr, "password", rawPassword)
	if !verr.Empty() {
		return types.Account{}, verr
	}

	email = NormalizeEmail(email)
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return types.Account{}, fieldError("email", msgEmailTaken)
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.Account{}, fmt.Errorf("check email: %w", err)
	}

	hashed, err := s.hashPassword(rawPassword)
	if err != nil {
		return types.Account{}, err
	}

	account, err := s.repo.Create(ctx, types.Account{
		ID:               s.newID(),
		Email:            email,
		PasswordHash:     hashed,
		FirstName:        strings.TrimSpace(fields.FirstName),
		LastName:         strings.TrimSpace(fields.LastName),
		Phone:            strings.TrimSpace(fields.Phone),
		Address:          strings.TrimSpace(fields.Address),
		SecurityQuestion: fields.SecurityQuestion,
		SecurityAnswer:   strings.TrimSpace(fields.SecurityAnswer),
		IsStaff:          fields.IsStaff,
		IsSuperuser:      fields.IsSuperuser,
		IsActive:         true,
	})
	if err != nil {
		// The unique constraint catches registrations racing past the pre-check.
		if errors.Is(err, store.ErrDuplicateEmail) {
			return types.Account{}, fieldError("email", msgEmailTaken)
		}
		return types.Account{}, fmt.Errorf("create account: %w", err)
	}
	return account, nil
}

// CreateSuperuser provisions an administrative account with every flag set.
func (s *AccountService) CreateSuperuser(ctx context.Context, email, rawPassword string, fields AccountFields) (types.Account, error) {
	fields.IsStaff = true
	fields.IsSuperuser = true
	return s.CreateAccount(ctx, email, rawPassword, fields)
}

// VerifyPassword reports whether raw matches the account's stored hash.
func (s *AccountService) VerifyPassword(account types.Account, raw string) bool {
	if account.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(raw)) == nil
}

// SetPassword rehashes and persists a new password.
func (s *AccountService) SetPassword(ctx context.Context, account types.Account, raw string) (types.Account, error) {
	hashed, err := s.hashPassword(raw)
	if err != nil {
		return types.Account{}, err
	}
	account.PasswordHash = hashed

	updated, err := s.repo.Update(ctx, account)
	if err != nil {
		return types.Account{}, fmt.Errorf("set password: %w", err)
	}
	return updated, nil
}

// Authenticate resolves an account from login credentials.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (types.Account, error) {
	if err := validateLogin(email, password); err != nil {
		return types.Account{}, err
	}

	account, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Account{}, ErrInvalidCredentials
		}
		return types.Account{}, fmt.Errorf("authenticate: %w", err)
	}

	if !s.VerifyPassword(account, password) || !account.IsActive {
		return types.Account{}, ErrInvalidCredentials
	}
	return account, nil
}

// UpdateProfile applies the non-nil fields of patch to the account.
func (s *AccountService) UpdateProfile(ctx context.Context, id uuid.UUID, patch ProfilePatch) (types.Account, error) {
	if err := validateProfilePatch(patch); err != nil {
		return types.Account{}, err
	}

	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.Account{}, err
	}

	if patch.FirstName != nil {
		account.FirstName = strings.TrimSpace(*patch.FirstName)
	}
	if patch.LastName != nil {
		account.LastName = strings.TrimSpace(*patch.LastName)
	}
	if patch.Phone != nil {
		account.Phone = strings.TrimSpace(*patch.Phone)
	}
	if patch.Address != nil {
		account.Address = strings.TrimSpace(*patch.Address)
	}

	updated, err := s.repo.Update(ctx, account)
	if err != nil {
		return types.Account{}, fmt.Errorf("update profile: %w", err)
	}
	return updated, nil
}

// ChangePassword replaces the password of an authenticated account after
// verifying the current one.
func (s *AccountService) ChangePassword(ctx context.Context, id uuid.UUID, in ChangePasswordInput) error {
	if err := validateChangePassword(in); err != nil {
		return err
	}

	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !s.VerifyPassword(account, in.OldPassword) {
		return ErrIncorrectOldPassword
	}

	updated, err := s.SetPassword(ctx, account, in.NewPassword)
	if err != nil {
		return err
	}

	s.notify(ctx, types.AccountPasswordChanged, updated)
	return nil
}

// SecurityQuestion returns the recovery question configured for email.
func (s *AccountService) SecurityQuestion(ctx context.Context, email string) (types.SecurityQuestion, error) {
	if err := validateForgotPassword(email); err != nil {
		return "", err
	}

	account, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return "", err
	}
	if account.SecurityQuestion == "" {
		return "", ErrNoSecurityQuestion
	}
	return account.SecurityQuestion, nil
}

// ResetPassword sets a new password once the security answer matches.
// Answers are compared with simple case folding only.
func (s *AccountService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	if err := validateResetPassword(in); err != nil {
		return err
	}

	account, err := s.repo.GetByEmail(ctx, NormalizeEmail(in.Email))
	if err != nil {
		return err
	}
	if account.SecurityAnswer == "" || !strings.EqualFold(account.SecurityAnswer, strings.TrimSpace(in.SecurityAnswer)) {
		return ErrIncorrectAnswer
	}

	updated, err := s.SetPassword(ctx, account, in.NewPassword)
	if err != nil {
		return err
	}

	s.notify(ctx, types.AccountPasswordReset, updated)
	return nil
}

func (s *AccountService) hashPassword(raw string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(raw), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func (s *AccountService) notify(ctx context.Context, eventType types.AccountEventType, account types.Account) {
	if s.notifier == nil {
		return
	}
	event := types.AccountEvent{
		Type:       eventType,
		AccountID:  account.ID,
		Email:      account.Email,
		OccurredAt: s.now().UTC(),
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.logger.Warn("account event not published",
			zap.String("type", string(eventType)),
			zap.String("account_id", account.ID.String()),
			zap.Error(err),
		)
	}
}

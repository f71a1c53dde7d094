package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/intern-service/internal/auth"
	"github.com/spec-kit/intern-service/internal/config"
	"github.com/spec-kit/intern-service/internal/domain"
	"github.com/spec-kit/intern-service/internal/repository"
	apperrors "github.com/spec-kit/intern-service/pkg/util"
)

// RegisterInput carries the profile submitted at registration.
type RegisterInput struct {
	FirstName   string
	LastName    string
	Email       string
	Password    string
	PhoneNumber string
	Gender      string
	DateOfBirth *time.Time
	University  string
	Degree      string
	YearOfStudy int
	Skills      []string
	Resume      *string
	LinkedIn    string
}

// IdentityService coordinates registration, login and domain selection.
type IdentityService struct {
	users       repository.UserRepository
	assignments repository.AssignmentRepository
	revocations auth.RevocationStore
	locker      Locker
	lockTTL     time.Duration
	tokenMgr    *auth.TokenManager
	bcryptCost  int
	logger      *zap.Logger
}

// IdentityDependencies encapsulates repo requirements for the identity service.
type IdentityDependencies struct {
	UserRepo       repository.UserRepository
	AssignmentRepo repository.AssignmentRepository
	Revocations    auth.RevocationStore
	Locker         Locker
	Logger         *zap.Logger
}

// NewIdentityService builds the service.
func NewIdentityService(cfg config.Config, deps IdentityDependencies) *IdentityService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityService{
		users:       deps.UserRepo,
		assignments: deps.AssignmentRepo,
		revocations: deps.Revocations,
		locker:      deps.Locker,
		lockTTL:     cfg.Assignment.LockTTL(),
		tokenMgr:    auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost:  cfg.Auth.BcryptCost,
		logger:      logger,
	}
}

// TokenManager exposes the token manager shared with the auth middleware.
func (s *IdentityService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Register creates a new intern account.
func (s *IdentityService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email := domain.NormalizeEmail(in.Email)
	missing := map[string]any{}
	if strings.TrimSpace(in.FirstName) == "" {
		missing["firstName"] = "required"
	}
	if strings.TrimSpace(in.LastName) == "" {
		missing["lastName"] = "required"
	}
	if email == "" {
		missing["email"] = "required"
	}
	if in.Password == "" {
		missing["password"] = "required"
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("missing required fields", missing)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewDuplicateIdentity(email)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        email,
		PasswordHash: hash,
		PhoneNumber:  strings.TrimSpace(in.PhoneNumber),
		Gender:       strings.TrimSpace(in.Gender),
		DateOfBirth:  in.DateOfBirth,
		University:   strings.TrimSpace(in.University),
		Degree:       strings.TrimSpace(in.Degree),
		YearOfStudy:  in.YearOfStudy,
		Skills:       in.Skills,
		Resume:       in.Resume,
		LinkedIn:     strings.TrimSpace(in.LinkedIn),
		Role:         domain.RoleIntern,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewDuplicateIdentity(email)
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// Authenticate verifies credentials and returns the matching user.
func (s *IdentityService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password are required", nil)
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"email": email})
		}
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewInvalidCredentials()
	}
	return user, nil
}

// Login authenticates and issues an access token.
func (s *IdentityService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	token, exp, err := s.IssueToken(user)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// IssueToken signs a fresh access token carrying the user's current profile claims.
func (s *IdentityService) IssueToken(user *domain.User) (string, time.Time, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return "", time.Time{}, apperrors.NewInternalError(err)
	}
	return token, exp, nil
}

// Logout revokes the session's token until it expires.
func (s *IdentityService) Logout(ctx context.Context, session domain.Session) error {
	if s.revocations == nil || session.TokenID == "" {
		return nil
	}
	if err := s.revocations.Revoke(ctx, session.TokenID, session.ExpiresAt); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// FindByEmail loads a user by normalized email.
func (s *IdentityService) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, apperrors.NewValidationError("email is required", nil)
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"email": email})
		}
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// SelectDomain records the user's chosen domain. Re-selecting the same domain is a no-op;
// switching to another one is refused once tasks were assigned for the current one.
func (s *IdentityService) SelectDomain(ctx context.Context, email string, d domain.Domain) (*domain.User, error) {
	if strings.TrimSpace(email) == "" || d == "" {
		return nil, apperrors.NewValidationError("email and domain are required", nil)
	}
	if !d.Valid() {
		return nil, apperrors.NewValidationError("unknown domain", map[string]any{"domain": string(d), "allowed": domain.Domains})
	}
	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	release, err := lockUser(ctx, s.locker, s.lockTTL, user)
	if err != nil {
		return nil, err
	}
	defer release()

	user, err = s.users.GetByID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"email": email})
		}
		return nil, apperrors.MapError(err)
	}
	if user.DomainValue() == d {
		return user, nil
	}
	if user.Domain != nil {
		count, err := s.assignments.CountByUser(ctx, user.ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if count > 0 {
			return nil, apperrors.NewDomainLocked(string(*user.Domain))
		}
	}
	if err := s.users.UpdateDomain(ctx, user.ID, d); err != nil {
		switch {
		case errors.Is(err, repository.ErrDomainLocked):
			return nil, apperrors.NewDomainLocked(string(user.DomainValue()))
		case errors.Is(err, pgx.ErrNoRows):
			return nil, apperrors.NewNotFound("user", map[string]any{"email": user.Email})
		}
		return nil, apperrors.MapError(err)
	}
	user.Domain = &d
	return user, nil
}

// EnsureAdmin creates the bootstrap administrator when it does not exist yet.
func (s *IdentityService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return false, nil
	}
	existing, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		if existing.Role != domain.RoleAdmin {
			s.logger.Warn("bootstrap admin email belongs to a non-admin account", zap.String("email", email))
		}
		return false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return false, err
	}
	admin := &domain.User{
		FirstName:    "Admin",
		LastName:     "User",
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return false, nil
		}
		return false, err
	}
	s.logger.Info("bootstrap admin created", zap.String("email", email))
	return true, nil
}

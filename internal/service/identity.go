package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"cliqd/internal/models"
	"cliqd/internal/observability"
	"cliqd/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AvatarURL is the generated avatar for a username.
func AvatarURL(username string) string {
	return "https://api.dicebear.com/7.x/shapes/svg?seed=" + username
}

// AccountInput holds the fields of a new account.
type AccountInput struct {
	Name     string
	Email    string
	Username string
	Password string
	Bio      string
	// Avatar defaults to AvatarURL(Username).
	Avatar string
}

// IdentityService provides registration, authentication and profile logic.
type IdentityService struct {
	users      repository.UserRepository
	session    *SessionManager
	bcryptCost int
	now        func() time.Time
	logger     *observability.StructuredLogger
}

// NewIdentityService returns a new IdentityService. bcryptCost of zero uses bcrypt.DefaultCost.
func NewIdentityService(users repository.UserRepository, session *SessionManager, bcryptCost int) *IdentityService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &IdentityService{
		users:      users,
		session:    session,
		bcryptCost: bcryptCost,
		now:        time.Now,
		logger:     observability.NewStructuredLogger(),
	}
}

// CreateAccount stores a new user without signing in. It fails with
// ErrDuplicateEmail or ErrDuplicateUsername, in that order.
func (s *IdentityService) CreateAccount(ctx context.Context, in AccountInput) (user *models.User, err error) {
	ctx, span := observability.TraceServiceCall(ctx, "IdentityService", "CreateAccount")
	defer func() { observability.EndSpan(span, err) }()

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, models.NewInternalError(fmt.Errorf("hash password: %w", err))
	}

	avatar := in.Avatar
	if avatar == "" {
		avatar = AvatarURL(in.Username)
	}
	user = &models.User{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Email:     in.Email,
		Username:  in.Username,
		Password:  string(hash),
		Avatar:    avatar,
		Bio:       in.Bio,
		Followers: []string{},
		Following: []string{},
		CreatedAt: models.Millis(s.now()),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.LogServiceCall(ctx, "IdentityService", "CreateAccount", map[string]interface{}{"user_id": user.ID})
	return user, nil
}

// Register creates an account and signs it in.
func (s *IdentityService) Register(ctx context.Context, name, email, password, username string) (*models.Session, error) {
	user, err := s.CreateAccount(ctx, AccountInput{Name: name, Email: email, Password: password, Username: username})
	if err != nil {
		return nil, err
	}
	return s.session.Establish(ctx, user)
}

// Authenticate signs in the user with email and password. Unknown email
// and wrong password both yield ErrInvalidCredentials.
func (s *IdentityService) Authenticate(ctx context.Context, email, password string) (session *models.Session, err error) {
	ctx, span := observability.TraceServiceCall(ctx, "IdentityService", "Authenticate")
	defer func() { observability.EndSpan(span, err) }()

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !passwordMatches(user.Password, password) {
		return nil, models.ErrInvalidCredentials
	}
	return s.session.Establish(ctx, user)
}

// passwordMatches compares against a bcrypt hash, or in constant time
// against a plaintext credential stored by older clients.
func passwordMatches(stored, given string) bool {
	if strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(given)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

// UpdateProfile merges patch into the signed-in user's record and
// refreshes the session projection.
func (s *IdentityService) UpdateProfile(ctx context.Context, userID string, patch models.ProfilePatch) (*models.Session, error) {
	if err := s.session.Authorize(userID); err != nil {
		return nil, err
	}
	user, err := s.users.UpdateProfile(ctx, userID, patch)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return s.session.Establish(ctx, user)
	}

	// The record is gone; keep the session consistent with the edit anyway.
	current, _ := s.session.Current()
	if patch.Name != nil {
		current.Name = *patch.Name
	}
	if patch.Bio != nil {
		current.Bio = *patch.Bio
	}
	if patch.Avatar != nil {
		current.Avatar = *patch.Avatar
	}
	if patch.CoverPhoto != nil {
		current.CoverPhoto = *patch.CoverPhoto
	}
	return s.session.replace(ctx, current)
}

// Refresh re-projects the session from the stored user record. It is a
// no-op when signed out or when the record no longer exists.
func (s *IdentityService) Refresh(ctx context.Context) (*models.Session, error) {
	current, err := s.session.Require()
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, current.ID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return current, nil
	}
	return s.session.Establish(ctx, user)
}

// Logout signs the current user out.
func (s *IdentityService) Logout(ctx context.Context) error {
	return s.session.Logout(ctx)
}

// FindByUsername returns (nil, nil) when no user has username.
func (s *IdentityService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.users.GetByUsername(ctx, username)
}

// FindByID returns (nil, nil) when no user has id.
func (s *IdentityService) FindByID(ctx context.Context, id string) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

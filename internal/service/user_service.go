// Package service contains the application services that drive the account
// and task workflows.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/taskhive/taskhive/internal/avatar"
	"github.com/taskhive/taskhive/internal/domain/errs"
	"github.com/taskhive/taskhive/internal/domain/task"
	"github.com/taskhive/taskhive/internal/domain/user"
	"github.com/taskhive/taskhive/internal/domain/uuid"
	"github.com/taskhive/taskhive/internal/mailer"
)

// emailTimeout bounds a background account email send.
const emailTimeout = 30 * time.Second

// TokenIssuer mints session tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID uuid.UUID) (string, error)
}

// AvatarCache is the read-through cache for rendered avatars. A cache
// failure is never fatal, the users collection stays the source of truth.
type AvatarCache interface {
	Get(ctx context.Context, userID uuid.UUID) ([]byte, error)
	Set(ctx context.Context, userID uuid.UUID, data []byte) error
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

// UserUpdates carries the changeable profile fields. A nil field means
// "leave unchanged". The handler has already rejected unknown fields, so
// applying these is all-or-nothing only in the sense that any validation
// failure aborts before the save.
type UserUpdates struct {
	Name     *string
	Email    *string
	Password *string
	Age      *int
}

// UserService implements the account workflows: signup, login, session
// management, profile updates, avatars and account deletion.
type UserService struct {
	users  user.Repository
	tasks  task.Repository
	issuer TokenIssuer
	mail   mailer.Mailer
	cache  AvatarCache
	logger *slog.Logger
}

// UserServiceConfig collects the collaborators of UserService.
type UserServiceConfig struct {
	Users  user.Repository
	Tasks  task.Repository
	Issuer TokenIssuer
	Mail   mailer.Mailer
	Cache  AvatarCache
	Logger *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(cfg UserServiceConfig) *UserService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mail := cfg.Mail
	if mail == nil {
		mail = mailer.Noop{}
	}

	return &UserService{
		users:  cfg.Users,
		tasks:  cfg.Tasks,
		issuer: cfg.Issuer,
		mail:   mail,
		cache:  cfg.Cache,
		logger: logger,
	}
}

// SignUp creates an account and an initial session. The welcome email goes
// out in the background; its failure never affects the response.
func (s *UserService) SignUp(
	ctx context.Context,
	name, email, password string,
	age int,
) (*user.User, string, error) {
	u, err := user.NewUser(name, email, password, age)
	if err != nil {
		return nil, "", err
	}

	token, err := s.issuer.Issue(u.ID())
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue session token: %w", err)
	}
	u.AddToken(token)

	if err = s.users.Save(ctx, u); err != nil {
		return nil, "", err
	}

	s.sendAccountEmail("welcome", u.Email(), u.Name(), s.mail.SendWelcome)

	return u, token, nil
}

// Login verifies the credentials and opens a new session. An unknown email
// and a wrong password return the same errs.ErrInvalidCredentials so the
// response does not reveal which part was wrong.
func (s *UserService) Login(ctx context.Context, email, password string) (*user.User, string, error) {
	// emails are stored lowercased, so the lookup must normalize the same way
	u, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, "", errs.ErrInvalidCredentials
		}
		return nil, "", err
	}

	if !u.CheckPassword(password) {
		return nil, "", errs.ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(u.ID())
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue session token: %w", err)
	}

	u.AddToken(token)
	if err = s.users.Save(ctx, u); err != nil {
		return nil, "", err
	}

	return u, token, nil
}

// Logout revokes the presented session. Other sessions stay valid.
func (s *UserService) Logout(ctx context.Context, u *user.User, token string) error {
	u.RemoveToken(token)
	return s.users.Save(ctx, u)
}

// LogoutAll revokes every session of the user.
func (s *UserService) LogoutAll(ctx context.Context, u *user.User) error {
	u.ClearTokens()
	return s.users.Save(ctx, u)
}

// UpdateProfile applies the given field updates and persists the user.
// Validation happens before anything is saved, so a bad value leaves the
// stored profile untouched.
func (s *UserService) UpdateProfile(ctx context.Context, u *user.User, updates UserUpdates) error {
	if updates.Name != nil {
		if err := u.SetName(*updates.Name); err != nil {
			return err
		}
	}
	if updates.Email != nil {
		if err := u.SetEmail(*updates.Email); err != nil {
			return err
		}
	}
	if updates.Age != nil {
		if err := u.SetAge(*updates.Age); err != nil {
			return err
		}
	}
	if updates.Password != nil {
		if err := u.SetPassword(*updates.Password); err != nil {
			return err
		}
	}

	return s.users.Save(ctx, u)
}

// DeleteAccount removes the user, cascades over their tasks and sends the
// cancellation email in the background.
func (s *UserService) DeleteAccount(ctx context.Context, u *user.User) error {
	if err := s.users.Delete(ctx, u.ID()); err != nil {
		return err
	}

	// The account is gone; an orphaned task cleanup failure is logged but
	// does not resurrect the user.
	if err := s.tasks.DeleteByOwner(ctx, u.ID()); err != nil {
		s.logger.ErrorContext(ctx, "failed to cascade delete tasks",
			slog.String("user_id", u.ID().String()),
			slog.String("error", err.Error()),
		)
	}

	s.invalidateAvatarCache(ctx, u.ID())
	s.sendAccountEmail("cancellation", u.Email(), u.Name(), s.mail.SendCancellation)

	return nil
}

// UploadAvatar validates, normalizes and stores a new avatar image.
func (s *UserService) UploadAvatar(
	ctx context.Context,
	u *user.User,
	filename string,
	size int64,
	data []byte,
) error {
	if err := avatar.Accept(filename, size); err != nil {
		return err
	}

	normalized, err := avatar.Normalize(data)
	if err != nil {
		return err
	}

	u.SetAvatar(normalized)
	if err = s.users.Save(ctx, u); err != nil {
		return err
	}

	s.invalidateAvatarCache(ctx, u.ID())
	return nil
}

// DeleteAvatar removes the stored avatar. Deleting an absent avatar is fine.
func (s *UserService) DeleteAvatar(ctx context.Context, u *user.User) error {
	u.ClearAvatar()
	if err := s.users.Save(ctx, u); err != nil {
		return err
	}

	s.invalidateAvatarCache(ctx, u.ID())
	return nil
}

// GetAvatar returns the avatar PNG for any user, cached where possible.
// Returns errs.ErrNotFound for a missing user and for a user without an
// avatar alike.
func (s *UserService) GetAvatar(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, userID); err == nil {
			return data, nil
		}
	}

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !u.HasAvatar() {
		return nil, errs.ErrNotFound
	}

	data := u.Avatar()
	if s.cache != nil {
		if err = s.cache.Set(ctx, userID, data); err != nil {
			s.logger.WarnContext(ctx, "failed to cache avatar",
				slog.String("user_id", userID.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	return data, nil
}

func (s *UserService) invalidateAvatarCache(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate avatar cache",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()),
		)
	}
}

// sendAccountEmail fires the email in a goroutine detached from the request
// lifecycle. Failures are logged and dropped.
func (s *UserService) sendAccountEmail(
	kind, email, name string,
	send func(ctx context.Context, email, name string) error,
) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emailTimeout)
		defer cancel()

		if err := send(ctx, email, name); err != nil {
			s.logger.Error("failed to send account email",
				slog.String("kind", kind),
				slog.String("email", email),
				slog.String("error", err.Error()),
			)
		}
	}()
}

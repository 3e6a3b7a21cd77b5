package services

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/theleywin/lostnfound-backend/src/apperr"
	"github.com/theleywin/lostnfound-backend/src/auth"
	"github.com/theleywin/lostnfound-backend/src/models"
	"github.com/theleywin/lostnfound-backend/src/store"
)

const (
	minPasswordLen = 6
	// bcrypt ignores input past 72 bytes.
	maxPasswordLen = 72
)

// UserService handles accounts and sessions.
type UserService struct {
	users  store.UserRepository
	hasher auth.PasswordHasher
	tokens auth.TokenIssuer
	now    func() time.Time
}

// NewUserService returns a user service.
func NewUserService(users store.UserRepository, hasher auth.PasswordHasher, tokens auth.TokenIssuer) *UserService {
	return &UserService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Registration is a sign-up request.
type Registration struct {
	NUID     string `json:"nuid"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks required fields, the email format and the password length.
func (r Registration) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.NUID, validation.Required),
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Phone, validation.Required),
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
	if err != nil {
		return apperr.Validation("Missing required fields.")
	}
	if err := validation.Validate(r.Email, is.Email); err != nil {
		return apperr.Validation("Invalid email format.")
	}
	return validatePassword(r.Password)
}

func validatePassword(password string) error {
	if err := validation.Validate(password, validation.Length(minPasswordLen, maxPasswordLen)); err != nil {
		return apperr.Validation("Password must be between 6 and 72 characters.")
	}
	return nil
}

// NormalizeEmail is the form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account. Emails are unique after normalization.
func (s *UserService) Register(ctx context.Context, r Registration) (*models.User, error) {
	r.NUID = strings.TrimSpace(r.NUID)
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Email = NormalizeEmail(r.Email)
	if err := r.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByEmail(ctx, r.Email); err == nil {
		return nil, apperr.Conflict("Email already registered.")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Internal("checking email", err)
	}

	hash, err := s.hasher.Hash(r.Password)
	if err != nil {
		return nil, apperr.Internal("hashing password", err)
	}

	user := models.User{
		NUID:         r.NUID,
		Name:         r.Name,
		Phone:        r.Phone,
		Email:        r.Email,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.users.Insert(ctx, &user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("Email already registered.")
		}
		return nil, apperr.Internal("creating user", err)
	}

	sanitized := user.Sanitized()
	return &sanitized, nil
}

// Session is returned by a successful login.
type Session struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Login checks the credentials and issues a token.
func (s *UserService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.Validation("Email and password are required.")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Auth("Invalid email or password.")
		}
		return nil, apperr.Internal("finding user", err)
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, apperr.Auth("Invalid email or password.")
	}

	token, err := s.tokens.Issue(auth.Identity{UserID: user.Id.Hex(), Email: user.Email})
	if err != nil {
		return nil, apperr.Internal("issuing token", err)
	}
	return &Session{Token: token, User: user.Sanitized()}, nil
}

// Profile returns the user without its password hash.
func (s *UserService) Profile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	sanitized := user.Sanitized()
	return &sanitized, nil
}

// ProfileChanges is a partial profile update. Nil fields are left alone.
type ProfileChanges struct {
	NUID  *string `json:"nuid"`
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
	Email *string `json:"email"`
}

// UpdateProfile applies changes to the user. A new email must be free.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, changes ProfileChanges) error {
	if err := checkUserID(userID); err != nil {
		return err
	}

	update := models.UserUpdate{
		NUID:  nonBlank(changes.NUID),
		Name:  nonBlank(changes.Name),
		Phone: nonBlank(changes.Phone),
		Email: nonBlank(changes.Email),
	}
	if update.Empty() {
		return apperr.Validation("No fields to update.")
	}

	if update.Email != nil {
		email := NormalizeEmail(*update.Email)
		if err := validation.Validate(email, is.Email); err != nil {
			return apperr.Validation("Invalid email format.")
		}
		owner, err := s.users.FindByEmail(ctx, email)
		switch {
		case err == nil && owner.Id.Hex() != userID:
			return apperr.Conflict("Email already registered.")
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return apperr.Internal("checking email", err)
		}
		update.Email = &email
	}
	update.UpdatedAt = s.now()

	if err := s.users.Update(ctx, userID, update); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return apperr.Conflict("Email already registered.")
		}
		return userError(err)
	}
	return nil
}

// ChangePassword replaces the password once current matches.
func (s *UserService) ChangePassword(ctx context.Context, userID, current, next string) error {
	if userID == "" || current == "" || next == "" {
		return apperr.Validation("User ID, current password, and new password are required.")
	}
	if err := validatePassword(next); err != nil {
		return err
	}

	user, err := s.find(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(current, user.PasswordHash) {
		return apperr.Auth("Current password is incorrect.")
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return apperr.Internal("hashing password", err)
	}
	if err := s.users.SetPasswordHash(ctx, userID, hash); err != nil {
		return userError(err)
	}
	return nil
}

func (s *UserService) find(ctx context.Context, userID string) (*models.User, error) {
	if err := checkUserID(userID); err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, userError(err)
	}
	return user, nil
}

func checkUserID(userID string) error {
	if userID == "" {
		return apperr.Validation("User ID is required.")
	}
	return nil
}

func userError(err error) error {
	switch {
	case errors.Is(err, store.ErrInvalidID):
		return apperr.Validation("Invalid user ID.")
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("User not found.")
	}
	return apperr.Internal("accessing user", err)
}

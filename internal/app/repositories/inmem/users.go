package inmem

import (
	"context"
	"strings"
	"time"

	"github.com/yigit/schoolportal/internal/app/models"
	"github.com/yigit/schoolportal/internal/app/repositories"
	"github.com/yigit/schoolportal/internal/pkg/apperrors"
)

// UserRepository is the in-memory IUserRepository
type UserRepository struct{ s *Store }

var _ repositories.IUserRepository = (*UserRepository)(nil)

// Users returns the store's user repository
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

func (st *state) userByEmail(email string) *models.User {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range st.users {
		if strings.ToLower(u.Email) == email {
			return u
		}
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (int64, error) {
	st := r.s.lock()
	defer r.s.unlock()
	if st.userByEmail(user.Email) != nil {
		return 0, apperrors.ErrEmailAlreadyExists
	}
	now := time.Now()
	user.ID = st.next("users")
	user.Email = strings.TrimSpace(user.Email)
	user.CreatedAt, user.UpdatedAt = now, now
	c := *user
	st.users[user.ID] = &c
	return user.ID, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	st := r.s.lock()
	defer r.s.unlock()
	u, ok := st.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	st := r.s.lock()
	defer r.s.unlock()
	u := st.userByEmail(email)
	if u == nil {
		return nil, apperrors.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	st := r.s.lock()
	defer r.s.unlock()
	return st.userByEmail(email) != nil, nil
}

func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	return r.mutate(user.ID, func(st *state, u *models.User) error {
		if other := st.userByEmail(user.Email); other != nil && other.ID != user.ID {
			return apperrors.ErrEmailAlreadyExists
		}
		u.Email = strings.TrimSpace(user.Email)
		u.FirstName = user.FirstName
		u.LastName = user.LastName
		return nil
	})
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return r.mutate(id, func(_ *state, u *models.User) error { u.Password = passwordHash; return nil })
}

func (r *UserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	return r.mutate(id, func(_ *state, u *models.User) error { u.IsActive = active; return nil })
}

func (r *UserRepository) MarkEmailVerified(ctx context.Context, id int64) error {
	return r.mutate(id, func(_ *state, u *models.User) error { u.EmailVerified = true; return nil })
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	return r.mutate(id, func(_ *state, u *models.User) error { u.LastLoginAt = &at; return nil })
}

func (r *UserRepository) mutate(id int64, fn func(*state, *models.User) error) error {
	st := r.s.lock()
	defer r.s.unlock()
	u, ok := st.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	c := *u
	if err := fn(st, &c); err != nil {
		return err
	}
	c.UpdatedAt = time.Now()
	st.users[id] = &c
	return nil
}

func (r *UserRepository) List(ctx context.Context, filter models.UserFilter, offset, limit uint64) ([]*models.User, int64, error) {
	st := r.s.lock()
	defer r.s.unlock()
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var out []*models.User
	for _, u := range st.users {
		if filter.RoleType != nil && u.RoleType != *filter.RoleType {
			continue
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		if search != "" && !containsAny(search, u.Email, u.FirstName, u.LastName) {
			continue
		}
		c := *u
		out = append(out, &c)
	}
	sortByID(out, func(u *models.User) int64 { return u.ID }, true)
	return page(out, offset, limit), int64(len(out)), nil
}

func containsAny(needle string, haystacks ...string) bool {
	for _, h := range haystacks {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}

// TokenRepository is the in-memory ITokenRepository
type TokenRepository struct{ s *Store }

var _ repositories.ITokenRepository = (*TokenRepository)(nil)

// Tokens returns the store's refresh token repository
func (s *Store) Tokens() *TokenRepository { return &TokenRepository{s: s} }

func (r *TokenRepository) CreateToken(ctx context.Context, token string, userID int64, expiryDate time.Time) error {
	st := r.s.lock()
	defer r.s.unlock()
	if _, ok := st.tokens[token]; ok {
		return apperrors.ErrTokenInvalid
	}
	st.tokens[token] = &models.RefreshToken{Token: token, UserID: userID, ExpiryDate: expiryDate, CreatedAt: time.Now()}
	return nil
}

func (r *TokenRepository) GetToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	st := r.s.lock()
	defer r.s.unlock()
	t, ok := st.tokens[token]
	if !ok {
		return nil, apperrors.ErrTokenNotFound
	}
	c := *t
	return &c, nil
}

func (r *TokenRepository) RevokeToken(ctx context.Context, token string) error {
	st := r.s.lock()
	defer r.s.unlock()
	t, ok := st.tokens[token]
	if !ok {
		return apperrors.ErrTokenNotFound
	}
	c := *t
	c.IsRevoked = true
	st.tokens[token] = &c
	return nil
}

func (r *TokenRepository) RevokeAllUserTokens(ctx context.Context, userID int64) error {
	st := r.s.lock()
	defer r.s.unlock()
	for k, t := range st.tokens {
		if t.UserID == userID && !t.IsRevoked {
			c := *t
			c.IsRevoked = true
			st.tokens[k] = &c
		}
	}
	return nil
}

func (r *TokenRepository) CleanupExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	st := r.s.lock()
	defer r.s.unlock()
	var n int64
	for k, t := range st.tokens {
		if t.ExpiryDate.Before(now) || (t.IsRevoked && t.CreatedAt.Before(now.Add(-30*24*time.Hour))) {
			delete(st.tokens, k)
			n++
		}
	}
	return n, nil
}

// OTPRepository is the in-memory IOTPRepository
type OTPRepository struct{ s *Store }

var _ repositories.IOTPRepository = (*OTPRepository)(nil)

// OTPCodes returns the store's one-time code repository
func (s *Store) OTPCodes() *OTPRepository { return &OTPRepository{s: s} }

func sameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func (r *OTPRepository) Create(ctx context.Context, code *models.OTPCode) error {
	st := r.s.lock()
	defer r.s.unlock()
	code.ID = st.next("otp_codes")
	if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now()
	}
	c := *code
	st.otpCodes[code.ID] = &c
	return nil
}

func (r *OTPRepository) CountSince(ctx context.Context, email string, purpose models.OTPPurpose, since time.Time) (int, error) {
	st := r.s.lock()
	defer r.s.unlock()
	n := 0
	for _, c := range st.otpCodes {
		if sameEmail(c.Email, email) && c.Purpose == purpose && !c.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *OTPRepository) InvalidateActive(ctx context.Context, email string, purpose models.OTPPurpose, at time.Time) error {
	st := r.s.lock()
	defer r.s.unlock()
	for id, c := range st.otpCodes {
		if sameEmail(c.Email, email) && c.Purpose == purpose && c.UsedAt == nil {
			cp := *c
			cp.UsedAt = &at
			st.otpCodes[id] = &cp
		}
	}
	return nil
}

func (r *OTPRepository) GetLatestActive(ctx context.Context, email string, purpose models.OTPPurpose, now time.Time) (*models.OTPCode, error) {
	st := r.s.lock()
	defer r.s.unlock()
	var latest *models.OTPCode
	for _, c := range st.otpCodes {
		if !sameEmail(c.Email, email) || c.Purpose != purpose || c.UsedAt != nil || !c.ExpiresAt.After(now) {
			continue
		}
		if latest == nil || c.ID > latest.ID {
			latest = c
		}
	}
	if latest == nil {
		return nil, apperrors.ErrInvalidOTP
	}
	c := *latest
	return &c, nil
}

func (r *OTPRepository) ReserveAttempt(ctx context.Context, id int64, maxAttempts int) (int, error) {
	st := r.s.lock()
	defer r.s.unlock()
	c, ok := st.otpCodes[id]
	if !ok || c.UsedAt != nil || c.Attempts >= maxAttempts {
		return 0, apperrors.ErrOTPAttemptsExceeded
	}
	cp := *c
	cp.Attempts++
	st.otpCodes[id] = &cp
	return cp.Attempts, nil
}

func (r *OTPRepository) MarkUsed(ctx context.Context, id int64, at time.Time) error {
	st := r.s.lock()
	defer r.s.unlock()
	c, ok := st.otpCodes[id]
	if !ok || c.UsedAt != nil {
		return apperrors.ErrInvalidOTP
	}
	cp := *c
	cp.UsedAt = &at
	st.otpCodes[id] = &cp
	return nil
}

func (r *OTPRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	st := r.s.lock()
	defer r.s.unlock()
	var n int64
	for id, c := range st.otpCodes {
		if c.ExpiresAt.Before(before) {
			delete(st.otpCodes, id)
			n++
		}
	}
	return n, nil
}

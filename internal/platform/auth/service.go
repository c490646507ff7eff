package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"academy-backend/internal/platform/apperr"
)

const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// Principal is the authenticated caller. The zero value means "nobody".
type Principal struct {
	UserID int64
	Role   string
}

func (p Principal) IsZero() bool { return p.UserID <= 0 }

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type Service struct {
	store  AccountStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(db *sql.DB, secret []byte, ttl time.Duration) *Service {
	return &Service{store: NewStore(db), secret: secret, ttl: ttl, now: time.Now}
}

type LoginResult struct {
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	Name      string    `json:"name"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login checks the credentials of a staff account and issues a signed token.
// Students cannot sign in to the admin surface.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginResult{}, apperr.Invalid("Email and password are required.")
	}

	acct, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return LoginResult{}, apperr.Internal("Login failed", err)
	}
	if acct == nil {
		return LoginResult{}, apperr.Unauthenticated("Invalid email or password.")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, apperr.Unauthenticated("Invalid email or password.")
	}
	if acct.Role != RoleAdmin && acct.Role != RoleTeacher {
		return LoginResult{}, apperr.Forbidden("This account cannot access the admin portal.")
	}

	p := Principal{UserID: acct.ID, Role: acct.Role}
	token, exp, err := s.Issue(p)
	if err != nil {
		return LoginResult{}, apperr.Internal("Login failed", err)
	}
	return LoginResult{Token: token, Role: acct.Role, Name: acct.Name, ExpiresAt: exp}, nil
}

// Issue signs an HS256 token for p.
func (s *Service) Issue(p Principal) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(p.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// ParseToken verifies tokenStr against secret and returns its principal.
func ParseToken(secret []byte, tokenStr string) (Principal, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Principal{}, err
	}
	if !token.Valid {
		return Principal{}, errors.New("invalid token")
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return Principal{}, errors.New("invalid sub")
	}
	return Principal{UserID: id, Role: claims.Role}, nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repos"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrBadCreds     = errors.New("invalid email or password")
	ErrEmailTaken   = repos.ErrEmailTaken
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrUnknownUser  = errors.New("user not found")
)

const tokenIssuer = "storefront-sandbox"

// Claims carried by the sandbox's access tokens.
type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// AuthService issues and checks HS256 tokens for the sandbox users.
type AuthService struct {
	Users    *repos.UserRepo
	Secret   []byte
	Lifetime time.Duration
	Now      func() time.Time
}

func NewAuthService(users *repos.UserRepo, secret string, lifetime time.Duration) *AuthService {
	return &AuthService{Users: users, Secret: []byte(secret), Lifetime: lifetime, Now: time.Now}
}

func (s *AuthService) Login(email, password string) (string, *domain.User, error) {
	u, err := s.Users.ByEmail(email)
	if err != nil {
		return "", nil, ErrBadCreds
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return "", nil, ErrBadCreds
	}
	tok, err := s.GenerateToken(u.User)
	if err != nil {
		return "", nil, err
	}
	return tok, &u.User, nil
}

func (s *AuthService) Register(email, password, firstName, lastName string) (string, *domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("hash password: %w", err)
	}
	row := repos.UserRow{
		User: domain.User{
			ID:        uuid.NewString(),
			Email:     strings.ToLower(strings.TrimSpace(email)),
			FirstName: firstName,
			LastName:  lastName,
		},
		Hash: string(hash),
	}
	if err := s.Users.Create(row); err != nil {
		return "", nil, err
	}
	tok, err := s.GenerateToken(row.User)
	if err != nil {
		return "", nil, err
	}
	return tok, &row.User, nil
}

func (s *AuthService) GenerateToken(u domain.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: u.ID,
		Email:  u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.Lifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.Secret)
}

func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.Secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

func (s *AuthService) UpdateProfile(userID, firstName, lastName string) (*domain.User, error) {
	if err := s.Users.UpdateNames(userID, firstName, lastName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnknownUser
		}
		return nil, err
	}
	u, err := s.Users.ByID(userID)
	if err != nil {
		return nil, err
	}
	return &u.User, nil
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

package auth

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/xtrntr/otc/internal/db"
	"github.com/xtrntr/otc/internal/models"
)

// Principal is the authenticated caller extracted from a token.
type Principal struct {
	Address  string
	Username string
	Role     string
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool { return p.Role == "admin" }

// AuthService handles account registration and authentication. Every
// account gets a unique trading address minted at registration; the
// address is what the engine keys all state by.
type AuthService struct {
	DB     *db.DB
	secret []byte
}

// NewAuthService creates a new auth service with the JWT signing secret.
func NewAuthService(db *db.DB, secret string) *AuthService {
	return &AuthService{DB: db, secret: []byte(secret)}
}

// Register creates a new account with a hashed password and a fresh
// trading address.
func (s *AuthService) Register(ctx context.Context, username, password, role string) (*models.Account, error) {
	if username == "" {
		return nil, fmt.Errorf("username cannot be empty")
	}
	if password == "" {
		return nil, fmt.Errorf("password cannot be empty")
	}
	if len(username) > 50 {
		return nil, fmt.Errorf("username too long (max 50 characters)")
	}
	if len(password) > 100 {
		return nil, fmt.Errorf("password too long (max 100 characters)")
	}
	if role == "" {
		role = "trader"
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	account, err := s.DB.CreateAccount(ctx, username, string(hashedPassword), NewAddress(), role)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return account, nil
}

// EnsureAccount returns the named account, creating it if missing. Used at
// startup for the admin account and by the seed tool.
func (s *AuthService) EnsureAccount(ctx context.Context, username, password, role string) (*models.Account, error) {
	if account, err := s.DB.GetAccountByUsername(ctx, username); err == nil {
		return account, nil
	}
	return s.Register(ctx, username, password, role)
}

// Login verifies credentials and generates a JWT carrying the trading
// address and role.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	account, err := s.DB.GetAccountByUsername(ctx, username)
	if err != nil {
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"address":  account.Address,
		"username": account.Username,
		"role":     account.Role,
		"exp":      time.Now().Add(24 * time.Hour).Unix(),
	})

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// PrincipalFromToken validates a JWT and extracts the caller identity.
func (s *AuthService) PrincipalFromToken(tokenString string) (Principal, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return Principal{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Principal{}, fmt.Errorf("invalid token")
	}

	address, _ := claims["address"].(string)
	if address == "" {
		return Principal{}, fmt.Errorf("token has no address claim")
	}
	username, _ := claims["username"].(string)
	role, _ := claims["role"].(string)
	return Principal{Address: address, Username: username, Role: role}, nil
}

// NewAddress mints a unique trading address.
func NewAddress() string {
	id := uuid.New()
	return "0x" + hex.EncodeToString(id[:])
}

package jwt

import (
	"context"
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Roles carried in the "role" claim.
const (
	RoleEmployee = "employee"
	RoleManager  = "manager"
	RoleAdmin    = "admin"
)

const tokenTypeAccess = "access"

var (
	ErrInvalidToken      = errors.New("invalid or missing access token")
	ErrEmployeeIDMissing = errors.New("employee_id not found in token")
)

// Claims is the subset of the access token the API relies on.
type Claims struct {
	UserID     string
	EmployeeID string
	Role       string
}

// CanActForOthers reports whether the caller may read another employee's data.
func (c Claims) CanActForOthers() bool {
	return c.Role == RoleAdmin || c.Role == RoleManager
}

type Service interface {
	GenerateAccessToken(userID string, employeeID string, role string) (token string, expiresAt int64, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenExpirationTime time.Duration
	tokenAuth                 *jwtauth.JWTAuth
}

func NewJWTService(secretKey string, accessTokenExpirationTime time.Duration) Service {
	return &JWTService{
		accessTokenExpirationTime: accessTokenExpirationTime,
		tokenAuth:                 jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

// GenerateAccessToken signs a token in the shape the identity provider issues.
// The service itself only verifies tokens; this is used by tooling and tests.
func (j *JWTService) GenerateAccessToken(userID string, employeeID string, role string) (token string, expiresAt int64, err error) {
	expiresAt = time.Now().Add(j.accessTokenExpirationTime).Unix()

	claims := map[string]interface{}{
		"user_id":     userID,
		"employee_id": employeeID,
		"role":        role,
		"type":        tokenTypeAccess,
		"exp":         expiresAt,
	}

	_, tokenString, err := j.tokenAuth.Encode(claims)
	return tokenString, expiresAt, err
}

// IsAccessToken reports whether a claim map came from an access token.
func IsAccessToken(claims map[string]interface{}) bool {
	tokenType, ok := claims["type"].(string)
	return ok && tokenType == tokenTypeAccess
}

// ClaimsFromContext reads the verified token placed in ctx by jwtauth.Verifier.
func ClaimsFromContext(ctx context.Context) (Claims, error) {
	_, raw, err := jwtauth.FromContext(ctx)
	if err != nil || raw == nil {
		return Claims{}, ErrInvalidToken
	}

	userID, _ := raw["user_id"].(string)
	employeeID, _ := raw["employee_id"].(string)
	role, _ := raw["role"].(string)

	return Claims{UserID: userID, EmployeeID: employeeID, Role: role}, nil
}

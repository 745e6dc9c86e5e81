package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/qtdeferred/internal/rbac"
)

type AuthService struct {
	hmac          []byte
	adminUser     string
	adminPassHash []byte
	allowDevLogin bool
	now           func() time.Time
}

type Option func(*AuthService)

// WithAdmin enables admin login against a bcrypt hash.
func WithAdmin(user, bcryptHash string) Option {
	return func(a *AuthService) {
		a.adminUser = user
		a.adminPassHash = []byte(bcryptHash)
	}
}

// WithDevLogin accepts "student:student" and "teacher:teacher" style logins.
func WithDevLogin(on bool) Option { return func(a *AuthService) { a.allowDevLogin = on } }

func NewAuthService(secret string, opts ...Option) *AuthService {
	a := &AuthService{hmac: []byte(secret), now: time.Now}
	for _, o := range opts {
		o(a)
	}
	return a
}

type Claims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"` // "admin", "teacher" or "student"
	jwt.RegisteredClaims
}

func (a *AuthService) IssueJWT(sub, role string) (string, error) {
	now := a.now()
	claims := &Claims{
		Sub:  sub,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "qtdeferred",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(8 * time.Hour)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.hmac)
}

func (a *AuthService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return c, nil
}

// Authenticate resolves a username/password pair to a role.
func (a *AuthService) Authenticate(user, pass, role string) (string, error) {
	if a.adminUser != "" && user == a.adminUser && len(a.adminPassHash) > 0 {
		if bcrypt.CompareHashAndPassword(a.adminPassHash, []byte(pass)) != nil {
			return "", errors.New("invalid credentials")
		}
		return "admin", nil
	}
	if a.allowDevLogin && user != "" && user == pass && (role == "teacher" || role == "student") {
		return role, nil
	}
	return "", errors.New("invalid credentials")
}

// POST /auth/login  { "username": "...", "password": "...", "role": "teacher|student" }
func LoginHandler(a *AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
			Role     string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		role, err := a.Authenticate(req.Username, req.Password, req.Role)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		tok, err := a.IssueJWT(req.Username, role)
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": tok, "role": role})
	}
}

// JWTMiddleware checks the bearer token and puts subject and role in the context.
func JWTMiddleware(a *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				http.Error(w, "missing bearer", http.StatusUnauthorized)
				return
			}
			c, err := a.Parse(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				http.Error(w, "bad token", http.StatusUnauthorized)
				return
			}
			ctx := rbac.WithSubject(r.Context(), c.Sub)
			ctx = rbac.WithRole(ctx, c.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

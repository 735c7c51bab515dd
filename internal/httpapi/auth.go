package httpapi

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"mustawda/backend/internal/domain"
	"mustawda/backend/internal/service"
	"mustawda/backend/internal/session"
)

var (
	errInvalidToken  = errors.New("الجلسة غير صالحة أو منتهية")
	errMissingBearer = errors.New("يجب تسجيل الدخول أولاً")
	errForbiddenRole = errors.New("ليس لديك صلاحية للوصول إلى هذا المورد")
)

type AuthManager struct {
	secret      []byte
	tokenTTL    time.Duration
	users       *service.Service
	revocations session.Revocations
	now         func() time.Time
}

type accessClaims struct {
	jwtlib.RegisteredClaims
	Role     string `json:"role"`
	Username string `json:"username"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, users *service.Service, revocations session.Revocations) *AuthManager {
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	if revocations == nil {
		revocations = session.NewMemory()
	}
	return &AuthManager{
		secret:      []byte(secret),
		tokenTTL:    tokenTTL,
		users:       users,
		revocations: revocations,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	user, err := a.users.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	expiresAt := a.now().Add(a.tokenTTL)
	token, err := a.sign(user, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		Success:   true,
		User:      user,
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) parseClaims(tokenStr string) (*accessClaims, error) {
	claims := &accessClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, errInvalidToken
	}
	return claims, nil
}

// ParseToken verifies a bearer token and reloads its user. The role is taken
// from the stored account so demotions apply to tokens already issued.
func (a *AuthManager) ParseToken(ctx context.Context, tokenStr string) (domain.Actor, error) {
	claims, err := a.parseClaims(tokenStr)
	if err != nil {
		return domain.Actor{}, err
	}

	revoked, err := a.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return domain.Actor{}, err
	}
	if revoked {
		return domain.Actor{}, errInvalidToken
	}

	user, err := a.users.GetUser(ctx, claims.Subject)
	if err != nil || !user.IsActive {
		return domain.Actor{}, errInvalidToken
	}
	return domain.Actor{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		TokenID:  claims.ID,
	}, nil
}

// Logout revokes the token until its own expiry.
func (a *AuthManager) Logout(ctx context.Context, tokenStr string) error {
	claims, err := a.parseClaims(tokenStr)
	if err != nil {
		return err
	}
	until := a.now().Add(a.tokenTTL)
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	return a.revocations.Revoke(ctx, claims.ID, until)
}

func (a *AuthManager) sign(user domain.User, expiresAt time.Time) (string, error) {
	claims := accessClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwtlib.NewNumericDate(a.now()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "mustawda",
		},
		Role:     user.Role,
		Username: user.Username,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func bearerToken(r *http.Request) (string, bool) {
	authorization := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(authorization[len("Bearer "):])
	return token, token != ""
}

// requireAuth admits any signed-in user when roles is empty.
func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": errMissingBearer.Error()})
			return
		}

		actor, err := a.auth.ParseToken(r.Context(), token)
		if err != nil {
			if !errors.Is(err, errInvalidToken) {
				a.writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": err.Error()})
			return
		}

		if len(roles) > 0 && !slices.Contains(roles, actor.Role) {
			writeJSON(w, http.StatusForbidden, map[string]any{"error": errForbiddenRole.Error()})
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

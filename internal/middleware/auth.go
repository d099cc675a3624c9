// Package middleware содержит HTTP middleware сервера печати этикеток.
package middleware

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmeshcher/labelprint/internal/apperr"
	"github.com/mmeshcher/labelprint/internal/model"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity описывает владельца bearer-токена.
type Identity struct {
	UserID int64
	Name   string
	Role   model.Role
}

// Claims содержит поля токена.
type Claims struct {
	UserID int64      `json:"user_id"`
	Name   string     `json:"name"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware выдаёт и проверяет bearer-токены, подписанные HMAC-SHA256.
type AuthMiddleware struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware с указанным секретным ключом.
// Без ключа используется случайный: токены перестают действовать после перезапуска.
func NewAuthMiddleware(secret string, ttl time.Duration) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}

	return &AuthMiddleware{
		secretKey: key,
		ttl:       ttl,
		now:       time.Now,
	}
}

// IssueToken подписывает токен для пользователя.
func (a *AuthMiddleware) IssueToken(u model.User) (string, error) {
	now := a.now()
	claims := Claims{
		UserID: u.ID,
		Name:   u.Name,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Name,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Parse проверяет подпись и срок действия токена.
func (a *AuthMiddleware) Parse(tokenString string) (Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secretKey, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		return Identity{}, err
	}
	if !token.Valid {
		return Identity{}, jwt.ErrTokenSignatureInvalid
	}

	return Identity{UserID: claims.UserID, Name: claims.Name, Role: claims.Role}, nil
}

// UserLookup возвращает текущий профиль пользователя по идентификатору.
type UserLookup interface {
	AdminInfo(ctx context.Context, userID int64) (model.Profile, error)
}

// Authenticate проверяет заголовок Authorization и добавляет владельца токена в контекст запроса.
// Если users задан, пользователь перечитывается на каждом запросе: удалённый получает 401,
// а роль и имя берутся из базы, а не из токена.
func (a *AuthMiddleware) Authenticate(users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			scheme, tokenString, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			id, err := a.Parse(strings.TrimSpace(tokenString))
			if err != nil {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			if users != nil {
				profile, err := users.AdminInfo(r.Context(), id.UserID)
				switch {
				case apperr.KindOf(err) == apperr.KindNotFound:
					http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
					return
				case err != nil:
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				id.Name = profile.Name
				id.Role = profile.Role
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireAdmin пропускает только владельцев токена с ролью администратора.
// Должен стоять после Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		if !id.Role.IsElevated() {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithIdentity кладёт владельца токена в контекст.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext извлекает владельца токена из контекста запроса.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

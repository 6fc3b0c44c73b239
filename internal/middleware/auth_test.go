package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papertrade/internal/domain"
)

func serve(t *testing.T, p *AuthProvider, req *http.Request, mw ...echo.MiddlewareFunc) (*httptest.ResponseRecorder, uuid.UUID) {
	t.Helper()

	e := echo.New()
	var seen uuid.UUID
	h := func(c echo.Context) error {
		id, err := GetUserID(c)
		if err != nil {
			return err
		}
		seen = id
		return c.NoContent(http.StatusNoContent)
	}
	e.GET("/", h, append([]echo.MiddlewareFunc{p.Middleware}, mw...)...)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, seen
}

func TestTokenRoundTrip(t *testing.T) {
	p := NewAuthProvider("secret", time.Hour)
	id := uuid.New()

	token, err := p.GenerateToken(id, domain.RoleUser)
	require.NoError(t, err)

	claims, err := p.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, domain.RoleUser, claims.Role)

	_, err = NewAuthProvider("other", time.Hour).ParseToken(token)
	assert.Error(t, err)
}

func TestExpiredToken(t *testing.T) {
	p := NewAuthProvider("secret", time.Minute)
	issued := time.Now().Add(-time.Hour)
	p.now = func() time.Time { return issued }

	token, err := p.GenerateToken(uuid.New(), domain.RoleUser)
	require.NoError(t, err)

	p.now = time.Now
	_, err = p.ParseToken(token)
	assert.Error(t, err)
}

func TestMiddlewareBearerAndCookie(t *testing.T) {
	p := NewAuthProvider("secret", time.Hour)
	id := uuid.New()
	token, err := p.GenerateToken(id, domain.RoleUser)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec, seen := serve(t, p, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, id, seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: token})
	rec, seen = serve(t, p, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, id, seen)
}

func TestMiddlewareRejects(t *testing.T) {
	p := NewAuthProvider("secret", time.Hour)

	cases := map[string]string{
		"missing":   "",
		"no scheme": "abc",
		"garbage":   "Bearer abc.def.ghi",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec, _ := serve(t, p, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestAdminMiddleware(t *testing.T) {
	p := NewAuthProvider("secret", time.Hour)

	userToken, err := p.GenerateToken(uuid.New(), domain.RoleUser)
	require.NoError(t, err)
	adminToken, err := p.GenerateToken(uuid.New(), domain.RoleAdmin)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	rec, _ := serve(t, p, req, AdminMiddleware)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec, _ = serve(t, p, req, AdminMiddleware)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

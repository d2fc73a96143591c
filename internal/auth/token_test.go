package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/millrun/internal/config"
	"github.com/smallbiznis/millrun/internal/errs"
	obscontext "github.com/smallbiznis/millrun/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	v := NewVerifierWithSecret("s3cret")
	token, err := v.Issue(Actor{ID: 42, Role: "sales", SessionID: "sess-1"}, time.Minute)
	require.NoError(t, err)

	actor, err := v.Verify(token)
	require.NoError(t, err)
	assert.EqualValues(t, 42, actor.ID)
	assert.Equal(t, "sales", actor.Role)
	assert.Equal(t, "sess-1", actor.SessionID)
}

func TestVerifyAcceptsNumericID(t *testing.T) {
	v := NewVerifierWithSecret("s3cret")
	claims := jwt.MapClaims{
		"id":   7,
		"role": "admin",
		"type": "access",
		"iss":  TokenIssuer,
		"aud":  TokenAudience,
		"exp":  time.Now().Add(time.Minute).Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	actor, err := v.Verify(raw)
	require.NoError(t, err)
	assert.EqualValues(t, 7, actor.ID)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	v := NewVerifierWithSecret("s3cret")

	expired, err := v.Issue(Actor{ID: 1, Role: "admin"}, -time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := NewVerifierWithSecret("other").Issue(Actor{ID: 1, Role: "admin"}, time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	refresh := jwt.MapClaims{"id": "1", "role": "admin", "type": "refresh", "iss": TokenIssuer, "aud": TokenAudience, "exp": time.Now().Add(time.Minute).Unix()}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refresh).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = v.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noRole, err := v.Issue(Actor{ID: 1}, time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(noRole)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewVerifierRequiresSecretInProduction(t *testing.T) {
	_, err := NewVerifier(config.Config{Environment: "production"})
	assert.ErrorIs(t, err, ErrMissingSecret)

	v, err := NewVerifier(config.Config{Environment: "development"})
	require.NoError(t, err)
	assert.NotNil(t, v)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	v := NewVerifierWithSecret("s3cret")

	var seen Actor
	var obsRole string
	r := gin.New()
	r.GET("/me", Middleware(v), func(c *gin.Context) {
		seen, _ = ActorFromGin(c)
		_, obsRole = obscontext.ActorFromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	token, err := v.Issue(Actor{ID: 9, Role: "cashier"}, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.EqualValues(t, 9, seen.ID)
	assert.Equal(t, "cashier", obsRole)

	var captured error
	r2 := gin.New()
	r2.Use(func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 {
			captured = c.Errors.Last().Err
		}
	})
	r2.GET("/me", Middleware(v), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w = httptest.NewRecorder()
	r2.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	require.Error(t, captured)
	assert.Equal(t, errs.KindUnauthorized, errs.KindOf(captured))
}

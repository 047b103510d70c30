package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/ravirajbabasomane202/PCMCApp/internal/models"
	appErrors "github.com/ravirajbabasomane202/PCMCApp/pkg/errors"
)

type validatorStub struct {
	claims *models.JWTClaims
	token  string
}

func (v *validatorStub) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	v.token = tokenString
	if v.claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return v.claims, nil
}

type observation struct {
	method string
	path   string
	status int
}

type observerStub struct {
	seen []observation
}

func (o *observerStub) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	o.seen = append(o.seen, observation{method: method, path: path, status: status})
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(handlers...)
	router.GET("/grievances/:id", func(c *gin.Context) {
		value, _ := c.Get(ContextUserKey)
		claims, _ := value.(*models.JWTClaims)
		if claims == nil {
			c.Status(http.StatusNoContent)
			return
		}
		c.String(http.StatusOK, claims.UserID)
	})
	return router
}

func serve(router *gin.Engine, header string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/grievances/g-1", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestJWTAttachesClaims(t *testing.T) {
	validator := &validatorStub{claims: &models.JWTClaims{UserID: "citizen-1", Role: models.RoleCitizen}}
	recorder := serve(newRouter(JWT(validator)), "Bearer abc.def")

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "citizen-1", recorder.Body.String())
	assert.Equal(t, "abc.def", validator.token)
}

func TestJWTRejectsMissingOrMalformedHeader(t *testing.T) {
	router := newRouter(JWT(&validatorStub{claims: &models.JWTClaims{UserID: "citizen-1"}}))

	assert.Equal(t, http.StatusUnauthorized, serve(router, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "Bearer ").Code)
}

func TestJWTRejectsInvalidToken(t *testing.T) {
	recorder := serve(newRouter(JWT(&validatorStub{})), "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestRequireRoles(t *testing.T) {
	admin := &validatorStub{claims: &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}}
	citizen := &validatorStub{claims: &models.JWTClaims{UserID: "citizen-1", Role: models.RoleCitizen}}

	allowed := serve(newRouter(JWT(admin), RequireRoles(models.RoleAdmin)), "Bearer t")
	assert.Equal(t, http.StatusOK, allowed.Code)

	denied := serve(newRouter(JWT(citizen), RequireRoles(models.RoleAdmin, models.RoleMemberHead)), "Bearer t")
	assert.Equal(t, http.StatusForbidden, denied.Code)

	anonymous := serve(newRouter(RequireRoles(models.RoleAdmin)), "")
	assert.Equal(t, http.StatusUnauthorized, anonymous.Code)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	observer := &observerStub{}
	router := newRouter(Metrics(observer))

	serve(router, "")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/missing/path", nil))

	if assert.Len(t, observer.seen, 2) {
		assert.Equal(t, observation{method: http.MethodGet, path: "/grievances/:id", status: http.StatusNoContent}, observer.seen[0])
		assert.Equal(t, "unmatched", observer.seen[1].path)
		assert.Equal(t, http.StatusNotFound, observer.seen[1].status)
	}
}

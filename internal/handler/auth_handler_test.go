package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-health-api/internal/models"
	appErrors "github.com/noah-isme/school-health-api/pkg/errors"
)

func TestAuthHandlerLogin(t *testing.T) {
	svc := &authServiceMock{}
	handler := NewAuthHandler(svc)

	c, w := newGinContext(http.MethodPost, "/auth/login", []byte(`{"email":"nurse@school.test","password":"secret"}`))
	c.Request.Header.Set("User-Agent", "scale-bridge/1.0")
	handler.Login(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nurse@school.test", svc.loginReq.Email)
	assert.Equal(t, "scale-bridge/1.0", svc.loginReq.UserAgent)
	assert.Contains(t, w.Body.String(), `"access_token":"access"`)
}

func TestAuthHandlerLoginErrors(t *testing.T) {
	handler := NewAuthHandler(&authServiceMock{loginErr: appErrors.ErrUnauthorized})

	c, w := newGinContext(http.MethodPost, "/auth/login", []byte(`{"email":`))
	handler.Login(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newGinContext(http.MethodPost, "/auth/login", []byte(`{"email":"a@b.c","password":"x"}`))
	handler.Login(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandlerLogoutAndMe(t *testing.T) {
	svc := &authServiceMock{}
	handler := NewAuthHandler(svc)

	c, w := newGinContext(http.MethodPost, "/auth/logout", []byte(`{"refresh_token":"r"}`))
	withUser(c, "u-9", models.RoleNurse)
	handler.Logout(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "u-9", svc.logoutUser)

	c, w = newGinContext(http.MethodGet, "/auth/me", nil)
	handler.Me(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newGinContext(http.MethodGet, "/auth/me", nil)
	withUser(c, "u-9", models.RoleNurse)
	handler.Me(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"NURSE"`)
}

func TestAuthHandlerRegisterUser(t *testing.T) {
	svc := &authServiceMock{}
	handler := NewAuthHandler(svc)

	c, w := newGinContext(http.MethodPost, "/auth/users", []byte(`{"email":"nurse2@school.test","password":"longenough","full_name":"Second Nurse","role":"NURSE"}`))
	withUser(c, "admin-1", models.RoleAdmin)
	handler.RegisterUser(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "admin-1", svc.actor)
	assert.Equal(t, models.RoleNurse, svc.registered.Role)
	assert.Contains(t, w.Body.String(), `"id":"u-new"`)
}

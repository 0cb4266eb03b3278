package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/civoranexus/eduvillage-api/internal/middleware"
	"github.com/civoranexus/eduvillage-api/internal/models"
	"github.com/civoranexus/eduvillage-api/internal/service"
)

type fakeUserRepo struct {
	userByEmail *models.User
	userByID    *models.User
	profile     *models.UserProfile
	emailTaken  bool
}

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = "user-new"
	return nil
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.userByEmail == nil {
		return nil, sql.ErrNoRows
	}
	return f.userByEmail, nil
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if f.userByID == nil {
		return nil, sql.ErrNoRows
	}
	return f.userByID, nil
}

func (f *fakeUserRepo) FindProfileByID(ctx context.Context, id string) (*models.UserProfile, error) {
	if f.profile == nil {
		return nil, sql.ErrNoRows
	}
	return f.profile, nil
}

func (f *fakeUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	return f.emailTaken, nil
}

func (f *fakeUserRepo) UpdateProfile(ctx context.Context, user *models.User) error {
	return nil
}

func (f *fakeUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	return nil
}

// envelopeData decodes the envelope's data field when it is a JSON object;
// for array payloads (list endpoints) it stays nil so tests that only read
// pagination still decode.
type envelopeData map[string]interface{}

func (d *envelopeData) UnmarshalJSON(b []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err == nil {
		*d = m
	}
	return nil
}

type envelopeBody struct {
	Data  envelopeData `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Status  int    `json:"status"`
	} `json:"error"`
	Pagination map[string]interface{} `json:"pagination"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelopeBody {
	t.Helper()
	var body envelopeBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func newAuthHandler(repo *fakeUserRepo) *AuthHandler {
	svc := service.NewAuthService(repo, nil, nil, service.AuthConfig{
		TokenSecret: "test-secret",
		TokenExpiry: time.Hour,
		Issuer:      "eduvillage-test",
	})
	return NewAuthHandler(svc)
}

func jsonRequest(method, target string, payload interface{}) *http.Request {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestAuthHandlerRegister(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAuthHandler(&fakeUserRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = jsonRequest(http.MethodPost, "/api/auth/register", models.RegisterRequest{
		Name: "Ada", Email: "ada@example.com", Password: "secret1",
	})

	handler.Register(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.NotEmpty(t, body.Data["token"])
}

func TestAuthHandlerRegisterEmailTaken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAuthHandler(&fakeUserRepo{emailTaken: true})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = jsonRequest(http.MethodPost, "/api/auth/register", models.RegisterRequest{
		Name: "Ada", Email: "ada@example.com", Password: "secret1",
	})

	handler.Register(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeEnvelope(t, rec)
	require.NotNil(t, body.Error)
	assert.Equal(t, "EMAIL_TAKEN", body.Error.Code)
}

func TestAuthHandlerRegisterMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAuthHandler(&fakeUserRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader([]byte("{not json")))

	handler.Register(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandlerLoginInvalidCredentials(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hash, err := bcrypt.GenerateFromPassword([]byte("right"), bcrypt.MinCost)
	require.NoError(t, err)
	handler := newAuthHandler(&fakeUserRepo{userByEmail: &models.User{
		ID: "user-1", Email: "ada@example.com", PasswordHash: string(hash), Active: true,
	}})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = jsonRequest(http.MethodPost, "/api/auth/login", models.LoginRequest{
		Email: "ada@example.com", Password: "wrong",
	})

	handler.Login(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeEnvelope(t, rec)
	require.NotNil(t, body.Error)
	assert.Equal(t, "INVALID_CREDENTIALS", body.Error.Code)
}

func TestAuthHandlerMeRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAuthHandler(&fakeUserRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)

	handler.Me(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandlerMe(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAuthHandler(&fakeUserRepo{profile: &models.UserProfile{
		User:          models.User{ID: "user-1", Name: "Ada", Email: "ada@example.com", Role: models.RoleStudent},
		EnrolledCount: 2,
	}})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent})

	handler.Me(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, "Ada", body.Data["name"])
	assert.Equal(t, float64(2), body.Data["enrolled_courses_count"])
}

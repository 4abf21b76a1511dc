package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"customer-api/internal/domain"
	apphttp "customer-api/internal/http"
	"customer-api/internal/repository/sqlite"
	"customer-api/internal/service"
)

const testJWTSecret = "test-secret-for-handler-tests"

type testServer struct {
	router *gin.Engine
	tokens service.TokenService
	logs   *bytes.Buffer
}

func newTestServer(t *testing.T, protectCustomers bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo := sqlite.NewDocumentRepository(db)
	require.NoError(t, repo.Init(context.Background()))

	customers := domain.CustomersResource()
	customers.Protected = protectCustomers

	logs := &bytes.Buffer{}
	logger := logrus.New()
	logger.SetOutput(logs)

	tokens := service.NewTokenService(testJWTSecret)
	handler := apphttp.NewHandler(tokens, logger, "http://localhost:5173",
		service.NewDocumentService(customers, repo),
		service.NewDocumentService(domain.UsersResource(), repo),
	)

	router := gin.New()
	handler.RegisterRoutes(router)
	return &testServer{router: router, tokens: tokens, logs: logs}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w.Code, out
}

func customerBody(username string) map[string]any {
	return map[string]any{
		"username":   username,
		"email":      username + "@example.com",
		"password":   "pw",
		"first_name": "First",
		"last_name":  "Last",
	}
}

func (s *testServer) create(t *testing.T, body map[string]any) string {
	t.Helper()
	code, out := s.do(t, http.MethodPost, "/customers", body)
	require.Equal(t, http.StatusCreated, code, out)
	data := out["data"].(map[string]any)
	return data["insertedId"].(string)
}

func TestCreateThenGetByUsername(t *testing.T) {
	s := newTestServer(t, false)

	code, out := s.do(t, http.MethodPost, "/customers", customerBody("alice"))
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Customer created successfully.", out["message"])
	data := out["data"].(map[string]any)
	assert.Equal(t, true, data["acknowledged"])
	id := data["insertedId"].(string)

	code, out = s.do(t, http.MethodGet, "/customers?username=alice", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Customers Retrieved Successfully.", out["message"])
	docs := out["data"].([]any)
	require.Len(t, docs, 1)
	doc := docs[0].(map[string]any)
	assert.Equal(t, id, doc["_id"])
	assert.Equal(t, "alice@example.com", doc["email"])
	assert.NotEmpty(t, doc["created_at"])
}

func TestListFilterReturnsExactMatch(t *testing.T) {
	s := newTestServer(t, false)
	s.create(t, customerBody("a"))
	s.create(t, customerBody("b"))

	code, out := s.do(t, http.MethodGet, "/customers?username=a", nil)
	require.Equal(t, http.StatusOK, code)
	docs := out["data"].([]any)
	require.Len(t, docs, 1)
	assert.Equal(t, "a", docs[0].(map[string]any)["username"])

	code, out = s.do(t, http.MethodGet, "/customers?email=b@example.com", nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, out["data"].([]any), 1)

	code, out = s.do(t, http.MethodGet, "/customers", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, out["data"].([]any), 2)

	code, out = s.do(t, http.MethodGet, "/customers?username=nobody", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{}, out["data"])
}

func TestMissingFieldsRejected(t *testing.T) {
	s := newTestServer(t, false)
	id := s.create(t, customerBody("alice"))

	body := customerBody("bob")
	delete(body, "password")
	body["first_name"] = ""

	for _, tc := range []struct {
		method, path string
	}{
		{http.MethodPost, "/customers"},
		{http.MethodPut, "/customers/" + id},
	} {
		code, out := s.do(t, tc.method, tc.path, body)
		require.Equal(t, http.StatusBadRequest, code, tc.method)
		assert.Equal(t, "Missing required values.", out["message"])
		assert.Equal(t, map[string]any{
			"username":   "bob",
			"email":      "bob@example.com",
			"password":   nil,
			"first_name": "",
			"last_name":  "Last",
		}, out["fields"])
		assert.Equal(t, []any{"password", "first_name"}, out["missing"])
	}

	_, out := s.do(t, http.MethodGet, "/customers", nil)
	docs := out["data"].([]any)
	require.Len(t, docs, 1)
	assert.Equal(t, "alice", docs[0].(map[string]any)["username"])
}

func TestUpdateKeepsUnsuppliedFields(t *testing.T) {
	s := newTestServer(t, false)
	body := customerBody("alice")
	body["phone"] = "555-0100"
	id := s.create(t, body)

	update := customerBody("alice")
	update["email"] = "alice@new.example.com"
	code, out := s.do(t, http.MethodPut, "/customers/"+id, update)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Customer updated successfully.", out["message"])
	data := out["data"].(map[string]any)
	assert.Equal(t, float64(1), data["matchedCount"])
	assert.Equal(t, float64(1), data["modifiedCount"])

	_, out = s.do(t, http.MethodGet, "/customers?username=alice", nil)
	docs := out["data"].([]any)
	require.Len(t, docs, 1)
	doc := docs[0].(map[string]any)
	assert.Equal(t, "alice@new.example.com", doc["email"])
	assert.Equal(t, "555-0100", doc["phone"])

	created, err := time.Parse(time.RFC3339Nano, doc["created_at"].(string))
	require.NoError(t, err)
	updated, err := time.Parse(time.RFC3339Nano, doc["updated_at"].(string))
	require.NoError(t, err)
	assert.True(t, updated.After(created))
}

func TestUpdateUnknownIDIsNoop(t *testing.T) {
	s := newTestServer(t, false)

	code, out := s.do(t, http.MethodPut, "/customers/7b0f7a4e-4f43-4d38-9b2b-3b8f0e1d2c11", customerBody("ghost"))
	require.Equal(t, http.StatusOK, code)
	data := out["data"].(map[string]any)
	assert.Equal(t, float64(0), data["matchedCount"])
}

func TestDeleteTwice(t *testing.T) {
	s := newTestServer(t, false)
	id := s.create(t, customerBody("alice"))

	code, out := s.do(t, http.MethodDelete, "/customers/"+id, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Customer deleted successfully.", out["message"])
	assert.Equal(t, float64(1), out["data"].(map[string]any)["deletedCount"])

	code, out = s.do(t, http.MethodDelete, "/customers/"+id, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), out["data"].(map[string]any)["deletedCount"])
}

func TestInvalidIdentifierIsServerError(t *testing.T) {
	s := newTestServer(t, false)

	code, out := s.do(t, http.MethodDelete, "/customers/not-an-id", nil)
	require.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Internal Server Error.", out["message"])
	assert.Contains(t, out["error"], "invalid identifier")

	code, out = s.do(t, http.MethodPut, "/customers/not-an-id", customerBody("alice"))
	require.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Internal Server Error: ", out["message"])
	assert.Contains(t, s.logs.String(), "request failed")
}

func TestInvalidBody(t *testing.T) {
	s := newTestServer(t, false)

	code, out := s.do(t, http.MethodPost, "/customers", "{not json")
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid request body.", out["message"])

	code, out = s.do(t, http.MethodPost, "/customers", "null")
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Missing required values.", out["message"])
}

func TestGenerateToken(t *testing.T) {
	s := newTestServer(t, false)

	code, out := s.do(t, http.MethodPost, "/generateToken", map[string]any{"username": "alice"})
	require.Equal(t, http.StatusOK, code)
	token, ok := out["token"].(string)
	require.True(t, ok)

	claims, err := s.tokens.Verify("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)

	code, out = s.do(t, http.MethodPost, "/generateToken", map[string]any{})
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Username is required.", out["error"])

	code, _ = s.do(t, http.MethodPost, "/generateToken", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	for _, falsy := range []any{"", 0, false, nil} {
		code, out = s.do(t, http.MethodPost, "/generateToken", map[string]any{"username": falsy})
		require.Equal(t, http.StatusBadRequest, code, "username %v", falsy)
		assert.Equal(t, "Username is required.", out["error"])
	}
}

func TestGenerateToken_TruthyNonStringUsernames(t *testing.T) {
	s := newTestServer(t, false)

	for username, want := range map[any]string{
		5:     "5",
		true:  "true",
		"   ": "   ",
	} {
		code, out := s.do(t, http.MethodPost, "/generateToken", map[string]any{"username": username})
		require.Equal(t, http.StatusOK, code, "username %v", username)

		claims, err := s.tokens.Verify("Bearer " + out["token"].(string))
		require.NoError(t, err)
		assert.Equal(t, want, claims.Username)
	}
}

func TestGenerateToken_WithoutSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	router := gin.New()
	apphttp.NewHandler(service.NewTokenService(""), logger, "http://localhost:5173").RegisterRoutes(router)

	req := httptest.NewRequest(http.MethodPost, "/generateToken", bytes.NewBufferString(`{"username":"alice"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "jwt secret is not configured")

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProtectedCustomers_MalformedHeaders(t *testing.T) {
	s := newTestServer(t, true)

	code, out := s.do(t, http.MethodGet, "/customers", nil, "Authorization", "Bearer a b")
	require.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Invalid or expired token.", out["error"])

	code, _ = s.do(t, http.MethodGet, "/customers", nil, "Authorization", "Bearer")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestCustomersOpenByDefault(t *testing.T) {
	s := newTestServer(t, false)

	code, _ := s.do(t, http.MethodGet, "/customers", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestProtectedCustomers(t *testing.T) {
	s := newTestServer(t, true)

	code, out := s.do(t, http.MethodGet, "/customers", nil)
	require.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Access Token Required", out["error"])

	code, out = s.do(t, http.MethodGet, "/customers", nil, "Authorization", "Bearer garbage")
	require.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Invalid or expired token.", out["error"])

	token, err := s.tokens.Issue("alice")
	require.NoError(t, err)
	code, _ = s.do(t, http.MethodPost, "/customers", customerBody("alice"), "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusCreated, code)
	assert.Contains(t, s.logs.String(), "username=alice")

	code, _ = s.do(t, http.MethodGet, "/users", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestUsersResource(t *testing.T) {
	s := newTestServer(t, false)

	code, out := s.do(t, http.MethodPost, "/users", map[string]any{"name": "Juan", "age": 30, "address": "Cebu"})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "User created successfully.", out["message"])

	code, out = s.do(t, http.MethodGet, "/users", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Users Retrieved Successfully.", out["message"])
	docs := out["data"].([]any)
	require.Len(t, docs, 1)
	assert.Equal(t, float64(30), docs[0].(map[string]any)["age"])
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodOptions, "/customers", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "authorization,content-type", w.Header().Get("Access-Control-Allow-Headers"))
}

func TestRootAndRequestID(t *testing.T) {
	s := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hello World!", w.Body.String())
	assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))
	assert.Contains(t, s.logs.String(), "request_id=req-1")
}

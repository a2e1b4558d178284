package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"whisperbox/internal/handlers"
	"whisperbox/internal/middleware"
	"whisperbox/internal/models"
	"whisperbox/internal/repositories"
	"whisperbox/internal/services"
	"whisperbox/pkg/openrouter"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testJWTSecret = "test_jwt_secret"

// setupApp builds a Fiber app for testing with an in-memory SQLite database
// and the given stub standing in for the suggestion provider.
func setupApp(t *testing.T, providerHandler http.HandlerFunc) (*fiber.App, *services.AuthService, *gorm.DB) {
	t.Helper()

	provider := httptest.NewServer(providerHandler)
	t.Cleanup(provider.Close)

	providerClient, err := openrouter.NewClient(openrouter.Config{
		URL:     provider.URL,
		APIKey:  "test-key",
		Timeout: time.Second,
	})
	require.NoError(t, err)

	// A per-test database keeps tests independent of each other
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Message{}))

	userRepo := repositories.NewGORMUserRepository(db)

	suggestionService := services.NewSuggestionService(providerClient, time.Second)
	availabilityService := services.NewAvailabilityService(userRepo)
	messageService := services.NewMessageService(userRepo, nil) // nil for RabbitMQ client
	authService := services.NewAuthService(userRepo, nil, testJWTSecret)

	suggestionHandler := handlers.NewSuggestionHandler(suggestionService)
	messageHandler := handlers.NewMessageHandler(messageService)
	authHandler := handlers.NewAuthHandler(authService, availabilityService)

	app := fiber.New()

	apiV1 := app.Group("/api/v1")
	suggestionHandler.RegisterRoutes(apiV1)
	messageHandler.RegisterRoutes(apiV1)
	authHandler.RegisterRoutes(apiV1)

	protected := apiV1.Group("", middleware.AuthRequired(authService))
	messageHandler.RegisterOwnerRoutes(protected)

	return app, authService, db
}

// okProvider answers with a well-formed suggestion triple.
func okProvider(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"One?||Two?||Three?"}}]}`))
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}, token string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(jsonBody)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1) // -1 for no timeout
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// registerVerified registers a user, reads the verification code straight
// from the database, confirms the account and returns a login token.
func registerVerified(t *testing.T, app *fiber.App, db *gorm.DB, username string) string {
	t.Helper()

	resp := doJSON(t, app, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	var user models.User
	require.NoError(t, db.First(&user, "username = ?", username).Error)

	resp = doJSON(t, app, http.MethodPost, "/api/v1/auth/verify", map[string]string{
		"username": username,
		"code":     user.VerifyCode,
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": username,
		"password": "password123",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	code := m.Run()
	os.Exit(code)
}

func TestRegisterVerifyLoginFlow(t *testing.T) {
	app, authService, db := setupApp(t, okProvider)

	userToRegister := map[string]string{
		"username": "testuser",
		"email":    "test@example.com",
		"password": "password123",
	}
	resp := doJSON(t, app, http.MethodPost, "/api/v1/auth/register", userToRegister, "")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Duplicate username is a conflict
	resp = doJSON(t, app, http.MethodPost, "/api/v1/auth/register", userToRegister, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Login is refused before verification
	login := map[string]string{"username": "testuser", "password": "password123"}
	resp = doJSON(t, app, http.MethodPost, "/api/v1/auth/login", login, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// A wrong code is rejected
	resp = doJSON(t, app, http.MethodPost, "/api/v1/auth/verify", map[string]string{
		"username": "testuser",
		"code":     "000000",
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// The stored code verifies the account
	var user models.User
	require.NoError(t, db.First(&user, "username = ?", "testuser").Error)
	resp = doJSON(t, app, http.MethodPost, "/api/v1/auth/verify", map[string]string{
		"username": "testuser",
		"code":     user.VerifyCode,
	}, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Login now succeeds and the token is valid
	resp = doJSON(t, app, http.MethodPost, "/api/v1/auth/login", login, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	claims, err := authService.ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, "testuser", claims["username"])
	assert.Contains(t, claims, "user_id")
}

func TestUsernameAvailability(t *testing.T) {
	app, _, db := setupApp(t, okProvider)
	registerVerified(t, app, db, "alice")

	cases := []struct {
		candidate string
		status    string
	}{
		{"alice", "taken"},
		{"alice2", "unique"},
		{"a", "invalid"},
		{"bad-name", "invalid"},
	}
	for _, tc := range cases {
		resp := doJSON(t, app, http.MethodGet, "/api/v1/username-availability?username="+tc.candidate, nil, "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, tc.status, body["status"], "candidate %q", tc.candidate)
		// The verdict echoes the evaluated candidate for stale-result discard
		assert.Equal(t, tc.candidate, body["username"])
		assert.NotEmpty(t, body["message"])
	}
}

func TestSendMessage(t *testing.T) {
	app, _, db := setupApp(t, okProvider)
	token := registerVerified(t, app, db, "alice")

	// A valid anonymous submission succeeds
	resp := doJSON(t, app, http.MethodPost, "/api/v1/messages", map[string]string{
		"username": "alice",
		"content":  "Hi there, loved your post!",
	}, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.NotEmpty(t, body["id"])

	// Too-short content is rejected with a specific reason
	resp = doJSON(t, app, http.MethodPost, "/api/v1/messages", map[string]string{
		"username": "alice",
		"content":  "short",
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Unknown recipient
	resp = doJSON(t, app, http.MethodPost, "/api/v1/messages", map[string]string{
		"username": "ghost",
		"content":  "A fairly normal message here",
	}, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// The owner sees exactly one message
	resp = doJSON(t, app, http.MethodGet, "/api/v1/messages", nil, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	messages, ok := body["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, messages, 1)

	// Owner routes require a token
	resp = doJSON(t, app, http.MethodGet, "/api/v1/messages", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestAcceptMessagesToggle(t *testing.T) {
	app, _, db := setupApp(t, okProvider)
	token := registerVerified(t, app, db, "bob")

	// Accepting by default
	resp := doJSON(t, app, http.MethodGet, "/api/v1/accept-messages", nil, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, true, body["isAcceptingMessages"])

	// Close the inbox
	resp = doJSON(t, app, http.MethodPatch, "/api/v1/accept-messages", map[string]bool{
		"acceptMessages": false,
	}, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Submissions are now refused and nothing is appended
	resp = doJSON(t, app, http.MethodPost, "/api/v1/messages", map[string]string{
		"username": "bob",
		"content":  "A message for a closed inbox",
	}, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, "/api/v1/messages", nil, token)
	body = decodeBody(t, resp)
	messages, ok := body["messages"].([]interface{})
	require.True(t, ok)
	assert.Empty(t, messages)
}

func TestDeleteMessage(t *testing.T) {
	app, _, db := setupApp(t, okProvider)
	token := registerVerified(t, app, db, "alice")

	resp := doJSON(t, app, http.MethodPost, "/api/v1/messages", map[string]string{
		"username": "alice",
		"content":  "A message to be deleted",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	messageID, _ := body["id"].(string)
	require.NotEmpty(t, messageID)

	resp = doJSON(t, app, http.MethodDelete, "/api/v1/messages/"+messageID, nil, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Deleting again is a 404
	resp = doJSON(t, app, http.MethodDelete, "/api/v1/messages/"+messageID, nil, token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, "/api/v1/messages", nil, token)
	body = decodeBody(t, resp)
	messages, ok := body["messages"].([]interface{})
	require.True(t, ok)
	assert.Empty(t, messages)
}

func TestSuggestions(t *testing.T) {
	t.Run("well-formed provider output", func(t *testing.T) {
		app, _, _ := setupApp(t, okProvider)

		resp := doJSON(t, app, http.MethodPost, "/api/v1/suggestions", nil, "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		assert.Equal(t, "One?||Two?||Three?", string(raw))
	})

	t.Run("malformed provider output falls back", func(t *testing.T) {
		app, _, _ := setupApp(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"no delimiters in sight"}}]}`))
		})

		resp := doJSON(t, app, http.MethodPost, "/api/v1/suggestions", nil, "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		assert.Equal(t, strings.Join(services.FallbackSuggestions(), "||"), string(raw))
	})

	t.Run("provider error payload passes through", func(t *testing.T) {
		app, _, _ := setupApp(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"provider down"}}`))
		})

		resp := doJSON(t, app, http.MethodPost, "/api/v1/suggestions", nil, "")
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		assert.JSONEq(t, `{"error":{"message":"provider down"}}`, string(raw))
	})
}

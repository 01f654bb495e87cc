package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cppla/emoticket/config"
	"github.com/cppla/emoticket/models"
	"github.com/cppla/emoticket/utils"
)

const testTicketSecret = "route-ticket-secret"

func TestMain(m *testing.M) {
	config.Set(config.AppConfig{
		JWTSecret:          "route-jwt",
		TicketSecret:       testTicketSecret,
		GinMode:            "test",
		RateLimitPerMinute: 10000,
		AdminUsernames:     []string{"curator"},
	})
	os.Exit(m.Run())
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), config.GormConfig("silent"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, config.Migrate(db, &models.Text{}, &models.Ticket{}, &models.ActivityStreak{}))
	return db
}

func bearer(t *testing.T, userID uint, username string) string {
	t.Helper()
	token, err := utils.GenerateToken(userID, username, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func do(t *testing.T, h http.Handler, method, target, auth string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestTicketScenario(t *testing.T) {
	db := setupTestDB(t)
	for _, id := range []uint{1, 2, 3} {
		require.NoError(t, db.Create(&models.Text{ID: id, Text: "text " + strconv.Itoa(int(id)), File: 1}).Error)
	}
	for _, id := range []uint{1, 2} {
		require.NoError(t, db.Create(&models.Ticket{UserID: 7, TextID: id, Emotion: 1}).Error)
	}
	r := SetupRouter(db)
	auth := bearer(t, 7, "ada")

	w := do(t, r, http.MethodGet, "/api/v1/tickets", auth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(utils.RequestIDKey))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got, 5)
	assert.Equal(t, float64(3), got["id"])
	assert.Equal(t, "text 3", got["text"])
	assert.Equal(t, float64(1), got["file"])
	assert.Equal(t, float64(7), got["user"])
	secret, _ := got["secret"].(string)
	require.NotEmpty(t, secret)

	w = do(t, r, http.MethodPost, "/api/v1/tickets", auth, url.Values{
		"text":    {"3"},
		"emotion": {"2"},
		"user":    {"7"},
		"secret":  {secret},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"success": "ticket added"}`, w.Body.String())

	var ticket models.Ticket
	require.NoError(t, db.Where("user_id = ? AND text_id = ?", 7, 3).First(&ticket).Error)
	assert.Equal(t, 3, ticket.Emotion)

	var streak models.ActivityStreak
	require.NoError(t, db.Where("user_id = ? AND status = ?", 7, models.StreakActive).First(&streak).Error)
	assert.Equal(t, 1, streak.Count)

	w = do(t, r, http.MethodGet, "/api/v1/tickets", auth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "false", strings.TrimSpace(w.Body.String()))

	w = do(t, r, http.MethodGet, "/api/v1/streak", auth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)
}

func TestPostTicketFieldErrors(t *testing.T) {
	db := setupTestDB(t)
	r := SetupRouter(db)
	auth := bearer(t, 7, "ada")

	w := do(t, r, http.MethodPost, "/api/v1/tickets", auth, url.Values{"emotion": {"x"}, "user": {"7"}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"message": {
		"text": "missing text ID",
		"emotion": "missing emotion ID",
		"secret": "missing secret"
	}}`, w.Body.String())
}

func TestPostTicketEmotionOutOfRange(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Create(&models.Text{ID: 1, Text: "hello"}).Error)
	r := SetupRouter(db)
	token, err := utils.HashSecret(testTicketSecret)
	require.NoError(t, err)

	w := do(t, r, http.MethodPost, "/api/v1/tickets", bearer(t, 7, "ada"), url.Values{
		"text":    {"1"},
		"emotion": {"9223372036854775807"},
		"user":    {"7"},
		"secret":  {token},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"message": {"emotion": "missing emotion ID"}}`, w.Body.String())

	var count int64
	require.NoError(t, db.Model(&models.Ticket{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPostTicketSecretMismatch(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Create(&models.Text{ID: 1, Text: "hello"}).Error)
	r := SetupRouter(db)
	token, err := utils.HashSecret(testTicketSecret)
	require.NoError(t, err)

	cases := map[string]url.Values{
		"tampered secret": {"text": {"1"}, "emotion": {"0"}, "user": {"7"}, "secret": {"abc"}},
		"other user":      {"text": {"1"}, "emotion": {"0"}, "user": {"8"}, "secret": {token}},
	}
	for name, form := range cases {
		t.Run(name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, "/api/v1/tickets", bearer(t, 7, "ada"), form)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"error": "Secret_key is wrong. Use the website to send requests"}`, w.Body.String())
		})
	}

	var count int64
	require.NoError(t, db.Model(&models.Ticket{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPostTicketAcceptsJSONAndQuery(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Create(&models.Text{ID: 1, Text: "one"}).Error)
	require.NoError(t, db.Create(&models.Text{ID: 2, Text: "two"}).Error)
	r := SetupRouter(db)
	auth := bearer(t, 9, "lin")
	token, err := utils.HashSecret(testTicketSecret)
	require.NoError(t, err)

	payload, _ := json.Marshal(map[string]interface{}{"text": 1, "emotion": 0, "user": 9, "secret": token})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tickets", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", auth)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	q := url.Values{"text": {"2"}, "emotion": {"5"}, "user": {"9"}, "secret": {token}}
	w = do(t, r, http.MethodPost, "/api/v1/tickets?"+q.Encode(), auth, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodPost, "/api/v1/tickets?"+q.Encode(), auth, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	var emotions []int
	require.NoError(t, db.Model(&models.Ticket{}).Order("text_id").Pluck("emotion", &emotions).Error)
	assert.Equal(t, []int{1, 6}, emotions)
}

func TestAuthRequired(t *testing.T) {
	db := setupTestDB(t)
	r := SetupRouter(db)

	w := do(t, r, http.MethodGet, "/api/v1/tickets", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/tickets", "Bearer nonsense", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/tickets", "Token abc", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestImportTextsAdminOnly(t *testing.T) {
	db := setupTestDB(t)
	r := SetupRouter(db)
	body := `[{"text": "<b>calm</b> sea", "file": 2}, {"text": "", "file": 2}, {"text": "storm", "file": 2}]`

	post := func(auth string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/texts", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", auth)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusForbidden, post(bearer(t, 7, "ada")).Code)

	w := post(bearer(t, 1, "curator"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"created":2`)

	var texts []string
	require.NoError(t, db.Model(&models.Text{}).Order("id").Pluck("text", &texts).Error)
	assert.Equal(t, []string{"calm sea", "storm"}, texts)

	w = do(t, r, http.MethodGet, "/api/v1/stats", bearer(t, 7, "ada"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"remaining":2`)
}

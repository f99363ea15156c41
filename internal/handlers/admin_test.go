package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ymatsuzawa/nenchobot/internal/auth"
	"github.com/ymatsuzawa/nenchobot/internal/models"
)

func newAdminHandler(history *fakeHistoryStore) *AdminHandler {
	return &AdminHandler{
		Authorizer: auth.NewAccessTokenAuthorizer("secret-token"),
		History:    history,
		Now: func() time.Time {
			return time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)
		},
		Logger: discardLogger(),
	}
}

func TestAdminUsageStats(t *testing.T) {
	history := &fakeHistoryStore{usage: []models.UserUsage{
		{UserID: "user-1", Count: 42},
		{UserID: "user-2", Count: 7},
	}}
	h := newAdminHandler(history)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/usage", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rec := httptest.NewRecorder()
	h.UsageStats(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp usageStatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC), resp.Since)
	require.Len(t, resp.Users, 2)
	assert.Equal(t, "user-1", resp.Users[0].UserID)
}

func TestAdminUsageStatsEmpty(t *testing.T) {
	h := newAdminHandler(&fakeHistoryStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/usage", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rec := httptest.NewRecorder()
	h.UsageStats(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"users":[]`)
}

func TestAdminRecentQuestions(t *testing.T) {
	history := &fakeHistoryStore{recent: []models.ChatRecord{
		{ID: 2, UserID: "user-1", Question: "配偶者控除は？"},
		{ID: 1, UserID: "user-2", Question: "扶養控除は？"},
	}}
	h := newAdminHandler(history)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/questions", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rec := httptest.NewRecorder()
	h.RecentQuestions(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp recentQuestionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Questions, 2)
	assert.Equal(t, "配偶者控除は？", resp.Questions[0].Question)
}

func TestAdminUnauthorized(t *testing.T) {
	h := newAdminHandler(&fakeHistoryStore{})

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic secret-token"},
		{"wrong token", "Bearer nope"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/usage", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.UsageStats(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestAdminNoTokenConfiguredRefusesAll(t *testing.T) {
	h := newAdminHandler(&fakeHistoryStore{})
	h.Authorizer = auth.NewAccessTokenAuthorizer("")

	req := httptest.NewRequest(http.MethodGet, "/api/admin/usage", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	h.UsageStats(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ymatsuzawa/nenchobot/internal/models"
)

func TestHistoryGet(t *testing.T) {
	history := &fakeHistoryStore{records: []models.ChatRecord{
		{ID: 2, UserID: "user-1", Question: "配偶者控除は？", Answer: "配偶者控除とは…"},
		{ID: 1, UserID: "user-1", Question: "扶養控除は？", Answer: "扶養控除とは…"},
	}}
	h := &HistoryHandler{History: history, Logger: discardLogger()}

	req := httptest.NewRequest(http.MethodGet, "/api/history?userId=user-1", nil)
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", history.gotUserID)
	assert.Equal(t, defaultHistoryLimit, history.gotGetLimit)

	var resp historyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.History, 2)
	assert.Equal(t, int64(2), resp.History[0].ID)
}

func TestHistoryGetCustomLimit(t *testing.T) {
	history := &fakeHistoryStore{}
	h := &HistoryHandler{History: history, Logger: discardLogger()}

	req := httptest.NewRequest(http.MethodGet, "/api/history?userId=user-1&limit=5", nil)
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, history.gotGetLimit)
	assert.Contains(t, rec.Body.String(), `"history":[]`)
}

func TestHistoryGetRequiresUserID(t *testing.T) {
	h := &HistoryHandler{History: &fakeHistoryStore{}, Logger: discardLogger()}

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "userId is required", decodeError(t, rec).Details)
}

func TestHistoryGetStoreError(t *testing.T) {
	history := &fakeHistoryStore{recordsErr: errors.New("db down")}
	h := &HistoryHandler{History: history, Logger: discardLogger()}

	req := httptest.NewRequest(http.MethodGet, "/api/history?userId=user-1", nil)
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ticketnepal/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEventTime(t *testing.T) {
	kathmandu := time.FixedZone("NPT", 5*3600+45*60)
	want := time.Date(2025, 7, 22, 13, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		raw  string
		loc  *time.Location
		want time.Time
	}{
		{"rfc3339 utc", "2025-07-22T13:00:00Z", nil, want},
		{"rfc3339 offset", "2025-07-22T18:45:00+05:45", nil, want},
		{"rfc3339 nano", "2025-07-22T13:00:00.000Z", nil, want},
		{"datetime-local", "2025-07-22T13:00", nil, want},
		{"datetime-local seconds", "2025-07-22T13:00:00", nil, want},
		{"space separated", " 2025-07-22 13:00 ", nil, want},
		{"date only", "2025-07-22", nil, time.Date(2025, 7, 22, 0, 0, 0, 0, time.UTC)},
		{"zone-less in location", "2025-07-22T18:45", kathmandu, want},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEventTime(tt.raw, tt.loc)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseEventTime_Rejects(t *testing.T) {
	for _, raw := range []string{"", "   ", "tomorrow", "22/07/2025 13:00"} {
		_, err := ParseEventTime(raw, nil)
		assert.Error(t, err, raw)
	}
}

func TestDayKey(t *testing.T) {
	ts := time.Date(2025, 7, 22, 23, 30, 0, 0, time.FixedZone("X", -2*3600))
	assert.Equal(t, "2025-07-23", DayKey(ts))
}

func TestGenerators(t *testing.T) {
	_, err := uuid.Parse(GenerateID())
	assert.NoError(t, err)
	assert.NotEqual(t, GenerateID(), GenerateID())

	tok, err := GenerateToken(32)
	require.NoError(t, err)
	assert.Len(t, tok, 43)
	assert.NotContains(t, tok, "+")
	assert.NotContains(t, tok, "/")
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, SuccessResponse("created", map[string]string{"id": "t1"}))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "created", resp.Message)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&models.SeatConflictError{Seat: "A1"}, http.StatusConflict},
		{models.ErrAlreadyApplied, http.StatusConflict},
		{models.ErrEmptyRequest, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", models.ErrInvalidInput), http.StatusBadRequest},
		{models.ErrInvalidReference, http.StatusUnprocessableEntity},
		{models.ErrForbidden, http.StatusForbidden},
		{models.ErrInvalidToken, http.StatusForbidden},
		{models.ErrNotFound, http.StatusNotFound},
		{models.StoreError("op", errors.New("boom")), http.StatusServiceUnavailable},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func TestWriteError_HidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	status := WriteError(rec, "Booking failed", models.StoreError("insert ticket", errors.New("password=hunter2")))
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.NotContains(t, rec.Body.String(), "hunter2")
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/seminar-scheduler/internal/application"
)

func decodeErrorResponse(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

func TestHandleServiceErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unauthorized", application.ErrUnauthorized, http.StatusForbidden, "AUTH_FORBIDDEN"},
		{"not found", application.ErrNotFound, http.StatusNotFound, ""},
		{"token not found", application.ErrTokenNotFound, http.StatusNotFound, "TOKEN_NOT_FOUND"},
		{"token expired", application.ErrTokenExpired, http.StatusGone, "TOKEN_EXPIRED"},
		{"confirmation expired", application.ErrConfirmationExpired, http.StatusGone, "CONFIRMATION_EXPIRED"},
		{"slot not available", application.ErrSlotNotAvailable, http.StatusConflict, "SLOT_NOT_AVAILABLE"},
		{"already assigned", application.ErrSuggestionAlreadyAssigned, http.StatusConflict, "ALREADY_ASSIGNED"},
		{"room in use", application.ErrRoomInUse, http.StatusConflict, "ROOM_IN_USE"},
		{"slot occupied", application.ErrSlotOccupied, http.StatusConflict, "SLOT_OCCUPIED"},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError, ""},
	}

	resp := newResponder(nil)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			resp.handleServiceError(context.Background(), rec, tc.err)

			if rec.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, rec.Code)
			}
			body := decodeErrorResponse(t, rec)
			if body.ErrorCode != tc.code {
				t.Fatalf("expected error code %q, got %q", tc.code, body.ErrorCode)
			}
			if body.Message == "" {
				t.Fatal("expected a message")
			}
		})
	}
}

func TestHandleServiceErrorLocalizesValidationErrors(t *testing.T) {
	vErr := &application.ValidationError{FieldErrors: map[string]string{
		"speaker_name":     "speaker name is required",
		"priority":         "priority must be between 0 and 10",
		"dates.2025-06-01": "no seminar slot on this date",
	}}

	rec := httptest.NewRecorder()
	newResponder(nil).handleServiceError(context.Background(), rec, vErr)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	body := decodeErrorResponse(t, rec)
	if body.Errors["speaker_name"] != "講演者名は必須です。" {
		t.Fatalf("expected localized field error, got %q", body.Errors["speaker_name"])
	}
	if body.Errors["dates.2025-06-01"] != "この日付には開催枠がありません。" {
		t.Fatalf("expected localized date error, got %q", body.Errors["dates.2025-06-01"])
	}
}

func TestWriteErrorFallsBackToStatusMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	newResponder(nil).writeError(context.Background(), rec, http.StatusNotFound, nil)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	body := decodeErrorResponse(t, rec)
	if body.Message != "指定されたリソースが見つかりません。" {
		t.Fatalf("unexpected fallback message %q", body.Message)
	}
}

func TestWriteJSONNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	newResponder(nil).writeJSON(context.Background(), rec, http.StatusNoContent, nil)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("expected an empty body, got %q", rec.Body.String())
	}
}

package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	api "github.com/example/seminar-scheduler/internal/http"
	"github.com/example/seminar-scheduler/internal/testfixtures"
)

type apiClient struct {
	t       *testing.T
	handler http.Handler
}

func newAPIClient(t *testing.T) *apiClient {
	t.Helper()

	f := testfixtures.NewServiceFactory(t)
	plans := f.PlanService()
	suggestions := f.SuggestionService()
	seminars := f.SeminarService()
	assignments := f.AssignmentService()
	tokens := f.TokenService()
	deletions := f.DeletionService()

	router := api.NewRouter(api.RouterConfig{
		Plans:        api.NewPlanHandler(plans, deletions, f.Logger),
		Rooms:        api.NewRoomHandler(f.RoomService(), deletions, f.Logger),
		Speakers:     api.NewSpeakerHandler(f.SpeakerService(), deletions, f.Logger),
		Suggestions:  api.NewSuggestionHandler(suggestions, deletions, f.WorkflowService(), tokens, assignments, f.Logger),
		Slots:        api.NewSlotHandler(assignments, deletions, f.Logger),
		Seminars:     api.NewSeminarHandler(seminars, deletions, assignments, f.Logger),
		SpeakerPages: api.NewSpeakerPageHandler(tokens, suggestions, plans, seminars, f.Logger),
	})
	return &apiClient{t: t, handler: router}
}

func (c *apiClient) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return rec
}

func (c *apiClient) decode(rec *httptest.ResponseRecorder, wantStatus int, out any) {
	c.t.Helper()

	if rec.Code != wantStatus {
		c.t.Fatalf("status = %d, want %d (body %q)", rec.Code, wantStatus, rec.Body.String())
	}
	if out == nil {
		return
	}
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		c.t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

type planPayload struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type slotPayload struct {
	ID                   int64  `json:"id"`
	Date                 string `json:"date"`
	Status               string `json:"status"`
	AssignedSeminarID    *int64 `json:"assigned_seminar_id"`
	AssignedSuggestionID *int64 `json:"assigned_suggestion_id"`
}

type suggestionPayload struct {
	ID          int64  `json:"id"`
	SpeakerName string `json:"speaker_name"`
	Workflow    struct {
		Approved             bool `json:"approved"`
		AvailabilityReceived bool `json:"availability_received"`
		Stage                int  `json:"stage"`
	} `json:"workflow"`
}

type tokenPayload struct {
	Token string `json:"token"`
	Kind  string `json:"kind"`
}

type seminarPayload struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Date         string `json:"date"`
	SuggestionID *int64 `json:"suggestion_id"`
	SpeakerID    *int64 `json:"speaker_id"`
}

// TestSchedulingFlow walks the whole lifecycle through the public surface:
// plan setup, suggestion intake, token-gated availability submission,
// assignment, and workflow tracking.
func TestSchedulingFlow(t *testing.T) {
	c := newAPIClient(t)

	var plan planPayload
	c.decode(c.do(http.MethodPost, "/plans", map[string]string{"name": "2025 Autumn Term"}), http.StatusCreated, &plan)
	if plan.ID == 0 || plan.Name != "2025 Autumn Term" {
		t.Fatalf("unexpected plan payload: %+v", plan)
	}

	var created struct {
		Slots []slotPayload `json:"slots"`
	}
	c.decode(c.do(http.MethodPost, fmt.Sprintf("/plans/%d/slots", plan.ID), map[string]any{
		"slots": []map[string]string{
			{"date": "2025-10-03", "start_time": "15:00", "end_time": "16:30"},
			{"date": "2025-10-10", "start_time": "15:00", "end_time": "16:30"},
		},
	}), http.StatusCreated, &created)
	if len(created.Slots) != 2 {
		t.Fatalf("created %d slots, want 2", len(created.Slots))
	}
	first, second := created.Slots[0], created.Slots[1]

	var suggestion suggestionPayload
	c.decode(c.do(http.MethodPost, "/suggestions", map[string]any{
		"semester_plan_id": plan.ID,
		"speaker_name":     "Prof. Sato",
		"speaker_email":    "sato@example.ac.jp",
		"priority":         2,
		"topic":            "Distributed Consensus in Practice",
	}), http.StatusCreated, &suggestion)
	if suggestion.Workflow.Stage != 1 {
		t.Fatalf("fresh suggestion stage = %d, want 1", suggestion.Workflow.Stage)
	}

	var token tokenPayload
	c.decode(c.do(http.MethodPost, fmt.Sprintf("/suggestions/%d/tokens", suggestion.ID), map[string]string{"kind": "availability"}), http.StatusCreated, &token)
	if token.Token == "" || token.Kind != "availability" {
		t.Fatalf("unexpected token payload: %+v", token)
	}

	var page struct {
		SpeakerName  string `json:"speaker_name"`
		OfferedDates []struct {
			Date string `json:"date"`
			Open bool   `json:"open"`
		} `json:"offered_dates"`
	}
	c.decode(c.do(http.MethodGet, "/speaker/availability?token="+token.Token, nil), http.StatusOK, &page)
	if page.SpeakerName != "Prof. Sato" {
		t.Fatalf("availability page speaker = %q", page.SpeakerName)
	}
	if len(page.OfferedDates) != 2 || !page.OfferedDates[0].Open || !page.OfferedDates[1].Open {
		t.Fatalf("unexpected offered dates: %+v", page.OfferedDates)
	}

	var accepted struct {
		Accepted int `json:"accepted"`
	}
	c.decode(c.do(http.MethodPost, "/speaker/availability?token="+token.Token, map[string]any{
		"dates": []map[string]string{
			{"date": first.Date, "preference": "preferred"},
			{"date": second.Date, "preference": "possible"},
		},
	}), http.StatusOK, &accepted)
	if accepted.Accepted != 2 {
		t.Fatalf("accepted = %d, want 2", accepted.Accepted)
	}

	var candidates struct {
		Slots []slotPayload `json:"slots"`
	}
	c.decode(c.do(http.MethodGet, fmt.Sprintf("/suggestions/%d/eligible-slots", suggestion.ID), nil), http.StatusOK, &candidates)
	if len(candidates.Slots) != 2 {
		t.Fatalf("expected both declared slots as candidates, got %+v", candidates.Slots)
	}

	var seminar seminarPayload
	c.decode(c.do(http.MethodPost, fmt.Sprintf("/suggestions/%d/assignment", suggestion.ID), map[string]int64{"slot_id": first.ID}), http.StatusCreated, &seminar)
	if seminar.Date != first.Date {
		t.Fatalf("seminar date = %q, want %q", seminar.Date, first.Date)
	}
	if seminar.SuggestionID == nil || *seminar.SuggestionID != suggestion.ID {
		t.Fatalf("seminar suggestion link = %v", seminar.SuggestionID)
	}
	if seminar.SpeakerID == nil {
		t.Fatal("assignment did not link a canonical speaker")
	}

	var slots struct {
		Slots []slotPayload `json:"slots"`
	}
	c.decode(c.do(http.MethodGet, fmt.Sprintf("/plans/%d/slots", plan.ID), nil), http.StatusOK, &slots)
	for _, slot := range slots.Slots {
		switch slot.ID {
		case first.ID:
			if slot.Status != "confirmed" || slot.AssignedSeminarID == nil || *slot.AssignedSeminarID != seminar.ID {
				t.Fatalf("assigned slot not confirmed: %+v", slot)
			}
		case second.ID:
			if slot.Status != "available" || slot.AssignedSeminarID != nil {
				t.Fatalf("untouched slot changed: %+v", slot)
			}
		}
	}

	c.decode(c.do(http.MethodGet, fmt.Sprintf("/suggestions/%d/eligible-slots", suggestion.ID), nil), http.StatusOK, &candidates)
	if len(candidates.Slots) != 1 || candidates.Slots[0].ID != second.ID {
		t.Fatalf("expected only the open slot after assignment, got %+v", candidates.Slots)
	}

	var listed struct {
		Seminars []seminarPayload `json:"seminars"`
	}
	c.decode(c.do(http.MethodGet, "/seminars", nil), http.StatusOK, &listed)
	if len(listed.Seminars) != 1 || listed.Seminars[0].ID != seminar.ID {
		t.Fatalf("seminar listing = %+v", listed.Seminars)
	}

	var workflow struct {
		Approved bool `json:"approved"`
		Stage    int  `json:"stage"`
	}
	c.decode(c.do(http.MethodPatch, fmt.Sprintf("/suggestions/%d/workflow", suggestion.ID), map[string]bool{"approved": true}), http.StatusOK, &workflow)
	if !workflow.Approved || workflow.Stage != 4 {
		t.Fatalf("workflow after approval = %+v", workflow)
	}

	var status tokenPayload
	c.decode(c.do(http.MethodPost, fmt.Sprintf("/suggestions/%d/tokens", suggestion.ID), map[string]string{"kind": "status"}), http.StatusCreated, &status)

	var statusPage struct {
		Workflow struct {
			Approved bool `json:"approved"`
			Stage    int  `json:"stage"`
		} `json:"workflow"`
		Seminar *seminarPayload `json:"seminar"`
	}
	c.decode(c.do(http.MethodGet, "/speaker/status?token="+status.Token, nil), http.StatusOK, &statusPage)
	if !statusPage.Workflow.Approved || statusPage.Workflow.Stage != 4 {
		t.Fatalf("status page workflow = %+v", statusPage.Workflow)
	}
	if statusPage.Seminar == nil || statusPage.Seminar.ID != seminar.ID {
		t.Fatalf("status page seminar = %+v", statusPage.Seminar)
	}

	rec := c.do(http.MethodPost, fmt.Sprintf("/suggestions/%d/assignment", suggestion.ID), map[string]int64{"slot_id": second.ID})
	var conflict struct {
		ErrorCode string `json:"error_code"`
	}
	c.decode(rec, http.StatusConflict, &conflict)
	if conflict.ErrorCode != "ALREADY_ASSIGNED" {
		t.Fatalf("double assignment error_code = %q", conflict.ErrorCode)
	}
}

func TestSpeakerEndpointsRejectBadTokens(t *testing.T) {
	c := newAPIClient(t)

	rec := c.do(http.MethodGet, "/speaker/availability", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	rec = c.do(http.MethodGet, "/speaker/availability?token=no-such-token", nil)
	var body struct {
		ErrorCode string `json:"error_code"`
	}
	c.decode(rec, http.StatusNotFound, &body)
	if body.ErrorCode != "TOKEN_NOT_FOUND" {
		t.Fatalf("unknown token error_code = %q", body.ErrorCode)
	}
}

package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/seminar-scheduler/internal/application"
	"github.com/example/seminar-scheduler/internal/persistence"
)

var (
	roomCounter       uint64
	speakerCounter    uint64
	suggestionCounter uint64
	planCounter       uint64
)

var referenceTime = time.Date(2025, time.April, 1, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Plan fixtures -----------------------------

// PlanFixture represents a deterministic semester plan record.
type PlanFixture struct {
	Name      string
	CreatedAt time.Time
}

// PlanOption configures the generated plan fixture.
type PlanOption func(*PlanFixture)

// NewPlanFixture returns a deterministic plan fixture with optional overrides.
func NewPlanFixture(opts ...PlanOption) PlanFixture {
	idx := atomic.AddUint64(&planCounter, 1)
	fixture := PlanFixture{
		Name:      fmt.Sprintf("Semester %03d", idx),
		CreatedAt: referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithPlanName overrides the plan name.
func WithPlanName(name string) PlanOption {
	return func(f *PlanFixture) {
		f.Name = name
	}
}

// Persistence converts the fixture to its persistence representation.
func (f PlanFixture) Persistence() persistence.SemesterPlan {
	return persistence.SemesterPlan{
		Name:      f.Name,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.CreatedAt,
	}
}

// ----------------------------- Room fixtures -----------------------------

// RoomFixture represents a deterministic room catalog record.
type RoomFixture struct {
	Name      string
	Location  string
	Capacity  int
	CreatedAt time.Time
}

// RoomOption configures the generated room fixture.
type RoomOption func(*RoomFixture)

// NewRoomFixture returns a deterministic room fixture with optional overrides.
func NewRoomFixture(opts ...RoomOption) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	fixture := RoomFixture{
		Name:      fmt.Sprintf("Room %03d", idx),
		Location:  fmt.Sprintf("Building A, floor %d", idx%5+1),
		Capacity:  30,
		CreatedAt: referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRoomName overrides the room name.
func WithRoomName(name string) RoomOption {
	return func(f *RoomFixture) {
		f.Name = name
	}
}

// WithRoomLocation overrides the room location.
func WithRoomLocation(location string) RoomOption {
	return func(f *RoomFixture) {
		f.Location = location
	}
}

// WithRoomCapacity overrides the room capacity.
func WithRoomCapacity(capacity int) RoomOption {
	return func(f *RoomFixture) {
		f.Capacity = capacity
	}
}

// Persistence converts the fixture to its persistence representation.
func (f RoomFixture) Persistence() persistence.Room {
	return persistence.Room{
		Name:      f.Name,
		Location:  f.Location,
		Capacity:  f.Capacity,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.CreatedAt,
	}
}

// Input converts the fixture to the service-layer input.
func (f RoomFixture) Input() application.RoomInput {
	return application.RoomInput{
		Name:     f.Name,
		Location: f.Location,
		Capacity: f.Capacity,
	}
}

// ---------------------------- Speaker fixtures ----------------------------

// SpeakerFixture represents a deterministic canonical speaker record.
type SpeakerFixture struct {
	Name        string
	Email       string
	Affiliation string
	Bio         string
	CreatedAt   time.Time
}

// SpeakerOption configures the generated speaker fixture.
type SpeakerOption func(*SpeakerFixture)

// NewSpeakerFixture returns a deterministic speaker fixture with optional
// overrides.
func NewSpeakerFixture(opts ...SpeakerOption) SpeakerFixture {
	idx := atomic.AddUint64(&speakerCounter, 1)
	fixture := SpeakerFixture{
		Name:        fmt.Sprintf("Speaker %03d", idx),
		Email:       fmt.Sprintf("speaker-%03d@example.org", idx),
		Affiliation: fmt.Sprintf("University %03d", idx),
		Bio:         "",
		CreatedAt:   referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSpeakerName overrides the speaker name.
func WithSpeakerName(name string) SpeakerOption {
	return func(f *SpeakerFixture) {
		f.Name = name
	}
}

// WithSpeakerEmail overrides the speaker email.
func WithSpeakerEmail(email string) SpeakerOption {
	return func(f *SpeakerFixture) {
		f.Email = email
	}
}

// WithSpeakerAffiliation overrides the speaker affiliation.
func WithSpeakerAffiliation(affiliation string) SpeakerOption {
	return func(f *SpeakerFixture) {
		f.Affiliation = affiliation
	}
}

// Persistence converts the fixture to its persistence representation.
func (f SpeakerFixture) Persistence() persistence.Speaker {
	return persistence.Speaker{
		Name:        f.Name,
		Email:       f.Email,
		Affiliation: f.Affiliation,
		Bio:         f.Bio,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.CreatedAt,
	}
}

// Input converts the fixture to the service-layer input.
func (f SpeakerFixture) Input() application.SpeakerInput {
	return application.SpeakerInput{
		Name:        f.Name,
		Email:       f.Email,
		Affiliation: f.Affiliation,
		Bio:         f.Bio,
	}
}

// -------------------------- Suggestion fixtures --------------------------

// SuggestionFixture represents a deterministic speaker suggestion record.
// PlanID and SpeakerID stay nil unless supplied; both links are optional in
// the domain.
type SuggestionFixture struct {
	PlanID       *int64
	SpeakerID    *int64
	SpeakerName  string
	SpeakerEmail string
	Affiliation  string
	SuggestedBy  string
	Priority     int
	Topic        string
	Reason       string
	Status       string
	CreatedAt    time.Time
}

// SuggestionOption configures the generated suggestion fixture.
type SuggestionOption func(*SuggestionFixture)

// NewSuggestionFixture returns a deterministic suggestion fixture with
// optional overrides.
func NewSuggestionFixture(opts ...SuggestionOption) SuggestionFixture {
	idx := atomic.AddUint64(&suggestionCounter, 1)
	fixture := SuggestionFixture{
		SpeakerName:  fmt.Sprintf("Candidate %03d", idx),
		SpeakerEmail: fmt.Sprintf("candidate-%03d@example.org", idx),
		Affiliation:  fmt.Sprintf("Institute %03d", idx),
		SuggestedBy:  "organizer",
		Priority:     5,
		Topic:        fmt.Sprintf("Topic %03d", idx),
		Reason:       "strong fit for the program",
		Status:       "proposed",
		CreatedAt:    referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSuggestionPlan links the suggestion to a plan.
func WithSuggestionPlan(planID int64) SuggestionOption {
	return func(f *SuggestionFixture) {
		f.PlanID = &planID
	}
}

// WithSuggestionSpeaker links the suggestion to a canonical speaker.
func WithSuggestionSpeaker(speakerID int64) SuggestionOption {
	return func(f *SuggestionFixture) {
		f.SpeakerID = &speakerID
	}
}

// WithSuggestionSpeakerName overrides the denormalized speaker name.
func WithSuggestionSpeakerName(name string) SuggestionOption {
	return func(f *SuggestionFixture) {
		f.SpeakerName = name
	}
}

// WithSuggestionPriority overrides the priority.
func WithSuggestionPriority(priority int) SuggestionOption {
	return func(f *SuggestionFixture) {
		f.Priority = priority
	}
}

// WithSuggestionTopic overrides the topic.
func WithSuggestionTopic(topic string) SuggestionOption {
	return func(f *SuggestionFixture) {
		f.Topic = topic
	}
}

// Persistence converts the fixture to its persistence representation.
func (f SuggestionFixture) Persistence() persistence.SpeakerSuggestion {
	return persistence.SpeakerSuggestion{
		SemesterPlanID: f.PlanID,
		SpeakerID:      f.SpeakerID,
		SpeakerName:    f.SpeakerName,
		SpeakerEmail:   f.SpeakerEmail,
		Affiliation:    f.Affiliation,
		SuggestedBy:    f.SuggestedBy,
		Priority:       f.Priority,
		Topic:          f.Topic,
		Reason:         f.Reason,
		Status:         f.Status,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.CreatedAt,
	}
}

// Input converts the fixture to the service-layer input.
func (f SuggestionFixture) Input() application.SuggestionInput {
	return application.SuggestionInput{
		SemesterPlanID: f.PlanID,
		SpeakerName:    f.SpeakerName,
		SpeakerEmail:   f.SpeakerEmail,
		Affiliation:    f.Affiliation,
		SuggestedBy:    f.SuggestedBy,
		Priority:       f.Priority,
		Topic:          f.Topic,
		Reason:         f.Reason,
		Status:         f.Status,
	}
}

// ----------------------------- Slot fixtures -----------------------------

// SlotInputs builds sequential weekly slot inputs starting at the given date.
// Dates use the YYYY-MM-DD wire format.
func SlotInputs(start time.Time, count int) []application.SlotInput {
	inputs := make([]application.SlotInput, 0, count)
	for i := 0; i < count; i++ {
		day := start.AddDate(0, 0, 7*i)
		inputs = append(inputs, application.SlotInput{
			Date:      day.Format("2006-01-02"),
			StartTime: "15:00",
			EndTime:   "16:30",
		})
	}
	return inputs
}

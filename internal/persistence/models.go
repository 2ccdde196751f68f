package persistence

import "time"

// SemesterPlan represents a named planning period that owns seminar slots.
type SemesterPlan struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Room represents a seminar room catalog entry.
type Room struct {
	ID        int64
	Name      string
	Location  string
	Capacity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SlotStatus enumerates the lifecycle states of a seminar slot.
type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotReserved  SlotStatus = "reserved"
	SlotConfirmed SlotStatus = "confirmed"
	SlotCancelled SlotStatus = "cancelled"
)

// SeminarSlot represents a candidate date/time/room triple within a plan.
//
// AssignedSeminarID and AssignedSuggestionID remember which seminar currently
// occupies the slot and which suggestion produced the assignment, so the
// linkage can be re-derived after deletions or a restore.
type SeminarSlot struct {
	ID                   int64
	SemesterPlanID       int64
	Date                 string // YYYY-MM-DD
	StartTime            string // HH:MM
	EndTime              string // HH:MM
	RoomID               *int64
	Status               SlotStatus
	AssignedSeminarID    *int64
	AssignedSuggestionID *int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Speaker is a canonical speaker identity. Speakers are unique by name.
type Speaker struct {
	ID          int64
	Name        string
	Email       string
	Affiliation string
	Bio         string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// WorkflowFlags is the fixed ordered checklist tracked per suggestion.
// Flags are independently settable; the external stage is derived, never stored.
type WorkflowFlags struct {
	RequestSent          bool
	AvailabilityReceived bool
	DateNotified         bool
	MealConfirmed        bool
	AccommodationBooked  bool
	InfoSubmitted        bool
	Approved             bool
}

// AvailabilityPreference tags a single availability date.
type AvailabilityPreference string

const (
	PreferencePreferred AvailabilityPreference = "preferred"
	PreferencePossible  AvailabilityPreference = "possible"
)

// AvailabilityEntry is one single-day availability record on a suggestion.
// Ranges are a presentation concern; persistence only knows individual days.
type AvailabilityEntry struct {
	ID           int64
	SuggestionID int64
	Date         string // YYYY-MM-DD
	Preference   AvailabilityPreference
}

// SpeakerSuggestion is an intent-to-invite scoped to a plan. The speaker
// name/email/affiliation fields are a denormalized snapshot captured at
// suggestion time; they survive speaker edits and deletion and are never
// used for lookups.
type SpeakerSuggestion struct {
	ID             int64
	SemesterPlanID *int64
	SpeakerID      *int64
	SpeakerName    string
	SpeakerEmail   string
	Affiliation    string
	SuggestedBy    string
	Priority       int
	Topic          string
	Reason         string
	Status         string // advisory free text, not authoritative
	Workflow       WorkflowFlags
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Seminar is a scheduled speaking event produced by an assignment.
type Seminar struct {
	ID               int64
	Title            string
	Abstract         string
	Date             string // YYYY-MM-DD
	StartTime        string // HH:MM
	EndTime          string // HH:MM
	RoomID           *int64
	SpeakerID        *int64
	SuggestionID     *int64
	RoomBooked       bool
	AnnouncementSent bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SeminarDetails is the 1:1 extension record populated by the speaker via the
// info token.
type SeminarDetails struct {
	SeminarID          int64
	ArrivalDate        string
	DepartureDate      string
	TravelNotes        string
	AccommodationNotes string
	PaymentRequired    bool
	BankDetails        string
	DietaryNotes       string
	UpdatedAt          time.Time
}

// TokenKind is the type scope of a speaker token.
type TokenKind string

const (
	TokenAvailability TokenKind = "availability"
	TokenInfo         TokenKind = "info"
	TokenStatus       TokenKind = "status"
)

// SpeakerToken is an opaque credential bound to exactly one suggestion.
// Tokens are not deleted on use; UsedAt only records first use.
type SpeakerToken struct {
	ID           int64
	SuggestionID int64
	Kind         TokenKind
	Token        string
	ExpiresAt    time.Time
	UsedAt       *time.Time
	CreatedAt    time.Time
}

// FileCategory classifies an uploaded artifact.
type FileCategory string

const (
	FileCV       FileCategory = "cv"
	FilePhoto    FileCategory = "photo"
	FilePassport FileCategory = "passport"
	FileFlight   FileCategory = "flight"
	FileOther    FileCategory = "other"
)

// UploadedFile is a blob reference scoped to a seminar. Path addresses the
// external blob area; deleting the seminar deletes the file row and blob.
type UploadedFile struct {
	ID         int64
	SeminarID  int64
	Category   FileCategory
	Filename   string
	Path       string
	UploadedAt time.Time
}

// ActivityEvent is an append-only audit record. Detail carries a structured
// before/after diff encoded as JSON.
type ActivityEvent struct {
	ID         int64
	Actor      string
	Action     string
	EntityType string
	EntityID   int64
	Detail     string
	CreatedAt  time.Time
}

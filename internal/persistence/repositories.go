package persistence

import (
	"context"
	"time"
)

// PlanRepository exposes operations for semester plans.
type PlanRepository interface {
	CreatePlan(ctx context.Context, plan SemesterPlan) (SemesterPlan, error)
	GetPlan(ctx context.Context, id int64) (SemesterPlan, error)
	ListPlans(ctx context.Context) ([]SemesterPlan, error)
	// DeletePlan removes the plan, deletes its slots and detaches (but keeps)
	// its suggestions, all in one transaction.
	DeletePlan(ctx context.Context, id int64) error
}

// RoomRepository exposes operations for seminar rooms.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) (Room, error)
	UpdateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id int64) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	// DeleteRoom refuses with ErrForeignKeyViolation while seminars or slots
	// reference the room, unless reassignTo names a replacement room.
	DeleteRoom(ctx context.Context, id int64, reassignTo *int64) error
}

// SlotRepository exposes operations for seminar slots.
type SlotRepository interface {
	CreateSlot(ctx context.Context, slot SeminarSlot) (SeminarSlot, error)
	GetSlot(ctx context.Context, id int64) (SeminarSlot, error)
	ListSlotsForPlan(ctx context.Context, planID int64) ([]SeminarSlot, error)
	// ListSlotDates returns the distinct dates of all slots in the plan.
	ListSlotDates(ctx context.Context, planID int64) ([]string, error)
	UpdateSlotStatus(ctx context.Context, id int64, status SlotStatus) error
	// ReleaseSlot clears the assignment linkage and returns the slot to
	// available without touching the seminar.
	ReleaseSlot(ctx context.Context, id int64) error
	// DeleteSlot refuses with ErrForeignKeyViolation while a seminar is
	// assigned to the slot.
	DeleteSlot(ctx context.Context, id int64) error
}

// SpeakerRepository exposes operations for canonical speaker identities.
type SpeakerRepository interface {
	CreateSpeaker(ctx context.Context, speaker Speaker) (Speaker, error)
	UpdateSpeaker(ctx context.Context, speaker Speaker) error
	GetSpeaker(ctx context.Context, id int64) (Speaker, error)
	GetSpeakerByName(ctx context.Context, name string) (Speaker, error)
	ListSpeakers(ctx context.Context) ([]Speaker, error)
	// DeleteSpeaker unlinks seminars and suggestions rather than deleting
	// them; their historical record must survive.
	DeleteSpeaker(ctx context.Context, id int64) error
}

// SuggestionFilter narrows suggestion queries.
type SuggestionFilter struct {
	PlanID    *int64
	SpeakerID *int64
}

// SuggestionRepository exposes operations for speaker suggestions and their
// availability entries.
type SuggestionRepository interface {
	CreateSuggestion(ctx context.Context, suggestion SpeakerSuggestion) (SpeakerSuggestion, error)
	GetSuggestion(ctx context.Context, id int64) (SpeakerSuggestion, error)
	ListSuggestions(ctx context.Context, filter SuggestionFilter) ([]SpeakerSuggestion, error)
	UpdateSuggestion(ctx context.Context, suggestion SpeakerSuggestion) error
	UpdateWorkflow(ctx context.Context, id int64, flags WorkflowFlags) error
	ReplaceAvailability(ctx context.Context, suggestionID int64, entries []AvailabilityEntry) error
	ListAvailability(ctx context.Context, suggestionID int64) ([]AvailabilityEntry, error)
	// DeleteSuggestion removes the suggestion with its availability entries
	// and tokens, and clears assigned_suggestion_id on any slot.
	DeleteSuggestion(ctx context.Context, id int64) error
}

// AssignParams carries the inputs of the atomic assignment transaction.
type AssignParams struct {
	SuggestionID int64
	SlotID       int64
	Title        string
	Abstract     string
	// Speaker is created first when the suggestion is not yet linked to a
	// canonical speaker row.
	Speaker Speaker
}

// SeminarRepository exposes operations for seminars, their details records
// and uploaded files.
type SeminarRepository interface {
	// Assign atomically creates a seminar from the suggestion and slot,
	// linking speaker, suggestion and slot. Returns ErrConstraintViolation
	// when the slot is not available and ErrDuplicate when the suggestion
	// already has a seminar in the slot's plan.
	Assign(ctx context.Context, params AssignParams) (Seminar, error)
	GetSeminar(ctx context.Context, id int64) (Seminar, error)
	// GetSeminarForSuggestion returns the seminar created from a suggestion,
	// newest first when history left more than one.
	GetSeminarForSuggestion(ctx context.Context, suggestionID int64) (Seminar, error)
	ListSeminars(ctx context.Context) ([]Seminar, error)
	// ListOrphanSeminars returns seminars no slot currently points at.
	ListOrphanSeminars(ctx context.Context) ([]Seminar, error)
	UpdateSeminar(ctx context.Context, seminar Seminar) error
	// DeleteSeminar removes the seminar, its details record and its files,
	// and clears slot linkage, all in one transaction. The returned paths
	// name the blobs that must be deleted from the blob area.
	DeleteSeminar(ctx context.Context, id int64) ([]string, error)
	UpsertDetails(ctx context.Context, details SeminarDetails) error
	GetDetails(ctx context.Context, seminarID int64) (SeminarDetails, error)
	AddFile(ctx context.Context, file UploadedFile) (UploadedFile, error)
	ListFiles(ctx context.Context, seminarID int64) ([]UploadedFile, error)
	GetFile(ctx context.Context, id int64) (UploadedFile, error)
	DeleteFile(ctx context.Context, id int64) error
}

// TokenRepository exposes operations for speaker tokens.
type TokenRepository interface {
	CreateToken(ctx context.Context, token SpeakerToken) (SpeakerToken, error)
	// GetToken looks a token up by its opaque string value.
	GetToken(ctx context.Context, token string) (SpeakerToken, error)
	ListTokensForSuggestion(ctx context.Context, suggestionID int64) ([]SpeakerToken, error)
	// ExpireActiveTokens force-expires unexpired tokens of the given kind for
	// the suggestion; used to revoke superseded links on re-issue.
	ExpireActiveTokens(ctx context.Context, suggestionID int64, kind TokenKind, at time.Time) error
	MarkUsed(ctx context.Context, id int64, at time.Time) error
	// DeleteExpiredTokens removes tokens whose expiry lies before the cutoff.
	DeleteExpiredTokens(ctx context.Context, cutoff time.Time) error
}

// ActivityRepository records and lists append-only audit events.
type ActivityRepository interface {
	RecordEvent(ctx context.Context, event ActivityEvent) (ActivityEvent, error)
	ListEvents(ctx context.Context, entityType string, entityID int64) ([]ActivityEvent, error)
}

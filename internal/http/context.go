package http

import (
	"context"
)

type contextKey string

const (
	planIDContextKey       contextKey = "plan_id"
	roomIDContextKey       contextKey = "room_id"
	speakerIDContextKey    contextKey = "speaker_id"
	suggestionIDContextKey contextKey = "suggestion_id"
	slotIDContextKey       contextKey = "slot_id"
	seminarIDContextKey    contextKey = "seminar_id"
	fileIDContextKey       contextKey = "file_id"
	backupNameContextKey   contextKey = "backup_name"
)

func contextWithID(ctx context.Context, key contextKey, id int64) context.Context {
	return context.WithValue(ctx, key, id)
}

func idFromContext(ctx context.Context, key contextKey) (int64, bool) {
	id, ok := ctx.Value(key).(int64)
	return id, ok
}

// ContextWithPlanID injects the plan identifier resolved from the request path.
func ContextWithPlanID(ctx context.Context, id int64) context.Context {
	return contextWithID(ctx, planIDContextKey, id)
}

// PlanIDFromContext extracts a plan identifier previously associated with the context.
func PlanIDFromContext(ctx context.Context) (int64, bool) {
	return idFromContext(ctx, planIDContextKey)
}

// ContextWithRoomID injects the room identifier resolved from the request path.
func ContextWithRoomID(ctx context.Context, id int64) context.Context {
	return contextWithID(ctx, roomIDContextKey, id)
}

// RoomIDFromContext extracts a room identifier previously associated with the context.
func RoomIDFromContext(ctx context.Context) (int64, bool) {
	return idFromContext(ctx, roomIDContextKey)
}

// ContextWithSpeakerID injects the speaker identifier resolved from the request path.
func ContextWithSpeakerID(ctx context.Context, id int64) context.Context {
	return contextWithID(ctx, speakerIDContextKey, id)
}

// SpeakerIDFromContext extracts a speaker identifier previously associated with the context.
func SpeakerIDFromContext(ctx context.Context) (int64, bool) {
	return idFromContext(ctx, speakerIDContextKey)
}

// ContextWithSuggestionID injects the suggestion identifier resolved from the request path.
func ContextWithSuggestionID(ctx context.Context, id int64) context.Context {
	return contextWithID(ctx, suggestionIDContextKey, id)
}

// SuggestionIDFromContext extracts a suggestion identifier previously associated with the context.
func SuggestionIDFromContext(ctx context.Context) (int64, bool) {
	return idFromContext(ctx, suggestionIDContextKey)
}

// ContextWithSlotID injects the slot identifier resolved from the request path.
func ContextWithSlotID(ctx context.Context, id int64) context.Context {
	return contextWithID(ctx, slotIDContextKey, id)
}

// SlotIDFromContext extracts a slot identifier previously associated with the context.
func SlotIDFromContext(ctx context.Context) (int64, bool) {
	return idFromContext(ctx, slotIDContextKey)
}

// ContextWithSeminarID injects the seminar identifier resolved from the request path.
func ContextWithSeminarID(ctx context.Context, id int64) context.Context {
	return contextWithID(ctx, seminarIDContextKey, id)
}

// SeminarIDFromContext extracts a seminar identifier previously associated with the context.
func SeminarIDFromContext(ctx context.Context) (int64, bool) {
	return idFromContext(ctx, seminarIDContextKey)
}

// ContextWithFileID injects the file identifier resolved from the request path.
func ContextWithFileID(ctx context.Context, id int64) context.Context {
	return contextWithID(ctx, fileIDContextKey, id)
}

// FileIDFromContext extracts a file identifier previously associated with the context.
func FileIDFromContext(ctx context.Context) (int64, bool) {
	return idFromContext(ctx, fileIDContextKey)
}

// ContextWithBackupName injects the backup file name resolved from the request path.
func ContextWithBackupName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, backupNameContextKey, name)
}

// BackupNameFromContext extracts a backup file name previously associated with the context.
func BackupNameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(backupNameContextKey).(string)
	return name, ok
}

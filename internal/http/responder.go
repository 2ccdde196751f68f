package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/seminar-scheduler/internal/application"
)

var (
	errBadRequestBody       = errors.New("無効なリクエスト形式です。")
	errInvalidPlanID        = errors.New("無効な学期計画 ID です。")
	errInvalidRoomID        = errors.New("無効なセミナー室 ID です。")
	errInvalidSpeakerID     = errors.New("無効な講演者 ID です。")
	errInvalidSuggestionID  = errors.New("無効な候補 ID です。")
	errInvalidSlotID        = errors.New("無効な開催枠 ID です。")
	errInvalidSeminarID     = errors.New("無効なセミナー ID です。")
	errInvalidFileID        = errors.New("無効なファイル ID です。")
	errMissingSpeakerToken  = errors.New("アクセストークンを指定してください。")
	errMissingAdminPassword = errors.New("管理者パスワードを指定してください。")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   "この操作を実行する権限がありません。",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "指定されたリソースが見つかりません。"})
	case errors.Is(err, application.ErrTokenNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{
			ErrorCode: "TOKEN_NOT_FOUND",
			Message:   "リンクが無効です。担当者に再発行を依頼してください。",
		})
	case errors.Is(err, application.ErrTokenExpired):
		r.writeJSON(ctx, w, http.StatusGone, errorResponse{
			ErrorCode: "TOKEN_EXPIRED",
			Message:   "リンクの有効期限が切れています。担当者に再発行を依頼してください。",
		})
	case errors.Is(err, application.ErrConfirmationExpired):
		r.writeJSON(ctx, w, http.StatusGone, errorResponse{
			ErrorCode: "CONFIRMATION_EXPIRED",
			Message:   "確認トークンの有効期限が切れています。操作をやり直してください。",
		})
	case errors.Is(err, application.ErrSlotNotAvailable):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "SLOT_NOT_AVAILABLE",
			Message:   "指定された開催枠は利用できません。",
		})
	case errors.Is(err, application.ErrSuggestionAlreadyAssigned):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "ALREADY_ASSIGNED",
			Message:   "この候補は既にセミナーに割り当てられています。",
		})
	case errors.Is(err, application.ErrRoomInUse):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "ROOM_IN_USE",
			Message:   "このセミナー室は使用中のため削除できません。付け替え先を指定してください。",
		})
	case errors.Is(err, application.ErrSlotOccupied):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "SLOT_OCCUPIED",
			Message:   "セミナーが割り当てられている開催枠は削除できません。",
		})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			details := localizeValidationErrors(vErr)
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: "入力内容に誤りがあります。",
				Errors:  details,
			})
			return
		}

		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "サーバー内部でエラーが発生しました。"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "リクエスト内容が正しくありません。"
	case http.StatusUnauthorized:
		return "認証が必要です。"
	case http.StatusForbidden:
		return "この操作を実行する権限がありません。"
	case http.StatusNotFound:
		return "指定されたリソースが見つかりません。"
	case http.StatusConflict:
		return "要求はリソースの現在の状態と競合しています。"
	case http.StatusGone:
		return "リンクの有効期限が切れています。"
	case http.StatusUnprocessableEntity:
		return "入力内容に誤りがあります。"
	default:
		return "サーバー内部でエラーが発生しました。"
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case "name is required":
		return "名称は必須です。"
	case "name must be 200 characters or less":
		return "名称は 200 文字以内で指定してください。"
	case "a plan with this name already exists":
		return "同名の学期計画が既に存在します。"
	case "a room with this name already exists":
		return "同名のセミナー室が既に存在します。"
	case "a speaker with this name already exists":
		return "同名の講演者が既に存在します。"
	case "capacity cannot be negative":
		return "収容人数は 0 以上で指定してください。"
	case "email address is invalid":
		return "メールアドレスの形式が不正です。"
	case "speaker name is required":
		return "講演者名は必須です。"
	case "speaker name must be 200 characters or less":
		return "講演者名は 200 文字以内で指定してください。"
	case "priority must be between 0 and 10":
		return "優先度は 0 から 10 の範囲で指定してください。"
	case "plan does not exist":
		return "指定された学期計画は存在しません。"
	case "room does not exist":
		return "指定されたセミナー室は存在しません。"
	case "date must be in YYYY-MM-DD format":
		return "日付は YYYY-MM-DD 形式で指定してください。"
	case "start time must be in HH:MM format":
		return "開始時刻は HH:MM 形式で指定してください。"
	case "end time must be in HH:MM format":
		return "終了時刻は HH:MM 形式で指定してください。"
	case "end time must be after start time":
		return "終了時刻は開始時刻より後である必要があります。"
	case "at least one slot is required":
		return "少なくとも 1 件の開催枠を指定してください。"
	case "slot belongs to a different plan":
		return "開催枠が別の学期計画に属しています。"
	case "speaker has not declared availability for this date":
		return "講演者はこの日付の都合を登録していません。"
	case "suggestion is not attached to a plan":
		return "候補が学期計画に紐付いていません。"
	case "preference must be preferred or possible":
		return "希望度は preferred か possible で指定してください。"
	case "not a valid date":
		return "日付の形式が不正です。"
	case "duplicate date":
		return "日付が重複しています。"
	case "no seminar slot on this date":
		return "この日付には開催枠がありません。"
	case "arrival date must be in YYYY-MM-DD format":
		return "到着日は YYYY-MM-DD 形式で指定してください。"
	case "departure date must be in YYYY-MM-DD format":
		return "出発日は YYYY-MM-DD 形式で指定してください。"
	case "departure must not precede arrival":
		return "出発日は到着日以降である必要があります。"
	case "filename is required":
		return "ファイル名は必須です。"
	case "unknown file category":
		return "ファイル区分が不正です。"
	case "unknown token kind":
		return "トークン種別が不正です。"
	case "invalid backup name":
		return "バックアップ名が不正です。"
	default:
		return message
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}

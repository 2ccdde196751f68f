package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/seminar-scheduler/internal/application"
	"github.com/example/seminar-scheduler/internal/persistence"
)

// uploads above this limit are rejected before reaching the blob store
const maxUploadBytes = 32 << 20

type seminarService interface {
	GetSeminar(ctx context.Context, id int64) (persistence.Seminar, error)
	ListSeminars(ctx context.Context) ([]persistence.Seminar, error)
	UpdateSeminar(ctx context.Context, id int64, input application.SeminarUpdateInput) (persistence.Seminar, error)
	UpsertDetails(ctx context.Context, seminarID int64, input application.DetailsInput, actor string) (persistence.SeminarDetails, error)
	GetDetails(ctx context.Context, seminarID int64) (persistence.SeminarDetails, error)
	AddFile(ctx context.Context, seminarID int64, category persistence.FileCategory, filename string, content io.Reader, actor string) (persistence.UploadedFile, error)
	ListFiles(ctx context.Context, seminarID int64) ([]persistence.UploadedFile, error)
	OpenFile(ctx context.Context, fileID int64) (persistence.UploadedFile, io.ReadCloser, error)
	DeleteFile(ctx context.Context, fileID int64, actor string) error
}

type seminarDeleter interface {
	DeleteSeminar(ctx context.Context, id int64) error
}

type orphanLister interface {
	ListOrphanSeminars(ctx context.Context) ([]persistence.Seminar, error)
}

type SeminarHandler struct {
	service   seminarService
	deleter   seminarDeleter
	orphans   orphanLister
	responder responder
	logger    *slog.Logger
}

func NewSeminarHandler(service seminarService, deleter seminarDeleter, orphans orphanLister, logger *slog.Logger) *SeminarHandler {
	base := defaultLogger(logger)
	return &SeminarHandler{service: service, deleter: deleter, orphans: orphans, responder: newResponder(base), logger: base}
}

func (h *SeminarHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SeminarHandler", operation, attrs...)
}

type seminarDTO struct {
	ID               int64  `json:"id"`
	Title            string `json:"title"`
	Abstract         string `json:"abstract,omitempty"`
	Date             string `json:"date"`
	StartTime        string `json:"start_time,omitempty"`
	EndTime          string `json:"end_time,omitempty"`
	RoomID           *int64 `json:"room_id,omitempty"`
	SpeakerID        *int64 `json:"speaker_id,omitempty"`
	SuggestionID     *int64 `json:"suggestion_id,omitempty"`
	RoomBooked       bool   `json:"room_booked"`
	AnnouncementSent bool   `json:"announcement_sent"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

func toSeminarDTO(seminar persistence.Seminar) seminarDTO {
	return seminarDTO{
		ID:               seminar.ID,
		Title:            seminar.Title,
		Abstract:         seminar.Abstract,
		Date:             seminar.Date,
		StartTime:        seminar.StartTime,
		EndTime:          seminar.EndTime,
		RoomID:           seminar.RoomID,
		SpeakerID:        seminar.SpeakerID,
		SuggestionID:     seminar.SuggestionID,
		RoomBooked:       seminar.RoomBooked,
		AnnouncementSent: seminar.AnnouncementSent,
		CreatedAt:        seminar.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        seminar.UpdatedAt.Format(time.RFC3339),
	}
}

func toSeminarDTOs(seminars []persistence.Seminar) []seminarDTO {
	dtos := make([]seminarDTO, 0, len(seminars))
	for _, seminar := range seminars {
		dtos = append(dtos, toSeminarDTO(seminar))
	}
	return dtos
}

type detailsDTO struct {
	SeminarID          int64  `json:"seminar_id"`
	ArrivalDate        string `json:"arrival_date,omitempty"`
	DepartureDate      string `json:"departure_date,omitempty"`
	TravelNotes        string `json:"travel_notes,omitempty"`
	AccommodationNotes string `json:"accommodation_notes,omitempty"`
	PaymentRequired    bool   `json:"payment_required"`
	BankDetails        string `json:"bank_details,omitempty"`
	DietaryNotes       string `json:"dietary_notes,omitempty"`
	UpdatedAt          string `json:"updated_at"`
}

func toDetailsDTO(details persistence.SeminarDetails) detailsDTO {
	return detailsDTO{
		SeminarID:          details.SeminarID,
		ArrivalDate:        details.ArrivalDate,
		DepartureDate:      details.DepartureDate,
		TravelNotes:        details.TravelNotes,
		AccommodationNotes: details.AccommodationNotes,
		PaymentRequired:    details.PaymentRequired,
		BankDetails:        details.BankDetails,
		DietaryNotes:       details.DietaryNotes,
		UpdatedAt:          details.UpdatedAt.Format(time.RFC3339),
	}
}

type fileDTO struct {
	ID         int64  `json:"id"`
	SeminarID  int64  `json:"seminar_id"`
	Category   string `json:"category"`
	Filename   string `json:"filename"`
	UploadedAt string `json:"uploaded_at"`
}

func toFileDTO(file persistence.UploadedFile) fileDTO {
	return fileDTO{
		ID:         file.ID,
		SeminarID:  file.SeminarID,
		Category:   string(file.Category),
		Filename:   file.Filename,
		UploadedAt: file.UploadedAt.Format(time.RFC3339),
	}
}

type seminarUpdateRequest struct {
	Title            string `json:"title"`
	Abstract         string `json:"abstract"`
	Date             string `json:"date"`
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
	RoomID           *int64 `json:"room_id"`
	RoomBooked       bool   `json:"room_booked"`
	AnnouncementSent bool   `json:"announcement_sent"`
}

type detailsRequest struct {
	ArrivalDate        string `json:"arrival_date"`
	DepartureDate      string `json:"departure_date"`
	TravelNotes        string `json:"travel_notes"`
	AccommodationNotes string `json:"accommodation_notes"`
	PaymentRequired    bool   `json:"payment_required"`
	BankDetails        string `json:"bank_details"`
	DietaryNotes       string `json:"dietary_notes"`
}

func (req detailsRequest) toInput() application.DetailsInput {
	return application.DetailsInput{
		ArrivalDate:        req.ArrivalDate,
		DepartureDate:      req.DepartureDate,
		TravelNotes:        req.TravelNotes,
		AccommodationNotes: req.AccommodationNotes,
		PaymentRequired:    req.PaymentRequired,
		BankDetails:        req.BankDetails,
		DietaryNotes:       req.DietaryNotes,
	}
}

func (h *SeminarHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var (
		seminars []persistence.Seminar
		err      error
	)
	if r.URL.Query().Get("orphans") == "true" && h.orphans != nil {
		seminars, err = h.orphans.ListOrphanSeminars(r.Context())
	} else {
		seminars, err = h.service.ListSeminars(r.Context())
	}
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "seminar listing failed", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string][]seminarDTO{"seminars": toSeminarDTOs(seminars)})
}

func (h *SeminarHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	seminarID, ok := SeminarIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSeminarID)
		return
	}

	seminar, err := h.service.GetSeminar(r.Context(), seminarID)
	if err != nil {
		h.log(r.Context(), "Get", "seminar_id", seminarID).ErrorContext(r.Context(), "seminar lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSeminarDTO(seminar))
}

func (h *SeminarHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	seminarID, ok := SeminarIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSeminarID)
		return
	}

	var req seminarUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "seminar_id", seminarID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode seminar request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "seminar_id", seminarID)

	seminar, err := h.service.UpdateSeminar(r.Context(), seminarID, application.SeminarUpdateInput{
		Title:            req.Title,
		Abstract:         req.Abstract,
		Date:             req.Date,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		RoomID:           req.RoomID,
		RoomBooked:       req.RoomBooked,
		AnnouncementSent: req.AnnouncementSent,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "seminar update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "seminar updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSeminarDTO(seminar))
}

func (h *SeminarHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.deleter == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	seminarID, ok := SeminarIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSeminarID)
		return
	}

	logger := h.log(r.Context(), "Delete", "seminar_id", seminarID)
	if err := h.deleter.DeleteSeminar(r.Context(), seminarID); err != nil {
		logger.ErrorContext(r.Context(), "seminar delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "seminar deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *SeminarHandler) PutDetails(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	seminarID, ok := SeminarIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSeminarID)
		return
	}

	var req detailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "PutDetails", "seminar_id", seminarID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode details request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "PutDetails", "seminar_id", seminarID)

	details, err := h.service.UpsertDetails(r.Context(), seminarID, req.toInput(), "admin")
	if err != nil {
		logger.ErrorContext(r.Context(), "details upsert failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "details saved")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toDetailsDTO(details))
}

func (h *SeminarHandler) GetDetails(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	seminarID, ok := SeminarIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSeminarID)
		return
	}

	details, err := h.service.GetDetails(r.Context(), seminarID)
	if err != nil {
		h.log(r.Context(), "GetDetails", "seminar_id", seminarID).ErrorContext(r.Context(), "details lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toDetailsDTO(details))
}

func (h *SeminarHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	seminarID, ok := SeminarIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSeminarID)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.log(r.Context(), "UploadFile", "seminar_id", seminarID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to parse multipart form", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.log(r.Context(), "UploadFile", "seminar_id", seminarID, "error_kind", "bad_request").ErrorContext(r.Context(), "missing file part", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	defer file.Close()

	category := persistence.FileCategory(r.FormValue("category"))
	if category == "" {
		category = persistence.FileOther
	}

	logger := h.log(r.Context(), "UploadFile", "seminar_id", seminarID, "category", string(category))

	uploaded, err := h.service.AddFile(r.Context(), seminarID, category, header.Filename, file, "admin")
	if err != nil {
		logger.ErrorContext(r.Context(), "file upload failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("file_id", uploaded.ID).InfoContext(r.Context(), "file uploaded")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toFileDTO(uploaded))
}

func (h *SeminarHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	seminarID, ok := SeminarIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSeminarID)
		return
	}

	files, err := h.service.ListFiles(r.Context(), seminarID)
	if err != nil {
		h.log(r.Context(), "ListFiles", "seminar_id", seminarID).ErrorContext(r.Context(), "file listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]fileDTO, 0, len(files))
	for _, file := range files {
		dtos = append(dtos, toFileDTO(file))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string][]fileDTO{"files": dtos})
}

func (h *SeminarHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	fileID, ok := FileIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidFileID)
		return
	}

	file, content, err := h.service.OpenFile(r.Context(), fileID)
	if err != nil {
		h.log(r.Context(), "DownloadFile", "file_id", fileID).ErrorContext(r.Context(), "file open failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	defer content.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, content); err != nil {
		h.log(r.Context(), "DownloadFile", "file_id", fileID).ErrorContext(r.Context(), "file streaming failed", "error", err)
	}
}

func (h *SeminarHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	fileID, ok := FileIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidFileID)
		return
	}

	logger := h.log(r.Context(), "DeleteFile", "file_id", fileID)
	if err := h.service.DeleteFile(r.Context(), fileID, "admin"); err != nil {
		logger.ErrorContext(r.Context(), "file delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "file deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

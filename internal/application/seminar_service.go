package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/seminar-scheduler/internal/blob"
	"github.com/example/seminar-scheduler/internal/persistence"
)

// SeminarUpdateInput carries the editable fields of a seminar.
type SeminarUpdateInput struct {
	Title            string
	Abstract         string
	Date             string
	StartTime        string
	EndTime          string
	RoomID           *int64
	RoomBooked       bool
	AnnouncementSent bool
}

// DetailsInput carries the travel and payment fields speakers submit through
// the info page.
type DetailsInput struct {
	ArrivalDate        string
	DepartureDate      string
	TravelNotes        string
	AccommodationNotes string
	PaymentRequired    bool
	BankDetails        string
	DietaryNotes       string
}

// SeminarService orchestrates seminars, their details records and uploaded
// files.
type SeminarService struct {
	seminars persistence.SeminarRepository
	rooms    persistence.RoomRepository
	blobs    *blob.Store
	activity *ActivityService
	logger   *slog.Logger
	now      func() time.Time
}

// NewSeminarService wires dependencies for seminar operations.
func NewSeminarService(
	seminars persistence.SeminarRepository,
	rooms persistence.RoomRepository,
	blobs *blob.Store,
	activity *ActivityService,
	logger *slog.Logger,
	now func() time.Time,
) *SeminarService {
	if now == nil {
		now = time.Now
	}
	return &SeminarService{
		seminars: seminars,
		rooms:    rooms,
		blobs:    blobs,
		activity: activity,
		logger:   defaultLogger(logger),
		now:      now,
	}
}

// GetSeminar retrieves one seminar.
func (s *SeminarService) GetSeminar(ctx context.Context, id int64) (persistence.Seminar, error) {
	seminar, err := s.seminars.GetSeminar(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Seminar{}, ErrNotFound
		}
		return persistence.Seminar{}, err
	}
	return seminar, nil
}

// GetSeminarForSuggestion retrieves the seminar a suggestion was assigned
// to, if any.
func (s *SeminarService) GetSeminarForSuggestion(ctx context.Context, suggestionID int64) (persistence.Seminar, error) {
	seminar, err := s.seminars.GetSeminarForSuggestion(ctx, suggestionID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Seminar{}, ErrNotFound
		}
		return persistence.Seminar{}, err
	}
	return seminar, nil
}

// ListSeminars lists all seminars in date order.
func (s *SeminarService) ListSeminars(ctx context.Context) ([]persistence.Seminar, error) {
	return s.seminars.ListSeminars(ctx)
}

// UpdateSeminar validates and updates a seminar's editable fields.
func (s *SeminarService) UpdateSeminar(ctx context.Context, id int64, input SeminarUpdateInput) (persistence.Seminar, error) {
	before, err := s.seminars.GetSeminar(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Seminar{}, ErrNotFound
		}
		return persistence.Seminar{}, err
	}

	vErr := &ValidationError{}
	if _, err := time.Parse("2006-01-02", input.Date); err != nil {
		vErr.add("date", "date must be in YYYY-MM-DD format")
	}
	if input.StartTime != "" {
		if _, err := time.Parse("15:04", input.StartTime); err != nil {
			vErr.add("start_time", "start time must be in HH:MM format")
		}
	}
	if input.EndTime != "" {
		if _, err := time.Parse("15:04", input.EndTime); err != nil {
			vErr.add("end_time", "end time must be in HH:MM format")
		}
	}
	if input.RoomID != nil {
		if _, err := s.rooms.GetRoom(ctx, *input.RoomID); err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				vErr.add("room_id", "room does not exist")
			} else {
				return persistence.Seminar{}, err
			}
		}
	}
	if vErr.HasErrors() {
		return persistence.Seminar{}, vErr
	}

	updated := before
	updated.Title = strings.TrimSpace(input.Title)
	updated.Abstract = input.Abstract
	updated.Date = input.Date
	updated.StartTime = input.StartTime
	updated.EndTime = input.EndTime
	updated.RoomID = input.RoomID
	updated.RoomBooked = input.RoomBooked
	updated.AnnouncementSent = input.AnnouncementSent

	if err := s.seminars.UpdateSeminar(ctx, updated); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Seminar{}, ErrNotFound
		}
		return persistence.Seminar{}, err
	}

	s.activity.Record(ctx, "", "seminar.update", "seminar", id, before, updated)

	return updated, nil
}

// UpsertDetails creates or replaces the seminar's details record.
func (s *SeminarService) UpsertDetails(ctx context.Context, seminarID int64, input DetailsInput, actor string) (persistence.SeminarDetails, error) {
	if _, err := s.seminars.GetSeminar(ctx, seminarID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.SeminarDetails{}, ErrNotFound
		}
		return persistence.SeminarDetails{}, err
	}

	vErr := &ValidationError{}
	if input.ArrivalDate != "" {
		if _, err := time.Parse("2006-01-02", input.ArrivalDate); err != nil {
			vErr.add("arrival_date", "arrival date must be in YYYY-MM-DD format")
		}
	}
	if input.DepartureDate != "" {
		if _, err := time.Parse("2006-01-02", input.DepartureDate); err != nil {
			vErr.add("departure_date", "departure date must be in YYYY-MM-DD format")
		}
	}
	if input.ArrivalDate != "" && input.DepartureDate != "" && input.DepartureDate < input.ArrivalDate {
		vErr.add("departure_date", "departure must not precede arrival")
	}
	if vErr.HasErrors() {
		return persistence.SeminarDetails{}, vErr
	}

	before, err := s.seminars.GetDetails(ctx, seminarID)
	if err != nil && !errors.Is(err, persistence.ErrNotFound) {
		return persistence.SeminarDetails{}, err
	}

	details := persistence.SeminarDetails{
		SeminarID:          seminarID,
		ArrivalDate:        input.ArrivalDate,
		DepartureDate:      input.DepartureDate,
		TravelNotes:        input.TravelNotes,
		AccommodationNotes: input.AccommodationNotes,
		PaymentRequired:    input.PaymentRequired,
		BankDetails:        input.BankDetails,
		DietaryNotes:       input.DietaryNotes,
	}

	if err := s.seminars.UpsertDetails(ctx, details); err != nil {
		return persistence.SeminarDetails{}, err
	}

	s.activity.Record(ctx, actor, "seminar.details", "seminar", seminarID, before, details)

	return details, nil
}

// GetDetails retrieves the seminar's details record.
func (s *SeminarService) GetDetails(ctx context.Context, seminarID int64) (persistence.SeminarDetails, error) {
	details, err := s.seminars.GetDetails(ctx, seminarID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.SeminarDetails{}, ErrNotFound
		}
		return persistence.SeminarDetails{}, err
	}
	return details, nil
}

// AddFile stores uploaded content in the blob area and records the file row.
func (s *SeminarService) AddFile(ctx context.Context, seminarID int64, category persistence.FileCategory, filename string, content io.Reader, actor string) (persistence.UploadedFile, error) {
	if _, err := s.seminars.GetSeminar(ctx, seminarID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.UploadedFile{}, ErrNotFound
		}
		return persistence.UploadedFile{}, err
	}

	vErr := &ValidationError{}
	filename = sanitizeFilename(filename)
	if filename == "" {
		vErr.add("filename", "filename is required")
	}
	switch category {
	case persistence.FileCV, persistence.FilePhoto, persistence.FilePassport, persistence.FileFlight, persistence.FileOther, "":
	default:
		vErr.add("category", "unknown file category")
	}
	if vErr.HasErrors() {
		return persistence.UploadedFile{}, vErr
	}

	key := path.Join("seminars", fmt.Sprintf("%d", seminarID),
		strings.ReplaceAll(uuid.NewString(), "-", "")+"-"+filename)

	if err := s.blobs.Save(key, content); err != nil {
		return persistence.UploadedFile{}, err
	}

	file, err := s.seminars.AddFile(ctx, persistence.UploadedFile{
		SeminarID: seminarID,
		Category:  category,
		Filename:  filename,
		Path:      key,
	})
	if err != nil {
		// Roll the blob back so the store doesn't accumulate unreferenced
		// content.
		if removeErr := s.blobs.Remove(key); removeErr != nil {
			serviceLogger(ctx, s.logger, "seminar", "add_file").Warn("failed to remove orphaned blob",
				slog.String("path", key), slog.String("error", removeErr.Error()))
		}
		return persistence.UploadedFile{}, err
	}

	s.activity.Record(ctx, actor, "seminar.add_file", "seminar", seminarID, nil, map[string]interface{}{
		"file_id":  file.ID,
		"category": string(file.Category),
		"filename": file.Filename,
	})

	return file, nil
}

// ListFiles lists a seminar's uploaded files.
func (s *SeminarService) ListFiles(ctx context.Context, seminarID int64) ([]persistence.UploadedFile, error) {
	if _, err := s.seminars.GetSeminar(ctx, seminarID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.seminars.ListFiles(ctx, seminarID)
}

// OpenFile returns a file's metadata and a reader over its content.
func (s *SeminarService) OpenFile(ctx context.Context, fileID int64) (persistence.UploadedFile, io.ReadCloser, error) {
	file, err := s.seminars.GetFile(ctx, fileID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.UploadedFile{}, nil, ErrNotFound
		}
		return persistence.UploadedFile{}, nil, err
	}

	reader, err := s.blobs.Open(file.Path)
	if err != nil {
		if errors.Is(err, blob.ErrBlobNotFound) {
			return persistence.UploadedFile{}, nil, ErrNotFound
		}
		return persistence.UploadedFile{}, nil, err
	}

	return file, reader, nil
}

// DeleteFile removes a file row together with its blob content.
func (s *SeminarService) DeleteFile(ctx context.Context, fileID int64, actor string) error {
	file, err := s.seminars.GetFile(ctx, fileID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if err := s.seminars.DeleteFile(ctx, fileID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if err := s.blobs.Remove(file.Path); err != nil {
		serviceLogger(ctx, s.logger, "seminar", "delete_file").Warn("failed to remove blob",
			slog.String("path", file.Path), slog.String("error", err.Error()))
	}

	s.activity.Record(ctx, actor, "seminar.delete_file", "seminar", file.SeminarID, file, nil)

	return nil
}

// sanitizeFilename strips directory components and whitespace from an
// uploaded filename.
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	return name
}

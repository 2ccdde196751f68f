package http

import (
	"net/http"
	"strconv"
	"strings"
)

type RouterConfig struct {
	Plans        *PlanHandler
	Rooms        *RoomHandler
	Speakers     *SpeakerHandler
	Suggestions  *SuggestionHandler
	Slots        *SlotHandler
	Seminars     *SeminarHandler
	SpeakerPages *SpeakerPageHandler
	Admin        *AdminHandler
	AdminGate    func(http.Handler) http.Handler
	Middleware   []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Plans != nil {
		mux.HandleFunc("/plans", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Plans.List(w, r)
			case http.MethodPost:
				cfg.Plans.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/plans/", func(w http.ResponseWriter, r *http.Request) {
			id, rest, ok := splitResourcePath(r.URL.Path, "/plans/")
			if !ok {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithPlanID(r.Context(), id))
			switch rest {
			case "":
				switch r.Method {
				case http.MethodGet:
					cfg.Plans.Get(w, r)
				case http.MethodDelete:
					cfg.Plans.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodDelete)
				}
			case "slots":
				switch r.Method {
				case http.MethodGet:
					cfg.Plans.ListSlots(w, r)
				case http.MethodPost:
					cfg.Plans.CreateSlots(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPost)
				}
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Rooms != nil {
		mux.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Rooms.List(w, r)
			case http.MethodPost:
				cfg.Rooms.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/rooms/", func(w http.ResponseWriter, r *http.Request) {
			id, rest, ok := splitResourcePath(r.URL.Path, "/rooms/")
			if !ok || rest != "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithRoomID(r.Context(), id))
			switch r.Method {
			case http.MethodGet:
				cfg.Rooms.Get(w, r)
			case http.MethodPut:
				cfg.Rooms.Update(w, r)
			case http.MethodDelete:
				cfg.Rooms.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
			}
		})
	}

	if cfg.Speakers != nil {
		mux.HandleFunc("/speakers", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Speakers.List(w, r)
			case http.MethodPost:
				cfg.Speakers.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/speakers/", func(w http.ResponseWriter, r *http.Request) {
			id, rest, ok := splitResourcePath(r.URL.Path, "/speakers/")
			if !ok || rest != "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithSpeakerID(r.Context(), id))
			switch r.Method {
			case http.MethodGet:
				cfg.Speakers.Get(w, r)
			case http.MethodPut:
				cfg.Speakers.Update(w, r)
			case http.MethodDelete:
				cfg.Speakers.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
			}
		})
	}

	if cfg.Suggestions != nil {
		mux.HandleFunc("/suggestions", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Suggestions.List(w, r)
			case http.MethodPost:
				cfg.Suggestions.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/suggestions/", func(w http.ResponseWriter, r *http.Request) {
			id, rest, ok := splitResourcePath(r.URL.Path, "/suggestions/")
			if !ok {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithSuggestionID(r.Context(), id))
			switch rest {
			case "":
				switch r.Method {
				case http.MethodGet:
					cfg.Suggestions.Get(w, r)
				case http.MethodPatch:
					cfg.Suggestions.Update(w, r)
				case http.MethodDelete:
					cfg.Suggestions.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPatch, http.MethodDelete)
				}
			case "workflow":
				if r.Method != http.MethodPatch {
					methodNotAllowed(w, http.MethodPatch)
					return
				}
				cfg.Suggestions.PatchWorkflow(w, r)
			case "tokens":
				switch r.Method {
				case http.MethodGet:
					cfg.Suggestions.ListTokens(w, r)
				case http.MethodPost:
					cfg.Suggestions.IssueToken(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPost)
				}
			case "assignment":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Suggestions.Assign(w, r)
			case "eligible-slots":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Suggestions.EligibleSlots(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Slots != nil {
		mux.HandleFunc("/slots/", func(w http.ResponseWriter, r *http.Request) {
			id, rest, ok := splitResourcePath(r.URL.Path, "/slots/")
			if !ok {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithSlotID(r.Context(), id))
			switch rest {
			case "":
				if r.Method != http.MethodDelete {
					methodNotAllowed(w, http.MethodDelete)
					return
				}
				cfg.Slots.Delete(w, r)
			case "release":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Slots.Release(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Seminars != nil {
		mux.HandleFunc("/seminars", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Seminars.List(w, r)
		})
		mux.HandleFunc("/seminars/", func(w http.ResponseWriter, r *http.Request) {
			id, rest, ok := splitResourcePath(r.URL.Path, "/seminars/")
			if !ok {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithSeminarID(r.Context(), id))
			switch rest {
			case "":
				switch r.Method {
				case http.MethodGet:
					cfg.Seminars.Get(w, r)
				case http.MethodPatch:
					cfg.Seminars.Update(w, r)
				case http.MethodDelete:
					cfg.Seminars.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPatch, http.MethodDelete)
				}
			case "details":
				switch r.Method {
				case http.MethodGet:
					cfg.Seminars.GetDetails(w, r)
				case http.MethodPut:
					cfg.Seminars.PutDetails(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPut)
				}
			case "files":
				switch r.Method {
				case http.MethodGet:
					cfg.Seminars.ListFiles(w, r)
				case http.MethodPost:
					cfg.Seminars.UploadFile(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPost)
				}
			default:
				http.NotFound(w, r)
			}
		})
		mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
			id, rest, ok := splitResourcePath(r.URL.Path, "/files/")
			if !ok || rest != "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithFileID(r.Context(), id))
			switch r.Method {
			case http.MethodGet:
				cfg.Seminars.DownloadFile(w, r)
			case http.MethodDelete:
				cfg.Seminars.DeleteFile(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodDelete)
			}
		})
	}

	if cfg.SpeakerPages != nil {
		mux.HandleFunc("/speaker/availability", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.SpeakerPages.GetAvailability(w, r)
			case http.MethodPost:
				cfg.SpeakerPages.SubmitAvailability(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/speaker/info", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.SpeakerPages.GetInfo(w, r)
			case http.MethodPost:
				cfg.SpeakerPages.SubmitInfo(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/speaker/status", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.SpeakerPages.GetStatus(w, r)
		})
	}

	if cfg.Admin != nil {
		admin := http.NewServeMux()
		admin.HandleFunc("/admin/backups", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Admin.ListBackups(w, r)
			case http.MethodPost:
				cfg.Admin.CreateBackup(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		admin.HandleFunc("/admin/backups/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/admin/backups/"), "/")
			name, found := strings.CutSuffix(rest, "/inspect")
			if !found || name == "" || strings.Contains(name, "/") {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			r = r.WithContext(ContextWithBackupName(r.Context(), name))
			cfg.Admin.InspectBackup(w, r)
		})
		admin.HandleFunc("/admin/restore", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Admin.RequestRestore(w, r)
		})
		admin.HandleFunc("/admin/restore/confirm", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Admin.ConfirmRestore(w, r)
		})
		admin.HandleFunc("/admin/reset", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Admin.RequestReset(w, r)
		})
		admin.HandleFunc("/admin/reset/confirm", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Admin.ConfirmReset(w, r)
		})
		admin.HandleFunc("/admin/activity", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Admin.ListActivity(w, r)
		})

		var adminHandler http.Handler = admin
		if cfg.AdminGate != nil {
			adminHandler = cfg.AdminGate(adminHandler)
		}
		mux.Handle("/admin/", adminHandler)
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}

// splitResourcePath parses "/prefix/{id}" and "/prefix/{id}/{rest}" paths.
func splitResourcePath(path, prefix string) (int64, string, bool) {
	trimmed := strings.TrimPrefix(path, prefix)
	if trimmed == "" {
		return 0, "", false
	}
	rawID := trimmed
	rest := ""
	if i := strings.Index(trimmed, "/"); i >= 0 {
		rawID = trimmed[:i]
		rest = strings.Trim(trimmed[i+1:], "/")
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", false
	}
	return id, rest, true
}

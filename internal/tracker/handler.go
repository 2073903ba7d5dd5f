package tracker

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/2beens/bodylog/internal/entries"
	"github.com/2beens/bodylog/internal/livesync"
	"github.com/2beens/bodylog/internal/middleware"
	"github.com/2beens/bodylog/internal/store"
	"github.com/2beens/bodylog/internal/telemetry/metrics"
	"github.com/2beens/bodylog/internal/telemetry/tracing"
	"github.com/2beens/bodylog/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=tracker_test

type liveSync interface {
	State() livesync.State
	Updated() <-chan struct{}
	AddWeight(ctx context.Context, entry entries.WeightEntry) (string, error)
	AddExercise(ctx context.Context, entry entries.ExerciseEntry) (string, error)
	AddJournal(ctx context.Context, entry entries.JournalEntry) (string, error)
	Update(ctx context.Context, entry entries.Entry) error
	Delete(ctx context.Context, kind entries.Kind, id string) error
	Retry(ctx context.Context) error
}

const kindPattern = "{kind:weight|exercise|journal}"

type AddEntryResponse struct {
	ID string `json:"id"`
}

type EntriesResponse struct {
	Kind    entries.Kind    `json:"kind"`
	Entries []entries.Entry `json:"entries"`
	Loading bool            `json:"loading"`
	Error   *string         `json:"error"`
}

type Handler struct {
	sync      liveSync
	heartbeat time.Duration
}

func NewHandler(sync liveSync) *Handler {
	return &Handler{
		sync:      sync,
		heartbeat: 15 * time.Second,
	}
}

// WithHeartbeat sets how often an idle event stream gets a keep-alive comment.
func (handler *Handler) WithHeartbeat(d time.Duration) *Handler {
	if d > 0 {
		handler.heartbeat = d
	}
	return handler
}

func (handler *Handler) SetupRoutes(
	mainRouter *mux.Router,
	rateLimiter middleware.RequestRateLimiter,
	rateLimitPerMin int,
	metricsManager *metrics.Manager,
) {
	api := mainRouter.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", handler.HandleState).Methods("GET", "OPTIONS").Name("state")
	api.HandleFunc("/stream", handler.HandleStream).Methods("GET").Name("stream")
	api.HandleFunc("/"+kindPattern, handler.HandleList).Methods("GET").Name("list-entries")

	mutations := api.NewRoute().Subrouter()
	mutations.HandleFunc("/"+kindPattern, handler.HandleAdd).Methods("POST", "OPTIONS").Name("add-entry")
	mutations.HandleFunc("/"+kindPattern+"/{id}", handler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-entry")
	mutations.HandleFunc("/"+kindPattern+"/{id}", handler.HandleDelete).Methods("DELETE").Name("delete-entry")
	mutations.HandleFunc("/sync/retry", handler.HandleRetry).Methods("POST", "OPTIONS").Name("sync-retry")

	mutations.Use(middleware.RateLimit(rateLimiter, "api-mutations", rateLimitPerMin, metricsManager))
}

func (handler *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.tracker.state")
	defer span.End()

	if optionsRequest(w, r, "GET, OPTIONS") {
		return
	}

	state := handler.sync.State()
	status := http.StatusOK
	if state.Fatal {
		status = http.StatusServiceUnavailable
	}
	span.SetAttributes(attribute.Bool("loading", state.Loading), attribute.Bool("fatal", state.Fatal))

	pkg.WriteJSON(w, status, state)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.tracker.list")
	defer span.End()

	kind, err := entries.ParseKind(mux.Vars(r)["kind"])
	if err != nil {
		pkg.WriteJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	span.SetAttributes(attribute.String("kind", kind.String()))

	state := handler.sync.State()
	pkg.WriteJSON(w, http.StatusOK, EntriesResponse{
		Kind:    kind,
		Entries: state.EntriesOf(kind),
		Loading: state.Loading,
		Error:   state.Error,
	})
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.tracker.add")
	defer span.End()

	if optionsRequest(w, r, "POST, OPTIONS") {
		return
	}

	kind, err := entries.ParseKind(mux.Vars(r)["kind"])
	if err != nil {
		pkg.WriteJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	span.SetAttributes(attribute.String("kind", kind.String()))

	entry, err := decodeEntry(kind, "", r.Body)
	if err != nil {
		log.Debugf("add %s entry, invalid request: %s", kind, err)
		pkg.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var id string
	switch e := entry.(type) {
	case entries.WeightEntry:
		id, err = handler.sync.AddWeight(ctx, e)
	case entries.ExerciseEntry:
		id, err = handler.sync.AddExercise(ctx, e)
	case entries.JournalEntry:
		id, err = handler.sync.AddJournal(ctx, e)
	}
	if err != nil {
		log.Errorf("failed to add new %s entry: %s", kind, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "Failed to save "+kind.String()+" entry")
		return
	}

	log.Debugf("new %s entry added: %s", kind, id)
	pkg.WriteJSON(w, http.StatusCreated, AddEntryResponse{ID: id})
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.tracker.update")
	defer span.End()

	if optionsRequest(w, r, "PUT, DELETE, OPTIONS") {
		return
	}

	vars := mux.Vars(r)
	kind, err := entries.ParseKind(vars["kind"])
	if err != nil {
		pkg.WriteJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	id := vars["id"]
	span.SetAttributes(attribute.String("kind", kind.String()), attribute.String("id", id))

	entry, err := decodeEntry(kind, id, r.Body)
	if err != nil {
		log.Debugf("update %s entry %s, invalid request: %s", kind, id, err)
		pkg.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := handler.sync.Update(ctx, entry); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			pkg.WriteJSONError(w, http.StatusNotFound, kind.String()+" entry not found")
			return
		}
		log.Errorf("failed to update %s entry %s: %s", kind, id, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "Failed to update "+kind.String()+" entry")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.tracker.delete")
	defer span.End()

	vars := mux.Vars(r)
	kind, err := entries.ParseKind(vars["kind"])
	if err != nil {
		pkg.WriteJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	id := vars["id"]
	span.SetAttributes(attribute.String("kind", kind.String()), attribute.String("id", id))

	if err := handler.sync.Delete(ctx, kind, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			pkg.WriteJSONError(w, http.StatusNotFound, kind.String()+" entry not found")
			return
		}
		log.Errorf("failed to delete %s entry %s: %s", kind, id, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "Failed to delete "+kind.String()+" entry")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (handler *Handler) HandleRetry(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.tracker.retry")
	defer span.End()

	if optionsRequest(w, r, "POST, OPTIONS") {
		return
	}

	if err := handler.sync.Retry(ctx); err != nil {
		if errors.Is(err, livesync.ErrNotFailed) {
			pkg.WriteJSONError(w, http.StatusConflict, err.Error())
			return
		}
		log.Errorf("live sync retry: %s", err)
		pkg.WriteJSON(w, http.StatusServiceUnavailable, handler.sync.State())
		return
	}

	pkg.WriteJSON(w, http.StatusOK, handler.sync.State())
}

func optionsRequest(w http.ResponseWriter, r *http.Request, allow string) bool {
	if r.Method != http.MethodOptions {
		return false
	}
	w.Header().Add("Allow", allow)
	w.WriteHeader(http.StatusOK)
	return true
}

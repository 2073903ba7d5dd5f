package misc

import (
	"context"
	"net/http"
	"time"

	"github.com/2beens/bodylog/internal/livesync"
	"github.com/2beens/bodylog/internal/telemetry/tracing"
	"github.com/2beens/bodylog/pkg"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

type pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

type stateReader interface {
	State() livesync.State
}

type HealthResponse struct {
	Status  string `json:"status"`
	Redis   string `json:"redis"`
	Sync    string `json:"sync"`
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

type Handler struct {
	redisClient pinger
	sync        stateReader
	versionInfo string
	pingTimeout time.Duration
}

// NewHandler creates the service handler. redisClient may be nil when rate limiting is off.
func NewHandler(redisClient *redis.Client, sync stateReader, versionInfo string) *Handler {
	handler := &Handler{
		sync:        sync,
		versionInfo: versionInfo,
		pingTimeout: 2 * time.Second,
	}
	if redisClient != nil {
		handler.redisClient = redisClient
	}
	return handler
}

func (handler *Handler) SetupRoutes(mainRouter *mux.Router) {
	mainRouter.HandleFunc("/", handler.handleRoot).Methods("GET", "OPTIONS").Name("root")
	mainRouter.HandleFunc("/health", handler.handleHealth).Methods("GET").Name("health")
	mainRouter.HandleFunc("/version", handler.handleGetVersionInfo).Methods("GET").Name("version")
}

func (handler *Handler) handleRoot(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, "I'm OK, thanks ;)")
}

func (handler *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "miscHandler.health")
	defer span.End()

	resp := HealthResponse{
		Status: "ok",
		Redis:  "disabled",
	}
	status := http.StatusOK

	if handler.redisClient != nil {
		pingCtx, cancel := context.WithTimeout(ctx, handler.pingTimeout)
		defer cancel()
		if err := handler.redisClient.Ping(pingCtx).Err(); err != nil {
			log.Errorf("health: redis ping: %s", err)
			resp.Redis = "down"
			resp.Status = "degraded"
		} else {
			resp.Redis = "ok"
		}
	}

	state := handler.sync.State()
	resp.Loading = state.Loading
	switch {
	case state.Fatal:
		resp.Sync = "failed"
		resp.Status = "down"
		status = http.StatusServiceUnavailable
	case state.Loading:
		resp.Sync = "loading"
	default:
		resp.Sync = "live"
	}
	if state.Error != nil {
		resp.Error = *state.Error
	}

	if status != http.StatusOK {
		span.SetStatus(codes.Error, resp.Status)
	}
	pkg.WriteJSON(w, status, resp)
}

func (handler *Handler) handleGetVersionInfo(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, handler.versionInfo)
}

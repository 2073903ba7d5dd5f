package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/2beens/bodylog/internal/telemetry/tracing"
	"github.com/2beens/bodylog/pkg"

	log "github.com/sirupsen/logrus"
)

// HandleStream pushes the full state as a server-sent "state" event on connect and after
// every change, until the client goes away.
func (handler *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.tracker.stream")
	defer span.End()

	rc := http.NewResponseController(w)
	// the stream outlives the server write timeout
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		log.Warnf("stream: clear write deadline: %s", err)
	}

	w.Header().Set("Content-Type", pkg.ContentType.EventStream)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	heartbeat := time.NewTicker(handler.heartbeat)
	defer heartbeat.Stop()

	sent := 0
	defer func() {
		log.Debugf("stream closed after %d events", sent)
	}()

	for {
		// taken before reading the state, so a change in between is not missed
		updated := handler.sync.Updated()

		if err := writeEvent(w, "state", handler.sync.State()); err != nil {
			log.Debugf("stream: write state: %s", err)
			return
		}
		if err := rc.Flush(); err != nil {
			log.Debugf("stream: flush: %s", err)
			return
		}
		sent++

	wait:
		for {
			select {
			case <-ctx.Done():
				return
			case <-updated:
				break wait
			case <-heartbeat.C:
				if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
					return
				}
				if err := rc.Flush(); err != nil {
					return
				}
			}
		}
	}
}

func writeEvent(w io.Writer, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

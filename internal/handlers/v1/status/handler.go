package status

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/carson-networks/wallet-server/internal/logging"
)

// Pinger is a dependency the service cannot work without, such as the ledger database.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	Dependencies map[string]Pinger
}

func NewHandler(dependencies map[string]Pinger) Handler {
	return Handler{Dependencies: dependencies}
}

func (h *Handler) Handler(w http.ResponseWriter, req *http.Request, logData *logging.LogData) error {
	if req.Method != "GET" {
		w.WriteHeader(http.StatusBadRequest)
		return errors.New("status: method not GET")
	}

	ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
	defer cancel()
	for name, dep := range h.Dependencies {
		stop := logData.AddTiming(name + "PingMs")
		err := dep.PingContext(ctx)
		stop()
		if err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return fmt.Errorf("status: %s: %w", name, err)
		}
	}

	w.WriteHeader(http.StatusOK)
	return nil
}

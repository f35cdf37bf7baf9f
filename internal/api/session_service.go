package api

import (
	"context"
	"time"

	"github.com/matheus3301/campus/internal/realtime"
	"github.com/matheus3301/campus/internal/rpc"
	"github.com/matheus3301/campus/internal/status"
	"github.com/matheus3301/campus/internal/store"
)

// SessionService implements rpc.SessionServer.
type SessionService struct {
	institute string
	startedAt time.Time
	machine   *status.Machine
	hub       *realtime.Hub
	db        *store.DB
}

// NewSessionService creates a new session service.
func NewSessionService(institute string, machine *status.Machine, hub *realtime.Hub, db *store.DB) *SessionService {
	return &SessionService{
		institute: institute,
		startedAt: time.Now(),
		machine:   machine,
		hub:       hub,
		db:        db,
	}
}

func (s *SessionService) Status(_ context.Context, _ *rpc.StatusRequest) (*rpc.StatusResponse, error) {
	resp := &rpc.StatusResponse{
		Institute: s.institute,
		Status:    string(s.machine.Current()),
		UptimeMs:  time.Since(s.startedAt).Milliseconds(),
	}
	if s.db != nil {
		resp.Dialect = string(s.db.Dialect())
	}
	if s.hub != nil {
		resp.Subscribers = s.hub.Subscribers()
		resp.Dropped = s.hub.Dropped()
	}
	return resp, nil
}

package services

import (
	"context"

	"Mikrotik-Dashboard/errs"
	"Mikrotik-Dashboard/models"

	"go.uber.org/zap"
)

// ConnectionService keeps the connection registry and the live sessions in
// step: records that are deleted or re-pointed lose their session.
type ConnectionService struct {
	store    ConnectionStore
	sessions *SessionManager
	log      *zap.Logger
}

func NewConnectionService(store ConnectionStore, sessions *SessionManager, log *zap.Logger) *ConnectionService {
	return &ConnectionService{store: store, sessions: sessions, log: log}
}

func (s *ConnectionService) Create(ctx context.Context, req *models.ConnectionCreateRequest) (*models.ConnectionRecord, error) {
	rec, err := s.store.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.log.Info("connection created", zap.String("connection_id", rec.ID), zap.String("name", rec.Name))
	return rec, nil
}

func (s *ConnectionService) List(ctx context.Context) ([]*models.ConnectionRecord, error) {
	return s.store.List(ctx)
}

func (s *ConnectionService) Get(ctx context.Context, id string) (*models.ConnectionRecord, error) {
	return s.store.Get(ctx, id)
}

// Update applies a partial update. A change of address, port or credentials
// closes the current session; the next query reconnects with the new values.
func (s *ConnectionService) Update(ctx context.Context, id string, req *models.ConnectionUpdateRequest) (*models.ConnectionRecord, error) {
	rec, err := s.store.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	if req.ChangesEndpoint() {
		if err := s.sessions.Disconnect(ctx, id); err != nil {
			s.log.Warn("dropping session after update", zap.String("connection_id", id), zap.Error(err))
		}
	}
	return rec, nil
}

// Delete removes the record and then every trace of its session.
func (s *ConnectionService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.sessions.DeleteSession(ctx, id)
	s.log.Info("connection deleted", zap.String("connection_id", id))
	return nil
}

func (s *ConnectionService) SetDefault(ctx context.Context, id string) (*models.ConnectionRecord, error) {
	return s.store.SetDefault(ctx, id)
}

func (s *ConnectionService) Connect(ctx context.Context, id string) (*models.ConnectionStatus, error) {
	if err := s.sessions.Connect(ctx, id); err != nil {
		return nil, err
	}
	return s.Status(ctx, id)
}

func (s *ConnectionService) Disconnect(ctx context.Context, id string) error {
	return s.sessions.Disconnect(ctx, id)
}

// Status reports the session state of a stored connection.
func (s *ConnectionService) Status(ctx context.Context, id string) (*models.ConnectionStatus, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	state := s.sessions.State(id)
	status := &models.ConnectionStatus{
		Connected:       state == StateConnected,
		State:           state.String(),
		LastConnectedAt: rec.LastConnectedAt,
	}
	if lastErr := s.sessions.LastError(id); lastErr != nil {
		status.LastError = errs.Message(lastErr)
	}
	return status, nil
}

// IsConnected reports whether id has a live session. It never dials.
func (s *ConnectionService) IsConnected(id string) bool {
	return s.sessions.IsConnected(id)
}

// LostReason reports why the last live session of id died, if it did.
func (s *ConnectionService) LostReason(id string) error {
	return s.sessions.LostReason(id)
}

func (s *ConnectionService) Sessions() []models.SessionInfo {
	return s.sessions.Snapshot()
}

// ConnectDefault connects the default router, if one is stored. Used once at
// startup; failures are logged and otherwise ignored.
func (s *ConnectionService) ConnectDefault(ctx context.Context) {
	rec, err := s.store.GetDefault(ctx)
	if err != nil {
		if !errs.Is(err, errs.NotFound) {
			s.log.Warn("looking up default connection", zap.Error(err))
		}
		return
	}
	if err := s.sessions.Connect(ctx, rec.ID); err != nil {
		s.log.Warn("auto-connect of default router failed",
			zap.String("connection_id", rec.ID),
			zap.String("reason", errs.Message(err)),
		)
	}
}

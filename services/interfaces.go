package services

//go:generate mockgen -destination=mock_services.go -package=services Mikrotik-Dashboard/services Executor,ConnectionSource,ConnectionStore

import (
	"context"
	"time"

	"Mikrotik-Dashboard/models"
)

// Executor is the part of SessionManager the data facade depends on.
type Executor interface {
	EnsureConnected(ctx context.Context, id string) error
	Execute(ctx context.Context, id, path string, params []string) ([]Record, error)
}

// ConnectionSource resolves connection ids to stored records.
type ConnectionSource interface {
	Get(ctx context.Context, id string) (*models.ConnectionRecord, error)
	TouchLastConnected(ctx context.Context, id string, at time.Time) error
}

// ConnectionStore is the persistence ConnectionService needs.
type ConnectionStore interface {
	ConnectionSource
	Create(ctx context.Context, req *models.ConnectionCreateRequest) (*models.ConnectionRecord, error)
	List(ctx context.Context) ([]*models.ConnectionRecord, error)
	GetDefault(ctx context.Context) (*models.ConnectionRecord, error)
	Update(ctx context.Context, id string, req *models.ConnectionUpdateRequest) (*models.ConnectionRecord, error)
	SetDefault(ctx context.Context, id string) (*models.ConnectionRecord, error)
	Delete(ctx context.Context, id string) error
}

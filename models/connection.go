package models

import (
	"time"
)

const DefaultRouterPort = 8728

// ConnectionRecord describes a router the dashboard can connect to. Password
// is never serialized.
type ConnectionRecord struct {
	ID              string     `json:"id" db:"id"`
	Name            string     `json:"name" db:"name"`
	Address         string     `json:"address" db:"address"`
	Port            int        `json:"port" db:"port"`
	Username        string     `json:"username" db:"username"`
	Password        string     `json:"-" db:"password"`
	IsDefault       bool       `json:"isDefault" db:"is_default"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
	LastConnectedAt *time.Time `json:"lastConnectedAt" db:"last_connected_at"`
}

type ConnectionCreateRequest struct {
	Name      string `json:"name" binding:"required,max=255"`
	Address   string `json:"address" binding:"required,max=255"`
	Port      *int   `json:"port,omitempty" binding:"omitempty,min=1,max=65535"`
	Username  string `json:"username" binding:"required,max=255"`
	Password  string `json:"password" binding:"required,max=255"`
	IsDefault bool   `json:"isDefault"`
}

type ConnectionUpdateRequest struct {
	Name      *string `json:"name,omitempty" binding:"omitempty,min=1,max=255"`
	Address   *string `json:"address,omitempty" binding:"omitempty,min=1,max=255"`
	Port      *int    `json:"port,omitempty" binding:"omitempty,min=1,max=65535"`
	Username  *string `json:"username,omitempty" binding:"omitempty,min=1,max=255"`
	Password  *string `json:"password,omitempty" binding:"omitempty,min=1,max=255"`
	IsDefault *bool   `json:"isDefault,omitempty"`
}

// ChangesEndpoint reports whether applying the update would require a new
// session.
func (r *ConnectionUpdateRequest) ChangesEndpoint() bool {
	return r.Address != nil || r.Port != nil || r.Username != nil || r.Password != nil
}

type ConnectionStatus struct {
	Connected       bool       `json:"connected"`
	State           string     `json:"state"`
	LastConnectedAt *time.Time `json:"lastConnectedAt"`
	LastError       string     `json:"lastError,omitempty"`
}

type SessionInfo struct {
	ConnectionID string    `json:"connectionId"`
	State        string    `json:"state"`
	CreatedAt    time.Time `json:"createdAt"`
	LastError    string    `json:"lastError,omitempty"`
}

package domain

import "time"

// HealthState resume la disponibilidad reportada por el backend.
type HealthState string

const (
	HealthConnecting HealthState = "connecting"
	HealthHealthy    HealthState = "healthy"
	HealthUnhealthy  HealthState = "unhealthy"
)

// ConnectionStatus es el ultimo estado de salud conocido del backend.
type ConnectionStatus struct {
	State         HealthState `json:"state"`
	Message       string      `json:"message"`
	LastSyncTime  *time.Time  `json:"last_sync_time,omitempty"`
	Authenticated bool        `json:"authenticated"`
}

func (s ConnectionStatus) Healthy() bool {
	return s.State == HealthHealthy
}

// DispatcherState indica si hay una consulta de chat en vuelo.
type DispatcherState string

const (
	DispatcherIdle    DispatcherState = "idle"
	DispatcherSending DispatcherState = "sending"
)

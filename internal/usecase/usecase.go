// Package usecase contains application business logic services.
package usecase

import "time"

// ReadinessCheck represents a single readiness probe result used by handlers.
type ReadinessCheck struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Details string `json:"details,omitempty"`
}

func utcNow() time.Time { return time.Now().UTC() }

func ptr[T any](v T) *T { return &v }

// Package events fans registry mutations out to other processes.
package events

import (
	"context"
	"time"
)

type Type string

const (
	ArtifactCreated    Type = "artifact.created"
	ArtifactDownloaded Type = "artifact.downloaded"
	ArtifactDeleted    Type = "artifact.deleted"
	ArtifactRated      Type = "artifact.rated"
)

type Event struct {
	Type       Type      `json:"type"`
	Kind       string    `json:"kind"`
	ArtifactID uint      `json:"artifact_id"`
	Name       string    `json:"name,omitempty"`
	Version    string    `json:"version,omitempty"`
	ActorID    uint      `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

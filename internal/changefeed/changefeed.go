// Package changefeed notifies subscribers when a registry, assembly or
// question changes. Payloads carry only identity and action; subscribers
// re-read the entity through its store.
package changefeed

import (
	"context"
	"time"
)

// EntityType names the kind of entity a change refers to.
type EntityType string

const (
	EntityRegistry EntityType = "registry"
	EntityAssembly EntityType = "assembly"
	EntityQuestion EntityType = "question"
)

func (t EntityType) IsValid() bool {
	switch t {
	case EntityRegistry, EntityAssembly, EntityQuestion:
		return true
	}
	return false
}

// Change is one notification.
type Change struct {
	EntityType EntityType `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	Action     string     `json:"action"`
	At         time.Time  `json:"at"`
}

// Feed publishes and delivers changes. Handlers passed to Subscribe run on a
// dedicated goroutine per subscription, in publish order.
type Feed interface {
	Publish(ctx context.Context, change Change) error
	Subscribe(ctx context.Context, entityType EntityType, entityID string, fn func(Change)) (cancel func(), err error)
}

func topic(entityType EntityType, entityID string) string {
	return string(entityType) + ":" + entityID
}

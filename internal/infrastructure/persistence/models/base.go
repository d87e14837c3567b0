package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/retailpos/backoffice/internal/domain/shared"
)

// VersionedModel holds the columns every aggregate table shares. Version
// is compared and bumped by guarded updates.
type VersionedModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	Version   int       `gorm:"not null;default:1"`
}

func (m *VersionedModel) fromAggregate(a shared.BaseAggregateRoot) {
	*m = VersionedModel{ID: a.ID, CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt, Version: a.Version}
}

func (m *VersionedModel) toAggregate() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt, Version: m.Version}
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Party is a counterparty (buyer, seller, borrower, lender) known to the
// platform. Lifecycle managers reject references to parties that do not exist.
type Party struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string    `gorm:"column:name;not null"`
	StellarAddress string    `gorm:"column:stellar_address;not null;uniqueIndex:uq_parties_stellar_address"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Branch filters accepted by StockForBranch
const (
	BranchAll  = "all"
	BranchMain = "main"
)

var ErrInvalidWarehouseName = errors.New("warehouse name is required")

// Warehouse is a stock location owned by a business, optionally assigned to a branch
type Warehouse struct {
	ID         string    `bson:"_id" json:"id"`
	BusinessID string    `bson:"businessId" json:"businessId"`
	Name       string    `bson:"name" json:"name"`
	Location   string    `bson:"location,omitempty" json:"location,omitempty"`
	BranchID   string    `bson:"branchId,omitempty" json:"branchId,omitempty"`
	IsDefault  bool      `bson:"isDefault" json:"isDefault"`
	IsActive   bool      `bson:"isActive" json:"isActive"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt" json:"updatedAt"`
}

// NewWarehouse creates an active warehouse
func NewWarehouse(businessID, name, location, branchID string, isDefault bool) (*Warehouse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidWarehouseName
	}
	now := time.Now().UTC()
	return &Warehouse{
		ID:         uuid.NewString(),
		BusinessID: businessID,
		Name:       name,
		Location:   location,
		BranchID:   branchID,
		IsDefault:  isDefault,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// MatchesBranch reports whether the warehouse belongs to a branch filter.
// "main" selects warehouses with no branch assignment.
func (w *Warehouse) MatchesBranch(filter string) bool {
	switch filter {
	case BranchAll, "":
		return true
	case BranchMain:
		return w.BranchID == ""
	default:
		return w.BranchID == filter
	}
}

// DefaultWarehouse returns the default warehouse, falling back to the first one
func DefaultWarehouse(warehouses []*Warehouse) *Warehouse {
	for _, w := range warehouses {
		if w.IsDefault {
			return w
		}
	}
	if len(warehouses) > 0 {
		return warehouses[0]
	}
	return nil
}

package region

import (
	"context"
)

// Repository defines the interface for pricing region persistence
type Repository interface {
	Create(ctx context.Context, region *Region) error
	Get(ctx context.Context, id string) (*Region, error)
	GetByCode(ctx context.Context, code string) (*Region, error)
	List(ctx context.Context) ([]*Region, error)
}

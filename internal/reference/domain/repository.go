package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Repository reads the town and business registries. Lookups tolerate missing
// rows and return nil so read projections can render placeholders.
type Repository interface {
	ListTowns(ctx context.Context) ([]Town, error)
	FindTown(ctx context.Context, id snowflake.ID) (*Town, error)
	ListBusinessesByTown(ctx context.Context, townID snowflake.ID) ([]Business, error)
	FindBusiness(ctx context.Context, id snowflake.ID) (*Business, error)
}

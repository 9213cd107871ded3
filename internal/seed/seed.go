package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/machikado/market/internal/clock"
	productdomain "github.com/machikado/market/internal/product/domain"
	referencedomain "github.com/machikado/market/internal/reference/domain"
	"gorm.io/gorm"
)

// Development fixtures: two towns, a business in each, and a few products so a
// fresh database has something to check out against. Every ensure is keyed on
// a natural identifier, so reruns are no-ops.

type townFixture struct {
	code     string
	name     string
	region   string
	business string
	products []productFixture
}

type productFixture struct {
	name  string
	stock int
}

var fixtures = []townFixture{
	{
		code:     "aoba",
		name:     "Aoba",
		region:   "Miyagi",
		business: "Aoba Pottery",
		products: []productFixture{
			{name: "Glazed Rice Bowl", stock: 20},
			{name: "Tea Ceremony Set", stock: 5},
		},
	},
	{
		code:     "kiyose",
		name:     "Kiyose",
		region:   "Tokyo",
		business: "Kiyose Woodworks",
		products: []productFixture{
			{name: "Cedar Serving Tray", stock: 12},
		},
	},
}

// EnsureFixtures seeds the demo registry and catalog.
func EnsureFixtures(db *gorm.DB, node *snowflake.Node, clk clock.Clock) error {
	if db == nil || node == nil || clk == nil {
		return errors.New("seed dependencies are required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, f := range fixtures {
			town, err := ensureTown(tx, node, clk, f)
			if err != nil {
				return err
			}
			business, err := ensureBusiness(tx, node, clk, town.ID, f.business)
			if err != nil {
				return err
			}
			for _, p := range f.products {
				if err := ensureProduct(tx, node, clk, town.ID, business.ID, p); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func ensureTown(tx *gorm.DB, node *snowflake.Node, clk clock.Clock, f townFixture) (*referencedomain.Town, error) {
	var town referencedomain.Town
	err := tx.Where("code = ?", f.code).First(&town).Error
	if err == nil {
		return &town, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	region := f.region
	town = referencedomain.Town{
		ID:        node.Generate(),
		Code:      f.code,
		Name:      f.name,
		Region:    &region,
		CreatedAt: clk.Now(),
	}
	if err := tx.Create(&town).Error; err != nil {
		return nil, err
	}
	return &town, nil
}

func ensureBusiness(tx *gorm.DB, node *snowflake.Node, clk clock.Clock, townID snowflake.ID, name string) (*referencedomain.Business, error) {
	var business referencedomain.Business
	err := tx.Where("town_id = ? AND name = ?", townID, name).First(&business).Error
	if err == nil {
		return &business, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	business = referencedomain.Business{
		ID:        node.Generate(),
		TownID:    townID,
		Name:      name,
		CreatedAt: clk.Now(),
	}
	if err := tx.Create(&business).Error; err != nil {
		return nil, err
	}
	return &business, nil
}

func ensureProduct(tx *gorm.DB, node *snowflake.Node, clk clock.Clock, townID, businessID snowflake.ID, f productFixture) error {
	code := slug.Make(f.name)
	var existing productdomain.Product
	err := tx.Where("code = ?", code).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := clk.Now()
	return tx.Create(&productdomain.Product{
		ID:         node.Generate(),
		TownID:     townID,
		BusinessID: businessID,
		Code:       code,
		Name:       f.name,
		Stock:      f.stock,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}).Error
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
)

// デモ用の商品（IDは固定なので何度実行してもよい）
var seedProducts = []model.Product{
	{ID: "0b8f3c1e-6a52-4f0e-9d1a-1c2f6e7a8b01", Name: "Classic Leather Bag", Category: "bags", Price: decimal.RequireFromString("129.00"), Stock: 12, Featured: true,
		Description: "Full-grain leather shoulder bag.", ImageURL: "https://images.example.com/bag.jpg"},
	{ID: "0b8f3c1e-6a52-4f0e-9d1a-1c2f6e7a8b02", Name: "Canvas Tote", Category: "bags", Price: decimal.RequireFromString("24.50"), Stock: 40,
		Description: "Everyday cotton tote.", ImageURL: "https://images.example.com/tote.jpg"},
	{ID: "0b8f3c1e-6a52-4f0e-9d1a-1c2f6e7a8b03", Name: "Trail Runner", Category: "shoes", Price: decimal.RequireFromString("89.99"), Stock: 8, Featured: true,
		Description: "Lightweight trail running shoe.", ImageURL: "https://images.example.com/runner.jpg"},
	{ID: "0b8f3c1e-6a52-4f0e-9d1a-1c2f6e7a8b04", Name: "Wool Sneaker", Category: "shoes", Price: decimal.RequireFromString("95.00"), Stock: 0,
		Description: "Merino wool sneaker.", ImageURL: "https://images.example.com/sneaker.jpg"},
	{ID: "0b8f3c1e-6a52-4f0e-9d1a-1c2f6e7a8b05", Name: "Ceramic Mug", Category: "home", Price: decimal.RequireFromString("14.00"), Stock: 60,
		Description: "Stoneware mug, 350ml.", ImageURL: "https://images.example.com/mug.jpg"},
	{ID: "0b8f3c1e-6a52-4f0e-9d1a-1c2f6e7a8b06", Name: "Linen Throw", Category: "home", Price: decimal.RequireFromString("59.00"), Stock: 15, Featured: true,
		Description: "Washed linen throw blanket.", ImageURL: "https://images.example.com/throw.jpg"},
}

func seed(ctx context.Context, products repo.ProductRepository, out io.Writer) error {
	created := 0
	for _, p := range seedProducts {
		_, err := products.FindByID(ctx, p.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("find product %s: %w", p.ID, err)
		}

		if _, err := products.Create(ctx, p); err != nil {
			return fmt.Errorf("create product %s: %w", p.Name, err)
		}
		created++
	}

	fmt.Fprintf(out, "seeded %d products (%d already present)\n", created, len(seedProducts)-created)
	return nil
}

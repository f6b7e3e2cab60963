package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-boutique/internal/app"
	"github.com/noah-isme/backend-boutique/internal/catalog"
	"github.com/noah-isme/backend-boutique/internal/common"
	"github.com/noah-isme/backend-boutique/internal/config"
	"github.com/noah-isme/backend-boutique/internal/obs"
	"github.com/noah-isme/backend-boutique/internal/pricing"
)

func main() {
	logger := obs.NewLogger("console", "info")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx)

	pool, err := app.OpenPostgres(ctx, cfg.DatabaseURL, "boutique-seeder")
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	svc, err := catalog.NewService(catalog.ServiceConfig{
		Store:     catalog.NewPGStore(pool),
		Validator: common.NewValidator(),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}

	existing, err := svc.AdminListProducts(ctx, catalog.ProductFilter{Page: 1, Limit: 1})
	if err != nil {
		logger.Fatal().Err(err).Msg("count products")
	}
	if existing.Total > 0 {
		logger.Info().Int64("products", existing.Total).Msg("catalog already seeded, skipping")
		return
	}

	seedCategories(ctx, logger, svc)
	seedProducts(ctx, logger, svc)
	seedDeliveryCities(ctx, logger, pool)
	logger.Info().Msg("seeding completed")
}

func seedCategories(ctx context.Context, logger zerolog.Logger, svc *catalog.Service) {
	for _, name := range []string{"Polos", "T-shirts", "Pantalons", "Jeans", "Chemises", "Shorts", "Vestes"} {
		if _, err := svc.CreateCategory(ctx, catalog.CategoryInput{Name: name}); err != nil {
			logger.Fatal().Err(err).Str("category", name).Msg("create category")
		}
	}
	logger.Info().Msg("categories seeded")
}

func seedProducts(ctx context.Context, logger zerolog.Logger, svc *catalog.Service) {
	promo := func(dh int64) *pricing.Money {
		m := pricing.Dirhams(dh)
		return &m
	}
	sizes := func(color string, stock int, sizes ...string) []catalog.VariantInput {
		out := make([]catalog.VariantInput, 0, len(sizes))
		for _, s := range sizes {
			out = append(out, catalog.VariantInput{Size: s, Color: color, StockQuantity: stock})
		}
		return out
	}
	products := []catalog.ProductInput{
		{Name: "Polo Classique", Category: "Polos", Price: pricing.Dirhams(150), Featured: true, Image1: "/images/polo-classique.jpg",
			Variants: append(sizes("Bleu", 10, "S", "M", "L", "XL"), sizes("Blanc", 8, "M", "L")...)},
		{Name: "Polo Piqué", Category: "Polos", Price: pricing.Dirhams(170), Image1: "/images/polo-pique.jpg",
			Variants: sizes("Noir", 6, "M", "L", "XL")},
		{Name: "T-shirt Basique", Category: "T-shirts", Price: pricing.Dirhams(180), Featured: true, Image1: "/images/tshirt-basique.jpg",
			Variants: sizes("Blanc", 12, "S", "M", "L")},
		{Name: "T-shirt Col V", Category: "T-shirts", Price: pricing.Dirhams(190), Image1: "/images/tshirt-col-v.jpg",
			Variants: sizes("Gris", 9, "M", "L")},
		{Name: "Pantalon Chino", Category: "Pantalons", Price: pricing.Dirhams(250), Image1: "/images/chino.jpg",
			Variants: sizes("Beige", 7, "38", "40", "42")},
		{Name: "Jean Slim", Category: "Jeans", Price: pricing.Dirhams(300), PromotionPrice: promo(259), IsOnPromotion: true, Featured: true,
			Image1: "/images/jean-slim.jpg", Variants: sizes("Bleu brut", 5, "38", "40", "42")},
		{Name: "Chemise Lin", Category: "Chemises", Price: pricing.Dirhams(259), Image1: "/images/chemise-lin.jpg",
			Variants: sizes("Blanc", 4, "M", "L")},
		{Name: "Short Cargo", Category: "Shorts", Price: pricing.Dirhams(160), Image1: "/images/short-cargo.jpg",
			Variants: sizes("Kaki", 10, "M", "L")},
	}
	for _, p := range products {
		if _, err := svc.CreateProduct(ctx, p); err != nil {
			logger.Fatal().Err(err).Str("product", p.Name).Msg("create product")
		}
	}
	logger.Info().Int("count", len(products)).Msg("products seeded")
}

func seedDeliveryCities(ctx context.Context, logger zerolog.Logger, pool *pgxpool.Pool) {
	cities := []struct {
		Ref    string
		City   string
		Fee    int64
		Return int64
	}{
		{"CAS", "Casablanca", 20, 10},
		{"RBA", "Rabat", 30, 15},
		{"MRK", "Marrakech", 35, 15},
		{"FES", "Fès", 35, 15},
		{"TNG", "Tanger", 35, 15},
		{"AGA", "Agadir", 40, 20},
	}
	batch := &pgx.Batch{}
	for _, c := range cities {
		batch.Queue(`INSERT INTO livraiso_info ("Réf", "Ville", "Frais livraison", "Frais Retour") VALUES ($1, $2, $3, $4)`,
			c.Ref, c.City, c.Fee, c.Return)
	}
	if err := pool.SendBatch(ctx, batch).Close(); err != nil {
		logger.Fatal().Err(err).Msg("seed delivery cities")
	}
	logger.Info().Int("count", len(cities)).Msg("delivery cities seeded")
}

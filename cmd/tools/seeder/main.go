package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/gerai-labs/backend-gerai/internal/catalog"
	"github.com/gerai-labs/backend-gerai/internal/partition"
	"github.com/gerai-labs/backend-gerai/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	tenantFlag := flag.String("tenant", "", "tenant to seed (defaults to TENANT_DEFAULT)")
	flag.Parse()

	mongoURL := os.Getenv("MONGO_URL")
	if mongoURL == "" {
		log.Fatal("MONGO_URL is not set")
	}
	tenantID := strings.TrimSpace(*tenantFlag)
	if tenantID == "" {
		tenantID = strings.TrimSpace(os.Getenv("TENANT_DEFAULT"))
	}
	if tenantID == "" {
		tenantID = "default"
	}
	prefix := os.Getenv("MONGO_DB_PREFIX")
	if prefix == "" {
		prefix = "gerai_"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURL).SetAppName("gerai-seeder"))
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		log.Fatalf("Failed to ping mongo: %v", err)
	}

	registry := partition.NewRegistry(client, prefix, zerolog.New(os.Stderr).With().Timestamp().Logger())
	products := store.Products{Registry: registry}
	if _, err := registry.Accessor(tenantID, "products", store.ProductsDescriptor()); err != nil {
		log.Fatalf("Failed to register products accessor: %v", err)
	}
	if err := registry.EnsureIndexes(ctx); err != nil {
		log.Fatalf("Failed to ensure indexes: %v", err)
	}
	log.Printf("Seeding tenant %q", tenantID)

	seedProducts(ctx, products, tenantID)

	log.Println("Seeding completed successfully!")
}

func seedProducts(ctx context.Context, products store.Products, tenantID string) {
	// Deterministic ids keep the seeder idempotent across runs.
	demo := []catalog.Product{
		{ID: seedID("kopi-gayo"), Name: "Kopi Gayo 250g", Price: 65000, Thumbnail: "/img/kopi-gayo.jpg", Stock: 120},
		{ID: seedID("teh-melati"), Name: "Teh Melati Premium", Price: 32000, Thumbnail: "/img/teh-melati.jpg", Stock: 200},
		{ID: seedID("gula-aren"), Name: "Gula Aren Cair 500ml", Price: 28000, Thumbnail: "/img/gula-aren.jpg", Stock: 80},
		{ID: seedID("keripik-singkong"), Name: "Keripik Singkong Balado", Price: 15000, Thumbnail: "/img/keripik.jpg", Stock: 300},
		{ID: seedID("madu-hutan"), Name: "Madu Hutan 350ml", Price: 98000, Thumbnail: "/img/madu.jpg", Stock: 45},
		{ID: seedID("sambal-bawang"), Name: "Sambal Bawang 200g", Price: 22000, Thumbnail: "/img/sambal.jpg", Stock: 150},
		{ID: seedID("rendang-instan"), Name: "Rendang Instan 250g", Price: 55000, Thumbnail: "/img/rendang.jpg", Stock: 60},
		{ID: seedID("kerupuk-udang"), Name: "Kerupuk Udang 500g", Price: 35000, Thumbnail: "/img/kerupuk.jpg", Stock: 175},
	}

	log.Println("Seeding Products...")
	for _, p := range demo {
		if err := products.Upsert(ctx, tenantID, p); err != nil {
			log.Fatalf("Failed to seed product %q: %v", p.Name, err)
		}
	}
	log.Printf("Seeded %d products", len(demo))
}

func seedID(slug string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("gerai-seed:"+slug)).String()
}

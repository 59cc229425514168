package database

import (
	"log"
	"os"

	"medimart_back_end/internal/models"
)

// Catalogue de lancement. Les tables doivent exister (scripts/scylladb_init.cql) ;
// le seed n'écrase pas les produits déjà présents.
var seedProducts = []models.Product{
	{ID: 1, Name: "Panado Tablets 1000mg 24s", Price: 49.99, Image: "Products/Panado_Tablets_1000mg_24s.png",
		Description: "Fast-acting pain relief for headaches, fever, and mild arthritis pain.",
		Tags:        []string{"pain", "fever"}, Stock: 200},
	{ID: 2, Name: "Disprin Tablets 300mg 24s", Price: 39.99, Image: "Products/Disprin_Tablets_300mg_24s.png",
		Description: "Effervescent pain reliever that works quickly to reduce pain and inflammation.",
		Tags:        []string{"pain", "inflammation"}, Stock: 150},
	{ID: 3, Name: "Vitamin C 1000mg 60 Tablets", Price: 129.99, Image: "Products/Very_Well_Vitamin_C_1000mg_60_Tablets.png",
		Description: "Boosts immune system and promotes healthy skin with high-potency Vitamin C.",
		Tags:        []string{"vitamins", "immune"}, Stock: 80},
	{ID: 4, Name: "Pampers Baby Dry Size 3 60s", Price: 249.99, Image: "Products/Pampers_Baby_Dry_Size_3_60s.png",
		Description: "Premium diapers with 12-hour leak protection and wetness indicator.",
		Tags:        []string{"baby"}, Stock: 60},
}

// SeedCatalog insère le catalogue de départ si CATALOG_SEED=true.
func SeedCatalog() {
	if os.Getenv("CATALOG_SEED") != "true" {
		return
	}

	session, err := GetCatalogSession()
	if err != nil {
		log.Println("⚠️ Seed catalogue impossible:", err)
		return
	}

	for _, p := range seedProducts {
		err := session.Query(`INSERT INTO products (product_id, name, description, price, image, tags, stock)
			VALUES (?, ?, ?, ?, ?, ?, ?) IF NOT EXISTS`,
			p.ID, p.Name, p.Description, p.Price, p.Image, p.Tags, p.Stock).Exec()
		if err != nil {
			log.Printf("❌ Erreur seed produit %d: %v", p.ID, err)
		}
	}
	log.Printf("✅ Catalogue initialisé (%d produits)", len(seedProducts))
}

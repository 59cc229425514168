package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"medimart_back_end/internal/database"
	"medimart_back_end/internal/models"
)

const ProductCacheTTL = 10 * time.Minute

// GetProductFromCache récupère un produit depuis Redis ou ScyllaDB
func GetProductFromCache(productID int) (*models.Product, error) {
	ctx := context.Background()
	key := "product:" + strconv.Itoa(productID)

	// 1. Essayer le cache Redis
	if database.Redis != nil {
		data, err := database.Redis.Get(ctx, key).Result()
		if err == nil {
			var product models.Product
			if json.Unmarshal([]byte(data), &product) == nil {
				return &product, nil
			}
		}
	}

	// 2. Récupérer de ScyllaDB
	session, err := database.GetCatalogSession()
	if err != nil {
		return nil, err
	}

	var product models.Product
	err = session.Query(`SELECT product_id, name, description, price, image, tags, stock
		FROM products WHERE product_id = ?`, productID).Scan(
		&product.ID, &product.Name, &product.Description, &product.Price,
		&product.Image, &product.Tags, &product.Stock)
	if err != nil {
		return nil, fmt.Errorf("produit %d introuvable: %v", productID, err)
	}

	// 3. Mettre en cache
	if database.Redis != nil {
		if jsonData, err := json.Marshal(product); err == nil {
			database.Redis.Set(ctx, key, jsonData, ProductCacheTTL)
		}
	}

	return &product, nil
}

package services

import (
	"context"
	"net/url"
	"os"
	"time"

	"medimart_back_end/internal/database"
)

// GenerateSignedURL retourne une URL signée temporaire vers une image produit
// du bucket MinIO (la référence image stockée est le chemin objet, ex.
// "Products/Panado_Tablets_1000mg_24s.png").
func GenerateSignedURL(ctx context.Context, objectPath string, duration time.Duration) (string, error) {
	if database.MinIO == nil {
		// Pas de MinIO en dev : on sert la référence telle quelle
		return objectPath, nil
	}

	bucket := os.Getenv("MINIO_BUCKET")
	if bucket == "" {
		bucket = "medimart-images"
	}

	reqParams := make(url.Values)
	presignedURL, err := database.MinIO.PresignedGetObject(ctx, bucket, objectPath, duration, reqParams)
	if err != nil {
		return "", err
	}

	return presignedURL.String(), nil
}

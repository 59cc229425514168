package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medimart_back_end/internal/models"
)

func TestFormatRand(t *testing.T) {
	assert.Equal(t, "R49.99", FormatRand(49.99))
	assert.Equal(t, "R99.98", FormatRand(99.98))
	assert.Equal(t, "R0.00", FormatRand(0))
}

func TestGenerateCollectionQRIsInlineImage(t *testing.T) {
	qr, err := GenerateCollectionQR("order-ref-123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(qr, "data:image/png;base64,"))
}

func TestReceiptHTMLListsItemsAndTotal(t *testing.T) {
	order := models.Order{
		Reference: "order-ref-123",
		Email:     "client@example.com",
		Items: []models.CartItem{
			{ID: 1, Name: "Panado Tablets 1000mg 24s", Price: 49.99, Quantity: 2},
		},
		TotalPrice: 99.98,
		Currency:   "ZAR",
		CreatedAt:  time.Now(),
	}

	html := GenerateReceiptHTML(order, "")

	assert.Contains(t, html, "order-ref-123")
	assert.Contains(t, html, "Panado Tablets 1000mg 24s")
	assert.Contains(t, html, "R49.99")
	assert.Contains(t, html, "R99.98")
	assert.NotContains(t, html, "Collection QR", "pas de bloc QR sans image")
}

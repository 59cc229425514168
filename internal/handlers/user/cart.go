package user

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"medimart_back_end/internal/cache"
	"medimart_back_end/internal/cart"
	"medimart_back_end/internal/models"
)

// Carts est le gestionnaire de sessions panier, branché au démarrage.
var Carts *cart.Manager

func cartSession(c *gin.Context) (*cart.Session, bool) {
	sid := c.GetString("session_id")
	if sid == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No session"})
		return nil, false
	}
	return Carts.Session(sid), true
}

//
// 🛒 GET /api/cart
//
func GetCart(c *gin.Context) {
	session, ok := cartSession(c)
	if !ok {
		return
	}

	items := session.Items()
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": models.CartCount(items),
		"total": models.CartTotal(items),
	})
}

//
// 🟢 POST /api/cart/add
//
func AddToCart(c *gin.Context) {
	session, ok := cartSession(c)
	if !ok {
		return
	}

	var input struct {
		ProductID int `json:"productId"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.ProductID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	// 🧩 Récupération du produit (Redis puis ScyllaDB)
	product, err := cache.GetProductFromCache(input.ProductID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	session.AddItem(c.Request.Context(), *product)

	items := session.Items()
	c.JSON(http.StatusOK, gin.H{
		"message": product.Name + " added to cart!",
		"items":   items,
		"count":   models.CartCount(items),
		"total":   models.CartTotal(items),
	})
}

//
// 🔁 POST /api/cart/quantity
//
func UpdateQuantity(c *gin.Context) {
	session, ok := cartSession(c)
	if !ok {
		return
	}

	var input struct {
		ProductID int `json:"productId"`
		Delta     int `json:"delta"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.ProductID == 0 || input.Delta == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	session.ChangeQuantity(c.Request.Context(), input.ProductID, input.Delta)

	items := session.Items()
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": models.CartCount(items),
		"total": models.CartTotal(items),
	})
}

//
// ❌ DELETE /api/cart/:productId
//
func RemoveFromCart(c *gin.Context) {
	session, ok := cartSession(c)
	if !ok {
		return
	}

	productID, err := strconv.Atoi(c.Param("productId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product id"})
		return
	}

	session.RemoveItem(c.Request.Context(), productID)

	items := session.Items()
	c.JSON(http.StatusOK, gin.H{
		"message": "Product removed from cart",
		"items":   items,
		"count":   models.CartCount(items),
		"total":   models.CartTotal(items),
	})
}

//
// 🧹 DELETE /api/cart/clear
//
func ClearCart(c *gin.Context) {
	session, ok := cartSession(c)
	if !ok {
		return
	}

	session.Clear(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart cleared",
		"items":   []models.CartItem{},
	})
}

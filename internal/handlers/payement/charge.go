package payement

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"medimart_back_end/internal/cart"
	"medimart_back_end/internal/models"
	"medimart_back_end/internal/utils"
)

const defaultProcessorURL = "https://online.yoco.com/v1/charges/"

// Carts est câblé au démarrage dans routes.RegisterRoutes. Nil dans les
// tests : le débit n'a alors pas d'effet de bord sur un panier.
var Carts *cart.Manager

var httpClient = &http.Client{Timeout: 15 * time.Second}

type cardDetails struct {
	Number      string `json:"number"`
	ExpiryMonth int    `json:"expiryMonth"`
	ExpiryYear  int    `json:"expiryYear"`
	CVV         string `json:"cvv"`
}

// ✅ POST /api/charge — relais vers le processeur de paiement.
// Un seul handler pour les deux formes d'entrée (token ou carte brute) et les
// deux modes (live ou mock), sélectionnés par le corps de la requête et
// CHARGE_MODE. La carte brute arrive en champs plats {cardNumber, expMonth,
// expYear, cvv} — mois et année en chaînes — ou en objet card imbriqué.
func ChargeCard(c *gin.Context) {
	var input struct {
		Token         string            `json:"token"`
		Card          *cardDetails      `json:"card"`
		CardNumber    string            `json:"cardNumber"`
		ExpMonth      string            `json:"expMonth"`
		ExpYear       string            `json:"expYear"`
		CVV           string            `json:"cvv"`
		AmountInCents int64             `json:"amountInCents"`
		Currency      string            `json:"currency"`
		Items         []models.CartItem `json:"items"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Missing required fields"})
		return
	}

	// Forme imbriquée acceptée comme alias de la forme plate
	if input.Card != nil && input.CardNumber == "" {
		input.CardNumber = input.Card.Number
		if input.Card.ExpiryMonth != 0 {
			input.ExpMonth = strconv.Itoa(input.Card.ExpiryMonth)
		}
		if input.Card.ExpiryYear != 0 {
			input.ExpYear = strconv.Itoa(input.Card.ExpiryYear)
		}
		input.CVV = input.Card.CVV
	}

	if !validChargeInput(input.Token, input.CardNumber, input.ExpMonth, input.ExpYear, input.CVV, input.AmountInCents) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Missing required fields"})
		return
	}

	currency := input.Currency
	if currency == "" {
		currency = "ZAR"
	}

	var data map[string]interface{}
	if os.Getenv("CHARGE_MODE") == "mock" {
		// Mode mock : réponse déterministe, aucun appel sortant
		log.Printf("🧪 Débit simulé: %d cents %s", input.AmountInCents, currency)
		data = map[string]interface{}{
			"status":        "Success",
			"amountInCents": input.AmountInCents,
			"currency":      currency,
		}
	} else {
		method := map[string]interface{}{}
		if input.Token != "" {
			method["token"] = input.Token
		} else {
			method["cardNumber"] = input.CardNumber
			method["expMonth"] = input.ExpMonth
			method["expYear"] = input.ExpYear
			method["cvv"] = input.CVV
		}

		var err error
		data, err = forwardCharge(c.Request.Context(), method, input.AmountInCents, currency)
		if err != nil {
			if pe, ok := err.(*processorError); ok {
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": pe.Message})
			} else {
				log.Printf("❌ Erreur relais paiement: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Payment failed"})
			}
			return
		}
	}

	finalizeOrder(c, input.Items, input.AmountInCents, currency)

	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// validChargeInput : montant positif et soit un jeton, soit une carte complète.
func validChargeInput(token, cardNumber, expMonth, expYear, cvv string, amountInCents int64) bool {
	if amountInCents <= 0 {
		return false
	}
	if token != "" {
		return true
	}
	return cardNumber != "" && expMonth != "" && expYear != "" && cvv != ""
}

type processorError struct {
	Message string
}

func (e *processorError) Error() string { return e.Message }

// forwardCharge relaie la requête au processeur avec la clé secrète côté
// serveur. Le nom de l'en-tête est configurable : certains environnements
// Yoco attendent X-Auth-Secret-Key au lieu de X-Secret-Key.
func forwardCharge(ctx context.Context, method map[string]interface{}, amountInCents int64, currency string) (map[string]interface{}, error) {
	secret := os.Getenv("CHARGE_SECRET_KEY")
	if secret == "" {
		return nil, &processorError{Message: "Payment processor not configured"}
	}

	payload := map[string]interface{}{
		"amountInCents": amountInCents,
		"currency":      currency,
	}
	for k, v := range method {
		payload[k] = v
	}
	body, _ := json.Marshal(payload)

	processorURL := os.Getenv("CHARGE_PROCESSOR_URL")
	if processorURL == "" {
		processorURL = defaultProcessorURL
	}
	headerName := os.Getenv("CHARGE_SECRET_HEADER")
	if headerName == "" {
		headerName = "X-Secret-Key"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, processorURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerName, secret)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &processorError{Message: "Payment failed"}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := "Payment failed"
		if m, ok := decoded["error"].(string); ok && m != "" {
			msg = m
		} else if errObj, ok := decoded["error"].(map[string]interface{}); ok {
			if m, ok := errObj["message"].(string); ok && m != "" {
				msg = m
			}
		} else if m, ok := decoded["displayMessage"].(string); ok && m != "" {
			msg = m
		}
		log.Printf("❌ Processeur a refusé le débit (%d): %s", resp.StatusCode, msg)
		return nil, &processorError{Message: msg}
	}

	log.Printf("💳 Débit accepté: %d cents %s", amountInCents, currency)
	return decoded, nil
}

// finalizeOrder vide le panier de l'utilisateur connecté et envoie le reçu.
// L'envoi d'e-mail part en arrière-plan, la réponse HTTP n'attend pas.
func finalizeOrder(c *gin.Context, items []models.CartItem, amountInCents int64, currency string) {
	uid := c.GetString("user_id")
	email := c.GetString("email")

	if Carts != nil && uid != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if len(items) == 0 {
			items = Carts.Session(uid).Items()
		}
		Carts.Session(uid).Clear(ctx)
	}

	if email == "" {
		return
	}

	order := models.Order{
		Reference:  uuid.NewString(),
		UserID:     uid,
		Email:      email,
		Items:      items,
		TotalPrice: float64(amountInCents) / 100,
		Currency:   currency,
		CreatedAt:  time.Now(),
	}

	go func() {
		qr, err := utils.GenerateCollectionQR(order.Reference)
		if err != nil {
			log.Printf("⚠️ QR de retrait non généré: %v", err)
		}
		html := utils.GenerateReceiptHTML(order, qr)
		if err := utils.SendReceiptEmail(order.Email, "Your MediMart receipt", html); err != nil {
			log.Printf("❌ Erreur envoi reçu à %s: %v", order.Email, err)
			return
		}
		log.Printf("📧 Reçu envoyé à %s (commande %s)", order.Email, order.Reference)
	}()
}

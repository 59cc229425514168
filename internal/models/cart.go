package models

// CartItem est une ligne du panier. Les champs sont copiés depuis le produit
// au moment de l'ajout, le panier reste donc lisible même si le catalogue change.
type CartItem struct {
	ID       int     `json:"id" firestore:"id"`
	Name     string  `json:"name" firestore:"name"`
	Price    float64 `json:"price" firestore:"price"`
	Image    string  `json:"image" firestore:"image"`
	Quantity int     `json:"quantity" firestore:"quantity"`
}

// CartTotal calcule le montant total d'un panier en rands.
func CartTotal(items []CartItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

// CartCount compte le nombre total d'unités dans le panier.
func CartCount(items []CartItem) int {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return count
}

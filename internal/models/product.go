package models

// Product est un article du catalogue (keyspace ScyllaDB "catalog").
type Product struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Image       string   `json:"image"`
	Tags        []string `json:"tags,omitempty"`
	Stock       int      `json:"stock"`
}

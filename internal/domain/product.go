package domain

import "time"

// CatalogProduct is an entry of the sellable product catalog.
type CatalogProduct struct {
	ID   string
	Name string
	Code string
}

// RegisteredProduct is a unit owned by a customer contact.
type RegisteredProduct struct {
	ID             string
	Name           string
	ProductID      string
	SerialNumber   string
	PurchaseDate   time.Time
	WarrantyExpiry *time.Time
	AMCExpiry      *time.Time
	Defective      bool
	OwnerContactID string
	CreatedAt      time.Time
}

package dto

import "time"

// RegisterProductRequest registers a purchased unit. Customers may omit
// owner_contact_id.
type RegisterProductRequest struct {
	Name           string     `json:"name"`
	ProductID      string     `json:"product_id"`
	SerialNumber   string     `json:"serial_number"`
	PurchaseDate   time.Time  `json:"purchase_date"`
	WarrantyExpiry *time.Time `json:"warranty_expiry"`
	AMCExpiry      *time.Time `json:"amc_expiry"`
	Defective      bool       `json:"defective"`
	OwnerContactID string     `json:"owner_contact_id"`
}

// ProductResponse is a registered product with its coverage state.
type ProductResponse struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	ProductID      string     `json:"product_id"`
	SerialNumber   string     `json:"serial_number"`
	PurchaseDate   time.Time  `json:"purchase_date"`
	WarrantyExpiry *time.Time `json:"warranty_expiry,omitempty"`
	WarrantyStatus string     `json:"warranty_status"`
	AMCExpiry      *time.Time `json:"amc_expiry,omitempty"`
	AMCStatus      string     `json:"amc_status"`
	Defective      bool       `json:"defective"`
	OwnerContactID string     `json:"owner_contact_id"`
}

// CatalogProductResponse is a catalog entry.
type CatalogProductResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// ProfileResponse prefills the portal forms from the caller's identity.
type ProfileResponse struct {
	ContactID string `json:"contact_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Greeting  string `json:"greeting"`
}

package domain

import "time"

type Inventory struct {
	ProductID   int64     `json:"productId"`
	ProductName string    `json:"productName"`
	Available   int       `json:"available"`
	MinStock    int       `json:"minStock"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Low reports whether stock has reached the product's alert threshold.
func (i Inventory) Low() bool {
	return i.Available <= i.MinStock
}

package product

import "time"

type Product struct {
	ID          string    `json:"id" db:"product_id"`
	SellerID    string    `json:"sellerId" db:"seller_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Category    string    `json:"category" db:"category"`
	Price       int       `json:"price" db:"price"`
	Quantity    int       `json:"quantity" db:"quantity"`
	ImageURL    string    `json:"imageUrl" db:"image_url"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
	Version     int       `json:"-" db:"version"`
}

type ProductNew struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required"`
	Category    string `json:"category" validate:"required"`
	Price       int    `json:"price" validate:"required,gte=0,lte=100000000"`
	Quantity    int    `json:"quantity" validate:"gte=0"`
	ImageURL    string `json:"imageUrl" validate:"omitempty,url"`
}

type ProductUp struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Price       *int    `json:"price" validate:"omitempty,gte=0,lte=100000000"`
	Quantity    *int    `json:"quantity" validate:"omitempty,gte=0"`
	ImageURL    *string `json:"imageUrl" validate:"omitempty,url"`
}

// Filter narrows and orders product listings. Search matches name and
// category as a substring; Sort must be one of the whitelisted columns.
type Filter struct {
	Search   string
	Category string
	Sort     string
	Page     int
	PageSize int
}

type Rating struct {
	ProductID string    `json:"productId" db:"product_id"`
	UserID    string    `json:"userId" db:"user_id"`
	Value     int       `json:"value" db:"value"`
	Review    string    `json:"review" db:"review"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type RatingNew struct {
	Value  int    `json:"value" validate:"required,gte=1,lte=5"`
	Review string `json:"review" validate:"max=2000"`
}

type Favorite struct {
	ProductID string    `json:"productId" db:"product_id"`
	UserID    string    `json:"userId" db:"user_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

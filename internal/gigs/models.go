package gigs

import (
	"time"

	"github.com/google/uuid"
)

// Categories offered to sellers
var Categories = []string{
	"Graphics & Design",
	"Digital Marketing",
	"Writing & Translation",
	"Video & Animation",
	"Music & Audio",
	"Programming & Tech",
	"Data",
	"Business",
	"Lifestyle",
}

// Package is one priced tier of a gig
type Package struct {
	Price        float64  `json:"price" validate:"required,min=5"`
	Description  string   `json:"description" validate:"required,max=100"`
	DeliveryTime int      `json:"delivery_time" validate:"required,min=1,max=30"`
	Revisions    int      `json:"revisions" validate:"min=0,max=20"`
	Features     []string `json:"features" validate:"omitempty,max=10,dive,max=50"`
}

// Packages is the basic tier plus the optional upgrades
type Packages struct {
	Basic    Package  `json:"basic"`
	Standard *Package `json:"standard,omitempty"`
	Premium  *Package `json:"premium,omitempty"`
}

// FAQ is a question the seller answers up front
type FAQ struct {
	Question string `json:"question" validate:"required,max=100"`
	Answer   string `json:"answer" validate:"required,max=300"`
}

// Gig is a seller listing buyers place orders against
type Gig struct {
	ID            uuid.UUID `json:"id"`
	SellerID      uuid.UUID `json:"seller_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	Subcategory   string    `json:"subcategory"`
	Tags          []string  `json:"tags"`
	Packages      Packages  `json:"packages"`
	Images        []string  `json:"images"`
	FAQs          []FAQ     `json:"faqs"`
	Requirements  []string  `json:"requirements"`
	RatingAverage float64   `json:"rating_average"`
	RatingCount   int       `json:"rating_count"`
	OrderCount    int       `json:"order_count"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SortField orders a gig listing
type SortField string

const (
	SortNewest SortField = "created_at"
	SortRating SortField = "rating"
	SortOrders SortField = "orders"
	SortPrice  SortField = "price"
)

// ListFilter narrows the public gig listing
type ListFilter struct {
	Category    string
	Subcategory string
	Search      string
	MinPrice    *float64
	MaxPrice    *float64
	SortBy      SortField
	Ascending   bool
	Limit       int
	Offset      int
}

// SellerFilter narrows a seller's own listing
type SellerFilter struct {
	Active *bool
	Limit  int
	Offset int
}

// CreateGigRequest publishes a new gig
type CreateGigRequest struct {
	Title        string   `json:"title" validate:"required,min=5,max=80"`
	Description  string   `json:"description" validate:"required,max=1200"`
	Category     string   `json:"category" validate:"required,gig_category"`
	Subcategory  string   `json:"subcategory" validate:"required,max=60"`
	Tags         []string `json:"tags" validate:"omitempty,max=5,dive,max=20"`
	Packages     Packages `json:"packages"`
	Images       []string `json:"images" validate:"omitempty,max=5,dive,url"`
	FAQs         []FAQ    `json:"faqs" validate:"omitempty,max=10,dive"`
	Requirements []string `json:"requirements" validate:"omitempty,max=10,dive,max=200"`
}

// UpdateGigRequest changes the fields that are set
type UpdateGigRequest struct {
	Title        *string   `json:"title" validate:"omitempty,min=5,max=80"`
	Description  *string   `json:"description" validate:"omitempty,max=1200"`
	Category     *string   `json:"category" validate:"omitempty,gig_category"`
	Subcategory  *string   `json:"subcategory" validate:"omitempty,max=60"`
	Tags         *[]string `json:"tags" validate:"omitempty,max=5,dive,max=20"`
	Packages     *Packages `json:"packages"`
	Images       *[]string `json:"images" validate:"omitempty,max=5,dive,url"`
	FAQs         *[]FAQ    `json:"faqs" validate:"omitempty,max=10,dive"`
	Requirements *[]string `json:"requirements" validate:"omitempty,max=10,dive,max=200"`
}

// SetActiveRequest lists or unlists a gig
type SetActiveRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

type User struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Password  string
	Role      Role
	Addresses []Address
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Address struct {
	Street    string `json:"street" bson:"street"`
	City      string `json:"city" bson:"city"`
	State     string `json:"state" bson:"state"`
	ZipCode   string `json:"zipCode" bson:"zipCode"`
	Country   string `json:"country" bson:"country"`
	IsDefault bool   `json:"isDefault,omitempty" bson:"isDefault,omitempty"`
}

type Category string

const (
	CategoryHandbag     Category = "Handbag"
	CategoryShoulderBag Category = "Shoulder Bag"
	CategoryCrossbody   Category = "Crossbody"
	CategoryTote        Category = "Tote"
	CategoryClutch      Category = "Clutch"
	CategoryOther       Category = "Other"
)

var Categories = []Category{
	CategoryHandbag, CategoryShoulderBag, CategoryCrossbody,
	CategoryTote, CategoryClutch, CategoryOther,
}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

type Material string

const (
	MaterialLeather       Material = "Leather"
	MaterialVeganLeather  Material = "Vegan Leather"
	MaterialCanvas        Material = "Canvas"
	MaterialSuede         Material = "Suede"
	MaterialNylon         Material = "Nylon"
	MaterialExoticLeather Material = "Exotic Leather"
	MaterialOther         Material = "Other"
)

var Materials = []Material{
	MaterialLeather, MaterialVeganLeather, MaterialCanvas, MaterialSuede,
	MaterialNylon, MaterialExoticLeather, MaterialOther,
}

func (m Material) Valid() bool {
	for _, v := range Materials {
		if m == v {
			return true
		}
	}
	return false
}

// Image is a stored product image. PublicID is the key the image store uses.
type Image struct {
	URL      string `json:"url" bson:"url"`
	PublicID string `json:"publicId" bson:"publicId"`
}

type Dimensions struct {
	Length float64 `json:"length,omitempty" bson:"length,omitempty"`
	Width  float64 `json:"width,omitempty" bson:"width,omitempty"`
	Height float64 `json:"height,omitempty" bson:"height,omitempty"`
}

type Product struct {
	ID          uuid.UUID
	Name        string
	Description string
	Price       decimal.Decimal
	Brand       string
	Category    Category
	Material    Material
	Color       string
	Stock       int
	Images      []Image
	Rating      float64
	NumReviews  int
	IsFeatured  bool
	Dimensions  *Dimensions
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FirstImageURL returns the URL of the first image, or "" when there is none.
func (p *Product) FirstImageURL() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].URL
}

const (
	MaxProductNameLength        = 100
	MaxProductDescriptionLength = 2000
	MaxRating                   = 5
)

// Prices are stored with two decimal places and at most ten integer digits.
const PriceScale = 2

var priceLimit = decimal.New(1, 10)

// PriceFits reports whether d can be stored without rounding.
func PriceFits(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(PriceScale)) && d.Abs().LessThan(priceLimit)
}

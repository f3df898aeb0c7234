package models

import "time"

const (
	DefaultRating  = 4.5
	DefaultReviews = 0
)

// Categories lists the catalog categories a product may belong to.
var Categories = []string{
	"T-Shirts",
	"Hoodies",
	"Jackets",
	"Sweatshirts",
	"Pants",
	"Accessories",
}

// IsCategory reports whether name is one of Categories.
func IsCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}

// Color is a named swatch shown on the product page.
type Color struct {
	Name  string `json:"name" validate:"required"`
	Value string `json:"value" validate:"required,hexcolor"`
}

// Product represents a product in the store.
type Product struct {
	ID          string    `json:"id,omitempty"`
	Name        string    `json:"name" validate:"required"`
	Price       float64   `json:"price" validate:"gte=0"`
	Description string    `json:"description"`
	Category    string    `json:"category" validate:"category"`
	Sizes       []string  `json:"sizes" validate:"dive,required"`
	Colors      []Color   `json:"colors" validate:"dive"`
	Images      []string  `json:"images" validate:"dive,required"`
	Features    []string  `json:"features" validate:"dive,required"`
	Rating      *float64  `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	Reviews     *int      `json:"reviews,omitempty" validate:"omitempty,gte=0"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Normalize replaces nil lists with empty ones and drops repeated sizes,
// keeping the first occurrence of each.
func (p *Product) Normalize() {
	p.Sizes = uniqueStrings(p.Sizes)
	if p.Colors == nil {
		p.Colors = []Color{}
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Features == nil {
		p.Features = []string{}
	}
}

// ApplyDefaults fills rating and reviews when the caller left them out.
func (p *Product) ApplyDefaults() {
	if p.Rating == nil {
		r := DefaultRating
		p.Rating = &r
	}
	if p.Reviews == nil {
		n := DefaultReviews
		p.Reviews = &n
	}
}

// Clone returns a deep copy so callers can mutate lists freely.
func (p Product) Clone() Product {
	out := p
	out.Sizes = append([]string{}, p.Sizes...)
	out.Colors = append([]Color{}, p.Colors...)
	out.Images = append([]string{}, p.Images...)
	out.Features = append([]string{}, p.Features...)
	if p.Rating != nil {
		r := *p.Rating
		out.Rating = &r
	}
	if p.Reviews != nil {
		n := *p.Reviews
		out.Reviews = &n
	}
	return out
}

// ProductPatch carries the fields of a partial update. A nil field is left
// unchanged.
type ProductPatch struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,min=1"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	Description *string  `json:"description,omitempty"`
	Category    *string  `json:"category,omitempty" validate:"omitempty,category"`
	Sizes       []string `json:"sizes,omitempty" validate:"omitempty,dive,required"`
	Colors      []Color  `json:"colors,omitempty" validate:"omitempty,dive"`
	Images      []string `json:"images,omitempty" validate:"omitempty,dive,required"`
	Features    []string `json:"features,omitempty" validate:"omitempty,dive,required"`
	Rating      *float64 `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	Reviews     *int     `json:"reviews,omitempty" validate:"omitempty,gte=0"`
}

// IsEmpty reports whether the patch changes nothing.
func (pp ProductPatch) IsEmpty() bool {
	return pp.Name == nil && pp.Price == nil && pp.Description == nil &&
		pp.Category == nil && pp.Sizes == nil && pp.Colors == nil &&
		pp.Images == nil && pp.Features == nil && pp.Rating == nil &&
		pp.Reviews == nil
}

// Apply merges the patch into p.
func (pp ProductPatch) Apply(p *Product) {
	if pp.Name != nil {
		p.Name = *pp.Name
	}
	if pp.Price != nil {
		p.Price = *pp.Price
	}
	if pp.Description != nil {
		p.Description = *pp.Description
	}
	if pp.Category != nil {
		p.Category = *pp.Category
	}
	if pp.Sizes != nil {
		p.Sizes = append([]string{}, pp.Sizes...)
	}
	if pp.Colors != nil {
		p.Colors = append([]Color{}, pp.Colors...)
	}
	if pp.Images != nil {
		p.Images = append([]string{}, pp.Images...)
	}
	if pp.Features != nil {
		p.Features = append([]string{}, pp.Features...)
	}
	if pp.Rating != nil {
		r := *pp.Rating
		p.Rating = &r
	}
	if pp.Reviews != nil {
		n := *pp.Reviews
		p.Reviews = &n
	}
	p.Normalize()
}

// WriteResult reports where a write landed. Synced is false when the remote
// store could not be reached and only the local mirror holds the change.
type WriteResult struct {
	ID     string `json:"id"`
	Synced bool   `json:"synced"`
}

// Timestamp truncates t to the millisecond resolution the stores keep.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func uniqueStrings(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

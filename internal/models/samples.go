package models

import "time"

// SampleProducts returns the catalog shown when the local mirror has never
// been filled and the remote store is out of reach.
func SampleProducts(now time.Time) []Product {
	now = Timestamp(now)
	ratingA, reviewsA := 4.8, 124
	ratingB, reviewsB := 4.9, 87
	return []Product{
		{
			ID:          "sample-1",
			Name:        "Premium Cotton T-Shirt",
			Price:       29.99,
			Description: "Made from 100% organic cotton with a classic fit. Perfect for everyday wear.",
			Category:    "T-Shirts",
			Sizes:       []string{"S", "M", "L", "XL"},
			Colors:      []Color{{Name: "White", Value: "#FFFFFF"}, {Name: "Black", Value: "#000000"}},
			Images:      []string{"https://images.pexels.com/photos/6786894/pexels-photo-6786894.jpeg?auto=compress&cs=tinysrgb&w=800"},
			Features:    []string{"100% Organic Cotton", "Machine Washable"},
			Rating:      &ratingA,
			Reviews:     &reviewsA,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			ID:          "sample-2",
			Name:        "Cozy Pullover Hoodie",
			Price:       59.99,
			Description: "Comfortable hoodie perfect for casual wear and layering.",
			Category:    "Hoodies",
			Sizes:       []string{"M", "L", "XL"},
			Colors:      []Color{{Name: "Gray", Value: "#6B7280"}, {Name: "Black", Value: "#000000"}},
			Images:      []string{"https://images.pexels.com/photos/3253490/pexels-photo-3253490.jpeg?auto=compress&cs=tinysrgb&w=800"},
			Features:    []string{"Cotton Blend", "Kangaroo Pocket"},
			Rating:      &ratingB,
			Reviews:     &reviewsB,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
}

package validator

import (
	"testing"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
)

func validProduct() models.Product {
	return models.Product{
		Name:     "Chino Pants",
		Price:    45,
		Category: "Pants",
		Sizes:    []string{"30", "32"},
		Colors:   []models.Color{{Name: "Khaki", Value: "#C3B091"}},
		Images:   []string{"https://cdn.example.com/chino.jpg"},
		Features: []string{"Stretch Cotton"},
	}
}

func TestValidateStruct_Valid(t *testing.T) {
	assert.Empty(t, ValidateStruct(validProduct()))
	assert.NoError(t, Error(ValidateStruct(validProduct())))
}

func TestValidateStruct_Product(t *testing.T) {
	p := validProduct()
	p.Name = ""
	p.Price = -1
	p.Category = "Shoes"
	p.Colors = []models.Color{{Name: "Khaki", Value: "khaki"}}

	errs := ValidateStruct(p)
	fields := map[string]string{}
	for _, e := range errs {
		fields[e.FailedField] = e.Tag
	}
	assert.Equal(t, "required", fields["Product.Name"])
	assert.Equal(t, "gte", fields["Product.Price"])
	assert.Equal(t, "category", fields["Product.Category"])
	assert.Equal(t, "hexcolor", fields["Product.Colors[0].Value"])

	err := Error(errs)
	assert.ErrorIs(t, err, models.ErrInvalidProduct)
}

func TestValidateStruct_Patch(t *testing.T) {
	assert.Empty(t, ValidateStruct(models.ProductPatch{}))

	rating := 7.0
	category := "Shoes"
	errs := ValidateStruct(models.ProductPatch{Rating: &rating, Category: &category})
	assert.Len(t, errs, 2)
}

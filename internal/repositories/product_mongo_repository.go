package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProductsCollection is the collection holding product documents.
const ProductsCollection = "products"

type productDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Price       float64            `bson:"price"`
	Description string             `bson:"description"`
	Category    string             `bson:"category"`
	Sizes       []string           `bson:"sizes"`
	Colors      []colorDocument    `bson:"colors"`
	Images      []string           `bson:"images"`
	Features    []string           `bson:"features"`
	Rating      *float64           `bson:"rating,omitempty"`
	Reviews     *int               `bson:"reviews,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

type colorDocument struct {
	Name  string `bson:"name"`
	Value string `bson:"value"`
}

func toColorDocuments(colors []models.Color) []colorDocument {
	out := make([]colorDocument, 0, len(colors))
	for _, c := range colors {
		out = append(out, colorDocument{Name: c.Name, Value: c.Value})
	}
	return out
}

func (d productDocument) toModel() models.Product {
	colors := make([]models.Color, 0, len(d.Colors))
	for _, c := range d.Colors {
		colors = append(colors, models.Color{Name: c.Name, Value: c.Value})
	}
	p := models.Product{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Price:       d.Price,
		Description: d.Description,
		Category:    d.Category,
		Sizes:       d.Sizes,
		Colors:      colors,
		Images:      d.Images,
		Features:    d.Features,
		Rating:      d.Rating,
		Reviews:     d.Reviews,
		CreatedAt:   models.Timestamp(d.CreatedAt),
		UpdatedAt:   models.Timestamp(d.UpdatedAt),
	}
	p.Normalize()
	return p
}

// MongoProductStore keeps products as documents in a MongoDB collection.
type MongoProductStore struct {
	coll *mongo.Collection
}

// NewMongoProductStore creates a MongoProductStore over coll.
func NewMongoProductStore(coll *mongo.Collection) *MongoProductStore {
	return &MongoProductStore{coll: coll}
}

// EnsureIndexes creates the createdAt index used by List.
func (r *MongoProductStore) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create products index: %w", err)
	}
	return nil
}

// List returns every product document, newest first.
func (r *MongoProductStore) List(ctx context.Context) ([]models.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []productDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	products := make([]models.Product, 0, len(docs))
	for _, d := range docs {
		products = append(products, d.toModel())
	}
	return products, nil
}

// Get returns the document with the given hex id.
func (r *MongoProductStore) Get(ctx context.Context, id string) (*models.Product, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("product with ID %s: %w", id, models.ErrProductNotFound)
	}

	var doc productDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": objID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("product with ID %s: %w", id, models.ErrProductNotFound)
		}
		return nil, fmt.Errorf("failed to get product by ID %s: %w", id, err)
	}
	p := doc.toModel()
	return &p, nil
}

// Insert stores a new document and returns its ObjectID in hex.
func (r *MongoProductStore) Insert(ctx context.Context, product *models.Product) (string, error) {
	doc := productDocument{
		ID:          primitive.NewObjectID(),
		Name:        product.Name,
		Price:       product.Price,
		Description: product.Description,
		Category:    product.Category,
		Sizes:       product.Sizes,
		Colors:      toColorDocuments(product.Colors),
		Images:      product.Images,
		Features:    product.Features,
		Rating:      product.Rating,
		Reviews:     product.Reviews,
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to insert product: %w", err)
	}
	return doc.ID.Hex(), nil
}

// Update applies patch with $set, touching only the fields it carries.
func (r *MongoProductStore) Update(ctx context.Context, id string, patch models.ProductPatch, updatedAt time.Time) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("product with ID %s not found for update: %w", id, models.ErrProductNotFound)
	}

	set := bson.M{"updatedAt": updatedAt}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Price != nil {
		set["price"] = *patch.Price
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.Sizes != nil {
		set["sizes"] = patch.Sizes
	}
	if patch.Colors != nil {
		set["colors"] = toColorDocuments(patch.Colors)
	}
	if patch.Images != nil {
		set["images"] = patch.Images
	}
	if patch.Features != nil {
		set["features"] = patch.Features
	}
	if patch.Rating != nil {
		set["rating"] = *patch.Rating
	}
	if patch.Reviews != nil {
		set["reviews"] = *patch.Reviews
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("product with ID %s not found for update: %w", id, models.ErrProductNotFound)
	}
	return nil
}

// Delete removes the document with the given hex id.
func (r *MongoProductStore) Delete(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("product with ID %s not found for deletion: %w", id, models.ErrProductNotFound)
	}

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("product with ID %s not found for deletion: %w", id, models.ErrProductNotFound)
	}
	return nil
}

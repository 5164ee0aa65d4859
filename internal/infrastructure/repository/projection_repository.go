package repository

import (
	"context"
	"fmt"

	"archie-core-commerce-sync/internal/domain"
	"archie-core-commerce-sync/internal/infrastructure/repository/entity"
	"archie-core-commerce-sync/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoProjectionRepository implements ProjectionRepository using MongoDB.
// Every collection is keyed by (scope, externalId) so replays overwrite.
type MongoProjectionRepository struct {
	products *mongo.Collection
	orders   *mongo.Collection
	stock    *mongo.Collection
	refunds  *mongo.Collection
}

// NewMongoProjectionRepository creates a new MongoDB projection repository
func NewMongoProjectionRepository(db *mongo.Database) ports.ProjectionRepository {
	return &MongoProjectionRepository{
		products: db.Collection(CollectionProducts),
		orders:   db.Collection(CollectionOrders),
		stock:    db.Collection(CollectionStock),
		refunds:  db.Collection(CollectionRefunds),
	}
}

func naturalKey(scope, externalID string) bson.M {
	return bson.M{"scope": scope, "externalId": externalID}
}

func upsert(ctx context.Context, collection *mongo.Collection, scope, externalID string, doc interface{}) error {
	opts := options.Update().SetUpsert(true)
	_, err := collection.UpdateOne(ctx, naturalKey(scope, externalID), bson.M{"$set": doc}, opts)
	return err
}

// UpsertProduct writes the product mirror row
func (r *MongoProjectionRepository) UpsertProduct(ctx context.Context, product *domain.ProductMirror) error {
	if err := upsert(ctx, r.products, product.Scope, product.ExternalID, entity.MongoProductDocFromDomain(product)); err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}
	return nil
}

// UpsertOrder writes the order row
func (r *MongoProjectionRepository) UpsertOrder(ctx context.Context, order *domain.OrderRecord) error {
	if err := upsert(ctx, r.orders, order.Scope, order.ExternalID, entity.MongoOrderDocFromDomain(order)); err != nil {
		return fmt.Errorf("failed to upsert order: %w", err)
	}
	return nil
}

// UpsertStock writes the stock row
func (r *MongoProjectionRepository) UpsertStock(ctx context.Context, stock *domain.StockLevel) error {
	if err := upsert(ctx, r.stock, stock.Scope, stock.ExternalID, entity.MongoStockDocFromDomain(stock)); err != nil {
		return fmt.Errorf("failed to upsert stock level: %w", err)
	}
	return nil
}

// UpsertRefund writes the refund row
func (r *MongoProjectionRepository) UpsertRefund(ctx context.Context, refund *domain.RefundRecord) error {
	if err := upsert(ctx, r.refunds, refund.Scope, refund.ExternalID, entity.MongoRefundDocFromDomain(refund)); err != nil {
		return fmt.Errorf("failed to upsert refund: %w", err)
	}
	return nil
}

// GetProduct retrieves a product mirror row
func (r *MongoProjectionRepository) GetProduct(ctx context.Context, scope, externalID string) (*domain.ProductMirror, error) {
	var doc entity.MongoProductDoc
	err := r.products.FindOne(ctx, naturalKey(scope, externalID)).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return doc.ToDomain(), nil
}

// GetOrder retrieves an order row
func (r *MongoProjectionRepository) GetOrder(ctx context.Context, scope, externalID string) (*domain.OrderRecord, error) {
	var doc entity.MongoOrderDoc
	err := r.orders.FindOne(ctx, naturalKey(scope, externalID)).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return doc.ToDomain(), nil
}

// GetStock retrieves a stock row
func (r *MongoProjectionRepository) GetStock(ctx context.Context, scope, externalID string) (*domain.StockLevel, error) {
	var doc entity.MongoStockDoc
	err := r.stock.FindOne(ctx, naturalKey(scope, externalID)).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stock level: %w", err)
	}
	return doc.ToDomain(), nil
}

// FindProductBySKU retrieves a live product of the scope by SKU
func (r *MongoProjectionRepository) FindProductBySKU(ctx context.Context, scope, sku string) (*domain.ProductMirror, error) {
	var doc entity.MongoProductDoc
	filter := bson.M{"scope": scope, "sku": sku, "deleted": false}
	err := r.products.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find product by sku: %w", err)
	}
	return doc.ToDomain(), nil
}

// ListProducts returns the most recently updated products of a scope
func (r *MongoProjectionRepository) ListProducts(ctx context.Context, scope string, limit int) ([]*domain.ProductMirror, error) {
	docs, err := findScoped[entity.MongoProductDoc](ctx, r.products, scope, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	products := make([]*domain.ProductMirror, 0, len(docs))
	for i := range docs {
		products = append(products, docs[i].ToDomain())
	}
	return products, nil
}

// ListOrders returns the most recently updated orders of a scope
func (r *MongoProjectionRepository) ListOrders(ctx context.Context, scope string, limit int) ([]*domain.OrderRecord, error) {
	docs, err := findScoped[entity.MongoOrderDoc](ctx, r.orders, scope, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	orders := make([]*domain.OrderRecord, 0, len(docs))
	for i := range docs {
		orders = append(orders, docs[i].ToDomain())
	}
	return orders, nil
}

// ListStock returns the stock rows of a scope
func (r *MongoProjectionRepository) ListStock(ctx context.Context, scope string, limit int) ([]*domain.StockLevel, error) {
	docs, err := findScoped[entity.MongoStockDoc](ctx, r.stock, scope, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock levels: %w", err)
	}
	levels := make([]*domain.StockLevel, 0, len(docs))
	for i := range docs {
		levels = append(levels, docs[i].ToDomain())
	}
	return levels, nil
}

func findScoped[D any](ctx context.Context, collection *mongo.Collection, scope string, limit int) ([]D, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := collection.Find(ctx, bson.M{"scope": scope}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []D
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

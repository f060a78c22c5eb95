package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gerai-labs/backend-gerai/internal/order"
	"github.com/gerai-labs/backend-gerai/internal/partition"
)

// Sort keys accepted by order listings, mapped to their document fields.
var orderSortFields = map[string]string{
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
	"orderTotal":  "order_total",
	"orderStatus": "order_status",
	"orderNumber": "order_number",
}

// Orders is the mongo-backed order store.
type Orders struct {
	Registry *partition.Registry
}

func (s Orders) collection(tenantID string) (*mongo.Collection, error) {
	a, err := s.Registry.Accessor(tenantID, accessorOrders, OrdersDescriptor())
	if err != nil {
		return nil, err
	}
	return a.Collection(), nil
}

// Get returns an order by id or order.ErrNotFound.
func (s Orders) Get(ctx context.Context, tenantID, orderID string) (order.Order, error) {
	coll, err := s.collection(tenantID)
	if err != nil {
		return order.Order{}, err
	}
	var o order.Order
	err = coll.FindOne(ctx, bson.M{"_id": orderID}).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return order.Order{}, order.ErrNotFound
	}
	if err != nil {
		return order.Order{}, fmt.Errorf("orders: get: %w", err)
	}
	return o, nil
}

// UpdateStatus persists only the status and updatedAt, returning the updated
// document. There is no compare-and-swap on the previous status; the service
// validates the transition and the write is last-writer-wins.
func (s Orders) UpdateStatus(ctx context.Context, tenantID, orderID string, status order.Status, updatedAt time.Time) (order.Order, error) {
	coll, err := s.collection(tenantID)
	if err != nil {
		return order.Order{}, err
	}
	update := bson.M{"$set": bson.M{"order_status": status, "updated_at": updatedAt}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var o order.Order
	err = coll.FindOneAndUpdate(ctx, bson.M{"_id": orderID}, update, opts).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return order.Order{}, order.ErrNotFound
	}
	if err != nil {
		return order.Order{}, fmt.Errorf("orders: update status: %w", err)
	}
	return o, nil
}

// List returns the window of orders matching the query plus the total count.
func (s Orders) List(ctx context.Context, tenantID string, q order.ListQuery) ([]order.Order, int64, error) {
	coll, err := s.collection(tenantID)
	if err != nil {
		return nil, 0, err
	}

	filter := bson.M{}
	if q.UserID != "" {
		filter["user_id"] = q.UserID
	}
	if q.Status != nil {
		filter["order_status"] = *q.Status
	}

	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("orders: count: %w", err)
	}

	sortField, ok := orderSortFields[q.SortKey]
	if !ok {
		sortField = "created_at"
	}
	direction := 1
	if q.SortDesc || q.SortKey == "" {
		direction = -1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: sortField, Value: direction}}).
		SetSkip(q.Skip).
		SetLimit(q.Limit)

	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("orders: list: %w", err)
	}
	var orders []order.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, fmt.Errorf("orders: decode list: %w", err)
	}
	return orders, total, nil
}

// Delete removes the order outright, whatever its status.
func (s Orders) Delete(ctx context.Context, tenantID, orderID string) error {
	coll, err := s.collection(tenantID)
	if err != nil {
		return err
	}
	result, err := coll.DeleteOne(ctx, bson.M{"_id": orderID})
	if err != nil {
		return fmt.Errorf("orders: delete: %w", err)
	}
	if result.DeletedCount == 0 {
		return order.ErrNotFound
	}
	return nil
}

// Insert stores a new order, used by checkout and the seeder.
func (s Orders) Insert(ctx context.Context, tenantID string, o order.Order) error {
	coll, err := s.collection(tenantID)
	if err != nil {
		return err
	}
	if _, err := coll.InsertOne(ctx, o); err != nil {
		return fmt.Errorf("orders: insert: %w", err)
	}
	return nil
}

package store

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gerai-labs/backend-gerai/internal/partition"
)

// Accessor names registered against the partition registry. Descriptors are
// stable per name for the life of the process; re-registration reuses the
// cached accessor.
const (
	accessorCarts    = "carts"
	accessorOrders   = "orders"
	accessorProducts = "products"
)

// CartsDescriptor describes the carts collection: one cart per user.
func CartsDescriptor() partition.Descriptor {
	return partition.Descriptor{
		Collection: "carts",
		Indexes: []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}
}

// OrdersDescriptor describes the orders collection.
func OrdersDescriptor() partition.Descriptor {
	return partition.Descriptor{
		Collection: "orders",
		Indexes: []mongo.IndexModel{
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "order_status", Value: 1}}},
			{
				Keys:    bson.D{{Key: "order_number", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}
}

// ProductsDescriptor describes the products collection.
func ProductsDescriptor() partition.Descriptor {
	return partition.Descriptor{
		Collection: "products",
		Indexes: []mongo.IndexModel{
			{Keys: bson.D{{Key: "name", Value: 1}}},
		},
	}
}

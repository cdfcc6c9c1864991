/*
Copyright 2025 Prodflow Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package database

import (
	"context"

	"github.com/prodflow/jirasync/model"
)

// IDataSource defines the interface for data source operations.
type IDataSource interface {
	product
}

// product defines methods for handling the locally owned product records.
type product interface {
	CreateProduct(ctx context.Context, product *model.Product) error                     // Persists a new product
	GetProductByID(ctx context.Context, id string) (*model.Product, error)               // Retrieves a product by its local id
	GetProductByRemoteKey(ctx context.Context, remoteKey string) (*model.Product, error) // Retrieves a product by its linked issue key
	GetAllProducts(ctx context.Context, limit, offset int) ([]model.Product, error)      // Retrieves products, soft-deleted ones excluded
	UpdateProduct(ctx context.Context, product *model.Product) error                     // Writes business fields and sync bookkeeping in one statement, guarded by the record version
}

package database

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/prodflow/jirasync/internal/apierror"
	"github.com/prodflow/jirasync/model"
)

func (d Datasource) CreateProduct(ctx context.Context, product *model.Product) error {
	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO products (product_id, name, description, external_ref, remote_key, remote_id, remote_status, sync_status, last_sync_at, version, created_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, product.ProductID, product.Name, product.Description, product.ExternalRef,
		nullString(product.RemoteKey), nullString(product.RemoteID), nullString(product.RemoteStatus),
		product.SyncStatus, product.LastSyncAt, product.Version, product.CreatedAt, product.DeletedAt)

	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return apierror.NewAPIError(apierror.ErrConflict, "Product with this ID already exists", err)
			default:
				return apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
			}
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create product", err)
	}
	return nil
}

func (d Datasource) GetProductByID(ctx context.Context, id string) (*model.Product, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT product_id, name, description, external_ref, remote_key, remote_id, remote_status, sync_status, last_sync_at, version, created_at, deleted_at
		FROM products
		WHERE product_id = $1
	`, id)
	return scanProduct(row)
}

func (d Datasource) GetProductByRemoteKey(ctx context.Context, remoteKey string) (*model.Product, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT product_id, name, description, external_ref, remote_key, remote_id, remote_status, sync_status, last_sync_at, version, created_at, deleted_at
		FROM products
		WHERE remote_key = $1
	`, remoteKey)
	return scanProduct(row)
}

func (d Datasource) GetAllProducts(ctx context.Context, limit, offset int) ([]model.Product, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT product_id, name, description, external_ref, remote_key, remote_id, remote_status, sync_status, last_sync_at, version, created_at, deleted_at
		FROM products
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve products", err)
	}
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		product, err := scanProductRow(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *product)
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over products", err)
	}
	return products, nil
}

// UpdateProduct writes the product's business fields and sync bookkeeping in
// one statement so no reader ever observes new content with stale sync state.
// The write is a compare-and-set on the record version; a concurrent writer
// losing the race gets ErrConflict and retries the local write against a
// re-read row. Sync bookkeeping can only move forward: a late-finishing older
// attempt updates neither last_sync_at nor sync_status, so the pair always
// describes the same attempt.
func (d Datasource) UpdateProduct(ctx context.Context, product *model.Product) error {
	res, err := d.Conn.ExecContext(ctx, `
		UPDATE products
		SET name = $1, description = $2, external_ref = $3, remote_key = $4, remote_id = $5,
			remote_status = $6,
			sync_status = CASE WHEN last_sync_at IS NULL OR $8 >= last_sync_at THEN $7 ELSE sync_status END,
			last_sync_at = GREATEST(last_sync_at, $8),
			deleted_at = $9, version = version + 1
		WHERE product_id = $10 AND version = $11
	`, product.Name, product.Description, product.ExternalRef,
		nullString(product.RemoteKey), nullString(product.RemoteID), nullString(product.RemoteStatus),
		product.SyncStatus, product.LastSyncAt, product.DeletedAt, product.ProductID, product.Version)

	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update product", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read update result", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrConflict, "Product was modified concurrently", nil)
	}

	product.Version++
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row *sql.Row) (*model.Product, error) {
	product, err := scanProductRow(row)
	if err != nil {
		return nil, err
	}
	return product, nil
}

func scanProductRow(row rowScanner) (*model.Product, error) {
	product := model.Product{}
	var (
		remoteKey    sql.NullString
		remoteID     sql.NullString
		remoteStatus sql.NullString
		lastSyncAt   sql.NullTime
		deletedAt    sql.NullTime
	)

	err := row.Scan(&product.ProductID, &product.Name, &product.Description, &product.ExternalRef,
		&remoteKey, &remoteID, &remoteStatus, &product.SyncStatus, &lastSyncAt,
		&product.Version, &product.CreatedAt, &deletedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Product not found", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan product data", err)
	}

	product.RemoteKey = remoteKey.String
	product.RemoteID = remoteID.String
	product.RemoteStatus = remoteStatus.String
	if lastSyncAt.Valid {
		t := lastSyncAt.Time
		product.LastSyncAt = &t
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		product.DeletedAt = &t
	}
	return &product, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

package database

import (
	"database/sql"
	"log"
	"sync"

	_ "github.com/lib/pq"

	"github.com/prodflow/jirasync/config"
)

// Declare a package-level variable to hold the singleton instance.
// Ensure the instance is not accessible outside the package.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn *sql.DB
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		instance = &Datasource{Conn: con}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database Connection error ❌: %v", err)
		return nil, err
	}
	err = createProductTable(db)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// createProductTable creates the PostgreSQL table for the Product struct.
// remote_key is indexed for the inbound reconciler's lookup path.
func createProductTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS products (
			id SERIAL PRIMARY KEY,
			product_id TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			description TEXT,
			external_ref TEXT,
			remote_key TEXT,
			remote_id TEXT,
			remote_status TEXT,
			sync_status TEXT NOT NULL DEFAULT 'PENDING',
			last_sync_at TIMESTAMP,
			version BIGINT NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			deleted_at TIMESTAMP
		)
	`)
	if err != nil {
		log.Printf("Error creating products table: %v", err)
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_products_remote_key ON products (remote_key)`)
	if err != nil {
		log.Printf("Error creating remote_key index: %v", err)
	}
	return err
}

package app

import (
	"database/sql"
	"embed"
	"io/fs"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

//go:embed migrations
var migrationFS embed.FS

// ProductMigrations and OrderMigrations hold each service's schema.
var (
	ProductMigrations = mustSub("migrations/product")
	OrderMigrations   = mustSub("migrations/order")
)

func mustSub(dir string) fs.FS {
	sub, err := fs.Sub(migrationFS, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

func ApplyMigrations(connStr string, migrations fs.FS) error {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	return goose.Up(db, ".")
}

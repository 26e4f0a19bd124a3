package database

import (
	"database/sql"
	"log"

	_ "github.com/lib/pq"
)

// Connect opens the backing Postgres store. The pool package takes over
// connection bookkeeping, so database/sql's own idle pool is kept minimal.
func Connect(databaseURL string) *sql.DB {
	if databaseURL == "" {
		log.Println("[DB] warning: DATABASE_URL is empty")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		log.Fatal("[DB] open failed:", err)
	}

	if err = db.Ping(); err != nil {
		log.Fatal("[DB] ping failed:", err)
	}

	log.Println("[DB] PostgreSQL connection established")
	return db
}

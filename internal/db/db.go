// internal/db/db.go
package db

import (
    "database/sql"

    _ "github.com/lib/pq"

    "github.com/unclebandit/donorcall-backend/internal/logger"
)

var DB *sql.DB

func Init(databaseURL string) {
    var err error
    DB, err = sql.Open("postgres", databaseURL)
    if err != nil {
        logger.Log.Fatalf("failed to connect to DB: %v", err)
    }

    if err = DB.Ping(); err != nil {
        logger.Log.Fatalf("failed to ping DB: %v", err)
    }

    logger.Log.Info("Connected to database")
}

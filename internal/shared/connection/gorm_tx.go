package connection

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
)

// GormConn returns a gorm handle that runs on tx when one is bound, so
// gorm repositories can join a transaction opened on the raw *sql.DB.
func GormConn(ctx context.Context, db *gorm.DB, tx *sql.Tx) *gorm.DB {
	if tx == nil {
		return db.WithContext(ctx)
	}
	conn := db.Session(&gorm.Session{Context: ctx, SkipDefaultTransaction: true})
	conn.Statement.ConnPool = tx
	return conn
}

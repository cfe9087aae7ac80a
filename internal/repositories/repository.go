package repositories

import (
	intconfig "github.com/muhammed-shimlal/Kallayi-car-spa/internal/config"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	"github.com/jmoiron/sqlx"
)

// dialect builds prepared (placeholder) MySQL statements for read queries.
var dialect = goqu.Dialect("mysql")

func orShared(db *sqlx.DB) *sqlx.DB {
	if db != nil {
		return db
	}
	return intconfig.DB
}

package sqldb

import "github.com/zeptools/fieldticket/db"

// Client is a SQL database client built by New from a registered factory
type Client interface {
	db.Client[DBHandle]
	DBType() string // the registered type, e.g. "pgsql". selects dialect statements
}

package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	drv "github.com/go-sql-driver/mysql"

	"github.com/zeptools/fieldticket/db/sqldb"
)

const DBType = "mysql"

type Client struct {
	Conf *sqldb.Conf

	// db fields are implementation details, not exported
	db  *sql.DB
	dsn string
}

// Ensure mysql.Client implements sqldb.Client interface
var _ sqldb.Client = (*Client)(nil)

// Register makes "mysql" available to sqldb.New
func Register() {
	sqldb.RegisterFactory(DBType, func(conf *sqldb.Conf) (sqldb.Client, error) {
		return &Client{Conf: conf}, nil
	})
}

func (c *Client) Init() error {
	if c.Conf == nil {
		return errors.New("mysql: nil conf")
	}
	var err error
	if c.dsn, err = c.DSN(); err != nil {
		return err
	}
	if c.db, err = sql.Open("mysql", c.dsn); err != nil {
		return err
	}
	maxConns := 10
	if c.Conf.MaxConns > 0 {
		maxConns = c.Conf.MaxConns
	}
	c.db.SetConnMaxLifetime(time.Minute * 3)
	c.db.SetMaxOpenConns(maxConns)
	c.db.SetMaxIdleConns(maxConns)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = c.Ping(ctx); err != nil {
		return fmt.Errorf("mysql ping failed: %w", err)
	}
	log.Println("[INFO] mysql client initialized")
	return nil
}

// DSN is Conf.DSN, or one built from the connection fields with the driver's Config
func (c *Client) DSN() (string, error) {
	if c.Conf.DSN != "" {
		return c.Conf.DSN, nil
	}
	cfg := drv.NewConfig()
	cfg.User = c.Conf.User
	cfg.Passwd = c.Conf.PW
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", c.Conf.Host, c.Conf.Port)
	cfg.DBName = c.Conf.DB
	cfg.ParseTime = true
	if c.Conf.TZ != "" {
		loc, err := time.LoadLocation(c.Conf.TZ)
		if err != nil {
			return "", fmt.Errorf("mysql tz: %w", err)
		}
		cfg.Loc = loc
	}
	cfg.Params = map[string]string{"sql_mode": "'ANSI_QUOTES'"}
	return cfg.FormatDSN(), nil
}

func (c *Client) DBHandle() sqldb.DBHandle {
	return &Handle{DB: c.db}
}

func (c *Client) DBType() string {
	return DBType
}

func (c *Client) Ping(ctx context.Context) error {
	if c.db == nil {
		return errors.New("mysql client not initialized")
	}
	return c.db.PingContext(ctx)
}

func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	log.Println("[INFO] closing mysql client")
	if err := c.db.Close(); err != nil {
		return err
	}
	log.Println("[INFO] mysql client closed")
	return nil
}

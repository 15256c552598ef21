package pgsql

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zeptools/fieldticket/db/sqldb"
)

const DBType = "pgsql"

type Client struct {
	Handle // [Embedded] for Promoted Methods
	Conf   *sqldb.Conf
	dsn    string
}

// Ensure pgsql.Client implements sqldb.Client interface
var _ sqldb.Client = (*Client)(nil)

// Register makes "pgsql" available to sqldb.New
func Register() {
	sqldb.RegisterFactory(DBType, func(conf *sqldb.Conf) (sqldb.Client, error) {
		return &Client{Conf: conf}, nil
	})
}

func (c *Client) Init() error {
	if c.Conf == nil {
		return errors.New("pgsql: nil conf")
	}
	c.dsn = c.DSN()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	config, err := pgxpool.ParseConfig(c.dsn)
	if err != nil {
		return fmt.Errorf("failed to parse pgx config: %w", err)
	}
	config.MaxConns = 10
	if c.Conf.MaxConns > 0 {
		config.MaxConns = int32(c.Conf.MaxConns)
	}
	config.MinConns = 1
	config.MaxConnLifetime = 3 * time.Minute
	if c.Pool, err = pgxpool.NewWithConfig(ctx, config); err != nil {
		return fmt.Errorf("failed to connect pgx Pool: %w", err)
	}
	if err = c.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	log.Print("[INFO] pgsql client initialized")
	return nil
}

// DSN is Conf.DSN, or one built from the connection fields
func (c *Client) DSN() string {
	if c.Conf.DSN != "" {
		return c.Conf.DSN
	}
	// NOTE: sslmode=disable is often used for local dev, adjust as needed.
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Conf.Host,
		c.Conf.Port,
		c.Conf.User,
		c.Conf.PW,
		c.Conf.DB,
	)
	if c.Conf.TZ != "" {
		dsn += " TimeZone=" + c.Conf.TZ
	}
	return dsn
}

func (c *Client) DBHandle() sqldb.DBHandle {
	return &c.Handle
}

func (c *Client) DBType() string {
	return DBType
}

func (c *Client) Ping(ctx context.Context) error {
	if c.Pool == nil {
		return errors.New("pgsql client not initialized")
	}
	return c.Pool.Ping(ctx)
}

func (c *Client) Close() error {
	if c.Pool == nil {
		return nil
	}
	log.Println("[INFO] closing pgsql client")
	c.Pool.Close()
	log.Println("[INFO] pgsql client closed")
	return nil
}

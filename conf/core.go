package conf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"maps"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zeptools/fieldticket/apis/upload"
	"github.com/zeptools/fieldticket/archive"
	"github.com/zeptools/fieldticket/db"
	"github.com/zeptools/fieldticket/db/kvdb"
	"github.com/zeptools/fieldticket/db/kvdb/impls/redis"
	"github.com/zeptools/fieldticket/db/sqldb"
	"github.com/zeptools/fieldticket/db/sqldb/impls/mysql"
	"github.com/zeptools/fieldticket/db/sqldb/impls/pgsql"
	"github.com/zeptools/fieldticket/export"
	"github.com/zeptools/fieldticket/jobs"
	"github.com/zeptools/fieldticket/layout"
	"github.com/zeptools/fieldticket/reminders"
	"github.com/zeptools/fieldticket/schedjobs"
	"github.com/zeptools/fieldticket/svc"
	"github.com/zeptools/fieldticket/templates"
	"github.com/zeptools/fieldticket/throttle"
	"github.com/zeptools/fieldticket/uds"
	"github.com/zeptools/fieldticket/web"
)

const dbPingTimeout = 3 * time.Second

// Environment variables for secrets that never live in the JSON files
const (
	EnvUploadSecret = "FIELDTICKET_UPLOAD_SECRET"
	EnvPushAPIKey   = "FIELDTICKET_PUSH_API_KEY"
)

// Core - common config
type Core struct {
	AppName         string               `json:"app_name"`
	Listen          string               `json:"listen"`            // HTTP Server Listen IP:PORT Address
	Host            string               `json:"host"`              // HTTP Host. Can be used to generate public url endpoints
	SocketPath      string               `json:"socket_path"`       // operator socket. empty = disabled
	LayoutsDir      string               `json:"layouts_dir"`       // layout overrides. relative to AppRoot
	TemplatesDir    string               `json:"templates_dir"`     // static template directory. relative to AppRoot
	TemplateHTTP    *templates.HTTPConf  `json:"template_http"`     // remote static storage. wins over TemplatesDir
	FetchTimeoutSec int                  `json:"fetch_timeout_sec"` // 0 = render.DefaultFetchTimeout
	FetchRetries    int                  `json:"fetch_retries"`     // 0 = render.DefaultFetchRetries, negative = no retry
	ExportParallel  int                  `json:"export_parallel"`   // 0 = export.DefaultParallel
	MaxBodyBytes    int64                `json:"max_body_bytes"`    // 0 = handlers.DefaultMaxBodyBytes
	Throttle        *throttle.BucketConf `json:"throttle"`          // per client IP on the render routes. nil = off
	ArchiveDB       string               `json:"archive_db"`        // name in .sql-databases.json. empty = no archive
	RemindersDB     string               `json:"reminders_db"`      // name in .sql-databases.json

	AppRoot             string                        `json:"-"` // Filled from compiled paths or -root
	RootCtx             context.Context               `json:"-"` // Global Context with RootCancel
	RootCancel          context.CancelFunc            `json:"-"` // CancelFunc for RootCtx
	UDSService          *uds.Service                  `json:"-"` // PrepareUDSService
	JobScheduler        *schedjobs.Scheduler          `json:"-"` // PrepareJobScheduler
	WebService          *web.Service                  `json:"-"` // PrepareWebService
	ThrottleBucketStore *throttle.BucketStore[string] `json:"-"` // PrepareThrottleBucketStore
	BackendHttpClient   *http.Client                  `json:"-"` // for requests to external apis
	KVDBConf            kvdb.Conf                     `json:"-"` // loadKVDBConf
	BackendKVDBClient   kvdb.Client                   `json:"-"` // prepareKVDBClient
	SQLDBConfs          map[string]*sqldb.Conf        `json:"-"` // loadSQLDBConfs
	BackendSQLDBClients map[string]sqldb.Client       `json:"-"` // prepareSQLDBClients
	Layouts             *layout.Registry              `json:"-"` // [Hot Reload] PrepareRenderer
	TemplateSource      templates.Source              `json:"-"` // PrepareRenderer
	Runner              *jobs.Runner                  `json:"-"` // PrepareRenderer
	Exporter            *export.Exporter              `json:"-"` // PrepareRenderer
	UploadClient        *upload.Client                `json:"-"` // PrepareUploadClient
	Archive             *archive.Repository           `json:"-"` // PrepareArchive
	ReminderJob         *reminders.Job                `json:"-"` // PrepareReminders

	services []svc.Service // Services to Manage
	done     chan error
}

// BaseInit - 1st step for initialization
// 1. set AppRoot
// 2. load config/.env into the environment, existing vars win
// 3. load config/.core.json file
// 4. Start ShutdownSignalListener
func (c *Core) BaseInit(appRoot string, rootCtx context.Context, rootCancel context.CancelFunc) error {
	c.AppRoot = appRoot
	if err := c.loadDotEnv(); err != nil {
		return err
	}
	found, err := c.readConfFile(".core.json", c)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("missing %s", c.confPath(".core.json"))
	}
	if c.AppName == "" {
		c.AppName = "fieldticket"
	}
	c.RootCtx = rootCtx
	c.RootCancel = rootCancel
	c.BackendHttpClient = &http.Client{}
	c.startShutdownSignalListener()
	return nil
}

func (c *Core) loadDotEnv() error {
	envPath := c.confPath(".env")
	if _, err := os.Stat(envPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(envPath); err != nil {
		return fmt.Errorf("godotenv(%s): %w", envPath, err)
	}
	log.Printf("[INFO][CORE] environment loaded from %s", envPath)
	return nil
}

func (c *Core) confPath(name string) string {
	return filepath.Join(c.AppRoot, "config", name)
}

// readConfFile decodes config/<name> into v. A missing file is not an error
func (c *Core) readConfFile(name string, v any) (bool, error) {
	confBytes, err := os.ReadFile(c.confPath(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if err = json.Unmarshal(confBytes, v); err != nil {
		return true, fmt.Errorf("%s: %w", name, err)
	}
	return true, nil
}

// resolve makes p relative to AppRoot unless it is absolute
func (c *Core) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.AppRoot, p)
}

func (c *Core) AddService(s svc.Service) {
	log.Printf("[INFO] adding service: %s", s.Name())
	c.services = append(c.services, s)
	log.Printf("[INFO] total services: %d", len(c.services))
}

func (c *Core) StartServices() error {
	c.done = make(chan error, len(c.services))
	for _, s := range c.services {
		if err := s.Start(); err != nil {
			return fmt.Errorf("%s: %w", s.Name(), err)
		}
		go func(s svc.Service) {
			c.done <- <-s.Done()
		}(s)
	}
	return nil
}

// WaitServicesDone returns when every service is done or at the first error
func (c *Core) WaitServicesDone() error {
	for range c.services {
		if err := <-c.done; err != nil {
			return err
		}
	}
	return nil
}

func (c *Core) StopServices() {
	for _, s := range c.services {
		s.Stop()
	}
}

var once sync.Once

func (c *Core) startShutdownSignalListener() {
	once.Do(func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigs
			log.Printf("[INFO] got signal [%s]. shutting down app [%s] ...", sig, c.AppName)
			c.RootCancel() // broadcast to all child services via Context.Done()
		}()
	})
	log.Printf("[INFO][CORE] shutdown signal listener started")
}

func (c *Core) PrepareJobScheduler() {
	c.JobScheduler = schedjobs.NewScheduler()
	c.AddService(c.JobScheduler)
}

func (c *Core) PrepareUDSService(sockPath string, cmdMap map[string]uds.CmdHnd) {
	c.UDSService = uds.NewService(c.RootCtx, sockPath, cmdMap)
	c.AddService(c.UDSService)
}

func (c *Core) PrepareWebService(addr string, router http.Handler) {
	c.WebService = web.NewService(c.RootCtx, addr, router)
	c.AddService(c.WebService)
}

func (c *Core) PrepareThrottleBucketStore(cleanupCycle time.Duration, cleanupOlderThan time.Duration) {
	c.ThrottleBucketStore = throttle.NewBucketStore[string](c.RootCtx, cleanupCycle, cleanupOlderThan)
	c.AddService(c.ThrottleBucketStore)
}

// PrepareKVDatabase builds the KV client from config/.kv-databases.json.
// Reports false when the file is absent
func (c *Core) PrepareKVDatabase() (bool, error) {
	found, err := c.readConfFile(".kv-databases.json", &c.KVDBConf)
	if err != nil || !found {
		return false, err
	}
	if err = c.prepareKVDBClient(); err != nil {
		return true, err
	}
	return true, nil
}

func (c *Core) prepareKVDBClient() error {
	switch c.KVDBConf.Type {
	case "redis":
		c.BackendKVDBClient = &redis.Client{Conf: &c.KVDBConf}
		if err := c.BackendKVDBClient.Init(); err != nil {
			return err
		}
	// case "memcached"
	default:
		return fmt.Errorf("unsupported key-value database type: %q", c.KVDBConf.Type)
	}
	// redis connects lazily. fail at boot rather than at the first reminder
	return db.PingClient[kvdb.Handle](c.RootCtx, "kv database", c.BackendKVDBClient, dbPingTimeout)
}

// PrepareSQLDatabases builds and initializes every client in config/.sql-databases.json
func (c *Core) PrepareSQLDatabases() error {
	c.SQLDBConfs = make(map[string]*sqldb.Conf)
	found, err := c.readConfFile(".sql-databases.json", &c.SQLDBConfs)
	if err != nil || !found {
		return err
	}

	// Registering Supported Implementations
	pgsql.Register()
	mysql.Register()

	c.BackendSQLDBClients = make(map[string]sqldb.Client)
	for dbName, sqlDBConf := range c.SQLDBConfs {
		dbClient, err := sqldb.New(sqlDBConf)
		if err != nil {
			return fmt.Errorf("sql database %q: %w", dbName, err)
		}
		if err = dbClient.Init(); err != nil {
			return fmt.Errorf("sql database %q: %w", dbName, err)
		}
		c.BackendSQLDBClients[dbName] = dbClient
	}
	return nil
}

// SQLClient finds a prepared SQL DB client by its config name
func (c *Core) SQLClient(name string) (sqldb.Client, error) {
	client, ok := c.BackendSQLDBClients[name]
	if !ok {
		return nil, fmt.Errorf("sql database %q is not configured", name)
	}
	return client, nil
}

// PingDatabases pings every prepared database client and joins the failures
func (c *Core) PingDatabases(ctx context.Context, w io.Writer) error {
	var errs []error
	report := func(name string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			_, _ = fmt.Fprintf(w, "FAIL %s: %v\n", name, err)
			return
		}
		_, _ = fmt.Fprintf(w, "ok   %s\n", name)
	}
	if c.BackendKVDBClient != nil {
		report("kv database", db.PingClient[kvdb.Handle](ctx, "kv database", c.BackendKVDBClient, dbPingTimeout))
	}
	for _, name := range slices.Sorted(maps.Keys(c.BackendSQLDBClients)) {
		client := c.BackendSQLDBClients[name]
		label := client.DBType() + ":" + name
		report(label, db.PingClient[sqldb.DBHandle](ctx, label, client, dbPingTimeout))
	}
	return errors.Join(errs...)
}

func (c *Core) ResourceCleanUp() {
	log.Println("[INFO] App Resource Cleaning Up...")
	if c.BackendKVDBClient != nil {
		_ = db.CloseClient[kvdb.Handle]("kv database", c.BackendKVDBClient)
	}
	for name, sqlDBClient := range c.BackendSQLDBClients {
		_ = db.CloseClient[sqldb.DBHandle](sqlDBClient.DBType()+":"+name, sqlDBClient)
	}
	log.Println("[INFO] App Resource Cleanup Complete")
}

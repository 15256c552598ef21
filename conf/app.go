package conf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/zeptools/fieldticket/apis/upload"
	"github.com/zeptools/fieldticket/archive"
	"github.com/zeptools/fieldticket/export"
	"github.com/zeptools/fieldticket/handlers"
	"github.com/zeptools/fieldticket/jobs"
	"github.com/zeptools/fieldticket/layout"
	"github.com/zeptools/fieldticket/pdfs/fpdfw"
	"github.com/zeptools/fieldticket/reminders"
	"github.com/zeptools/fieldticket/render"
	"github.com/zeptools/fieldticket/routing"
	"github.com/zeptools/fieldticket/templates"
	"github.com/zeptools/fieldticket/throttle"
	"github.com/zeptools/fieldticket/uds"
)

const (
	DefaultListen = ":8080"
	// RenderBucketGroup is the throttle group of the render and export routes
	RenderBucketGroup = "render"

	throttleCleanupCycle = time.Minute
	throttleIdleAfter    = 10 * time.Minute
	schemaTimeout        = 10 * time.Second
)

var ErrNoTemplateSource = errors.New("no template source configured. set template_http or templates_dir")

// Boot prepares every component and registers the services. Call after BaseInit
func (c *Core) Boot() error {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if err := c.PrepareSQLDatabases(); err != nil {
		return err
	}
	if _, err := c.PrepareKVDatabase(); err != nil {
		return err
	}
	if err := c.PrepareRenderer(); err != nil {
		return err
	}
	if err := c.PrepareUploadClient(); err != nil {
		return err
	}
	if err := c.PrepareArchive(c.RootCtx); err != nil {
		return err
	}
	c.PrepareJobScheduler()
	if err := c.PrepareReminders(); err != nil {
		return err
	}
	if c.Throttle != nil {
		c.PrepareThrottleBucketStore(throttleCleanupCycle, throttleIdleAfter)
		c.ThrottleBucketStore.SetBucketGroup(RenderBucketGroup, *c.Throttle)
	}
	c.PrepareWebService(c.Listen, c.Router())
	if c.SocketPath != "" {
		c.PrepareUDSService(c.resolve(c.SocketPath), c.OperatorCommands())
	}
	return nil
}

// PrepareRenderer loads the layouts and wires the template source into the
// renderer, the job runner and the batch exporter
func (c *Core) PrepareRenderer() error {
	registry, err := layout.NewRegistry(c.resolve(c.LayoutsDir))
	if err != nil {
		return err
	}
	source, err := c.newTemplateSource()
	if err != nil {
		return err
	}
	c.Layouts = registry
	c.TemplateSource = source
	c.Runner = &jobs.Runner{
		Layouts: registry,
		Renderer: &render.Renderer{
			Source:       source,
			NewWriter:    fpdfw.Factory,
			FetchTimeout: time.Duration(c.FetchTimeoutSec) * time.Second,
			FetchRetries: c.FetchRetries,
		},
	}
	c.Exporter = &export.Exporter{Runner: c.Runner, Parallel: c.ExportParallel}
	return nil
}

func (c *Core) newTemplateSource() (templates.Source, error) {
	if c.TemplateHTTP != nil && c.TemplateHTTP.BaseURL != "" {
		log.Printf("[INFO][CORE] templates from %s", c.TemplateHTTP.BaseURL)
		return &templates.HTTPSource{Client: c.BackendHttpClient, Conf: c.TemplateHTTP}, nil
	}
	if c.TemplatesDir != "" {
		return templates.NewDirSource(c.resolve(c.TemplatesDir))
	}
	return nil, ErrNoTemplateSource
}

// PrepareUploadClient reads config/.upload.json. Without it uploads stay disabled
func (c *Core) PrepareUploadClient() error {
	uploadConf := &upload.Conf{}
	found, err := c.readConfFile(".upload.json", uploadConf)
	if err != nil || !found {
		return err
	}
	if uploadConf.URL == "" {
		return errors.New(".upload.json: url is required")
	}
	secret := os.Getenv(EnvUploadSecret)
	if secret == "" {
		return fmt.Errorf("uploads configured but %s is not set", EnvUploadSecret)
	}
	uploadConf.Secret = []byte(secret)
	c.UploadClient = upload.NewClient(uploadConf)
	c.UploadClient.Client = c.BackendHttpClient
	log.Printf("[INFO][CORE] uploads to %s", uploadConf.URL)
	return nil
}

// PrepareArchive builds the render archive on the ArchiveDB client and makes sure its table exists
func (c *Core) PrepareArchive(ctx context.Context) error {
	if c.ArchiveDB == "" {
		return nil
	}
	client, err := c.SQLClient(c.ArchiveDB)
	if err != nil {
		return err
	}
	repo, err := archive.NewRepository(client.DBHandle(), client.DBType())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, schemaTimeout)
	defer cancel()
	if err = repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("archive schema: %w", err)
	}
	c.Archive = repo
	return nil
}

// PrepareReminders reads config/.reminders.json and registers the reminder cron job.
// Prerequisite: JobScheduler, BackendKVDBClient
func (c *Core) PrepareReminders() error {
	remindConf := &reminders.Conf{}
	found, err := c.readConfFile(".reminders.json", remindConf)
	if err != nil {
		return err
	}
	if !found || !remindConf.Enabled {
		return nil
	}
	if c.JobScheduler == nil {
		return errors.New("job scheduler not ready")
	}
	if c.BackendKVDBClient == nil {
		return errors.New("reminders need a key-value database. add .kv-databases.json")
	}
	client, err := c.SQLClient(c.RemindersDB)
	if err != nil {
		return fmt.Errorf("reminders: %w", err)
	}
	store, err := reminders.NewSQLStore(client.DBHandle(), client.DBType())
	if err != nil {
		return err
	}
	loc, err := remindConf.Location()
	if err != nil {
		return err
	}
	remindConf.APIKey = os.Getenv(EnvPushAPIKey)
	notifier := reminders.NewHTTPNotifier(remindConf.PushURL, remindConf.APIKey)
	notifier.Client = c.BackendHttpClient
	c.ReminderJob = &reminders.Job{
		App:      c.AppName,
		Windows:  remindConf.WindowsOrDefault(),
		Location: loc,
		Store:    store,
		KV:       c.BackendKVDBClient,
		Notifier: notifier,
	}
	c.JobScheduler.AddCronJob(c.ReminderJob.CronJob(remindConf.Interval()))
	return nil
}

// Router mounts the HTTP API. Render routes are throttled when a bucket store is prepared
func (c *Core) Router() *routing.BaseRouter {
	api := &handlers.API{
		Runner:       c.Runner,
		Exporter:     c.Exporter,
		MaxBodyBytes: c.MaxBodyBytes,
	}
	if c.UploadClient != nil {
		api.Uploader = c.UploadClient
	}
	if c.Archive != nil {
		api.Archive = c.Archive
	}
	if c.ThrottleBucketStore != nil {
		api.RenderWrappers = append(api.RenderWrappers, &throttle.IPWrapper{
			Store:   c.ThrottleBucketStore,
			GroupID: RenderBucketGroup,
		})
	}
	router := routing.NewRouter()
	api.Register(router)
	return router
}

// OperatorCommands is the command set of the operator socket
func (c *Core) OperatorCommands() map[string]uds.CmdHnd {
	var (
		remind uds.ReminderRunner
		recent uds.RecentLister
	)
	if c.ReminderJob != nil {
		remind = c.ReminderJob
	}
	if c.Archive != nil {
		recent = c.Archive
	}
	cmds := uds.OperatorCommands(c.Layouts, remind, recent)
	cmds["ping-dbs"] = uds.CmdHnd{
		Desc: "ping the configured databases",
		Fn: func(ctx context.Context, _ []string, w io.Writer) error {
			return c.PingDatabases(ctx, w)
		},
	}
	return cmds
}

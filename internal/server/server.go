package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/pders01/mastofeed/internal/debuglog"
	"github.com/pders01/mastofeed/internal/mastodon"
	"github.com/pders01/mastofeed/internal/metrics"
	"github.com/pders01/mastofeed/internal/page"
	"github.com/pders01/mastofeed/internal/render"
	"github.com/pders01/mastofeed/internal/settings"
)

// AccountLookup resolves handles to account ids.
type AccountLookup interface {
	LookupAccount(ctx context.Context, handle string) (*mastodon.AccountInfo, error)
}

// SettingsStore is the admin view of the stored settings.
type SettingsStore interface {
	Get() (settings.Settings, error)
	Update(patch []byte) (settings.Settings, error)
	Reset() (settings.Settings, error)
}

// CacheAdmin clears cached feeds.
type CacheAdmin interface {
	Clear() (int, error)
	Purge() (int, error)
}

type Config struct {
	Pipeline *page.Pipeline
	Renderer *render.Renderer
	Settings SettingsStore
	Cache    CacheAdmin
	Lookup   AccountLookup
	Metrics  *metrics.Metrics

	// Gatherer backs /metrics. Defaults to the global registry.
	Gatherer prometheus.Gatherer

	// AdminToken, when set, is required as a bearer token on /api/v1/settings
	// and /api/v1/cache.
	AdminToken string

	AllowOrigins string
}

type handlers struct {
	cfg *Config
}

// New returns the fiber app serving feeds, the account lookup endpoint and
// the admin API.
func New(cfg *Config) *fiber.App {
	h := &handlers{cfg: cfg}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	// Request latency
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		debuglog.WithFields(logrus.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"status":  c.Response().StatusCode(),
			"latency": time.Since(start),
		}).Info("Request")
		return err
	})

	app.Use(requestid.New())

	origins := cfg.AllowOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	app.Get("/feed", h.feed)
	app.Post("/render", h.render)
	app.Get("/assets/mastodon-feed.css", h.css)
	app.Get("/assets/mastodon-feed.js", h.script)

	api := app.Group("/api/v1")
	api.Post("/lookup-account", h.lookupAccount)

	admin := api.Group("", h.requireToken)
	admin.Get("/settings", h.getSettings)
	admin.Put("/settings", h.updateSettings)
	admin.Post("/settings/reset", h.resetSettings)
	admin.Delete("/cache", h.clearCache)

	return app
}

type errorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	Status    int    `json:"status"`
}

func sendError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(errorResponse{ErrorCode: code, Message: message, Status: status})
}

func errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}
	if status >= fiber.StatusInternalServerError {
		debuglog.Errorf("%s %s: %v", c.Method(), c.Path(), err)
	}
	return sendError(c, status, "request_failed", err.Error())
}

func (h *handlers) requireToken(c *fiber.Ctx) error {
	if h.cfg.AdminToken == "" {
		return c.Next()
	}
	token, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(h.cfg.AdminToken)) != 1 {
		return sendError(c, fiber.StatusUnauthorized, "unauthorized", "A valid admin token is required.")
	}
	return c.Next()
}

func (h *handlers) feed(c *fiber.Ctx) error {
	attrs := make(map[string]string)
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		attrs[strings.ToLower(string(key))] = string(value)
	})

	c.Type("html", "utf-8")
	return c.SendString(h.cfg.Pipeline.Display(c.UserContext(), attrs))
}

type renderRequest struct {
	Content string   `json:"content"`
	Widgets []string `json:"widgets"`
}

func (h *handlers) render(c *fiber.Ctx) error {
	var req renderRequest
	if err := c.BodyParser(&req); err != nil {
		return sendError(c, fiber.StatusBadRequest, "invalid_body", "Request body must be JSON with a content field.")
	}

	result, err := h.cfg.Pipeline.Process(c.UserContext(), req.Content, req.Widgets)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (h *handlers) css(c *fiber.Ctx) error {
	css, err := h.cfg.Renderer.CSS(h.cfg.Pipeline.Settings().Style)
	if err != nil {
		return err
	}
	c.Type("css", "utf-8")
	return c.SendString(css)
}

func (h *handlers) script(c *fiber.Ctx) error {
	c.Type("js", "utf-8")
	return c.SendString(render.Script())
}

type lookupRequest struct {
	Handle string `json:"handle" form:"handle"`
}

type lookupAccount struct {
	ID       string `json:"id"`
	Acct     string `json:"acct"`
	Username string `json:"username"`
	URL      string `json:"url"`
}

type lookupResponse struct {
	Success     bool          `json:"success"`
	Instance    string        `json:"instance"`
	AccountID   string        `json:"account_id"`
	DisplayName string        `json:"display_name"`
	Acct        string        `json:"acct"`
	Account     lookupAccount `json:"account"`
}

func (h *handlers) lookupAccount(c *fiber.Ctx) error {
	var req lookupRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return sendError(c, fiber.StatusBadRequest, "invalid_body", "Request body must contain a handle.")
		}
	}
	if req.Handle == "" {
		req.Handle = c.Query("handle")
	}

	handle := strings.TrimSpace(req.Handle)
	if handle == "" {
		h.cfg.Metrics.Lookup("missing_handle")
		return sendError(c, fiber.StatusBadRequest, "missing_handle", "Missing parameter: handle")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), h.cfg.Pipeline.Settings().Timeout())
	defer cancel()

	info, err := h.cfg.Lookup.LookupAccount(ctx, handle)
	if err != nil {
		var le *mastodon.LookupError
		if !errors.As(err, &le) {
			return err
		}
		h.cfg.Metrics.Lookup(string(le.Code))
		debuglog.WithFields(logrus.Fields{"handle": handle, "code": le.Code}).Warn("account lookup failed")
		return sendError(c, le.Status, string(le.Code), le.Message)
	}

	h.cfg.Metrics.Lookup("success")
	return c.JSON(lookupResponse{
		Success:     true,
		Instance:    info.Instance,
		AccountID:   info.AccountID,
		DisplayName: info.DisplayName,
		Acct:        info.Acct,
		Account: lookupAccount{
			ID:       info.AccountID,
			Acct:     info.Acct,
			Username: info.Username,
			URL:      info.URL,
		},
	})
}

func (h *handlers) getSettings(c *fiber.Ctx) error {
	s, err := h.cfg.Settings.Get()
	if err != nil {
		return err
	}
	return c.JSON(s)
}

func (h *handlers) updateSettings(c *fiber.Ctx) error {
	s, err := h.cfg.Settings.Update(c.Body())
	if err != nil {
		if errors.Is(err, settings.ErrInvalidPatch) {
			return sendError(c, fiber.StatusBadRequest, "invalid_settings", err.Error())
		}
		return err
	}
	return c.JSON(s)
}

func (h *handlers) resetSettings(c *fiber.Ctx) error {
	s, err := h.cfg.Settings.Reset()
	if err != nil {
		return err
	}
	return c.JSON(s)
}

type cacheResponse struct {
	Removed int `json:"removed"`
}

// clearCache drops every cached feed, or only expired entries with
// ?expired=1.
func (h *handlers) clearCache(c *fiber.Ctx) error {
	drop := h.cfg.Cache.Clear
	if c.QueryBool("expired") {
		drop = h.cfg.Cache.Purge
	}
	n, err := drop()
	if err != nil {
		return err
	}
	return c.JSON(cacheResponse{Removed: n})
}

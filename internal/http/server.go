package http

import (
	"context"
	stdhttp "net/http"

	"deal-service/internal/auth"
	"deal-service/internal/calendarsync"
	"deal-service/internal/config"
	"deal-service/internal/editor"
	"deal-service/internal/http/handler"
	"deal-service/internal/http/middleware"
	"deal-service/internal/repository/postgres"
	"deal-service/internal/version"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

const (
	jsonKeyStatus    = "status"
	statusOK         = "ok"
	requestBodyLimit = "1M"
)

type ServerDependencies struct {
	Config         *config.Config
	ResourceRepo   *postgres.ResourceRepository
	VersionRepo    *postgres.VersionRepository
	CalendarRepo   *postgres.CalendarRepository
	MeetingRepo    *postgres.MeetingRepository
	Storage        handler.ContentURLMinter
	ConfigBuilder  *editor.ConfigBuilder
	TokenService   *editor.TokenService
	Committer      *version.Committer
	CalendarSync   *calendarsync.Service
	AuthMiddleware *auth.Middleware
	Logger         zerolog.Logger
}

type Server struct {
	echo *echo.Echo
	deps *ServerDependencies
}

func NewServer(deps *ServerDependencies) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.HTTPErrorHandler = CustomHTTPErrorHandler

	e.Server.ReadTimeout = deps.Config.Server.ReadTimeout
	e.Server.WriteTimeout = deps.Config.Server.WriteTimeout

	// Request ID first, so all logs have one.
	e.Use(middleware.RequestID())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.BodyLimit(requestBodyLimit))

	globalRateLimiter := middleware.NewGlobalRateLimiter()
	e.Use(globalRateLimiter.Middleware())

	strictRateLimiter := middleware.NewStrictRateLimiter()

	editorHandler := handler.NewEditorHandler(
		deps.ResourceRepo,
		deps.VersionRepo,
		deps.Storage,
		deps.ConfigBuilder,
		deps.TokenService,
		deps.Committer,
		&deps.Config.DocServer,
		deps.Logger,
	)
	calendarHandler := handler.NewCalendarHandler(deps.CalendarSync, deps.CalendarRepo, deps.Logger)
	meetingHandler := handler.NewMeetingHandler(deps.MeetingRepo, deps.CalendarSync, deps.Logger)

	e.GET("/health", healthCheck)

	api := e.Group("/api")

	// Endpoints called by external services authenticate by other means:
	// the save callback verifies its round-tripped token, the webhook is
	// matched against registered watch channels.
	api.POST("/documents/callback", editorHandler.DocumentCallback)
	api.POST("/calendar/webhook", calendarHandler.Webhook)

	jwtAPI := api.Group("")
	jwtAPI.Use(deps.AuthMiddleware.RequireJWT())

	jwtAPI.GET("/documents/editor-config", editorHandler.GetEditorConfig)
	jwtAPI.POST("/calendar/watch", calendarHandler.RegisterWatch, strictRateLimiter.Middleware())
	jwtAPI.DELETE("/calendar/connection", calendarHandler.Disconnect, strictRateLimiter.Middleware())
	jwtAPI.POST("/calendar/update-response", meetingHandler.UpdateResponse)
	jwtAPI.PATCH("/meetings/:id/reschedule", meetingHandler.Reschedule)

	return &Server{
		echo: e,
		deps: deps,
	}
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func healthCheck(c echo.Context) error {
	return c.JSON(stdhttp.StatusOK, map[string]string{
		jsonKeyStatus: statusOK,
	})
}

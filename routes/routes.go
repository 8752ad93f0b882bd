package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"apiworkbench/middleware"
	"apiworkbench/services"
	"apiworkbench/store"
)

// ServiceContainer holds all services and dependencies
type ServiceContainer struct {
	Store              store.Store
	FolderService      *services.FolderService
	RequestService     *services.RequestService
	EnvironmentService *services.EnvironmentService
	HistoryService     *services.HistoryService
	Executor           *services.Executor
}

// ContainerOptions tunes the services built by NewServiceContainer.
type ContainerOptions struct {
	ExecutionTimeout time.Duration
	HTTPClient       services.HTTPDoer
	Logger           *slog.Logger
}

// NewServiceContainer wires every service onto st.
func NewServiceContainer(st store.Store, opts ContainerOptions) *ServiceContainer {
	var serviceOpts []services.Option
	if opts.Logger != nil {
		serviceOpts = append(serviceOpts, services.WithLogger(opts.Logger))
	}

	historyService := services.NewHistoryService(st, serviceOpts...)
	executor := services.NewExecutor(st, historyService,
		services.WithTimeout(opts.ExecutionTimeout),
		services.WithHTTPClient(opts.HTTPClient),
		services.WithExecutorLogger(opts.Logger),
	)

	return &ServiceContainer{
		Store:              st,
		FolderService:      services.NewFolderService(st, serviceOpts...),
		RequestService:     services.NewRequestService(st, serviceOpts...),
		EnvironmentService: services.NewEnvironmentService(st, serviceOpts...),
		HistoryService:     historyService,
		Executor:           executor,
	}
}

// SetupRoutesWithContainer configures all API routes using a service container
func SetupRoutesWithContainer(api *gin.RouterGroup, container *ServiceContainer) {
	RegisterFolderRoutes(api, container.FolderService, container.RequestService)
	RegisterRequestRoutes(api, container.RequestService)
	RegisterEnvironmentRoutes(api, container.EnvironmentService)
	RegisterExecuteRoutes(api, container.Executor)
	RegisterHistoryRoutes(api, container.HistoryService)
}

// NewRouter builds the engine with middleware, /health and everything under /api.
func NewRouter(container *ServiceContainer, allowedOrigins []string, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(logger))
	router.Use(middleware.CORS(allowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().UTC(),
		})
	})

	api := router.Group("/api")
	SetupRoutesWithContainer(api, container)

	return router
}

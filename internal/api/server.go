// Package api exposes the tracker over HTTP and streams observer updates
// over WebSockets.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chrisdamba/foodatrack/internal/models"
	"github.com/chrisdamba/foodatrack/internal/observers"
	"github.com/chrisdamba/foodatrack/internal/tracking"
)

// OrderService is the part of the tracker the handlers call.
type OrderService interface {
	PlaceOrder(ctx context.Context, in tracking.NewOrder) (*models.Order, error)
	Get(ctx context.Context, orderID string) (*models.Order, error)
	Transition(ctx context.Context, req tracking.TransitionRequest) (*models.Order, error)
	Assign(ctx context.Context, orderID string, driver models.Driver) (*models.Order, error)
	RecordLocation(ctx context.Context, req tracking.LocationRequest) (*models.Order, error)
	RecordInteraction(ctx context.Context, orderID string, kind models.InteractionType, notes string) (*models.Order, error)
	ResolveInteraction(ctx context.Context, orderID string, index int, notes string) (*models.Order, error)
}

type Server struct {
	orders OrderService
	reader observers.Reader
	hub    *observers.Hub
	secret string
	logger *slog.Logger
}

func NewServer(orders OrderService, reader observers.Reader, hub *observers.Hub, jwtSecret string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		orders: orders,
		reader: reader,
		hub:    hub,
		secret: jwtSecret,
		logger: logger.With("component", "api"),
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	authed := r.Group("/", AuthMiddleware(s.secret))
	authed.GET("/eta", s.estimate)

	orders := authed.Group("/orders")
	orders.POST("", RequireActors(models.ActorCustomer, models.ActorSystem), s.placeOrder)
	orders.GET("/:id", s.getOrder)
	orders.GET("/:id/times", s.actualTimes)
	orders.POST("/:id/status", RequireActors(models.ActorRestaurant, models.ActorDriver, models.ActorSystem), s.updateStatus)
	orders.POST("/:id/driver", RequireActors(models.ActorRestaurant, models.ActorSystem), s.assignDriver)
	orders.POST("/:id/location", RequireActors(models.ActorDriver, models.ActorSystem), s.recordLocation)
	orders.POST("/:id/interactions", RequireActors(models.ActorCustomer, models.ActorSystem), s.logInteraction)
	orders.POST("/:id/interactions/:index/resolve", RequireActors(models.ActorSystem), s.resolveInteraction)

	authed.GET("/restaurants/:id/orders", RequireActors(models.ActorRestaurant, models.ActorSystem), s.restaurantOrders)

	authed.GET("/ws/orders/:id", s.streamOrder)
	authed.GET("/ws/restaurants/:id", RequireActors(models.ActorRestaurant, models.ActorSystem), s.streamRestaurant)
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method, "path", c.FullPath(),
			"status", c.Writer.Status(), "duration", time.Since(start))
	}
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

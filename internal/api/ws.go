package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/chrisdamba/foodatrack/internal/models"
	"github.com/chrisdamba/foodatrack/internal/observers"
	"github.com/chrisdamba/foodatrack/internal/repositories"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// restaurantFeed is one frame of the restaurant dashboard stream.
type restaurantFeed struct {
	Orders    []*models.Order `json:"orders"`
	NewOrders []*models.Order `json:"new_orders"`
}

// activeStatuses are the statuses a kitchen dashboard shows.
var activeStatuses = []models.OrderStatus{
	models.OrderStatusPending,
	models.OrderStatusConfirmed,
	models.OrderStatusPreparing,
	models.OrderStatusReady,
	models.OrderStatusAssigned,
}

// streamOrder pushes the order, then every committed change to it.
func (s *Server) streamOrder(c *gin.Context) {
	order, ok := s.visibleOrder(c)
	if !ok {
		return
	}
	s.stream(c, func(ctx context.Context, send func(any) error) func() {
		return s.hub.SubscribeOrder(ctx, order.ID, func(o *models.Order) {
			_ = send(o)
		})
	})
}

// streamRestaurant pushes the restaurant's active orders whenever they
// change, flagging orders that arrived since the previous frame.
func (s *Server) streamRestaurant(c *gin.Context) {
	restaurantID := c.Param("id")
	p := principal(c)
	if p.Actor == models.ActorRestaurant && p.Subject != restaurantID {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"ok": false, "error": "forbidden"})
		return
	}
	q := repositories.Query{RestaurantID: restaurantID, Statuses: activeStatuses}
	detector := observers.NewNewOrderDetector()
	s.stream(c, func(ctx context.Context, send func(any) error) func() {
		return s.hub.SubscribeQuery(ctx, q, func(orders []*models.Order) {
			_ = send(restaurantFeed{Orders: orders, NewOrders: detector.Detect(orders)})
		})
	})
}

// stream upgrades the connection and keeps the subscription made by
// subscribe alive until the client goes away. Frames are written only from
// the subscription callback, which the hub runs one at a time.
func (s *Server) stream(c *gin.Context, subscribe func(ctx context.Context, send func(any) error) func()) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("ws upgrade error", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	send := func(v any) error {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(v); err != nil {
			s.logger.Debug("ws write error", "error", err)
			cancel()
			conn.Close()
			return err
		}
		return nil
	}
	unsubscribe := subscribe(ctx, send)
	defer unsubscribe()

	// the client sends nothing we need; reading surfaces the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

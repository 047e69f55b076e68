package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chrisdamba/foodatrack/internal/geo"
	"github.com/chrisdamba/foodatrack/internal/models"
	"github.com/chrisdamba/foodatrack/internal/repositories"
	"github.com/chrisdamba/foodatrack/internal/tracking"
)

type placeOrderReq struct {
	ID            string            `json:"id"`
	CustomerID    string            `json:"customer_id"`
	RestaurantID  string            `json:"restaurant_id" binding:"required"`
	Items         []models.LineItem `json:"items" binding:"required,min=1"`
	Address       models.Address    `json:"delivery_address"`
	Contact       models.Contact    `json:"contact"`
	PaymentMethod string            `json:"payment_method" binding:"required"`
}

type statusReq struct {
	Status      string            `json:"status" binding:"required"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata"`
}

type locationReq struct {
	Lat         *float64 `json:"lat" binding:"required"`
	Lng         *float64 `json:"lng" binding:"required"`
	Status      string   `json:"status"`
	Description string   `json:"description"`
}

type interactionReq struct {
	Type  string `json:"type" binding:"required"`
	Notes string `json:"notes"`
}

type resolveReq struct {
	Notes string `json:"notes"`
}

func (s *Server) placeOrder(c *gin.Context) {
	var req placeOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	p := principal(c)
	if p.Actor == models.ActorCustomer {
		// customers can only order for themselves
		req.CustomerID = p.Subject
	}
	order, err := s.orders.PlaceOrder(c.Request.Context(), tracking.NewOrder{
		ID:            req.ID,
		CustomerID:    req.CustomerID,
		RestaurantID:  req.RestaurantID,
		Items:         req.Items,
		Address:       req.Address,
		Contact:       req.Contact,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "order": order})
}

func (s *Server) getOrder(c *gin.Context) {
	order, ok := s.visibleOrder(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "order": order})
}

func (s *Server) actualTimes(c *gin.Context) {
	order, ok := s.visibleOrder(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "times": tracking.CalculateActualTimes(order.Tracking)})
}

// visibleOrder loads the order in the id path parameter and checks the
// caller is a party to it.
func (s *Server) visibleOrder(c *gin.Context) (*models.Order, bool) {
	order, err := s.orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	if !canSee(principal(c), order) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"ok": false, "error": "forbidden"})
		return nil, false
	}
	return order, true
}

func canSee(p *Principal, o *models.Order) bool {
	switch p.Actor {
	case models.ActorSystem:
		return true
	case models.ActorCustomer:
		return o.CustomerID == p.Subject
	case models.ActorRestaurant:
		return o.RestaurantID == p.Subject
	case models.ActorDriver:
		return o.Tracking != nil && o.Tracking.Driver != nil && o.Tracking.Driver.ID == p.Subject
	}
	return false
}

func (s *Server) updateStatus(c *gin.Context) {
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	status, ok := models.ParseOrderStatus(req.Status)
	if !ok {
		s.fail(c, tracking.ErrInvalidStatus)
		return
	}
	if _, ok := s.visibleOrder(c); !ok {
		return
	}
	order, err := s.orders.Transition(c.Request.Context(), tracking.TransitionRequest{
		OrderID:     c.Param("id"),
		Status:      status,
		UpdatedBy:   principal(c).Actor,
		Description: req.Description,
		Metadata:    req.Metadata,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "order": order})
}

func (s *Server) assignDriver(c *gin.Context) {
	var driver models.Driver
	if err := c.ShouldBindJSON(&driver); err != nil {
		badRequest(c, err.Error())
		return
	}
	if _, ok := s.visibleOrder(c); !ok {
		return
	}
	order, err := s.orders.Assign(c.Request.Context(), c.Param("id"), driver)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "order": order})
}

func (s *Server) recordLocation(c *gin.Context) {
	var req locationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	var status models.OrderStatus
	if req.Status != "" {
		parsed, ok := models.ParseOrderStatus(req.Status)
		if !ok {
			s.fail(c, tracking.ErrInvalidStatus)
			return
		}
		status = parsed
	}
	if _, ok := s.visibleOrder(c); !ok {
		return
	}
	order, err := s.orders.RecordLocation(c.Request.Context(), tracking.LocationRequest{
		OrderID:     c.Param("id"),
		Lat:         *req.Lat,
		Lng:         *req.Lng,
		Status:      status,
		Description: req.Description,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "order": order})
}

func (s *Server) logInteraction(c *gin.Context) {
	var req interactionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if _, ok := s.visibleOrder(c); !ok {
		return
	}
	order, err := s.orders.RecordInteraction(c.Request.Context(), c.Param("id"), models.InteractionType(req.Type), req.Notes)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "order": order})
}

func (s *Server) resolveInteraction(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, "index must be a number")
		return
	}
	var req resolveReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	order, err := s.orders.ResolveInteraction(c.Request.Context(), c.Param("id"), index, req.Notes)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "order": order})
}

func (s *Server) restaurantOrders(c *gin.Context) {
	restaurantID := c.Param("id")
	p := principal(c)
	if p.Actor == models.ActorRestaurant && p.Subject != restaurantID {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"ok": false, "error": "forbidden"})
		return
	}
	q, err := restaurantQuery(c, restaurantID)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	orders, err := s.reader.List(c.Request.Context(), q)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "orders": orders})
}

// restaurantQuery reads status (comma separated), order_by, asc and limit.
func restaurantQuery(c *gin.Context, restaurantID string) (repositories.Query, error) {
	q := repositories.Query{RestaurantID: restaurantID, OrderBy: c.Query("order_by")}
	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status, ok := models.ParseOrderStatus(part)
			if !ok {
				return q, tracking.ErrInvalidStatus
			}
			q.Statuses = append(q.Statuses, status)
		}
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return q, errors.New("limit must be a non-negative number")
		}
		q.Limit = limit
	}
	q.Ascending = c.Query("asc") == "true"
	return q, nil
}

// finiteQuery parses the query parameter name as a finite number, falling
// back to def when it is absent and def is not empty.
func finiteQuery(c *gin.Context, name, def string) (float64, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		if def == "" {
			return 0, fmt.Errorf("%s is required", name)
		}
		raw = def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s must be a finite number", name)
	}
	return v, nil
}

func (s *Server) estimate(c *gin.Context) {
	var vals [6]float64
	params := []struct{ name, def string }{
		{"from_lat", ""}, {"from_lng", ""}, {"to_lat", ""}, {"to_lng", ""},
		{"prep", "0"}, {"traffic", "1"},
	}
	for i, p := range params {
		v, err := finiteQuery(c, p.name, p.def)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		vals[i] = v
	}
	if vals[4] < 0 {
		badRequest(c, "prep must not be negative")
		return
	}

	from := models.Location{Lat: vals[0], Lon: vals[1]}
	to := models.Location{Lat: vals[2], Lon: vals[3]}
	distance := geo.Distance(from, to)
	c.JSON(http.StatusOK, gin.H{
		"ok":             true,
		"distance_km":    distance,
		"travel_minutes": geo.ETAMinutes(distance),
		"minutes":        tracking.EstimateBetween(from, to, vals[4], vals[5]),
	})
}

package httpserver

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"souq-orders/internal/domain"
	ordersvc "souq-orders/internal/service/order"
)

type handlers struct {
	orders        orderService
	notifications notificationService
	logger        *log.Logger
	devMode       bool
}

func (h *handlers) calculatePricing(c *gin.Context) {
	var in ordersvc.PreviewInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.writeError(c, badBody(err), http.StatusNotFound)
		return
	}
	preview, err := h.orders.CalculatePricing(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err, http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, toPreviewResponse(preview))
}

func (h *handlers) addOrder(c *gin.Context) {
	var in ordersvc.AddOrderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.writeError(c, badBody(err), http.StatusBadRequest)
		return
	}
	receipt, err := h.orders.AddOrder(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err, http.StatusBadRequest)
		return
	}
	c.JSON(http.StatusCreated, toAddOrderResponse(receipt))
}

func (h *handlers) getOrder(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	o, err := h.orders.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": toOrderResponse(*o)})
}

func (h *handlers) listOrders(c *gin.Context) {
	page, err := h.orders.List(c.Request.Context(), ordersvc.ListQuery{
		Page:   queryInt(c, "page"),
		Limit:  queryInt(c, "limit"),
		Status: c.Query("status"),
		Search: c.Query("search"),
	})
	if err != nil {
		h.writeError(c, err, http.StatusNotFound)
		return
	}
	orders := make([]orderResponse, 0, len(page.Orders))
	for _, o := range page.Orders {
		orders = append(orders, toOrderResponse(o))
	}
	c.JSON(http.StatusOK, listOrdersResponse{Success: true, Orders: orders, Pagination: page.Pagination})
}

func (h *handlers) modifyOrder(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var in ordersvc.ModifyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.writeError(c, badBody(err), http.StatusBadRequest)
		return
	}
	o, err := h.orders.Modify(c.Request.Context(), id, in)
	if err != nil {
		h.writeError(c, err, http.StatusBadRequest)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": toOrderResponse(*o)})
}

func (h *handlers) updateStatus(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, badBody(err), http.StatusBadRequest)
		return
	}
	o, err := h.orders.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.writeError(c, err, http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": toOrderResponse(*o)})
}

func (h *handlers) deleteOrder(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.orders.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err, http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "order deleted"})
}

func (h *handlers) listNotifications(c *gin.Context) {
	unread, _ := strconv.ParseBool(c.DefaultQuery("unread", "false"))
	rows, err := h.notifications.List(c.Request.Context(), unread, queryInt(c, "limit"))
	if err != nil {
		h.writeError(c, err, http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "notifications": rows})
}

func (h *handlers) markNotificationRead(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), id); err != nil {
		h.writeError(c, err, http.StatusNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// pathID parses the :id segment, writing a 400 when it is not a positive int.
func (h *handlers) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(c, domain.NewValidationError("id", "must be a positive integer"), http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string) int {
	n, _ := strconv.Atoi(c.Query(key))
	return n
}

func badBody(err error) error {
	return &domain.ValidationError{
		Message: "invalid request body",
		Details: map[string]string{"body": err.Error()},
	}
}

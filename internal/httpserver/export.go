package httpserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tealeg/xlsx"
	"souq-orders/internal/domain"
)

var exportHeaders = []string{
	"ID", "Status", "Full name", "Email", "Phone", "Wilaya", "Address", "Notes",
	"Delivery fee", "Total price", "Created at",
}

func (h *handlers) exportOrders(c *gin.Context) {
	orders, err := h.orders.Export(c.Request.Context(), c.Query("status"))
	if err != nil {
		h.writeError(c, err, http.StatusNotFound)
		return
	}
	file, err := ordersWorkbook(orders)
	if err != nil {
		h.writeError(c, err, http.StatusNotFound)
		return
	}

	name := fmt.Sprintf("orders-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", "attachment; filename="+name)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Transfer-Encoding", "binary")
	c.Header("Expires", "0")
	c.Status(http.StatusOK)
	if err := file.Write(c.Writer); err != nil {
		h.logger.Printf("http: export write request_id=%s error=%v", c.GetString(requestIDKey), err)
	}
}

// ordersWorkbook renders one row per order header.
func ordersWorkbook(orders []domain.Order) (*xlsx.File, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Orders")
	if err != nil {
		return nil, fmt.Errorf("add sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, h := range exportHeaders {
		header.AddCell().SetValue(h)
	}

	for _, o := range orders {
		row := sheet.AddRow()
		row.AddCell().SetValue(o.ID)
		row.AddCell().SetValue(o.Status.Label())
		row.AddCell().SetValue(o.FullName)
		row.AddCell().SetValue(o.Email)
		row.AddCell().SetValue(o.Phone)
		row.AddCell().SetValue(o.Wilaya)
		row.AddCell().SetValue(o.Address)
		row.AddCell().SetValue(o.Notes)
		row.AddCell().SetFloat(money(o.DeliveryFee))
		row.AddCell().SetFloat(money(o.TotalPrice))
		row.AddCell().SetValue(o.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return file, nil
}

package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/go-pdf/fpdf"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type ReceiptController struct {
	Orders         *services.OrderService
	RestaurantName string
}

func NewReceiptController(orders *services.OrderService, restaurantName string) *ReceiptController {
	return &ReceiptController{Orders: orders, RestaurantName: restaurantName}
}

type receiptLine struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
	Notes     string `json:"notes,omitempty"`
	Promo     bool   `json:"promo,omitempty"`
}

type receiptData struct {
	Restaurant     string        `json:"restaurant"`
	OrderNumber    string        `json:"order_number"`
	OrderType      string        `json:"order_type"`
	Status         string        `json:"status"`
	PlacedAt       string        `json:"placed_at"`
	TableNumber    string        `json:"table_number,omitempty"`
	Customer       string        `json:"customer,omitempty"`
	Cashier        string        `json:"cashier,omitempty"`
	Items          []receiptLine `json:"items"`
	SubTotal       string        `json:"sub_total"`
	Tax            string        `json:"tax,omitempty"`
	DeliveryFee    string        `json:"delivery_fee,omitempty"`
	DiscountLabel  string        `json:"discount_label,omitempty"`
	DiscountAmount string        `json:"discount_amount,omitempty"`
	Total          string        `json:"total"`
	PaymentMethod  string        `json:"payment_method,omitempty"`
	PaymentStatus  string        `json:"payment_status"`
	CashReceived   string        `json:"cash_received,omitempty"`
	Change         string        `json:"change,omitempty"`
	PaidAt         string        `json:"paid_at,omitempty"`
}

func buildReceipt(order *models.Order, restaurant string) receiptData {
	data := receiptData{
		Restaurant:  restaurant,
		OrderNumber: order.OrderNumber,
		OrderType:   string(order.Type),
		Status:      string(order.Status),
		PlacedAt:    order.CreatedAt.Format("02/01/2006 15:04"),
		SubTotal:    utils.FormatCurrencyIDR(order.SubTotal),
		Total:       utils.FormatCurrencyIDR(order.TotalAmount),
	}
	if order.Table != nil {
		data.TableNumber = order.Table.TableNumber
	} else if order.TableGroup != nil {
		data.TableNumber = order.TableGroup.Name
	}
	if order.Customer != nil {
		data.Customer = order.Customer.Name
	}
	if order.Employee != nil {
		data.Cashier = order.Employee.Name
	}
	if order.TaxAmount.IsPositive() {
		data.Tax = utils.FormatCurrencyIDR(order.TaxAmount)
	}
	if order.DeliveryFee.IsPositive() {
		data.DeliveryFee = utils.FormatCurrencyIDR(order.DeliveryFee)
	}
	if order.Discount != nil {
		data.DiscountLabel = fmt.Sprintf("%s (%s)", order.Discount.Name, order.Discount.Code)
		if order.DiscountAmount.Valid && order.DiscountAmount.Decimal.IsPositive() {
			data.DiscountAmount = utils.FormatCurrencyIDR(order.DiscountAmount.Decimal)
		}
	}
	data.PaymentStatus = "unpaid"
	if p := order.Payment; p != nil {
		data.PaymentMethod = string(p.Method)
		data.PaymentStatus = string(p.Status)
		data.PaidAt = p.PaidAt.Format("02/01/2006 15:04")
		if p.CashReceived.Valid {
			data.CashReceived = utils.FormatCurrencyIDR(p.CashReceived.Decimal)
			data.Change = utils.FormatCurrencyIDR(p.Change)
		}
	}

	for _, item := range order.OrderItems {
		name := fmt.Sprintf("product #%d", item.ProductID)
		if item.Product != nil {
			name = item.Product.Name
		}
		data.Items = append(data.Items, receiptLine{
			Name:      name,
			Quantity:  item.Quantity,
			UnitPrice: utils.FormatCurrencyIDR(item.UnitPrice),
			Subtotal:  utils.FormatCurrencyIDR(item.TotalPrice),
			Notes:     item.Notes,
			Promo:     item.IsPromotional,
		})
	}
	return data
}

// GetOrderReceipt -> struk dalam bentuk JSON
func (rc *ReceiptController) GetOrderReceipt(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	order, err := rc.Orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Receipt generated", buildReceipt(order, rc.RestaurantName))
}

// GetOrderReceiptPDF -> struk siap cetak
func (rc *ReceiptController) GetOrderReceiptPDF(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	order, err := rc.Orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}

	data := buildReceipt(order, rc.RestaurantName)
	buf, err := renderReceiptPDF(data)
	if err != nil {
		utils.ErrorLogger.WithField("order_id", order.ID).Errorf("render receipt: %v", err)
		utils.RespondError(c, http.StatusInternalServerError, fmt.Errorf("failed to generate receipt"))
		return
	}

	filename := fmt.Sprintf("receipt_%s.pdf", sanitizeFilename(data.OrderNumber))
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=\"%s\"", filename))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func sanitizeFilename(value string) string {
	return unsafeFilename.ReplaceAllString(value, "_")
}

func renderReceiptPDF(data receiptData) (*bytes.Buffer, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 12, 12)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, tr(data.Restaurant), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Order %s", data.OrderNumber), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, fmt.Sprintf("%s - %s", data.OrderType, data.PlacedAt), "", 1, "C", false, 0, "")
	if data.TableNumber != "" {
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("Table %s", data.TableNumber)), "", 1, "C", false, 0, "")
	}
	if data.Customer != "" {
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("Customer: %s", data.Customer)), "", 1, "C", false, 0, "")
	}

	pdf.Ln(3)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "Items", "B", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	for _, item := range data.Items {
		label := fmt.Sprintf("%dx %s @ %s", item.Quantity, item.Name, item.UnitPrice)
		if item.Promo {
			label += " (promo)"
		}
		pdf.CellFormat(140, 5, tr(label), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 5, item.Subtotal, "", 1, "R", false, 0, "")
		if item.Notes != "" {
			pdf.MultiCell(0, 4, tr(item.Notes), "", "L", false)
		}
	}

	pdf.Ln(2)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "Totals", "B", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	totalRow := func(label, value string) {
		pdf.CellFormat(140, 5, tr(label), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 5, value, "", 1, "R", false, 0, "")
	}
	totalRow("Subtotal", data.SubTotal)
	if data.Tax != "" {
		totalRow("Tax", data.Tax)
	}
	if data.DeliveryFee != "" {
		totalRow("Delivery", data.DeliveryFee)
	}
	if data.DiscountAmount != "" {
		totalRow(data.DiscountLabel, "-"+data.DiscountAmount)
	} else if data.DiscountLabel != "" {
		totalRow(data.DiscountLabel, "")
	}
	pdf.SetFont("Arial", "B", 11)
	totalRow("Total", data.Total)

	pdf.Ln(2)
	pdf.SetFont("Arial", "", 9)
	if data.PaymentMethod != "" {
		totalRow(fmt.Sprintf("Payment (%s)", data.PaymentMethod), data.PaymentStatus)
		if data.CashReceived != "" {
			totalRow("Cash", data.CashReceived)
			totalRow("Change", data.Change)
		}
	} else {
		totalRow("Payment", data.PaymentStatus)
	}

	if data.Cashier != "" {
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("Cashier: %s", data.Cashier)), "", 1, "L", false, 0, "")
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

// DiscountContext is the in-progress order a discount is evaluated against.
// Items holds the charged lines only; bonus lines from an earlier grant are not
// part of it.
type DiscountContext struct {
	Now        time.Time
	Items      []models.OrderItem
	Products   map[uint]*models.Product
	SubTotal   decimal.Decimal
	CustomerID uint
	// OrderID is the order being edited, zero while creating. Its own total
	// does not count towards the customer's tier.
	OrderID         uint
	Employee        *models.Employee
	AlreadyAttached bool
	// Kept marks a discount the caller left in place on an existing order. It
	// skips lifecycle, tier and role checks, and a discount that no longer
	// matches the lines yields an empty outcome instead of a rejection.
	Kept bool
}

// FreeItemGrant is the bonus a BuyXGetY discount hands out.
type FreeItemGrant struct {
	ProductID         uint
	ProductName       string
	Quantity          int
	UnitPrice         decimal.Decimal
	OriginalUnitPrice decimal.Decimal
	DiscountPerItem   decimal.Decimal
	TotalDiscount     decimal.Decimal
}

type DiscountOutcome struct {
	Discount           *models.Discount
	ApplicableItems    []int
	ApplicableSubTotal decimal.Decimal
	// Amount is the monetary discount recorded on the order. It stays zero for
	// BuyXGetY, whose reduction is embedded in the bonus line price.
	Amount decimal.Decimal
	Grant  *FreeItemGrant
}

// Effective reports whether the discount changed the order at all, which is
// what consumes a usage slot.
func (o *DiscountOutcome) Effective() bool {
	if o == nil {
		return false
	}
	return o.Amount.IsPositive() || (o.Grant != nil && o.Grant.Quantity > 0)
}

type DiscountResolver struct {
	Tiers CustomerTierProvider
}

func NewDiscountResolver(tiers CustomerTierProvider) *DiscountResolver {
	if tiers == nil {
		tiers = SpendTierProvider{}
	}
	return &DiscountResolver{Tiers: tiers}
}

// ValidateDiscount runs the lifecycle checks in order; the first failure wins.
// The usage cap is not checked when the discount is already attached to the
// order being edited.
func ValidateDiscount(d *models.Discount, now time.Time, alreadyAttached bool) error {
	details := map[string]any{"discount_id": d.ID, "code": d.Code}
	switch {
	case !d.IsActive:
		return discountRejected(ReasonInactive, fmt.Sprintf("discount %s is disabled", d.Code), details)
	case now.Before(d.StartDate):
		details["start_date"] = d.StartDate
		return discountRejected(ReasonNotStarted, fmt.Sprintf("discount %s has not started yet", d.Code), details)
	case now.After(d.EndDate):
		details["end_date"] = d.EndDate
		return discountRejected(ReasonExpired, fmt.Sprintf("discount %s has expired", d.Code), details)
	case !alreadyAttached && d.UsageLimit != nil && d.UsedCount >= *d.UsageLimit:
		details["usage_limit"] = *d.UsageLimit
		return discountRejected(ReasonUsageExhausted, fmt.Sprintf("discount %s has reached its usage limit", d.Code), details)
	}
	return nil
}

// DetermineApplicableLineItems returns the indexes of the lines the discount
// applies to and their summed total. Unscoped discounts apply to every line; a
// scoped discount that matches nothing is rejected.
func DetermineApplicableLineItems(d *models.Discount, items []models.OrderItem, products map[uint]*models.Product) ([]int, decimal.Decimal, error) {
	productScope := d.ProductIDs()
	categoryScope := d.CategoryIDs()

	applicable := make([]int, 0, len(items))
	subTotal := decimal.Zero
	for i, item := range items {
		match := len(productScope) == 0 && len(categoryScope) == 0
		if productScope[item.ProductID] {
			match = true
		}
		if p, ok := products[item.ProductID]; ok && categoryScope[p.CategoryID] {
			match = true
		}
		if match {
			applicable = append(applicable, i)
			subTotal = subTotal.Add(item.TotalPrice)
		}
	}

	if len(applicable) == 0 && (len(productScope) > 0 || len(categoryScope) > 0) {
		reason := ReasonProductScope
		if len(productScope) == 0 {
			reason = ReasonCategoryScope
		}
		return nil, decimal.Zero, discountRejected(reason,
			fmt.Sprintf("discount %s does not apply to any item in this order", d.Code),
			map[string]any{"discount_id": d.ID})
	}
	return applicable, subTotal, nil
}

// ComputeDiscountAmount prices Percentage and FixedAmount discounts against
// the applicable subtotal.
func ComputeDiscountAmount(d *models.Discount, applicableSubTotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch d.Type {
	case models.DiscountPercentage:
		pct := decimal.Max(decimal.Zero, decimal.Min(d.DiscountValue, hundred))
		amount = applicableSubTotal.Mul(pct).Div(hundred)
		if d.MaxDiscountAmount.Valid {
			amount = decimal.Min(amount, d.MaxDiscountAmount.Decimal)
		}
	case models.DiscountFixedAmount:
		amount = decimal.Min(d.DiscountValue, applicableSubTotal)
	default:
		return decimal.Zero
	}
	return decimal.Max(decimal.Zero, amount).Round(2)
}

// FreeItemUnitPrice is the price charged for each BuyXGetY bonus unit.
func FreeItemUnitPrice(d *models.Discount, originalPrice decimal.Decimal) decimal.Decimal {
	switch d.FreeProductDiscountType {
	case models.FreeItemPercentage:
		pct := decimal.Max(decimal.Zero, decimal.Min(d.FreeProductDiscountValue, hundred))
		return originalPrice.Sub(originalPrice.Mul(pct).Div(hundred)).Round(2)
	case models.FreeItemFixed:
		off := decimal.Max(decimal.Zero, decimal.Min(d.FreeProductDiscountValue, originalPrice))
		return originalPrice.Sub(off).Round(2)
	}
	return decimal.Zero
}

// FreeQuantity is floor(applicable / buy) * free, or zero below the threshold.
func FreeQuantity(d *models.Discount, applicableQuantity int) int {
	if d.BuyQuantity <= 0 || applicableQuantity < d.BuyQuantity {
		return 0
	}
	return (applicableQuantity / d.BuyQuantity) * d.FreeProductQuantity
}

func (r *DiscountResolver) checkTierScope(ctx context.Context, tx *gorm.DB, d *models.Discount, customerID, orderID uint) error {
	allowed := d.TierIDs()
	if len(allowed) == 0 {
		return nil
	}
	tier, err := r.Tiers.CurrentTier(ctx, tx, customerID, orderID)
	if err != nil {
		return err
	}
	if tier == nil || !allowed[tier.ID] {
		details := map[string]any{"discount_id": d.ID, "customer_id": customerID}
		if tier != nil {
			details["tier_id"] = tier.ID
		}
		return discountRejected(ReasonTierScope,
			fmt.Sprintf("discount %s is not available for this customer's tier", d.Code), details)
	}
	return nil
}

// Orders without an employee bypass role scoping.
func checkRoleScope(d *models.Discount, employee *models.Employee) error {
	allowed := d.Roles()
	if len(allowed) == 0 || employee == nil {
		return nil
	}
	if !allowed[employee.Role] {
		return discountRejected(ReasonRoleScope,
			fmt.Sprintf("discount %s cannot be applied by role %s", d.Code, employee.Role),
			map[string]any{"discount_id": d.ID, "role": employee.Role})
	}
	return nil
}

// Resolve validates d against the order and prices it. For BuyXGetY the free
// product is loaded into ledger; reserving its stock is left to the caller.
func (r *DiscountResolver) Resolve(ctx context.Context, tx *gorm.DB, d *models.Discount, dc DiscountContext, ledger *StockLedger) (*DiscountOutcome, error) {
	if !dc.Kept {
		if err := ValidateDiscount(d, dc.Now, dc.AlreadyAttached); err != nil {
			return nil, err
		}
	}

	if d.MinOrderAmount.Valid && dc.SubTotal.LessThan(d.MinOrderAmount.Decimal) {
		if dc.Kept {
			return &DiscountOutcome{Discount: d, Amount: decimal.Zero}, nil
		}
		return nil, discountRejected(ReasonBelowMinimum,
			fmt.Sprintf("discount %s requires a minimum order of %s", d.Code, utils.FormatCurrencyIDR(d.MinOrderAmount.Decimal)),
			map[string]any{"discount_id": d.ID, "min_order_amount": d.MinOrderAmount.Decimal, "sub_total": dc.SubTotal})
	}

	applicable, applicableSubTotal, err := DetermineApplicableLineItems(d, dc.Items, dc.Products)
	if err != nil {
		if dc.Kept && IsKind(err, KindDiscountRejected) {
			return &DiscountOutcome{Discount: d, Amount: decimal.Zero}, nil
		}
		return nil, err
	}
	if !dc.Kept {
		if err := r.checkTierScope(ctx, tx, d, dc.CustomerID, dc.OrderID); err != nil {
			return nil, err
		}
		if err := checkRoleScope(d, dc.Employee); err != nil {
			return nil, err
		}
	}

	outcome := &DiscountOutcome{
		Discount:           d,
		ApplicableItems:    applicable,
		ApplicableSubTotal: applicableSubTotal,
		Amount:             decimal.Zero,
	}

	if d.Type != models.DiscountBuyXGetY {
		outcome.Amount = ComputeDiscountAmount(d, applicableSubTotal)
		return outcome, nil
	}

	applicableQuantity := 0
	for _, idx := range applicable {
		applicableQuantity += dc.Items[idx].Quantity
	}
	freeQuantity := FreeQuantity(d, applicableQuantity)
	if freeQuantity == 0 {
		return outcome, nil
	}

	if d.FreeProductID == nil {
		return nil, discountRejected(ReasonFreeProductMissing,
			fmt.Sprintf("discount %s has no free product configured", d.Code),
			map[string]any{"discount_id": d.ID})
	}
	if err := ledger.Load(*d.FreeProductID); err != nil {
		return nil, err
	}
	freeProduct, ok := ledger.Product(*d.FreeProductID)
	if !ok {
		return nil, discountRejected(ReasonFreeProductMissing,
			fmt.Sprintf("free product %d of discount %s does not exist", *d.FreeProductID, d.Code),
			map[string]any{"discount_id": d.ID, "free_product_id": *d.FreeProductID})
	}

	unitPrice := FreeItemUnitPrice(d, freeProduct.Price)
	perItem := freeProduct.Price.Sub(unitPrice)
	outcome.Grant = &FreeItemGrant{
		ProductID:         freeProduct.ID,
		ProductName:       freeProduct.Name,
		Quantity:          freeQuantity,
		UnitPrice:         unitPrice,
		OriginalUnitPrice: freeProduct.Price,
		DiscountPerItem:   perItem,
		TotalDiscount:     perItem.Mul(decimal.NewFromInt(int64(freeQuantity))).Round(2),
	}
	return outcome, nil
}

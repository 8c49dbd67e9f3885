package services

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/yeremiapane/restaurant-pos/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AvailableQuantity answers how many units of p can be produced right now.
// Recipe lines with a non-positive requirement never limit production; when no
// line limits it the product's own StockQuantity is used.
func AvailableQuantity(p *models.Product) int {
	limit := -1
	for _, line := range p.Recipe {
		if !line.QuantityRequired.IsPositive() {
			continue
		}
		units := 0
		if line.Ingredient != nil && line.Ingredient.Quantity.IsPositive() {
			units = int(line.Ingredient.Quantity.Div(line.QuantityRequired).Floor().IntPart())
		}
		if limit < 0 || units < limit {
			limit = units
		}
	}
	if limit >= 0 {
		return limit
	}
	if p.StockQuantity < 0 {
		return 0
	}
	return p.StockQuantity
}

func usesRecipe(p *models.Product) bool {
	for _, line := range p.Recipe {
		if line.QuantityRequired.IsPositive() {
			return true
		}
	}
	return false
}

// DeductStock consumes quantity units of p from its ingredients (or from its
// direct stock when it has no recipe), clamping every balance at zero.
func DeductStock(p *models.Product, quantity int) {
	if !usesRecipe(p) {
		p.StockQuantity -= quantity
		if p.StockQuantity < 0 {
			p.StockQuantity = 0
		}
		return
	}
	qty := decimal.NewFromInt(int64(quantity))
	for _, line := range p.Recipe {
		if !line.QuantityRequired.IsPositive() || line.Ingredient == nil {
			continue
		}
		remaining := line.Ingredient.Quantity.Sub(line.QuantityRequired.Mul(qty))
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		line.Ingredient.Quantity = remaining
	}
}

// RestoreStock is the inverse of DeductStock for the same quantity.
func RestoreStock(p *models.Product, quantity int) {
	if !usesRecipe(p) {
		p.StockQuantity += quantity
		return
	}
	qty := decimal.NewFromInt(int64(quantity))
	for _, line := range p.Recipe {
		if !line.QuantityRequired.IsPositive() || line.Ingredient == nil {
			continue
		}
		line.Ingredient.Quantity = line.Ingredient.Quantity.Add(line.QuantityRequired.Mul(qty))
	}
}

// StockAlert describes a balance that crossed below its minimum during a mutation.
type StockAlert struct {
	IngredientID *uint
	ProductID    *uint
	Name         string
	Quantity     decimal.Decimal
	Minimum      decimal.Decimal
}

// StockLedger is a transaction-scoped working copy of product and ingredient
// stock. Rows are read FOR UPDATE; Reserve/Deduct/Restore mutate the copy so
// that later lines see earlier ones, and Flush writes the touched rows back.
// Nothing is written unless Flush is called, so an aborted order leaves stock
// untouched.
type StockLedger struct {
	tx          *gorm.DB
	products    map[uint]*models.Product
	ingredients map[uint]*models.Ingredient

	startProduct    map[uint]int
	startIngredient map[uint]decimal.Decimal
	dirtyProduct    map[uint]bool
	dirtyIngredient map[uint]bool
}

func NewStockLedger(tx *gorm.DB) *StockLedger {
	return &StockLedger{
		tx:              tx,
		products:        make(map[uint]*models.Product),
		ingredients:     make(map[uint]*models.Ingredient),
		startProduct:    make(map[uint]int),
		startIngredient: make(map[uint]decimal.Decimal),
		dirtyProduct:    make(map[uint]bool),
		dirtyIngredient: make(map[uint]bool),
	}
}

// Load pulls the given products, their recipes and ingredients into the ledger.
// Ids that do not exist are silently absent; callers check with Product.
func (l *StockLedger) Load(productIDs ...uint) error {
	missing := make([]uint, 0, len(productIDs))
	seen := make(map[uint]bool)
	for _, id := range productIDs {
		if _, ok := l.products[id]; ok || seen[id] {
			continue
		}
		seen[id] = true
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return nil
	}

	var products []models.Product
	if err := l.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Recipe").
		Where("id IN ?", missing).
		Find(&products).Error; err != nil {
		return fmt.Errorf("load products: %w", err)
	}

	var ingredientIDs []uint
	for _, p := range products {
		for _, line := range p.Recipe {
			if _, ok := l.ingredients[line.IngredientID]; !ok {
				ingredientIDs = append(ingredientIDs, line.IngredientID)
			}
		}
	}
	if len(ingredientIDs) > 0 {
		var ingredients []models.Ingredient
		if err := l.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ?", ingredientIDs).
			Find(&ingredients).Error; err != nil {
			return fmt.Errorf("load ingredients: %w", err)
		}
		for i := range ingredients {
			ing := &ingredients[i]
			l.ingredients[ing.ID] = ing
			l.startIngredient[ing.ID] = ing.Quantity
		}
	}

	for i := range products {
		p := &products[i]
		// Recipes of different products share one ingredient pointer.
		for j := range p.Recipe {
			p.Recipe[j].Ingredient = l.ingredients[p.Recipe[j].IngredientID]
		}
		l.products[p.ID] = p
		l.startProduct[p.ID] = p.StockQuantity
	}
	return nil
}

func (l *StockLedger) Product(id uint) (*models.Product, bool) {
	p, ok := l.products[id]
	return p, ok
}

func (l *StockLedger) Available(productID uint) int {
	p, ok := l.products[productID]
	if !ok {
		return 0
	}
	return AvailableQuantity(p)
}

// Reserve checks availability and deducts in one step.
func (l *StockLedger) Reserve(productID uint, quantity int) error {
	p, ok := l.products[productID]
	if !ok {
		return notFound("product", productID)
	}
	if available := AvailableQuantity(p); quantity > available {
		return insufficientStock(p.ID, p.Name, quantity, available)
	}
	l.Deduct(productID, quantity)
	return nil
}

func (l *StockLedger) Deduct(productID uint, quantity int) {
	p, ok := l.products[productID]
	if !ok || quantity <= 0 {
		return
	}
	DeductStock(p, quantity)
	l.markDirty(p)
}

func (l *StockLedger) Restore(productID uint, quantity int) {
	p, ok := l.products[productID]
	if !ok || quantity <= 0 {
		return
	}
	RestoreStock(p, quantity)
	l.markDirty(p)
}

func (l *StockLedger) markDirty(p *models.Product) {
	if !usesRecipe(p) {
		l.dirtyProduct[p.ID] = true
		return
	}
	for _, line := range p.Recipe {
		if line.QuantityRequired.IsPositive() && line.Ingredient != nil {
			l.dirtyIngredient[line.IngredientID] = true
		}
	}
}

// Flush persists every touched balance and returns the ones that crossed
// below their minimum in this ledger's lifetime.
func (l *StockLedger) Flush() ([]StockAlert, error) {
	var alerts []StockAlert

	for id := range l.dirtyIngredient {
		ing := l.ingredients[id]
		if err := l.tx.Model(&models.Ingredient{}).
			Where("id = ?", id).
			Update("quantity", ing.Quantity).Error; err != nil {
			return nil, fmt.Errorf("update ingredient %d: %w", id, err)
		}
		start := l.startIngredient[id]
		if ing.BelowMinimum() && !start.LessThan(ing.MinQuantity) {
			ingID := ing.ID
			alerts = append(alerts, StockAlert{IngredientID: &ingID, Name: ing.Name, Quantity: ing.Quantity, Minimum: ing.MinQuantity})
		}
	}

	for id := range l.dirtyProduct {
		p := l.products[id]
		if err := l.tx.Model(&models.Product{}).
			Where("id = ?", id).
			Update("stock_quantity", p.StockQuantity).Error; err != nil {
			return nil, fmt.Errorf("update product %d stock: %w", id, err)
		}
		if p.MinStockLevel > 0 && p.StockQuantity < p.MinStockLevel && l.startProduct[id] >= p.MinStockLevel {
			productID := p.ID
			alerts = append(alerts, StockAlert{
				ProductID: &productID,
				Name:      p.Name,
				Quantity:  decimal.NewFromInt(int64(p.StockQuantity)),
				Minimum:   decimal.NewFromInt(int64(p.MinStockLevel)),
			})
		}
	}

	l.dirtyIngredient = make(map[uint]bool)
	l.dirtyProduct = make(map[uint]bool)
	return alerts, nil
}

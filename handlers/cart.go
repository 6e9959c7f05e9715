package handlers

import (
	"errors"
	"net/http"
	"sort"

	"tallycart-backend/cart"
	"tallycart-backend/database"
	"tallycart-backend/models"
	"tallycart-backend/session"
	"tallycart-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CartHandler struct {
	DB       *gorm.DB
	Sessions *session.MemoryStore
	Events   cart.Dispatcher
	Config   cart.Config
	Table    string
}

// cartFor builds the request-scoped cart for the authenticated user. Carts
// are namespaced per user over the shared session store; the optional
// ?instance= query switches between named instances ("default", "wishlist").
func (h *CartHandler) cartFor(c *gin.Context) (*cart.Cart, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}

	uid := userID.(uuid.UUID)
	k := cart.New(h.Sessions.Scope(uid.String()), h.Events, database.NewCartStore(h.DB, h.Table), h.Config)

	k.RegisterEntity("product", func(id string) (any, error) {
		var product models.Product
		if err := h.DB.Where("id = ?", id).First(&product).Error; err != nil {
			return nil, err
		}
		return &product, nil
	})

	if instance := c.Query("instance"); instance != "" {
		k.Instance(instance)
	}
	return k, true
}

func respondCartError(c *gin.Context, err error) {
	var invalidRow *cart.InvalidRowIDError
	var invalidAttr *cart.InvalidAttributeError
	var unknownEntity *cart.UnknownEntityError

	switch {
	case errors.As(err, &invalidRow):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &invalidAttr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &unknownEntity):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cart operation failed"})
	}
}

// optionsFromMap flattens request options sorted by key; identity hashing
// sorts anyway, this just keeps responses deterministic.
func optionsFromMap(m map[string]string) cart.Options {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	opts := make(cart.Options, 0, len(keys))
	for _, k := range keys {
		opts = opts.Set(k, m[k])
	}
	return opts
}

func (h *CartHandler) GetCart(c *gin.Context) {
	k, ok := h.cartFor(c)
	if !ok {
		return
	}

	items, err := k.Content()
	if err != nil {
		respondCartError(c, err)
		return
	}

	count, err := k.Count()
	if err != nil {
		respondCartError(c, err)
		return
	}

	totals := gin.H{}
	for name, get := range map[string]func() (string, error){
		"subtotal":          func() (string, error) { return k.Subtotal(nil) },
		"subtotal_with_tax": func() (string, error) { return k.SubtotalWithTax(nil) },
		"tax":               func() (string, error) { return k.Tax(nil, true) },
		"fee_tax":           func() (string, error) { return k.FeeTax(nil) },
		"fee_total":         func() (string, error) { return k.FeeTotal(nil, true) },
		"total":             func() (string, error) { return k.Total(nil, true) },
	} {
		value, err := get()
		if err != nil {
			respondCartError(c, err)
			return
		}
		totals[name] = value
	}

	fees, err := k.Fees()
	if err != nil {
		respondCartError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"instance": k.CurrentInstance(),
		"items":    items,
		"fees":     fees,
		"count":    count,
		"totals":   totals,
	})
}

func (h *CartHandler) AddToCart(c *gin.Context) {
	k, ok := h.cartFor(c)
	if !ok {
		return
	}

	var req struct {
		ProductID   string            `json:"product_id"`
		ID          string            `json:"id"`
		Name        string            `json:"name"`
		Price       *float64          `json:"price"`
		Quantity    float64           `json:"quantity" binding:"required"`
		Options     map[string]string `json:"options"`
		TaxRate     *float64          `json:"tax_rate"`
		TaxIncluded *bool             `json:"tax_included"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	opts := optionsFromMap(req.Options)

	var item *cart.Item
	var err error
	fromCatalog := false

	if req.ProductID != "" {
		var product models.Product
		if err := h.DB.Where("id = ?", req.ProductID).First(&product).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}

		// Check stock
		if float64(product.Stock) < req.Quantity {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient stock"})
			return
		}

		item, err = cart.NewItemFromBuyable(&product, opts)
		fromCatalog = true
	} else {
		if req.ID == "" || req.Name == "" || req.Price == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Either product_id or id, name and price are required"})
			return
		}
		item, err = cart.NewItem(req.ID, req.Name, *req.Price, opts)
	}
	if err != nil {
		respondCartError(c, err)
		return
	}

	if err := item.SetQuantity(req.Quantity); err != nil {
		respondCartError(c, err)
		return
	}
	if req.TaxRate != nil {
		item.SetTaxRate(*req.TaxRate)
	}
	if req.TaxIncluded != nil {
		item.SetTaxIncluded(*req.TaxIncluded)
	}

	added, err := k.AddItem(item)
	if err != nil {
		respondCartError(c, err)
		return
	}

	if fromCatalog {
		if err := k.Associate(added.RowID, "product"); err != nil {
			respondCartError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, added)
}

func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	k, ok := h.cartFor(c)
	if !ok {
		return
	}

	rowID := c.Param("rowId")

	var req struct {
		Quantity *float64          `json:"quantity"`
		ID       *string           `json:"id"`
		Name     *string           `json:"name"`
		Price    *float64          `json:"price"`
		Options  map[string]string `json:"options"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	var item *cart.Item
	var err error

	if req.ID == nil && req.Name == nil && req.Price == nil && req.Options == nil {
		if req.Quantity == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
			return
		}
		item, err = k.UpdateQty(rowID, *req.Quantity)
	} else {
		attrs := cart.ItemAttributes{
			ID:    req.ID,
			Name:  req.Name,
			Qty:   req.Quantity,
			Price: req.Price,
		}
		if req.Options != nil {
			attrs.Options = optionsFromMap(req.Options)
		}
		item, err = k.UpdateAttributes(rowID, attrs)
	}

	if err != nil {
		respondCartError(c, err)
		return
	}

	if item == nil {
		// The update drove the quantity to zero or below.
		c.JSON(http.StatusOK, gin.H{"removed": true})
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	k, ok := h.cartFor(c)
	if !ok {
		return
	}

	if err := k.Remove(c.Param("rowId")); err != nil {
		respondCartError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Item removed from cart"})
}

func (h *CartHandler) ClearCart(c *gin.Context) {
	k, ok := h.cartFor(c)
	if !ok {
		return
	}

	k.Destroy()
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}

func (h *CartHandler) SetItemTax(c *gin.Context) {
	k, ok := h.cartFor(c)
	if !ok {
		return
	}

	var req struct {
		TaxRate *float64 `json:"tax_rate" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	if err := k.SetTaxRate(c.Param("rowId"), *req.TaxRate); err != nil {
		respondCartError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Tax rate updated"})
}

func (h *CartHandler) AssociateItem(c *gin.Context) {
	k, ok := h.cartFor(c)
	if !ok {
		return
	}

	var req struct {
		Type string `json:"type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	if err := k.Associate(c.Param("rowId"), req.Type); err != nil {
		respondCartError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Item associated"})
}

func (h *CartHandler) GetFees(c *gin.Context) {
	k, ok := h.cartFor(c)
	if !ok {
		return
	}

	fees, err := k.Fees()
	if err != nil {
		respondCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, fees)
}

func (h *CartHandler) AddFee(c *gin.Context) {
	k, ok := h.cartFor(c)
	if !ok {
		return
	}

	var req struct {
		Name    string            `json:"name" binding:"required"`
		Amount  *float64          `json:"amount" binding:"required"`
		TaxRate *float64          `json:"tax_rate"`
		Options map[string]string `json:"options"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	fee, err := k.AddFee(req.Name, *req.Amount, req.TaxRate, optionsFromMap(req.Options))
	if err != nil {
		respondCartError(c, err)
		return
	}

	c.JSON(http.StatusOK, fee)
}

func (h *CartHandler) RemoveFee(c *gin.Context) {
	k, ok := h.cartFor(c)
	if !ok {
		return
	}

	if err := k.RemoveFee(c.Param("name")); err != nil {
		respondCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Fee removed"})
}

func (h *CartHandler) ClearFees(c *gin.Context) {
	k, ok := h.cartFor(c)
	if !ok {
		return
	}

	if err := k.RemoveAllFees(); err != nil {
		respondCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Fees removed"})
}

func (h *CartHandler) StoreCart(c *gin.Context) {
	k, ok := h.cartFor(c)
	if !ok {
		return
	}

	var req struct {
		Identifier string `json:"identifier" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	if err := k.Store(req.Identifier); err != nil {
		respondCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart stored", "identifier": req.Identifier})
}

func (h *CartHandler) RestoreCart(c *gin.Context) {
	k, ok := h.cartFor(c)
	if !ok {
		return
	}

	var req struct {
		Identifier string `json:"identifier" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	if err := k.Restore(req.Identifier); err != nil {
		respondCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart restored", "identifier": req.Identifier})
}

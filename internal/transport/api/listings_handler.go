package api

import (
	"context"
	"net/http"
	"time"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/fsdevblog/escrow-ledger/internal/service"
	"github.com/fsdevblog/escrow-ledger/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
)

type ListingsHandler struct {
	svs ListingServicer
}

func NewListingsHandler(svs ListingServicer) *ListingsHandler {
	return &ListingsHandler{svs: svs}
}

type CreateListingParams struct {
	Title       string `binding:"required,min=1,max_bytes=255" json:"title"`
	Description string `binding:"max_bytes=4000"               json:"description"`
	Price       int64  `binding:"required,gt=0"                json:"price"`
	PriceUnit   string `binding:"max_bytes=32"                 json:"price_unit"`
	Category    string `binding:"max_bytes=64"                 json:"category"`
}

type ListingResponse struct {
	ID          int64     `json:"id"`
	PartnerID   int64     `json:"partner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       int64     `json:"price"`
	PriceUnit   string    `json:"price_unit"`
	Category    string    `json:"category"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
}

func newListingResponse(l *domain.Listing) ListingResponse {
	return ListingResponse{
		ID:          l.ID,
		PartnerID:   l.PartnerID,
		Title:       l.Title,
		Description: l.Description,
		Price:       l.Price,
		PriceUnit:   l.PriceUnit,
		Category:    l.Category,
		IsAvailable: l.IsAvailable,
		CreatedAt:   l.CreatedAt,
	}
}

// Create POST RouteGroup + ListingsRoute. Публикует объявление от имени текущего исполнителя.
func (h *ListingsHandler) Create(c *gin.Context) {
	var params CreateListingParams
	if !bindJSON(c, &params) {
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	listing, err := h.svs.Create(ctx, service.CreateListingArgs{
		PartnerID:   currentActor(c).UserID,
		Title:       params.Title,
		Description: params.Description,
		Price:       params.Price,
		PriceUnit:   params.PriceUnit,
		Category:    params.Category,
	})
	if err != nil {
		middlewares.AbortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newListingResponse(listing))
}

// Index GET RouteGroup + ListingsRoute.
func (h *ListingsHandler) Index(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	listings, err := h.svs.ListAvailable(ctx)
	if err != nil {
		middlewares.AbortWithServiceError(c, err)
		return
	}
	response := make([]ListingResponse, len(listings))
	for i := range listings {
		response[i] = newListingResponse(&listings[i])
	}
	c.JSON(http.StatusOK, response)
}

// Show GET RouteGroup + ListingRoute.
func (h *ListingsHandler) Show(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	listing, err := h.svs.GetByID(ctx, id)
	if err != nil {
		middlewares.AbortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newListingResponse(listing))
}

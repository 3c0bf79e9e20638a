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

type OrdersHandler struct {
	orderSvs  OrderServicer
	escrowSvs EscrowServicer
}

func NewOrdersHandler(orderSvs OrderServicer, escrowSvs EscrowServicer) *OrdersHandler {
	return &OrdersHandler{
		orderSvs:  orderSvs,
		escrowSvs: escrowSvs,
	}
}

type OrderResponse struct {
	ID                 int64                  `json:"id"`
	ClientID           int64                  `json:"client_id"`
	PartnerID          int64                  `json:"partner_id"`
	ListingID          int64                  `json:"listing_id"`
	TotalAmount        int64                  `json:"total_amount"`
	Status             domain.OrderStatusType `json:"status"`
	DeliveryNeeded     bool                   `json:"delivery_needed"`
	DeliveryAddress    string                 `json:"delivery_address,omitempty"`
	ProblemDescription string                 `json:"problem_description,omitempty"`
	AITitle            string                 `json:"ai_title,omitempty"`
	AICategory         string                 `json:"ai_category,omitempty"`
	AITags             string                 `json:"ai_tags,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
	FundedAt           *time.Time             `json:"funded_at,omitempty"`
	DeliveredAt        *time.Time             `json:"delivered_at,omitempty"`
	CompletedAt        *time.Time             `json:"completed_at,omitempty"`
	CancelledAt        *time.Time             `json:"cancelled_at,omitempty"`
	DisputeReason      *string                `json:"dispute_reason,omitempty"`
	Escrow             *EscrowResponse        `json:"escrow,omitempty"`
}

func newOrderResponse(o *domain.Order) OrderResponse {
	return OrderResponse{
		ID:                 o.ID,
		ClientID:           o.ClientID,
		PartnerID:          o.PartnerID,
		ListingID:          o.ListingID,
		TotalAmount:        o.TotalAmount,
		Status:             o.Status,
		DeliveryNeeded:     o.DeliveryNeeded,
		DeliveryAddress:    o.DeliveryAddress,
		ProblemDescription: o.ProblemDescription,
		AITitle:            o.AITitle,
		AICategory:         o.AICategory,
		AITags:             o.AITags,
		CreatedAt:          o.CreatedAt,
		FundedAt:           o.FundedAt,
		DeliveredAt:        o.DeliveredAt,
		CompletedAt:        o.CompletedAt,
		CancelledAt:        o.CancelledAt,
		DisputeReason:      o.DisputeReason,
	}
}

type CreateOrderParams struct {
	ListingID          int64  `binding:"required,gt=0"   json:"listing_id"`
	DeliveryNeeded     bool   `json:"delivery_needed"`
	DeliveryAddress    string `binding:"max_bytes=512"  json:"delivery_address"`
	ProblemDescription string `binding:"max_bytes=4000" json:"problem_description"`
}

// Create POST RouteGroup + OrdersRoute. Заказ создается от имени текущего пользователя.
func (o *OrdersHandler) Create(c *gin.Context) {
	var params CreateOrderParams
	if !bindJSON(c, &params) {
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	order, err := o.orderSvs.Create(reqCtx, service.CreateOrderArgs{
		ClientID:           currentActor(c).UserID,
		ListingID:          params.ListingID,
		DeliveryNeeded:     params.DeliveryNeeded,
		DeliveryAddress:    params.DeliveryAddress,
		ProblemDescription: params.ProblemDescription,
	})
	if err != nil {
		middlewares.AbortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newOrderResponse(order))
}

// Index GET RouteGroup + OrdersRoute. Заказы, где текущий пользователь клиент или исполнитель.
func (o *OrdersHandler) Index(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	orders, err := o.orderSvs.GetByUserID(reqCtx, currentActor(c).UserID)
	if err != nil {
		middlewares.AbortWithServiceError(c, err)
		return
	}

	if len(orders) == 0 {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}

	var response = make([]OrderResponse, len(orders))
	for i := range orders {
		response[i] = newOrderResponse(&orders[i])
	}

	c.JSON(http.StatusOK, response)
}

// Show GET RouteGroup + OrderRoute. Заказ вместе со счетом эскроу.
func (o *OrdersHandler) Show(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	details, err := o.orderSvs.GetByID(reqCtx, orderID, currentActor(c))
	if err != nil {
		middlewares.AbortWithServiceError(c, err)
		return
	}

	response := newOrderResponse(details.Order)
	if details.Escrow != nil {
		escrow := newEscrowResponse(details.Escrow)
		response.Escrow = &escrow
	}
	c.JSON(http.StatusOK, response)
}

type orderAction func(ctx context.Context, orderID int64, actor domain.Actor) (*domain.Order, error)

// transition общий обработчик переходов без тела запроса.
func (o *OrdersHandler) transition(action orderAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := pathID(c, "id")
		if !ok {
			return
		}

		reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
		defer cancel()

		order, err := action(reqCtx, orderID, currentActor(c))
		if err != nil {
			middlewares.AbortWithServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, newOrderResponse(order))
	}
}

// Accept POST RouteGroup + OrderAcceptRoute.
func (o *OrdersHandler) Accept(c *gin.Context) {
	o.transition(o.orderSvs.Accept)(c)
}

// Start POST RouteGroup + OrderStartRoute.
func (o *OrdersHandler) Start(c *gin.Context) {
	o.transition(o.orderSvs.StartWork)(c)
}

// Deliver POST RouteGroup + OrderDeliverRoute. Запускает 48-часовой срок подтверждения.
func (o *OrdersHandler) Deliver(c *gin.Context) {
	o.transition(o.orderSvs.DeclareFinished)(c)
}

type ReasonParams struct {
	Reason string `binding:"required,min=1,max_bytes=1000" json:"reason"`
}

type reasonAction func(ctx context.Context, orderID int64, actor domain.Actor, reason string) (*domain.Order, error)

func (o *OrdersHandler) withReason(c *gin.Context, action reasonAction) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var params ReasonParams
	if !bindJSON(c, &params) {
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	order, err := action(reqCtx, orderID, currentActor(c), params.Reason)
	if err != nil {
		middlewares.AbortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(order))
}

// Dispute POST RouteGroup + OrderDisputeRoute.
func (o *OrdersHandler) Dispute(c *gin.Context) {
	o.withReason(c, o.orderSvs.Dispute)
}

// Cancel POST RouteGroup + OrderCancelRoute. Заблокированные средства возвращаются клиенту.
func (o *OrdersHandler) Cancel(c *gin.Context) {
	o.withReason(c, o.orderSvs.Cancel)
}

// Lock POST RouteGroup + OrderLockRoute. Клиент блокирует полную сумму заказа на счете эскроу.
func (o *OrdersHandler) Lock(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	escrow, err := o.escrowSvs.LockFunds(reqCtx, orderID, currentActor(c))
	if err != nil {
		middlewares.AbortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newEscrowResponse(&service.EscrowView{EscrowAccount: *escrow}))
}

type ReleaseResponse struct {
	Escrow     EscrowResponse `json:"escrow"`
	Payout     int64          `json:"payout"`
	Commission int64          `json:"commission"`
}

// Release POST RouteGroup + OrderReleaseRoute. Клиент подтверждает работу, исполнитель получает выплату.
func (o *OrdersHandler) Release(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	result, err := o.escrowSvs.Release(reqCtx, orderID, currentActor(c))
	if err != nil {
		middlewares.AbortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ReleaseResponse{
		Escrow:     newEscrowResponse(&service.EscrowView{EscrowAccount: *result.Escrow}),
		Payout:     result.Payout,
		Commission: result.Commission,
	})
}

// Refund POST RouteGroup + OrderRefundRoute. Только администратор.
func (o *OrdersHandler) Refund(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var params ReasonParams
	if !bindJSON(c, &params) {
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	escrow, err := o.escrowSvs.Refund(reqCtx, orderID, params.Reason, currentActor(c))
	if err != nil {
		middlewares.AbortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newEscrowResponse(&service.EscrowView{EscrowAccount: *escrow}))
}

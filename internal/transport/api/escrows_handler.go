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

type EscrowsHandler struct {
	svs EscrowServicer
}

func NewEscrowsHandler(svs EscrowServicer) *EscrowsHandler {
	return &EscrowsHandler{svs: svs}
}

type EscrowResponse struct {
	OrderID           int64                   `json:"order_id"`
	Amount            int64                   `json:"amount"`
	CommissionAmount  int64                   `json:"commission_amount"`
	ArtisanPayout     int64                   `json:"artisan_payout"`
	Status            domain.EscrowStatusType `json:"status"`
	LockedAt          time.Time               `json:"locked_at"`
	ReleasedAt        *time.Time              `json:"released_at,omitempty"`
	RefundedAt        *time.Time              `json:"refunded_at,omitempty"`
	ReleasedBy        *string                 `json:"released_by,omitempty"`
	Reason            *string                 `json:"reason,omitempty"`
	TimeLockedMinutes int64                   `json:"time_locked_minutes"`
}

func newEscrowResponse(v *service.EscrowView) EscrowResponse {
	return EscrowResponse{
		OrderID:           v.OrderID,
		Amount:            v.Amount,
		CommissionAmount:  v.CommissionAmount,
		ArtisanPayout:     v.ArtisanPayout,
		Status:            v.Status,
		LockedAt:          v.LockedAt,
		ReleasedAt:        v.ReleasedAt,
		RefundedAt:        v.RefundedAt,
		ReleasedBy:        v.ReleasedBy,
		Reason:            v.Reason,
		TimeLockedMinutes: v.TimeLockedMinutes,
	}
}

// Index GET RouteGroup + EscrowsRoute. Счета эскроу по заказам текущего пользователя.
func (h *EscrowsHandler) Index(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	escrows, err := h.svs.GetByUserID(reqCtx, currentActor(c).UserID)
	if err != nil {
		middlewares.AbortWithServiceError(c, err)
		return
	}
	response := make([]EscrowResponse, len(escrows))
	for i := range escrows {
		response[i] = newEscrowResponse(&escrows[i])
	}
	c.JSON(http.StatusOK, response)
}

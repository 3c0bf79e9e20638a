package api

import (
	"context"
	"net/http"
	"time"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/fsdevblog/escrow-ledger/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
)

type WalletHandler struct {
	svs WalletServicer
}

func NewWalletHandler(svs WalletServicer) *WalletHandler {
	return &WalletHandler{
		svs: svs,
	}
}

type WalletResponse struct {
	Balance       int64 `json:"balance"`
	FrozenBalance int64 `json:"frozen_balance"`
}

func newWalletResponse(w *domain.Wallet) WalletResponse {
	return WalletResponse{Balance: w.Balance, FrozenBalance: w.FrozenBalance}
}

// Index GET RouteGroup + WalletRoute.
func (h *WalletHandler) Index(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	wallet, err := h.svs.GetWallet(reqCtx, currentActor(c).UserID)
	if err != nil {
		middlewares.AbortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, newWalletResponse(wallet))
}

type AmountParams struct {
	Amount int64 `binding:"required,gt=0" json:"amount"`
}

type walletMove func(ctx context.Context, userID int64, amount int64) (*domain.Wallet, error)

func (h *WalletHandler) move(c *gin.Context, fn walletMove) {
	var params AmountParams
	if !bindJSON(c, &params) {
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	wallet, err := fn(reqCtx, currentActor(c).UserID, params.Amount)
	if err != nil {
		middlewares.AbortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, newWalletResponse(wallet))
}

// Deposit POST RouteGroup + WalletDepositRoute.
func (h *WalletHandler) Deposit(c *gin.Context) {
	h.move(c, h.svs.Deposit)
}

// Withdraw POST RouteGroup + WalletWithdrawRoute. При нехватке средств отдает 402.
func (h *WalletHandler) Withdraw(c *gin.Context) {
	h.move(c, h.svs.Withdraw)
}

type TransactionResponseItem struct {
	ID        int64                  `json:"id"`
	OrderID   *int64                 `json:"order_id,omitempty"`
	Amount    int64                  `json:"amount"`
	Type      domain.TransactionType `json:"type"`
	Status    string                 `json:"status"`
	Reference string                 `json:"reference"`
	CreatedAt string                 `json:"created_at"`
}

// Transactions GET RouteGroup + WalletTransactionsRoute. Журнал движения средств кошелька.
func (h *WalletHandler) Transactions(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	transactions, err := h.svs.History(reqCtx, currentActor(c).UserID)
	if err != nil {
		middlewares.AbortWithServiceError(c, err)
		return
	}
	response := make([]TransactionResponseItem, len(transactions))
	for i, t := range transactions {
		response[i] = TransactionResponseItem{
			ID:        t.ID,
			OrderID:   t.OrderID,
			Amount:    t.Amount,
			Type:      t.Type,
			Status:    t.Status,
			Reference: t.Reference,
			CreatedAt: t.CreatedAt.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, response)
}

package service

import (
	"fmt"

	"github.com/fsdevblog/escrow-ledger/internal/service/psswd"
	"github.com/fsdevblog/escrow-ledger/pkg/uow"
)

type AppServices struct {
	UserService    *UserService
	ListingService *ListingService
	OrderService   *OrderService
	EscrowService  *EscrowService
	WalletService  *WalletService
}

func Factory(unitOfWork uow.UOW, jwtSecret []byte, opts Options) (*AppServices, error) {
	hasher, hasherErr := psswd.New(opts.PasswordCost)
	if hasherErr != nil {
		return nil, fmt.Errorf("service factory: %s", hasherErr.Error())
	}

	userService, userServiceErr := NewUserService(unitOfWork, hasher, jwtSecret)
	if userServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", userServiceErr.Error())
	}

	listingService, listingServiceErr := NewListingService(unitOfWork)
	if listingServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", listingServiceErr.Error())
	}

	orderService, orderServiceErr := NewOrderService(unitOfWork, opts)
	if orderServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", orderServiceErr.Error())
	}

	escrowService, escrowServiceErr := NewEscrowService(unitOfWork, opts)
	if escrowServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", escrowServiceErr.Error())
	}

	walletService, walletServiceErr := NewWalletService(unitOfWork)
	if walletServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", walletServiceErr.Error())
	}

	return &AppServices{
		UserService:    userService,
		ListingService: listingService,
		OrderService:   orderService,
		EscrowService:  escrowService,
		WalletService:  walletService,
	}, nil
}

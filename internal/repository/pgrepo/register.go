package pgrepo

import (
	"fmt"

	"github.com/fsdevblog/escrow-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/escrow-ledger/pkg/uow"
)

// RegisterRepositories регистрирует все postgres репозитории в unit of work.
func RegisterRepositories(u uow.UOW) error {
	factories := map[repoargs.RepositoryName]uow.RepositoryFactory{
		repoargs.UserRepoName: func(dbtx uow.DBTX) uow.Repository {
			return NewUserRepository(dbtx)
		},
		repoargs.ListingRepoName: func(dbtx uow.DBTX) uow.Repository {
			return NewListingRepository(dbtx)
		},
		repoargs.OrderRepoName: func(dbtx uow.DBTX) uow.Repository {
			return NewOrderRepository(dbtx)
		},
		repoargs.EscrowRepoName: func(dbtx uow.DBTX) uow.Repository {
			return NewEscrowRepository(dbtx)
		},
		repoargs.WalletRepoName: func(dbtx uow.DBTX) uow.Repository {
			return NewWalletRepository(dbtx)
		},
		repoargs.TransactionRepoName: func(dbtx uow.DBTX) uow.Repository {
			return NewTransactionRepository(dbtx)
		},
	}
	for name, factory := range factories {
		if regErr := u.Register(uow.RepositoryName(name), factory); regErr != nil {
			return fmt.Errorf("register repository %s: %w", name, regErr)
		}
	}
	return nil
}

package memrepo

import (
	"context"

	"github.com/fsdevblog/escrow-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/escrow-ledger/pkg/uow"
)

// UnitOfWork реализация uow.UOW поверх Store. Транзакции выполняются строго по одной: Do держит мьютекс
// хранилища все время работы fn и при ошибке восстанавливает снимок состояния.
type UnitOfWork struct {
	store *Store
	extra map[uow.RepositoryName]uow.RepositoryFactory
}

func NewUnitOfWork(store *Store) *UnitOfWork {
	return &UnitOfWork{
		store: store,
		extra: make(map[uow.RepositoryName]uow.RepositoryFactory),
	}
}

// Register хранилище регистрирует свои репозитории само; сторонние фабрики вызываются с nil DBTX.
func (u *UnitOfWork) Register(name uow.RepositoryName, factory uow.RepositoryFactory) error {
	if _, ok := u.repository(name, access{store: u.store}); ok {
		return uow.ErrRepositoryAlreadyRegistered
	}
	if _, ok := u.extra[name]; ok {
		return uow.ErrRepositoryAlreadyRegistered
	}
	u.extra[name] = factory
	return nil
}

func (u *UnitOfWork) Do(ctx context.Context, fn func(context.Context, uow.TX) error) error {
	if err := ctx.Err(); err != nil {
		return &uow.TxError{Op: "begin", Err: err}
	}
	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	snap := u.store.snapshot()
	if err := fn(ctx, &transaction{u: u}); err != nil {
		u.store.restore(snap)
		return err
	}
	return nil
}

func (u *UnitOfWork) GetRepository(name uow.RepositoryName) (uow.Repository, error) {
	if repo, ok := u.repository(name, access{store: u.store}); ok {
		return repo, nil
	}
	return nil, uow.ErrRepositoryNotRegistered
}

func (u *UnitOfWork) repository(name uow.RepositoryName, a access) (uow.Repository, bool) {
	switch repoargs.RepositoryName(name) {
	case repoargs.UserRepoName:
		return &UserRepository{a: a}, true
	case repoargs.ListingRepoName:
		return &ListingRepository{a: a}, true
	case repoargs.OrderRepoName:
		return &OrderRepository{a: a}, true
	case repoargs.EscrowRepoName:
		return &EscrowRepository{a: a}, true
	case repoargs.WalletRepoName:
		return &WalletRepository{a: a}, true
	case repoargs.TransactionRepoName:
		return &TransactionRepository{a: a}, true
	}
	if factory, ok := u.extra[name]; ok {
		return factory(nil), true
	}
	return nil, false
}

type transaction struct {
	u *UnitOfWork
}

func (t *transaction) Get(name uow.RepositoryName) (uow.Repository, error) {
	if repo, ok := t.u.repository(name, access{store: t.u.store, inTx: true}); ok {
		return repo, nil
	}
	return nil, uow.ErrRepositoryNotRegistered
}

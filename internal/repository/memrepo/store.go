// Package memrepo хранилище в памяти с теми же репозиториями, что и pgrepo. Используется при пустом
// DATABASE_URI и в тестах сервисов.
package memrepo

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
)

type Store struct {
	mu  sync.Mutex
	now func() time.Time

	userSeq, listingSeq, orderSeq, escrowSeq, walletSeq, transSeq int64

	users        map[int64]domain.User
	userByPhone  map[string]int64
	listings     map[int64]domain.Listing
	orders       map[int64]domain.Order
	escrows      map[int64]domain.EscrowAccount // по order_id
	wallets      map[int64]domain.Wallet
	walletByUser map[int64]int64
	transactions []domain.Transaction
}

func NewStore() *Store {
	return &Store{
		now:          time.Now,
		users:        make(map[int64]domain.User),
		userByPhone:  make(map[string]int64),
		listings:     make(map[int64]domain.Listing),
		orders:       make(map[int64]domain.Order),
		escrows:      make(map[int64]domain.EscrowAccount),
		wallets:      make(map[int64]domain.Wallet),
		walletByUser: make(map[int64]int64),
	}
}

// WithClock задает источник времени для created_at/updated_at.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// snapshot копия состояния для отката транзакции. Указатели внутри моделей не копируются:
// репозитории их только заменяют, но не изменяют по месту.
type snapshot struct {
	userSeq, listingSeq, orderSeq, escrowSeq, walletSeq, transSeq int64

	users        map[int64]domain.User
	userByPhone  map[string]int64
	listings     map[int64]domain.Listing
	orders       map[int64]domain.Order
	escrows      map[int64]domain.EscrowAccount
	wallets      map[int64]domain.Wallet
	walletByUser map[int64]int64
	transactions []domain.Transaction
}

func (s *Store) snapshot() snapshot {
	return snapshot{
		userSeq:      s.userSeq,
		listingSeq:   s.listingSeq,
		orderSeq:     s.orderSeq,
		escrowSeq:    s.escrowSeq,
		walletSeq:    s.walletSeq,
		transSeq:     s.transSeq,
		users:        maps.Clone(s.users),
		userByPhone:  maps.Clone(s.userByPhone),
		listings:     maps.Clone(s.listings),
		orders:       maps.Clone(s.orders),
		escrows:      maps.Clone(s.escrows),
		wallets:      maps.Clone(s.wallets),
		walletByUser: maps.Clone(s.walletByUser),
		transactions: slices.Clone(s.transactions),
	}
}

func (s *Store) restore(snap snapshot) {
	s.userSeq, s.listingSeq, s.orderSeq = snap.userSeq, snap.listingSeq, snap.orderSeq
	s.escrowSeq, s.walletSeq, s.transSeq = snap.escrowSeq, snap.walletSeq, snap.transSeq
	s.users = snap.users
	s.userByPhone = snap.userByPhone
	s.listings = snap.listings
	s.orders = snap.orders
	s.escrows = snap.escrows
	s.wallets = snap.wallets
	s.walletByUser = snap.walletByUser
	s.transactions = snap.transactions
}

// access выполняет fn под мьютексом хранилища. Внутри UnitOfWork.Do мьютекс уже захвачен.
type access struct {
	store *Store
	inTx  bool
}

func (a access) run(fn func(s *Store)) {
	if !a.inTx {
		a.store.mu.Lock()
		defer a.store.mu.Unlock()
	}
	fn(a.store)
}

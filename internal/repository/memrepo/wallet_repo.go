package memrepo

import (
	"context"
	"fmt"
	"slices"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/fsdevblog/escrow-ledger/internal/repository/repoargs"
)

type WalletRepository struct {
	a access
}

func (r *WalletRepository) Create(_ context.Context, userID int64) (*domain.Wallet, error) {
	var wallet domain.Wallet
	var err error
	r.a.run(func(s *Store) {
		if _, ok := s.walletByUser[userID]; ok {
			err = fmt.Errorf("[memrepo/creating wallet for user %d] %w", userID, domain.ErrDuplicateKey)
			return
		}
		s.walletSeq++
		now := s.now()
		wallet = domain.Wallet{ID: s.walletSeq, CreatedAt: now, UpdatedAt: now, UserID: userID}
		s.wallets[wallet.ID] = wallet
		s.walletByUser[userID] = wallet.ID
	})
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *WalletRepository) FindByUserID(_ context.Context, userID int64) (*domain.Wallet, error) {
	var wallet domain.Wallet
	var ok bool
	r.a.run(func(s *Store) {
		var id int64
		if id, ok = s.walletByUser[userID]; ok {
			wallet = s.wallets[id]
		}
	})
	if !ok {
		return nil, fmt.Errorf("[memrepo/finding wallet by user %d] %w", userID, domain.ErrRecordNotFound)
	}
	return &wallet, nil
}

func (r *WalletRepository) Debit(_ context.Context, walletID int64, amount int64) (*domain.Wallet, error) {
	var wallet domain.Wallet
	var err error
	r.a.run(func(s *Store) {
		var ok bool
		if wallet, ok = s.wallets[walletID]; !ok {
			err = fmt.Errorf("[memrepo/debiting wallet %d] %w", walletID, domain.ErrRecordNotFound)
			return
		}
		if wallet.Balance < amount {
			err = fmt.Errorf("[memrepo/debiting wallet %d] %w", walletID, domain.ErrInsufficientFunds)
			return
		}
		wallet.Balance -= amount
		wallet.UpdatedAt = s.now()
		s.wallets[walletID] = wallet
	})
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *WalletRepository) Credit(_ context.Context, walletID int64, amount int64) (*domain.Wallet, error) {
	var wallet domain.Wallet
	var ok bool
	r.a.run(func(s *Store) {
		if wallet, ok = s.wallets[walletID]; !ok {
			return
		}
		wallet.Balance += amount
		wallet.UpdatedAt = s.now()
		s.wallets[walletID] = wallet
	})
	if !ok {
		return nil, fmt.Errorf("[memrepo/crediting wallet %d] %w", walletID, domain.ErrRecordNotFound)
	}
	return &wallet, nil
}

type TransactionRepository struct {
	a access
}

func (r *TransactionRepository) Create(
	_ context.Context,
	args repoargs.CreateTransaction,
) (*domain.Transaction, error) {
	var trans domain.Transaction
	var err error
	r.a.run(func(s *Store) {
		if _, ok := s.wallets[args.WalletID]; !ok {
			err = fmt.Errorf("[memrepo/creating transaction for wallet %d] %w", args.WalletID, domain.ErrRecordNotFound)
			return
		}
		s.transSeq++
		trans = domain.Transaction{
			ID:        s.transSeq,
			CreatedAt: s.now(),
			WalletID:  args.WalletID,
			OrderID:   args.OrderID,
			Amount:    args.Amount,
			Type:      args.Type,
			Status:    domain.TransactionStatusSuccess,
			Reference: args.Reference,
		}
		s.transactions = append(s.transactions, trans)
	})
	if err != nil {
		return nil, err
	}
	return &trans, nil
}

func (r *TransactionRepository) GetByWalletID(_ context.Context, walletID int64) ([]domain.Transaction, error) {
	res := r.filter(func(t domain.Transaction) bool { return t.WalletID == walletID })
	slices.Reverse(res)
	return res, nil
}

func (r *TransactionRepository) GetByOrderID(_ context.Context, orderID int64) ([]domain.Transaction, error) {
	return r.filter(func(t domain.Transaction) bool { return t.OrderID != nil && *t.OrderID == orderID }), nil
}

func (r *TransactionRepository) SumByWalletID(_ context.Context, walletID int64) (int64, error) {
	var sum int64
	for _, t := range r.filter(func(t domain.Transaction) bool { return t.WalletID == walletID }) {
		sum += t.Amount
	}
	return sum, nil
}

func (r *TransactionRepository) filter(match func(domain.Transaction) bool) []domain.Transaction {
	var res []domain.Transaction
	r.a.run(func(s *Store) {
		for _, t := range s.transactions {
			if match(t) {
				res = append(res, t)
			}
		}
	})
	return res
}

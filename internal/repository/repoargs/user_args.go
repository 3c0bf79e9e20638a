package repoargs

import "github.com/fsdevblog/escrow-ledger/internal/domain"

type CreateUser struct {
	Phone             string
	FullName          string
	Role              domain.UserRole
	EncryptedPassword string
}

type CreateListing struct {
	PartnerID   int64
	Title       string
	Description string
	Price       int64
	PriceUnit   string
	Category    string
}

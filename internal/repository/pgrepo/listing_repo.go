package pgrepo

import (
	"context"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/fsdevblog/escrow-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/escrow-ledger/pkg/uow"
	"github.com/jackc/pgx/v5"
)

const listingColumns = `id, created_at, partner_id, title, description, price, price_unit, category, is_available`

type ListingRepository struct {
	db uow.DBTX
}

func NewListingRepository(db uow.DBTX) *ListingRepository {
	return &ListingRepository{db: db}
}

func (l *ListingRepository) Create(ctx context.Context, args repoargs.CreateListing) (*domain.Listing, error) {
	row := l.db.QueryRow(ctx,
		`INSERT INTO listings (partner_id, title, description, price, price_unit, category)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+listingColumns,
		args.PartnerID, args.Title, args.Description, args.Price, args.PriceUnit, args.Category,
	)
	listing, err := scanListing(row)
	if err != nil {
		return nil, convertErr(err, "creating listing for partner %d", args.PartnerID)
	}
	return listing, nil
}

func (l *ListingRepository) FindByID(ctx context.Context, id int64) (*domain.Listing, error) {
	row := l.db.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)
	listing, err := scanListing(row)
	if err != nil {
		return nil, convertErr(err, "finding listing by id %d", id)
	}
	return listing, nil
}

// ListAvailable возвращает доступные объявления, новые первыми.
func (l *ListingRepository) ListAvailable(ctx context.Context, limit uint) ([]domain.Listing, error) {
	safeLimit, safeLimitErr := safeConvertUintToInt32(limit)
	if safeLimitErr != nil {
		return nil, convertErr(safeLimitErr, "converting limit to int32")
	}
	rows, err := l.db.Query(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE is_available ORDER BY id DESC LIMIT $1`, safeLimit)
	if err != nil {
		return nil, convertErr(err, "listing available listings")
	}
	listings, collectErr := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Listing, error) {
		listing, scanErr := scanListing(r)
		if scanErr != nil {
			return domain.Listing{}, scanErr
		}
		return *listing, nil
	})
	if collectErr != nil {
		return nil, convertErr(collectErr, "scanning available listings")
	}
	return listings, nil
}

func scanListing(row pgx.Row) (*domain.Listing, error) {
	var listing domain.Listing
	if err := row.Scan(
		&listing.ID,
		&listing.CreatedAt,
		&listing.PartnerID,
		&listing.Title,
		&listing.Description,
		&listing.Price,
		&listing.PriceUnit,
		&listing.Category,
		&listing.IsAvailable,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &listing, nil
}

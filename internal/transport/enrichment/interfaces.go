package enrichment

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/fsdevblog/escrow-ledger/internal/service"
	"github.com/fsdevblog/escrow-ledger/internal/transport/enrichment/client"
)

type Client interface {
	Annotate(ctx context.Context, text string) (*client.Response, error)
}

type Servicer interface {
	ProblemDescription(ctx context.Context, orderID int64) (string, error)
	AttachEnrichment(ctx context.Context, orderID int64, e service.Enrichment) error
}

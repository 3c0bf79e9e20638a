package repoargs

type RepositoryName string

const (
	UserRepoName        RepositoryName = "user"
	ListingRepoName     RepositoryName = "listing"
	OrderRepoName       RepositoryName = "order"
	EscrowRepoName      RepositoryName = "escrow"
	WalletRepoName      RepositoryName = "wallet"
	TransactionRepoName RepositoryName = "transaction"
)

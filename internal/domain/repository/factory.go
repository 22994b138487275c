package repository

// Factory describes access to different domain repositories.
type Factory interface {
	Users() UserRepository
	Orders() OrderRepository
	Ledger() LedgerRepository
	Remediations() RemediationRepository
}

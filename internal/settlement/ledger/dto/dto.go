package dto

// DepositRequest é o payload de crédito aceito pelo wallet-service.
type DepositRequest struct {
	UserID      string `json:"userId"`
	AmountCents int64  `json:"amount_cents"`
	ExternalRef string `json:"external_ref"` // ex: win:<betId>
}

// WalletResponse é a resposta de /wallet e /wallet/deposit.
type WalletResponse struct {
	UserID       string `json:"userId"`
	WalletID     string `json:"walletId"`
	BalanceCents int64  `json:"balance_cents"`
}

package account

// Account is the API response model for an account.
type Account struct {
	ID        string `json:"id" doc:"Account UUID"`
	OwnerID   string `json:"ownerId" doc:"Subscriber MSISDN owning the account"`
	Currency  string `json:"currency" doc:"ISO 4217 currency code"`
	Balance   string `json:"balance" doc:"Decimal balance"`
	CreatedAt string `json:"createdAt" doc:"RFC3339 creation time"`
}

package actions

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/carson-networks/wallet-server/internal/service"
)

type accountCreator interface {
	CreateAccount(ctx context.Context, account service.Account) (uuid.UUID, error)
}

// CreateAccount opens a wallet account. CreatedID is set once Perform succeeds.
type CreateAccount struct {
	Accounts accountCreator
	OwnerID  string
	Currency string

	CreatedID uuid.UUID
}

func (c *CreateAccount) Perform(ctx context.Context) error {
	id, err := c.Accounts.CreateAccount(ctx, service.Account{
		OwnerID:  c.OwnerID,
		Currency: c.Currency,
	})
	if err != nil {
		return err
	}

	c.CreatedID = id
	return nil
}

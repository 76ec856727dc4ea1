package payment

import (
	"context"
	"fmt"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
)

const chargeSuccessful = "successful"

// omiseAPI is the slice of the Omise API the adapter uses.
type omiseAPI interface {
	CreateSource(op *operations.CreateSource) (*omise.Source, error)
	CreateCharge(op *operations.CreateCharge) (*omise.Charge, error)
	RetrieveCharge(op *operations.RetrieveCharge) (*omise.Charge, error)
}

type sdkClient struct{ c *omise.Client }

func (s sdkClient) CreateSource(op *operations.CreateSource) (*omise.Source, error) {
	src := &omise.Source{}
	return src, s.c.Do(src, op)
}

func (s sdkClient) CreateCharge(op *operations.CreateCharge) (*omise.Charge, error) {
	ch := &omise.Charge{}
	return ch, s.c.Do(ch, op)
}

func (s sdkClient) RetrieveCharge(op *operations.RetrieveCharge) (*omise.Charge, error) {
	ch := &omise.Charge{}
	return ch, s.c.Do(ch, op)
}

// Omise creates a source of the configured type (promptpay by default) and
// a charge on it.  The charge id is the intent id.
type Omise struct {
	api        omiseAPI
	sourceType string
}

// NewOmiseClient builds the SDK client from the account keys.
func NewOmiseClient(publicKey, secretKey string) (*omise.Client, error) {
	return omise.NewClient(publicKey, secretKey)
}

func NewOmise(client *omise.Client, sourceType string) *Omise {
	return newOmise(sdkClient{c: client}, sourceType)
}

func newOmise(api omiseAPI, sourceType string) *Omise {
	if sourceType == "" {
		sourceType = "promptpay"
	}
	return &Omise{api: api, sourceType: sourceType}
}

func (o *Omise) CreateIntent(ctx context.Context, amountCents int64, description, currency string) (Intent, error) {
	if err := ctx.Err(); err != nil {
		return Intent{}, err
	}
	src, err := o.api.CreateSource(&operations.CreateSource{
		Type:     o.sourceType,
		Amount:   amountCents,
		Currency: currency,
	})
	if err != nil {
		return Intent{}, fmt.Errorf("%w: create source: %v", ErrGateway, err)
	}

	ch, err := o.api.CreateCharge(&operations.CreateCharge{
		Amount:      amountCents,
		Currency:    currency,
		Source:      src.ID,
		Description: description,
	})
	if err != nil {
		return Intent{}, fmt.Errorf("%w: create charge: %v", ErrGateway, err)
	}

	secret := ch.AuthorizeURI
	if secret == "" {
		secret = src.ID
	}
	return Intent{ClientSecret: secret, IntentID: ch.ID}, nil
}

func (o *Omise) ConfirmIntent(ctx context.Context, intentID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ch, err := o.api.RetrieveCharge(&operations.RetrieveCharge{ChargeID: intentID})
	if err != nil {
		return false, fmt.Errorf("%w: retrieve charge %s: %v", ErrGateway, intentID, err)
	}
	return string(ch.Status) == chargeSuccessful, nil
}

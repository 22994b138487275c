package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/polkiloo/orderhub/internal/adapter/gateway"
	domainErrors "github.com/polkiloo/orderhub/internal/domain/errors"
	"github.com/polkiloo/orderhub/internal/domain/model"
	"github.com/polkiloo/orderhub/internal/pkg/auth"
)

const defaultCurrency = "INR"

// Initiator opens a gateway order and binds the order payload to it with a payment token.
type Initiator struct {
	gateway       gateway.Client
	tokens        *auth.PaymentTokens
	minOrderTotal int64
	receipt       func() string
}

// NewInitiator constructs Initiator. minOrderTotal is in minor units.
func NewInitiator(gw gateway.Client, tokens *auth.PaymentTokens, minOrderTotal int64) *Initiator {
	return &Initiator{gateway: gw, tokens: tokens, minOrderTotal: minOrderTotal, receipt: newReceipt}
}

func newReceipt() string {
	return "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}

// Initiate creates the gateway order and returns the token finalization must present.
func (i *Initiator) Initiate(ctx context.Context, req model.InitiateRequest) (*model.InitiateResult, error) {
	if req.PrincipalID == "" || req.PrincipalID != req.Payload.UserID {
		return nil, domainErrors.ErrForbidden
	}
	if req.Payload.ItemTotal < i.minOrderTotal {
		return nil, fmt.Errorf("%w: item total %s, minimum %s", domainErrors.ErrMinimumOrder,
			model.FormatMajor(req.Payload.ItemTotal), model.FormatMajor(i.minOrderTotal))
	}
	amount := model.ToMinorUnits(req.Amount)
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", domainErrors.ErrInvalidPayload)
	}
	if payable := req.Payload.Payable(); amount != payable {
		return nil, fmt.Errorf("%w: requested %s, payable %s", domainErrors.ErrAmountMismatch,
			model.FormatMajor(amount), model.FormatMajor(payable))
	}
	currency := req.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	var notes map[string]string
	if req.Payload.OrderID != "" {
		notes = map[string]string{model.NoteInternalOrderID: req.Payload.OrderID}
	}
	order, err := i.gateway.CreateOrder(ctx, amount, currency, i.receipt(), notes)
	if err != nil {
		return nil, err
	}

	hash, err := req.Payload.Hash()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrInvalidPayload, err)
	}
	token, err := i.tokens.Issue(model.PaymentClaims{Hash: hash, GatewayOrderID: order.ID, UserID: req.PrincipalID})
	if err != nil {
		return nil, err
	}
	return &model.InitiateResult{
		GatewayOrderID: order.ID,
		Amount:         order.Amount,
		Currency:       order.Currency,
		Token:          token,
	}, nil
}

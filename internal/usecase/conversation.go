package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	domainErrors "github.com/polkiloo/orderhub/internal/domain/errors"
	"github.com/polkiloo/orderhub/internal/domain/model"
	"github.com/polkiloo/orderhub/internal/domain/repository"
)

const (
	unauthorizedReply = "You are not authorized to manage this order. Please contact support or use your registered number."
	noHandoverReply   = "No order is waiting for a handover code."
)

// Conversation turns inbound vendor messages into state machine actions and replies.
type Conversation struct {
	machine     *StateMachine
	orders      repository.OrderRepository
	dispatcher  *Dispatcher
	verifyToken string
	logger      *slog.Logger
}

// NewConversation constructs Conversation.
func NewConversation(
	machine *StateMachine,
	orders repository.OrderRepository,
	dispatcher *Dispatcher,
	verifyToken string,
	logger *slog.Logger,
) *Conversation {
	return &Conversation{
		machine:     machine,
		orders:      orders,
		dispatcher:  dispatcher,
		verifyToken: verifyToken,
		logger:      logger,
	}
}

// VerifyHandshake answers the messaging API subscription challenge.
func (c *Conversation) VerifyHandshake(mode, token, challenge string) (string, error) {
	if mode == "" || c.verifyToken == "" || token != c.verifyToken {
		return "", domainErrors.ErrForbidden
	}
	return challenge, nil
}

// Handle processes one inbound message. Only authorization failures and unexpected errors are returned;
// business outcomes are answered to the sender.
func (c *Conversation) Handle(ctx context.Context, msg model.InboundMessage) error {
	switch {
	case msg.ButtonPayload != "":
		return c.handleButton(ctx, msg)
	case strings.TrimSpace(msg.Text) != "":
		return c.handleCode(ctx, msg)
	default:
		return nil
	}
}

func (c *Conversation) handleButton(ctx context.Context, msg model.InboundMessage) error {
	rawAction, orderID, _ := strings.Cut(msg.ButtonPayload, ":")
	if orderID == "" {
		return nil
	}
	order, err := c.orders.Get(ctx, orderID)
	if errors.Is(err, domainErrors.ErrNotFound) {
		c.logger.Info("button for unknown order", slog.String("order_id", orderID))
		return nil
	}
	if err != nil {
		return err
	}
	label := displayID(order)

	var (
		success  string
		conflict string
	)
	action := model.VendorAction(rawAction)
	switch action {
	case model.ActionAcceptOrder:
		err = c.machine.Accept(ctx, orderID, msg.From)
		success = fmt.Sprintf("Order %s accepted successfully!", label)
		conflict = fmt.Sprintf("Order %s cannot be accepted. It is not in pending state.", label)
	case model.ActionStartPreparing:
		err = c.machine.StartPreparing(ctx, orderID, msg.From)
		success = fmt.Sprintf("Started preparing order %s", label)
		conflict = fmt.Sprintf("Order %s cannot move to preparing. It is not in accepted state.", label)
	case model.ActionPrepared:
		err = c.machine.MarkPrepared(ctx, orderID, msg.From)
		success = fmt.Sprintf("Order %s marked as prepared!", label)
		conflict = fmt.Sprintf("Order %s cannot move to prepared. It is not in preparing state.", label)
	case model.ActionHandOver:
		err = c.machine.BeginHandover(ctx, orderID, msg.From)
		success = fmt.Sprintf("Enter the 6-digit handover code to hand over order %s", label)
	default:
		c.logger.Info("unknown vendor action", slog.String("action", rawAction), slog.String("order_id", orderID))
		return nil
	}

	switch {
	case err == nil:
		c.dispatcher.Reply(ctx, msg.From, success)
		return nil
	case errors.Is(err, domainErrors.ErrVendorUnauthorized):
		c.dispatcher.Reply(ctx, msg.From, unauthorizedReply)
		return err
	case errors.Is(err, domainErrors.ErrMessageExpired):
		c.dispatcher.Reply(ctx, msg.From, fmt.Sprintf("Order %s message limit exceeded.", label))
		return nil
	case errors.Is(err, domainErrors.ErrNotInExpectedState):
		if conflict != "" {
			c.dispatcher.Reply(ctx, msg.From, conflict)
		}
		return nil
	default:
		return err
	}
}

func (c *Conversation) handleCode(ctx context.Context, msg model.InboundMessage) error {
	order, err := c.orders.PendingHandoverForContact(ctx, msg.From)
	if errors.Is(err, domainErrors.ErrNotFound) {
		if _, isCode := parseCode(msg.Text); isCode {
			c.dispatcher.Reply(ctx, msg.From, noHandoverReply)
		}
		return nil
	}
	if err != nil {
		return err
	}
	label := displayID(order)

	err = c.machine.SubmitHandoverCode(ctx, order.ID, msg.From, msg.Text)
	switch {
	case err == nil:
		c.dispatcher.Reply(ctx, msg.From, fmt.Sprintf("Order %s handed over successfully!", label))
		return nil
	case errors.Is(err, domainErrors.ErrInvalidHandoverCode):
		c.dispatcher.Reply(ctx, msg.From, "Invalid code. Try again.")
		return nil
	case errors.Is(err, domainErrors.ErrVendorUnauthorized):
		c.dispatcher.Reply(ctx, msg.From, unauthorizedReply)
		return err
	case errors.Is(err, domainErrors.ErrNotInExpectedState):
		c.dispatcher.Reply(ctx, msg.From, fmt.Sprintf("Order %s cannot be handed over. It is not in prepared state.", label))
		return nil
	default:
		return err
	}
}

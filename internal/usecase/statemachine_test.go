package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainErrors "github.com/polkiloo/orderhub/internal/domain/errors"
	"github.com/polkiloo/orderhub/internal/domain/model"
	"github.com/polkiloo/orderhub/internal/test"
)

func fixtureIn(status model.OrderStatus) test.Fixture {
	f := test.NewFixture()
	f.Order.Status = status
	return f
}

func TestAcceptSendsNextTemplate(t *testing.T) {
	h := newHarness(t)
	f := fixtureIn(model.OrderStatusPending)
	h.put(f)

	require.NoError(t, h.machine.Accept(context.Background(), f.Order.ID, f.Vendor.Contact))

	stored := h.orders.Snapshot(f.Order.ID)
	require.Equal(t, model.OrderStatusAccepted, stored.Status)
	require.NotNil(t, stored.AcceptedAt)

	templates := h.messenger.SentTemplates()
	require.Len(t, templates, 1)
	require.Equal(t, model.TemplateOrderPreparing, templates[0].Template)
	require.Equal(t, "START_PREPARING:"+f.Order.ID, templates[0].ButtonPayload)
	require.Equal(t, "wamid.1", stored.MessageID)
}

func TestStaleTransitionHasNoSideEffects(t *testing.T) {
	h := newHarness(t)
	f := fixtureIn(model.OrderStatusPending)
	h.put(f)

	require.NoError(t, h.machine.Accept(context.Background(), f.Order.ID, f.Vendor.Contact))
	err := h.machine.Accept(context.Background(), f.Order.ID, f.Vendor.Contact)
	require.True(t, errors.Is(err, domainErrors.ErrNotInExpectedState))
	require.Len(t, h.messenger.SentTemplates(), 1)

	err = h.machine.MarkPrepared(context.Background(), f.Order.ID, f.Vendor.Contact)
	require.True(t, errors.Is(err, domainErrors.ErrNotInExpectedState))
	require.Len(t, h.messenger.SentTemplates(), 1)
	require.Equal(t, model.OrderStatusAccepted, h.orders.Snapshot(f.Order.ID).Status)
}

func TestActionsRejectForeignContact(t *testing.T) {
	h := newHarness(t)
	f := fixtureIn(model.OrderStatusPending)
	h.put(f)
	stranger := "+1 555 0100"

	actions := map[string]func() error{
		"accept":    func() error { return h.machine.Accept(context.Background(), f.Order.ID, stranger) },
		"preparing": func() error { return h.machine.StartPreparing(context.Background(), f.Order.ID, stranger) },
		"prepared":  func() error { return h.machine.MarkPrepared(context.Background(), f.Order.ID, stranger) },
		"handover":  func() error { return h.machine.BeginHandover(context.Background(), f.Order.ID, stranger) },
		"code": func() error {
			return h.machine.SubmitHandoverCode(context.Background(), f.Order.ID, stranger, f.Order.HandoverCode)
		},
	}
	for name, action := range actions {
		t.Run(name, func(t *testing.T) {
			require.True(t, errors.Is(action(), domainErrors.ErrVendorUnauthorized))
		})
	}
	require.Equal(t, model.OrderStatusPending, h.orders.Snapshot(f.Order.ID).Status)
	require.Empty(t, h.messenger.SentTemplates())
}

func TestBlockedVendorCannotAct(t *testing.T) {
	h := newHarness(t)
	f := fixtureIn(model.OrderStatusPending)
	f.Vendor.Blocked = true
	h.put(f)

	err := h.machine.Accept(context.Background(), f.Order.ID, f.Vendor.Contact)
	require.True(t, errors.Is(err, domainErrors.ErrVendorUnauthorized))
}

func TestFreshnessWindow(t *testing.T) {
	h := newHarness(t)
	now := time.Now()
	h.machine.now = func() time.Time { return now }

	stale := fixtureIn(model.OrderStatusPending)
	sentAt := now.Add(-6 * time.Minute)
	stale.Order.MessageCreatedAt = &sentAt
	h.put(stale)

	err := h.machine.Accept(context.Background(), stale.Order.ID, stale.Vendor.Contact)
	require.True(t, errors.Is(err, domainErrors.ErrMessageExpired))
	require.Equal(t, model.OrderStatusPending, h.orders.Snapshot(stale.Order.ID).Status)

	preparing := fixtureIn(model.OrderStatusPreparing)
	preparing.Order.MessageCreatedAt = &sentAt
	h.put(preparing)
	require.NoError(t, h.machine.MarkPrepared(context.Background(), preparing.Order.ID, preparing.Vendor.Contact))

	fresh := fixtureIn(model.OrderStatusAccepted)
	recent := now.Add(-4 * time.Minute)
	fresh.Order.MessageCreatedAt = &recent
	h.put(fresh)
	require.NoError(t, h.machine.StartPreparing(context.Background(), fresh.Order.ID, fresh.Vendor.Contact))
}

func TestHandoverCodeFlow(t *testing.T) {
	h := newHarness(t)
	f := fixtureIn(model.OrderStatusPrepared)
	f.Order.HandoverCode = "482913"
	h.put(f)
	ctx := context.Background()

	require.NoError(t, h.machine.BeginHandover(ctx, f.Order.ID, f.Vendor.Contact))

	err := h.machine.SubmitHandoverCode(ctx, f.Order.ID, f.Vendor.Contact, "482914")
	require.True(t, errors.Is(err, domainErrors.ErrInvalidHandoverCode))
	require.Equal(t, model.OrderStatusPrepared, h.orders.Snapshot(f.Order.ID).Status)

	// no lockout after a wrong guess
	require.NoError(t, h.machine.SubmitHandoverCode(ctx, f.Order.ID, f.Vendor.Contact, " 482913 "))
	require.Equal(t, model.OrderStatusOnTheWay, h.orders.Snapshot(f.Order.ID).Status)

	err = h.machine.SubmitHandoverCode(ctx, f.Order.ID, f.Vendor.Contact, "482913")
	require.True(t, errors.Is(err, domainErrors.ErrNotInExpectedState))
}

func TestBeginHandoverRequiresCode(t *testing.T) {
	h := newHarness(t)
	f := fixtureIn(model.OrderStatusPrepared)
	f.Order.HandoverCode = ""
	h.put(f)

	err := h.machine.BeginHandover(context.Background(), f.Order.ID, f.Vendor.Contact)
	require.True(t, errors.Is(err, domainErrors.ErrNotInExpectedState))
}

func TestDeliveryHandleFailureIsRemediated(t *testing.T) {
	h := newHarness(t)
	h.orders.RecordDeliveryErr = errors.New("connection reset")
	f := fixtureIn(model.OrderStatusAccepted)
	h.put(f)

	require.NoError(t, h.machine.StartPreparing(context.Background(), f.Order.ID, f.Vendor.Contact))
	require.Equal(t, model.OrderStatusPreparing, h.orders.Snapshot(f.Order.ID).Status)
	require.Len(t, h.messenger.SentTemplates(), 1)
	require.Equal(t, []model.RemediationKind{model.RemediationDeliveryHandle}, h.remediations.Kinds())
}

func TestFollowUpSendFailureKeepsTransition(t *testing.T) {
	h := newHarness(t)
	h.messenger.TemplateErr = errors.New("rate limited")
	f := fixtureIn(model.OrderStatusPreparing)
	h.put(f)

	require.NoError(t, h.machine.MarkPrepared(context.Background(), f.Order.ID, f.Vendor.Contact))
	require.Equal(t, model.OrderStatusPrepared, h.orders.Snapshot(f.Order.ID).Status)
	require.Equal(t, []model.RemediationKind{model.RemediationDeliveryHandle}, h.remediations.Kinds())
}

func TestHandoverCodeMatches(t *testing.T) {
	cases := []struct {
		stored, submitted string
		want              bool
	}{
		{"482913", "482913", true},
		{"482913", " 482913\n", true},
		{"482913", "0482913", true},
		{"482913", "482914", false},
		{"482913", "48291a", false},
		{"482913", "", false},
		{"", "", false},
		{"482913", "-482913", false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, handoverCodeMatches(tc.stored, tc.submitted), "%q vs %q", tc.stored, tc.submitted)
	}
}

package action_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/action"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/render"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/widget"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/testutil"
)

func newBridge() *action.Bridge {
	return action.NewBridge(widget.Default(), render.New(nil), nil)
}

func balanceCard() map[string]any {
	return map[string]any{
		"type":  "balance_card",
		"title": "Balances",
		"accounts": []any{
			map[string]any{"id": "main", "label": "Main", "balance": map[string]any{"currency": "USD", "amount": 10}},
		},
		"actions": []any{
			map[string]any{"id": "topup", "label": "Top up", "action": "postback", "payload": map[string]any{"intent": "topup"}},
		},
	}
}

func dialog() map[string]any {
	return map[string]any{
		"type":     "confirmation_dialog",
		"title":    "Send money?",
		"body":     "Send $20 to Alice",
		"severity": "warning",
	}
}

func TestRenderWidgetAcknowledges(t *testing.T) {
	tl := newFakeTimeline()

	ack, err := newBridge().RenderWidget(context.Background(), tl, balanceCard())
	require.NoError(t, err)

	assert.Equal(t, action.StatusRendered, ack.Status)
	assert.Equal(t, widget.TypeBalanceCard, ack.WidgetType)
	require.Len(t, tl.Views(), 1)
	assert.Equal(t, ack.ViewID, tl.Views()[0].ID)
	assert.Empty(t, tl.Notices())
}

func TestRenderWidgetPostbackReachesTimeline(t *testing.T) {
	tl := newFakeTimeline()

	_, err := newBridge().RenderWidget(context.Background(), tl, balanceCard())
	require.NoError(t, err)

	require.NoError(t, tl.Views()[0].Trigger("topup", render.Input{}))
	assert.Equal(t, []map[string]any{{"__id": "topup", "__label": "Top up", "intent": "topup"}}, tl.Postbacks())
}

func TestRenderWidgetRejectsInvalid(t *testing.T) {
	tl := newFakeTimeline()
	raw := map[string]any{"type": "balance_card", "title": "Balances", "accounts": []any{}}

	ack, err := newBridge().RenderWidget(context.Background(), tl, raw)
	require.Error(t, err)
	assert.True(t, errors.Is(err, widget.ErrInvalidWidget))

	assert.Equal(t, action.StatusInvalid, ack.Status)
	assert.NotEmpty(t, ack.Reason)
	require.NotNil(t, ack.Error)
	assert.Equal(t, "/accounts", ack.Error.Path)

	assert.Empty(t, tl.Views())
	assert.Equal(t, []notice{{Level: action.NoticeError, Text: action.NoticeInvalidWidget}}, tl.Notices())
}

func TestRenderWidgetClosedTimeline(t *testing.T) {
	tl := newFakeTimeline()
	tl.Close()

	ack, err := newBridge().RenderWidget(context.Background(), tl, balanceCard())
	assert.Nil(t, ack)
	assert.ErrorIs(t, err, action.ErrTimelineClosed)
}

func TestRequestConfirmationConfirm(t *testing.T) {
	tl := newFakeTimeline()
	results := make(chan map[string]any, 1)

	go func() {
		result, err := newBridge().RequestConfirmation(context.Background(), tl, dialog())
		assert.NoError(t, err)
		results <- result
	}()

	testutil.Eventually(t, func() bool { return len(tl.Views()) == 1 })
	require.NoError(t, tl.Views()[0].Trigger("confirm", render.Input{}))

	assert.Equal(t, map[string]any{"confirmed": true}, <-results)
	require.Len(t, tl.Resolved(), 1)
	assert.Equal(t, action.StateConfirmed, tl.Resolved()[0].State())
	assert.Empty(t, tl.Postbacks())
}

func TestRequestConfirmationCancel(t *testing.T) {
	tl := newFakeTimeline()
	c, err := newBridge().Confirm(tl, dialog())
	require.NoError(t, err)
	assert.Equal(t, action.StatePending, c.State())

	require.NoError(t, c.View.Trigger("cancel", render.Input{}))

	result, err := c.Await(context.Background(), tl.Done())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"confirmed": false}, result)
	assert.Equal(t, action.StateCancelled, c.State())
}

func TestRequestConfirmationInvalidDialog(t *testing.T) {
	tl := newFakeTimeline()
	raw := map[string]any{"type": "confirmation_dialog", "title": "Missing body"}

	result, err := newBridge().RequestConfirmation(context.Background(), tl, raw)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"confirmed": false, "reason": action.ReasonInvalidDialog}, result)
	assert.Empty(t, tl.Views())
	assert.Equal(t, []notice{{Level: action.NoticeError, Text: action.NoticeInvalidDialog}}, tl.Notices())
}

func TestRequestConfirmationRejectsOtherWidgets(t *testing.T) {
	tl := newFakeTimeline()

	c, err := newBridge().Confirm(tl, balanceCard())
	require.NoError(t, err)
	assert.Equal(t, action.StateInvalid, c.State())
	assert.Empty(t, tl.Views())
}

func TestRequestConfirmationDoubleClick(t *testing.T) {
	tl := newFakeTimeline()
	c, err := newBridge().Confirm(tl, dialog())
	require.NoError(t, err)

	require.NoError(t, c.View.Trigger("confirm", render.Input{}))
	require.NoError(t, c.View.Trigger("cancel", render.Input{}))
	require.NoError(t, c.View.Trigger("confirm", render.Input{}))

	result, ok := c.Result()
	require.True(t, ok)
	assert.Equal(t, map[string]any{"confirmed": true}, result)
	assert.Len(t, tl.shown, 1)
	assert.Len(t, tl.Resolved(), 1)
}

func TestRequestConfirmationConcurrentClicks(t *testing.T) {
	tl := newFakeTimeline()
	c, err := newBridge().Confirm(tl, dialog())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		actionID := "confirm"
		if i%2 == 1 {
			actionID = "cancel"
		}
		go func(actionID string) {
			defer wg.Done()
			_ = c.View.Trigger(actionID, render.Input{})
		}(actionID)
	}
	wg.Wait()

	assert.True(t, c.State().Terminal())
	assert.Len(t, tl.Resolved(), 1)
}

func TestRequestConfirmationContextCancelKeepsPending(t *testing.T) {
	tl := newFakeTimeline()
	c, err := newBridge().Confirm(tl, dialog())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = c.Await(ctx, tl.Done())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, action.StatePending, c.State())

	// the user can still answer after the agent stopped waiting
	require.NoError(t, c.View.Trigger("confirm", render.Input{}))
	assert.Equal(t, action.StateConfirmed, c.State())
}

func TestRequestConfirmationTimelineClosed(t *testing.T) {
	tl := newFakeTimeline()
	c, err := newBridge().Confirm(tl, dialog())
	require.NoError(t, err)

	tl.Close()
	_, err = c.Await(context.Background(), tl.Done())
	assert.ErrorIs(t, err, action.ErrTimelineClosed)
	assert.Equal(t, action.StatePending, c.State())
}

func TestRequestConfirmationExplicitActions(t *testing.T) {
	tl := newFakeTimeline()
	raw := dialog()
	raw["actions"] = []any{
		map[string]any{"id": "approve", "label": "Approve", "action": "postback", "payload": map[string]any{"confirmed": true, "amount": 20}},
		map[string]any{"id": "reject", "label": "Reject", "action": "postback", "payload": map[string]any{"confirmed": false}},
	}

	c, err := newBridge().Confirm(tl, raw)
	require.NoError(t, err)
	require.NoError(t, c.View.Trigger("reject", render.Input{}))

	result, _ := c.Result()
	assert.Equal(t, action.StateCancelled, c.State())
	assert.Equal(t, false, result["confirmed"])
	assert.Equal(t, "reject", result["__id"])
}

package transaction

import (
	"context"

	"quarry/engine/logging"
)

const (
	// EventFrameOpened is emitted when the tracker opens a transaction frame.
	EventFrameOpened logging.EventType = "frame.opened"
	// EventFrameClosed is emitted when a transaction frame commits or reverts.
	EventFrameClosed logging.EventType = "frame.closed"
	// EventJournalDrained is emitted when staged patches are handed downstream.
	EventJournalDrained logging.EventType = "journal.drained"
)

// FrameOpenedPayload identifies the cause that opened a frame.
type FrameOpenedPayload struct {
	Cause string `json:"cause"`
}

// FrameOpened publishes a debug event when a transaction frame opens.
func FrameOpened(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload FrameOpenedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventFrameOpened,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryTransaction,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// FrameClosedPayload records how a frame ended and how many records it held.
type FrameClosedPayload struct {
	Cause   string `json:"cause"`
	Outcome string `json:"outcome"`
	Records int    `json:"records"`
}

// FrameClosed publishes a debug event when a transaction frame closes.
func FrameClosed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload FrameClosedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventFrameClosed,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryTransaction,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

// JournalDrainedPayload summarises a patch hand-off to downstream consumers.
type JournalDrainedPayload struct {
	Patches   int `json:"patches"`
	Keyframes int `json:"keyframes,omitempty"`
}

// JournalDrained publishes an info event when the journal is drained.
func JournalDrained(ctx context.Context, pub logging.Publisher, tick uint64, payload JournalDrainedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventJournalDrained,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindWorld},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryTransaction,
		Payload:  payload,
		Extra:    extra,
	}
	pub.Publish(ctx, event)
}

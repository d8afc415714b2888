package availability

import (
	"context"
	"log/slog"
	"time"

	"stayengine/internal/app/dto"
	"stayengine/internal/app/handlers/support"
	domainavailability "stayengine/internal/domain/availability"
	"stayengine/internal/domain/listings"
	"stayengine/internal/domain/shared/daterange"
)

const (
	addBlockKey    = "availability.block.add"
	removeBlockKey = "availability.block.remove"
)

type AddBlockCommand struct {
	PropertyID string              `validate:"required"`
	HostID     string              `validate:"required"`
	Range      daterange.DateRange `validate:"-"`
	Reason     string              `validate:"max=200"`
}

func (c AddBlockCommand) Key() string { return addBlockKey }

func (c AddBlockCommand) ScopedProperty() listings.PropertyID {
	return listings.PropertyID(c.PropertyID)
}

func (c AddBlockCommand) ScopedHost() listings.HostID { return listings.HostID(c.HostID) }

type RemoveBlockCommand struct {
	PropertyID string              `validate:"required"`
	HostID     string              `validate:"required"`
	Range      daterange.DateRange `validate:"-"`
}

func (c RemoveBlockCommand) Key() string { return removeBlockKey }

func (c RemoveBlockCommand) ScopedProperty() listings.PropertyID {
	return listings.PropertyID(c.PropertyID)
}

func (c RemoveBlockCommand) ScopedHost() listings.HostID { return listings.HostID(c.HostID) }

type RemoveBlockResult struct {
	Blocks []dto.Block `json:"blocks"`
}

// BlockHandler applies host blocks. Host ownership is checked by the
// authorization middleware before the command reaches it.
type BlockHandler struct {
	Calendars *support.CalendarWriter
	Clock     support.Clock
	Logger    *slog.Logger
}

func (h *BlockHandler) Add(ctx context.Context, cmd AddBlockCommand) (*dto.Block, error) {
	if err := cmd.Range.Validate(); err != nil {
		return nil, err
	}
	now := h.now()
	var block domainavailability.Block
	_, err := h.Calendars.Update(ctx, listings.PropertyID(cmd.PropertyID), func(cal *domainavailability.Calendar) error {
		var err error
		block, err = cal.AddBlock(cmd.Range, cmd.Reason, listings.HostID(cmd.HostID), now)
		return err
	})
	if err != nil {
		return nil, err
	}
	h.logger().InfoContext(ctx, "dates blocked", "property_id", cmd.PropertyID, "range", block.Range.String(), "reason", block.Reason)
	out := dto.MapBlock(cmd.PropertyID, block)
	return &out, nil
}

func (h *BlockHandler) Remove(ctx context.Context, cmd RemoveBlockCommand) (*RemoveBlockResult, error) {
	if err := cmd.Range.Validate(); err != nil {
		return nil, err
	}
	now := h.now()
	cal, err := h.Calendars.Update(ctx, listings.PropertyID(cmd.PropertyID), func(cal *domainavailability.Calendar) error {
		return cal.RemoveBlock(cmd.Range, now)
	})
	if err != nil {
		return nil, err
	}
	h.logger().InfoContext(ctx, "dates released", "property_id", cmd.PropertyID, "range", cmd.Range.String(), "remaining_blocks", len(cal.Blocks))
	res := &RemoveBlockResult{Blocks: make([]dto.Block, 0, len(cal.Blocks))}
	for _, b := range cal.Blocks {
		res.Blocks = append(res.Blocks, dto.MapBlock(cmd.PropertyID, b))
	}
	return res, nil
}

func (h *BlockHandler) now() time.Time {
	if h.Clock != nil {
		return h.Clock()
	}
	return support.SystemClock()
}

func (h *BlockHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

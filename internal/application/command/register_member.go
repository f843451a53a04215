// Package command contains the ledger's write operations (CQRS - Commands).
// Every command registers its member first, validates before mutating and
// publishes domain events after the write has committed.
package command

import (
	"context"
	"fmt"

	"github.com/fitcrew/trainer-hub/internal/domain/member"
	"github.com/fitcrew/trainer-hub/internal/domain/shared"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER MEMBER COMMAND
// Members are created on their first interaction; a later call with a
// nickname renames them.
// ══════════════════════════════════════════════════════════════════════════════

// RegisterMemberCommand contains the data to register or rename a member.
type RegisterMemberCommand struct {
	MemberID string
	Nickname string
}

// Validate validates the command.
func (c RegisterMemberCommand) Validate() error {
	return member.ValidateID(c.MemberID)
}

// RegisterMemberResult contains the result of registering a member.
type RegisterMemberResult struct {
	Member  *member.Member
	Created bool
	Events  []shared.Event
}

// RegisterMemberHandler handles the RegisterMemberCommand.
type RegisterMemberHandler struct {
	members        member.Repository
	cal            *calendar.Calendar
	eventPublisher shared.EventPublisher
}

// NewRegisterMemberHandler creates a new RegisterMemberHandler.
func NewRegisterMemberHandler(members member.Repository, cal *calendar.Calendar, eventPublisher shared.EventPublisher) *RegisterMemberHandler {
	return &RegisterMemberHandler{
		members:        members,
		cal:            cal,
		eventPublisher: shared.PublisherOrNop(eventPublisher),
	}
}

// Handle executes the register member command.
func (h *RegisterMemberHandler) Handle(ctx context.Context, cmd RegisterMemberCommand) (*RegisterMemberResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	at := h.cal.Now()

	m, created, err := h.members.Register(ctx, cmd.MemberID, member.NormalizeNickname(cmd.Nickname), at)
	if err != nil {
		return nil, fmt.Errorf("register_member: %w", err)
	}

	result := &RegisterMemberResult{Member: m, Created: created}
	if created {
		event := shared.NewMemberRegisteredEvent(m.ID, m.Nickname, at)
		result.Events = append(result.Events, event)
		_ = h.eventPublisher.Publish(event)
	}
	return result, nil
}

// ensure registers a member as a side step of another command.
func (h *RegisterMemberHandler) ensure(ctx context.Context, memberID, nickname string) error {
	_, err := h.Handle(ctx, RegisterMemberCommand{MemberID: memberID, Nickname: nickname})
	return err
}

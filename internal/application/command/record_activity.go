package command

import (
	"context"
	"fmt"
	"time"

	"github.com/fitcrew/trainer-hub/internal/domain/activity"
	"github.com/fitcrew/trainer-hub/internal/domain/member"
	"github.com/fitcrew/trainer-hub/internal/domain/shared"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD ACTIVITY COMMANDS
// Exercise and diet credits from any detection channel. Exercise is capped
// at one per day, so duplicate triggers from two channels are harmless.
// ══════════════════════════════════════════════════════════════════════════════

// RecordExerciseCommand credits one exercise day.
type RecordExerciseCommand struct {
	MemberID string
	Nickname string
	Date     calendar.Date // zero means today
	Source   activity.Source
}

// RecordDietCommand counts one diet post.
type RecordDietCommand struct {
	MemberID string
	Nickname string
	Date     calendar.Date // zero means today
}

// RecordVoiceSessionCommand credits exercise for a long enough stay in a
// workout voice channel, on the local date the member left.
type RecordVoiceSessionCommand struct {
	MemberID string
	Nickname string
	JoinedAt time.Time
	LeftAt   time.Time
}

// RecordActivityResult contains the counter after the command.
type RecordActivityResult struct {
	Date  calendar.Date
	Count int

	// Credited is false when the exercise cap or the voice session rule
	// swallowed the credit.
	Credited bool

	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RecordActivityHandlerConfig contains configuration for the handler.
type RecordActivityHandlerConfig struct {
	VoiceMinDuration time.Duration
}

// DefaultRecordActivityHandlerConfig returns default configuration.
func DefaultRecordActivityHandlerConfig() RecordActivityHandlerConfig {
	return RecordActivityHandlerConfig{VoiceMinDuration: activity.DefaultVoiceMinDuration}
}

// RecordActivityHandler handles the three activity commands.
type RecordActivityHandler struct {
	members        *RegisterMemberHandler
	ledger         activity.Repository
	cal            *calendar.Calendar
	eventPublisher shared.EventPublisher
	config         RecordActivityHandlerConfig
}

// NewRecordActivityHandler creates a new RecordActivityHandler.
func NewRecordActivityHandler(
	members *RegisterMemberHandler,
	ledger activity.Repository,
	cal *calendar.Calendar,
	eventPublisher shared.EventPublisher,
	config RecordActivityHandlerConfig,
) *RecordActivityHandler {
	if config.VoiceMinDuration <= 0 {
		config = DefaultRecordActivityHandlerConfig()
	}
	return &RecordActivityHandler{
		members:        members,
		ledger:         ledger,
		cal:            cal,
		eventPublisher: shared.PublisherOrNop(eventPublisher),
		config:         config,
	}
}

func (h *RecordActivityHandler) dateOrToday(d calendar.Date) calendar.Date {
	if d.IsZero() {
		return h.cal.Today()
	}
	return d
}

// HandleExercise executes the record exercise command.
func (h *RecordActivityHandler) HandleExercise(ctx context.Context, cmd RecordExerciseCommand) (*RecordActivityResult, error) {
	if err := member.ValidateID(cmd.MemberID); err != nil {
		return nil, err
	}
	if cmd.Source == "" {
		cmd.Source = activity.SourceManual
	}
	if err := h.members.ensure(ctx, cmd.MemberID, cmd.Nickname); err != nil {
		return nil, err
	}
	return h.creditExercise(ctx, cmd.MemberID, h.dateOrToday(cmd.Date), cmd.Source)
}

// creditExercise reads the day first only to tell the caller whether this
// call made the credit; the cap itself is enforced by the store.
func (h *RecordActivityHandler) creditExercise(ctx context.Context, memberID string, date calendar.Date, source activity.Source) (*RecordActivityResult, error) {
	before, err := h.ledger.Count(ctx, memberID, activity.KindExercise, date)
	if err != nil {
		return nil, fmt.Errorf("record_exercise: %w", err)
	}
	count, err := h.ledger.RecordExercise(ctx, memberID, date)
	if err != nil {
		return nil, fmt.Errorf("record_exercise: %w", err)
	}

	result := &RecordActivityResult{Date: date, Count: count, Credited: count > before}
	event := shared.NewExerciseRecordedEvent(memberID, date.String(), count, result.Credited, string(source), h.cal.Now())
	result.Events = append(result.Events, event)
	_ = h.eventPublisher.Publish(event)
	return result, nil
}

// HandleDiet executes the record diet command.
func (h *RecordActivityHandler) HandleDiet(ctx context.Context, cmd RecordDietCommand) (*RecordActivityResult, error) {
	if err := member.ValidateID(cmd.MemberID); err != nil {
		return nil, err
	}
	if err := h.members.ensure(ctx, cmd.MemberID, cmd.Nickname); err != nil {
		return nil, err
	}

	date := h.dateOrToday(cmd.Date)
	count, err := h.ledger.RecordDiet(ctx, cmd.MemberID, date)
	if err != nil {
		return nil, fmt.Errorf("record_diet: %w", err)
	}

	result := &RecordActivityResult{Date: date, Count: count, Credited: true}
	event := shared.NewDietRecordedEvent(cmd.MemberID, date.String(), count, h.cal.Now())
	result.Events = append(result.Events, event)
	_ = h.eventPublisher.Publish(event)
	return result, nil
}

// HandleVoiceSession executes the record voice session command.
func (h *RecordActivityHandler) HandleVoiceSession(ctx context.Context, cmd RecordVoiceSessionCommand) (*RecordActivityResult, error) {
	if err := member.ValidateID(cmd.MemberID); err != nil {
		return nil, err
	}
	session := activity.VoiceSession{JoinedAt: cmd.JoinedAt, LeftAt: cmd.LeftAt}
	if err := session.Validate(); err != nil {
		return nil, err
	}
	if err := h.members.ensure(ctx, cmd.MemberID, cmd.Nickname); err != nil {
		return nil, err
	}

	date := h.cal.DateOf(cmd.LeftAt)
	if !session.Qualifies(h.config.VoiceMinDuration) {
		count, err := h.ledger.Count(ctx, cmd.MemberID, activity.KindExercise, date)
		if err != nil {
			return nil, fmt.Errorf("record_voice_session: %w", err)
		}
		return &RecordActivityResult{Date: date, Count: count}, nil
	}
	return h.creditExercise(ctx, cmd.MemberID, date, activity.SourceVoice)
}

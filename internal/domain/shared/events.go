package shared

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of domain event.
type EventType string

const (
	// Member events
	EventMemberRegistered EventType = "member.registered"

	// Goal events
	EventGoalSet         EventType = "goal.set"
	EventGoalDeactivated EventType = "goal.deactivated"
	EventWeightReported  EventType = "goal.weight_reported"

	// Ledger events
	EventExerciseRecorded EventType = "ledger.exercise_recorded"
	EventDietRecorded     EventType = "ledger.diet_recorded"

	// Reconciliation events
	EventWeeklyStatusRecorded EventType = "reconciliation.weekly_status_recorded"
	EventBadgeAwarded         EventType = "badge.awarded"
	EventTrophyAwarded        EventType = "trophy.awarded"
)

// Event is the base interface for all domain events.
type Event interface {
	EventID() string
	EventType() EventType
	OccurredAt() time.Time
	// AggregateID is the member the event is about.
	AggregateID() string
	Payload() map[string]any
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

func (e BaseEvent) EventID() string       { return e.ID }
func (e BaseEvent) EventType() EventType  { return e.Type }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) AggregateID() string   { return e.AggregateId }

// NewBaseEvent creates a new base event stamped at the given instant.
func NewBaseEvent(eventType EventType, aggregateID string, at time.Time) BaseEvent {
	return BaseEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		Timestamp:   at,
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Member Events
// ═══════════════════════════════════════════════════════════════════════════

type MemberRegisteredEvent struct {
	BaseEvent
	Nickname string `json:"nickname"`
}

func (e MemberRegisteredEvent) Payload() map[string]any {
	return map[string]any{"nickname": e.Nickname}
}

func NewMemberRegisteredEvent(memberID, nickname string, at time.Time) MemberRegisteredEvent {
	return MemberRegisteredEvent{
		BaseEvent: NewBaseEvent(EventMemberRegistered, memberID, at),
		Nickname:  nickname,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Goal Events
// ═══════════════════════════════════════════════════════════════════════════

// GoalSetEvent is emitted when a goal replaces the previous active one.
type GoalSetEvent struct {
	BaseEvent
	GoalID int64          `json:"goal_id"`
	Kind   string         `json:"kind"`
	Spec   map[string]any `json:"spec"`
}

func (e GoalSetEvent) Payload() map[string]any {
	return map[string]any{
		"goal_id": e.GoalID,
		"kind":    e.Kind,
		"spec":    e.Spec,
	}
}

func NewGoalSetEvent(memberID string, goalID int64, kind string, spec map[string]any, at time.Time) GoalSetEvent {
	return GoalSetEvent{
		BaseEvent: NewBaseEvent(EventGoalSet, memberID, at),
		GoalID:    goalID,
		Kind:      kind,
		Spec:      spec,
	}
}

type GoalDeactivatedEvent struct {
	BaseEvent
	Kind string `json:"kind"`
}

func (e GoalDeactivatedEvent) Payload() map[string]any {
	return map[string]any{"kind": e.Kind}
}

func NewGoalDeactivatedEvent(memberID, kind string, at time.Time) GoalDeactivatedEvent {
	return GoalDeactivatedEvent{
		BaseEvent: NewBaseEvent(EventGoalDeactivated, memberID, at),
		Kind:      kind,
	}
}

// WeightReportedEvent is emitted when a weigh-in updates the active weight goal.
type WeightReportedEvent struct {
	BaseEvent
	Weight   float64 `json:"weight"`
	Target   float64 `json:"target"`
	Achieved bool    `json:"achieved"`
}

func (e WeightReportedEvent) Payload() map[string]any {
	return map[string]any{
		"weight":   e.Weight,
		"target":   e.Target,
		"achieved": e.Achieved,
	}
}

func NewWeightReportedEvent(memberID string, weight, target float64, achieved bool, at time.Time) WeightReportedEvent {
	return WeightReportedEvent{
		BaseEvent: NewBaseEvent(EventWeightReported, memberID, at),
		Weight:    weight,
		Target:    target,
		Achieved:  achieved,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Ledger Events
// ═══════════════════════════════════════════════════════════════════════════

// ActivityRecordedEvent is emitted for every exercise or diet credit attempt.
// Changed is false when the daily cap swallowed the credit.
type ActivityRecordedEvent struct {
	BaseEvent
	Date    string `json:"date"`
	Count   int    `json:"count"`
	Changed bool   `json:"changed"`
	Source  string `json:"source,omitempty"`
}

func (e ActivityRecordedEvent) Payload() map[string]any {
	return map[string]any{
		"date":    e.Date,
		"count":   e.Count,
		"changed": e.Changed,
		"source":  e.Source,
	}
}

func NewExerciseRecordedEvent(memberID, date string, count int, changed bool, source string, at time.Time) ActivityRecordedEvent {
	return ActivityRecordedEvent{
		BaseEvent: NewBaseEvent(EventExerciseRecorded, memberID, at),
		Date:      date,
		Count:     count,
		Changed:   changed,
		Source:    source,
	}
}

func NewDietRecordedEvent(memberID, date string, count int, at time.Time) ActivityRecordedEvent {
	return ActivityRecordedEvent{
		BaseEvent: NewBaseEvent(EventDietRecorded, memberID, at),
		Date:      date,
		Count:     count,
		Changed:   true,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Reconciliation Events
// ═══════════════════════════════════════════════════════════════════════════

type WeeklyStatusRecordedEvent struct {
	BaseEvent
	WeekStart        string `json:"week_start"`
	AchievedExercise bool   `json:"achieved_exercise"`
	AchievedDiet     bool   `json:"achieved_diet"`
	AchievedWeight   bool   `json:"achieved_weight"`
	WeightUpdated    bool   `json:"weight_updated"`
}

func (e WeeklyStatusRecordedEvent) Payload() map[string]any {
	return map[string]any{
		"week_start":        e.WeekStart,
		"achieved_exercise": e.AchievedExercise,
		"achieved_diet":     e.AchievedDiet,
		"achieved_weight":   e.AchievedWeight,
		"weight_updated":    e.WeightUpdated,
	}
}

func NewWeeklyStatusRecordedEvent(memberID, weekStart string, exercise, diet, weight, weightUpdated bool, at time.Time) WeeklyStatusRecordedEvent {
	return WeeklyStatusRecordedEvent{
		BaseEvent:        NewBaseEvent(EventWeeklyStatusRecorded, memberID, at),
		WeekStart:        weekStart,
		AchievedExercise: exercise,
		AchievedDiet:     diet,
		AchievedWeight:   weight,
		WeightUpdated:    weightUpdated,
	}
}

// AwardEvent is emitted for each badge or trophy handed out.
type AwardEvent struct {
	BaseEvent
	Badge  string `json:"badge"` // weekly, bikini, monthly
	Period string `json:"period"`
}

func (e AwardEvent) Payload() map[string]any {
	return map[string]any{
		"badge":  e.Badge,
		"period": e.Period,
	}
}

func NewBadgeAwardedEvent(memberID, badge, period string, at time.Time) AwardEvent {
	return AwardEvent{
		BaseEvent: NewBaseEvent(EventBadgeAwarded, memberID, at),
		Badge:     badge,
		Period:    period,
	}
}

func NewTrophyAwardedEvent(memberID, yearMonth string, at time.Time) AwardEvent {
	return AwardEvent{
		BaseEvent: NewBaseEvent(EventTrophyAwarded, memberID, at),
		Badge:     "monthly",
		Period:    yearMonth,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// ToEnvelope serializes an event's payload into an envelope.
func ToEnvelope(event Event) (EventEnvelope, error) {
	payload, err := json.Marshal(event.Payload())
	if err != nil {
		return EventEnvelope{}, err
	}
	env := EventEnvelope{
		ID:          event.EventID(),
		Type:        event.EventType(),
		AggregateID: event.AggregateID(),
		Timestamp:   event.OccurredAt(),
		Version:     1,
		Payload:     payload,
	}
	if b, ok := event.(interface{ baseEvent() BaseEvent }); ok {
		env.Version = b.baseEvent().Version
		env.CorrelationID = b.baseEvent().CorrelationID
	}
	return env, nil
}

func (e BaseEvent) baseEvent() BaseEvent { return e }

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	Subscribe(eventType EventType, handler EventHandler) error
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) error { return nil }

// PublisherOrNop returns p, or a NopPublisher when p is nil.
func PublisherOrNop(p EventPublisher) EventPublisher {
	if p == nil {
		return NopPublisher{}
	}
	return p
}

package eventhandler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fitcrew/trainer-hub/internal/application/eventhandler"
	"github.com/fitcrew/trainer-hub/internal/domain/leaderboard"
	"github.com/fitcrew/trainer-hub/internal/domain/shared"
	"github.com/fitcrew/trainer-hub/internal/infrastructure/messaging"
	"github.com/fitcrew/trainer-hub/pkg/logger"
)

type fakeCache struct {
	invalidations int
	err           error
}

func (c *fakeCache) GetBadgeTop(context.Context, int) ([]leaderboard.Entry, bool, error) {
	return nil, false, nil
}

func (c *fakeCache) SetBadgeTop(context.Context, int, []leaderboard.Entry, time.Duration) error {
	return nil
}

func (c *fakeCache) InvalidateBadgeTop(context.Context) error {
	c.invalidations++
	return c.err
}

type forwarder struct{ got []shared.EventType }

func (f *forwarder) Publish(e shared.Event) error {
	f.got = append(f.got, e.EventType())
	return nil
}

func TestRegister_Wiring(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := logger.FromZap(zap.New(core))

	bus := messaging.NewInMemoryEventBus(messaging.InMemoryEventBusConfig{Logger: log})
	defer bus.Close()

	cache := &fakeCache{}
	fwd := &forwarder{}
	require.NoError(t, eventhandler.Register(bus, cache, fwd, log))

	at := time.Date(2024, 2, 11, 23, 0, 0, 0, time.UTC)
	require.NoError(t, bus.Publish(shared.NewBadgeAwardedEvent("u1", "weekly", "2024-02-05", at)))
	require.NoError(t, bus.Publish(shared.NewTrophyAwardedEvent("u1", "2024-02", at)))
	require.NoError(t, bus.Publish(shared.NewDietRecordedEvent("u1", "2024-02-05", 1, at)))

	assert.Equal(t, 2, cache.invalidations)
	assert.Equal(t, []shared.EventType{
		shared.EventBadgeAwarded, shared.EventTrophyAwarded, shared.EventDietRecorded,
	}, fwd.got)
	assert.Equal(t, 3, logs.FilterMessage("domain event").Len())
}

func TestOnAwardHandler(t *testing.T) {
	at := time.Now()

	h := eventhandler.NewOnAwardHandler(nil, nil)
	assert.NoError(t, h.Handle(shared.NewBadgeAwardedEvent("u1", "bikini", "2024-02-05", at)))

	cache := &fakeCache{err: errors.New("redis down")}
	h = eventhandler.NewOnAwardHandler(cache, nil)
	assert.Error(t, h.Handle(shared.NewBadgeAwardedEvent("u1", "bikini", "2024-02-05", at)))
	assert.NoError(t, h.Handle(shared.NewDietRecordedEvent("u1", "2024-02-05", 1, at)), "other events are ignored")
	assert.Equal(t, 1, cache.invalidations)
}

package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venue-checkin/internal/config"
	"github.com/iliyamo/venue-checkin/internal/model"
	"github.com/iliyamo/venue-checkin/internal/queue"
	"github.com/iliyamo/venue-checkin/internal/testutil"
)

var day = model.NewDate(2025, 3, 14)

func TestRoom(t *testing.T) {
	assert.Equal(t, "venue:7:2025-03-14", Room(7, day))

	ev := NewRefreshEvent(7, day, "guest_list", time.Date(2025, 3, 14, 23, 0, 0, 0, time.UTC))
	assert.Equal(t, queue.RefreshEventName, ev.Event)
	assert.Equal(t, "venue:7:2025-03-14", ev.Room)
	assert.NotEmpty(t, ev.ID)
	assert.NotEqual(t, ev.ID, NewRefreshEvent(7, day, "guest_list", time.Now()).ID)
}

func TestMQTTTopic(t *testing.T) {
	ev := NewRefreshEvent(7, day, "reservation", time.Now())
	assert.Equal(t, "venues/7/2025-03-14", mqttTopic("venues", ev))
	assert.Equal(t, "7/2025-03-14", mqttTopic("", ev))
}

type fakePublisher struct {
	channel string
	message []byte
	err     error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	f.channel = channel
	f.message, _ = message.([]byte)
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal(1)
	}
	return cmd
}

func TestRedisEmitter(t *testing.T) {
	pub := &fakePublisher{}
	e := &RedisEmitter{client: pub, prefix: "realtime"}
	ev := NewRefreshEvent(7, day, "guest_list", time.Now())

	require.NoError(t, e.Emit(context.Background(), ev))
	assert.Equal(t, "realtime:venue:7:2025-03-14", pub.channel)

	var decoded queue.RefreshEvent
	require.NoError(t, json.Unmarshal(pub.message, &decoded))
	assert.Equal(t, ev.ID, decoded.ID)

	pub.err = errors.New("connection reset")
	assert.Error(t, e.Emit(context.Background(), ev))
}

func TestNewEmitterSelection(t *testing.T) {
	e, err := NewEmitter(config.RealtimeConfig{Transport: "log"}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &LogEmitter{}, e)

	e, err = NewEmitter(config.RealtimeConfig{Transport: "amqp", AMQPURL: "amqp://localhost/", Exchange: "x"}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &AMQPEmitter{}, e)

	_, err = NewEmitter(config.RealtimeConfig{Transport: "redis"}, nil, nil)
	assert.Error(t, err)

	_, err = NewEmitter(config.RealtimeConfig{Transport: "carrier-pigeon"}, nil, nil)
	assert.Error(t, err)
}

// inlineDispatcher runs tasks synchronously.
type inlineDispatcher struct{}

func (inlineDispatcher) Submit(t queue.Task) error {
	t(context.Background())
	return nil
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []queue.RefreshEvent
}

func (r *recordingEmitter) Emit(_ context.Context, ev queue.RefreshEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingEmitter) Close() error { return nil }

func TestRefresherResolvesRooms(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.Reservation(t, db, model.ReservationBottle, 20, 7, day, 8, "Owner", nil)
	listID := testutil.GuestList(t, db, model.ReservationBottle, 20, nil)
	testutil.Event(t, db, 99, testutil.Ptr(uint64(7)), "", &day, model.EventOneTime)
	testutil.Event(t, db, 100, nil, "", nil, model.EventWeekly)

	rec := &recordingEmitter{}
	r := NewRefresher(db, inlineDispatcher{}, rec, nil, nil)

	r.GuestListChanged(listID)
	r.ReservationChanged(model.ReservationBottle, 20)
	r.EventChanged(99)
	// orphans are skipped
	r.GuestListChanged(404)
	r.ReservationChanged(model.ReservationTable, 404)
	r.EventChanged(100)

	require.Len(t, rec.events, 3)
	for _, ev := range rec.events {
		assert.Equal(t, "venue:7:2025-03-14", ev.Room)
	}
	assert.Equal(t, "guest_list", rec.events[0].Reason)
	assert.Equal(t, "reservation", rec.events[1].Reason)
	assert.Equal(t, "event", rec.events[2].Reason)
}

func TestRefresherOnDispatcher(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.Reservation(t, db, model.ReservationTable, 10, 7, day, 3, "Owner", nil)

	rec := &recordingEmitter{}
	d := queue.NewDispatcher(2, 8, nil, nil)
	r := NewRefresher(db, d, rec, nil, nil)
	r.ReservationChanged(model.ReservationTable, 10)
	require.NoError(t, d.Close(context.Background()))

	require.Len(t, rec.events, 1)
	assert.Equal(t, "venue:7:2025-03-14", rec.events[0].Room)
}

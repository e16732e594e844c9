package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"course-admin-gateway/internal/core/ports"
	"course-admin-gateway/internal/core/ports/mocks"
	"course-admin-gateway/internal/monitoring"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestEventPublisher_DeliversQueuedEventsOnClose(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSenderService(ctrl)
	pub := NewEventPublisher(sender, 4, nil, newTestLogger())

	var mu sync.Mutex
	var got []string
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req ports.SendRequest) (*ports.SendSummary, error) {
			mu.Lock()
			got = append(got, req.EventType)
			mu.Unlock()
			return &ports.SendSummary{}, nil
		}).Times(3)

	pub.Start(context.Background())
	require.True(t, pub.Publish("enrollment.created", map[string]string{"id": "1"}))
	require.True(t, pub.Publish("enrollment.updated", map[string]string{"id": "1"}))
	require.True(t, pub.Publish("enrollment.canceled", map[string]string{"id": "1"}))
	pub.Close()

	assert.Equal(t, []string{"enrollment.created", "enrollment.updated", "enrollment.canceled"}, got)
}

func TestEventPublisher_PayloadEncoded(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSenderService(ctrl)
	pub := NewEventPublisher(sender, 1, nil, newTestLogger())

	sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req ports.SendRequest) (*ports.SendSummary, error) {
			assert.JSONEq(t, `{"course":"c1"}`, string(req.Data))
			assert.Empty(t, req.ConfigIDs)
			return nil, errors.New("ignored")
		})

	pub.Start(context.Background())
	pub.Publish("x", map[string]string{"course": "c1"})
	pub.Close()
}

func TestEventPublisher_PublishAfterCloseIsDropped(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := monitoring.New()
	pub := NewEventPublisher(mocks.NewMockSenderService(ctrl), 1, m, newTestLogger())
	pub.Start(context.Background())
	pub.Close()

	assert.False(t, pub.Publish("late", nil))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PublisherDropped))
	assert.NotPanics(t, pub.Close)
}

func TestEventPublisher_FullQueueDrops(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSenderService(ctrl)
	pub := NewEventPublisher(sender, 1, nil, newTestLogger())

	// not started: the single slot fills and the next publish is refused
	assert.True(t, pub.Publish("a", 1))
	assert.False(t, pub.Publish("b", 2))
	pub.Close()
}

func TestEventPublisher_UnencodableData(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := NewEventPublisher(mocks.NewMockSenderService(ctrl), 1, nil, newTestLogger())

	assert.False(t, pub.Publish("bad", make(chan int)))
}

func TestEventPublisher_StartTwiceRunsOneWorker(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockSenderService(ctrl)
	pub := NewEventPublisher(sender, 2, nil, newTestLogger())

	done := make(chan struct{})
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, ports.SendRequest) (*ports.SendSummary, error) {
			close(done)
			return &ports.SendSummary{}, nil
		})

	pub.Start(context.Background())
	pub.Start(context.Background())
	pub.Publish("once", nil)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered in time")
	}
	pub.Close()
}

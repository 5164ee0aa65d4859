package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"archie-core-commerce-sync/internal/domain"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	writer := &fakeWriter{}
	p := newKafkaPublisher(writer, "commerce.events", zerolog.Nop())

	integrationID := "int-7"
	event := &domain.CanonicalEvent{
		ID:            "evt-1",
		Platform:      domain.PlatformShopify,
		IntegrationID: &integrationID,
		Kind:          domain.EventKindOrder,
		Action:        domain.ActionCreate,
		ReceivedAt:    time.Now(),
	}
	require.NoError(t, p.Publish(context.Background(), event))
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "commerce.events", msg.Topic)
	assert.Equal(t, "int-7", string(msg.Key))
	assert.Equal(t, "order.create", string(msg.Headers[1].Value))

	var decoded domain.CanonicalEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "evt-1", decoded.ID)

	require.NoError(t, p.Close())
	assert.True(t, writer.closed)
}

func TestKafkaPublisher_UnattributedKey(t *testing.T) {
	writer := &fakeWriter{}
	p := newKafkaPublisher(writer, "t", zerolog.Nop())
	require.NoError(t, p.Publish(context.Background(), &domain.CanonicalEvent{ID: "e", Platform: domain.PlatformFnac}))
	assert.Equal(t, "platform:fnac", string(writer.messages[0].Key))
}

func TestMultiPublisher_JoinsErrors(t *testing.T) {
	broken := newKafkaPublisher(&fakeWriter{err: errors.New("broker down")}, "t", zerolog.Nop())
	healthy := &fakeWriter{}
	multi := MultiPublisher{broken, newKafkaPublisher(healthy, "t", zerolog.Nop()), NoopPublisher{}}

	err := multi.Publish(context.Background(), &domain.CanonicalEvent{ID: "e", Platform: domain.PlatformWix})
	assert.ErrorContains(t, err, "broker down")
	assert.Len(t, healthy.messages, 1)
}

package publisher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/scenariosim/internal/scenario/domain"
	"github.com/wyfcoding/scenariosim/pkg/logger"
	"github.com/wyfcoding/scenariosim/pkg/mq"
)

type captureWriter struct {
	msgs []kafka.Message
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error { return nil }

func TestKafkaEventPublisher_Publish(t *testing.T) {
	w := &captureWriter{}
	p := NewKafkaEventPublisher(mq.NewProducerWithWriter(w), "prod.")

	run := &domain.ScenarioRun{
		RunID:     "run-9",
		TopicID:   "fusion",
		Result:    domain.SimulationResult{MeanImpact: 0.0284, Seed: 18446744073709551615},
		CreatedAt: time.Now(),
	}
	ctx := logger.ContextWithIDs(context.Background(), "trace-abc", "span", "req")
	require.NoError(t, p.Publish(ctx, domain.ScenarioRunCompletedEventType, run.RunID, domain.NewScenarioRunCompletedEvent(run)))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "prod.scenario.run.completed", msg.Topic)
	assert.Equal(t, "run-9", string(msg.Key))

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, domain.ScenarioRunCompletedEventType, headers["event_type"])
	assert.Equal(t, "trace-abc", headers["trace_id"])

	var event domain.ScenarioRunCompletedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, "run-9", event.RunID)
	assert.Equal(t, 0.0284, event.MeanImpact)
	assert.Equal(t, uint64(18446744073709551615), event.Seed)
	assert.WithinDuration(t, time.Now(), event.Timestamp, time.Minute)

	// uint64 种子以字符串传输，避免 JSON number 的精度损失
	var raw map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &raw))
	assert.Equal(t, "18446744073709551615", raw["seed"])
}

func TestLogEventPublisher(t *testing.T) {
	assert.NoError(t, NewLogEventPublisher().Publish(context.Background(), "t", "k", map[string]int{"a": 1}))
}

//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/alluvium/nepal-weap-prep/internal/adapter/kafka"
	"github.com/alluvium/nepal-weap-prep/internal/config"
	"github.com/alluvium/nepal-weap-prep/internal/domain"
	"github.com/alluvium/nepal-weap-prep/internal/observability"
	"github.com/alluvium/nepal-weap-prep/internal/pipeline"
)

const testTopic = "test-weap-datasets"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("weap-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))
}

type staticStage struct{ datasets []domain.Dataset }

func (s staticStage) Kind() string { return "hydro" }
func (s staticStage) Name() string { return "Gauges" }
func (s staticStage) Prepare(context.Context) ([]domain.Dataset, error) {
	return s.datasets, nil
}

// TestPipelinePublishesDatasets runs a one-stage pipeline against a real
// broker and reads the published dataset back.
func TestPipelinePublishesDatasets(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	ds := domain.Dataset{
		Name: "Gauges_Streamflow",
		Unit: "m3/s",
		Table: domain.Table{
			Index:   "Date",
			Columns: []string{"Bheri", "Karnali"},
			Rows: []domain.Row{
				{Key: "2020-01-01", Values: []float64{10.5, math.NaN()}},
				{Key: "2020-01-02", Values: []float64{11, 40}},
			},
		},
	}
	p := pipeline.New([]pipeline.Stage{staticStage{datasets: []domain.Dataset{ds}}},
		[]pipeline.BatchLoader{writer}, discardLogger(), observability.NewMetricsForTesting())
	sum, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Exported)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from dataset topic")

	assert.Equal(t, "Gauges_Streamflow", string(msg.Key))
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "Gauges_Streamflow", headers["dataset"])
	_, err = time.Parse(time.RFC3339, headers["exported_at"])
	assert.NoError(t, err, "exported_at should be valid RFC3339")

	var body struct {
		Unit    string   `json:"unit"`
		Columns []string `json:"columns"`
		Rows    []struct {
			Key    string     `json:"key"`
			Values []*float64 `json:"values"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "m3/s", body.Unit)
	assert.Equal(t, []string{"Bheri", "Karnali"}, body.Columns)
	require.Len(t, body.Rows, 2)
	assert.Nil(t, body.Rows[0].Values[1], "missing values are published as null")
}

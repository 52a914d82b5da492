package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/alluvium/nepal-weap-prep/internal/config"
	"github.com/alluvium/nepal-weap-prep/internal/domain"
)

// Writer publishes exported datasets to a Kafka topic, one message per
// dataset keyed by dataset name.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Name identifies the sink in metrics and logs.
func (w *Writer) Name() string { return "kafka" }

// LoadBatch serializes and publishes the datasets in a single WriteMessages call.
func (w *Writer) LoadBatch(ctx context.Context, datasets []domain.Dataset) error {
	if len(datasets) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(datasets))
	for i := range datasets {
		msg, err := serializeToMessage(datasets[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish datasets: %w", err)
	}
	w.logger.Debug("datasets published", "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// payload is the JSON form of a dataset. Missing values are null.
type payload struct {
	Name        string       `json:"name"`
	Unit        string       `json:"unit,omitempty"`
	Preamble    []string     `json:"preamble,omitempty"`
	Index       string       `json:"index"`
	Columns     []string     `json:"columns"`
	Rows        []payloadRow `json:"rows"`
	SkippedRows int          `json:"skipped_rows"`
	ExportedAt  time.Time    `json:"exported_at"`
}

type payloadRow struct {
	Key    string     `json:"key"`
	Values []*float64 `json:"values"`
}

// serializeToMessage marshals a Dataset into a Kafka message.
func serializeToMessage(ds domain.Dataset) (kafkago.Message, error) {
	p := payload{
		Name:        ds.Name,
		Unit:        ds.Unit,
		Preamble:    ds.Preamble,
		Index:       ds.Table.Index,
		Columns:     ds.Table.Columns,
		Rows:        make([]payloadRow, len(ds.Table.Rows)),
		SkippedRows: ds.SkippedRows,
		ExportedAt:  ds.ExportedAt,
	}
	for i, r := range ds.Table.Rows {
		vals := make([]*float64, len(r.Values))
		for j, v := range r.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			v := v
			vals[j] = &v
		}
		p.Rows[i] = payloadRow{Key: r.Key, Values: vals}
	}
	data, err := json.Marshal(p)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize dataset %s: %w", ds.Name, err)
	}
	return kafkago.Message{
		Key:   []byte(ds.Name),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "dataset", Value: []byte(ds.Name)},
			{Key: "exported_at", Value: []byte(ds.ExportedAt.Format(time.RFC3339))},
		},
	}, nil
}

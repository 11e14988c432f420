package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/kazetani/hekla/pkg/feature"
	"github.com/kazetani/hekla/pkg/model"
	"github.com/kazetani/hekla/pkg/store"
)

// PublishStore routes pattern writes through JetStream for the writer
// process to apply, while reads go straight to the backing store.
type PublishStore struct {
	client *Client
	reads  store.PatternStore
}

// NewPublishStore creates a queue-backed store. reads serves lookups
// and may be the same composite store the writer applies to.
func NewPublishStore(client *Client, reads store.PatternStore) *PublishStore {
	return &PublishStore{client: client, reads: reads}
}

var _ store.PatternStore = (*PublishStore)(nil)

// Upsert enqueues the fingerprint write.
func (p *PublishStore) Upsert(ctx context.Context, fp *model.Fingerprint) error {
	data, err := Encode(PatternWriteMsg{Fingerprint: fp})
	if err != nil {
		return fmt.Errorf("failed to encode pattern write: %w", err)
	}
	return p.client.Publish(ctx, SubjectPatternWrite, data)
}

// UpdateLabels enqueues the label updates.
func (p *PublishStore) UpdateLabels(ctx context.Context, updates []model.LabelUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	data, err := Encode(LabelWriteMsg{Labels: updates})
	if err != nil {
		return fmt.Errorf("failed to encode label write: %w", err)
	}
	return p.client.Publish(ctx, SubjectLabelWrite, data)
}

// BulkSave enqueues one write per row, labels attached.
func (p *PublishStore) BulkSave(ctx context.Context, rows []feature.BulkRow) (int, error) {
	for i := range rows {
		data, err := Encode(PatternWriteMsg{
			Fingerprint: &rows[i].Fingerprint,
			Labels:      rows[i].Labels(),
		})
		if err != nil {
			return i, fmt.Errorf("failed to encode pattern write: %w", err)
		}
		if err := p.client.Publish(ctx, SubjectPatternWrite, data); err != nil {
			return i, err
		}
	}
	return len(rows), nil
}

// FingerprintAt reads from the backing store.
func (p *PublishStore) FingerprintAt(ctx context.Context, t time.Time) (*model.Fingerprint, error) {
	if p.reads == nil {
		return nil, fmt.Errorf("no read store configured")
	}
	return p.reads.FingerprintAt(ctx, t)
}

// FindNeighbors reads from the backing store.
func (p *PublishStore) FindNeighbors(ctx context.Context, embedding []float64, asOf time.Time, topK int) ([]model.NeighborMatch, error) {
	if p.reads == nil {
		return nil, fmt.Errorf("no read store configured")
	}
	return p.reads.FindNeighbors(ctx, embedding, asOf, topK)
}

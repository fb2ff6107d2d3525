package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"avacharge/backend/services/notifier-service/internal/models"
)

type fakeStore struct {
	mu       sync.Mutex
	records  map[string]models.StationRecord
	listErr  error
	resetErr map[string]error
	casErr   error
	writes   int
}

func newFakeStore(records ...models.StationRecord) *fakeStore {
	f := &fakeStore{records: make(map[string]models.StationRecord), resetErr: make(map[string]error)}
	for _, r := range records {
		f.records[r.ID] = r
	}
	return f
}

func (f *fakeStore) List(ctx context.Context) ([]models.StationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.StationRecord, 0, len(f.records))
	for _, r := range f.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) Get(ctx context.Context, id string) (models.StationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok {
		return models.StationRecord{}, models.ErrStationNotFound
	}
	return r, nil
}

func (f *fakeStore) CompareAndSetNotified(ctx context.Context, id, expected, next string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.casErr != nil {
		return f.casErr
	}
	r, ok := f.records[id]
	if !ok {
		return models.ErrStationNotFound
	}
	if models.CanonicalStatus(r.NotifiedStatus) != models.CanonicalStatus(expected) {
		return models.ErrStaleRecord
	}
	r.NotifiedStatus = next
	f.records[id] = r
	f.writes++
	return nil
}

func (f *fakeStore) SetNotified(ctx context.Context, id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok {
		return models.ErrStationNotFound
	}
	r.NotifiedStatus = status
	f.records[id] = r
	f.writes++
	return nil
}

func (f *fakeStore) Reset(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.resetErr[id]; err != nil {
		return false, err
	}
	r, ok := f.records[id]
	if !ok {
		return false, models.ErrStationNotFound
	}
	if r.HasBooking() {
		return false, nil
	}
	zero := 0
	f.records[id] = models.StationRecord{
		ID:             r.ID,
		Name:           r.Name,
		Status:         string(models.StatusFree),
		Duration:       &zero,
		NotifiedStatus: string(models.StatusFree),
	}
	f.writes++
	return true, nil
}

func (f *fakeStore) record(id string) models.StationRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[id]
}

func (f *fakeStore) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

type fakeSender struct {
	mu       sync.Mutex
	messages []models.Message
	err      error
}

func (f *fakeSender) Send(ctx context.Context, msg models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeSender) sent() []models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Message, len(f.messages))
	copy(out, f.messages)
	return out
}

func (f *fakeSender) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type fakeObserver struct {
	mu   sync.Mutex
	seen []models.Message
	err  error
}

func (f *fakeObserver) Observe(ctx context.Context, msg models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, msg)
	return f.err
}

var errWebhookDown = errors.New("webhook unreachable")

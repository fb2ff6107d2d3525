package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"avacharge/backend/services/notifier-service/internal/models"
)

const maxTxAttempts = 5

// StationStore keeps station documents as JSON values at <prefix>:doc:<id>,
// indexed by the set <prefix>:index.
type StationStore struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewStationStore returns redis-backed store.
func NewStationStore(client *redis.Client, prefix string, logger *zap.Logger) *StationStore {
	if prefix == "" {
		prefix = "stations"
	}
	return &StationStore{client: client, prefix: prefix, logger: logger}
}

func (s *StationStore) indexKey() string {
	return s.prefix + ":index"
}

func (s *StationStore) key(id string) string {
	return fmt.Sprintf("%s:doc:%s", s.prefix, id)
}

// List returns every indexed station. Documents are fetched with one MGET so the
// result is a single point-in-time read.
func (s *StationStore) List(ctx context.Context) ([]models.StationRecord, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list station ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Strings(ids)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch stations: %w", err)
	}

	records := make([]models.StationRecord, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			s.logger.Warn("indexed station has no document", zap.String("station_id", ids[i]))
			continue
		}
		record, err := decodeRecord(ids[i], []byte(raw))
		if err != nil {
			s.logger.Warn("skipping undecodable station", zap.String("station_id", ids[i]), zap.Error(err))
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// Get returns one station or models.ErrStationNotFound.
func (s *StationStore) Get(ctx context.Context, id string) (models.StationRecord, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.StationRecord{}, models.ErrStationNotFound
	}
	if err != nil {
		return models.StationRecord{}, err
	}
	return decodeRecord(id, raw)
}

// Put stores a full station document and indexes it.
func (s *StationStore) Put(ctx context.Context, record models.StationRecord) error {
	if record.ID == "" {
		return errors.New("station id is required")
	}
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(record.ID), data, 0)
		pipe.SAdd(ctx, s.indexKey(), record.ID)
		return nil
	})
	return err
}

// CompareAndSetNotified sets notifiedStatus to next only if the stored value still
// matches expected (compared after status normalization). Returns models.ErrStaleRecord
// otherwise.
func (s *StationStore) CompareAndSetNotified(ctx context.Context, id, expected, next string) error {
	return s.update(ctx, id, func(doc map[string]json.RawMessage) (bool, error) {
		current := stringField(doc, "notifiedStatus")
		if models.CanonicalStatus(current) != models.CanonicalStatus(expected) {
			return false, models.ErrStaleRecord
		}
		return true, setField(doc, "notifiedStatus", next)
	})
}

// SetNotified overwrites notifiedStatus unconditionally.
func (s *StationStore) SetNotified(ctx context.Context, id, status string) error {
	return s.update(ctx, id, func(doc map[string]json.RawMessage) (bool, error) {
		return true, setField(doc, "notifiedStatus", status)
	})
}

// Reset writes the Free baseline. It reports false without writing when the record
// is booked at write time.
func (s *StationStore) Reset(ctx context.Context, id string) (bool, error) {
	var reset bool
	err := s.update(ctx, id, func(doc map[string]json.RawMessage) (bool, error) {
		if (models.StationRecord{Booking: doc["booking"]}).HasBooking() {
			reset = false
			return false, nil
		}
		reset = true
		baseline := map[string]interface{}{
			"status":         string(models.StatusFree),
			"user":           "",
			"duration":       0,
			"timestamp":      nil,
			"booking":        nil,
			"bookingTime":    "",
			"waitingList":    []interface{}{},
			"notifiedStatus": string(models.StatusFree),
		}
		for field, value := range baseline {
			if err := setField(doc, field, value); err != nil {
				return false, err
			}
		}
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return reset, nil
}

// update runs a WATCH/MULTI read-modify-write on the raw document so fields owned by
// other writers survive. fn returns whether to write.
func (s *StationStore) update(ctx context.Context, id string, fn func(doc map[string]json.RawMessage) (bool, error)) error {
	key := s.key(id)
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return models.ErrStationNotFound
		}
		if err != nil {
			return err
		}

		doc := make(map[string]json.RawMessage)
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("decode station %s: %w", id, err)
		}

		write, err := fn(doc)
		if err != nil || !write {
			return err
		}

		data, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return models.ErrStaleRecord
}

func decodeRecord(id string, raw []byte) (models.StationRecord, error) {
	var record models.StationRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return models.StationRecord{}, fmt.Errorf("decode station %s: %w", id, err)
	}
	record.ID = id
	return record, nil
}

func stringField(doc map[string]json.RawMessage, field string) string {
	var value string
	if raw, ok := doc[field]; ok {
		_ = json.Unmarshal(raw, &value)
	}
	return value
}

func setField(doc map[string]json.RawMessage, field string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	doc[field] = data
	return nil
}

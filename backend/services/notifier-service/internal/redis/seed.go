package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"avacharge/backend/services/notifier-service/internal/models"
)

type seedStation struct {
	models.StationRecord `yaml:",inline"`
	Booking              interface{}   `yaml:"booking"`
	WaitingList          []interface{} `yaml:"waitingList"`
}

type seedFile struct {
	Stations []seedStation `yaml:"stations"`
}

// ParseSeed decodes a YAML station fixture. Booking and waiting-list values are kept
// as free-form JSON, the way the booking app writes them.
func ParseSeed(data []byte) ([]models.StationRecord, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}

	records := make([]models.StationRecord, 0, len(file.Stations))
	seen := make(map[string]bool, len(file.Stations))
	for i, st := range file.Stations {
		rec := st.StationRecord
		rec.ID = strings.TrimSpace(rec.ID)
		if rec.ID == "" {
			return nil, fmt.Errorf("parse seed: station %d has no id", i)
		}
		if seen[rec.ID] {
			return nil, fmt.Errorf("parse seed: duplicate station id %q", rec.ID)
		}
		seen[rec.ID] = true

		if st.Booking != nil {
			raw, err := json.Marshal(st.Booking)
			if err != nil {
				return nil, fmt.Errorf("parse seed: station %s booking: %w", rec.ID, err)
			}
			rec.Booking = raw
		}
		for _, entry := range st.WaitingList {
			raw, err := json.Marshal(entry)
			if err != nil {
				return nil, fmt.Errorf("parse seed: station %s waiting list: %w", rec.ID, err)
			}
			rec.WaitingList = append(rec.WaitingList, raw)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Seed writes every record, replacing existing documents with the same id.
func (s *StationStore) Seed(ctx context.Context, records []models.StationRecord) error {
	for _, rec := range records {
		if err := s.Put(ctx, rec); err != nil {
			return fmt.Errorf("seed %s: %w", rec.ID, err)
		}
	}
	return nil
}

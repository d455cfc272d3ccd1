package collector

import (
	"path/filepath"
	"time"

	"github.com/wonny/threes/backend/internal/contracts"
	"github.com/wonny/threes/backend/pkg/fsutil"
)

// RawRecord is the persisted shape of one run's collected snapshots
type RawRecord struct {
	Date      string                `json:"date"`
	SavedAt   time.Time             `json:"saved_at"`
	Snapshots []*contracts.Snapshot `json:"snapshots"`
}

// RawPath returns state/raw/<date>.json under the state dir
func RawPath(stateDir string, date time.Time) string {
	return filepath.Join(stateDir, "raw", contracts.FormatDate(date)+".json")
}

// SaveRaw persists collected snapshots for inspection
func SaveRaw(stateDir string, date time.Time, snapshots []*contracts.Snapshot) error {
	rec := RawRecord{
		Date:      contracts.FormatDate(date),
		SavedAt:   time.Now(),
		Snapshots: snapshots,
	}
	return fsutil.WriteJSONAtomic(RawPath(stateDir, date), rec)
}

// LoadRaw reads a previously saved raw record
func LoadRaw(stateDir string, date time.Time) (*RawRecord, bool, error) {
	var rec RawRecord
	found, err := fsutil.ReadJSON(RawPath(stateDir, date), &rec)
	if err != nil || !found {
		return nil, found, err
	}
	return &rec, true, nil
}

package recorder

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const secondsPerYear = 31_536_000

// IndexSample is one observation of the vault's accrual state.
type IndexSample struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Timestamp   uint64    `gorm:"index;not null"`
	Index       string    `gorm:"not null"`
	RateBps     uint64    `gorm:"not null"`
	TotalShares string    `gorm:"not null"`
	Capacity    string    `gorm:"not null"`
	CreatedAt   time.Time
}

// Recorder persists index samples and answers historical yield queries.
type Recorder struct {
	db *gorm.DB
}

// Open opens (or creates) the sample database at path and migrates the
// schema. Use the ":memory:" DSN in tests.
func Open(path string) (*Recorder, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if err := db.AutoMigrate(&IndexSample{}); err != nil {
		return nil, fmt.Errorf("migrate history schema: %w", err)
	}
	return &Recorder{db: db}, nil
}

// NewWithDB wraps an existing gorm handle. The caller owns migration.
func NewWithDB(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// Record stores one sample. Samples for an already-recorded timestamp are
// skipped so a restart never duplicates history.
func (r *Recorder) Record(sample IndexSample) error {
	if sample.ID == uuid.Nil {
		sample.ID = uuid.New()
	}
	var count int64
	if err := r.db.Model(&IndexSample{}).Where("timestamp = ?", sample.Timestamp).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return r.db.Create(&sample).Error
}

// Latest returns the most recent sample, or nil when none exist.
func (r *Recorder) Latest() (*IndexSample, error) {
	var sample IndexSample
	err := r.db.Order("timestamp desc").First(&sample).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sample, nil
}

// Window returns the samples with timestamps in [from, to] in ascending
// order.
func (r *Recorder) Window(from, to uint64) ([]IndexSample, error) {
	var samples []IndexSample
	err := r.db.Where("timestamp >= ? AND timestamp <= ?", from, to).
		Order("timestamp asc").
		Find(&samples).Error
	return samples, err
}

// APYOverWindow annualizes the index growth between the first and last
// samples inside [from, to]. It returns zero when the window holds fewer
// than two samples or no time elapsed between them.
func (r *Recorder) APYOverWindow(from, to uint64) (float64, error) {
	samples, err := r.Window(from, to)
	if err != nil {
		return 0, err
	}
	if len(samples) < 2 {
		return 0, nil
	}
	first, last := samples[0], samples[len(samples)-1]
	if last.Timestamp <= first.Timestamp {
		return 0, nil
	}
	startIdx, ok := new(big.Float).SetString(first.Index)
	if !ok {
		return 0, fmt.Errorf("corrupt index sample %q", first.Index)
	}
	endIdx, ok := new(big.Float).SetString(last.Index)
	if !ok {
		return 0, fmt.Errorf("corrupt index sample %q", last.Index)
	}
	if startIdx.Sign() <= 0 {
		return 0, nil
	}
	growth := new(big.Float).Quo(endIdx, startIdx)
	ratio, _ := growth.Float64()
	elapsed := float64(last.Timestamp - first.Timestamp)
	return (ratio - 1) * secondsPerYear / elapsed, nil
}

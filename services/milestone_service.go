package services

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"community-milestones/models"
	"community-milestones/unlock"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const unlockCacheSize = 1024

// MilestoneService stores unlock sets per external user. Records are append-only:
// writes union into the stored set and never mutate or delete existing rows.
type MilestoneService struct {
	DB    *gorm.DB
	cache *lru.Cache

	// cacheMu orders cache fills against invalidations; writes counts invalidations so
	// a List that read before a write never caches its result.
	cacheMu sync.Mutex
	writes  uint64
}

func NewMilestoneService(db *gorm.DB) *MilestoneService {
	cache, err := lru.New(unlockCacheSize)
	if err != nil {
		log.Fatalf("❌ failed to create unlock cache: %v", err)
	}
	return &MilestoneService{DB: db, cache: cache}
}

// List returns the unlock set of externalID in unlock order.
func (s *MilestoneService) List(ctx context.Context, externalID string) ([]string, error) {
	id, err := unlock.CleanExternalID(externalID)
	if err != nil {
		return nil, err
	}
	if v, ok := s.cache.Get(id); ok {
		return slices.Clone(v.([]string)), nil
	}

	s.cacheMu.Lock()
	seen := s.writes
	s.cacheMu.Unlock()

	var ids []string
	if err := s.DB.WithContext(ctx).
		Model(&models.UnlockRecord{}).
		Where("external_user_id = ?", id).
		Order("unlocked_at, id").
		Pluck("milestone_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to load unlocks for %s: %w", id, err)
	}
	if ids == nil {
		ids = []string{}
	}

	s.cacheMu.Lock()
	if s.writes == seen {
		s.cache.Add(id, slices.Clone(ids))
	}
	s.cacheMu.Unlock()
	return ids, nil
}

// Merge unions milestoneIDs into the stored set of externalID. Unknown ids are skipped.
// Returns the number of ids that were offered and known.
func (s *MilestoneService) Merge(ctx context.Context, externalID string, milestoneIDs []string) (int, error) {
	id, err := unlock.CleanExternalID(externalID)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	seen := make(map[string]bool, len(milestoneIDs))
	records := make([]models.UnlockRecord, 0, len(milestoneIDs))
	for _, mid := range milestoneIDs {
		m, ok := models.LookupMilestone(mid)
		if !ok {
			log.Printf("[SYNC] ⚠️ Ignoring unknown milestone %q for %s", mid, id)
			continue
		}
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		records = append(records, models.UnlockRecord{
			ID:             uuid.NewString(),
			ExternalUserID: id,
			MilestoneID:    m.ID,
			ImageKey:       m.ImageKey,
			Locale:         models.FallbackLocale,
			// keeps first-seen order inside one batch
			UnlockedAt: now.Add(time.Duration(len(records)) * time.Microsecond),
		})
	}
	if len(records) == 0 {
		return 0, nil
	}

	if err := s.insert(ctx, records); err != nil {
		return 0, fmt.Errorf("failed to merge unlocks for %s: %w", id, err)
	}
	s.invalidate(id)
	log.Printf("[SYNC] ✅ Merged %d milestone(s) for %s", len(records), id)
	return len(records), nil
}

// Unlock records one milestone. Recording an existing unlock is a no-op.
func (s *MilestoneService) Unlock(ctx context.Context, req models.UnlockRequest) error {
	id, err := unlock.CleanExternalID(req.ExternalID)
	if err != nil {
		return err
	}
	m, ok := models.LookupMilestone(req.MilestoneID)
	if !ok {
		return fmt.Errorf("%w: %q", unlock.ErrUnknownMilestone, req.MilestoneID)
	}
	imageKey := req.ImageKey
	if imageKey == "" {
		imageKey = m.ImageKey
	}

	rec := models.UnlockRecord{
		ID:             uuid.NewString(),
		ExternalUserID: id,
		MilestoneID:    m.ID,
		ImageKey:       imageKey,
		Locale:         unlock.NormalizeLocale(string(req.Locale)),
		UnlockedAt:     time.Now().UTC(),
	}
	if err := s.insert(ctx, []models.UnlockRecord{rec}); err != nil {
		return fmt.Errorf("failed to record %s for %s: %w", m.ID, id, err)
	}
	s.invalidate(id)
	log.Printf("[UNLOCK] 🎖️ %s → %s", m.ID, id)
	return nil
}

func (s *MilestoneService) insert(ctx context.Context, records []models.UnlockRecord) error {
	return s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_user_id"}, {Name: "milestone_id"}},
			DoNothing: true,
		}).
		Create(&records).Error
}

func (s *MilestoneService) invalidate(externalID string) {
	s.cacheMu.Lock()
	s.writes++
	s.cache.Remove(externalID)
	s.cacheMu.Unlock()
}

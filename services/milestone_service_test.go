package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"community-milestones/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const memberID = "775415193760169995"

func newTestMilestoneService(t *testing.T) *MilestoneService {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&models.UnlockRecord{}); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return NewMilestoneService(db)
}

func countRecords(t *testing.T, s *MilestoneService) int64 {
	t.Helper()
	var n int64
	if err := s.DB.Model(&models.UnlockRecord{}).Where("external_user_id = ?", memberID).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestMergeIsSetUnionInFirstSeenOrder(t *testing.T) {
	s := newTestMilestoneService(t)
	ctx := context.Background()

	n, err := s.Merge(ctx, " "+memberID+" ", []string{"konami", "creeper", "konami", "no-such-milestone"})
	if err != nil || n != 2 {
		t.Fatalf("Merge = %d, %v; want 2 known ids", n, err)
	}
	if _, err := s.Merge(ctx, memberID, []string{"creeper", "night-owl"}); err != nil {
		t.Fatalf("second Merge: %v", err)
	}

	got, err := s.List(ctx, memberID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"konami", "creeper", "night-owl"}
	if !slices.Equal(got, want) {
		t.Fatalf("List = %v, want %v", got, want)
	}
	if n := countRecords(t, s); n != 3 {
		t.Fatalf("stored %d rows, want 3", n)
	}
}

func TestUnlockIsIdempotent(t *testing.T) {
	s := newTestMilestoneService(t)
	ctx := context.Background()

	req := models.UnlockRequest{ExternalID: memberID, MilestoneID: "creeper", Locale: "fr"}
	for i := 0; i < 2; i++ {
		if err := s.Unlock(ctx, req); err != nil {
			t.Fatalf("Unlock #%d: %v", i+1, err)
		}
	}
	if n := countRecords(t, s); n != 1 {
		t.Fatalf("stored %d rows, want 1", n)
	}

	var rec models.UnlockRecord
	if err := s.DB.Where("external_user_id = ?", memberID).First(&rec).Error; err != nil {
		t.Fatalf("load record: %v", err)
	}
	if rec.Locale != models.LocaleDE || rec.ImageKey == "" || rec.ID == "" {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestListReflectsWritesAfterCaching(t *testing.T) {
	s := newTestMilestoneService(t)
	ctx := context.Background()

	if got, err := s.List(ctx, memberID); err != nil || len(got) != 0 {
		t.Fatalf("initial List = %v, %v", got, err)
	}
	if err := s.Unlock(ctx, models.UnlockRequest{ExternalID: memberID, MilestoneID: "creeper"}); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if got, _ := s.List(ctx, memberID); !slices.Equal(got, []string{"creeper"}) {
		t.Fatalf("List after Unlock = %v", got)
	}
	if _, err := s.Merge(ctx, memberID, []string{"konami"}); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got, _ := s.List(ctx, memberID); !slices.Equal(got, []string{"creeper", "konami"}) {
		t.Fatalf("List after Merge = %v", got)
	}
}

func TestListDoesNotCacheAcrossConcurrentWrite(t *testing.T) {
	s := newTestMilestoneService(t)
	ctx := context.Background()

	if _, err := s.Merge(ctx, memberID, []string{"creeper"}); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	// a write lands between List's query and its cache fill
	var armed atomic.Bool
	var once sync.Once
	err := s.DB.Callback().Query().After("gorm:query").Register("test:write_after_read", func(*gorm.DB) {
		if !armed.Load() {
			return
		}
		once.Do(func() {
			if _, err := s.Merge(ctx, memberID, []string{"konami"}); err != nil {
				t.Errorf("interleaved Merge: %v", err)
			}
		})
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	armed.Store(true)
	if got, _ := s.List(ctx, memberID); !slices.Equal(got, []string{"creeper"}) {
		t.Fatalf("first List = %v, want the pre-write set", got)
	}
	armed.Store(false)

	got, err := s.List(ctx, memberID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !slices.Equal(got, []string{"creeper", "konami"}) {
		t.Fatalf("List served a stale set: %v", got)
	}
}

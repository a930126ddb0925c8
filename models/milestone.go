package models

import (
	_ "embed"
	"fmt"

	"github.com/gosimple/slug"
	"github.com/pelletier/go-toml/v2"
)

// Milestone: static catalog entry (loaded once from milestones.toml)
type Milestone struct {
	ID       string `toml:"id" json:"id"`
	ImageKey string `toml:"image_key" json:"imageKey"` // opaque asset reference, resolved by AssetService
	Icon     string `toml:"icon" json:"icon"`
}

// Milestone ids with a dedicated trigger coordinator
const (
	MilestoneCreeper          = "creeper"
	MilestoneGlitchExplosion  = "glitch-explosion"
	MilestoneBirthdayConfetti = "birthday-confetti"
)

//go:embed milestones.toml
var catalogTOML []byte

type catalogFile struct {
	Milestones []Milestone `toml:"milestones"`
}

var (
	catalog     []Milestone
	catalogByID map[string]Milestone
)

func init() {
	list, err := parseCatalog(catalogTOML)
	if err != nil {
		panic(fmt.Sprintf("models: invalid milestone catalog: %v", err))
	}
	catalog = list
	catalogByID = make(map[string]Milestone, len(list))
	for _, m := range list {
		catalogByID[m.ID] = m
	}
}

func parseCatalog(data []byte) ([]Milestone, error) {
	var file catalogFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(file.Milestones) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}

	seen := make(map[string]bool, len(file.Milestones))
	for _, m := range file.Milestones {
		if !slug.IsSlug(m.ID) {
			return nil, fmt.Errorf("milestone id %q is not a slug", m.ID)
		}
		if seen[m.ID] {
			return nil, fmt.Errorf("duplicate milestone id %q", m.ID)
		}
		if m.ImageKey == "" {
			return nil, fmt.Errorf("milestone %q has no image_key", m.ID)
		}
		seen[m.ID] = true
	}
	return file.Milestones, nil
}

// Milestones returns a copy of the catalog in declaration order.
func Milestones() []Milestone {
	out := make([]Milestone, len(catalog))
	copy(out, catalog)
	return out
}

// LookupMilestone returns the catalog entry for id.
func LookupMilestone(id string) (Milestone, bool) {
	m, ok := catalogByID[id]
	return m, ok
}

// TotalMilestones is the fixed denominator for completion progress.
func TotalMilestones() int {
	return len(catalog)
}

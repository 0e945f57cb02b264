package game

import (
	"fmt"
	"strings"
	"time"
)

type ProjectType string

const (
	ProjectMovie       ProjectType = "movie"
	ProjectSeries      ProjectType = "series"
	ProjectDocumentary ProjectType = "documentary"
)

type ProjectStatus string

const (
	ProjectInProduction ProjectStatus = "in_production"
	ProjectReleased     ProjectStatus = "released"
)

type budgetTier struct {
	UpToCents int64 // exclusive upper bound; 0 means top tier
	Label     string
}

type ProjectSpec struct {
	Type           ProjectType
	DisplayName    string
	MinBudgetCents int64
	MaxBudgetCents int64
	ProductionTime time.Duration
	tiers          []budgetTier
}

// Production durations are simulation-time constants, not wall-clock SLAs.
var projectCatalog = []ProjectSpec{
	{
		Type:           ProjectMovie,
		DisplayName:    "Feature Film",
		MinBudgetCents: 1_000_000 * CentsPerDollar,
		MaxBudgetCents: 300_000_000 * CentsPerDollar,
		ProductionTime: 15 * time.Second,
		tiers: []budgetTier{
			{UpToCents: 10_000_000 * CentsPerDollar, Label: "Independent"},
			{UpToCents: 75_000_000 * CentsPerDollar, Label: "Mid-Budget"},
			{Label: "Blockbuster"},
		},
	},
	{
		Type:           ProjectSeries,
		DisplayName:    "Series",
		MinBudgetCents: 500_000 * CentsPerDollar,
		MaxBudgetCents: 100_000_000 * CentsPerDollar,
		ProductionTime: 25 * time.Second,
		tiers: []budgetTier{
			{UpToCents: 2_000_000 * CentsPerDollar, Label: "Low-Budget"},
			{UpToCents: 20_000_000 * CentsPerDollar, Label: "Network"},
			{Label: "Prestige"},
		},
	},
	{
		Type:           ProjectDocumentary,
		DisplayName:    "Documentary",
		MinBudgetCents: 100_000 * CentsPerDollar,
		MaxBudgetCents: 20_000_000 * CentsPerDollar,
		ProductionTime: 10 * time.Second,
		tiers: []budgetTier{
			{UpToCents: 500_000 * CentsPerDollar, Label: "Independent"},
			{UpToCents: 5_000_000 * CentsPerDollar, Label: "Standard"},
			{Label: "Major"},
		},
	},
}

func ProjectCatalog() []ProjectSpec {
	out := make([]ProjectSpec, len(projectCatalog))
	copy(out, projectCatalog)
	return out
}

func SpecByType(projectType string) (ProjectSpec, error) {
	t := ProjectType(strings.ToLower(strings.TrimSpace(projectType)))
	for _, spec := range projectCatalog {
		if spec.Type == t {
			return spec, nil
		}
	}
	return ProjectSpec{}, fmt.Errorf("unknown project type: %s", projectType)
}

// ValidateBudget rejects budgets outside the type's band. Cash is the
// caller's precondition.
func ValidateBudget(spec ProjectSpec, budgetCents int64) error {
	if budgetCents < spec.MinBudgetCents || budgetCents > spec.MaxBudgetCents {
		return fmt.Errorf("%w: %d cents, %s band [%d, %d]",
			ErrBudgetOutOfRange, budgetCents, spec.Type, spec.MinBudgetCents, spec.MaxBudgetCents)
	}
	return nil
}

// BudgetCategory classifies a budget into the type's named tier.
func BudgetCategory(spec ProjectSpec, budgetCents int64) string {
	for _, tier := range spec.tiers {
		if tier.UpToCents == 0 || budgetCents < tier.UpToCents {
			return tier.Label
		}
	}
	return spec.tiers[len(spec.tiers)-1].Label
}

// OutcomeBand classifies a released project's return multiple. Assigned once
// at release; the gross itself comes from the engine's outcome roll.
func OutcomeBand(grossCents, budgetCents int64) string {
	if budgetCents <= 0 {
		return "Flop"
	}
	multiple := float64(grossCents) / float64(budgetCents)
	switch {
	case multiple >= 10:
		return "Legendary Hit"
	case multiple >= 5:
		return "Blockbuster"
	case multiple >= 2:
		return "Hit"
	case multiple >= 0.8:
		return "Moderate Success"
	default:
		return "Flop"
	}
}

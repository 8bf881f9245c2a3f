package recovery

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Default policy values.
const (
	DefaultLookbackDays  = 7
	remainingPlaceholder = "{hours}"
)

// Tier is one row of the threshold table. A tier matches when the average
// workload is strictly below MaxAvgWorkload. The last tier of a table is
// open-ended and matches everything that fell through.
type Tier struct {
	MaxAvgWorkload float64
	Level          Level
	RestHours      int
	Message        string
}

// Messages is the resource table for the text that is not tied to a tier.
// Remaining must contain the {hours} placeholder.
type Messages struct {
	Rested     string
	Remaining  string
	Sufficient string
}

// Config is the recovery policy: the lookback window used by callers to
// select activities, the threshold table and the message resources.
type Config struct {
	LookbackDays int
	Tiers        []Tier
	Messages     Messages
}

// DefaultTiers returns the built-in threshold table.
func DefaultTiers() []Tier {
	return []Tier{
		{MaxAvgWorkload: 30, Level: LevelLight, RestHours: 12, Message: "Charge de travail légère. Le cheval peut reprendre l'entraînement."},
		{MaxAvgWorkload: 60, Level: LevelModerate, RestHours: 24, Message: "Charge de travail modérée. Un jour de repos est recommandé."},
		{MaxAvgWorkload: 80, Level: LevelIntense, RestHours: 48, Message: "Charge de travail intense. Deux jours de repos sont recommandés."},
		{MaxAvgWorkload: math.Inf(1), Level: LevelVeryIntense, RestHours: 72, Message: "Charge de travail très intense. Trois jours de repos minimum sont nécessaires."},
	}
}

// DefaultMessages returns the built-in message resources.
func DefaultMessages() Messages {
	return Messages{
		Rested:     "Aucune activité récente. Le cheval est bien reposé.",
		Remaining:  "Il reste {hours}h de repos recommandé.",
		Sufficient: "Le cheval est suffisamment reposé.",
	}
}

// DefaultConfig returns the built-in policy.
func DefaultConfig() Config {
	return Config{
		LookbackDays: DefaultLookbackDays,
		Tiers:        DefaultTiers(),
		Messages:     DefaultMessages(),
	}
}

// Validate reports whether the policy can be used by Compute.
func (c Config) Validate() error {
	if c.LookbackDays <= 0 {
		return fmt.Errorf("%w: lookback days must be positive, got %d", ErrInvalidConfig, c.LookbackDays)
	}
	if len(c.Tiers) == 0 {
		return fmt.Errorf("%w: threshold table is empty", ErrInvalidConfig)
	}
	for i, t := range c.Tiers {
		if !t.Level.IsTier() {
			return fmt.Errorf("%w: tier %d has unknown level %q", ErrInvalidConfig, i, t.Level)
		}
		if t.RestHours < 0 {
			return fmt.Errorf("%w: tier %d has negative rest hours", ErrInvalidConfig, i)
		}
		if i == len(c.Tiers)-1 {
			break
		}
		if math.IsNaN(t.MaxAvgWorkload) || math.IsInf(t.MaxAvgWorkload, 0) {
			return fmt.Errorf("%w: tier %d needs a finite upper bound", ErrInvalidConfig, i)
		}
		if i > 0 && t.MaxAvgWorkload <= c.Tiers[i-1].MaxAvgWorkload {
			return fmt.Errorf("%w: tier %d bound %.2f is not above the previous bound", ErrInvalidConfig, i, t.MaxAvgWorkload)
		}
	}
	if strings.TrimSpace(c.Messages.Rested) == "" || strings.TrimSpace(c.Messages.Sufficient) == "" {
		return fmt.Errorf("%w: rested and sufficient messages are required", ErrInvalidConfig)
	}
	if !strings.Contains(c.Messages.Remaining, remainingPlaceholder) {
		return fmt.Errorf("%w: remaining message must contain %s", ErrInvalidConfig, remainingPlaceholder)
	}
	return nil
}

// classify walks the table lowest bound first. An empty table falls back to
// DefaultTiers.
func (c Config) classify(avgWorkload float64) Tier {
	tiers := c.Tiers
	if len(tiers) == 0 {
		tiers = DefaultTiers()
	}
	last := len(tiers) - 1
	for i, t := range tiers {
		if i == last || avgWorkload < t.MaxAvgWorkload {
			return t
		}
	}
	return tiers[last]
}

func (m Messages) remaining(hours int) string {
	return strings.ReplaceAll(m.Remaining, remainingPlaceholder, strconv.Itoa(hours))
}

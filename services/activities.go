package services

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

// ActivitySearcher returns raw search hits for a city's activities.
type ActivitySearcher interface {
	SearchActivityText(ctx context.Context, city string, purpose Purpose) ([]SearchResult, error)
}

// ActivityCatalog supplies curated and meal activities.
type ActivityCatalog interface {
	DefaultActivities(city string, purpose Purpose) []Activity
	MealActivities(city string, purpose Purpose) []Activity
}

var (
	businessSlots  = []string{"9:00 AM", "11:00 AM", "2:00 PM", "4:00 PM"}
	morningSlots   = []string{"8:00 AM", "9:30 AM", "11:00 AM"}
	afternoonSlots = []string{"1:00 PM", "2:30 PM", "4:00 PM"}
)

const eveningSlot = "7:00 PM"

// slotFor returns the time label for the i-th activity in a city's pool.
func slotFor(purpose Purpose, i int) string {
	if purpose == PurposeBusiness {
		return businessSlots[i%len(businessSlots)]
	}
	switch {
	case i < len(morningSlots):
		return morningSlots[i]
	case i < len(morningSlots)+len(afternoonSlots):
		return afternoonSlots[i-len(morningSlots)]
	default:
		return eveningSlot
	}
}

// Allocator merges mandatory, searched, curated and meal activities into a
// deduplicated list for one destination.
type Allocator struct {
	search  ActivitySearcher
	catalog ActivityCatalog
	log     *slog.Logger
}

// NewAllocator builds an allocator. search may be nil, in which case only
// mandatory and curated sources are used.
func NewAllocator(search ActivitySearcher, catalog ActivityCatalog, logger *slog.Logger) *Allocator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Allocator{search: search, catalog: catalog, log: logger.With("component", "allocator")}
}

type activityPool struct {
	items  []Activity
	used   map[string]bool
	target int
}

func (p *activityPool) full() bool { return len(p.items) >= p.target }

func (p *activityPool) add(a Activity) bool {
	key := strings.ToLower(strings.TrimSpace(a.Title))
	if key == "" || p.used[key] || p.full() {
		return false
	}
	p.used[key] = true
	p.items = append(p.items, a)
	return true
}

// Allocate returns at most target activities for city. Insertion order is
// mandatory, search-derived, curated defaults, then meals. The result may be
// shorter than target when every source runs dry.
func (a *Allocator) Allocate(ctx context.Context, city string, purpose Purpose, travelerType TravelerType, mandatory []string, target int) []Activity {
	if target <= 0 {
		return nil
	}
	pool := &activityPool{items: make([]Activity, 0, target), used: make(map[string]bool), target: target}

	for _, name := range mandatory {
		name = strings.TrimSpace(name)
		pool.add(Activity{
			Time:        slotFor(purpose, len(pool.items)),
			Title:       name,
			Description: mandatoryDescription(name, travelerType),
			Duration:    "2-3 hours",
		})
	}

	if !pool.full() && a.search != nil {
		results, err := a.search.SearchActivityText(ctx, city, purpose)
		if err != nil {
			a.log.Warn("activity search failed, using curated activities", "city", city, "error", err)
		}
		for _, r := range results {
			if pool.full() {
				break
			}
			pool.add(Activity{
				Time:        slotFor(purpose, len(pool.items)),
				Title:       cleanActivityTitle(r.Title, city),
				Description: snippet(r.Content, 100),
				Duration:    "2-3 hours",
			})
		}
	}

	if a.catalog != nil {
		for _, act := range a.catalog.DefaultActivities(city, purpose) {
			if pool.full() {
				break
			}
			pool.add(act)
		}
		for _, act := range a.catalog.MealActivities(city, purpose) {
			if pool.full() {
				break
			}
			pool.add(act)
		}
	}

	return pool.items
}

func mandatoryDescription(name string, travelerType TravelerType) string {
	switch travelerType {
	case TravelerContentCreators:
		return "Capture content at " + name
	case TravelerFamily:
		return "Enjoy " + name + " together"
	case TravelerBusiness:
		return "Visit " + name + " between meetings"
	default:
		return "Experience " + name
	}
}

var (
	ordinalPrefixRe = regexp.MustCompile(`^\s*\d+[.)]?\s*`)
	verbPrefixRe    = regexp.MustCompile(`(?i)^(top|best|visit|see|explore)\s+`)
	extraSpaceRe    = regexp.MustCompile(`\s{2,}`)
)

// cleanActivityTitle strips ordinal and promotional prefixes plus the city
// name from a search title and truncates it to 50 characters.
func cleanActivityTitle(title, city string) string {
	s := ordinalPrefixRe.ReplaceAllString(title, "")
	s = verbPrefixRe.ReplaceAllString(s, "")
	if city = strings.TrimSpace(city); city != "" {
		s = regexp.MustCompile(`(?i)`+regexp.QuoteMeta(city)).ReplaceAllString(s, "")
	}
	s = extraSpaceRe.ReplaceAllString(s, " ")
	s = strings.Trim(s, " -–|:,")

	if r := []rune(s); len(r) > 50 {
		s = strings.TrimSpace(string(r[:50])) + "..."
	}
	if s == "" {
		return "Local Attraction"
	}
	return s
}

func snippet(s string, n int) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}

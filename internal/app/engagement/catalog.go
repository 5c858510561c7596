package engagement

import (
	"math/rand"
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/zennify/zennify/internal/domain"
)

// questCatalog is the set of possible daily quest templates.
var questCatalog = []domain.QuestTemplate{
	{
		ID: "morning-meditation", Title: "Morning Meditation", Points: 15,
		Category: domain.QuestMeditation, TimeEstimate: "5 min",
		Description: "Take 5 minutes to focus on your breath and set intentions for the day.",
	},
	{
		ID: "gratitude-journal", Title: "Gratitude Journal", Points: 10,
		Category: domain.QuestGratitude, TimeEstimate: "3 min",
		Description: "Write down three things you are grateful for today.",
	},
	{
		ID: "mindful-walking", Title: "Mindful Walking", Points: 20,
		Category: domain.QuestMindfulness, TimeEstimate: "10 min",
		Description: "Take a 10-minute walk and focus on your surroundings and sensations.",
	},
	{
		ID: "deep-breathing", Title: "Deep Breathing", Points: 10,
		Category: domain.QuestMeditation, TimeEstimate: "2 min",
		Description: "10 deep breaths with 4-second inhale, 7-second hold, 8-second exhale.",
	},
	{
		ID: "body-scan", Title: "Body Scan Exercise", Points: 15,
		Category: domain.QuestMindfulness, TimeEstimate: "8 min",
		Description: "Lie down and mentally scan your body from head to toe, noticing sensations.",
	},
	{
		ID: "stretch-break", Title: "Quick Stretch Break", Points: 5,
		Category: domain.QuestExercise, TimeEstimate: "2 min",
		Description: "Stand up and stretch your muscles to release tension and boost energy.",
	},
}

// QuestCatalog returns a copy of the quest templates.
func QuestCatalog() []domain.QuestTemplate {
	return slices.Clone(questCatalog)
}

// SampleQuests picks n distinct templates using r. n is clamped to the
// catalog size.
func SampleQuests(r *rand.Rand, n int) []domain.QuestTemplate {
	pool := slices.Clone(questCatalog)
	r.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if n > len(pool) {
		n = len(pool)
	}
	if n < 0 {
		n = 0
	}
	return pool[:n]
}

// instanceOf copies a template into a pending quest instance.
func instanceOf(t domain.QuestTemplate, id string) domain.QuestInstance {
	return domain.QuestInstance{
		ID:           id,
		TemplateID:   t.ID,
		Title:        t.Title,
		Description:  t.Description,
		Points:       t.Points,
		Category:     t.Category,
		TimeEstimate: t.TimeEstimate,
	}
}

// ─── Search ─────────────────────────────────────────────────────────────────

type templateTitles []domain.QuestTemplate

func (t templateTitles) Len() int            { return len(t) }
func (t templateTitles) String(i int) string { return strings.ToLower(t[i].Title) }

// SearchCatalog fuzzy-matches query against template titles, best match
// first. An empty query returns the whole catalog.
func SearchCatalog(query string) []domain.QuestTemplate {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return QuestCatalog()
	}
	matches := fuzzy.FindFrom(query, templateTitles(questCatalog))
	out := make([]domain.QuestTemplate, len(matches))
	for i, m := range matches {
		out[i] = questCatalog[m.Index]
	}
	return out
}

package engagement_test

import (
	"context"
	"errors"
	"math/rand"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/zennify/zennify/internal/app/engagement"
	"github.com/zennify/zennify/internal/domain"
	"github.com/zennify/zennify/internal/infra/sqlite"
)

// testDB creates a temporary SQLite database for testing.
func testDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlite.Open(dir)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *clock { return &clock{now: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) AddDays(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.AddDate(0, 0, n)
}

// recorder captures published events.
type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Publish(_ context.Context, ev domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.EventType
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

// harness wires all services over one store and clock.
type harness struct {
	db       *sqlite.DB
	clock    *clock
	pub      *recorder
	progress *engagement.ProgressService
	quests   *engagement.QuestService
	moods    *engagement.MoodService
	notify   *engagement.NotificationService
}

var day1 = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

func newHarness(t *testing.T, extra ...engagement.Option) *harness {
	t.Helper()
	h := &harness{db: testDB(t), clock: newClock(day1), pub: &recorder{}}
	h.build(h.db, extra...)
	return h
}

func (h *harness) build(store domain.Store, extra ...engagement.Option) {
	base := []engagement.Option{
		engagement.WithClock(h.clock.Now),
		engagement.WithRand(rand.New(rand.NewSource(42))),
		engagement.WithPublisher(h.pub),
	}
	h.notify = engagement.NewNotificationService(store, base...)
	opts := append(append(base, engagement.WithNotifications(h.notify)), extra...)
	h.progress = engagement.NewProgressService(store, opts...)
	h.quests = engagement.NewQuestService(store, opts...)
	h.moods = engagement.NewMoodService(store, opts...)
}

func (h *harness) signUp(t *testing.T, userID string) *domain.UserProgress {
	t.Helper()
	p, err := h.progress.Create(context.Background(), userID, "river")
	if err != nil {
		t.Fatalf("create progress: %v", err)
	}
	return p
}

func (h *harness) today() string { return domain.DateKey(h.clock.Now(), time.UTC) }

// ═══════════════════════════════════════════════════════════════════════════
// Level Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestLevelForXP_Boundaries(t *testing.T) {
	cases := []struct {
		xp   int64
		want int
	}{
		{0, 1}, {99, 1}, {100, 2}, {299, 2}, {300, 3}, {599, 3}, {600, 4},
		{1000, 5}, {1500, 6}, {2100, 7}, {2800, 8}, {3600, 9}, {4499, 9},
		{4500, 10}, {5499, 10}, {5500, 11}, {6500, 12}, {14500, 20},
	}
	for _, tc := range cases {
		if got := engagement.LevelForXP(tc.xp); got != tc.want {
			t.Errorf("LevelForXP(%d) = %d, want %d", tc.xp, got, tc.want)
		}
	}
}

func TestLevelForXP_Monotonic(t *testing.T) {
	prev := engagement.LevelForXP(0)
	if prev != 1 {
		t.Fatalf("LevelForXP(0) = %d, want 1", prev)
	}
	for xp := int64(1); xp <= 20000; xp++ {
		l := engagement.LevelForXP(xp)
		if l < prev {
			t.Fatalf("level decreased at xp=%d: %d -> %d", xp, prev, l)
		}
		prev = l
	}
}

func TestXPForLevel_InverseOfLevelForXP(t *testing.T) {
	for level := 1; level <= 30; level++ {
		min := engagement.XPForLevel(level)
		if got := engagement.LevelForXP(min); got != level {
			t.Errorf("LevelForXP(XPForLevel(%d)=%d) = %d", level, min, got)
		}
		if level > 1 {
			if got := engagement.LevelForXP(min - 1); got != level-1 {
				t.Errorf("LevelForXP(%d) = %d, want %d", min-1, got, level-1)
			}
		}
	}
}

func TestProgressPct(t *testing.T) {
	cases := []struct {
		xp    int64
		level int
		want  float64
	}{
		{0, 1, 0},
		{50, 1, 50},
		{200, 2, 50},   // (200-100)/(300-100)
		{450, 3, 50},   // (450-300)/(600-300)
		{5000, 10, 50}, // (5000-4500)/(5500-4500)
		{5500, 11, 0},
	}
	for _, tc := range cases {
		if got := engagement.ProgressPct(tc.xp, tc.level); got != tc.want {
			t.Errorf("ProgressPct(%d, %d) = %.2f, want %.2f", tc.xp, tc.level, got, tc.want)
		}
	}
	if got := engagement.XPToNextLevel(250); got != 50 {
		t.Errorf("XPToNextLevel(250) = %d, want 50", got)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Badge Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestAllBadges_Catalog(t *testing.T) {
	badges := engagement.AllBadges()
	if len(badges) != 6 {
		t.Fatalf("expected 6 badges, got %d", len(badges))
	}
	seen := map[string]bool{}
	for _, b := range badges {
		if seen[b.ID] {
			t.Errorf("duplicate badge id %q", b.ID)
		}
		seen[b.ID] = true
		if b.Name == "" || b.Description == "" || b.Requirement.Threshold <= 0 {
			t.Errorf("incomplete badge %+v", b)
		}
	}
}

func TestEvaluateBadges(t *testing.T) {
	cases := []struct {
		name string
		c    domain.BadgeCounters
		want []string
	}{
		{"unregistered", domain.BadgeCounters{}, nil},
		{"registered", domain.BadgeCounters{Registered: true, StreakDays: 1}, []string{"newbie"}},
		{"streak 7", domain.BadgeCounters{Registered: true, StreakDays: 7}, []string{"newbie", "streak-3", "streak-7"}},
		{"quests 10", domain.BadgeCounters{Registered: true, QuestsCompleted: 10}, []string{"newbie", "quests-10"}},
		{"moods 5", domain.BadgeCounters{MoodEntries: 5}, []string{"moods-5"}},
		{"everything", domain.BadgeCounters{Registered: true, StreakDays: 30, QuestsCompleted: 10, MoodEntries: 5},
			[]string{"newbie", "streak-3", "streak-7", "quests-10", "moods-5", "streak-30"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := engagement.EvaluateBadges(tc.c)
			if !slices.Equal(got, tc.want) {
				t.Errorf("EvaluateBadges() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNewlyUnlocked_SetDifference(t *testing.T) {
	prev := []string{"newbie", "streak-3"}
	satisfied := []string{"newbie", "streak-3", "quests-10"}
	if got := engagement.NewlyUnlocked(prev, satisfied); !slices.Equal(got, []string{"quests-10"}) {
		t.Errorf("NewlyUnlocked() = %v", got)
	}
	if got := engagement.NewlyUnlocked(satisfied, prev); len(got) != 0 {
		t.Errorf("shrinking satisfied set must not report unlocks, got %v", got)
	}
}

func TestBadges_NeverRevoked(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signUp(t, "u1")

	// Build a 3-day streak through logins, then break it.
	for i := 0; i < 2; i++ {
		h.clock.AddDays(1)
		if _, err := h.progress.RecordLogin(ctx, "u1"); err != nil {
			t.Fatalf("login: %v", err)
		}
	}
	p, _ := h.progress.Get(ctx, "u1")
	if !p.HasBadge("streak-3") {
		t.Fatalf("expected streak-3 after 3 days, got %v", p.UnlockedBadgeIDs)
	}

	h.clock.AddDays(5)
	if _, err := h.progress.RecordLogin(ctx, "u1"); err != nil {
		t.Fatalf("login: %v", err)
	}
	p, _ = h.progress.Get(ctx, "u1")
	if p.StreakDays != 1 {
		t.Errorf("streak should reset, got %d", p.StreakDays)
	}
	if !p.HasBadge("streak-3") || !p.HasBadge("newbie") {
		t.Errorf("badges revoked: %v", p.UnlockedBadgeIDs)
	}
	if p.LongestStreak != 3 {
		t.Errorf("longest streak = %d, want 3", p.LongestStreak)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Streak Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestNextStreak(t *testing.T) {
	cases := []struct {
		name    string
		current int
		last    string
		day     string
		want    int
		changed bool
	}{
		{"first ever", 0, "", "2025-07-10", 1, true},
		{"consecutive", 4, "2025-07-09", "2025-07-10", 5, true},
		{"gap of five", 4, "2025-07-05", "2025-07-10", 1, true},
		{"month boundary", 2, "2025-06-30", "2025-07-01", 3, true},
		{"same day", 4, "2025-07-10", "2025-07-10", 4, false},
		{"backfill", 4, "2025-07-10", "2025-07-08", 4, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, changed := engagement.NextStreak(tc.current, tc.last, tc.day)
			if got != tc.want || changed != tc.changed {
				t.Errorf("NextStreak() = (%d, %v), want (%d, %v)", got, changed, tc.want, tc.changed)
			}
		})
	}
}

func TestRecordLogin_OncePerDay(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signUp(t, "u1")

	out, err := h.progress.RecordLogin(ctx, "u1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if out.Applied || out.Progress.StreakDays != 1 {
		t.Errorf("same-day login should be a no-op, got %+v", out)
	}

	h.clock.AddDays(1)
	out, _ = h.progress.RecordLogin(ctx, "u1")
	if !out.Applied || out.Progress.StreakDays != 2 {
		t.Errorf("next-day login should extend streak, got %+v", out)
	}
}

func TestRecordLogin_UnknownUser(t *testing.T) {
	h := newHarness(t)
	if _, err := h.progress.RecordLogin(context.Background(), "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Catalog Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestQuestCatalog(t *testing.T) {
	cat := engagement.QuestCatalog()
	if len(cat) != 6 {
		t.Fatalf("expected 6 templates, got %d", len(cat))
	}
	for _, q := range cat {
		if q.Points <= 0 || !q.Category.Valid() || q.TimeEstimate == "" {
			t.Errorf("invalid template %+v", q)
		}
	}
}

func TestSampleQuests_NoReplacement(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		got := engagement.SampleQuests(rand.New(rand.NewSource(seed)), 3)
		if len(got) != 3 {
			t.Fatalf("seed %d: got %d quests", seed, len(got))
		}
		ids := map[string]bool{}
		for _, q := range got {
			if ids[q.ID] {
				t.Fatalf("seed %d: duplicate %q", seed, q.ID)
			}
			ids[q.ID] = true
		}
	}
	if got := engagement.SampleQuests(rand.New(rand.NewSource(1)), 99); len(got) != 6 {
		t.Errorf("oversized sample = %d, want 6", len(got))
	}
}

func TestSampleQuests_Deterministic(t *testing.T) {
	a := engagement.SampleQuests(rand.New(rand.NewSource(7)), 3)
	b := engagement.SampleQuests(rand.New(rand.NewSource(7)), 3)
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatalf("same seed gave different samples: %v vs %v", a, b)
		}
	}
}

func TestSearchCatalog(t *testing.T) {
	got := engagement.SearchCatalog("medit")
	if !slices.ContainsFunc(got, func(q domain.QuestTemplate) bool { return q.ID == "morning-meditation" }) {
		t.Errorf("SearchCatalog(medit) = %v", got)
	}
	if len(got) >= len(engagement.QuestCatalog()) {
		t.Errorf("SearchCatalog(medit) should narrow the catalog, got %d", len(got))
	}
	if got := engagement.SearchCatalog(""); len(got) != 6 {
		t.Errorf("empty query should return catalog, got %d", len(got))
	}
	if got := engagement.SearchCatalog("zzzz"); len(got) != 0 {
		t.Errorf("no-match query returned %v", got)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Daily Quest Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestToday_CreatedOnceAndStable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signUp(t, "u1")

	first, err := h.quests.Today(ctx, "u1")
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if len(first.Quests) != 3 {
		t.Fatalf("expected 3 quests, got %d", len(first.Quests))
	}
	second, _ := h.quests.Today(ctx, "u1")
	for i := range first.Quests {
		if first.Quests[i].ID != second.Quests[i].ID {
			t.Fatalf("assignment changed between reads: %v vs %v", first.Quests, second.Quests)
		}
	}
}

func TestToday_InjectedRandIsDeterministic(t *testing.T) {
	h1 := newHarness(t)
	h2 := newHarness(t)
	a, _ := h1.quests.Today(context.Background(), "u1")
	b, _ := h2.quests.Today(context.Background(), "u1")
	for i := range a.Quests {
		if a.Quests[i].ID != b.Quests[i].ID {
			t.Fatalf("same seed, different quests: %v vs %v", a.Quests, b.Quests)
		}
	}
}

func TestForDate_PastWithoutAssignmentIsEmpty(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	a, err := h.quests.ForDate(ctx, "u1", "2025-06-01")
	if err != nil {
		t.Fatalf("ForDate: %v", err)
	}
	if a == nil || len(a.Quests) != 0 {
		t.Errorf("expected empty assignment, got %+v", a)
	}

	// No retroactive creation.
	stored, _ := h.db.GetDailyQuests(ctx, "u1", "2025-06-01")
	if stored != nil {
		t.Error("past date must not be backfilled")
	}
}

func TestForDate_InvalidDate(t *testing.T) {
	h := newHarness(t)
	_, err := h.quests.ForDate(context.Background(), "u1", "07/01/2025")
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestComplete_AwardsOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signUp(t, "u1")

	a, _ := h.quests.Today(ctx, "u1")
	q := a.Quests[0]

	out, err := h.quests.Complete(ctx, "u1", h.today(), q.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !out.Applied || out.XPAwarded != q.Points {
		t.Fatalf("first completion = %+v", out)
	}

	again, err := h.quests.Complete(ctx, "u1", h.today(), q.ID)
	if err != nil {
		t.Fatalf("second complete: %v", err)
	}
	if again.Applied {
		t.Error("second completion should be a no-op")
	}

	p, _ := h.progress.Get(ctx, "u1")
	if p.ExperiencePoints != q.Points || p.QuestsCompletedCount != 1 {
		t.Errorf("XP=%d count=%d, want %d and 1", p.ExperiencePoints, p.QuestsCompletedCount, q.Points)
	}

	stored, _ := h.quests.Today(ctx, "u1")
	if !stored.Quests[0].Completed || stored.Quests[0].CompletedAt == nil {
		t.Error("completion flag not persisted in place")
	}
	if len(stored.Quests) != len(a.Quests) {
		t.Error("completion must not remove quests")
	}
}

func TestComplete_UnknownQuestIsNoop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signUp(t, "u1")
	_, _ = h.quests.Today(ctx, "u1")

	out, err := h.quests.Complete(ctx, "u1", h.today(), "not-a-quest")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out.Applied || out.Progress.ExperiencePoints != 0 {
		t.Errorf("unknown quest should change nothing, got %+v", out)
	}

	out, err = h.quests.Complete(ctx, "u1", "2025-01-01", "morning-meditation")
	if err != nil || out.Applied {
		t.Errorf("date without assignment: out=%+v err=%v", out, err)
	}
}

func TestCreateCustom_Validation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		draft engagement.QuestDraft
	}{
		{"empty title", engagement.QuestDraft{Title: "   "}},
		{"negative points", engagement.QuestDraft{Title: "Walk", Points: -1}},
		{"too many points", engagement.QuestDraft{Title: "Walk", Points: 500}},
		{"bad category", engagement.QuestDraft{Title: "Walk", Category: "sleep"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.quests.CreateCustom(ctx, "u1", h.today(), tc.draft)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("error = %v, want ValidationError", err)
			}
		})
	}
}

func TestCreateCustom_AppendsWithDefaults(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signUp(t, "u1")

	inst, err := h.quests.CreateCustom(ctx, "u1", h.today(), engagement.QuestDraft{Title: " Journal "})
	if err != nil {
		t.Fatalf("create custom: %v", err)
	}
	if inst.ID == "" || inst.Title != "Journal" || inst.Points != 10 ||
		inst.Category != domain.QuestMeditation || inst.TimeEstimate != "10 min" || inst.Completed {
		t.Errorf("unexpected instance %+v", inst)
	}

	a, _ := h.quests.Today(ctx, "u1")
	if len(a.Quests) != 4 || a.Quests[3].ID != inst.ID {
		t.Errorf("custom quest should follow today's 3 sampled quests, got %d", len(a.Quests))
	}

	p, _ := h.progress.Get(ctx, "u1")
	if p.ExperiencePoints != 0 || p.QuestsCompletedCount != 0 {
		t.Error("creating a quest must not touch stats")
	}

	// A past date gets an assignment holding only the custom quest.
	past, _ := h.quests.CreateCustom(ctx, "u1", "2025-06-15", engagement.QuestDraft{Title: "Stretch", Points: 5, Category: domain.QuestExercise})
	pa, _ := h.quests.ForDate(ctx, "u1", "2025-06-15")
	if len(pa.Quests) != 1 || pa.Quests[0].ID != past.ID {
		t.Errorf("past custom assignment = %+v", pa.Quests)
	}
}

func TestQuestFilter(t *testing.T) {
	quests := []domain.QuestInstance{
		{ID: "a", Category: domain.QuestMeditation, Completed: true},
		{ID: "b", Category: domain.QuestMeditation},
		{ID: "c", Category: domain.QuestExercise},
	}
	cases := []struct {
		f    engagement.QuestFilter
		want []string
	}{
		{engagement.QuestFilter{}, []string{"a", "b", "c"}},
		{engagement.QuestFilter{Status: engagement.StatusActive}, []string{"b", "c"}},
		{engagement.QuestFilter{Status: engagement.StatusCompleted}, []string{"a"}},
		{engagement.QuestFilter{Category: domain.QuestMeditation, Status: engagement.StatusActive}, []string{"b"}},
	}
	for _, tc := range cases {
		var got []string
		for _, q := range tc.f.Apply(quests) {
			got = append(got, q.ID)
		}
		if !slices.Equal(got, tc.want) {
			t.Errorf("filter %+v = %v, want %v", tc.f, got, tc.want)
		}
	}
	if err := (engagement.QuestFilter{Status: "done"}).Validate(); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("Validate(status=done) = %v", err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Mood Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestSubmitMood_FirstAwardsThenEditIsFree(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signUp(t, "u1")

	res, err := h.moods.Submit(ctx, "u1", h.today(), domain.MoodGood, "slept well")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !res.Created || res.Outcome.XPAwarded != 5 {
		t.Fatalf("first submit = %+v", res)
	}

	res, err = h.moods.Submit(ctx, "u1", h.today(), domain.MoodGreat, "even better")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if res.Created || res.Outcome.Applied {
		t.Errorf("edit should not award, got %+v", res)
	}

	history, _ := h.moods.History(ctx, "u1", 0)
	if len(history) != 1 || history[0].Mood != domain.MoodGreat || history[0].Note != "even better" {
		t.Errorf("history = %+v", history)
	}

	p, _ := h.progress.Get(ctx, "u1")
	if p.ExperiencePoints != 5 || p.MoodEntriesCount != 1 || p.StreakDays != 1 {
		t.Errorf("progress = XP %d, moods %d, streak %d", p.ExperiencePoints, p.MoodEntriesCount, p.StreakDays)
	}
}

func TestSubmitMood_StreakRule(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signUp(t, "u1") // lastActivityDate = day1, streak 1

	h.clock.AddDays(1)
	res, _ := h.moods.Submit(ctx, "u1", h.today(), domain.MoodOkay, "")
	if res.Outcome.Progress.StreakDays != 2 {
		t.Errorf("D-1 -> D: streak = %d, want 2", res.Outcome.Progress.StreakDays)
	}

	h.clock.AddDays(5)
	res, _ = h.moods.Submit(ctx, "u1", h.today(), domain.MoodOkay, "")
	if res.Outcome.Progress.StreakDays != 1 {
		t.Errorf("D-5 -> D: streak = %d, want 1", res.Outcome.Progress.StreakDays)
	}
	if res.Outcome.Progress.LastActivityDate != h.today() {
		t.Errorf("lastActivityDate = %q", res.Outcome.Progress.LastActivityDate)
	}
}

func TestSubmitMood_Validation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signUp(t, "u1")

	long := make([]rune, 151)
	for i := range long {
		long[i] = 'a'
	}
	cases := []struct {
		name string
		date string
		mood domain.MoodCategory
		note string
	}{
		{"empty mood", h.today(), "", ""},
		{"unknown mood", h.today(), "ecstatic", ""},
		{"bad date", "yesterday", domain.MoodGood, ""},
		{"future date", "2099-01-01", domain.MoodGood, ""},
		{"note too long", h.today(), domain.MoodGood, string(long)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := h.moods.Submit(ctx, "u1", tc.date, tc.mood, tc.note); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}

	history, _ := h.moods.History(ctx, "u1", 0)
	if len(history) != 0 {
		t.Error("rejected submissions must not be stored")
	}
}

func TestMoodHistoryAndTrend(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signUp(t, "u1")

	moods := []domain.MoodCategory{
		domain.MoodTerrible, domain.MoodBad, domain.MoodOkay, domain.MoodGood,
		domain.MoodGreat, domain.MoodGood, domain.MoodOkay, domain.MoodBad, domain.MoodGreat,
	}
	for i, m := range moods {
		if i > 0 {
			h.clock.AddDays(1)
		}
		if _, err := h.moods.Submit(ctx, "u1", h.today(), m, ""); err != nil {
			t.Fatalf("submit day %d: %v", i, err)
		}
	}

	history, _ := h.moods.History(ctx, "u1", 0)
	if len(history) != 7 {
		t.Fatalf("history len = %d, want 7", len(history))
	}
	if history[0].Date != h.today() {
		t.Errorf("history should be newest first, got %s", history[0].Date)
	}

	trend, _ := h.moods.Trend(ctx, "u1")
	if len(trend) != 7 {
		t.Fatalf("trend len = %d", len(trend))
	}
	if trend[6].Date != h.today() || trend[6].Score != 5 {
		t.Errorf("last trend point = %+v", trend[6])
	}
	if trend[0].Label != "07/03" || trend[0].Score != 3 {
		t.Errorf("first trend point = %+v", trend[0])
	}

	p, _ := h.progress.Get(ctx, "u1")
	if p.StreakDays != 9 || !p.HasBadge("moods-5") || !p.HasBadge("streak-7") {
		t.Errorf("progress after 9 days: streak %d, badges %v", p.StreakDays, p.UnlockedBadgeIDs)
	}
}

func TestSubmitMood_BackfillDoesNotMoveStreak(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signUp(t, "u1")
	h.clock.AddDays(1)
	_, _ = h.moods.Submit(ctx, "u1", h.today(), domain.MoodGood, "")

	res, err := h.moods.Submit(ctx, "u1", "2025-06-20", domain.MoodBad, "")
	if err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if !res.Created || res.Outcome.Progress.StreakDays != 2 || res.Outcome.Progress.LastActivityDate != h.today() {
		t.Errorf("backfill outcome = %+v", res.Outcome.Progress)
	}
}

func TestSubmitMood_BackfillInsideGapKeepsLastActivity(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	signedUp := h.signUp(t, "u1").LastActivityDate
	h.clock.AddDays(5)

	gapDay, err := domain.AddDays(h.today(), -2)
	if err != nil {
		t.Fatal(err)
	}
	res, err := h.moods.Submit(ctx, "u1", gapDay, domain.MoodOkay, "")
	if err != nil {
		t.Fatalf("backfill: %v", err)
	}
	p := res.Outcome.Progress
	if !res.Created || p.StreakDays != 1 || p.LastActivityDate != signedUp {
		t.Fatalf("backfill moved streak: streak=%d last=%s, want 1/%s", p.StreakDays, p.LastActivityDate, signedUp)
	}
	if res.Outcome.XPAwarded != 5 {
		t.Errorf("backfill XP = %d, want 5", res.Outcome.XPAwarded)
	}

	_, _ = h.moods.Submit(ctx, "u1", h.today(), domain.MoodGood, "")
	h.clock.AddDays(1)
	res, _ = h.moods.Submit(ctx, "u1", h.today(), domain.MoodGood, "")
	if res.Outcome.Progress.StreakDays != 2 || res.Outcome.Progress.LastActivityDate != h.today() {
		t.Errorf("streak after consecutive moods = %+v", res.Outcome.Progress)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Atomicity Tests
// ═══════════════════════════════════════════════════════════════════════════

// flakyStore fails every progress write.
type flakyStore struct {
	domain.Store
}

func (f flakyStore) PutProgress(context.Context, domain.UserProgress) error {
	return domain.Remote("put progress", errors.New("connection reset"))
}

func (f flakyStore) RunInTx(ctx context.Context, fn func(domain.Store) error) error {
	return f.Store.RunInTx(ctx, func(tx domain.Store) error { return fn(flakyStore{tx}) })
}

func TestRemoteFailure_RollsBackWholeUpdate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signUp(t, "u1")
	a, _ := h.quests.Today(ctx, "u1")

	h.build(flakyStore{h.db})

	if _, err := h.moods.Submit(ctx, "u1", h.today(), domain.MoodGood, ""); !errors.Is(err, domain.ErrRemoteFailure) {
		t.Fatalf("mood error = %v, want ErrRemoteFailure", err)
	}
	if m, _ := h.db.GetMood(ctx, "u1", h.today()); m != nil {
		t.Error("mood entry written despite failed progress update")
	}

	if _, err := h.quests.Complete(ctx, "u1", h.today(), a.Quests[0].ID); !errors.Is(err, domain.ErrRemoteFailure) {
		t.Fatalf("complete error = %v, want ErrRemoteFailure", err)
	}
	stored, _ := h.db.GetDailyQuests(ctx, "u1", h.today())
	if stored.Quests[0].Completed {
		t.Error("completion flag written despite failed progress update")
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Notification Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestNotification_DailyCap(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := h.notify.Create(ctx, domain.Notification{UserID: "u1", Type: domain.NotifyBadge, Title: "x"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	n, _ := h.notify.TodayCount(ctx, "u1")
	if n != 3 {
		t.Errorf("today count = %d, want 3 (capped)", n)
	}
	other, _ := h.notify.Create(ctx, domain.Notification{UserID: "u2", Type: domain.NotifyBadge, Title: "x"})
	if other == "" {
		t.Error("cap is per user")
	}
}

func TestNotification_QuietHours(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.clock.now = time.Date(2025, 7, 1, 23, 30, 0, 0, time.UTC)

	id, err := h.notify.Create(ctx, domain.Notification{UserID: "u1", Type: domain.NotifyLevelUp, Title: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id != "" {
		t.Error("notification created during quiet hours")
	}
}

func TestNotification_PendingAndShown(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.signUp(t, "u1") // newbie badge notification

	pending, _ := h.notify.Pending(ctx, "u1", 0)
	if len(pending) != 1 || pending[0].Type != domain.NotifyBadge {
		t.Fatalf("pending = %+v", pending)
	}
	if err := h.notify.MarkShown(ctx, "u1", pending[0].ID); err != nil {
		t.Fatalf("mark shown: %v", err)
	}
	pending, _ = h.notify.Pending(ctx, "u1", 0)
	if len(pending) != 0 {
		t.Errorf("expected no pending after mark, got %d", len(pending))
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// End-to-End
// ═══════════════════════════════════════════════════════════════════════════

func TestScenario_SignUpToQuestMaster(t *testing.T) {
	// All six templates assigned so the 15-point meditation quest is present.
	h := newHarness(t, engagement.WithSettings(engagement.Settings{
		DailyQuestCount: 6, MoodXPBonus: 5, MoodHistoryLimit: 7, MoodNoteMaxLen: 150, CustomQuestMaxPoints: 100,
	}))
	ctx := context.Background()

	p := h.signUp(t, "u1")
	if p.ExperiencePoints != 0 || p.Level != 1 || p.StreakDays != 1 ||
		!slices.Equal(p.UnlockedBadgeIDs, []string{"newbie"}) {
		t.Fatalf("fresh progress = %+v", p)
	}

	if _, err := h.quests.Today(ctx, "u1"); err != nil {
		t.Fatalf("today: %v", err)
	}
	out, err := h.quests.Complete(ctx, "u1", h.today(), "morning-meditation")
	if err != nil {
		t.Fatalf("complete meditation: %v", err)
	}
	if out.Progress.ExperiencePoints != 15 || out.Progress.Level != 1 || out.Progress.QuestsCompletedCount != 1 {
		t.Fatalf("after meditation = %+v", out.Progress)
	}

	for i := 0; i < 9; i++ {
		inst, err := h.quests.CreateCustom(ctx, "u1", h.today(), engagement.QuestDraft{Title: "Breathe", Points: 10})
		if err != nil {
			t.Fatalf("custom %d: %v", i, err)
		}
		out, err = h.quests.Complete(ctx, "u1", h.today(), inst.ID)
		if err != nil {
			t.Fatalf("complete custom %d: %v", i, err)
		}
	}

	final, _ := h.progress.Get(ctx, "u1")
	if final.QuestsCompletedCount != 10 {
		t.Errorf("quests completed = %d, want 10", final.QuestsCompletedCount)
	}
	if final.ExperiencePoints != 105 || final.Level != 2 {
		t.Errorf("XP/level = %d/%d, want 105/2", final.ExperiencePoints, final.Level)
	}
	if !final.HasBadge("quests-10") || !final.HasBadge("newbie") {
		t.Errorf("badges = %v", final.UnlockedBadgeIDs)
	}
	if !slices.Equal(out.NewBadges, []string{"quests-10"}) {
		t.Errorf("tenth completion new badges = %v", out.NewBadges)
	}

	types := h.pub.types()
	if !slices.Contains(types, domain.EventLevelUp) || !slices.Contains(types, domain.EventBadgeUnlocked) {
		t.Errorf("events = %v", types)
	}

	view, err := h.progress.View(ctx, "u1")
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if view.UnlockedCount != 2 || view.TotalBadges != 6 || view.LevelProgress != 2.5 || view.XPToNextLevel != 195 {
		t.Errorf("view = %+v", view)
	}
}

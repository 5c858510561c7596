package engagement

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/zennify/zennify/internal/domain"
	"github.com/zennify/zennify/internal/infra/metrics"
	"github.com/zennify/zennify/internal/platform/logger"
)

// ─── Settings & Options ─────────────────────────────────────────────────────

// Settings tunes the progression rules.
type Settings struct {
	DailyQuestCount      int   `toml:"daily_quest_count"`
	MoodXPBonus          int64 `toml:"mood_xp_bonus"`
	MoodHistoryLimit     int   `toml:"mood_history_limit"`
	MoodNoteMaxLen       int   `toml:"mood_note_max_len"`
	CustomQuestMaxPoints int64 `toml:"custom_quest_max_points"`
}

// DefaultSettings returns the stock progression rules.
func DefaultSettings() Settings {
	return Settings{
		DailyQuestCount:      3,
		MoodXPBonus:          5,
		MoodHistoryLimit:     7,
		MoodNoteMaxLen:       150,
		CustomQuestMaxPoints: 100,
	}
}

// Option configures a service.
type Option func(*core)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *core) { c.now = now }
}

// WithLocation sets the timezone used to derive "today".
func WithLocation(loc *time.Location) Option {
	return func(c *core) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithRand sets the source used to sample daily quests.
func WithRand(r *rand.Rand) Option {
	return func(c *core) { c.rng = r }
}

// WithLogger sets the service logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *core) { c.log = l }
}

// WithPublisher sets the event sink for progression events.
func WithPublisher(p domain.Publisher) Option {
	return func(c *core) { c.pub = p }
}

// WithNotifications routes level-up and badge notifications through n.
func WithNotifications(n *NotificationService) Option {
	return func(c *core) { c.notify = n }
}

// WithSettings replaces the progression rules.
func WithSettings(s Settings) Option {
	return func(c *core) { c.settings = s }
}

// core holds what every engagement service shares.
type core struct {
	store    domain.Store
	log      *logger.Logger
	pub      domain.Publisher
	notify   *NotificationService
	now      func() time.Time
	loc      *time.Location
	settings Settings

	rngMu sync.Mutex
	rng   *rand.Rand
}

func newCore(store domain.Store, name string, opts []Option) *core {
	c := &core{
		store:    store,
		log:      logger.Nop(),
		now:      time.Now,
		loc:      time.UTC,
		settings: DefaultSettings(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewSource(c.now().UnixNano()))
	}
	c.log = c.log.With("service", name)
	return c
}

// TodayKey returns today's date key in the configured location.
func (c *core) TodayKey() string { return c.today() }

func (c *core) today() string {
	return domain.DateKey(c.now(), c.loc)
}

func (c *core) sample(n int) []domain.QuestTemplate {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	return SampleQuests(c.rng, n)
}

// inTx runs fn in a store transaction and logs store failures.
func (c *core) inTx(ctx context.Context, op, userID string, fn func(tx domain.Store) error) error {
	err := c.store.RunInTx(ctx, fn)
	c.logFailure(op, userID, err)
	return err
}

func (c *core) logFailure(op, userID string, err error) {
	if err != nil && errors.Is(err, domain.ErrRemoteFailure) {
		metrics.StoreErrors.WithLabelValues(op).Inc()
		c.log.Error("store operation abandoned", "op", op, "user_id", userID, "error", err)
	}
}

// loadProgress reads the progress document, treating absence as ErrNotFound.
func loadProgress(ctx context.Context, s domain.Store, userID string) (*domain.UserProgress, error) {
	p, err := s.GetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

// ─── Outcome ────────────────────────────────────────────────────────────────

// Outcome describes what a progression mutation changed.
type Outcome struct {
	Progress      domain.UserProgress `json:"progress"`
	Applied       bool                `json:"applied"`
	XPAwarded     int64               `json:"xp_awarded"`
	PreviousLevel int                 `json:"previous_level"`
	NewBadges     []string            `json:"new_badges,omitempty"`
}

// LeveledUp reports whether the mutation crossed a level boundary.
func (o Outcome) LeveledUp() bool {
	return o.Applied && o.Progress.Level > o.PreviousLevel
}

// award adds xp and recomputes the level in the same write.
func award(p *domain.UserProgress, xp int64) {
	p.ExperiencePoints += xp
	p.Level = LevelForXP(p.ExperiencePoints)
}

// settle runs the post-commit effects of an applied outcome: metrics,
// notifications and events. Failures here never undo the commit.
func (c *core) settle(ctx context.Context, source string, o Outcome, ev domain.Event) {
	if !o.Applied {
		return
	}
	userID := o.Progress.UserID
	if o.XPAwarded > 0 {
		metrics.XPAwarded.WithLabelValues(source).Add(float64(o.XPAwarded))
	}
	c.publish(ctx, ev)

	if o.LeveledUp() {
		metrics.LevelUps.Inc()
		c.log.Info("level up", "user_id", userID, "level", o.Progress.Level)
		c.createNotification(ctx, domain.Notification{
			UserID: userID,
			Type:   domain.NotifyLevelUp,
			Title:  "Level up!",
			Body:   "You reached level " + strconv.Itoa(o.Progress.Level) + ".",
		})
		c.publish(ctx, domain.Event{
			Type: domain.EventLevelUp, UserID: userID, At: c.now(),
			Data: map[string]any{"level": o.Progress.Level, "previous_level": o.PreviousLevel},
		})
	}

	for _, id := range o.NewBadges {
		metrics.BadgesUnlocked.WithLabelValues(id).Inc()
		def, _ := BadgeByID(id)
		c.log.Info("badge unlocked", "user_id", userID, "badge", id)
		c.createNotification(ctx, domain.Notification{
			UserID: userID,
			Type:   domain.NotifyBadge,
			Title:  "Badge unlocked: " + def.Name,
			Body:   def.Description,
		})
		c.publish(ctx, domain.Event{
			Type: domain.EventBadgeUnlocked, UserID: userID, At: c.now(),
			Data: map[string]any{"badge_id": id, "name": def.Name},
		})
	}
}

func (c *core) publish(ctx context.Context, ev domain.Event) {
	if c.pub == nil || ev.Type == "" {
		return
	}
	if err := c.pub.Publish(ctx, ev); err != nil {
		c.log.Warn("publish event", "type", string(ev.Type), "user_id", ev.UserID, "error", err)
	}
}

func (c *core) createNotification(ctx context.Context, n domain.Notification) {
	if c.notify == nil {
		return
	}
	if _, err := c.notify.Create(ctx, n); err != nil {
		c.log.Warn("create notification", "user_id", n.UserID, "error", err)
	}
}

// ─── Progress Service ───────────────────────────────────────────────────────

// ProgressService owns the per-user progression record.
type ProgressService struct {
	*core
}

// NewProgressService creates a progress service.
func NewProgressService(store domain.Store, opts ...Option) *ProgressService {
	return &ProgressService{core: newCore(store, "progress", opts)}
}

// Create seeds the progress record of a newly registered user: level 1,
// no XP, a one-day streak starting today and the registration badge.
// Calling it again for an existing user returns the stored record.
func (s *ProgressService) Create(ctx context.Context, userID, username string) (*domain.UserProgress, error) {
	if userID == "" {
		return nil, domain.Invalid("user_id", "required")
	}
	var out Outcome
	err := s.inTx(ctx, "create_progress", userID, func(tx domain.Store) error {
		existing, err := tx.GetProgress(ctx, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			out.Progress = *existing
			return nil
		}
		now := s.now()
		p := domain.UserProgress{
			UserID:           userID,
			Username:         username,
			Level:            LevelForXP(0),
			StreakDays:       1,
			LongestStreak:    1,
			LastActivityDate: s.today(),
			UnlockedBadgeIDs: []string{},
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		out.NewBadges = applyBadges(&p)
		out.PreviousLevel = p.Level
		out.Applied = true
		out.Progress = p
		return tx.PutProgress(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	s.settle(ctx, "signup", out, domain.Event{})
	return &out.Progress, nil
}

// Get returns the user's progress or ErrNotFound.
func (s *ProgressService) Get(ctx context.Context, userID string) (*domain.UserProgress, error) {
	p, err := loadProgress(ctx, s.store, userID)
	s.logFailure("get_progress", userID, err)
	return p, err
}

// RecordLogin counts a sign-in toward the streak. Only the first login
// of a calendar day moves the streak.
func (s *ProgressService) RecordLogin(ctx context.Context, userID string) (Outcome, error) {
	var out Outcome
	err := s.inTx(ctx, "record_login", userID, func(tx domain.Store) error {
		p, err := loadProgress(ctx, tx, userID)
		if err != nil {
			return err
		}
		out = Outcome{Progress: *p, PreviousLevel: p.Level}
		if !applyStreak(p, s.today()) {
			return nil
		}
		out.NewBadges = applyBadges(p)
		p.UpdatedAt = s.now()
		out.Progress = *p
		out.Applied = true
		return tx.PutProgress(ctx, *p)
	})
	if err != nil {
		return Outcome{}, err
	}
	s.settle(ctx, "login", out, domain.Event{})
	return out, nil
}

// ProgressView is the display-ready progression summary.
type ProgressView struct {
	Progress      domain.UserProgress  `json:"progress"`
	LevelProgress float64              `json:"level_progress_pct"`
	XPToNextLevel int64                `json:"xp_to_next_level"`
	NextLevelXP   int64                `json:"next_level_xp"`
	Badges        []domain.BadgeStatus `json:"badges"`
	UnlockedCount int                  `json:"unlocked_count"`
	TotalBadges   int                  `json:"total_badges"`
}

// View returns progress together with derived level and badge state.
func (s *ProgressService) View(ctx context.Context, userID string) (*ProgressView, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	badges := BadgeStatuses(p.UnlockedBadgeIDs)
	unlocked := 0
	for _, b := range badges {
		if b.Unlocked {
			unlocked++
		}
	}
	return &ProgressView{
		Progress:      *p,
		LevelProgress: ProgressPct(p.ExperiencePoints, p.Level),
		XPToNextLevel: XPToNextLevel(p.ExperiencePoints),
		NextLevelXP:   XPForLevel(p.Level + 1),
		Badges:        badges,
		UnlockedCount: unlocked,
		TotalBadges:   len(badges),
	}, nil
}

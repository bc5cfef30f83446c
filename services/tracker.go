package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"reward-ledger/dbctx"
	"reward-ledger/logger"
	"reward-ledger/models"
)

// CounterFamily selects which counter an event moves and which milestone
// table applies to it.
type CounterFamily string

const (
	FamilyView         CounterFamily = "view"
	FamilyRead         CounterFamily = "read"
	FamilyComment      CounterFamily = "comment"
	FamilyLike         CounterFamily = "like"
	FamilyLikeReceived CounterFamily = "like_received"
	FamilyProfileVisit CounterFamily = "profile_visit"
)

func (f CounterFamily) Valid() bool {
	switch f {
	case FamilyView, FamilyRead, FamilyComment, FamilyLike, FamilyLikeReceived, FamilyProfileVisit:
		return true
	}
	return false
}

type Milestone struct {
	Threshold int64
	BadgeID   string
}

// Milestone tables, keyed by the counter they watch. The comment family moves
// two counters and therefore has two tables.
var (
	viewMilestones = []Milestone{
		{10, models.BadgeObserver},
		{50, models.BadgeScout},
		{200, models.BadgeExplorer},
	}
	readMilestones = []Milestone{
		{5, models.BadgeBookworm},
		{25, models.BadgeScholar},
	}
	commentCountMilestones = []Milestone{
		{5, models.BadgeSocialButterfly},
	}
	commentedProjectMilestones = []Milestone{
		{10, models.BadgeCommentator},
		{50, models.BadgeCritic},
	}
	likeMilestones = []Milestone{
		{10, models.BadgeAdmirer},
		{50, models.BadgePatron},
	}
	likeReceivedMilestones = []Milestone{
		{10, models.BadgeRisingStar},
		{100, models.BadgeCelebrity},
	}
	profileVisitMilestones = []Milestone{
		{5, models.BadgeNetworker},
		{25, models.BadgeSocialite},
	}
	loginMilestones = []Milestone{
		{7, models.BadgeRegular},
		{30, models.BadgeDevotee},
	}
)

// milestoneAt returns the badge whose threshold equals value exactly. Counters
// only ever move by one, so an exact match fires once per threshold.
func milestoneAt(table []Milestone, value int64) (string, bool) {
	for _, m := range table {
		if m.Threshold == value {
			return m.BadgeID, true
		}
	}
	return "", false
}

// Counters is the user-visible snapshot of the state document counters.
type Counters struct {
	Views             int64 `json:"views"`
	Reads             int64 `json:"reads"`
	Comments          int64 `json:"comments"`
	CommentedProjects int64 `json:"commented_projects"`
	LikedProjects     int64 `json:"liked_projects"`
	LikesReceived     int64 `json:"likes_received"`
	ProfileVisits     int64 `json:"profile_visits"`
	LoginDays         int64 `json:"login_days"`
}

func countersOf(st models.GamificationState) Counters {
	return Counters{
		Views:             st.ViewCount,
		Reads:             st.ReadCount,
		Comments:          st.CommentCount,
		CommentedProjects: int64(len(st.CommentedProjects)),
		LikedProjects:     int64(len(st.LikedProjects)),
		LikesReceived:     st.LikeReceivedCount,
		ProfileVisits:     st.ProfileVisitsCount,
		LoginDays:         st.LoginDays,
	}
}

type TrackResult struct {
	Family        CounterFamily `json:"family"`
	Counted       bool          `json:"counted"`
	Counters      Counters      `json:"counters"`
	AwardedBadges []string      `json:"awarded_badges,omitempty"`
}

type CheckInResult struct {
	Outcome       Outcome         `json:"outcome"`
	LoginDays     int64           `json:"login_days"`
	XP            *XPResult       `json:"xp,omitempty"`
	Currency      *CurrencyResult `json:"currency,omitempty"`
	AwardedBadges []string        `json:"awarded_badges,omitempty"`
}

const (
	dailyLoginKey      = "daily_login"
	dailyLoginXP       = 5
	dailyLoginCurrency = 10
)

// TrackerService moves the activity counters and fires milestone badges.
type TrackerService struct {
	DB     *gorm.DB
	Log    *logger.Logger
	Ledger *LedgerService
	Badges *BadgeService
}

func NewTrackerService(db *gorm.DB, log *logger.Logger, ledger *LedgerService, badges *BadgeService) *TrackerService {
	return &TrackerService{
		DB:     db,
		Log:    log.With("service", "TrackerService"),
		Ledger: ledger,
		Badges: badges,
	}
}

// TrackEvent records one event against userID's counters. userID is always
// the account whose counter moves: the viewer for view, the content owner for
// like_received, the visitor for profile_visit.
func (s *TrackerService) TrackEvent(ctx context.Context, userID string, family CounterFamily, targetID string) (*TrackResult, error) {
	if !family.Valid() {
		return nil, invalid("unknown counter family %q", family)
	}
	var res *TrackResult
	err := dbctx.Run(ctx, s.DB, s.Log, func(dbc dbctx.Context) error {
		user, err := LockUser(dbc, userID)
		if err != nil {
			return err
		}
		r, err := s.TrackEventTx(dbc, user, family, targetID)
		if err != nil {
			return err
		}
		if r.Counted {
			if err := SaveUser(dbc, user); err != nil {
				return err
			}
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// TrackEventTx is TrackEvent against a user already locked by dbc.
func (s *TrackerService) TrackEventTx(dbc dbctx.Context, user *models.User, family CounterFamily, targetID string) (*TrackResult, error) {
	res := &TrackResult{Family: family}

	type crossing struct {
		table []Milestone
		value int64
	}
	var crossed []crossing

	st := user.State()
	switch family {
	case FamilyView:
		st.ViewCount++
		crossed = append(crossed, crossing{viewMilestones, st.ViewCount})
		res.Counted = true

	case FamilyRead:
		st.ReadCount++
		crossed = append(crossed, crossing{readMilestones, st.ReadCount})
		res.Counted = true

	case FamilyComment:
		st.CommentCount++
		crossed = append(crossed, crossing{commentCountMilestones, st.CommentCount})
		if targetID != "" {
			var added bool
			st.CommentedProjects, added = models.AddUnique(st.CommentedProjects, targetID)
			if added {
				crossed = append(crossed, crossing{commentedProjectMilestones, int64(len(st.CommentedProjects))})
			}
		}
		res.Counted = true

	case FamilyLike:
		if targetID == "" {
			return nil, invalid("like events require a target")
		}
		var added bool
		st.LikedProjects, added = models.AddUnique(st.LikedProjects, targetID)
		if added {
			crossed = append(crossed, crossing{likeMilestones, int64(len(st.LikedProjects))})
		}
		res.Counted = added

	case FamilyLikeReceived:
		st.LikeReceivedCount++
		crossed = append(crossed, crossing{likeReceivedMilestones, st.LikeReceivedCount})
		res.Counted = true

	case FamilyProfileVisit:
		added, err := s.recordVisit(dbc, user.ID, targetID)
		if err != nil {
			return nil, err
		}
		if added {
			st.ProfileVisitsCount++
			crossed = append(crossed, crossing{profileVisitMilestones, st.ProfileVisitsCount})
		}
		res.Counted = added

	default:
		return nil, invalid("unknown counter family %q", family)
	}
	user.SetState(st)

	for _, c := range crossed {
		badgeID, ok := milestoneAt(c.table, c.value)
		if !ok {
			continue
		}
		r, err := s.Badges.AwardTx(dbc, user, badgeID)
		if err != nil {
			return nil, err
		}
		if r.Outcome == OutcomeGranted {
			res.AwardedBadges = append(res.AwardedBadges, badgeID)
		}
	}

	res.Counters = countersOf(user.State())
	if res.Counted {
		s.Log.Debug("event tracked", "user_id", user.ID, "family", family, "target_id", targetID, "badges", len(res.AwardedBadges))
	}
	return res, nil
}

// recordVisit inserts the (visitor, target) pair. The insert succeeding is the
// signal that this visit is new.
func (s *TrackerService) recordVisit(dbc dbctx.Context, visitorID, targetID string) (bool, error) {
	if targetID == "" {
		return false, invalid("profile visits require a target")
	}
	if targetID == visitorID {
		return false, nil
	}
	if _, err := uuid.Parse(targetID); err != nil {
		return false, notFound("user %s", targetID)
	}
	tx := dbc.Tx.WithContext(dbc.Ctx)

	var target int64
	if err := tx.Model(&models.User{}).Where("id = ?", targetID).Count(&target).Error; err != nil {
		return false, err
	}
	if target == 0 {
		return false, notFound("user %s", targetID)
	}

	result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.ProfileVisit{
		ID:        uuid.NewString(),
		VisitorID: visitorID,
		TargetID:  targetID,
	})
	if result.Error != nil {
		return false, fmt.Errorf("record profile visit: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// DailyCheckIn grants the login reward once per calendar day and counts the
// day towards the login milestones.
func (s *TrackerService) DailyCheckIn(ctx context.Context, userID string) (*CheckInResult, error) {
	var res *CheckInResult
	err := dbctx.Run(ctx, s.DB, s.Log, func(dbc dbctx.Context) error {
		user, err := LockUser(dbc, userID)
		if err != nil {
			return err
		}

		xp, err := s.Ledger.GrantXP(dbc, user, dailyLoginXP, dailyLoginKey)
		if err != nil {
			return err
		}
		if xp.Outcome != OutcomeGranted {
			res = &CheckInResult{Outcome: xp.Outcome, LoginDays: user.State().LoginDays}
			return nil
		}

		cur, err := s.Ledger.CreditCurrency(dbc, user, dailyLoginCurrency, dailyLoginKey)
		if err != nil {
			return err
		}

		st := user.State()
		st.LoginDays++
		user.SetState(st)

		r := &CheckInResult{Outcome: OutcomeGranted, LoginDays: st.LoginDays, XP: xp, Currency: cur}
		if badgeID, ok := milestoneAt(loginMilestones, st.LoginDays); ok {
			b, err := s.Badges.AwardTx(dbc, user, badgeID)
			if err != nil {
				return err
			}
			if b.Outcome == OutcomeGranted {
				r.AwardedBadges = append(r.AwardedBadges, badgeID)
			}
		}
		if err := SaveUser(dbc, user); err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

package models

// GamificationStateVersion is bumped whenever a field changes meaning.
const GamificationStateVersion = 1

// GamificationState is the per-user counter document stored alongside the
// account row. It is mutated only while that row is locked.
type GamificationState struct {
	Version int `json:"version"`

	// DailyLimits maps a reason key to the last calendar day (YYYY-MM-DD) a
	// reward was granted under it.
	DailyLimits map[string]string `json:"dailyLimits"`

	ViewCount          int64 `json:"viewCount"`
	CommentCount       int64 `json:"commentCount"`
	LikeReceivedCount  int64 `json:"likeReceivedCount"`
	ProfileVisitsCount int64 `json:"profileVisitsCount"`
	ReadCount          int64 `json:"readCount"`
	LoginDays          int64 `json:"loginDays"`

	LikedProjects     []string `json:"likedProjects"`
	CommentedProjects []string `json:"commentedProjects"`
}

func NewGamificationState() GamificationState {
	return GamificationState{
		Version:     GamificationStateVersion,
		DailyLimits: map[string]string{},
	}
}

// Normalize fills in fields a document written by an older version, or never
// written at all, may be missing.
func (s GamificationState) Normalize() GamificationState {
	if s.Version == 0 {
		s.Version = GamificationStateVersion
	}
	if s.DailyLimits == nil {
		s.DailyLimits = map[string]string{}
	}
	return s
}

// AddUnique appends id to list unless it is already present. The boolean
// reports whether the list grew.
func AddUnique(list []string, id string) ([]string, bool) {
	for _, existing := range list {
		if existing == id {
			return list, false
		}
	}
	out := make([]string, len(list), len(list)+1)
	copy(out, list)
	return append(out, id), true
}

package models

import "time"

type QuestionType string

// Question types
const (
	SingleChoice    QuestionType = "single_choice"
	MultipleChoice  QuestionType = "multiple_choice"
	Ranking         QuestionType = "ranking"
	Likert          QuestionType = "likert"
	NumericEstimate QuestionType = "numeric_estimate"
)

// HasOptions reports whether answers to this type select poll options.
func (t QuestionType) HasOptions() bool {
	return t == SingleChoice || t == MultipleChoice || t == Ranking
}

func (t QuestionType) Valid() bool {
	switch t {
	case SingleChoice, MultipleChoice, Ranking, Likert, NumericEstimate:
		return true
	}
	return false
}

// Results visibility modes
const (
	VisibilityAlways     = "always"
	VisibilityAfterVote  = "after_vote"
	VisibilityAfterClose = "after_close"
)

type ResponseStatus string

// Response status constants
const (
	ResponseActive      ResponseStatus = "active"
	ResponseWithdrawn   ResponseStatus = "withdrawn"
	ResponseInvalidated ResponseStatus = "invalidated"
)

// Roles carried in the bearer token
const (
	RoleMember    = "member"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// Principal is the caller identity resolved from the request.
type Principal struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Role string `json:"role"`
}

// CanModerate reports whether the principal holds a moderation role.
func (p Principal) CanModerate() bool {
	return p.Role == RoleModerator || p.Role == RoleAdmin
}

// Collaborator records (read-only for the poll engine)

type Post struct {
	ID        string     `json:"id"`
	AuthorID  string     `json:"author_id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"-"`
}

func (p Post) Active() bool { return p.DeletedAt == nil }

type Account struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Role      string     `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"-"`
}

func (a Account) Active() bool { return a.DeletedAt == nil }

// Expert credential kinds and states
const (
	CredentialVerifiedExpert = "verified_expert"
	CredentialBadge          = "badge"

	CredentialActive  = "active"
	CredentialRevoked = "revoked"
	CredentialExpired = "expired"
)

type ExpertCredential struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Kind       string     `json:"kind"`
	Status     string     `json:"status"`
	ValidFrom  *time.Time `json:"valid_from,omitempty"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
}

// ValidAt reports whether the credential is active and inside its validity window.
func (c ExpertCredential) ValidAt(now time.Time) bool {
	if c.Status != CredentialActive {
		return false
	}
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return false
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return false
	}
	return true
}

// Domain types

type Poll struct {
	ID                 string       `json:"id"`
	PostID             string       `json:"post_id"`
	Question           string       `json:"question"`
	QuestionType       QuestionType `json:"question_type"`
	VisibilityMode     string       `json:"visibility_mode"`
	ExpertOnly         bool         `json:"expert_only"`
	AllowVoteChange    bool         `json:"allow_vote_change"`
	MinVoterReputation *int         `json:"min_voter_reputation,omitempty"`
	MinAccountAgeHours *int         `json:"min_account_age_hours,omitempty"`
	MinSelections      *int         `json:"min_selections,omitempty"`
	MaxSelections      *int         `json:"max_selections,omitempty"`
	ScalePoints        *int         `json:"scale_points,omitempty"`
	ScaleLabels        []string     `json:"scale_labels,omitempty"`
	NumericMin         *float64     `json:"numeric_min,omitempty"`
	NumericMax         *float64     `json:"numeric_max,omitempty"`
	NumericStep        *float64     `json:"numeric_step,omitempty"`
	NumericUnit        *string      `json:"numeric_unit,omitempty"`
	StartAt            *time.Time   `json:"start_at,omitempty"`
	EndAt              *time.Time   `json:"end_at,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
	DeletedAt          *time.Time   `json:"-"`
}

func (p Poll) Active() bool { return p.DeletedAt == nil }

// Started reports whether the poll has a start time that has passed.
func (p Poll) Started(now time.Time) bool {
	return p.StartAt != nil && !now.Before(*p.StartAt)
}

// OpenAt reports whether now lies inside the poll window. Missing bounds are open.
func (p Poll) OpenAt(now time.Time) bool {
	if p.StartAt != nil && now.Before(*p.StartAt) {
		return false
	}
	if p.EndAt != nil && now.After(*p.EndAt) {
		return false
	}
	return true
}

// Closed reports whether the poll's end time has passed.
func (p Poll) Closed(now time.Time) bool {
	return p.EndAt != nil && now.After(*p.EndAt)
}

type PollOption struct {
	ID        string     `json:"id"`
	PollID    string     `json:"poll_id"`
	Text      string     `json:"text"`
	Position  int        `json:"position"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"-"`
}

type PollWithOptions struct {
	Poll    Poll         `json:"poll"`
	Options []PollOption `json:"options"`
}

type PollResponse struct {
	ID           string         `json:"id"`
	PollID       string         `json:"poll_id"`
	RespondentID string         `json:"respondent_id"`
	Status       ResponseStatus `json:"status"`
	LikertValue  *int           `json:"likert_value,omitempty"`
	NumericValue *float64       `json:"numeric_value,omitempty"`
	WithdrawnAt  *time.Time     `json:"withdrawn_at,omitempty"`
	Version      int            `json:"version"` // bumped on every write to the response or its selections
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    *time.Time     `json:"-"`
}

func (r PollResponse) Active() bool {
	return r.DeletedAt == nil && r.Status == ResponseActive
}

type PollResponseOption struct {
	ID         string     `json:"id"`
	ResponseID string     `json:"response_id"`
	OptionID   string     `json:"option_id"`
	Position   *int       `json:"position,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `json:"-"`
}

type ResponseWithSelections struct {
	Response   PollResponse         `json:"response"`
	Selections []PollResponseOption `json:"selections"`
}

// Submission outcomes
const (
	OutcomeCreated   = "created"
	OutcomeUpdated   = "updated"
	OutcomeUnchanged = "unchanged"
)

type SubmitResult struct {
	Outcome string                 `json:"outcome"`
	Result  ResponseWithSelections `json:"result"`
}

// Results types

type OptionTally struct {
	OptionID     string   `json:"option_id"`
	Text         string   `json:"text"`
	Count        int      `json:"count"`
	MeanPosition *float64 `json:"mean_position,omitempty"`
	Rank         int      `json:"rank,omitempty"` // 1-indexed, ranking polls only
}

type LikertTally struct {
	Distribution map[int]int `json:"distribution"`
	Mean         *float64    `json:"mean,omitempty"`
}

type NumericSummary struct {
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean,omitempty"`
	Median *float64 `json:"median,omitempty"`
	P10    *float64 `json:"p10,omitempty"`
	P90    *float64 `json:"p90,omitempty"`
}

type PollResults struct {
	PollID       string          `json:"poll_id"`
	QuestionType QuestionType    `json:"question_type"`
	Respondents  int             `json:"respondents"`
	Options      []OptionTally   `json:"options,omitempty"`
	Likert       *LikertTally    `json:"likert,omitempty"`
	Numeric      *NumericSummary `json:"numeric,omitempty"`
}

// Error response

type ErrorResponse struct {
	Error   string   `json:"error"`
	Code    string   `json:"code,omitempty"`
	Message string   `json:"message,omitempty"`
	Details []string `json:"details,omitempty"`
}

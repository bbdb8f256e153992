// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package polls

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/danielhkuo/forum-polls/apperr"
	"github.com/danielhkuo/forum-polls/auth"
	"github.com/danielhkuo/forum-polls/db"
	"github.com/danielhkuo/forum-polls/models"
	"github.com/danielhkuo/forum-polls/store"
)

// Creation limits
const (
	MinOptions     = 2
	MinScalePoints = 2
	MaxScalePoints = 11
)

// CreatePoll attaches a new poll to a post. Only the post author may do this,
// and a post carries at most one active poll.
func (s *Service) CreatePoll(ctx context.Context, p models.Principal, postID string, def models.PollDefinition) (models.PollWithOptions, error) {
	var out models.PollWithOptions

	err := s.store.InTx(ctx, func(q *store.Queries) error {
		post, err := loadPost(ctx, q, postID)
		if err != nil {
			return err
		}
		if err := requireAuthor(post, p); err != nil {
			return err
		}

		_, err = q.PollByPost(ctx, postID)
		if err == nil {
			return apperr.PolicyConflict("post %s already has a poll", postID)
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		now := s.now()
		poll := pollFromDefinition(postID, def)
		poll.ID = auth.GenerateID()
		poll.CreatedAt = now
		poll.UpdatedAt = now

		if err := validateConfig(poll, len(def.Options)); err != nil {
			return err
		}
		options, err := buildOptions(poll, def.Options, nil)
		if err != nil {
			return err
		}

		if err := q.InsertPoll(ctx, poll); err != nil {
			return fmt.Errorf("failed to insert poll: %w", err)
		}
		for i := range options {
			options[i].ID = auth.GenerateID()
			options[i].PollID = poll.ID
			options[i].CreatedAt = now
			options[i].UpdatedAt = now
			if err := q.InsertOption(ctx, options[i]); err != nil {
				return fmt.Errorf("failed to insert option: %w", err)
			}
		}

		out = models.PollWithOptions{Poll: poll, Options: sortedOptions(options)}
		return nil
	})
	if db.IsUniqueViolation(err) {
		err = apperr.PolicyConflict("post %s already has a poll", postID)
	}
	if err != nil {
		return models.PollWithOptions{}, s.fail(OpCreatePoll, err)
	}

	s.cache.InvalidatePoll(ctx, postID)
	slog.Info("poll created", "poll_id", out.Poll.ID, "post_id", postID, "question_type", out.Poll.QuestionType)
	return out, nil
}

// UpdatePoll applies a patch. Structural fields freeze once the poll has
// started or holds an active response.
func (s *Service) UpdatePoll(ctx context.Context, p models.Principal, postID string, patch models.PollPatch) (models.PollWithOptions, error) {
	var out models.PollWithOptions

	err := s.store.InTx(ctx, func(q *store.Queries) error {
		post, poll, err := loadPoll(ctx, q, postID)
		if err != nil {
			return err
		}
		if err := requireAuthor(post, p); err != nil {
			return err
		}

		now := s.now()
		merged := applyPatch(poll, patch)

		if changed := structuralChanges(poll, merged); len(changed) > 0 {
			if err := s.checkFrozen(ctx, q, poll, changed...); err != nil {
				return err
			}
		}

		options, err := q.Options(ctx, poll.ID)
		if err != nil {
			return err
		}
		if err := validateConfig(merged, len(options)); err != nil {
			return err
		}

		merged.UpdatedAt = now
		if err := q.UpdatePoll(ctx, merged); err != nil {
			return fmt.Errorf("failed to update poll: %w", err)
		}

		out = models.PollWithOptions{Poll: merged, Options: options}
		return nil
	})
	if err != nil {
		return models.PollWithOptions{}, s.fail(OpUpdatePoll, err)
	}

	s.cache.InvalidatePoll(ctx, postID)
	slog.Info("poll updated", "poll_id", out.Poll.ID, "post_id", postID)
	return out, nil
}

// DeletePoll retires the poll of a post. Its responses stay stored but are no
// longer reachable.
func (s *Service) DeletePoll(ctx context.Context, p models.Principal, postID string) error {
	var pollID string

	err := s.store.InTx(ctx, func(q *store.Queries) error {
		post, poll, err := loadPoll(ctx, q, postID)
		if err != nil {
			return err
		}
		if err := requireAuthor(post, p); err != nil {
			return err
		}
		pollID = poll.ID
		return q.RetirePoll(ctx, poll.ID, s.now())
	})
	if err != nil {
		return s.fail(OpDeletePoll, err)
	}

	s.cache.InvalidatePoll(ctx, postID)
	slog.Info("poll deleted", "poll_id", pollID, "post_id", postID)
	return nil
}

// GetPoll returns the poll of a post with its options in position order.
func (s *Service) GetPoll(ctx context.Context, postID string) (models.PollWithOptions, error) {
	if cached, ok := s.cache.GetPoll(ctx, postID); ok {
		return cached, nil
	}
	gen := s.cache.Generation(ctx, postID)

	q := s.store.Read()
	_, poll, err := loadPoll(ctx, q, postID)
	if err != nil {
		return models.PollWithOptions{}, err
	}
	options, err := q.Options(ctx, poll.ID)
	if err != nil {
		return models.PollWithOptions{}, fmt.Errorf("failed to load options: %w", err)
	}

	out := models.PollWithOptions{Poll: poll, Options: options}
	s.cache.SetPoll(ctx, postID, gen, out)
	return out, nil
}

// AddOption appends one option to an option-bearing poll that is not yet
// frozen. The post author and moderators may do this; moderators may also
// extend frozen single choice and ranking polls.
func (s *Service) AddOption(ctx context.Context, p models.Principal, postID string, in models.OptionInput) (models.PollOption, error) {
	var out models.PollOption

	err := s.store.InTx(ctx, func(q *store.Queries) error {
		post, poll, err := loadPoll(ctx, q, postID)
		if err != nil {
			return err
		}
		if err := requireAuthorOrModerator(post, p); err != nil {
			return err
		}
		if !poll.QuestionType.HasOptions() {
			return apperr.Invalid("%s polls have no options", poll.QuestionType)
		}
		if !moderatorMayExtend(p, poll) {
			if err := s.checkFrozen(ctx, q, poll, "options"); err != nil {
				return err
			}
		}

		existing, err := q.Options(ctx, poll.ID)
		if err != nil {
			return err
		}
		if err := checkOptionConflicts(existing, "", in.Text, in.Position); err != nil {
			return err
		}
		built, err := buildOptions(poll, []models.OptionInput{in}, existing)
		if err != nil {
			return err
		}

		now := s.now()
		out = built[0]
		out.ID = auth.GenerateID()
		out.PollID = poll.ID
		out.CreatedAt = now
		out.UpdatedAt = now
		if err := q.InsertOption(ctx, out); err != nil {
			return fmt.Errorf("failed to insert option: %w", err)
		}
		return nil
	})
	if db.IsUniqueViolation(err) {
		err = apperr.ConcurrencyConflict("option text or position was taken concurrently")
	}
	if err != nil {
		return models.PollOption{}, s.fail(OpAddOption, err)
	}

	s.cache.InvalidatePoll(ctx, postID)
	slog.Info("option added", "option_id", out.ID, "poll_id", out.PollID)
	return out, nil
}

// UpdateOption changes an option's text or position under the same
// uniqueness rules as creation. Text stays editable after voting starts so
// moderators can correct it; positions freeze with the rest of the structure.
func (s *Service) UpdateOption(ctx context.Context, p models.Principal, postID, optionID string, patch models.OptionPatch) (models.PollOption, error) {
	var out models.PollOption

	err := s.store.InTx(ctx, func(q *store.Queries) error {
		post, poll, err := loadPoll(ctx, q, postID)
		if err != nil {
			return err
		}
		if err := requireAuthorOrModerator(post, p); err != nil {
			return err
		}
		if !poll.QuestionType.HasOptions() {
			return apperr.Invalid("%s polls have no options", poll.QuestionType)
		}

		opt, err := q.OptionByID(ctx, poll.ID, optionID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("option %s not found", optionID)
		}
		if err != nil {
			return err
		}

		if patch.Text != nil {
			opt.Text = strings.TrimSpace(*patch.Text)
			if opt.Text == "" {
				return apperr.Invalid("option text is required")
			}
		}
		if patch.Position != nil && *patch.Position != opt.Position {
			if *patch.Position < 1 {
				return apperr.Invalid("option position %d must be at least 1", *patch.Position)
			}
			if err := s.checkFrozen(ctx, q, poll, "position"); err != nil {
				return err
			}
			opt.Position = *patch.Position
		}

		existing, err := q.Options(ctx, poll.ID)
		if err != nil {
			return err
		}
		if err := checkOptionConflicts(existing, opt.ID, opt.Text, &opt.Position); err != nil {
			return err
		}

		opt.UpdatedAt = s.now()
		if err := q.UpdateOption(ctx, opt); err != nil {
			return fmt.Errorf("failed to update option: %w", err)
		}
		out = opt
		return nil
	})
	if db.IsUniqueViolation(err) {
		err = apperr.ConcurrencyConflict("option text or position was taken concurrently")
	}
	if err != nil {
		return models.PollOption{}, s.fail(OpUpdateOption, err)
	}

	s.cache.InvalidatePoll(ctx, postID)
	slog.Info("option updated", "option_id", out.ID, "poll_id", out.PollID)
	return out, nil
}

// checkFrozen rejects a structural edit once the poll has started or holds an
// active response.
func (s *Service) checkFrozen(ctx context.Context, q *store.Queries, poll models.Poll, fields ...string) error {
	responses, err := q.CountActiveResponses(ctx, poll.ID)
	if err != nil {
		return err
	}
	if poll.Started(s.now()) || responses > 0 {
		return apperr.PolicyConflict("structural fields are frozen once the poll has started or has responses").
			WithDetails(fields...)
	}
	return nil
}

// moderatorMayExtend reports whether p may add an option to a frozen poll.
// Single choice and ranking answers stay valid when an option is added.
func moderatorMayExtend(p models.Principal, poll models.Poll) bool {
	return p.CanModerate() && (poll.QuestionType == models.SingleChoice || poll.QuestionType == models.Ranking)
}

func pollFromDefinition(postID string, def models.PollDefinition) models.Poll {
	poll := models.Poll{
		PostID:             postID,
		Question:           strings.TrimSpace(def.Question),
		QuestionType:       def.QuestionType,
		VisibilityMode:     def.VisibilityMode,
		ExpertOnly:         def.ExpertOnly,
		AllowVoteChange:    true,
		MinVoterReputation: def.MinVoterReputation,
		MinAccountAgeHours: def.MinAccountAgeHours,
		MinSelections:      def.MinSelections,
		MaxSelections:      def.MaxSelections,
		ScalePoints:        def.ScalePoints,
		ScaleLabels:        def.ScaleLabels,
		NumericMin:         def.NumericMin,
		NumericMax:         def.NumericMax,
		NumericStep:        def.NumericStep,
		NumericUnit:        def.NumericUnit,
		StartAt:            utc(def.StartAt),
		EndAt:              utc(def.EndAt),
	}
	if poll.VisibilityMode == "" {
		poll.VisibilityMode = models.VisibilityAlways
	}
	if def.AllowVoteChange != nil {
		poll.AllowVoteChange = *def.AllowVoteChange
	}
	return poll
}

func applyPatch(poll models.Poll, patch models.PollPatch) models.Poll {
	if patch.Question != nil {
		poll.Question = strings.TrimSpace(*patch.Question)
	}
	if patch.VisibilityMode != nil {
		poll.VisibilityMode = *patch.VisibilityMode
	}
	if patch.ExpertOnly != nil {
		poll.ExpertOnly = *patch.ExpertOnly
	}
	if patch.AllowVoteChange != nil {
		poll.AllowVoteChange = *patch.AllowVoteChange
	}
	if patch.MinVoterReputation != nil {
		poll.MinVoterReputation = patch.MinVoterReputation
	}
	if patch.MinAccountAgeHours != nil {
		poll.MinAccountAgeHours = patch.MinAccountAgeHours
	}
	if patch.MinSelections != nil {
		poll.MinSelections = patch.MinSelections
	}
	if patch.MaxSelections != nil {
		poll.MaxSelections = patch.MaxSelections
	}
	if patch.ScalePoints != nil {
		poll.ScalePoints = patch.ScalePoints
	}
	if patch.ScaleLabels != nil {
		poll.ScaleLabels = patch.ScaleLabels
	}
	if patch.NumericMin != nil {
		poll.NumericMin = patch.NumericMin
	}
	if patch.NumericMax != nil {
		poll.NumericMax = patch.NumericMax
	}
	if patch.NumericStep != nil {
		poll.NumericStep = patch.NumericStep
	}
	if patch.NumericUnit != nil {
		poll.NumericUnit = patch.NumericUnit
	}
	if patch.StartAt != nil {
		poll.StartAt = utc(patch.StartAt)
	}
	if patch.EndAt != nil {
		poll.EndAt = utc(patch.EndAt)
	}
	return poll
}

// structuralChanges lists the frozen fields that differ between two configs.
func structuralChanges(old, merged models.Poll) []string {
	var changed []string
	if !sameInt(old.MinSelections, merged.MinSelections) {
		changed = append(changed, "min_selections")
	}
	if !sameInt(old.MaxSelections, merged.MaxSelections) {
		changed = append(changed, "max_selections")
	}
	if !sameInt(old.ScalePoints, merged.ScalePoints) {
		changed = append(changed, "scale_points")
	}
	if !sameFloat(old.NumericMin, merged.NumericMin) {
		changed = append(changed, "numeric_min")
	}
	if !sameFloat(old.NumericMax, merged.NumericMax) {
		changed = append(changed, "numeric_max")
	}
	if !sameFloat(old.NumericStep, merged.NumericStep) {
		changed = append(changed, "numeric_step")
	}
	return changed
}

// validateConfig checks a full poll configuration and reports every problem.
func validateConfig(poll models.Poll, optionCount int) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if poll.Question == "" {
		add("question is required")
	}
	if !poll.QuestionType.Valid() {
		return apperr.Invalid("unknown question type %q", poll.QuestionType)
	}
	switch poll.VisibilityMode {
	case models.VisibilityAlways, models.VisibilityAfterVote, models.VisibilityAfterClose:
	default:
		add("unknown visibility mode %q", poll.VisibilityMode)
	}
	if poll.StartAt != nil && poll.EndAt != nil && !poll.StartAt.Before(*poll.EndAt) {
		add("start_at must be before end_at")
	}

	hasSelectionBounds := poll.MinSelections != nil || poll.MaxSelections != nil
	hasScale := poll.ScalePoints != nil || len(poll.ScaleLabels) > 0
	hasNumeric := poll.NumericMin != nil || poll.NumericMax != nil || poll.NumericStep != nil || poll.NumericUnit != nil

	if poll.QuestionType.HasOptions() {
		if optionCount < MinOptions {
			add("%s polls need at least %d options", poll.QuestionType, MinOptions)
		}
	} else if optionCount > 0 {
		add("%s polls take no options", poll.QuestionType)
	}
	if hasSelectionBounds && poll.QuestionType != models.MultipleChoice {
		add("min_selections and max_selections apply to multiple_choice only")
	}
	if hasScale && poll.QuestionType != models.Likert {
		add("scale_points and scale_labels apply to likert only")
	}
	if hasNumeric && poll.QuestionType != models.NumericEstimate {
		add("numeric fields apply to numeric_estimate only")
	}

	switch poll.QuestionType {
	case models.MultipleChoice:
		if poll.MinSelections != nil && *poll.MinSelections < 0 {
			add("min_selections must not be negative")
		}
		if poll.MaxSelections != nil && *poll.MaxSelections < 1 {
			add("max_selections must be at least 1")
		}
		if poll.MinSelections != nil && poll.MaxSelections != nil && *poll.MinSelections > *poll.MaxSelections {
			add("min_selections must not exceed max_selections")
		}
	case models.Likert:
		if poll.ScalePoints == nil {
			add("likert polls need scale_points")
		} else {
			n := *poll.ScalePoints
			if n < MinScalePoints || n > MaxScalePoints {
				add("scale_points must be between %d and %d", MinScalePoints, MaxScalePoints)
			}
			if len(poll.ScaleLabels) > 0 && len(poll.ScaleLabels) != n {
				add("scale_labels must have exactly %d entries", n)
			}
		}
	case models.NumericEstimate:
		if poll.NumericMin != nil && poll.NumericMax != nil && *poll.NumericMin >= *poll.NumericMax {
			add("numeric_min must be below numeric_max")
		}
		if poll.NumericStep != nil && *poll.NumericStep <= 0 {
			add("numeric_step must be positive")
		}
	}

	if len(problems) > 0 {
		return apperr.Invalid("invalid poll configuration").WithDetails(problems...)
	}
	return nil
}

// buildOptions validates new option inputs against each other and against
// existing options, and assigns omitted positions to the lowest unused integer.
func buildOptions(poll models.Poll, inputs []models.OptionInput, existing []models.PollOption) ([]models.PollOption, error) {
	if len(inputs) > 0 && !poll.QuestionType.HasOptions() {
		return nil, apperr.Invalid("%s polls take no options", poll.QuestionType)
	}

	texts := make(map[string]bool, len(inputs)+len(existing))
	taken := make(map[int]bool, len(inputs)+len(existing))
	for _, o := range existing {
		texts[strings.ToLower(o.Text)] = true
		taken[o.Position] = true
	}

	var problems []string
	options := make([]models.PollOption, len(inputs))
	for i, in := range inputs {
		text := strings.TrimSpace(in.Text)
		key := strings.ToLower(text)
		switch {
		case text == "":
			problems = append(problems, fmt.Sprintf("option %d has no text", i+1))
		case texts[key]:
			problems = append(problems, fmt.Sprintf("option text %q is used twice", text))
		}
		texts[key] = true
		options[i].Text = text

		if in.Position != nil {
			pos := *in.Position
			switch {
			case pos < 1:
				problems = append(problems, fmt.Sprintf("option position %d must be at least 1", pos))
			case taken[pos]:
				problems = append(problems, fmt.Sprintf("option position %d is used twice", pos))
			}
			taken[pos] = true
			options[i].Position = pos
		}
	}
	if len(problems) > 0 {
		return nil, apperr.Invalid("invalid options").WithDetails(problems...)
	}

	next := 1
	for i, in := range inputs {
		if in.Position != nil {
			continue
		}
		for taken[next] {
			next++
		}
		options[i].Position = next
		taken[next] = true
	}
	return options, nil
}

// checkOptionConflicts reports a policy conflict when text or position is
// already held by another stored option.
func checkOptionConflicts(existing []models.PollOption, selfID, text string, position *int) error {
	for _, o := range existing {
		if o.ID == selfID {
			continue
		}
		if strings.EqualFold(o.Text, strings.TrimSpace(text)) {
			return apperr.PolicyConflict("option text %q already exists", o.Text)
		}
		if position != nil && o.Position == *position {
			return apperr.PolicyConflict("option position %d is taken", o.Position)
		}
	}
	return nil
}

package domain

import (
	"encoding/json"
	"maps"
)

// Strategy is the merge policy applied when an update is folded into the state.
type Strategy string

const (
	// Replace overwrites the field when the update carries a value and keeps it otherwise.
	Replace Strategy = "replace"
	// AppendList concatenates the update's items after the existing ones.
	AppendList Strategy = "append"
	// ShallowMerge overwrites individual keys carried by the update.
	ShallowMerge Strategy = "shallow_merge"
)

// Field names a WorkflowState field, using its JSON key.
type Field string

const (
	FieldMessages         Field = "messages"
	FieldContext          Field = "context"
	FieldSummarizer       Field = "summarizer"
	FieldSimplifier       Field = "simplifier"
	FieldImpact           Field = "impact"
	FieldPlanner          Field = "planner"
	FieldGeneral          Field = "general"
	FieldNext             Field = "next"
	FieldLanguageDetected Field = "languageDetected"
	FieldError            Field = "error"
)

// Nullable is a field write that distinguishes "absent" from an explicit null.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// Some returns a write of v.
func Some[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Value: &v}
}

// Null returns an explicit null write.
func Null[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}

// Update is a partial WorkflowState. Zero-valued fields are absent and leave the
// state untouched.
type Update struct {
	Messages []Message
	Context  *RequestContext

	Summarizer *SummaryOutput
	Simplifier *SimplifiedOutput
	Impact     *ImpactOutput
	Planner    *PlanOutput
	General    *GeneralOutput

	Next             AgentID
	LanguageDetected string

	Error Nullable[string]
}

// ErrorUpdate returns an update that records msg as the run error.
func ErrorUpdate(msg string) Update {
	return Update{Error: Some(msg)}
}

// fieldSpec binds a field to its strategy and the functions applying it.
// merge folds an update into a state; combine folds a later update into an earlier one.
type fieldSpec struct {
	field    Field
	strategy Strategy
	merge    func(dst *WorkflowState, u Update)
	combine  func(dst *Update, u Update)
}

// schema is the single declaration of per-field reducers. Both executors merge
// through it, so they observe identical semantics.
var schema = [...]fieldSpec{
	{FieldMessages, AppendList,
		func(s *WorkflowState, u Update) { s.Messages = appendList(s.Messages, u.Messages) },
		func(d *Update, u Update) { d.Messages = appendList(d.Messages, u.Messages) }},
	{FieldContext, ShallowMerge,
		func(s *WorkflowState, u Update) {
			if u.Context != nil {
				s.Context = mergeContext(s.Context, *u.Context)
			}
		},
		func(d *Update, u Update) {
			switch {
			case u.Context == nil:
			case d.Context == nil:
				c := mergeContext(RequestContext{}, *u.Context)
				d.Context = &c
			default:
				c := mergeContext(*d.Context, *u.Context)
				d.Context = &c
			}
		}},
	{FieldSummarizer, Replace,
		func(s *WorkflowState, u Update) { s.Summarizer = replace(s.Summarizer, u.Summarizer) },
		func(d *Update, u Update) { d.Summarizer = replace(d.Summarizer, u.Summarizer) }},
	{FieldSimplifier, Replace,
		func(s *WorkflowState, u Update) { s.Simplifier = replace(s.Simplifier, u.Simplifier) },
		func(d *Update, u Update) { d.Simplifier = replace(d.Simplifier, u.Simplifier) }},
	{FieldImpact, Replace,
		func(s *WorkflowState, u Update) { s.Impact = replace(s.Impact, u.Impact) },
		func(d *Update, u Update) { d.Impact = replace(d.Impact, u.Impact) }},
	{FieldPlanner, Replace,
		func(s *WorkflowState, u Update) { s.Planner = replace(s.Planner, u.Planner) },
		func(d *Update, u Update) { d.Planner = replace(d.Planner, u.Planner) }},
	{FieldGeneral, Replace,
		func(s *WorkflowState, u Update) { s.General = replace(s.General, u.General) },
		func(d *Update, u Update) { d.General = replace(d.General, u.General) }},
	{FieldNext, Replace,
		func(s *WorkflowState, u Update) { s.Next = replaceString(s.Next, u.Next) },
		func(d *Update, u Update) { d.Next = replaceString(d.Next, u.Next) }},
	{FieldLanguageDetected, Replace,
		func(s *WorkflowState, u Update) { s.LanguageDetected = replaceString(s.LanguageDetected, u.LanguageDetected) },
		func(d *Update, u Update) { d.LanguageDetected = replaceString(d.LanguageDetected, u.LanguageDetected) }},
	{FieldError, Replace,
		func(s *WorkflowState, u Update) {
			if u.Error.Set {
				s.Error = copyPtr(u.Error.Value)
			}
		},
		func(d *Update, u Update) {
			if u.Error.Set {
				d.Error = Nullable[string]{Set: true, Value: copyPtr(u.Error.Value)}
			}
		}},
}

// Schema returns the merge strategy declared for every state field.
func Schema() map[Field]Strategy {
	out := make(map[Field]Strategy, len(schema))
	for _, f := range schema {
		out[f.field] = f.strategy
	}
	return out
}

// Merge folds u into s field by field and returns the new state. s is not modified.
func (s WorkflowState) Merge(u Update) WorkflowState {
	next := s
	for _, f := range schema {
		f.merge(&next, u)
	}
	return next
}

// Combine folds two successive updates into their effective combination, so that
// s.Merge(a).Merge(b) equals s.Merge(Combine(a, b)).
func Combine(a, b Update) Update {
	out := a
	for _, f := range schema {
		f.combine(&out, b)
	}
	return out
}

// IsBookkeeping reports whether u only touches internal fields: appended messages
// and/or an error clear. Such updates are not worth streaming.
func (u Update) IsBookkeeping() bool {
	if u.Context != nil || u.Next != "" || u.LanguageDetected != "" {
		return false
	}
	if u.Output() != nil {
		return false
	}
	return !u.Error.Set || u.Error.Value == nil
}

// Output returns the first output slot carried by u, or nil.
func (u Update) Output() Output {
	switch {
	case u.Summarizer != nil:
		return u.Summarizer
	case u.Simplifier != nil:
		return u.Simplifier
	case u.Impact != nil:
		return u.Impact
	case u.Planner != nil:
		return u.Planner
	case u.General != nil:
		return u.General
	}
	return nil
}

// ErrorMessage returns the error written by u, or the empty string.
func (u Update) ErrorMessage() string {
	if u.Error.Set && u.Error.Value != nil {
		return *u.Error.Value
	}
	return ""
}

type updateJSON struct {
	Messages         []Message         `json:"messages,omitempty"`
	Context          *RequestContext   `json:"context,omitempty"`
	Summarizer       *SummaryOutput    `json:"summarizer,omitempty"`
	Simplifier       *SimplifiedOutput `json:"simplifier,omitempty"`
	Impact           *ImpactOutput     `json:"impact,omitempty"`
	Planner          *PlanOutput       `json:"planner,omitempty"`
	General          *GeneralOutput    `json:"general,omitempty"`
	Next             AgentID           `json:"next,omitempty"`
	LanguageDetected string            `json:"languageDetected,omitempty"`
	Error            json.RawMessage   `json:"error,omitempty"`
}

// MarshalJSON emits only the fields carried by u. An explicit error clear is
// rendered as "error": null.
func (u Update) MarshalJSON() ([]byte, error) {
	out := updateJSON{
		Messages:         u.Messages,
		Context:          u.Context,
		Summarizer:       u.Summarizer,
		Simplifier:       u.Simplifier,
		Impact:           u.Impact,
		Planner:          u.Planner,
		General:          u.General,
		Next:             u.Next,
		LanguageDetected: u.LanguageDetected,
	}
	if u.Error.Set {
		raw, err := json.Marshal(u.Error.Value)
		if err != nil {
			return nil, err
		}
		out.Error = raw
	}
	return json.Marshal(out)
}

func appendList[T any](cur, add []T) []T {
	if len(add) == 0 {
		return cur
	}
	out := make([]T, 0, len(cur)+len(add))
	out = append(out, cur...)
	return append(out, add...)
}

func replace[T any](cur, next *T) *T {
	if next != nil {
		return next
	}
	return cur
}

func replaceString[T ~string](cur, next T) T {
	if next != "" {
		return next
	}
	return cur
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func mergeContext(cur, patch RequestContext) RequestContext {
	out := RequestContext{
		Question: replaceString(cur.Question, patch.Question),
		Language: replaceString(cur.Language, patch.Language),
	}
	if len(cur.AdditionalContext) == 0 && len(patch.AdditionalContext) == 0 {
		out.AdditionalContext = cur.AdditionalContext
		return out
	}
	out.AdditionalContext = make(map[string]any, len(cur.AdditionalContext)+len(patch.AdditionalContext))
	maps.Copy(out.AdditionalContext, cur.AdditionalContext)
	maps.Copy(out.AdditionalContext, patch.AdditionalContext)
	return out
}

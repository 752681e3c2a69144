package domain

import (
	"strconv"
	"strings"
)

// Output is the structured result of one agent type.
// Text returns the most natural prose rendering, used as the streamed response.
type Output interface {
	Text() string
}

// SummaryOutput is produced by the summarizer.
type SummaryOutput struct {
	Summary         string   `json:"summary"`
	KeyPoints       []string `json:"keyPoints"`
	ComplexityScore float64  `json:"complexityScore"`
	Language        string   `json:"language,omitempty"`
}

func (o *SummaryOutput) Text() string { return o.Summary }

// GlossaryEntry explains one term replaced during simplification.
type GlossaryEntry struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// SimplifiedOutput is produced by the simplifier.
type SimplifiedOutput struct {
	SimplifiedText   string          `json:"simplifiedText"`
	Glossary         []GlossaryEntry `json:"glossary,omitempty"`
	ComplexityBefore float64         `json:"complexityBefore"`
	ComplexityAfter  float64         `json:"complexityAfter"`
	Language         string          `json:"language,omitempty"`
}

func (o *SimplifiedOutput) Text() string { return o.SimplifiedText }

// Severity grades how strongly an impact area is affected.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// ImpactArea is one domain affected by the analysed text (housing, taxes, ...).
type ImpactArea struct {
	Area        string   `json:"area"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// ImpactOutput is produced by the impact analyst.
type ImpactOutput struct {
	Overview        string       `json:"overview"`
	Areas           []ImpactArea `json:"areas"`
	Recommendations []string     `json:"recommendations,omitempty"`
	Language        string       `json:"language,omitempty"`
}

func (o *ImpactOutput) Text() string { return o.Overview }

// PlanStep is one ordered action of a plan.
type PlanStep struct {
	Order       int    `json:"order"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// PlanOutput is produced by the planner.
type PlanOutput struct {
	Goal     string     `json:"goal"`
	Steps    []PlanStep `json:"steps"`
	Language string     `json:"language,omitempty"`
}

// Text renders the goal followed by a numbered list of steps.
func (o *PlanOutput) Text() string {
	var b strings.Builder
	b.WriteString(o.Goal)
	for _, s := range o.Steps {
		b.WriteString("\n")
		b.WriteString(strconv.Itoa(s.Order))
		b.WriteString(". ")
		b.WriteString(s.Title)
	}
	return b.String()
}

// Source references a knowledge passage used to ground an answer.
type Source struct {
	ID    string  `json:"id"`
	Title string  `json:"title,omitempty"`
	Score float64 `json:"score"`
}

// GeneralOutput is produced by the general-purpose assistant.
type GeneralOutput struct {
	Answer   string   `json:"answer"`
	Sources  []Source `json:"sources,omitempty"`
	Language string   `json:"language,omitempty"`
}

func (o *GeneralOutput) Text() string { return o.Answer }

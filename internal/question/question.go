package question

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("question not found")
	ErrUnknownType = errors.New("unknown question type")
)

// GradeResult is the outcome of grading one response.
// Fraction is nil when the response could not be graded automatically.
// Extras are auxiliary qt vars to be stored on the graded step.
type GradeResult struct {
	Fraction *float64
	State    State
	Extras   map[string]string
}

// Graded builds a result whose state follows from the fraction.
func Graded(f float64) GradeResult {
	return GradeResult{Fraction: &f, State: StateForFraction(f)}
}

// WithExtra returns a copy of r carrying the extra qt var name=value.
func (r GradeResult) WithExtra(name, value string) GradeResult {
	ex := make(map[string]string, len(r.Extras)+1)
	for k, v := range r.Extras {
		ex[k] = v
	}
	ex[name] = value
	r.Extras = ex
	return r
}

// Question validates, grades and summarises responses.
type Question interface {
	ID() string
	MaxMark() float64
	IsCompleteResponse(r Response) bool
	IsGradableResponse(r Response) bool
	IsSameResponse(prev, next Response) bool
	GradeResponse(ctx context.Context, r Response) (GradeResult, error)
	SummariseResponse(r Response) string
}

type Choice struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
}

// Definition is the stored form of a question.
type Definition struct {
	ID        string   `yaml:"id" json:"id"`
	Type      string   `yaml:"type" json:"type"` // mcq_single, mcq_multi, true_false, short_word, numeric, essay
	Prompt    string   `yaml:"prompt,omitempty" json:"prompt,omitempty"`
	Choices   []Choice `yaml:"choices,omitempty" json:"choices,omitempty"`
	AnswerKey []string `yaml:"answer_key,omitempty" json:"answer_key,omitempty"`
	Points    float64  `yaml:"points" json:"points"`
}

type Option func(*config)

type config struct {
	MaxEditDistance   int  // for short-word fuzzy
	AllowPartialMulti bool // partial credit for mcq_multi without FP
}

func WithMaxEditDistance(n int) Option { return func(c *config) { c.MaxEditDistance = n } }
func WithPartialMulti(b bool) Option   { return func(c *config) { c.AllowPartialMulti = b } }

// Build turns a definition into a gradable Question.
func Build(def Definition, opts ...Option) (Question, error) {
	cfg := &config{
		MaxEditDistance:   1,
		AllowPartialMulti: true,
	}
	for _, o := range opts {
		o(cfg)
	}
	b := base{def: def}
	switch def.Type {
	case "mcq_single", "true_false":
		return mcqSingle{base: b}, nil
	case "mcq_multi":
		return mcqMulti{base: b, allowPartial: cfg.AllowPartialMulti}, nil
	case "short_word":
		return shortWord{base: b, maxEdit: cfg.MaxEditDistance}, nil
	case "numeric":
		return numeric{base: b}, nil
	case "essay":
		return essay{base: b}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, def.Type)
	}
}

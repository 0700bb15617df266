// Package control classifies short control phrases (yes, no, cancel, agent)
// without calling a model.
package control

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// MaxTokens is the longest message that is classified deterministically.
const MaxTokens = 12

// Class is the control meaning of a message.
type Class string

const (
	ClassNone        Class = ""
	ClassAffirmative Class = "affirmative"
	ClassNegative    Class = "negative"
	ClassCancel      Class = "cancel"
	ClassAgent       Class = "agent"
)

//go:embed phrases.yaml
var phrasesYAML []byte

type phraseCatalog struct {
	Affirmative []string `yaml:"affirmative"`
	Negative    []string `yaml:"negative"`
	Cancel      []string `yaml:"cancel"`
	Agent       []string `yaml:"agent"`
}

type rule struct {
	class    Class
	phrases  map[string]struct{}
	patterns []*regexp.Regexp
}

// Classifier matches normalized text against phrase sets and patterns.
type Classifier struct {
	rules []rule
}

var defaultClassifier = mustDefault()

func mustDefault() *Classifier {
	c, err := NewClassifier(phrasesYAML)
	if err != nil {
		panic(fmt.Sprintf("control: load phrases: %v", err))
	}
	return c
}

// NewClassifier builds a classifier from a YAML phrase catalog.
func NewClassifier(raw []byte) (*Classifier, error) {
	var cat phraseCatalog
	if err := yaml.Unmarshal(raw, &cat); err != nil {
		return nil, fmt.Errorf("parse phrase catalog: %w", err)
	}

	// Checked in order: an agent or cancel request outranks a bare yes/no.
	return &Classifier{rules: []rule{
		{
			class:   ClassAgent,
			phrases: phraseSet(cat.Agent),
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`\b(speak|talk|chat|connect)( me)? (to|with) (a |an |your )?(human|agent|person|someone|representative|staff)\b`),
				regexp.MustCompile(`\b(human|live) agent\b`),
			},
		},
		{
			class:   ClassCancel,
			phrases: phraseSet(cat.Cancel),
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`^(please )?cancel( (it|this|that|booking|the booking|my booking|everything|the ride|my ride))?( please)?$`),
				regexp.MustCompile(`^i (want|would like) to cancel\b`),
			},
		},
		{
			class:   ClassNegative,
			phrases: phraseSet(cat.Negative),
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`^no+( (thanks|thank you|please|sorry))*$`),
				regexp.MustCompile(`^(not|dont want) (this|that)( (one|car|vehicle))?$`),
			},
		},
		{
			class:   ClassAffirmative,
			phrases: phraseSet(cat.Affirmative),
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`^(yes|yeah|yep|ok|okay|sure)( (please|sure|go ahead|thanks|thank you|book it|confirm))*$`),
				regexp.MustCompile(`^(please )?(book|confirm|reserve) (it|that|this|that one|this one)( please)?$`),
			},
		},
	}}, nil
}

// Classify returns the control class of text using the embedded phrase catalog.
func Classify(text string) Class {
	return defaultClassifier.Classify(text)
}

// Classify returns the control class of text, or ClassNone when the message is
// longer than MaxTokens or matches nothing.
func (c *Classifier) Classify(text string) Class {
	normalized := Normalize(text)
	if normalized == "" {
		return ClassNone
	}
	if len(strings.Fields(normalized)) > MaxTokens {
		return ClassNone
	}

	for _, r := range c.rules {
		if _, ok := r.phrases[normalized]; ok {
			return r.class
		}
		for _, p := range r.patterns {
			if p.MatchString(normalized) {
				return r.class
			}
		}
	}
	return ClassNone
}

// Normalize trims, lowercases, folds diacritics, strips punctuation and
// collapses whitespace.
func Normalize(text string) string {
	folded, _, err := transform.String(foldTransformer(), text)
	if err != nil {
		folded = text
	}
	folded = strings.ToLower(folded)

	var sb strings.Builder
	sb.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r == '\'' || r == '’':
			// don't -> dont
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			sb.WriteRune(' ')
		default:
			sb.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

func foldTransformer() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

func phraseSet(phrases []string) map[string]struct{} {
	set := make(map[string]struct{}, len(phrases))
	for _, p := range phrases {
		set[Normalize(p)] = struct{}{}
	}
	return set
}

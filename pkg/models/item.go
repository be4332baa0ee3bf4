package models

import (
	"strings"
	"time"
)

// MaxLevel is the highest mastery level an item can reach
const MaxLevel = 100

// Kind is the grammatical category of a learnable item
type Kind string

const (
	KindNoun      Kind = "noun"
	KindVerb      Kind = "verb"
	KindVerbForm  Kind = "verbForm"
	KindAdjective Kind = "adjective"
)

// Kinds lists the categories a user can add words for
var Kinds = []Kind{KindNoun, KindVerb, KindAdjective}

// ParseKind maps user input to a Kind, falling back to noun
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "verb", "czasownik":
		return KindVerb
	case "adjective", "adj", "przymiotnik":
		return KindAdjective
	case "verbform":
		return KindVerbForm
	default:
		return KindNoun
	}
}

// Tense of a conjugated verb form
type Tense string

const (
	TensePresent Tense = "present"
	TensePast    Tense = "past"
	TenseFuture  Tense = "future"
)

// Tenses in the order forms are generated
var Tenses = []Tense{TensePresent, TensePast, TenseFuture}

// Persons are the grammatical persons 1..6 used for verb forms
var Persons = []string{"yo", "tú", "él/ella", "nosotros", "vosotros", "ellos/ellas"}

// PersonLabel returns the pronoun for a 1-based person
func PersonLabel(person int) string {
	if person < 1 || person > len(Persons) {
		return ""
	}
	return Persons[person-1]
}

// articleAlternatives pairs each definite article with its indefinite counterpart
var articleAlternatives = map[string]string{
	"el":   "un",
	"un":   "el",
	"la":   "una",
	"una":  "la",
	"los":  "unos",
	"unos": "los",
	"las":  "unas",
	"unas": "las",
}

// AlternativeArticle returns the designated alternative of an article,
// or the article itself when none is known.
func AlternativeArticle(article string) string {
	if alt, ok := articleAlternatives[strings.ToLower(article)]; ok {
		return alt
	}
	return article
}

// Item is a single practisable unit: a noun, an adjective, a verb or one
// conjugated form of a verb. Forms point at their verb through VerbID.
type Item struct {
	ID                 string     `json:"id" db:"id"`
	Kind               Kind       `json:"kind" db:"kind"`
	SourceText         string     `json:"source_text" db:"source_text"`
	TargetText         string     `json:"target_text" db:"target_text"`
	Article            string     `json:"article,omitempty" db:"article"`
	ExampleSentence    string     `json:"example_sentence" db:"example_sentence"`
	ExampleTranslation string     `json:"example_translation" db:"example_translation"`
	Level              int        `json:"level" db:"level"`
	LastLevelChangeAt  *time.Time `json:"last_level_change_at" db:"last_level_change_at"`
	InLearning         bool       `json:"in_learning" db:"in_learning"`
	VerbID             string     `json:"verb_id,omitempty" db:"verb_id"`
	Tense              Tense      `json:"tense,omitempty" db:"tense"`
	Person             int        `json:"person,omitempty" db:"person"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
}

// HasExample reports whether the item carries a usable example sentence
func (i Item) HasExample() bool {
	return strings.TrimSpace(i.ExampleSentence) != ""
}

// Selectable reports whether the item may be drawn into a session.
// Verb records only group their forms and are never practised directly.
func (i Item) Selectable() bool {
	return i.InLearning && i.HasExample() && i.Kind != KindVerb
}

// IsForm reports whether the item is a conjugated verb form
func (i Item) IsForm() bool {
	return i.Kind == KindVerbForm
}

// HasArticle reports whether the item is a noun with an article
func (i Item) HasArticle() bool {
	return i.Kind == KindNoun && i.Article != ""
}

// Expected returns the answer the learner has to produce for this item
func (i Item) Expected() string {
	if i.HasArticle() {
		return i.Article + " " + i.TargetText
	}
	return i.TargetText
}

// ResetProgress puts the item back at the start of learning
func (i *Item) ResetProgress() {
	i.InLearning = true
	i.Level = 0
	i.LastLevelChangeAt = nil
}

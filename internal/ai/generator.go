package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/example/vocabulario/pkg/models"
)

var (
	// ErrNoAPIKey is returned when the generator has no API key configured
	ErrNoAPIKey = errors.New("openai api key is not set")
	// ErrEmptyResponse is returned when the model answers with no content
	ErrEmptyResponse = errors.New("empty response from model")
)

// DefaultModel is used when no model is configured
const DefaultModel = openai.GPT4o

// Config configures the OpenAI client
type Config struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// Generator turns a prompt-language word into learnable items
type Generator struct {
	client *openai.Client
	model  string
	log    logrus.FieldLogger
	now    func() time.Time
}

// NewGenerator creates a generator backed by the OpenAI chat API
func NewGenerator(cfg Config, log logrus.FieldLogger) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Generator{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
		log:    log,
		now:    time.Now,
	}, nil
}

type wordData struct {
	Word        string              `json:"word"`
	Translation string              `json:"translation"`
	Article     string              `json:"article"`
	Forms       map[string][]string `json:"forms"`
}

type example struct {
	Example   string `json:"example"`
	ExamplePL string `json:"example_pl"`
}

type formExample struct {
	Tense           string `json:"tense"`
	Person          int    `json:"person"`
	TranslationForm string `json:"translation_form"`
	example
}

type verbExamples struct {
	FormsExamples []formExample `json:"forms_examples"`
}

// Generate asks the model for the translation and examples of a word.
// Verbs come back as the verb record followed by its 18 forms; other
// kinds as a single item. Nothing is put into learning.
func (g *Generator) Generate(ctx context.Context, word string, kind models.Kind) ([]models.Item, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return nil, errors.New("empty word")
	}
	if kind == models.KindVerbForm {
		kind = models.KindVerb
	}

	log := g.log.WithFields(logrus.Fields{"word": word, "kind": kind})
	log.Debug("generating word data")

	var data wordData
	if err := g.complete(ctx, wordPrompt(word, kind), maxTokens(kind, 800, 200), &data); err != nil {
		return nil, errors.Wrapf(err, "generate word data for %q", word)
	}
	if strings.TrimSpace(data.Translation) == "" {
		return nil, errors.Wrapf(ErrEmptyResponse, "no translation for %q", word)
	}

	now := g.now().UTC()
	base := models.Item{
		ID:         uuid.NewString(),
		Kind:       kind,
		SourceText: word,
		TargetText: strings.TrimSpace(data.Translation),
		CreatedAt:  now,
	}

	if kind != models.KindVerb {
		if kind == models.KindNoun {
			base.Article = strings.ToLower(strings.TrimSpace(data.Article))
		}
		var ex example
		if err := g.complete(ctx, examplePrompt(word, base), 200, &ex); err != nil {
			return nil, errors.Wrapf(err, "generate example for %q", word)
		}
		base.ExampleSentence = strings.TrimSpace(ex.Example)
		base.ExampleTranslation = strings.TrimSpace(ex.ExamplePL)
		return []models.Item{base}, nil
	}

	var ex verbExamples
	if err := g.complete(ctx, verbExamplePrompt(word, base.TargetText), 2000, &ex); err != nil {
		return nil, errors.Wrapf(err, "generate verb examples for %q", word)
	}
	items := append([]models.Item{base}, buildForms(base, data.Forms, ex.FormsExamples)...)
	log.WithField("forms", len(items)-1).Info("verb generated")
	return items, nil
}

// buildForms creates one item per tense and person, in generation order
func buildForms(verb models.Item, forms map[string][]string, examples []formExample) []models.Item {
	byKey := make(map[string]formExample, len(examples))
	for _, ex := range examples {
		byKey[fmt.Sprintf("%s/%d", strings.ToLower(ex.Tense), ex.Person)] = ex
	}

	var items []models.Item
	for _, tense := range models.Tenses {
		texts := forms[string(tense)]
		for person := 1; person <= len(models.Persons); person++ {
			if person > len(texts) || strings.TrimSpace(texts[person-1]) == "" {
				continue
			}
			ex := byKey[fmt.Sprintf("%s/%d", tense, person)]
			source := strings.TrimSpace(ex.TranslationForm)
			if source == "" {
				source = verb.SourceText
			}
			items = append(items, models.Item{
				ID:                 uuid.NewString(),
				Kind:               models.KindVerbForm,
				SourceText:         source,
				TargetText:         strings.TrimSpace(texts[person-1]),
				ExampleSentence:    strings.TrimSpace(ex.Example),
				ExampleTranslation: strings.TrimSpace(ex.ExamplePL),
				VerbID:             verb.ID,
				Tense:              tense,
				Person:             person,
				CreatedAt:          verb.CreatedAt,
			})
		}
	}
	return items
}

func (g *Generator) complete(ctx context.Context, prompt string, tokens int, out interface{}) error {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		MaxTokens:   tokens,
		Temperature: 0.3,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return errors.Wrap(err, "chat completion")
	}
	if len(resp.Choices) == 0 {
		return ErrEmptyResponse
	}
	text := StripCodeFence(resp.Choices[0].Message.Content)
	if text == "" {
		return ErrEmptyResponse
	}
	return errors.Wrap(json.Unmarshal([]byte(text), out), "decode model response")
}

// StripCodeFence removes markdown code fences around a JSON answer
func StripCodeFence(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func maxTokens(kind models.Kind, verb, other int) int {
	if kind == models.KindVerb {
		return verb
	}
	return other
}

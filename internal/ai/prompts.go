package ai

import (
	"fmt"

	"github.com/example/vocabulario/pkg/models"
)

func wordPrompt(word string, kind models.Kind) string {
	if kind == models.KindVerb {
		return fmt.Sprintf(`Translate Polish verb "%s" to Spanish. Return JSON:
{
  "word": "Polish word",
  "translation": "Spanish infinitive",
  "forms": {
    "present": ["yo form", "tú", "él/ella", "nosotros", "vosotros", "ellos/ellas"],
    "past": ["yo form (pretérito indefinido)", "tú", "él/ella", "nosotros", "vosotros", "ellos/ellas"],
    "future": ["yo form", "tú", "él/ella", "nosotros", "vosotros", "ellos/ellas"]
  }
}`, word)
	}

	article := ""
	if kind == models.KindNoun {
		article = `,
  "article": "el/la/los/las"`
	}
	return fmt.Sprintf(`Translate Polish %s "%s" to Spanish. Return JSON:
{
  "word": "Polish word",
  "translation": "Spanish word"%s
}`, kind, word, article)
}

func examplePrompt(word string, item models.Item) string {
	return fmt.Sprintf(`For Spanish %s "%s" (Polish: %s), generate one example sentence that contains the word exactly as written. Return JSON:
{
  "example": "Spanish sentence using the word",
  "example_pl": "Polish translation"
}`, item.Kind, item.Expected(), word)
}

func verbExamplePrompt(word, infinitive string) string {
	return fmt.Sprintf(`For Spanish verb "%s" (Polish: %s), generate an example sentence for EACH conjugation form. Each sentence must contain the form exactly. Return JSON:
{
  "forms_examples": [
    {"tense": "present", "person": 1, "translation_form": "Polish translation of this form", "example": "Spanish sentence using the yo form", "example_pl": "Polish translation"},
    {"tense": "present", "person": 2, "translation_form": "...", "example": "...", "example_pl": "..."},
    ... (all 18 forms: present 1-6, past 1-6, future 1-6)
  ]
}`, infinitive, word)
}

package quiz

import (
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/example/vocabulario/pkg/models"
)

// Blank replaces the answer inside the example sentence
const Blank = "_____"

// DistractorCount is the number of wrong options offered for a verb form
const DistractorCount = 2

// Question is a fill-in-the-blank exercise built from an item's example
type Question struct {
	ItemID   string
	Prompt   string   // Word in the learner's language
	Sentence string   // Example sentence with the answer blanked out
	Hint     string   // Translation of the example sentence
	Answer   string   // Text the learner has to produce
	Options  []string // Choices for verb forms, empty for free-text questions
}

// IsMultipleChoice reports whether the question offers options
func (q Question) IsMultipleChoice() bool {
	return len(q.Options) > 0
}

// Check judges an answer to this question.
// Picking one of the options is judged by exact equality with the form,
// anything else goes through IsCorrect. A noun blanked without its
// article also accepts the article and the noun.
func (q Question) Check(answer string, item models.Item) bool {
	answer = strings.TrimSpace(answer)
	if q.IsMultipleChoice() && lo.Contains(q.Options, answer) {
		return answer == strings.TrimSpace(q.Answer)
	}
	if IsCorrect(answer, q.Answer, item) {
		return true
	}
	// the blank may hold only the noun; the full form is still right
	if full := item.Expected(); item.HasArticle() && q.Answer != full {
		return IsCorrect(answer, full, item)
	}
	return false
}

// BuildQuestion creates the question for an item. Options are left empty;
// verb forms get them from VerbOptions.
func BuildQuestion(item models.Item) Question {
	q := Question{
		ItemID: item.ID,
		Prompt: item.SourceText,
		Hint:   item.ExampleTranslation,
		Answer: item.Expected(),
	}

	sentence, ok := BlankOut(item.ExampleSentence, q.Answer)
	if !ok && item.HasArticle() {
		// the example may use the noun with a different article
		if sentence, ok = BlankOut(item.ExampleSentence, item.TargetText); ok {
			q.Answer = item.TargetText
		}
	}
	if !ok {
		sentence = strings.TrimSpace(item.ExampleSentence) + " " + Blank
	}
	q.Sentence = sentence
	return q
}

// BlankOut replaces every case-insensitive occurrence of target in sentence.
// It reports whether anything was replaced.
func BlankOut(sentence, target string) (string, bool) {
	target = strings.TrimSpace(target)
	if target == "" {
		return sentence, false
	}
	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(target))
	if !re.MatchString(sentence) {
		return sentence, false
	}
	return re.ReplaceAllLiteralString(sentence, Blank), true
}

// VerbOptions returns the correct form of item together with up to
// DistractorCount different sibling forms, in random order.
func VerbOptions(item models.Item, forms []models.Item, rnd *rand.Rand) []string {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	others := lo.FilterMap(forms, func(f models.Item, _ int) (string, bool) {
		ok := f.IsForm() && f.VerbID == item.VerbID && f.TargetText != item.TargetText
		return f.TargetText, ok
	})
	others = lo.Uniq(others)

	rnd.Shuffle(len(others), func(i, j int) {
		others[i], others[j] = others[j], others[i]
	})
	if len(others) > DistractorCount {
		others = others[:DistractorCount]
	}

	options := append([]string{item.TargetText}, others...)
	rnd.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	return options
}

package orchestratornode

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MenuPhrases send the caller back to the dispatcher wherever they appear in
// the message.
var MenuPhrases = []string{"ana menü", "geri dön", "başka işlem"}

// IsMenuCommand folds text with Turkish casing rules ("GERİ DÖN" matches) and
// looks for any menu phrase.
func IsMenuCommand(text string) bool {
	// A Caser must not be shared between goroutines.
	folded := cases.Lower(language.Turkish).String(text)
	for _, phrase := range MenuPhrases {
		if strings.Contains(folded, phrase) {
			return true
		}
	}
	return false
}

func CheckMenuCommand(in *GraphState) (*GraphState, error) {
	if err := requireState(in); err != nil {
		return nil, err
	}
	in.MenuCommand = IsMenuCommand(in.Text)
	return in, nil
}

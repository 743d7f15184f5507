package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/classifier.txt
	classifierRaw string

	//go:embed template/extractor.txt
	extractorRaw string

	//go:embed template/composer.txt
	composerRaw string
)

// PromptSet holds the loaded system prompts.
type PromptSet struct {
	Classifier string
	Extractor  string
	Composer   string
}

func LoadPromptSet() PromptSet {
	return PromptSet{
		Classifier: strings.TrimSpace(classifierRaw),
		Extractor:  strings.TrimSpace(extractorRaw),
		Composer:   strings.TrimSpace(composerRaw),
	}
}

package prompt

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/story.txt
var storyTemplateText string

var storyTemplate = template.Must(template.New("story").Parse(storyTemplateText))

// Illustration prompt templates, cycled by attempt index.
var variations = []string{
	"Generate a vivid illustration for: %s. 2560×1440.",
	"Create an image showing: %s. 2560×1440.",
	"Visualize this scene: %s. 2560×1440.",
	"Draw an illustration: %s. 2560×1440.",
}

// VariationCount is the number of distinct illustration phrasings.
var VariationCount = len(variations)

// Story renders the structured story prompt for f.
func Story(f Fragments) string {
	var b strings.Builder
	if err := storyTemplate.Execute(&b, f); err != nil {
		// Fragments has every field the template references.
		panic(err)
	}
	return b.String()
}

// Variation returns the illustration prompt for attempt (0-based), cycling modulo VariationCount.
func Variation(attempt int, sectionText string) string {
	if attempt < 0 {
		attempt = -attempt
	}
	return fmt.Sprintf(variations[attempt%VariationCount], sectionText)
}

// Describe asks the text model for a short visual description of a section.
func Describe(sectionText string) string {
	return "Describe this scene in 3-4 sentences: " + sectionText
}

// FromDescription asks the image model to illustrate a generated description.
func FromDescription(description string) string {
	return "Generate a 2560×1440 image based on: " + description
}

// FinalAttempt is the last-resort prompt for the resolution section.
func FinalAttempt(sectionText string) string {
	return "I need an image for the ending: " + sectionText + ". Return only image."
}

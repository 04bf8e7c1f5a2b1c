package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visioncloud-backend/internal/vision"
)

func TestNameForHueBoundaries(t *testing.T) {
	tests := []struct {
		angle float64
		want  string
	}{
		{0, "vibrant red"},
		{29.999, "vibrant red"},
		{30, "sunny yellow"},
		{89.999, "sunny yellow"},
		{90, "lush green"},
		{150, "deep cyan"},
		{210, "royal blue"},
		{270, "majestic purple"},
		{329.999, "majestic purple"},
		{330, "vibrant red"},
		{359.9, "vibrant red"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NameForHue(tt.angle), "angle %v", tt.angle)
	}
}

func TestColorNameFromRGB(t *testing.T) {
	tests := []struct {
		name string
		c    vision.Color
		want string
	}{
		{"red", vision.Color{Red: 255}, "vibrant red"},
		{"grey has zero hue", vision.Color{Red: 128, Green: 128, Blue: 128}, "vibrant red"},
		{"yellow", vision.Color{Red: 255, Green: 255}, "sunny yellow"},
		{"green", vision.Color{Green: 255}, "lush green"},
		{"cyan", vision.Color{Green: 255, Blue: 255}, "deep cyan"},
		{"blue folds onto green", vision.Color{Blue: 255}, "lush green"},
		{"magenta folds onto yellow", vision.Color{Red: 255, Blue: 255}, "sunny yellow"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ColorName(tt.c))
		})
	}
}

func TestDeriveFallbacks(t *testing.T) {
	got := Derive(vision.Empty(nil))
	assert.Equal(t, Fragments{
		GenreDescription:  "general fiction",
		ColorDescriptions: "vibrant red, deep blue, forest green",
		ColorTransition:   "vibrant red to deep blue to forest green",
		ObjectNames:       "mysterious object, shadowy figure, ancient artifact",
		WebEntities:       "hidden secret, unexpected discovery, ancient myth",
		LandmarkNames:     "towering mountain, hidden valley, ancient temple",
		EmotionalTones:    "POSSIBLE joy/POSSIBLE sorrow",
	}, got)
	assert.Equal(t, got, Derive(nil))
}

func TestDeriveFromAnalysis(t *testing.T) {
	a := vision.Empty([]vision.Genre{{ID: "sci-fi"}, {ID: "fantasy", Style: "dark-fantasy"}})
	a.Colors = []vision.Color{{Red: 255}, {Green: 255}}
	a.Objects = []vision.Object{{Name: "Boat"}, {Name: "Person"}}
	a.Web.Entities = []vision.WebEntity{{Description: "a"}, {Description: "b"}, {Description: "c"}, {Description: "d"}}
	a.Landmarks = []vision.Landmark{{Name: "Eiffel Tower"}}
	a.Faces = []vision.Face{
		{JoyLikelihood: vision.LikelihoodVeryLikely, SorrowLikelihood: vision.LikelihoodVeryUnlikely},
		{JoyLikelihood: vision.LikelihoodUnlikely, SorrowLikelihood: vision.LikelihoodLikely},
	}

	got := Derive(a)
	assert.Equal(t, "Sci fi, Fantasy (dark fantasy)", got.GenreDescription)
	assert.Equal(t, "vibrant red, lush green", got.ColorDescriptions)
	assert.Equal(t, "vibrant red to lush green", got.ColorTransition)
	assert.Equal(t, "Boat, Person", got.ObjectNames)
	assert.Equal(t, "a, b, c", got.WebEntities)
	assert.Equal(t, "Eiffel Tower", got.LandmarkNames)
	assert.Equal(t, "VERY_LIKELY joy/VERY_UNLIKELY sorrow; UNLIKELY joy/LIKELY sorrow", got.EmotionalTones)
}

func TestSunsetScenarioFragments(t *testing.T) {
	a := vision.Empty([]vision.Genre{{ID: "fantasy", Style: "high-fantasy"}})
	a.Colors = []vision.Color{{Red: 255, Green: 0, Blue: 0}}

	got := Derive(a)
	assert.Equal(t, "vibrant red", got.ColorDescriptions)
	assert.Equal(t, "Fantasy (high fantasy)", got.GenreDescription)
	assert.Equal(t, "POSSIBLE joy/POSSIBLE sorrow", got.EmotionalTones)
}

func TestGenreNameOnlyCapitalizesFirstRune(t *testing.T) {
	assert.Equal(t, "Science fiction", genreName("science-fiction"))
	assert.Equal(t, "Élan vital", genreName("élan-vital"))
	assert.Equal(t, "", genreName(""))
}

func TestStoryPromptReferencesFragments(t *testing.T) {
	f := Derive(vision.Empty([]vision.Genre{{ID: "mystery"}}))
	got := Story(f)

	require.True(t, strings.HasPrefix(got, "Generate a creative Mystery story based on an image analysis.\n"))
	assert.Contains(t, got, `"introduction": "Write a setting and character introduction paragraph using vibrant red, deep blue, forest green colors. At most 5 sentences."`)
	assert.Contains(t, got, `"rising_action": "Write a conflict development paragraph with mysterious object, shadowy figure, ancient artifact. At most 5 sentences."`)
	assert.Contains(t, got, `"twist": "Write an unexpected revelation paragraph involving hidden secret, unexpected discovery, ancient myth. At most 5 sentences."`)
	assert.Contains(t, got, `"climax": "Write a peak conflict paragraph using towering mountain, hidden valley, ancient temple. At most 5 sentences."`)
	assert.Contains(t, got, `"resolution": "Write a conclusion paragraph reflecting vibrant red to deep blue to forest green color transition. At most 5 sentences."`)
	assert.True(t, strings.HasSuffix(got, "Use dramatic language and incorporate these emotional tones: POSSIBLE joy/POSSIBLE sorrow"))
}

func TestVariationCycles(t *testing.T) {
	want := []string{
		"Generate a vivid illustration for: dawn. 2560×1440.",
		"Create an image showing: dawn. 2560×1440.",
		"Visualize this scene: dawn. 2560×1440.",
		"Draw an illustration: dawn. 2560×1440.",
		"Generate a vivid illustration for: dawn. 2560×1440.",
	}
	for i, w := range want {
		assert.Equal(t, w, Variation(i, "dawn"))
	}
	assert.Equal(t, "Visualize this scene: 100% calm. 2560×1440.", Variation(2, "100% calm"))
}

func TestTwoStepAndFinalPrompts(t *testing.T) {
	assert.Equal(t, "Describe this scene in 3-4 sentences: dusk", Describe("dusk"))
	assert.Equal(t, "Generate a 2560×1440 image based on: A red sky.", FromDescription("A red sky."))
	assert.Equal(t, "I need an image for the ending: calm. Return only image.", FinalAttempt("calm"))
}

package prompt

import (
	"math"
	"strings"
	"unicode/utf8"

	"visioncloud-backend/internal/vision"
)

// Fallback phrases used when the analysis has nothing to offer for a fragment.
const (
	FallbackColorDescriptions = "vibrant red, deep blue, forest green"
	FallbackColorTransition   = "vibrant red to deep blue to forest green"
	FallbackObjectNames       = "mysterious object, shadowy figure, ancient artifact"
	FallbackWebEntities       = "hidden secret, unexpected discovery, ancient myth"
	FallbackLandmarkNames     = "towering mountain, hidden valley, ancient temple"
	FallbackEmotionalTones    = "POSSIBLE joy/POSSIBLE sorrow"
	FallbackGenreDescription  = "general fiction"
)

const maxWebEntities = 3

// Fragments are the descriptive phrases derived from an Analysis. They feed both the
// story prompt and the fallback story.
type Fragments struct {
	GenreDescription  string
	ColorDescriptions string
	ColorTransition   string
	ObjectNames       string
	WebEntities       string
	LandmarkNames     string
	EmotionalTones    string
}

// HueAngle returns |atan2(√3(g−b), 2r−g−b)| in degrees.
func HueAngle(c vision.Color) float64 {
	hue := math.Atan2(math.Sqrt(3)*(c.Green-c.Blue), 2*c.Red-c.Green-c.Blue)
	return math.Abs(hue * 180 / math.Pi)
}

// NameForHue buckets a hue angle into one of seven color names.
func NameForHue(angle float64) string {
	switch {
	case angle >= 330 || angle < 30:
		return "vibrant red"
	case angle >= 30 && angle < 90:
		return "sunny yellow"
	case angle >= 90 && angle < 150:
		return "lush green"
	case angle >= 150 && angle < 210:
		return "deep cyan"
	case angle >= 210 && angle < 270:
		return "royal blue"
	case angle >= 270 && angle < 330:
		return "majestic purple"
	default:
		return "neutral tone"
	}
}

// ColorName names an RGB color.
func ColorName(c vision.Color) string {
	return NameForHue(HueAngle(c))
}

// Derive computes all fragments for a. A nil analysis yields every fallback.
func Derive(a *vision.Analysis) Fragments {
	if a == nil {
		a = vision.Empty(nil)
	}
	f := Fragments{
		GenreDescription:  GenreDescription(a.Genres),
		ColorDescriptions: FallbackColorDescriptions,
		ColorTransition:   FallbackColorTransition,
		ObjectNames:       FallbackObjectNames,
		WebEntities:       FallbackWebEntities,
		LandmarkNames:     FallbackLandmarkNames,
		EmotionalTones:    FallbackEmotionalTones,
	}

	if len(a.Colors) > 0 {
		names := make([]string, 0, len(a.Colors))
		for _, c := range a.Colors {
			names = append(names, ColorName(c))
		}
		f.ColorDescriptions = strings.Join(names, ", ")
		f.ColorTransition = strings.Join(names, " to ")
	}
	if len(a.Objects) > 0 {
		names := make([]string, 0, len(a.Objects))
		for _, o := range a.Objects {
			names = append(names, o.Name)
		}
		f.ObjectNames = strings.Join(names, ", ")
	}
	if len(a.Web.Entities) > 0 {
		entities := a.Web.Entities
		if len(entities) > maxWebEntities {
			entities = entities[:maxWebEntities]
		}
		names := make([]string, 0, len(entities))
		for _, e := range entities {
			names = append(names, e.Description)
		}
		f.WebEntities = strings.Join(names, ", ")
	}
	if len(a.Landmarks) > 0 {
		names := make([]string, 0, len(a.Landmarks))
		for _, l := range a.Landmarks {
			names = append(names, l.Name)
		}
		f.LandmarkNames = strings.Join(names, ", ")
	}
	if len(a.Faces) > 0 {
		tones := make([]string, 0, len(a.Faces))
		for _, face := range a.Faces {
			tones = append(tones, string(face.JoyLikelihood)+" joy/"+string(face.SorrowLikelihood)+" sorrow")
		}
		f.EmotionalTones = strings.Join(tones, "; ")
	}
	return f
}

// GenreDescription renders genres as "Fantasy (high fantasy), Sci fi".
func GenreDescription(genres []vision.Genre) string {
	if len(genres) == 0 {
		return FallbackGenreDescription
	}
	parts := make([]string, 0, len(genres))
	for _, g := range genres {
		name := genreName(g.ID)
		if g.Style != "" {
			name += " (" + strings.ReplaceAll(g.Style, "-", " ") + ")"
		}
		parts = append(parts, name)
	}
	return strings.Join(parts, ", ")
}

// genreName upper-cases the first character and turns the remaining hyphens into spaces.
func genreName(id string) string {
	if id == "" {
		return ""
	}
	first, size := utf8.DecodeRuneInString(id)
	return strings.ToUpper(string(first)) + strings.ReplaceAll(id[size:], "-", " ")
}

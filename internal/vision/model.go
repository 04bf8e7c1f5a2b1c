package vision

// Likelihood is the provider's five-step ordinal rating.
type Likelihood string

const (
	LikelihoodUnknown      Likelihood = "UNKNOWN"
	LikelihoodVeryUnlikely Likelihood = "VERY_UNLIKELY"
	LikelihoodUnlikely     Likelihood = "UNLIKELY"
	LikelihoodPossible     Likelihood = "POSSIBLE"
	LikelihoodLikely       Likelihood = "LIKELY"
	LikelihoodVeryLikely   Likelihood = "VERY_LIKELY"
)

// Confidence maps a likelihood to the 0-100 percentage shown next to emotional tones.
func (l Likelihood) Confidence() int {
	switch l {
	case LikelihoodVeryLikely:
		return 95
	case LikelihoodLikely:
		return 75
	case LikelihoodPossible:
		return 55
	case LikelihoodUnlikely:
		return 25
	case LikelihoodVeryUnlikely:
		return 5
	default:
		return 0
	}
}

// Genre is a user-selected genre id with an optional sub-style.
type Genre struct {
	ID    string `json:"id" bson:"id"`
	Style string `json:"style,omitempty" bson:"style,omitempty"`
}

type Label struct {
	Description string  `json:"description" bson:"description"`
	Score       float32 `json:"score" bson:"score"`
}

type Vertex struct {
	X int32 `json:"x" bson:"x"`
	Y int32 `json:"y" bson:"y"`
}

type Face struct {
	JoyLikelihood      Likelihood `json:"joyLikelihood" bson:"joyLikelihood"`
	SorrowLikelihood   Likelihood `json:"sorrowLikelihood" bson:"sorrowLikelihood"`
	AngerLikelihood    Likelihood `json:"angerLikelihood" bson:"angerLikelihood"`
	SurpriseLikelihood Likelihood `json:"surpriseLikelihood" bson:"surpriseLikelihood"`
	Bounds             []Vertex   `json:"bounds" bson:"bounds"`
}

type Object struct {
	Name  string  `json:"name" bson:"name"`
	Score float32 `json:"score" bson:"score"`
}

// Color is a dominant color with 0-255 channels.
type Color struct {
	Red   float64 `json:"red" bson:"red"`
	Green float64 `json:"green" bson:"green"`
	Blue  float64 `json:"blue" bson:"blue"`
}

type Landmark struct {
	Name string `json:"name" bson:"name"`
}

type Text struct {
	Content string `json:"content" bson:"content"`
}

type Logo struct {
	Name string `json:"name" bson:"name"`
}

type WebEntity struct {
	Description string `json:"description" bson:"description"`
}

type Web struct {
	Entities []WebEntity `json:"entities" bson:"entities"`
}

// Story section names. The order is the narrative order.
const (
	SectionIntroduction = "introduction"
	SectionRisingAction = "rising_action"
	SectionTwist        = "twist"
	SectionClimax       = "climax"
	SectionResolution   = "resolution"
)

// Sections lists the story sections in narrative order.
var Sections = []string{
	SectionIntroduction,
	SectionRisingAction,
	SectionTwist,
	SectionClimax,
	SectionResolution,
}

// Story is the five-act narrative generated for an artwork.
type Story struct {
	Introduction string `json:"introduction" bson:"introduction"`
	RisingAction string `json:"rising_action" bson:"rising_action"`
	Twist        string `json:"twist" bson:"twist"`
	Climax       string `json:"climax" bson:"climax"`
	Resolution   string `json:"resolution" bson:"resolution"`
}

// Section returns the text of the named section, or "" for unknown names.
func (s Story) Section(name string) string {
	switch name {
	case SectionIntroduction:
		return s.Introduction
	case SectionRisingAction:
		return s.RisingAction
	case SectionTwist:
		return s.Twist
	case SectionClimax:
		return s.Climax
	case SectionResolution:
		return s.Resolution
	default:
		return ""
	}
}

// IsEmpty reports whether every section is blank.
func (s Story) IsEmpty() bool {
	for _, name := range Sections {
		if s.Section(name) != "" {
			return false
		}
	}
	return true
}

// Analysis is the normalized vision output for one image plus the generated story.
// It is not modified after it is attached to an artwork.
type Analysis struct {
	Genres     []Genre               `json:"genres" bson:"genres"`
	Labels     []Label               `json:"labels" bson:"labels"`
	Faces      []Face                `json:"faces" bson:"faces"`
	Objects    []Object              `json:"objects" bson:"objects"`
	Colors     []Color               `json:"colors" bson:"colors"`
	SafeSearch map[string]Likelihood `json:"safeSearch" bson:"safeSearch"`
	Landmarks  []Landmark            `json:"landmarks" bson:"landmarks"`
	Texts      []Text                `json:"texts" bson:"texts"`
	Logos      []Logo                `json:"logos" bson:"logos"`
	Web        Web                   `json:"web" bson:"web"`
	Story      *Story                `json:"story,omitempty" bson:"story,omitempty"`
}

// Empty returns an Analysis whose collections are non-nil and empty.
func Empty(genres []Genre) *Analysis {
	if genres == nil {
		genres = []Genre{}
	}
	return &Analysis{
		Genres:     genres,
		Labels:     []Label{},
		Faces:      []Face{},
		Objects:    []Object{},
		Colors:     []Color{},
		SafeSearch: map[string]Likelihood{},
		Landmarks:  []Landmark{},
		Texts:      []Text{},
		Logos:      []Logo{},
		Web:        Web{Entities: []WebEntity{}},
	}
}

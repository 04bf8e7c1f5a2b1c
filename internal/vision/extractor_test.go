package vision

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	statuspb "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/genproto/googleapis/type/color"
)

type fakeAnnotator struct {
	resp     *visionpb.AnnotateImageResponse
	err      error
	features []visionpb.Feature_Type
	calls    int
}

func (f *fakeAnnotator) AnnotateImage(ctx context.Context, image []byte, features []visionpb.Feature_Type) (*visionpb.AnnotateImageResponse, error) {
	f.calls++
	f.features = features
	return f.resp, f.err
}

func TestExtractMapsEveryFeature(t *testing.T) {
	fake := &fakeAnnotator{resp: &visionpb.AnnotateImageResponse{
		LabelAnnotations: []*visionpb.EntityAnnotation{{Description: "sky", Score: 0.9}},
		FaceAnnotations: []*visionpb.FaceAnnotation{{
			JoyLikelihood:      visionpb.Likelihood_VERY_LIKELY,
			SorrowLikelihood:   visionpb.Likelihood_UNLIKELY,
			AngerLikelihood:    visionpb.Likelihood_VERY_UNLIKELY,
			SurpriseLikelihood: visionpb.Likelihood_POSSIBLE,
			BoundingPoly:       &visionpb.BoundingPoly{Vertices: []*visionpb.Vertex{{X: 1, Y: 2}, {X: 3, Y: 4}}},
		}},
		LocalizedObjectAnnotations: []*visionpb.LocalizedObjectAnnotation{{Name: "Boat", Score: 0.8}},
		ImagePropertiesAnnotation: &visionpb.ImageProperties{DominantColors: &visionpb.DominantColorsAnnotation{
			Colors: []*visionpb.ColorInfo{{Color: &color.Color{Red: 255, Green: 10, Blue: 0}}},
		}},
		SafeSearchAnnotation: &visionpb.SafeSearchAnnotation{Adult: visionpb.Likelihood_VERY_UNLIKELY, Violence: visionpb.Likelihood_UNLIKELY},
		LandmarkAnnotations:  []*visionpb.EntityAnnotation{{Description: "Eiffel Tower"}},
		TextAnnotations:      []*visionpb.EntityAnnotation{{Description: "OPEN"}},
		LogoAnnotations:      []*visionpb.EntityAnnotation{{Description: "Acme"}},
		WebDetection:         &visionpb.WebDetection{WebEntities: []*visionpb.WebDetection_WebEntity{{Description: "Paris"}}},
	}}

	got, err := NewExtractor(fake, 0).Extract(context.Background(), []byte("img"), []Genre{{ID: "fantasy"}})
	require.NoError(t, err)
	require.Equal(t, 1, fake.calls)
	assert.Equal(t, Features, fake.features)

	assert.Equal(t, []Genre{{ID: "fantasy"}}, got.Genres)
	assert.Equal(t, []Label{{Description: "sky", Score: 0.9}}, got.Labels)
	require.Len(t, got.Faces, 1)
	assert.Equal(t, LikelihoodVeryLikely, got.Faces[0].JoyLikelihood)
	assert.Equal(t, LikelihoodUnlikely, got.Faces[0].SorrowLikelihood)
	assert.Equal(t, []Vertex{{X: 1, Y: 2}, {X: 3, Y: 4}}, got.Faces[0].Bounds)
	assert.Equal(t, []Object{{Name: "Boat", Score: 0.8}}, got.Objects)
	assert.Equal(t, []Color{{Red: 255, Green: 10, Blue: 0}}, got.Colors)
	assert.Equal(t, LikelihoodVeryUnlikely, got.SafeSearch["adult"])
	assert.Equal(t, LikelihoodUnlikely, got.SafeSearch["violence"])
	assert.Equal(t, LikelihoodUnknown, got.SafeSearch["racy"])
	assert.Equal(t, []Landmark{{Name: "Eiffel Tower"}}, got.Landmarks)
	assert.Equal(t, []Text{{Content: "OPEN"}}, got.Texts)
	assert.Equal(t, []Logo{{Name: "Acme"}}, got.Logos)
	assert.Equal(t, []WebEntity{{Description: "Paris"}}, got.Web.Entities)
	assert.Nil(t, got.Story)
}

func TestExtractAbsentFeaturesAreEmptyNotNil(t *testing.T) {
	fake := &fakeAnnotator{resp: &visionpb.AnnotateImageResponse{}}

	got, err := NewExtractor(fake, 0).Extract(context.Background(), []byte("img"), nil)
	require.NoError(t, err)
	assert.NotNil(t, got.Genres)
	assert.Empty(t, got.Labels)
	assert.NotNil(t, got.Labels)
	assert.NotNil(t, got.Faces)
	assert.NotNil(t, got.Objects)
	assert.NotNil(t, got.Colors)
	assert.NotNil(t, got.Landmarks)
	assert.NotNil(t, got.Texts)
	assert.NotNil(t, got.Logos)
	assert.NotNil(t, got.Web.Entities)
	assert.Empty(t, got.SafeSearch)
}

func TestExtractWrapsFailures(t *testing.T) {
	tests := []struct {
		name  string
		fake  *fakeAnnotator
		image []byte
	}{
		{name: "call error", fake: &fakeAnnotator{err: errors.New("unavailable")}, image: []byte("img")},
		{name: "provider status", fake: &fakeAnnotator{resp: &visionpb.AnnotateImageResponse{
			Error: &statuspb.Status{Code: 3, Message: "bad image data"},
		}}, image: []byte("img")},
		{name: "empty image", fake: &fakeAnnotator{}, image: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExtractor(tt.fake, 0).Extract(context.Background(), tt.image, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrAnalysisFailed))
		})
	}
}

func TestExtractAppliesCallTimeout(t *testing.T) {
	var sawDeadline bool
	annot := annotatorFunc(func(ctx context.Context) {
		_, sawDeadline = ctx.Deadline()
	})
	_, err := NewExtractor(annot, 5*time.Second).Extract(context.Background(), []byte("img"), nil)
	require.NoError(t, err)
	assert.True(t, sawDeadline)
}

type annotatorFunc func(ctx context.Context)

func (f annotatorFunc) AnnotateImage(ctx context.Context, image []byte, features []visionpb.Feature_Type) (*visionpb.AnnotateImageResponse, error) {
	f(ctx)
	return &visionpb.AnnotateImageResponse{}, nil
}

func TestLikelihoodConfidence(t *testing.T) {
	tests := map[Likelihood]int{
		LikelihoodVeryLikely:   95,
		LikelihoodLikely:       75,
		LikelihoodPossible:     55,
		LikelihoodUnlikely:     25,
		LikelihoodVeryUnlikely: 5,
		LikelihoodUnknown:      0,
		Likelihood("bogus"):    0,
	}
	for in, want := range tests {
		assert.Equal(t, want, in.Confidence(), "likelihood %s", in)
	}
}

func TestStorySection(t *testing.T) {
	s := Story{Introduction: "a", RisingAction: "b", Twist: "c", Climax: "d", Resolution: "e"}
	var got []string
	for _, name := range Sections {
		got = append(got, s.Section(name))
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, got)
	assert.Equal(t, "", s.Section("epilogue"))
	assert.False(t, s.IsEmpty())
	assert.True(t, Story{}.IsEmpty())
}

func TestNopAnnotatorYieldsEmptyAnalysis(t *testing.T) {
	got, err := NewExtractor(NopAnnotator{}, 0).Extract(context.Background(), []byte("img"), nil)
	require.NoError(t, err)
	assert.Empty(t, got.Colors)
	assert.NotNil(t, got.SafeSearch)
}

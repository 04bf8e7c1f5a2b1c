package vision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"

	"visioncloud-backend/internal/shared/telemetry"
)

// ErrAnalysisFailed marks a failed annotation call. It aborts the artwork pipeline.
var ErrAnalysisFailed = errors.New("image analysis failed")

// Features is the fixed feature list requested for every image.
var Features = []visionpb.Feature_Type{
	visionpb.Feature_LABEL_DETECTION,
	visionpb.Feature_FACE_DETECTION,
	visionpb.Feature_OBJECT_LOCALIZATION,
	visionpb.Feature_IMAGE_PROPERTIES,
	visionpb.Feature_SAFE_SEARCH_DETECTION,
	visionpb.Feature_LANDMARK_DETECTION,
	visionpb.Feature_TEXT_DETECTION,
	visionpb.Feature_LOGO_DETECTION,
	visionpb.Feature_WEB_DETECTION,
}

// Annotator performs one multi-feature annotation call for an image.
type Annotator interface {
	AnnotateImage(ctx context.Context, image []byte, features []visionpb.Feature_Type) (*visionpb.AnnotateImageResponse, error)
}

// NopAnnotator returns an empty annotation for every image. It lets the pipeline run
// without vision credentials; every feature then falls back to its default phrase.
type NopAnnotator struct{}

func (NopAnnotator) AnnotateImage(ctx context.Context, image []byte, features []visionpb.Feature_Type) (*visionpb.AnnotateImageResponse, error) {
	return &visionpb.AnnotateImageResponse{}, nil
}

// Extractor turns provider annotations into an Analysis.
type Extractor struct {
	annotator Annotator
	timeout   time.Duration
}

// NewExtractor builds an Extractor. A zero timeout leaves the caller's deadline in charge.
func NewExtractor(annotator Annotator, timeout time.Duration) *Extractor {
	return &Extractor{annotator: annotator, timeout: timeout}
}

// Extract annotates image and normalizes the response. Absent feature categories become
// empty collections. Any call failure is returned wrapped in ErrAnalysisFailed.
func (e *Extractor) Extract(ctx context.Context, image []byte, genres []Genre) (*Analysis, error) {
	if e == nil || e.annotator == nil {
		return nil, fmt.Errorf("%w: annotator not configured", ErrAnalysisFailed)
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrAnalysisFailed)
	}
	callCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	started := time.Now()
	resp, err := e.annotator.AnnotateImage(callCtx, image, Features)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}
	if st := resp.GetError(); st != nil && st.GetCode() != 0 {
		return nil, fmt.Errorf("%w: provider status %d: %s", ErrAnalysisFailed, st.GetCode(), st.GetMessage())
	}

	analysis := FromResponse(resp, genres)
	telemetry.Info("vision.extracted", map[string]any{
		"labels":      len(analysis.Labels),
		"faces":       len(analysis.Faces),
		"objects":     len(analysis.Objects),
		"colors":      len(analysis.Colors),
		"duration_ms": time.Since(started).Milliseconds(),
	})
	return analysis, nil
}

// FromResponse converts a provider response. A nil response yields an empty Analysis.
func FromResponse(resp *visionpb.AnnotateImageResponse, genres []Genre) *Analysis {
	a := Empty(genres)

	for _, l := range resp.GetLabelAnnotations() {
		a.Labels = append(a.Labels, Label{Description: l.GetDescription(), Score: l.GetScore()})
	}
	for _, f := range resp.GetFaceAnnotations() {
		face := Face{
			JoyLikelihood:      likelihood(f.GetJoyLikelihood()),
			SorrowLikelihood:   likelihood(f.GetSorrowLikelihood()),
			AngerLikelihood:    likelihood(f.GetAngerLikelihood()),
			SurpriseLikelihood: likelihood(f.GetSurpriseLikelihood()),
			Bounds:             []Vertex{},
		}
		for _, v := range f.GetBoundingPoly().GetVertices() {
			face.Bounds = append(face.Bounds, Vertex{X: v.GetX(), Y: v.GetY()})
		}
		a.Faces = append(a.Faces, face)
	}
	for _, o := range resp.GetLocalizedObjectAnnotations() {
		a.Objects = append(a.Objects, Object{Name: o.GetName(), Score: o.GetScore()})
	}
	for _, c := range resp.GetImagePropertiesAnnotation().GetDominantColors().GetColors() {
		rgb := c.GetColor()
		a.Colors = append(a.Colors, Color{
			Red:   float64(rgb.GetRed()),
			Green: float64(rgb.GetGreen()),
			Blue:  float64(rgb.GetBlue()),
		})
	}
	if ss := resp.GetSafeSearchAnnotation(); ss != nil {
		a.SafeSearch["adult"] = likelihood(ss.GetAdult())
		a.SafeSearch["spoof"] = likelihood(ss.GetSpoof())
		a.SafeSearch["medical"] = likelihood(ss.GetMedical())
		a.SafeSearch["violence"] = likelihood(ss.GetViolence())
		a.SafeSearch["racy"] = likelihood(ss.GetRacy())
	}
	for _, l := range resp.GetLandmarkAnnotations() {
		a.Landmarks = append(a.Landmarks, Landmark{Name: l.GetDescription()})
	}
	for _, t := range resp.GetTextAnnotations() {
		a.Texts = append(a.Texts, Text{Content: t.GetDescription()})
	}
	for _, l := range resp.GetLogoAnnotations() {
		a.Logos = append(a.Logos, Logo{Name: l.GetDescription()})
	}
	for _, e := range resp.GetWebDetection().GetWebEntities() {
		a.Web.Entities = append(a.Web.Entities, WebEntity{Description: e.GetDescription()})
	}
	return a
}

func likelihood(l visionpb.Likelihood) Likelihood {
	return Likelihood(l.String())
}

package cloud

import (
	"context"
	"fmt"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"

	visionsvc "visioncloud-backend/internal/vision"
)

// Annotator calls the Google Cloud Vision ImageAnnotator API.
type Annotator struct {
	client *vision.ImageAnnotatorClient
}

// New creates an annotator. An empty credentialsFile uses application default credentials.
func New(ctx context.Context, credentialsFile string) (*Annotator, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &Annotator{client: client}, nil
}

// AnnotateImage sends one image with all requested features in a single batch request.
func (a *Annotator) AnnotateImage(ctx context.Context, image []byte, features []visionpb.Feature_Type) (*visionpb.AnnotateImageResponse, error) {
	req := &visionpb.AnnotateImageRequest{
		Image:    &visionpb.Image{Content: image},
		Features: make([]*visionpb.Feature, 0, len(features)),
	}
	for _, f := range features {
		req.Features = append(req.Features, &visionpb.Feature{Type: f})
	}
	resp, err := a.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{req},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.GetResponses()) == 0 {
		return nil, fmt.Errorf("vision: empty batch response")
	}
	return resp.GetResponses()[0], nil
}

// Close releases the gRPC connection.
func (a *Annotator) Close() error {
	return a.client.Close()
}

var _ visionsvc.Annotator = (*Annotator)(nil)

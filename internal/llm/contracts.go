package llm

import (
	"context"

	"github.com/logman117/ai-manufacturing-vision/internal/entity"
)

// PartFields is the normalized shape we want from the model: the metadata
// fields plus the 16 binary process indicators.
type PartFields struct {
	ComplexityLevel string `json:"complexity_level"`
	PartType        string `json:"part_type"`
	PartName        string `json:"part_name,omitempty"`
	Material        string `json:"material"`
	Notes           string `json:"notes,omitempty"`

	entity.ProcessFlags
}

// ImageAttachment is one page raster to embed in the request.
type ImageAttachment struct {
	MIMEType string
	Data     []byte
}

// VisionRequest is a provider-neutral "submit images + text, receive raw
// text" request.
type VisionRequest struct {
	System string
	Prompt string
	Images []ImageAttachment
}

// VisionClient is the inference-service boundary the orchestrator depends on.
type VisionClient interface {
	Analyze(ctx context.Context, req VisionRequest) (string, error)
}

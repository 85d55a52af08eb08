package pipeline

import (
	"context"
	"fmt"

	"protonfusion/internal/algorithms"
	"protonfusion/internal/logger"
)

// Processor runs one registered transform outside the fusion sequence.
type Processor struct {
	logger           logger.Logger
	algorithmManager *algorithms.Manager
}

func NewProcessor(manager *algorithms.Manager, log logger.Logger) *Processor {
	if log == nil {
		log = logger.NewNop()
	}
	return &Processor{logger: log, algorithmManager: manager}
}

// Algorithms lists the transform names ProcessImageWithContext accepts.
func (p *Processor) Algorithms() []string {
	return p.algorithmManager.GetAvailableAlgorithms()
}

func (p *Processor) ProcessImageWithContext(ctx context.Context, inputData *ImageData, name string) (*ImageData, error) {
	if inputData == nil || inputData.Image.Empty() {
		return nil, fmt.Errorf("no input image for %s", name)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	result, err := p.algorithmManager.Run(name, inputData.Image)
	if err != nil {
		p.logger.Error("ImageProcessor", err, map[string]interface{}{
			"algorithm": name,
		})
		return nil, fmt.Errorf("algorithm processing failed: %w", err)
	}

	if result == nil {
		return nil, fmt.Errorf("algorithm returned nil result")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	processedData := &ImageData{
		Image:  result,
		Width:  result.Width,
		Height: result.Height,
		Format: inputData.Format,
	}

	p.logger.Info("ImageProcessor", "processing completed", map[string]interface{}{
		"algorithm":   name,
		"input_size":  fmt.Sprintf("%dx%d", inputData.Width, inputData.Height),
		"output_size": fmt.Sprintf("%dx%d", processedData.Width, processedData.Height),
	})

	return processedData, nil
}

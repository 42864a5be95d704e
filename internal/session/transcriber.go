package session

import (
	"context"

	"github.com/rbright/voce/internal/output"
	"github.com/rbright/voce/internal/pipeline"
)

// Transcriber abstracts the capture and transcription steps the controller
// drives.
type Transcriber interface {
	Start(context.Context) error
	StopAndTranscribe(context.Context) (pipeline.StopResult, error)
	Cancel(context.Context) error
}

// Deliverer puts finished text into the focused application.
type Deliverer interface {
	Deliver(context.Context, string) (output.Outcome, error)
}

// DeliverFunc adapts a function to the Deliverer interface.
type DeliverFunc func(context.Context, string) (output.Outcome, error)

func (f DeliverFunc) Deliver(ctx context.Context, text string) (output.Outcome, error) {
	return f(ctx, text)
}

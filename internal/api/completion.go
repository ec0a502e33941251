package api

import (
	"context"
	"errors"
	"io"
)

type GenerationRequest struct {
	// Required
	Prompt string

	// Optional params
	ModelName      string
	SystemPrompt   string
	ResponseSchema *Schema
	Temperature    float32
}

type CompletionStream interface {
	Recv() (string, error)
	Close() error
}

type completionStreamPayload struct {
	content string
	err     error
}

// StreamReadAll receives from a completion stream accumulating the results
// and returning the streamed chunks as a whole. Errors received from the
// CompletionStream are returned together with the content accumulated so far.
// Calling this function will always close the underlying stream.
func StreamReadAll(ctx context.Context, stream CompletionStream) (string, error) {
	defer stream.Close()
	dataChan := make(chan completionStreamPayload)
	done := make(chan struct{})
	defer close(done)

	go func() {
		defer close(dataChan)

		for {
			chunk, err := stream.Recv()

			if errors.Is(err, io.EOF) {
				return
			}

			var payload completionStreamPayload
			if err != nil {
				payload = completionStreamPayload{err: err}
			} else {
				payload = completionStreamPayload{content: chunk}
			}

			select {
			case dataChan <- payload:
			case <-done:
				return
			}

			if err != nil {
				return
			}
		}
	}()

	var acc string

	for {
		select {
		case <-ctx.Done():
			return acc, ctx.Err()
		case payload, ok := <-dataChan:
			if !ok {
				// data stream closed
				return acc, nil
			}

			if payload.err != nil {
				return acc, payload.err
			}

			acc += payload.content
		}
	}
}

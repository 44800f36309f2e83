// Package gemini provides an Embedder backed by the Gemini embedding API
// through Vertex AI.
package gemini

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"

	"github.com/becomeliminal/recall/memory"
)

const (
	defaultModel      = "gemini-embedding-001"
	defaultDimensions = 768
)

// Embedder calls the Gemini embedding model for each text.
type Embedder struct {
	client     *genai.Client
	model      string
	dimensions int
}

var _ memory.Embedder = (*Embedder)(nil)

// Option configures the embedder.
type Option func(*Embedder)

// WithModel overrides the embedding model name.
func WithModel(model string) Option {
	return func(e *Embedder) {
		e.model = model
	}
}

// WithDimensions sets the requested output dimensionality.
func WithDimensions(d int) Option {
	return func(e *Embedder) {
		e.dimensions = d
	}
}

// New creates a Gemini embedder against the given GCP project and location.
func New(ctx context.Context, projectID, location string, opts ...Option) (*Embedder, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}

	e := &Embedder{
		client:     client,
		model:      defaultModel,
		dimensions: defaultDimensions,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Embed converts text to an embedding vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	dims := int32(e.dimensions)
	resp, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), &genai.EmbedContentConfig{
		OutputDimensionality: &dims,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed content")
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, goerr.New("empty embedding response from gemini")
	}
	return resp.Embeddings[0].Values, nil
}

// Dimensions returns the embedding vector size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

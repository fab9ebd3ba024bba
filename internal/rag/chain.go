// internal/rag/chain.go
package rag

import (
	"context"
	"fmt"

	"github.com/mwiater/mmrag/internal/appconfig"
	"github.com/mwiater/mmrag/internal/providers"
)

// Retriever resolves a query to raw contents in rank order.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]string, error)
}

// Chain answers questions from retrieved context with a multimodal model.
type Chain struct {
	Retriever  Retriever
	Assembler  Assembler
	Generator  providers.Generator
	Host       appconfig.Host
	Model      string
	Parameters appconfig.Parameters
}

// NewChain wires a chain from the application configuration.
func NewChain(r Retriever, gen providers.Generator, cfg *appconfig.Config) *Chain {
	return &Chain{
		Retriever:  r,
		Assembler:  NewAssembler(cfg.ImageWidth, cfg.ImageHeight),
		Generator:  gen,
		Host:       cfg.Host,
		Model:      cfg.MMLLM,
		Parameters: cfg.Parameters,
	}
}

// Context retrieves and assembles the multimodal context for question.
func (c *Chain) Context(ctx context.Context, question string) (MultimodalContext, error) {
	docs, err := c.Retriever.Retrieve(ctx, question)
	if err != nil {
		return MultimodalContext{}, err
	}
	return c.Assembler.Split(docs), nil
}

// Invoke answers question. Generation failures wrap ErrGenerative and are not retried.
func (c *Chain) Invoke(ctx context.Context, question string) (string, error) {
	answer, _, err := c.Answer(ctx, question)
	return answer, err
}

// Answer is Invoke that also returns the context the answer was generated from.
func (c *Chain) Answer(ctx context.Context, question string) (string, MultimodalContext, error) {
	mc, err := c.Context(ctx, question)
	if err != nil {
		return "", MultimodalContext{}, err
	}
	answer, err := c.Generator.Generate(ctx, providers.GenerateRequest{
		Host:       c.Host,
		Model:      c.Model,
		Messages:   []providers.Message{BuildMessage(question, mc)},
		Parameters: c.Parameters,
	})
	if err != nil {
		return "", mc, fmt.Errorf("%w: %w", ErrGenerative, err)
	}
	return answer, mc, nil
}

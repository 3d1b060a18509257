// Package postprocess transforms rendered file content before it is
// written.
//
// Processors see the output path relative to the project root, which lets
// them decide whether they apply:
//
//	chain := postprocess.NewChain()
//	chain.Add(processors.NewGoImports())
//	chain.Add(postprocess.Match("*.md", mdProcessor))
//
// Verbatim files (binary content or copy_without_render matches) never
// reach a chain.
package postprocess

import (
	"fmt"
	"path"
)

// Processor defines the interface for content post-processors.
// Implementations should be stateless and safe for concurrent use.
type Processor interface {
	// ProcessContent returns the transformed content. Processors return
	// content unchanged for files they do not handle.
	ProcessContent(filePath string, content []byte) ([]byte, error)
}

// ProcessorFunc is a function adapter that implements the Processor interface.
type ProcessorFunc func(filePath string, content []byte) ([]byte, error)

func (f ProcessorFunc) ProcessContent(filePath string, content []byte) ([]byte, error) {
	return f(filePath, content)
}

// Match restricts p to files whose base name matches pattern (path.Match
// syntax). An invalid pattern matches nothing.
func Match(pattern string, p Processor) Processor {
	return ProcessorFunc(func(filePath string, content []byte) ([]byte, error) {
		if ok, _ := path.Match(pattern, path.Base(filePath)); !ok {
			return content, nil
		}
		return p.ProcessContent(filePath, content)
	})
}

// Chain runs processors in the order they were added.
type Chain struct {
	processors []Processor
}

func NewChain(processors ...Processor) *Chain {
	return &Chain{processors: append([]Processor(nil), processors...)}
}

func (c *Chain) Add(processor Processor) {
	c.processors = append(c.processors, processor)
}

func (c *Chain) AddFunc(fn func(filePath string, content []byte) ([]byte, error)) {
	c.processors = append(c.processors, ProcessorFunc(fn))
}

// Process runs all processors in sequence on the given content.
// If any processor fails, processing stops and the error is returned.
// A nil chain returns content unchanged.
func (c *Chain) Process(filePath string, content []byte) ([]byte, error) {
	if c == nil {
		return content, nil
	}
	result := content
	for i, processor := range c.processors {
		processed, err := processor.ProcessContent(filePath, result)
		if err != nil {
			return nil, fmt.Errorf("processor %d failed for %s: %w", i, filePath, err)
		}
		result = processed
	}
	return result, nil
}

func (c *Chain) HasProcessors() bool {
	return c != nil && len(c.processors) > 0
}

func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.processors)
}

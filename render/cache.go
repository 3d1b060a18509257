package render

import (
	"sync"
	"text/template"
)

// Cache holds parsed templates keyed by their source text. File names and
// file contents are frequently identical across bakes, so each distinct
// text is parsed once.
type Cache struct {
	mu        sync.RWMutex
	funcs     template.FuncMap
	templates map[string]*template.Template
}

func NewCache(funcs template.FuncMap) *Cache {
	return &Cache{
		funcs:     funcs,
		templates: make(map[string]*template.Template),
	}
}

func (c *Cache) Get(text string) (*template.Template, error) {
	c.mu.RLock()
	if tmpl, exists := c.templates[text]; exists {
		c.mu.RUnlock()
		return tmpl, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if tmpl, exists := c.templates[text]; exists {
		return tmpl, nil
	}

	tmpl, err := template.New("kiln").
		Funcs(c.funcs).
		Option("missingkey=error").
		Parse(text)
	if err != nil {
		return nil, &SyntaxError{Err: err}
	}

	c.templates[text] = tmpl
	return tmpl, nil
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.templates)
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.templates = make(map[string]*template.Template)
}

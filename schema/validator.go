// Package articleschema validates generated-article payloads against the v1
// article schema plus the semantic floor the publisher depends on (five FAQs,
// at least one image prompt).
package articleschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed article.schema.json
var articleSchemaJSON string

const (
	minFAQCount         = 5
	minImagePromptCount = 1
)

type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type Article struct {
	Title           string   `json:"title"`
	MetaDescription string   `json:"meta_description"`
	H1              string   `json:"h1"`
	ContentHTML     string   `json:"content_html"`
	FAQs            []FAQ    `json:"faqs"`
	ImagePrompts    []string `json:"image_prompts"`
	Categoria       string   `json:"categoria,omitempty"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidateArticlePayload parses and validates a generated-article JSON
// document. Any violation is a hard failure for the row that requested it.
func ValidateArticlePayload(payload json.RawMessage) (*Article, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var article Article
	if err := json.Unmarshal(normalized, &article); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := validateSemantics(&article); err != nil {
		return nil, err
	}

	return &article, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		if err := compiler.AddResource("article.schema.json", strings.NewReader(articleSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("article.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func validateSemantics(article *Article) error {
	if article == nil {
		return fmt.Errorf("payload is nil")
	}

	if strings.TrimSpace(article.Title) == "" {
		return fmt.Errorf("title must not be empty")
	}
	if strings.TrimSpace(article.MetaDescription) == "" {
		return fmt.Errorf("meta_description must not be empty")
	}
	if strings.TrimSpace(article.H1) == "" {
		return fmt.Errorf("h1 must not be empty")
	}
	if strings.TrimSpace(article.ContentHTML) == "" {
		return fmt.Errorf("content_html must not be empty")
	}

	if len(article.FAQs) < minFAQCount {
		return fmt.Errorf("at least %d faqs are required, got %d", minFAQCount, len(article.FAQs))
	}
	for i, faq := range article.FAQs {
		if strings.TrimSpace(faq.Question) == "" {
			return fmt.Errorf("faqs[%d].question must not be empty", i)
		}
		if strings.TrimSpace(faq.Answer) == "" {
			return fmt.Errorf("faqs[%d].answer must not be empty", i)
		}
	}

	if len(article.ImagePrompts) < minImagePromptCount {
		return fmt.Errorf("at least %d image prompt is required", minImagePromptCount)
	}
	for i, prompt := range article.ImagePrompts {
		if strings.TrimSpace(prompt) == "" {
			return fmt.Errorf("image_prompts[%d] must not be empty", i)
		}
	}

	return nil
}

package composer

import (
	"context"
	"encoding/json"
	"fmt"

	articleschema "tintero.dev/escriba/schema"
)

const (
	articleSystemPrompt = "Eres un redactor SEO senior que crea artículos con tono humano, " +
		"alineados con EEAT, fáciles de escanear y listos para publicar."

	articleFormatInstruction = "Devuelve **exclusivamente** un JSON válido. " +
		"El JSON debe tener: title, meta_description, h1, content_html, " +
		"faqs (lista de objetos con question y answer) e image_prompts (lista de strings)."

	articleTemperature = 0.6
	articleMaxTokens   = 2000
)

// ArticleRequest carries the row fields the article is generated from.
type ArticleRequest struct {
	Keyword     string
	Description string
	BaseTitle   string
	Category    string
}

type articlePrompt struct {
	KeywordPrincipal  string              `json:"keyword_principal"`
	Descripcion       string              `json:"descripcion"`
	TituloBase        string              `json:"titulo_base"`
	Categoria         string              `json:"categoria"`
	Instrucciones     articleInstructions `json:"instrucciones"`
	CamposSolicitados map[string]string   `json:"campos_solicitados"`
}

type articleInstructions struct {
	Tono             string   `json:"tono"`
	SEO              []string `json:"seo"`
	FormatoRespuesta string   `json:"formato_respuesta"`
}

// GenerateArticle requests one SEO article and validates the structured
// response. Any validation failure is a hard failure for the calling row.
func (c *Client) GenerateArticle(ctx context.Context, req ArticleRequest) (*articleschema.Article, error) {
	prompt, err := json.Marshal(articlePrompt{
		KeywordPrincipal: req.Keyword,
		Descripcion:      req.Description,
		TituloBase:       req.BaseTitle,
		Categoria:        req.Category,
		Instrucciones: articleInstructions{
			Tono: "humano, cercano, experto",
			SEO: []string{
				"usar variaciones semánticas",
				"incluir listas y tablas cuando aporten claridad",
				"usar H2/H3 jerárquicos",
				"redactar FAQs con respuestas completas",
				"sugerir prompts de imágenes generativas",
			},
			FormatoRespuesta: "JSON válido con campos especificados",
		},
		CamposSolicitados: map[string]string{
			"title":            "Título optimizado",
			"meta_description": "Máximo 155 caracteres",
			"h1":               "Encabezado principal",
			"content_html":     "Contenido completo en HTML semántico",
			"faqs":             "Lista de 5 objetos con pregunta y respuesta",
			"image_prompts":    "Lista de al menos 3 prompts de imagen",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal article prompt: %w", err)
	}

	content, err := c.complete(ctx, []chatMessage{
		{Role: "system", Content: articleSystemPrompt},
		{Role: "user", Content: articleFormatInstruction},
		{Role: "user", Content: string(prompt)},
	}, articleTemperature, articleMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("generate article: %w", err)
	}

	article, err := articleschema.ValidateArticlePayload(json.RawMessage(content))
	if err != nil {
		return nil, fmt.Errorf("invalid article payload: %w", err)
	}

	c.logger.Info().Str("title", article.Title).Int("faqs", len(article.FAQs)).Msg("article generated")
	return article, nil
}

package intelligence

import (
	"context"
	"fmt"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const faqPrompt = `Você é o atendente virtual de uma barbearia no WhatsApp.
Responda em português, de forma curta e simpática, usando emojis com moderação.
Se a pergunta for sobre agendar, oriente o cliente a digitar "agendar".
Se não souber a resposta, oriente o cliente a digitar "atendente".

Pergunta do cliente: %s`

// Responder answers free-form customer questions that the menu router did
// not recognize. One responder per tenant that configures an API key.
type Responder struct {
	model *genai.GenerativeModel
}

func NewResponder(ctx context.Context, apiKey string) (*Responder, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Responder{model: client.GenerativeModel("models/gemini-1.5-flash")}, nil
}

// Answer generates a reply for one customer question.
func (r *Responder) Answer(ctx context.Context, question string) (string, error) {
	resp, err := r.model.GenerateContent(ctx, genai.Text(fmt.Sprintf(faqPrompt, question)))
	if err != nil {
		return "", fmt.Errorf("gemini generate error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	answer := strings.TrimSpace(sb.String())
	if answer == "" {
		return "", fmt.Errorf("gemini returned empty answer")
	}
	return answer, nil
}

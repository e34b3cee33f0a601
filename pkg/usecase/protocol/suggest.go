package protocol

import (
	"context"
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"github.com/tlacaelel666/guardian/pkg/adapter"
	"github.com/tlacaelel666/guardian/pkg/model"
	"google.golang.org/genai"
)

const systemInstruction = `You are CERBERUS QAISOS, an AI expert in quantum security systems.
Generate quantum security protocols with operations that follow the PGP (Quadrant Gravitational Polarity) theory.
Keep session names concise, ideally within 10 words. Operations should follow quantum security logic.
Security levels: quantum > high > medium > low > none.
Authentication types: QuoreMind (hardware verification), PUF (boot security), GMAK (session auth), BiMoType (quantum interpretation).`

// responseSchema constrains the model output to the suggestion shape
var responseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"sessionName": {Type: genai.TypeString},
		"operations": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
		"recommendedLevel": {Type: genai.TypeString},
		"requiredAuthentication": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
	},
}

// suggestionSchema re-validates the returned JSON before it is trusted
var suggestionSchema = &jsonschema.Schema{
	Type:     "object",
	Required: []string{"sessionName", "operations", "recommendedLevel", "requiredAuthentication"},
	Properties: map[string]*jsonschema.Schema{
		"sessionName": {Type: "string"},
		"operations": {
			Type:  "array",
			Items: &jsonschema.Schema{Type: "string"},
		},
		"recommendedLevel": {Type: "string"},
		"requiredAuthentication": {
			Type:  "array",
			Items: &jsonschema.Schema{Type: "string"},
		},
	},
}

// UseCase generates protocol suggestions through the text-generation endpoint
type UseCase struct {
	gemini adapter.Gemini
}

// New creates a protocol suggestion UseCase
func New(gemini adapter.Gemini) *UseCase {
	return &UseCase{gemini: gemini}
}

// SuggestInput describes one suggestion request. FileData is an optional
// inline payload (for example a requirements document) passed alongside the
// prompt.
type SuggestInput struct {
	Prompt   string
	FileData []byte
	FileMIME string
}

// Suggest asks the endpoint for a protocol matching the requirements in the
// prompt. The structured response is schema-validated before use; endpoint
// errors and malformed responses both surface as protocol generation
// failures.
func (u *UseCase) Suggest(ctx context.Context, input *SuggestInput) (*model.ProtocolSuggestion, error) {
	if input.Prompt == "" && len(input.FileData) == 0 {
		return &model.ProtocolSuggestion{
			SessionName:            "Please provide security requirements",
			Operations:             []string{},
			RecommendedLevel:       model.SecurityLevelNone,
			RequiredAuthentication: []model.AuthenticationType{},
		}, nil
	}

	prompt := "Generate a quantum security protocol for: " + input.Prompt + ".\n" +
		"Consider architecture with PUF, GMAK, BiMoType v2.0, and QuoreMind systems."

	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	if len(input.FileData) > 0 {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				Data:     input.FileData,
				MIMEType: input.FileMIME,
			},
		})
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType:  "application/json",
		ResponseSchema:    responseSchema,
		SystemInstruction: genai.NewContentFromText(systemInstruction, ""),
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := u.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		return nil, goerr.Wrap(model.ErrProtocolGeneration, err.Error())
	}

	raw, err := extractText(resp)
	if err != nil {
		return nil, err
	}

	if err := validateSuggestion(raw); err != nil {
		return nil, err
	}

	var suggestion model.ProtocolSuggestion
	if err := json.Unmarshal([]byte(raw), &suggestion); err != nil {
		return nil, goerr.Wrap(model.ErrProtocolGeneration, "response is not valid JSON",
			goerr.V("response", raw))
	}

	return &suggestion, nil
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", goerr.Wrap(model.ErrProtocolGeneration, "empty response from endpoint")
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			return part.Text, nil
		}
	}
	return "", goerr.Wrap(model.ErrProtocolGeneration, "response contains no text part")
}

func validateSuggestion(raw string) error {
	resolved, err := suggestionSchema.Resolve(nil)
	if err != nil {
		return goerr.Wrap(err, "failed to resolve suggestion schema")
	}

	var instance any
	if err := json.Unmarshal([]byte(raw), &instance); err != nil {
		return goerr.Wrap(model.ErrProtocolGeneration, "response is not valid JSON", goerr.V("response", raw))
	}
	if err := resolved.Validate(instance); err != nil {
		return goerr.Wrap(model.ErrProtocolGeneration, "response does not match protocol schema",
			goerr.V("response", raw))
	}
	return nil
}

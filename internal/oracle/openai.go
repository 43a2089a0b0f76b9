// file: internal/oracle/openai.go
// version: 1.1.0
// guid: 4b5c6d7e-8f9a-0b1c-2d3e-4f5a6b7c8d9e

package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/tunevault/tunevault/internal/pattern"
)

// AIOracle answers album-naming requests with an OpenAI model and delegates
// everything else to a fallback oracle. Candidate and policy choices stay
// with the fallback on purpose: those decisions are cheap for a human and
// expensive to get wrong.
type AIOracle struct {
	client   *openai.Client
	model    string
	fallback Oracle
	enabled  bool
}

// DefaultModel is the chat model used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// NewAIOracle creates an AI-backed oracle asking the given chat model; an
// empty model selects DefaultModel. With an empty API key the fallback
// handles everything.
func NewAIOracle(apiKey, model string, fallback Oracle) *AIOracle {
	if model == "" {
		model = DefaultModel
	}
	o := &AIOracle{model: model, fallback: fallback}
	if apiKey == "" {
		return o
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	o.client = &client
	o.enabled = true
	return o
}

type aiNamingResponse struct {
	Title   string   `json:"title"`
	Artists []string `json:"artists"`
	Pattern string   `json:"pattern"`
}

const namingSystemPrompt = `You are an expert at naming music album directories. Given a directory name and a sample track filename, respond with ONLY valid JSON:
{
  "title": "album title",
  "artists": ["artist name"],
  "pattern": "Go regexp with named groups matching the filename stem, e.g. (?P<track>\\d{1,3})\\s*-\\s*(?P<title>.+)"
}
Use the directory name as the title unless it is clearly a mangled path. Leave artists empty when unsure. The pattern must match the sample filename with its extension removed.`

// NameAlbum asks the model for a naming proposal and validates the proposed
// pattern against the sample filename before accepting it. Any failure falls
// back to the wrapped oracle.
func (o *AIOracle) NameAlbum(req AlbumNamingRequest) (AlbumNaming, error) {
	if !o.enabled {
		return o.fallback.NameAlbum(req)
	}

	userPrompt := fmt.Sprintf("Directory: %s\nSample filename: %s", req.DefaultTitle, req.SampleFilename)
	jsonFormat := shared.NewResponseFormatJSONObjectParam()
	completion, err := o.client.Chat.Completions.New(context.Background(), openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(namingSystemPrompt),
			openai.UserMessage(userPrompt),
		},
		Model:       shared.ChatModel(o.model),
		Temperature: param.NewOpt(0.1),
		MaxTokens:   param.NewOpt[int64](300),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &jsonFormat,
		},
	})
	if err != nil {
		log.Printf("[WARN] oracle: OpenAI naming call failed for %s: %v", req.Dir, err)
		return o.fallback.NameAlbum(req)
	}
	if len(completion.Choices) == 0 {
		return o.fallback.NameAlbum(req)
	}

	var resp aiNamingResponse
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &resp); err != nil {
		log.Printf("[WARN] oracle: failed to parse OpenAI naming response: %v", err)
		return o.fallback.NameAlbum(req)
	}

	naming := AlbumNaming{Title: resp.Title, Artists: resp.Artists}
	if naming.Title == "" {
		naming.Title = req.DefaultTitle
	}
	if resp.Pattern != "" {
		if p, err := pattern.Compile(resp.Pattern); err == nil && p.Parse(req.SampleFilename) != nil {
			naming.Pattern = resp.Pattern
		} else {
			log.Printf("[WARN] oracle: OpenAI pattern %q rejected for sample %q", resp.Pattern, req.SampleFilename)
		}
	}
	return naming, nil
}

// ChooseMergePolicy defers to the fallback oracle.
func (o *AIOracle) ChooseMergePolicy(req MergePolicyRequest) (MergePolicyChoice, error) {
	return o.fallback.ChooseMergePolicy(req)
}

// ChooseCandidate defers to the fallback oracle.
func (o *AIOracle) ChooseCandidate(req CandidateRequest) (int, error) {
	return o.fallback.ChooseCandidate(req)
}

package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/RoyceAzure/lab/assia/internal/domain/model"
	"github.com/RoyceAzure/lab/assia/internal/infra/catalog"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"
)

const (
	SearchCatalogTool  = "search_catalog"
	DefaultModel       = "gemini-2.5-flash"
	DefaultTemperature = float32(0.1)

	genaiRoleUser  = "user"
	genaiRoleModel = "model"
)

var errNoToolResult = errors.New("no tool result")

// Turn 一則對話紀錄
type Turn struct {
	Role model.Role
	Text string
}

// IAssistant 一次完整的問答，包含工具呼叫
// 回傳空字串代表模型沒有產生文字，由呼叫端決定替代訊息
type IAssistant interface {
	Reply(ctx context.Context, history []Turn, message string) (string, error)
}

// Unconfigured 沒有 API key 時使用，每次都回傳憑證錯誤
type Unconfigured struct{}

var _ IAssistant = Unconfigured{}

func (Unconfigured) Reply(context.Context, []Turn, string) (string, error) {
	return "", ErrInvalidCredential
}

// IGenerator *genai.Models 實作此介面
type IGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiAssistant struct {
	generator         IGenerator
	catalog           catalog.ISearcher
	model             string
	systemInstruction string
	temperature       float32
	logger            *zerolog.Logger
}

var _ IAssistant = (*GeminiAssistant)(nil)

type Option func(*GeminiAssistant)

func WithModel(name string) Option {
	return func(g *GeminiAssistant) {
		if name != "" {
			g.model = name
		}
	}
}

func WithTemperature(t float32) Option {
	return func(g *GeminiAssistant) {
		g.temperature = t
	}
}

func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return client, nil
}

func NewGeminiAssistant(generator IGenerator, searcher catalog.ISearcher, systemInstruction string, logger *zerolog.Logger, options ...Option) *GeminiAssistant {
	if generator == nil {
		panic("generator is nil")
	}
	if searcher == nil {
		panic("catalog searcher is nil")
	}
	if logger == nil {
		panic("logger is nil")
	}
	g := &GeminiAssistant{
		generator:         generator,
		catalog:           searcher,
		model:             DefaultModel,
		systemInstruction: systemInstruction,
		temperature:       DefaultTemperature,
		logger:            logger,
	}
	for _, option := range options {
		option(g)
	}
	return g
}

/*
Reply
 1. 帶上歷史與工具宣告呼叫模型
 2. 如果模型要求呼叫工具，同一輪的工具並行執行，結果依呼叫順序回傳
 3. 帶上工具結果再呼叫一次模型 (不帶工具)，取得最終文字

錯誤一律經過 Classify
*/
func (g *GeminiAssistant) Reply(ctx context.Context, history []Turn, message string) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+3)
	for _, turn := range history {
		contents = append(contents, textContent(toGenaiRole(turn.Role), turn.Text))
	}
	contents = append(contents, textContent(genaiRoleUser, message))

	resp, err := g.generator.GenerateContent(ctx, g.model, contents, g.config(true))
	if err != nil {
		return "", Classify(err)
	}

	calls := functionCalls(resp)
	if len(calls) > 0 {
		responseParts, err := g.runTools(ctx, calls)
		if err != nil {
			return "", Classify(err)
		}

		modelContent := resp.Candidates[0].Content
		if modelContent.Role == "" {
			modelContent.Role = genaiRoleModel
		}
		contents = append(contents, modelContent, &genai.Content{Role: genaiRoleUser, Parts: responseParts})

		resp, err = g.generator.GenerateContent(ctx, g.model, contents, g.config(false))
		if err != nil {
			return "", Classify(err)
		}
	}

	return responseText(resp), nil
}

func (g *GeminiAssistant) config(withTools bool) *genai.GenerateContentConfig {
	temp := g.temperature
	cfg := &genai.GenerateContentConfig{
		Temperature: &temp,
	}
	if g.systemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: g.systemInstruction}}}
	}
	if withTools {
		cfg.Tools = []*genai.Tool{
			{FunctionDeclarations: []*genai.FunctionDeclaration{searchCatalogDeclaration()}},
		}
	}
	return cfg
}

// 未知的工具名稱直接略過
func (g *GeminiAssistant) runTools(ctx context.Context, calls []*genai.FunctionCall) ([]*genai.Part, error) {
	results := make([]*genai.Part, len(calls))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, call := range calls {
		if call.Name != SearchCatalogTool {
			g.logger.Warn().Str("tool", call.Name).Msg("unknown tool requested, skipped")
			continue
		}
		eg.Go(func() error {
			query, _ := call.Args["query"].(string)
			result := g.catalog.Search(egCtx, query)
			results[i] = &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					ID:       call.ID,
					Name:     call.Name,
					Response: map[string]any{"result": result},
				},
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	parts := make([]*genai.Part, 0, len(results))
	for _, part := range results {
		if part != nil {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: no supported tool call", errNoToolResult)
	}
	return parts, nil
}

func searchCatalogDeclaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        SearchCatalogTool,
		Description: "Busca produtos, Bíblias e livros diretamente no banco de dados da CPAD Boston.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"query": {
					Type:        genai.TypeString,
					Description: `O nome do produto ou termo de busca (ex: "Bíblia Pentecostal").`,
				},
			},
			Required: []string{"query"},
		},
	}
}

func textContent(role, text string) *genai.Content {
	return &genai.Content{Role: role, Parts: []*genai.Part{{Text: text}}}
}

func toGenaiRole(role model.Role) string {
	if role == model.RoleAssistant {
		return genaiRoleModel
	}
	return genaiRoleUser
}

func functionCalls(resp *genai.GenerateContentResponse) []*genai.FunctionCall {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	var calls []*genai.FunctionCall
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.FunctionCall != nil {
			calls = append(calls, part.FunctionCall)
		}
	}
	return calls
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return strings.TrimSpace(sb.String())
}

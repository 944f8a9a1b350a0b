package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"golang.org/x/time/rate"

	"github.com/theimaginaryfoundation/remember-o-bot/persona"
	"github.com/theimaginaryfoundation/remember-o-bot/persona/fileutils"
)

const (
	DefaultModel           = "gpt-4o-mini"
	DefaultMaxOutputTokens = 150
	DefaultRatePerMinute   = 30
)

type replyResponse struct {
	Reply string `json:"reply" jsonschema:"description=The reply text exactly as the person would send it"`
}

var replySchema = GenerateSchema[replyResponse]()

// OpenAIConfig configures an OpenAICompleter. Zero values select the defaults.
type OpenAIConfig struct {
	APIKey          string
	Model           string
	BaseURL         string
	MaxOutputTokens int64
	// RatePerMinute caps outgoing requests; requests over the cap go local immediately.
	// A negative value disables the limiter.
	RatePerMinute int
	Retry         *RetryPolicy
	HTTPClient    *http.Client
}

// OpenAICompleter answers through the OpenAI Responses API with a strict {reply} schema.
type OpenAICompleter struct {
	client  *openai.Client
	model   string
	maxOut  int64
	limiter *rate.Limiter
	retry   RetryPolicy
}

var _ persona.Completer = (*OpenAICompleter)(nil)

// NewOpenAICompleter returns a Completer backed by the OpenAI Responses API.
func NewOpenAICompleter(cfg OpenAIConfig) (*OpenAICompleter, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("NewOpenAICompleter: api key is empty")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// CallWithRetry owns retries.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	client := openai.NewClient(opts...)

	c := &OpenAICompleter{
		client: &client,
		model:  cfg.Model,
		maxOut: cfg.MaxOutputTokens,
		retry:  DefaultRetryPolicy,
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.maxOut <= 0 {
		c.maxOut = DefaultMaxOutputTokens
	}
	if cfg.Retry != nil {
		c.retry = *cfg.Retry
	}
	perMinute := cfg.RatePerMinute
	if perMinute == 0 {
		perMinute = DefaultRatePerMinute
	}
	if perMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	}
	return c, nil
}

// Complete implements persona.Completer.
func (c *OpenAICompleter) Complete(ctx context.Context, req persona.CompletionRequest) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("OpenAICompleter: client is nil: %w", persona.ErrRemoteUnavailable)
	}
	if c.limiter != nil && !c.limiter.Allow() {
		return "", fmt.Errorf("OpenAICompleter: rate limited: %w", persona.ErrRemoteUnavailable)
	}

	format := responses.ResponseFormatTextConfigUnionParam{
		OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:        "PersonaReply",
			Schema:      replySchema,
			Strict:      openai.Bool(true),
			Description: openai.String("Reply written in the profiled person's voice"),
			Type:        "json_schema",
		},
	}

	params := responses.ResponseNewParams{
		Model:           c.model,
		MaxOutputTokens: openai.Int(c.maxOut),
		Instructions:    openai.String(req.System),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: buildInputItems(req),
		},
		Text: responses.ResponseTextConfigParam{
			Format: format,
		},
	}

	resp, err := CallWithRetry(ctx, c.client, params, c.retry)
	if err != nil {
		return "", fmt.Errorf("OpenAICompleter: %w", err)
	}

	var out replyResponse
	if err := fileutils.DecodeModelJSON(resp.OutputText(), &out); err != nil {
		return "", fmt.Errorf("OpenAICompleter: unmarshal reply: %w (model_output_prefix=%q)", err, fileutils.Truncate(resp.OutputText(), 200))
	}
	reply := strings.TrimSpace(out.Reply)
	if reply == "" {
		return "", errors.New("OpenAICompleter: model returned an empty reply")
	}
	return reply, nil
}

func buildInputItems(req persona.CompletionRequest) []responses.ResponseInputItemUnionParam {
	items := make([]responses.ResponseInputItemUnionParam, 0, len(req.Transcript)+1)
	for _, turn := range req.Transcript {
		role := responses.EasyInputMessageRoleUser
		if turn.Role == "assistant" {
			role = responses.EasyInputMessageRoleAssistant
		}
		items = append(items, responses.ResponseInputItemParamOfMessage(turn.Content, role))
	}
	items = append(items, responses.ResponseInputItemParamOfMessage(req.Message, responses.EasyInputMessageRoleUser))
	return items
}

package service

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/guregu/null/v5"
	json "github.com/json-iterator/go"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"

	"github.com/spec-kit/support-assistant/internal/domain"
	"github.com/spec-kit/support-assistant/internal/llm"
	"github.com/spec-kit/support-assistant/internal/observability"
	"github.com/spec-kit/support-assistant/internal/prompt"
)

const summaryFallbackLength = 100

var (
	classificationObject = regexp.MustCompile(`(?s)\{[^}]*"intent"[^}]*\}`)
	intentField          = regexp.MustCompile(`"intent":\s*"([^"]+)"`)
	summaryField         = regexp.MustCompile(`"summary":\s*"([^"]+)"`)
	ticketIDField        = regexp.MustCompile(`"ticket_id":\s*"([^"]+)"`)
	ticketIDToken        = regexp.MustCompile(`\b([a-zA-Z0-9]{5})\b`)
)

var classificationSchema = &llm.Schema{
	Name: "classification",
	Definition: jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"intent": {
				Type: jsonschema.String,
				Enum: []string{string(domain.IntentTicketInfo), string(domain.IntentTicketRequest), string(domain.IntentOther)},
			},
			"summary": {Type: jsonschema.String, Description: "brief summary of the message"},
			"ticket_id": {
				Type:        jsonschema.String,
				Description: "5-character ticket id found in the message, or the string null",
			},
		},
		Required:             []string{"intent", "summary", "ticket_id"},
		AdditionalProperties: false,
	},
}

// ClassifierDependencies bundles collaborators for the intent classifier.
type ClassifierDependencies struct {
	Completer        llm.Completer
	Prompt           *prompt.Template
	Model            string
	Temperature      float64
	StructuredOutput bool
	Logger           *zap.Logger
	Metrics          *observability.Metrics
}

// IntentClassifier turns a raw chat message into a Classification.
type IntentClassifier struct {
	completer   llm.Completer
	prompt      *prompt.Template
	model       string
	temperature float64
	structured  bool
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// NewIntentClassifier constructs the classifier.
func NewIntentClassifier(deps ClassifierDependencies) *IntentClassifier {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntentClassifier{
		completer:   deps.Completer,
		prompt:      deps.Prompt,
		model:       deps.Model,
		temperature: deps.Temperature,
		structured:  deps.StructuredOutput,
		logger:      logger,
		metrics:     deps.Metrics,
	}
}

// Classify never fails: completion or parse problems degrade to the default
// classification, and a ticket id missing from the completion is recovered
// from the message text when possible.
func (c *IntentClassifier) Classify(ctx context.Context, message string) domain.Classification {
	content, err := c.complete(ctx, message)
	var result domain.Classification
	if err != nil {
		c.logger.Warn("classification completion failed", zap.Error(err))
		c.metrics.RecordStageFailure("classify")
		c.metrics.RecordFallback("classification_default")
		result = defaultClassification(message)
	} else {
		result = parseClassification(content, message)
	}
	if strings.TrimSpace(result.Summary) == "" {
		result.Summary = truncate(message, summaryFallbackLength)
	}

	if !result.TicketID.Valid {
		if match := ticketIDToken.FindStringSubmatch(message); match != nil {
			result.TicketID = null.StringFrom(match[1])
			c.metrics.RecordFallback("ticket_id_scan")
		}
	}
	return result
}

func (c *IntentClassifier) complete(ctx context.Context, message string) (string, error) {
	if c.completer == nil || c.prompt == nil {
		return "", errors.New("classifier is not configured")
	}
	messages, err := c.prompt.Render(map[string]string{"message_content": message})
	if err != nil {
		return "", err
	}
	req := llm.Request{Model: c.model, Temperature: c.temperature, Messages: messages}
	if c.structured {
		req.Schema = classificationSchema
	}

	resp, err := c.completer.Complete(ctx, req)
	var perr *llm.ProviderError
	if err != nil && req.Schema != nil && errors.As(err, &perr) && perr.StatusCode == http.StatusBadRequest {
		// Endpoints without json_schema support reject the request outright.
		c.logger.Info("structured output rejected, retrying as plain text", zap.String("model", c.model))
		req.Schema = nil
		resp, err = c.completer.Complete(ctx, req)
	}
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// parseClassification prefers an embedded JSON object, then individual
// "field": "value" lines, then the default classification.
func parseClassification(content, message string) domain.Classification {
	if obj := classificationObject.FindString(content); obj != "" {
		if result, ok := decodeClassification(obj); ok {
			return result
		}
	}

	result := domain.Classification{Intent: domain.IntentOther}
	found := false
	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		lower := strings.ToLower(line)
		switch {
		case strings.Contains(lower, `"intent"`):
			if m := intentField.FindStringSubmatch(line); m != nil {
				result.Intent = domain.ParseIntent(m[1])
				found = true
			}
		case strings.Contains(lower, `"summary"`):
			if m := summaryField.FindStringSubmatch(line); m != nil {
				result.Summary = m[1]
				found = true
			}
		case strings.Contains(lower, `"ticket_id"`):
			if m := ticketIDField.FindStringSubmatch(line); m != nil {
				result.TicketID = normalizeTicketID(m[1])
				found = true
			}
		}
	}
	if !found {
		return defaultClassification(message)
	}
	return result
}

func decodeClassification(obj string) (domain.Classification, bool) {
	var raw map[string]interface{}
	if err := json.UnmarshalFromString(obj, &raw); err != nil {
		return domain.Classification{}, false
	}
	result := domain.Classification{Intent: domain.ParseIntent(stringValue(raw["intent"]))}
	result.Summary = stringValue(raw["summary"])
	result.TicketID = normalizeTicketID(stringValue(raw["ticket_id"]))
	return result, true
}

// stringValue accepts the scalar shapes a model may use for a field; ids such
// as 12345 sometimes come back as JSON numbers.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	}
	return ""
}

func normalizeTicketID(raw string) null.String {
	id := strings.TrimSpace(raw)
	id = strings.TrimPrefix(id, "#")
	switch strings.ToLower(id) {
	case "", "null", "none":
		return null.String{}
	}
	return null.StringFrom(id)
}

func defaultClassification(message string) domain.Classification {
	return domain.Classification{
		Intent:  domain.IntentOther,
		Summary: truncate(message, summaryFallbackLength),
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

package agents

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/dyike/MacroAgent/consts"
	"github.com/dyike/MacroAgent/internal/llm"
	"github.com/dyike/MacroAgent/internal/metrics"
	"github.com/dyike/MacroAgent/models"
	"github.com/dyike/MacroAgent/pkg/logger"
)

type Options struct {
	ReportTemperature  float32
	SummaryTemperature float32
	// GoogleSearch grounds report generation; summaries are never grounded.
	GoogleSearch  bool
	ThinkingLevel string

	Logger   *zap.Logger
	Recorder *metrics.Recorder
}

// Reporter writes persona reports and their summaries. Both are eino graphs
// of a prompt template feeding the chat model.
type Reporter struct {
	report   compose.Runnable[map[string]any, *schema.Message]
	summary  compose.Runnable[map[string]any, *schema.Message]
	personas map[models.Persona]*Persona
	opts     Options
	logger   *zap.Logger
}

func NewReporter(ctx context.Context, chatModel model.ChatModel, opts Options) (*Reporter, error) {
	personas := make(map[models.Persona]*Persona, len(models.Personas))
	for _, p := range models.Personas {
		persona, err := LoadPersona(p)
		if err != nil {
			return nil, err
		}
		personas[p] = persona
	}

	report, err := compileGraph(ctx, chatModel, "report", consts.Reporter, consts.ReportGraph)
	if err != nil {
		return nil, err
	}
	summary, err := compileGraph(ctx, chatModel, "summary", consts.Summarizer, consts.SummaryGraph)
	if err != nil {
		return nil, err
	}

	return &Reporter{
		report:   report,
		summary:  summary,
		personas: personas,
		opts:     opts,
		logger:   logger.OrNop(opts.Logger).Named("reporter"),
	}, nil
}

func compileGraph(ctx context.Context, chatModel model.ChatModel, promptName, nodeName, graphName string) (compose.Runnable[map[string]any, *schema.Message], error) {
	tpl, err := LoadPrompt(promptName)
	if err != nil {
		return nil, err
	}

	g := compose.NewGraph[map[string]any, *schema.Message]()
	_ = g.AddChatTemplateNode(consts.PromptTemplate, prompt.FromMessages(schema.FString, schema.UserMessage(tpl)))
	_ = g.AddChatModelNode(nodeName, chatModel)
	_ = g.AddEdge(compose.START, consts.PromptTemplate)
	_ = g.AddEdge(consts.PromptTemplate, nodeName)
	_ = g.AddEdge(nodeName, compose.END)

	r, err := g.Compile(ctx, compose.WithGraphName(graphName))
	if err != nil {
		return nil, fmt.Errorf("compile %s graph: %w", graphName, err)
	}
	return r, nil
}

// Generate writes the persona's report over the rendered data table. The
// call is made even when data is empty. Any failure yields "".
func (r *Reporter) Generate(ctx context.Context, data string, p models.Persona) string {
	persona, ok := r.personas[p]
	if !ok {
		r.logger.Error("unknown persona", zap.String("persona", string(p)))
		return ""
	}

	vars := map[string]any{
		"role": persona.Role,
		"data": data,
	}
	return r.invoke(ctx, r.report, p, "report", vars,
		model.WithTemperature(r.opts.ReportTemperature),
		llm.WithGoogleSearch(r.opts.GoogleSearch),
		llm.WithThinkingLevel(r.opts.ThinkingLevel),
	)
}

// Summarize condenses a report to at most ten sentences. Any failure
// yields "".
func (r *Reporter) Summarize(ctx context.Context, report string, p models.Persona) string {
	persona, ok := r.personas[p]
	if !ok {
		r.logger.Error("unknown persona", zap.String("persona", string(p)))
		return ""
	}

	vars := map[string]any{
		"label":  persona.Label,
		"focus":  persona.Focus,
		"report": report,
	}
	return r.invoke(ctx, r.summary, p, "summary", vars,
		model.WithTemperature(r.opts.SummaryTemperature),
		llm.WithGoogleSearch(false),
		llm.WithThinkingLevel(r.opts.ThinkingLevel),
	)
}

func (r *Reporter) invoke(ctx context.Context, run compose.Runnable[map[string]any, *schema.Message], p models.Persona, kind string, vars map[string]any, opts ...model.Option) string {
	log := r.logger.With(zap.String("persona", string(p)), zap.String("kind", kind))
	msg, err := run.Invoke(ctx, vars,
		compose.WithChatModelOption(opts...),
		compose.WithCallbacks(newLoggerCallback(log)),
	)
	if err != nil {
		r.opts.Recorder.RecordGeneration(string(p), kind, false)
		log.Error("generation failed", zap.Error(err))
		return ""
	}
	if msg == nil || msg.Content == "" {
		r.opts.Recorder.RecordGeneration(string(p), kind, false)
		log.Warn("empty generation")
		return ""
	}

	r.opts.Recorder.RecordGeneration(string(p), kind, true)
	log.Info("generated", zap.Int("chars", len(msg.Content)))
	return msg.Content
}

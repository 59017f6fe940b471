package agents

import (
	"context"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"go.uber.org/zap"
)

// newLoggerCallback traces graph nodes at debug level and reports token
// usage when the chat model returns it.
func newLoggerCallback(l *zap.Logger) callbacks.Handler {
	return callbacks.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *callbacks.RunInfo, _ callbacks.CallbackInput) context.Context {
			l.Debug("node start", nodeFields(info)...)
			return ctx
		}).
		OnEndFn(func(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
			fields := nodeFields(info)
			if info != nil && info.Component == components.ComponentOfChatModel {
				if out := model.ConvCallbackOutput(output); out != nil && out.TokenUsage != nil {
					fields = append(fields,
						zap.Int("prompt_tokens", out.TokenUsage.PromptTokens),
						zap.Int("completion_tokens", out.TokenUsage.CompletionTokens))
				}
			}
			l.Debug("node end", fields...)
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
			l.Warn("node error", append(nodeFields(info), zap.Error(err))...)
			return ctx
		}).
		Build()
}

func nodeFields(info *callbacks.RunInfo) []zap.Field {
	if info == nil {
		return nil
	}
	return []zap.Field{
		zap.String("node", info.Name),
		zap.String("component", string(info.Component)),
	}
}

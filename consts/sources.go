package consts

const (
	SourceECOS      = "ecos"
	SourceFRED      = "fred"
	SourceWorldBank = "worldbank"
)

const (
	LLMGemini   = "gemini"
	LLMOpenAI   = "openai"
	LLMDeepSeek = "deepseek"
)

const (
	BiasBullish   = "bullish"
	BiasBearish   = "bearish"
	BiasNeutral   = "neutral"
	BiasUncertain = "uncertain"
)

package consts

const (
	// 报告图节点
	PromptTemplate = "prompt_template"
	Reporter       = "reporter"
	Summarizer     = "summarizer"

	// 图名称
	ReportGraph  = "macro_report"
	SummaryGraph = "macro_summary"
)

package router

import "regexp"

// taskPatterns holds the per-category trigger patterns. Each pattern that
// matches the lower-cased message contributes a fixed weight of 1.0 to the
// category's score. Categories without patterns (tool_execution,
// conversation) score only through context bonuses.
var taskPatterns = map[TaskCategory][]*regexp.Regexp{
	CategorySimpleQuery: {
		regexp.MustCompile(`^(what|who|when|where|how)\s+(is|are|was|were)\b`),
		regexp.MustCompile(`^(list|show|display|get)\s+`),
		regexp.MustCompile(`^(yes|no|ok|okay|sure|thanks|thank you)`),
		regexp.MustCompile(`^(hello|hi|hey)\b`),
	},
	CategoryFileOperation: {
		regexp.MustCompile(`\b(read|write|edit|create|delete|move|copy)\s+(file|folder|directory)`),
		regexp.MustCompile(`\b(cat|ls|mkdir|rm|cp|mv)\b`),
		regexp.MustCompile(`\.(?:py|js|ts|tsx|json|yaml|yml|md|txt|html|css|go)$`),
	},
	CategoryCodeGeneration: {
		regexp.MustCompile(`\b(write|create|implement|build|make|generate)\s+(a\s+)?(function|class|component|module|api|endpoint)`),
		regexp.MustCompile(`\b(add|implement)\s+(feature|functionality)`),
		regexp.MustCompile(`\bnew\s+(file|component|class|function)\b`),
	},
	CategoryCodeAnalysis: {
		regexp.MustCompile(`\b(explain|understand|analyze|review)\s+(this|the|my)?\s*(code|function|class)`),
		regexp.MustCompile(`\bwhat\s+does\s+(this|the)\s+(code|function|class)\s+do\b`),
		regexp.MustCompile(`\b(find|search|look\s+for)\s+(bugs?|issues?|problems?)`),
	},
	CategoryDebugging: {
		regexp.MustCompile(`\b(debug|fix|solve|resolve)\s+(this|the|my)?\s*(error|bug|issue|problem)`),
		regexp.MustCompile(`\b(why|how)\s+(is|does)\s+(this|it)\s+(not\s+)?(work|fail)`),
		regexp.MustCompile(`\berror\b.*\b(message|stack\s*trace)\b`),
		regexp.MustCompile(`\b(traceback|exception|crash|panic)\b`),
	},
	CategoryArchitecture: {
		regexp.MustCompile(`\b(design|architect|structure|organize)\s+(the|a|my)?\s*(system|application|project)`),
		regexp.MustCompile(`\b(best\s+practice|pattern|approach)\s+for\b`),
		regexp.MustCompile(`\b(refactor|restructure|reorganize)\b`),
		regexp.MustCompile(`\b(scalab|maintain|extend)ability\b`),
	},
	CategoryDataAnalysis: {
		regexp.MustCompile(`\b(analyze|process|transform)\s+(data|csv|json|excel)`),
		regexp.MustCompile(`\b(chart|graph|plot|visualize)\b`),
		regexp.MustCompile(`\b(statistics|mean|median|average|sum|count)\b`),
		regexp.MustCompile(`\bpandas|numpy|matplotlib\b`),
	},
	CategoryPlanning: {
		regexp.MustCompile(`\b(plan|break\s+down|outline|steps?\s+to)\b`),
		regexp.MustCompile(`\b(todo|task\s*list|checklist)\b`),
		regexp.MustCompile(`\b(how\s+should\s+i|what\s+should\s+i)\b`),
	},
}

// categoryToTier is the fixed default mapping from category to tier
var categoryToTier = map[TaskCategory]ModelTier{
	CategorySimpleQuery:    TierFast,
	CategoryFileOperation:  TierFast,
	CategoryToolExecution:  TierFast,
	CategoryConversation:   TierFast,
	CategoryCodeAnalysis:   TierStandard,
	CategoryCodeGeneration: TierStandard,
	CategoryDataAnalysis:   TierStandard,
	CategoryPlanning:       TierStandard,
	CategoryDebugging:      TierPremium,
	CategoryArchitecture:   TierPremium,
}

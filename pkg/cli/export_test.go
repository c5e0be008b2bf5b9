package cli

var (
	PrintRefreshResult  = printRefreshResult
	PrintSearchResponse = printSearchResponse
	PrintCorpusReport   = printCorpusReport
	PrintFeedback       = printFeedback
	FeedbackIndexConfig = feedbackIndexConfig
	MigrationSteps      = migrationSteps
)

package usecase

// KeywordSearch is exported for testing
var KeywordSearch = keywordSearch

// KeywordTokens is exported for testing
var KeywordTokens = keywordTokens

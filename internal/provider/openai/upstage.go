package openai

// Upstage serves an OpenAI compatible API for its solar models.
const (
	UpstageBaseURL = "https://api.upstage.ai/v1"

	upstageDocumentModel = "embedding-passage"
	upstageQueryModel    = "embedding-query"
	upstageChatModel     = "solar-mini"
	upstageDimensions    = 4096
)

// NewUpstage returns a provider talking to the Upstage API. Upstage embedding
// models have a fixed output size, so dimensions are never sent.
func NewUpstage(conf Config) *OpenAIProvider {
	if conf.BaseURL == "" {
		conf.BaseURL = UpstageBaseURL
	}
	if conf.DocumentModel == "" {
		conf.DocumentModel = upstageDocumentModel
	}
	if conf.QueryModel == "" {
		conf.QueryModel = upstageQueryModel
	}
	if conf.ChatModel == "" {
		conf.ChatModel = upstageChatModel
	}
	if conf.Dimensions == 0 {
		conf.Dimensions = upstageDimensions
	}

	return newProvider(conf)
}

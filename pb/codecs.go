package pb

// Codecs for every message, for use with unary.Invoke, mock.Call and
// server.MakeHandler.
var (
	HealthCheckRequestCodec           = newCodec[HealthCheckRequest]()
	HealthCheckResponseCodec          = newCodec[HealthCheckResponse]()
	ListHistoryRequestCodec           = newCodec[ListHistoryRequest]()
	ListHistoryResponseCodec          = newCodec[ListHistoryResponse]()
	DeleteHistorySessionRequestCodec  = newCodec[DeleteHistorySessionRequest]()
	DeleteHistorySessionResponseCodec = newCodec[DeleteHistorySessionResponse]()

	AnalyzeRequirementRequestCodec  = newCodec[AnalyzeRequirementRequest]()
	AnalyzeRequirementResponseCodec = newCodec[AnalyzeRequirementResponse]()

	GenerateTestCasesRequestCodec  = newCodec[GenerateTestCasesRequest]()
	GenerateTestCasesResponseCodec = newCodec[GenerateTestCasesResponse]()

	GenerateDataRequestCodec  = newCodec[GenerateDataRequest]()
	GenerateDataResponseCodec = newCodec[GenerateDataResponse]()

	QueryKnowledgeRequestCodec  = newCodec[QueryKnowledgeRequest]()
	QueryKnowledgeResponseCodec = newCodec[QueryKnowledgeResponse]()
)

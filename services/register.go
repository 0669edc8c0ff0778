package services

import (
	"context"

	"github.com/qaforge/dashrpc/grpcweb/codec"
	"github.com/qaforge/dashrpc/grpcweb/mock"
	"github.com/qaforge/dashrpc/grpcweb/server"
	"github.com/qaforge/dashrpc/pb"
)

// RegisterMockHandlers serves every operation of the four services from the
// mock generators, seeded by adapter. A server set up this way answers the
// same requests with the same content an in-process mock would.
func RegisterMockHandlers(srv *server.Server, adapter *mock.Adapter) {
	for _, service := range []string{RequirementAnalysisService, KnowledgeService} {
		register(srv, adapter, service, methodListHistory, pb.ListHistoryRequestCodec, pb.ListHistoryResponseCodec, genListHistory)
		register(srv, adapter, service, methodDeleteHistorySession, pb.DeleteHistorySessionRequestCodec, pb.DeleteHistorySessionResponseCodec, genDeleteHistorySession)
	}
	for _, service := range []string{RequirementAnalysisService, TestCaseService, TestDataService, KnowledgeService} {
		register(srv, adapter, service, methodHealthCheck, pb.HealthCheckRequestCodec, pb.HealthCheckResponseCodec, genHealthCheck)
	}

	register(srv, adapter, RequirementAnalysisService, "AnalyzeRequirement",
		pb.AnalyzeRequirementRequestCodec, pb.AnalyzeRequirementResponseCodec, genAnalyzeRequirement)
	register(srv, adapter, TestCaseService, "GenerateTestCases",
		pb.GenerateTestCasesRequestCodec, pb.GenerateTestCasesResponseCodec, genTestCases)
	register(srv, adapter, TestDataService, "GenerateData",
		pb.GenerateDataRequestCodec, pb.GenerateDataResponseCodec, genTestData)
	register(srv, adapter, KnowledgeService, "QueryKnowledge",
		pb.QueryKnowledgeRequestCodec, pb.QueryKnowledgeResponseCodec, genQueryKnowledge)
}

func register[Req, Resp any](
	srv *server.Server,
	adapter *mock.Adapter,
	service, method string,
	reqCodec codec.Codec[Req],
	respCodec codec.Codec[Resp],
	gen mock.Generator[Req, Resp],
) {
	path := codec.MethodPath(service, method)
	srv.RegisterHandler(path, server.MakeHandler(reqCodec, respCodec, func(ctx context.Context, req Req) (Resp, error) {
		return gen(req, adapter.Env(path))
	}))
}

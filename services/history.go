package services

import (
	"context"
	"strings"

	"github.com/qaforge/dashrpc/pb"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Method names shared by more than one service.
const (
	methodListHistory          = "ListHistory"
	methodDeleteHistorySession = "DeleteHistorySession"
	methodHealthCheck          = "HealthCheck"
)

func normalizeListHistory(req *pb.ListHistoryRequest) *pb.ListHistoryRequest {
	r := pb.ListHistoryRequest{}
	if req != nil {
		r = *req
	}
	if r.Page < 1 {
		r.Page = 1
	}
	switch {
	case r.PageSize <= 0:
		r.PageSize = defaultPageSize
	case r.PageSize > maxPageSize:
		r.PageSize = maxPageSize
	}
	r.Query = strings.TrimSpace(r.Query)
	return &r
}

func listHistory(ctx context.Context, c *Conn, key string, req *pb.ListHistoryRequest) (*pb.ListHistoryResponse, error) {
	resp, err := call(ctx, c, key, methodListHistory, normalizeListHistory(req),
		pb.ListHistoryRequestCodec, pb.ListHistoryResponseCodec, genListHistory)
	if err != nil {
		return nil, friendly("list history", err)
	}
	return resp, nil
}

func deleteHistorySession(ctx context.Context, c *Conn, key string, sessionID string) (*pb.DeleteHistorySessionResponse, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, invalid("session id is required")
	}
	resp, err := call(ctx, c, key, methodDeleteHistorySession, &pb.DeleteHistorySessionRequest{SessionID: sessionID},
		pb.DeleteHistorySessionRequestCodec, pb.DeleteHistorySessionResponseCodec, genDeleteHistorySession)
	if err != nil {
		return nil, friendly("delete history session", err)
	}
	return resp, nil
}

func healthCheck(ctx context.Context, c *Conn, key string) (*pb.HealthCheckResponse, error) {
	resp, err := call(ctx, c, key, methodHealthCheck, &pb.HealthCheckRequest{Service: serviceNames[key]},
		pb.HealthCheckRequestCodec, pb.HealthCheckResponseCodec, genHealthCheck)
	if err != nil {
		return nil, friendly("health check", err)
	}
	return resp, nil
}

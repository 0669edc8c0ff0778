package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/qaforge/dashrpc/config"
	"github.com/qaforge/dashrpc/pb"
)

const (
	maxRequirementLength = 20000

	defaultMaxCases = 5
	maxCases        = 50

	defaultRecordCount = 10
	maxRecordCount     = 1000
	maxSchemaFields    = 50

	defaultTopK = 5
	maxTopK     = 20
)

func requestID(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return uuid.NewString()
}

func clamp(v, def, hi int32) int32 {
	switch {
	case v <= 0:
		return def
	case v > hi:
		return hi
	}
	return v
}

type RequirementAnalysisClient struct {
	conn *Conn
}

func NewRequirementAnalysisClient(conn *Conn) *RequirementAnalysisClient {
	return &RequirementAnalysisClient{conn: conn}
}

// AnalyzeRequirement reviews a requirement for gaps and ambiguities.
func (c *RequirementAnalysisClient) AnalyzeRequirement(ctx context.Context, req *pb.AnalyzeRequirementRequest) (*pb.AnalyzeRequirementResponse, error) {
	if req == nil {
		return nil, invalid("request is required")
	}
	r := *req
	r.Requirement = strings.TrimSpace(r.Requirement)
	if r.Requirement == "" {
		return nil, invalid("requirement text is required")
	}
	if n := utf8.RuneCountInString(r.Requirement); n > maxRequirementLength {
		return nil, invalid("requirement is %d characters, at most %d allowed", n, maxRequirementLength)
	}
	r.RequestID = requestID(r.RequestID)
	r.Context = strings.TrimSpace(r.Context)
	if r.Language = strings.TrimSpace(r.Language); r.Language == "" {
		r.Language = "en"
	}

	resp, err := call(ctx, c.conn, config.RequirementAnalysis, "AnalyzeRequirement", &r,
		pb.AnalyzeRequirementRequestCodec, pb.AnalyzeRequirementResponseCodec, genAnalyzeRequirement)
	if err != nil {
		return nil, friendly("requirement analysis", err)
	}
	return resp, nil
}

func (c *RequirementAnalysisClient) ListHistory(ctx context.Context, req *pb.ListHistoryRequest) (*pb.ListHistoryResponse, error) {
	return listHistory(ctx, c.conn, config.RequirementAnalysis, req)
}

func (c *RequirementAnalysisClient) DeleteHistorySession(ctx context.Context, sessionID string) (*pb.DeleteHistorySessionResponse, error) {
	return deleteHistorySession(ctx, c.conn, config.RequirementAnalysis, sessionID)
}

func (c *RequirementAnalysisClient) HealthCheck(ctx context.Context) (*pb.HealthCheckResponse, error) {
	return healthCheck(ctx, c.conn, config.RequirementAnalysis)
}

type TestCaseClient struct {
	conn *Conn
}

func NewTestCaseClient(conn *Conn) *TestCaseClient {
	return &TestCaseClient{conn: conn}
}

// GenerateTestCases derives test cases from a user story. MaxCases defaults
// to 5 and is capped at 50.
func (c *TestCaseClient) GenerateTestCases(ctx context.Context, req *pb.GenerateTestCasesRequest) (*pb.GenerateTestCasesResponse, error) {
	if req == nil {
		return nil, invalid("request is required")
	}
	r := *req
	r.Story = strings.TrimSpace(r.Story)
	if r.Story == "" {
		return nil, invalid("story is required")
	}
	r.RequestID = requestID(r.RequestID)
	r.MaxCases = clamp(r.MaxCases, defaultMaxCases, maxCases)

	resp, err := call(ctx, c.conn, config.TestCase, "GenerateTestCases", &r,
		pb.GenerateTestCasesRequestCodec, pb.GenerateTestCasesResponseCodec, genTestCases)
	if err != nil {
		return nil, friendly("test case generation", err)
	}
	return resp, nil
}

func (c *TestCaseClient) HealthCheck(ctx context.Context) (*pb.HealthCheckResponse, error) {
	return healthCheck(ctx, c.conn, config.TestCase)
}

type TestDataClient struct {
	conn *Conn
}

func NewTestDataClient(conn *Conn) *TestDataClient {
	return &TestDataClient{conn: conn}
}

var knownFieldTypes = map[string]bool{
	pb.FieldString: true,
	pb.FieldInt:    true,
	pb.FieldBool:   true,
	pb.FieldEmail:  true,
	pb.FieldName:   true,
	pb.FieldDate:   true,
}

// GenerateData produces Count records following Schema. Field types default
// to "string"; Count defaults to 10 and is capped at 1000.
func (c *TestDataClient) GenerateData(ctx context.Context, req *pb.GenerateDataRequest) (*pb.GenerateDataResponse, error) {
	if req == nil {
		return nil, invalid("request is required")
	}
	if len(req.Schema) == 0 {
		return nil, invalid("schema needs at least one field")
	}
	if len(req.Schema) > maxSchemaFields {
		return nil, invalid("schema has %d fields, at most %d allowed", len(req.Schema), maxSchemaFields)
	}

	r := *req
	r.Schema = make([]*pb.FieldSpec, 0, len(req.Schema))
	seen := make(map[string]bool, len(req.Schema))
	for i, spec := range req.Schema {
		if spec == nil {
			return nil, invalid("schema field %d is empty", i)
		}
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			return nil, invalid("schema field %d has no name", i)
		}
		if seen[name] {
			return nil, invalid("schema field %q is defined twice", name)
		}
		seen[name] = true

		typ := strings.ToLower(strings.TrimSpace(spec.Type))
		if typ == "" {
			typ = pb.FieldString
		}
		if !knownFieldTypes[typ] {
			return nil, invalid("schema field %q has unknown type %q", name, spec.Type)
		}
		r.Schema = append(r.Schema, &pb.FieldSpec{Name: name, Type: typ})
	}
	r.RequestID = requestID(r.RequestID)
	r.Count = clamp(r.Count, defaultRecordCount, maxRecordCount)
	r.Locale = strings.TrimSpace(r.Locale)

	resp, err := call(ctx, c.conn, config.TestData, "GenerateData", &r,
		pb.GenerateDataRequestCodec, pb.GenerateDataResponseCodec, genTestData)
	if err != nil {
		return nil, friendly("test data generation", err)
	}
	return resp, nil
}

func (c *TestDataClient) HealthCheck(ctx context.Context) (*pb.HealthCheckResponse, error) {
	return healthCheck(ctx, c.conn, config.TestData)
}

type KnowledgeClient struct {
	conn *Conn
}

func NewKnowledgeClient(conn *Conn) *KnowledgeClient {
	return &KnowledgeClient{conn: conn}
}

// QueryKnowledge searches the domain knowledge base. TopK defaults to 5 and
// is capped at 20.
func (c *KnowledgeClient) QueryKnowledge(ctx context.Context, req *pb.QueryKnowledgeRequest) (*pb.QueryKnowledgeResponse, error) {
	if req == nil {
		return nil, invalid("request is required")
	}
	r := *req
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return nil, invalid("query is required")
	}
	r.RequestID = requestID(r.RequestID)
	r.TopK = clamp(r.TopK, defaultTopK, maxTopK)
	r.Domain = strings.TrimSpace(r.Domain)

	resp, err := call(ctx, c.conn, config.Knowledge, "QueryKnowledge", &r,
		pb.QueryKnowledgeRequestCodec, pb.QueryKnowledgeResponseCodec, genQueryKnowledge)
	if err != nil {
		return nil, friendly("knowledge query", err)
	}
	return resp, nil
}

func (c *KnowledgeClient) ListHistory(ctx context.Context, req *pb.ListHistoryRequest) (*pb.ListHistoryResponse, error) {
	return listHistory(ctx, c.conn, config.Knowledge, req)
}

func (c *KnowledgeClient) DeleteHistorySession(ctx context.Context, sessionID string) (*pb.DeleteHistorySessionResponse, error) {
	return deleteHistorySession(ctx, c.conn, config.Knowledge, sessionID)
}

func (c *KnowledgeClient) HealthCheck(ctx context.Context) (*pb.HealthCheckResponse, error) {
	return healthCheck(ctx, c.conn, config.Knowledge)
}

// Clients bundles one client per service over a shared Conn.
type Clients struct {
	RequirementAnalysis *RequirementAnalysisClient
	TestCase            *TestCaseClient
	TestData            *TestDataClient
	Knowledge           *KnowledgeClient

	conn *Conn
}

func NewClients(conn *Conn) *Clients {
	return &Clients{
		RequirementAnalysis: NewRequirementAnalysisClient(conn),
		TestCase:            NewTestCaseClient(conn),
		TestData:            NewTestDataClient(conn),
		Knowledge:           NewKnowledgeClient(conn),
		conn:                conn,
	}
}

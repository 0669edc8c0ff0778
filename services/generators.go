package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/qaforge/dashrpc/grpcweb/mock"
	"github.com/qaforge/dashrpc/pb"
)

// Mock generators. Each one only reads its request and env, so a fixed seed
// gives the same content on every run apart from ids and timestamps.

var (
	findingCategories = []string{"ambiguity", "completeness", "consistency", "testability", "security"}
	severities        = []string{"low", "medium", "high"}
	priorities        = []string{"P1", "P2", "P3"}

	firstNames = []string{"Aiko", "Ben", "Carla", "Dmitri", "Esra", "Femi", "Grace", "Hiro"}
	lastNames  = []string{"Adams", "Baker", "Chen", "Diaz", "Evans", "Fischer", "Garcia", "Ito"}
	words      = []string{"alpha", "bravo", "delta", "echo", "kilo", "lima", "oscar", "tango"}

	knowledgeTopics = []string{"boundary values", "equivalence classes", "state transitions", "error guessing", "pairwise testing"}
	knowledgeTags   = []string{"testing", "design", "quality", "automation", "regression"}
)

func genHealthCheck(req *pb.HealthCheckRequest, env *mock.Env) (*pb.HealthCheckResponse, error) {
	return &pb.HealthCheckResponse{
		Status:    "SERVING",
		Version:   "mock",
		Timestamp: env.Now().Unix(),
	}, nil
}

func genListHistory(req *pb.ListHistoryRequest, env *mock.Env) (*pb.ListHistoryResponse, error) {
	r := normalizeListHistory(req)
	total := int32(env.Between(0, 3*int(r.PageSize)))
	offset := (r.Page - 1) * r.PageSize

	n := min(max(total-offset, 0), r.PageSize)
	now := env.Now()
	sessions := make([]*pb.HistorySession, 0, n)
	for i := range n {
		title := "Session " + strconv.Itoa(int(offset+i+1))
		if r.Query != "" {
			title = fmt.Sprintf("%s: %s", title, r.Query)
		}
		sessions = append(sessions, &pb.HistorySession{
			SessionID: env.NextID("S-"),
			Title:     title,
			Summary:   "Generated " + mock.Pick(env, words) + " session",
			CreatedAt: now.Add(-time.Duration(offset+i) * time.Hour).Unix(),
			ItemCount: int32(env.Between(1, 20)),
		})
	}
	return &pb.ListHistoryResponse{Sessions: sessions, Total: total, Page: r.Page}, nil
}

func genDeleteHistorySession(req *pb.DeleteHistorySessionRequest, env *mock.Env) (*pb.DeleteHistorySessionResponse, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return nil, invalid("session id is required")
	}
	return &pb.DeleteHistorySessionResponse{Success: true}, nil
}

func genAnalyzeRequirement(req *pb.AnalyzeRequirementRequest, env *mock.Env) (*pb.AnalyzeRequirementResponse, error) {
	if strings.TrimSpace(req.Requirement) == "" {
		return nil, invalid("requirement text is required")
	}

	findings := make([]*pb.Finding, env.Between(1, 4))
	for i := range findings {
		category := mock.Pick(env, findingCategories)
		findings[i] = &pb.Finding{
			ID:          "F-" + strconv.Itoa(i+1),
			Category:    category,
			Severity:    mock.Pick(env, severities),
			Description: fmt.Sprintf("The requirement has a possible %s issue around %q.", category, excerpt(req.Requirement, 40)),
			Suggestion:  "Clarify the expected behaviour and add an acceptance criterion.",
		}
	}

	score := 0.5 + env.Float()/2
	return &pb.AnalyzeRequirementResponse{
		Success:           true,
		SessionID:         env.NextID("S-"),
		Summary:           fmt.Sprintf("Reviewed %d words, found %d points to clarify.", len(strings.Fields(req.Requirement)), len(findings)),
		Findings:          findings,
		CompletenessScore: math.Round(score*100) / 100,
	}, nil
}

func genTestCases(req *pb.GenerateTestCasesRequest, env *mock.Env) (*pb.GenerateTestCasesResponse, error) {
	if strings.TrimSpace(req.Story) == "" {
		return nil, invalid("story is required")
	}

	n := clamp(req.MaxCases, defaultMaxCases, maxCases)
	story := excerpt(req.Story, 60)
	cases := make([]*pb.TestCase, n)
	for i := range cases {
		cases[i] = &pb.TestCase{
			ID:            "TC-" + strconv.Itoa(i+1),
			Title:         fmt.Sprintf("Scenario %d for %q", i+1, story),
			Preconditions: []string{"User is signed in"},
			Steps: []string{
				"Open the feature described in the story",
				fmt.Sprintf("Enter %s data", mock.Pick(env, []string{"valid", "boundary", "invalid"})),
				"Submit",
			},
			Expected: "The system behaves as the story describes",
			Priority: mock.Pick(env, priorities),
		}
	}
	return &pb.GenerateTestCasesResponse{Success: true, TestCases: cases}, nil
}

func genTestData(req *pb.GenerateDataRequest, env *mock.Env) (*pb.GenerateDataResponse, error) {
	if len(req.Schema) == 0 {
		return nil, invalid("schema needs at least one field")
	}

	n := clamp(req.Count, defaultRecordCount, maxRecordCount)
	base := env.Now()
	records := make([]*pb.DataRecord, n)
	for i := range records {
		fields := make(map[string]string, len(req.Schema))
		for _, spec := range req.Schema {
			if spec == nil || spec.Name == "" {
				continue
			}
			fields[spec.Name] = fieldValue(spec.Type, env, base)
		}
		records[i] = &pb.DataRecord{Fields: fields}
	}
	return &pb.GenerateDataResponse{Success: true, Records: records}, nil
}

func fieldValue(typ string, env *mock.Env, base time.Time) string {
	switch strings.ToLower(typ) {
	case pb.FieldInt:
		return strconv.Itoa(env.Between(0, 10000))
	case pb.FieldBool:
		return strconv.FormatBool(env.Intn(2) == 1)
	case pb.FieldEmail:
		return fmt.Sprintf("%s.%s@example.com",
			strings.ToLower(mock.Pick(env, firstNames)), strings.ToLower(mock.Pick(env, lastNames)))
	case pb.FieldName:
		return mock.Pick(env, firstNames) + " " + mock.Pick(env, lastNames)
	case pb.FieldDate:
		return base.AddDate(0, 0, -env.Intn(3650)).Format(time.DateOnly)
	}
	return mock.Pick(env, words) + "-" + strconv.Itoa(env.Between(1, 999))
}

func genQueryKnowledge(req *pb.QueryKnowledgeRequest, env *mock.Env) (*pb.QueryKnowledgeResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, invalid("query is required")
	}

	source := "mock"
	if req.Domain != "" {
		source = req.Domain
	}
	k := clamp(req.TopK, defaultTopK, maxTopK)
	entries := make([]*pb.KnowledgeEntry, k)
	score := 0.95
	for i := range entries {
		topic := mock.Pick(env, knowledgeTopics)
		entries[i] = &pb.KnowledgeEntry{
			ID:      "KB-" + strconv.Itoa(i+1),
			Title:   titleCase(topic),
			Content: fmt.Sprintf("How %s applies to %q.", topic, excerpt(req.Query, 60)),
			Source:  source,
			Score:   math.Round(score*100) / 100,
			Tags:    []string{mock.Pick(env, knowledgeTags)},
		}
		score -= 0.05 + env.Float()/20
	}

	return &pb.QueryKnowledgeResponse{
		Success:   true,
		SessionID: env.NextID("S-"),
		Answer:    fmt.Sprintf("Found %d entries related to %q.", len(entries), excerpt(req.Query, 60)),
		Entries:   entries,
	}, nil
}

// excerpt shortens s to at most n runes.
func excerpt(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}

// titleCase upper-cases the first letter of s.
func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

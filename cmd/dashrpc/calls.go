package main

import (
	"fmt"
	"strings"

	"github.com/qaforge/dashrpc/config"
	"github.com/qaforge/dashrpc/grpcweb/reflection"
	"github.com/qaforge/dashrpc/pb"
	"github.com/qaforge/dashrpc/services"
	"github.com/spf13/cobra"
)

func analyzeCmd() *cobra.Command {
	req := &pb.AnalyzeRequirementRequest{}
	cmd := &cobra.Command{
		Use:   "analyze <requirement>",
		Short: "Analyze a requirement for gaps and ambiguities",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clients, _, err := newClients(cmd.Context())
			if err != nil {
				return err
			}
			req.Requirement = strings.Join(args, " ")
			resp, err := clients.RequirementAnalysis.AnalyzeRequirement(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	cmd.Flags().StringVar(&req.RequestID, "request-id", "", "request id, generated when empty")
	cmd.Flags().StringVar(&req.Context, "context", "", "background for the analysis")
	cmd.Flags().StringVar(&req.Language, "language", "", "answer language (default en)")
	return cmd
}

func testCasesCmd() *cobra.Command {
	req := &pb.GenerateTestCasesRequest{}
	cmd := &cobra.Command{
		Use:   "testcases <story>",
		Short: "Generate test cases from a user story",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clients, _, err := newClients(cmd.Context())
			if err != nil {
				return err
			}
			req.Story = strings.Join(args, " ")
			resp, err := clients.TestCase.GenerateTestCases(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	cmd.Flags().StringVar(&req.RequestID, "request-id", "", "request id, generated when empty")
	cmd.Flags().Int32Var(&req.MaxCases, "max", 0, "maximum number of cases (default 5)")
	return cmd
}

func testDataCmd() *cobra.Command {
	req := &pb.GenerateDataRequest{}
	var fields []string
	cmd := &cobra.Command{
		Use:     "testdata --field name[:type]...",
		Short:   "Generate test data records",
		Example: `  dashrpc testdata --field name:name --field email:email --field age:int --count 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			clients, _, err := newClients(cmd.Context())
			if err != nil {
				return err
			}
			req.Schema, err = parseSchema(fields)
			if err != nil {
				return err
			}
			resp, err := clients.TestData.GenerateData(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	cmd.Flags().StringVar(&req.RequestID, "request-id", "", "request id, generated when empty")
	cmd.Flags().StringArrayVar(&fields, "field", nil, "schema field as name[:type], types: string, int, bool, email, name, date")
	cmd.Flags().Int32Var(&req.Count, "count", 0, "number of records (default 10)")
	cmd.Flags().StringVar(&req.Locale, "locale", "", "locale for generated values")
	return cmd
}

func parseSchema(fields []string) ([]*pb.FieldSpec, error) {
	schema := make([]*pb.FieldSpec, 0, len(fields))
	for _, f := range fields {
		name, typ, _ := strings.Cut(f, ":")
		if name == "" {
			return nil, fmt.Errorf("field %q has no name", f)
		}
		schema = append(schema, &pb.FieldSpec{Name: name, Type: typ})
	}
	return schema, nil
}

func knowledgeCmd() *cobra.Command {
	req := &pb.QueryKnowledgeRequest{}
	cmd := &cobra.Command{
		Use:   "knowledge <query>",
		Short: "Query the domain knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clients, _, err := newClients(cmd.Context())
			if err != nil {
				return err
			}
			req.Query = strings.Join(args, " ")
			resp, err := clients.Knowledge.QueryKnowledge(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	cmd.Flags().StringVar(&req.RequestID, "request-id", "", "request id, generated when empty")
	cmd.Flags().Int32Var(&req.TopK, "top-k", 0, "number of entries (default 5)")
	cmd.Flags().StringVar(&req.Domain, "domain", "", "restrict the search to a domain")
	return cmd
}

func historyCmd() *cobra.Command {
	var service string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List or delete analysis and knowledge sessions",
	}
	cmd.PersistentFlags().StringVar(&service, "service", config.RequirementAnalysis,
		fmt.Sprintf("service whose history to use: %s or %s", config.RequirementAnalysis, config.Knowledge))

	req := &pb.ListHistoryRequest{}
	list := &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			clients, _, err := newClients(cmd.Context())
			if err != nil {
				return err
			}
			var resp *pb.ListHistoryResponse
			switch service {
			case config.RequirementAnalysis:
				resp, err = clients.RequirementAnalysis.ListHistory(cmd.Context(), req)
			case config.Knowledge:
				resp, err = clients.Knowledge.ListHistory(cmd.Context(), req)
			default:
				return fmt.Errorf("service %q has no history", service)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	list.Flags().Int32Var(&req.Page, "page", 1, "page number")
	list.Flags().Int32Var(&req.PageSize, "page-size", 0, "sessions per page (default 20)")
	list.Flags().StringVar(&req.Query, "query", "", "filter by title")

	del := &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clients, _, err := newClients(cmd.Context())
			if err != nil {
				return err
			}
			var resp *pb.DeleteHistorySessionResponse
			switch service {
			case config.RequirementAnalysis:
				resp, err = clients.RequirementAnalysis.DeleteHistorySession(cmd.Context(), args[0])
			case config.Knowledge:
				resp, err = clients.Knowledge.DeleteHistorySession(cmd.Context(), args[0])
			default:
				return fmt.Errorf("service %q has no history", service)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}

	cmd.AddCommand(list, del)
	return cmd
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Health-check every service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			clients, _, err := newClients(cmd.Context())
			if err != nil {
				return err
			}
			results := services.CheckAll(cmd.Context(), clients)
			if err := printJSON(cmd, results); err != nil {
				return err
			}
			for _, st := range results {
				if st.Err != nil {
					return fmt.Errorf("%s is not serving", st.Service)
				}
			}
			return nil
		},
	}
}

func servicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List the services a backend exposes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, conn, err := newClients(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := reflection.List(cmd.Context(), conn.Executor(config.RequirementAnalysis))
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/qaforge/dashrpc/config"
	"github.com/qaforge/dashrpc/grpcweb/peer"
	"github.com/qaforge/dashrpc/pkg/rpclog"
	"github.com/qaforge/dashrpc/services"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	opts    = config.New()
	rootCmd = &cobra.Command{
		Use:   "dashrpc",
		Short: "Call the test generation backend services over gRPC-Web.",
		Long: `dashrpc calls the requirement analysis, test case, test data and knowledge
services the dashboard uses. Set --mock to answer from the built-in mock
generators instead of a backend.`,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file")
	flags.String("base-url", "", "backend base URL")
	flags.Duration("timeout", 0, "per call timeout")
	flags.Bool("mock", false, "serve every call from mocks")
	flags.Bool("fallback", false, "serve from mocks when the backend is unreachable")
	flags.String("log-level", "", "log level")
	flags.String("peer", "", "websocket signalling URL of a WebRTC peer backend")

	rootCmd.AddCommand(analyzeCmd(), testCasesCmd(), testDataCmd(), knowledgeCmd(),
		historyCmd(), healthCmd(), servicesCmd())
}

func initConfig() {
	vp := viper.New()
	if cfgFile != "" {
		vp.SetConfigFile(cfgFile)
		if err := vp.ReadInConfig(); err != nil {
			fmt.Fprintln(os.Stderr, "read config:", err)
			os.Exit(1)
		}
	}

	flags := rootCmd.PersistentFlags()
	_ = vp.BindPFlag("baseURL", flags.Lookup("base-url"))
	_ = vp.BindPFlag("timeout", flags.Lookup("timeout"))
	_ = vp.BindPFlag("mock.enabled", flags.Lookup("mock"))
	_ = vp.BindPFlag("mock.fallback", flags.Lookup("fallback"))
	_ = vp.BindPFlag("logger.level", flags.Lookup("log-level"))
	_ = vp.BindPFlag("peerURL", flags.Lookup("peer"))

	vp.SetEnvPrefix("dashrpc")
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()
	opts.ConfigureWithViper(vp)

	logOpts := opts.LogOptions()
	logOpts.Stderr = true
	rpclog.Configure(logOpts)
}

// closers run after the command finishes.
var closers []func() error

func newClients(ctx context.Context) (*services.Clients, *services.Conn, error) {
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}

	var connOpts []services.ConnOption
	if opts.PeerURL != "" && !opts.Mock.Enabled {
		header := http.Header{}
		for k, v := range opts.Headers() {
			header.Set(k, v)
		}
		dialCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
		p, err := peer.Dial(dialCtx, opts.PeerURL, &peer.Config{Header: header})
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, p.Close)
		connOpts = append(connOpts, services.WithTransport(p.Transport()))
	}

	conn := services.NewConn(opts, connOpts...)
	return services.NewClients(conn), conn, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	for _, c := range closers {
		_ = c()
	}
	_ = rpclog.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

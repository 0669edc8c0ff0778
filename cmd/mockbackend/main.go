// Command mockbackend is a development backend that answers the four test
// generation services over gRPC-Web from the mock generators.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/judwhite/go-svc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/qaforge/dashrpc/config"
	"github.com/qaforge/dashrpc/grpcweb/mock"
	"github.com/qaforge/dashrpc/grpcweb/peer"
	"github.com/qaforge/dashrpc/grpcweb/reflection"
	"github.com/qaforge/dashrpc/grpcweb/server"
	"github.com/qaforge/dashrpc/pkg/rpclog"
	"github.com/qaforge/dashrpc/pkg/rpcmetrics"
	"github.com/qaforge/dashrpc/services"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
	opts    = config.New()
	rootCmd = &cobra.Command{
		Use:   "mockbackend",
		Short: "Serve the test generation services from mocks over gRPC-Web.",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Run: func(cmd *cobra.Command, args []string) {
			rpclog.Configure(opts.LogOptions())
			if err := svc.Run(newProgram(opts)); err != nil {
				log.Fatal(err)
			}
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
	rootCmd.Flags().String("addr", "", "listen address")
	rootCmd.Flags().Uint32("seed", 0, "mock seed")
}

func initConfig() {
	vp := viper.New()
	if cfgFile != "" {
		vp.SetConfigFile(cfgFile)
		if err := vp.ReadInConfig(); err == nil {
			fmt.Println("Using config file:", vp.ConfigFileUsed())
		}
	}

	_ = vp.BindPFlag("mockBackend.addr", rootCmd.Flags().Lookup("addr"))
	if f := rootCmd.Flags().Lookup("seed"); f.Changed {
		_ = vp.BindPFlag("mock.seed", f)
	}

	vp.SetEnvPrefix("dashrpc")
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()
	opts.ConfigureWithViper(vp)
}

type program struct {
	opts    *config.Options
	httpSrv *http.Server
	log     *rpclog.Log
}

func newProgram(opts *config.Options) *program {
	return &program{opts: opts, log: rpclog.NewLog("MockBackend")}
}

func (p *program) Init(env svc.Environment) error {
	var seed uint32
	if p.opts.Mock.Seed != nil {
		seed = *p.opts.Mock.Seed
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv := server.New(&server.Options{
		Timeout: p.opts.Timeout,
		Metrics: rpcmetrics.NewSubsystem(reg, "server"),
	})
	services.RegisterMockHandlers(srv, mock.NewAdapter(&mock.Options{Seed: seed}))
	reflection.Register(srv)

	engine := server.NewEngine(srv)
	engine.GET("/signal", gin.WrapH(peer.NewAnswerer(srv, nil)))
	engine.GET(p.opts.MockBackend.MetricsPath, gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "SERVING",
			"seed":    seed,
			"methods": srv.GetRegisteredMethods(),
		})
	})

	p.httpSrv = &http.Server{
		Addr:              p.opts.MockBackend.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

func (p *program) Start() error {
	p.log.Info("listening", zap.String("addr", p.httpSrv.Addr), zap.String("metrics", p.opts.MockBackend.MetricsPath))
	go func() {
		if err := p.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.log.Error("http server stopped", zap.Error(err))
			os.Exit(1)
		}
	}()
	return nil
}

func (p *program) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := p.httpSrv.Shutdown(ctx)
	_ = rpclog.Sync()
	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

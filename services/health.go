package services

import (
	"context"
	"time"

	"github.com/qaforge/dashrpc/config"
	"github.com/qaforge/dashrpc/pb"
	"golang.org/x/sync/errgroup"
)

// HealthStatus is the outcome of one service health check.
type HealthStatus struct {
	Service string        `json:"service"`
	Mode    string        `json:"mode"`
	Status  string        `json:"status"`
	Version string        `json:"version,omitempty"`
	Latency time.Duration `json:"latency"`
	Err     error         `json:"-"`
	Error   string        `json:"error,omitempty"`
}

// CheckAll health-checks every service concurrently, in config.ServiceKeys
// order. A failing service is reported in its HealthStatus.
func CheckAll(ctx context.Context, clients *Clients) []HealthStatus {
	checks := map[string]func(context.Context) (*pb.HealthCheckResponse, error){
		config.RequirementAnalysis: clients.RequirementAnalysis.HealthCheck,
		config.TestCase:            clients.TestCase.HealthCheck,
		config.TestData:            clients.TestData.HealthCheck,
		config.Knowledge:           clients.Knowledge.HealthCheck,
	}

	results := make([]HealthStatus, len(config.ServiceKeys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(checks))
	for i, key := range config.ServiceKeys {
		g.Go(func() error {
			start := time.Now()
			resp, err := checks[key](gctx)
			st := HealthStatus{
				Service: serviceNames[key],
				Mode:    clients.conn.Mode(key),
				Latency: time.Since(start),
				Err:     err,
			}
			switch {
			case err != nil:
				st.Status = "NOT_SERVING"
				st.Error = err.Error()
			case resp == nil || resp.Status == "":
				st.Status = "UNKNOWN"
				if resp != nil {
					st.Version = resp.Version
				}
			default:
				st.Status = resp.Status
				st.Version = resp.Version
			}
			results[i] = st
			return nil
		})
	}
	_ = g.Wait()
	return results
}

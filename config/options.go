// Package config holds the settings shared by the dashrpc binaries.
//
// Options are built once at startup, filled from a config file, the
// environment (DASHRPC_ prefix) and flags through ConfigureWithViper, and
// then handed to services.NewConn as a plain struct.
package config

import (
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/qaforge/dashrpc/pkg/rpclog"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Service keys used in config files and environment variables.
const (
	RequirementAnalysis = "requirementAnalysis"
	TestCase            = "testCase"
	TestData            = "testData"
	Knowledge           = "knowledge"
)

// ServiceKeys lists every service key in a stable order.
var ServiceKeys = []string{RequirementAnalysis, TestCase, TestData, Knowledge}

// ServiceOptions configures one backend service.
type ServiceOptions struct {
	// BaseURL overrides Options.BaseURL for this service.
	BaseURL string
	// Enabled false serves the service from mocks.
	Enabled bool
}

// MockOptions selects and tunes mock responses.
type MockOptions struct {
	// Enabled serves every service from mocks.
	Enabled bool
	// Seed makes mock content reproducible; nil picks one per process.
	Seed *uint32
	// Fallback re-serves a call from mocks when the backend is unreachable.
	Fallback bool
	Latency  time.Duration
}

type Options struct {
	vp *viper.Viper

	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// Token is sent as "authorization: Bearer <token>" when set.
	Token string
	// PeerURL, when set, is a websocket signalling URL; real calls then
	// travel over a WebRTC DataChannel to that peer instead of HTTP.
	PeerURL string

	Services map[string]ServiceOptions
	Mock     MockOptions

	Logger struct {
		Level   zapcore.Level
		Dir     string
		LineNum bool
	}

	// MockBackend configures cmd/mockbackend.
	MockBackend struct {
		Addr        string
		MetricsPath string
	}
}

func New() *Options {
	o := &Options{
		BaseURL:   "http://127.0.0.1:8080",
		Timeout:   30 * time.Second,
		UserAgent: "dashrpc-go/1.0",
		Services:  make(map[string]ServiceOptions, len(ServiceKeys)),
	}
	for _, key := range ServiceKeys {
		o.Services[key] = ServiceOptions{Enabled: true}
	}
	o.Logger.Level = zapcore.InfoLevel
	o.MockBackend.Addr = "127.0.0.1:8080"
	o.MockBackend.MetricsPath = "/metrics"
	return o
}

func (o *Options) ConfigureWithViper(vp *viper.Viper) {
	o.vp = vp

	o.BaseURL = strings.TrimRight(o.getString("baseURL", o.BaseURL), "/")
	o.Timeout = o.getDuration("timeout", o.Timeout)
	o.UserAgent = o.getString("userAgent", o.UserAgent)
	o.Token = o.getString("token", o.Token)
	o.PeerURL = o.getString("peerURL", o.PeerURL)

	for _, key := range ServiceKeys {
		svc := o.Services[key]
		svc.BaseURL = strings.TrimRight(o.getString("services."+key+".baseURL", svc.BaseURL), "/")
		svc.Enabled = o.getBool("services."+key+".enabled", svc.Enabled)
		o.Services[key] = svc
	}

	o.Mock.Enabled = o.getBool("mock.enabled", o.Mock.Enabled)
	o.Mock.Fallback = o.getBool("mock.fallback", o.Mock.Fallback)
	o.Mock.Latency = o.getDuration("mock.latency", o.Mock.Latency)
	if v := o.vp.Get("mock.seed"); v != nil {
		if seed, err := cast.ToUint32E(v); err == nil {
			o.Mock.Seed = &seed
		}
	}

	if lvl := o.getString("logger.level", ""); lvl != "" {
		if level, err := zapcore.ParseLevel(lvl); err == nil {
			o.Logger.Level = level
		}
	}
	o.Logger.Dir = o.getString("logger.dir", o.Logger.Dir)
	o.Logger.LineNum = o.getBool("logger.lineNum", o.Logger.LineNum)

	o.MockBackend.Addr = o.getString("mockBackend.addr", o.MockBackend.Addr)
	o.MockBackend.MetricsPath = o.getString("mockBackend.metricsPath", o.MockBackend.MetricsPath)
}

// Service returns the settings of one service with BaseURL resolved.
func (o *Options) Service(key string) ServiceOptions {
	svc, ok := o.Services[key]
	if !ok {
		svc = ServiceOptions{Enabled: true}
	}
	if svc.BaseURL == "" {
		svc.BaseURL = o.BaseURL
	}
	return svc
}

// Headers returns the extra request headers every call carries.
func (o *Options) Headers() map[string]string {
	if o.Token == "" {
		return nil
	}
	return map[string]string{"authorization": "Bearer " + o.Token}
}

// LogOptions converts the logger section for rpclog.Configure.
func (o *Options) LogOptions() *rpclog.Options {
	opts := rpclog.NewOptions()
	opts.Level = o.Logger.Level
	opts.LogDir = o.Logger.Dir
	opts.LineNum = o.Logger.LineNum
	return opts
}

// Validate reports settings that would make every call fail.
func (o *Options) Validate() error {
	if o.Timeout < 0 {
		return errors.Errorf("timeout must not be negative, got %s", o.Timeout)
	}
	if o.Mock.Latency < 0 {
		return errors.Errorf("mock.latency must not be negative, got %s", o.Mock.Latency)
	}
	if o.PeerURL != "" {
		if u, err := url.Parse(o.PeerURL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			return errors.Errorf("peerURL must be a ws:// or wss:// URL, got %q", o.PeerURL)
		}
		return nil
	}
	for _, key := range ServiceKeys {
		svc := o.Service(key)
		if !o.Mock.Enabled && svc.Enabled && svc.BaseURL == "" {
			return errors.Errorf("services.%s: no base URL configured", key)
		}
	}
	return nil
}

func (o *Options) getString(key string, defaultValue string) string {
	v := o.vp.GetString(key)
	if v == "" {
		return defaultValue
	}
	return v
}

func (o *Options) getBool(key string, defaultValue bool) bool {
	objV := o.vp.Get(key)
	if objV == nil {
		return defaultValue
	}
	return cast.ToBool(objV)
}

func (o *Options) getDuration(key string, defaultValue time.Duration) time.Duration {
	v := o.vp.GetDuration(key)
	if v == 0 {
		return defaultValue
	}
	return v
}

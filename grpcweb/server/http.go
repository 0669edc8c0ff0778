package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/qaforge/dashrpc/grpcweb/codec"
	"github.com/qaforge/dashrpc/grpcweb/transport"
	"github.com/qaforge/dashrpc/pkg/rpclog"
	"go.uber.org/zap"
)

// maxRequestBytes bounds a request body read by the HTTP route.
const maxRequestBytes = 4 << 20

// Route mounts the gRPC-Web endpoint on r as POST /:service/:method.
func (s *Server) Route(r gin.IRoutes) {
	r.POST("/:service/:method", s.handleHTTP)
}

func (s *Server) handleHTTP(c *gin.Context) {
	if ct := c.GetHeader("Content-Type"); !strings.HasPrefix(ct, "application/grpc-web") {
		c.String(http.StatusUnsupportedMediaType, "unsupported content-type %q", ct)
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRequestBytes+1))
	if err != nil {
		c.String(http.StatusBadRequest, "read body: %v", err)
		return
	}
	if len(body) > maxRequestBytes {
		c.String(http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	headers := make(map[string]string, len(c.Request.Header))
	for k, v := range c.Request.Header {
		if len(v) > 0 {
			headers[strings.ToLower(k)] = v[0]
		}
	}

	resp := s.Serve(c.Request.Context(), &codec.RequestEnvelope{
		Path:    codec.MethodPath(c.Param("service"), c.Param("method")),
		Headers: headers,
		Body:    body,
	})
	for k, v := range resp.Headers {
		c.Header(k, v)
	}
	c.Data(http.StatusOK, transport.ContentType, resp.Body)
}

// CORS allows browser dashboards on other origins to call the endpoint.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization, X-Grpc-Web, X-User-Agent, X-Request-Id, Grpc-Timeout")
		h.Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		h.Set("Access-Control-Expose-Headers", "Grpc-Status, Grpc-Message, X-Request-Id")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Logger logs each HTTP request at debug level.
func Logger(log *rpclog.Log) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		log.Debug(fmt.Sprintf("|%s| %d| %s", c.Request.Method, c.Writer.Status(), c.Request.URL.Path),
			zap.String("clientip", c.ClientIP()),
			zap.Int("size", c.Writer.Size()),
			zap.Duration("latency", latency))
	}
}

// NewEngine returns a gin engine serving s with logging, recovery and CORS.
func NewEngine(s *Server) *gin.Engine {
	r := gin.New()
	r.Use(Logger(rpclog.NewLog("HTTP")), gin.Recovery(), CORS())
	_ = r.SetTrustedProxies(nil)
	s.Route(r)
	return r
}

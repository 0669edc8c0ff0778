// Package reflection lets clients list the services a backend serves.
//
// It does not use protobuf file descriptors; the answer is built from the
// method paths registered on a server.Server and sent as JSON.
//
// # Usage
//
//	srv := server.New(nil)
//	reflection.Register(srv)
//
//	// later, from a client
//	services, err := reflection.List(ctx, exec)
package reflection

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/qaforge/dashrpc/grpcweb/codec"
	"github.com/qaforge/dashrpc/grpcweb/server"
	"github.com/qaforge/dashrpc/grpcweb/unary"
)

// MethodPath is the path for the ListServices method
const MethodPath = "/grpc.reflection.v1alpha.ServerReflection/ListServices"

// ServiceInfo contains information about a registered service
type ServiceInfo struct {
	Name    string   `json:"name"`
	Methods []string `json:"methods"`
}

// ListServicesResponse is the response for ListServices
type ListServicesResponse struct {
	Services []ServiceInfo `json:"services"`
}

// Empty is the (empty) ListServices request.
type Empty struct{}

// EmptyCodec encodes Empty as a zero-length message.
var EmptyCodec = codec.NewCodec(
	func(Empty) ([]byte, error) { return []byte{}, nil },
	func([]byte) (Empty, error) { return Empty{}, nil },
)

// ListServicesCodec encodes ListServicesResponse as JSON.
var ListServicesCodec = codec.NewCodec(
	func(resp *ListServicesResponse) ([]byte, error) { return json.Marshal(resp) },
	func(data []byte) (*ListServicesResponse, error) {
		resp := &ListServicesResponse{}
		if err := json.Unmarshal(data, resp); err != nil {
			return nil, err
		}
		return resp, nil
	},
)

// HandlerRegistry is an interface for getting registered handlers
type HandlerRegistry interface {
	// GetRegisteredMethods returns all registered method paths
	GetRegisteredMethods() []string
}

// Reflection provides server reflection functionality
type Reflection struct {
	registry HandlerRegistry
}

// New creates a new Reflection instance
func New(registry HandlerRegistry) *Reflection {
	return &Reflection{
		registry: registry,
	}
}

// ListServices returns information about all registered services
func (r *Reflection) ListServices() *ListServicesResponse {
	serviceMap := make(map[string][]string)
	for _, path := range r.registry.GetRegisteredMethods() {
		if strings.HasPrefix(path, "/grpc.reflection.") {
			continue
		}
		service, method := codec.SplitMethodPath(path)
		if service == "" || method == "" {
			continue
		}
		serviceMap[service] = append(serviceMap[service], method)
	}

	services := make([]ServiceInfo, 0, len(serviceMap))
	for name, methods := range serviceMap {
		sort.Strings(methods)
		services = append(services, ServiceInfo{
			Name:    name,
			Methods: methods,
		})
	}
	sort.Slice(services, func(i, j int) bool {
		return services[i].Name < services[j].Name
	})

	return &ListServicesResponse{
		Services: services,
	}
}

// Handler returns a server handler for the ListServices method
func (r *Reflection) Handler() server.Handler {
	return server.MakeHandler(EmptyCodec, ListServicesCodec,
		func(ctx context.Context, _ Empty) (*ListServicesResponse, error) {
			return r.ListServices(), nil
		})
}

// Register creates a Reflection over srv and registers its handler.
func Register(srv *server.Server) *Reflection {
	r := New(srv)
	srv.RegisterHandler(MethodPath, r.Handler())
	return r
}

// List calls ListServices on the backend behind exec.
func List(ctx context.Context, exec *unary.Executor) (*ListServicesResponse, error) {
	return unary.Invoke(ctx, exec, MethodPath, Empty{}, EmptyCodec, ListServicesCodec)
}

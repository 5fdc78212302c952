package routing

import (
	"strings"

	"github.com/illmade-knight/go-billing/pkg/types"
)

// Resolver looks up destination topics for the current module.
// It holds its own copy of the routing entries and never mutates them, so it is
// safe for concurrent use.
type Resolver struct {
	moduleName string
	routes     []ModuleRoute
}

// NewResolver creates a Resolver for moduleName over the given table.
func NewResolver(moduleName string, cfg *Config) *Resolver {
	r := &Resolver{moduleName: moduleName}
	if cfg == nil {
		return r
	}
	r.routes = make([]ModuleRoute, len(cfg.Modules))
	for i, route := range cfg.Modules {
		r.routes[i] = ModuleRoute{
			ApplicationModuleName: route.ApplicationModuleName,
			MessageType:           route.MessageType,
			Topics:                append([]string(nil), route.Topics...),
		}
	}
	return r
}

// ModuleName returns the module identity used for lookups.
func (r *Resolver) ModuleName() string {
	return r.moduleName
}

// ResolveTopics returns the topics configured for messageType under the
// current module. The first matching entry wins; no match yields an empty list.
func (r *Resolver) ResolveTopics(messageType types.MessageType) []string {
	for _, route := range r.routes {
		if route.ApplicationModuleName != r.moduleName {
			continue
		}
		if strings.EqualFold(route.MessageType, messageType.Code()) {
			return append([]string{}, route.Topics...)
		}
	}
	return []string{}
}

// Routes returns every entry configured for the current module, in file order.
func (r *Resolver) Routes() []ModuleRoute {
	var out []ModuleRoute
	for _, route := range r.routes {
		if route.ApplicationModuleName == r.moduleName {
			route.Topics = append([]string{}, route.Topics...)
			out = append(out, route)
		}
	}
	return out
}

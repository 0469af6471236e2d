// Package di contains dependency injection tokens for the api context.
package di

import (
	"github.com/stxquote/price-engine/business/api/rest"
	"github.com/stxquote/price-engine/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Server = di.NewToken[*rest.Server]("api.Server")
)

// Helper functions for type-safe access
func GetServer(c di.ServiceRegistry) *rest.Server {
	return di.GetToken(c, Server)
}

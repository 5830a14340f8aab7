// Package autoload initializes the global logger from LOG_-prefixed
// environment variables as a side effect of being imported.
package autoload

import (
	configx "github.com/techflow/careflow/pkg/config"
	logx "github.com/techflow/careflow/pkg/logger"
)

func init() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))
}

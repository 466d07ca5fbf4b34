// Package autoload configures the global zerolog logger from LOG_* process
// environment variables when imported for its side effect. It does not read
// .env files; callers that load one should call logx.Init again afterwards.
package autoload

import (
	"github.com/kelseyhightower/envconfig"
	logx "github.com/tanpawarit/Chative-Callcenter-Agent/pkg/logger"
)

func init() {
	var conf logx.Config
	if err := envconfig.Process("LOG", &conf); err != nil {
		logx.Init()
		return
	}
	logx.Init(conf)
}

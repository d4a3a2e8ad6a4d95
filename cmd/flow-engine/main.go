package main

import (
	"github.com/LENAX/flow-engine/pkg/cli/cmd"
)

// Flow Engine统一入口：CLI子命令与HTTP API服务
func main() {
	cmd.Execute()
}

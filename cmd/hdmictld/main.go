// Command hdmictld runs the hdmictl daemon. It is equivalent to
// `hdmictl daemon` and exists for service managers that expect a dedicated
// binary. HDMICTL_CONFIG selects a configuration file.
package main

import (
	"context"
	"log"
	"os"

	"hdmictl/internal/config"
	"hdmictl/internal/daemonrun"
)

func main() {
	cfg, _, _, err := config.Load(os.Getenv("HDMICTL_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{}); err != nil {
		log.Fatalf("hdmictld: %v", err)
	}
}

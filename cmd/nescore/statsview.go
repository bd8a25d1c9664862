package main

import (
	"fmt"
	"io"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

const statsviewPath = "/debug/statsview"

// launchStatsview serves Go runtime charts on addr from a new goroutine.
func launchStatsview(addr string, output io.Writer) {
	go func() {
		viewer.SetConfiguration(viewer.WithAddr(addr))
		mgr := statsview.New()
		mgr.Start()
	}()

	fmt.Fprintf(output, "stats server available at %s%s\n", addr, statsviewPath)
}

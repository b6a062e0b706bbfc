package main

import (
	"flag"
	"sync"

	klog "k8s.io/klog/v2"
)

var klogOnce sync.Once

// quietKlog limits klog noise from client-go and Helm so the plan output
// stays readable.
func quietKlog() {
	klogOnce.Do(func() {
		klog.InitFlags(nil)
		_ = flag.Set("stderrthreshold", "FATAL")
		_ = flag.Set("v", "0")
		_ = flag.Set("logtostderr", "false")
		_ = flag.Set("alsologtostderr", "false")
	})
}

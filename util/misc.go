package util

import (
	"fmt"
	"runtime"
	"time"

	"github.com/klauspost/cpuid/v2"
	"golang.org/x/exp/rand"
)

func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(uint64(seed)))
}

// DeviceInfo describes the CPU training runs on.
func DeviceInfo() string {
	brand := cpuid.CPU.BrandName
	if brand == "" {
		brand = runtime.GOARCH
	}
	return fmt.Sprintf("cpu (%s, %d cores, %d threads)", brand, cpuid.CPU.PhysicalCores, runtime.NumCPU())
}

// FormatDuration prints d as H:MM:SS.
func FormatDuration(d time.Duration) string {
	s := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%d:%02d:%02d", s/3600, (s/60)%60, s%60)
}

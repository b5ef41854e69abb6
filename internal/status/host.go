package status

import (
	"errors"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostInfo is a snapshot of the board's health.
type HostInfo struct {
	UptimeSeconds uint64
	Load1         float64
	MemUsedMB     float64
	MemTotalMB    float64
	DiskUsedPct   float64
}

// ReadHostInfo samples uptime, load, memory and root filesystem usage.
// Fields that cannot be read are left zero; the error joins all failures.
func ReadHostInfo() (*HostInfo, error) {
	info := &HostInfo{}
	var errs []error

	if up, err := host.Uptime(); err == nil {
		info.UptimeSeconds = up
	} else {
		errs = append(errs, err)
	}

	if avg, err := load.Avg(); err == nil {
		info.Load1 = avg.Load1
	} else {
		errs = append(errs, err)
	}

	// Used = Total - Available, so page cache does not count as used.
	if vm, err := mem.VirtualMemory(); err == nil {
		info.MemUsedMB = float64(vm.Total-vm.Available) / 1024 / 1024
		info.MemTotalMB = float64(vm.Total) / 1024 / 1024
	} else {
		errs = append(errs, err)
	}

	if du, err := disk.Usage("/"); err == nil {
		info.DiskUsedPct = du.UsedPercent
	} else {
		errs = append(errs, err)
	}

	return info, errors.Join(errs...)
}

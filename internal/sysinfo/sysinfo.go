// Package sysinfo describes the machine a run executed on.
package sysinfo

import (
	"fmt"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/mem"
)

// SysInfo is stored next to every run so timings can be compared across hosts.
type SysInfo struct {
	Platform string `json:"platform"`
	CPU      string `json:"cpu"`
	RAM      string `json:"ram"`
}

// Collect queries the host. Fields that cannot be read are left as "unknown".
func Collect() SysInfo {
	s := SysInfo{Platform: "unknown", CPU: "unknown", RAM: "unknown"}
	if h, err := host.Info(); err == nil && h.Platform != "" {
		s.Platform = h.Platform
		if h.PlatformVersion != "" {
			s.Platform += " " + h.PlatformVersion
		}
	}
	if c, err := cpu.Info(); err == nil && len(c) > 0 {
		s.CPU = c[0].ModelName
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.RAM = fmt.Sprintf("%d GB", vm.Total/1024/1024/1024)
	}
	return s
}

func (s SysInfo) String() string {
	return fmt.Sprintf("%s, %s, %s RAM", s.Platform, s.CPU, s.RAM)
}

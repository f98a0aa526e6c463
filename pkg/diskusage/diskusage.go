// Package diskusage 磁盘使用率查询，基于 gopsutil
package diskusage

import (
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v4/disk"
)

// Usage 某一路径所在分区的磁盘使用情况
type Usage struct {
	// Path 查询路径
	Path string `json:"path"`
	// Total 分区总容量（字节）
	Total uint64 `json:"total"`
	// Free 剩余可用空间（字节）
	Free uint64 `json:"free"`
	// Used 已用空间（字节）
	Used uint64 `json:"used"`
	// UsedPercent 使用率百分比
	UsedPercent float64 `json:"usedPercent"`
}

// Get returns disk usage for the partition containing path
// Get 返回 path 所在分区的磁盘使用情况
func Get(path string) (*Usage, error) {
	stat, err := disk.Usage(path)
	if err != nil {
		return nil, errors.Wrapf(err, "disk usage %s", path)
	}
	return &Usage{
		Path:        path,
		Total:       stat.Total,
		Free:        stat.Free,
		Used:        stat.Used,
		UsedPercent: stat.UsedPercent,
	}, nil
}

// HasSpace reports whether the partition containing path has at least need bytes free
// HasSpace 判断 path 所在分区剩余空间是否不少于 need 字节
func HasSpace(path string, need uint64) (bool, error) {
	u, err := Get(path)
	if err != nil {
		return false, err
	}
	return u.Free >= need, nil
}

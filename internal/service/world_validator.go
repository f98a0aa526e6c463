package service

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// 存档目录结构要求
// required 缺失即判定无效，optional 缺失仅扣分
var (
	worldRequiredFiles   = []string{"level.dat"}
	worldRequiredDirs    = []string{"region"}
	worldOptionalEntries = []string{"playerdata", "data", "session.lock"}
)

// WorldCheckResult 存档目录结构检查结果
type WorldCheckResult struct {
	// Valid 必需条目齐全且非空
	Valid bool `json:"valid"`
	// MissingEntries 缺失的必需条目
	MissingEntries []string `json:"missingEntries,omitempty"`
	// EmptyFiles 存在但为零字节的必需文件
	EmptyFiles []string `json:"emptyFiles,omitempty"`
	// MissingOptional 缺失的可选条目
	MissingOptional []string `json:"missingOptional,omitempty"`
}

// WorldValidator 存档目录结构校验
type WorldValidator interface {
	// Validate 检查 path 是否为结构完整的游戏存档目录
	Validate(path string) (*WorldCheckResult, error)
}

type worldValidator struct {
	logger *zap.Logger
}

// NewWorldValidator 创建 WorldValidator 实例
func NewWorldValidator(logger *zap.Logger) WorldValidator {
	return &worldValidator{logger: logger}
}

// Validate checks required world entries exist and are non-empty
// Validate 检查必需的存档条目存在且非空
func (v *worldValidator) Validate(path string) (*WorldCheckResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "stat world %s", path)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("world path %s is not a directory", path)
	}

	result := &WorldCheckResult{Valid: true}

	for _, name := range worldRequiredFiles {
		fi, err := os.Stat(filepath.Join(path, name))
		if err != nil {
			result.MissingEntries = append(result.MissingEntries, name)
			result.Valid = false
			continue
		}
		if fi.Size() == 0 {
			result.EmptyFiles = append(result.EmptyFiles, name)
			result.Valid = false
		}
	}

	for _, name := range worldRequiredDirs {
		fi, err := os.Stat(filepath.Join(path, name))
		if err != nil || !fi.IsDir() {
			result.MissingEntries = append(result.MissingEntries, name)
			result.Valid = false
		}
	}

	for _, name := range worldOptionalEntries {
		if _, err := os.Stat(filepath.Join(path, name)); err != nil {
			result.MissingOptional = append(result.MissingOptional, name)
		}
	}

	if !result.Valid {
		v.logger.Debug("world validation failed",
			zap.String("path", path),
			zap.Strings("missing", result.MissingEntries),
			zap.Strings("empty", result.EmptyFiles))
	}

	return result, nil
}

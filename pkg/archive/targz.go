// Package archive 提供 tar.gz 归档的创建、读取与完整性检查
package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// gzip 文件头魔数
var gzipMagic = []byte{0x1f, 0x8b}

// Entry 归档内单个文件的描述
type Entry struct {
	// Name 归档内相对路径
	Name string
	// Size 原始大小（字节）
	Size int64
	// Mode 文件权限
	Mode int64
	// IsDir 是否为目录
	IsDir bool
}

// Create walks srcDir and writes a tar.gz archive to destPath
// Returns the number of files archived and the archive size in bytes
// Create 遍历 srcDir 并写出 tar.gz 归档到 destPath
// 返回归档的文件数量与归档字节大小
func Create(ctx context.Context, srcDir string, destPath string) (int, int64, error) {
	srcInfo, err := os.Stat(srcDir)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "stat source %s", srcDir)
	}
	if !srcInfo.IsDir() {
		return 0, 0, errors.Errorf("source %s is not a directory", srcDir)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "create archive %s", destPath)
	}
	defer out.Close()

	gw := gzip.NewWriter(out)
	tw := tar.NewWriter(gw)

	fileCount := 0
	walkErr := filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		// 支持取消：每个文件前检查一次
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		// 跳过符号链接，游戏存档目录不应包含有效链接
		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		if _, err := io.Copy(tw, f); err != nil {
			return err
		}
		fileCount++
		return nil
	})
	if walkErr != nil {
		tw.Close()
		gw.Close()
		return 0, 0, errors.Wrapf(walkErr, "archive %s", srcDir)
	}

	if err := tw.Close(); err != nil {
		return 0, 0, errors.Wrap(err, "close tar writer")
	}
	if err := gw.Close(); err != nil {
		return 0, 0, errors.Wrap(err, "close gzip writer")
	}
	if err := out.Sync(); err != nil {
		return 0, 0, errors.Wrap(err, "sync archive")
	}

	stat, err := out.Stat()
	if err != nil {
		return 0, 0, errors.Wrap(err, "stat archive")
	}

	return fileCount, stat.Size(), nil
}

// List returns the table of contents of a tar.gz archive
// List 返回 tar.gz 归档的文件清单
func List(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open archive %s", path)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "gzip open %s", path)
	}
	defer gr.Close()

	tr := tar.NewReader(gr)
	var entries []Entry
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read archive %s", path)
		}
		entries = append(entries, Entry{
			Name:  hdr.Name,
			Size:  hdr.Size,
			Mode:  hdr.Mode,
			IsDir: hdr.Typeflag == tar.TypeDir,
		})
	}

	return entries, nil
}

// Extract unpacks a tar.gz archive into destDir
// Entries escaping destDir are rejected
// Extract 将 tar.gz 归档解包到 destDir
// 越出 destDir 的条目会被拒绝
func Extract(ctx context.Context, archivePath string, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return errors.Wrapf(err, "open archive %s", archivePath)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "gzip open %s", archivePath)
	}
	defer gr.Close()

	tr := tar.NewReader(gr)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrapf(err, "read archive %s", archivePath)
		}

		target := filepath.Join(destDir, filepath.FromSlash(hdr.Name))
		// 路径穿越防护
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return errors.Errorf("illegal entry path %s", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(hdr.Mode)); err != nil {
				return errors.Wrapf(err, "mkdir %s", target)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return errors.Wrapf(err, "mkdir %s", filepath.Dir(target))
			}
			w, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(hdr.Mode))
			if err != nil {
				return errors.Wrapf(err, "create %s", target)
			}
			if _, err := io.Copy(w, tr); err != nil {
				w.Close()
				return errors.Wrapf(err, "write %s", target)
			}
			if err := w.Close(); err != nil {
				return errors.Wrapf(err, "close %s", target)
			}
		}
	}

	return nil
}

// ExtractFile reads a single named entry from the archive into memory
// ExtractFile 从归档中读取单个命名条目到内存
func ExtractFile(archivePath string, name string) ([]byte, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, errors.Wrapf(err, "open archive %s", archivePath)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "gzip open %s", archivePath)
	}
	defer gr.Close()

	tr := tar.NewReader(gr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read archive %s", archivePath)
		}
		if hdr.Name == name && hdr.Typeflag == tar.TypeReg {
			data, err := io.ReadAll(tr)
			if err != nil {
				return nil, errors.Wrapf(err, "read entry %s", name)
			}
			return data, nil
		}
	}

	return nil, errors.Errorf("entry %s not found in %s", name, archivePath)
}

// Salvage copies all readable entries of a possibly corrupted archive into a
// fresh tar.gz at destPath, stopping at the first unreadable byte
// Returns the number of entries recovered
// Salvage 将可能损坏的归档中所有可读条目复制到 destPath 的新 tar.gz
// 在首个不可读字节处停止，返回恢复的条目数量
func Salvage(srcPath string, destPath string) (int, error) {
	f, err := os.Open(srcPath)
	if err != nil {
		return 0, errors.Wrapf(err, "open archive %s", srcPath)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return 0, errors.Wrapf(err, "gzip open %s", srcPath)
	}
	defer gr.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return 0, errors.Wrapf(err, "create %s", destPath)
	}
	defer out.Close()

	gw := gzip.NewWriter(out)
	tw := tar.NewWriter(gw)

	recovered := 0
	tr := tar.NewReader(gr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			// 损坏点，之前的条目已经写出
			break
		}

		data, err := io.ReadAll(tr)
		if err != nil {
			break
		}
		hdr.Size = int64(len(data))
		if err := tw.WriteHeader(hdr); err != nil {
			return recovered, errors.Wrap(err, "write salvage header")
		}
		if _, err := tw.Write(data); err != nil {
			return recovered, errors.Wrap(err, "write salvage entry")
		}
		recovered++
	}

	if err := tw.Close(); err != nil {
		return recovered, errors.Wrap(err, "close salvage tar writer")
	}
	if err := gw.Close(); err != nil {
		return recovered, errors.Wrap(err, "close salvage gzip writer")
	}

	return recovered, nil
}

// CheckMagic verifies the file starts with the gzip magic bytes
// CheckMagic 校验文件头是否为 gzip 魔数
func CheckMagic(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open archive %s", path)
	}
	defer f.Close()

	header := make([]byte, 2)
	if _, err := io.ReadFull(f, header); err != nil {
		return errors.Wrapf(err, "read header %s", path)
	}
	if header[0] != gzipMagic[0] || header[1] != gzipMagic[1] {
		return errors.Errorf("%s is not a gzip archive", path)
	}

	return nil
}

// CheckIntegrity streams the whole archive through gzip and tar decoding
// A truncated or corrupted archive fails here
// CheckIntegrity 将整个归档流过 gzip 与 tar 解码
// 截断或损坏的归档会在这里失败
func CheckIntegrity(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open archive %s", path)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "gzip open %s", path)
	}
	defer gr.Close()

	tr := tar.NewReader(gr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrapf(err, "corrupted archive %s", path)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if _, err := io.Copy(io.Discard, tr); err != nil {
			return errors.Wrapf(err, "corrupted entry %s in %s", hdr.Name, path)
		}
	}

	return nil
}

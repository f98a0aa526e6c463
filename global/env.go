package global

import (
	"github.com/craftops/game-backup-service/pkg/fileurl"
)

var (
	// 程序执行目录
	ROOT string
	Name string = "Game Backup Service"
)

func init() {

	filename := fileurl.GetExePath()
	ROOT = filename + "/"

}

package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/craftops/game-backup-service/global"
	internalApp "github.com/craftops/game-backup-service/internal/app"
	"github.com/craftops/game-backup-service/internal/dao"
	"github.com/craftops/game-backup-service/internal/model"
	"github.com/craftops/game-backup-service/internal/routers"
	"github.com/craftops/game-backup-service/pkg/logger"
	"github.com/craftops/game-backup-service/pkg/safe_close"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultShutdownTimeout 默认关闭超时时间
const DefaultShutdownTimeout = 30 * time.Second

type Server struct {
	logger            *zap.Logger
	db                *gorm.DB
	httpServer        *http.Server
	privateHttpServer *http.Server
	sc                *safe_close.SafeClose
	app               *internalApp.App
}

func NewServer(runEnv *runFlags) (*Server, error) {

	cfg, err := global.ConfigLoad(runEnv.config)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 命令行参数优先于配置文件
	if len(runEnv.port) > 0 {
		cfg.Server.HttpPort = runEnv.port
	}

	runMode := runEnv.runMode
	if len(runMode) <= 0 {
		runMode = cfg.Server.RunMode
	}
	if len(runMode) > 0 {
		gin.SetMode(runMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		sc: safe_close.NewSafeClose(),
	}

	if err := initLogger(s); err != nil {
		return nil, fmt.Errorf("initLogger: %w", err)
	}

	if err := initStorage(); err != nil {
		return nil, fmt.Errorf("initStorage: %w", err)
	}

	db, err := initDatabase()
	if err != nil {
		return nil, fmt.Errorf("initDatabase: %w", err)
	}
	s.db = db

	app, err := internalApp.NewApp(s.logger, db, s.sc)
	if err != nil {
		return nil, fmt.Errorf("failed to create app container: %w", err)
	}
	s.app = app

	// 启动后台任务与计划调度
	s.app.TaskManager.Start()
	if err := s.app.Trigger.Start(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to start trigger engine: %w", err)
	}

	banner := `
   ______                        ____             __
  / ____/___ _____ ___  ___     / __ )____ ______/ /____  ______
 / / __/ __  / __  __ \/ _ \   / __  / __  / ___/ //_/ / / / __ \
/ /_/ / /_/ / / / / / /  __/  / /_/ / /_/ / /__/ ,< / /_/ / /_/ /
\____/\__,_/_/ /_/ /_/\___/  /_____/\__,_/\___/_/|_|\__,_/ .___/
                                                         /_/      `
	s.logger.Warn(fmt.Sprintf("%s\n\n%s v%s\nGit: %s\nBuildTime: %s\n", banner, internalApp.Name, internalApp.Version, internalApp.GitTag, internalApp.BuildTime))

	s.logger.Warn("config loaded", zap.String("path", cfg.File))

	// 启动 HTTP API 服务器
	if httpAddr := cfg.Server.HttpPort; len(httpAddr) > 0 {
		s.logger.Warn("api_router", zap.String("config.server.HttpPort", httpAddr))
		s.httpServer = &http.Server{
			Addr:           withColon(httpAddr),
			Handler:        routers.NewRouter(s.app),
			ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
			WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
			MaxHeaderBytes: 1 << 20,
		}
		s.attachHTTPServer(s.httpServer, "api service")
	}

	// 启动私有服务器，暴露 Prometheus 指标与 pprof
	if httpAddr := cfg.Server.PrivatePort; len(httpAddr) > 0 {
		s.logger.Info("api_router", zap.String("config.server.PrivatePort", httpAddr))
		s.privateHttpServer = &http.Server{
			Addr:           withColon(httpAddr),
			Handler:        routers.NewPrivateRouter(runMode, s.app.Registry, s.logger),
			ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
			WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
			MaxHeaderBytes: 1 << 20,
		}
		s.attachHTTPServer(s.privateHttpServer, "private api service")
	}

	// 注册应用容器的优雅关闭
	s.sc.Attach(func(done func(), closeSignal <-chan struct{}) {
		defer done()
		<-closeSignal

		ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()

		if err := s.app.Trigger.Stop(ctx); err != nil {
			s.logger.Error("failed to stop trigger engine", zap.Error(err))
		}
		if err := s.app.WorkerPool.Shutdown(ctx); err != nil {
			s.logger.Error("failed to shutdown worker pool", zap.Error(err))
		}
		if err := s.app.Close(); err != nil {
			s.logger.Error("failed to close app container", zap.Error(err))
		} else {
			s.logger.Info("app container shutdown gracefully")
		}
	})

	return s, nil
}

// attachHTTPServer 将 HTTP 服务器的生命周期挂接到关闭控制器
func (s *Server) attachHTTPServer(server *http.Server, name string) {
	s.sc.Attach(func(done func(), closeSignal <-chan struct{}) {
		defer done()
		errChan := make(chan error, 1)
		go func() {
			errChan <- server.ListenAndServe()
		}()
		select {
		case err := <-errChan:
			s.logger.Error(name+" err", zap.Error(err))
			s.sc.SendCloseSignal(err)
		case <-closeSignal:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := server.Shutdown(ctx); err != nil {
				s.logger.Error(name+" shutdown error", zap.Error(err))
			}
		}
	})
}

// withColon 端口号补全为监听地址
func withColon(addr string) string {
	if len(addr) > 0 && addr[0] != ':' {
		for _, r := range addr {
			if r == ':' || r == '.' {
				return addr
			}
		}
		return ":" + addr
	}
	return addr
}

// initLogger 初始化日志器
func initLogger(s *Server) error {
	cfg := global.Config
	lg, err := logger.NewLogger(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		Production: cfg.Log.Production,
	})
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	s.logger = lg
	global.Logger = lg

	return nil
}

// initDatabase 初始化数据库并执行迁移
func initDatabase() (*gorm.DB, error) {
	db, err := dao.NewDBEngine(global.Config.Database)
	if err != nil {
		return nil, err
	}
	if err := model.AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// initStorage 初始化存储目录
func initStorage() error {
	cfg := global.Config
	dirs := []string{
		filepath.Dir(cfg.Log.File),
		cfg.App.TempPath,
		cfg.Backup.Dir,
		filepath.Dir(cfg.Database.Path),
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0754); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// GetApp 获取 App Container
func (s *Server) GetApp() *internalApp.App {
	return s.app
}

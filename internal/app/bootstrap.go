package app

import (
	"errors"

	"github.com/vmq-next/internal/config"
	"github.com/vmq-next/internal/logger"
	"github.com/vmq-next/internal/provider"
	"github.com/vmq-next/internal/router"
	"github.com/vmq-next/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	container := provider.NewContainer(cfg)
	runner, err := buildRunnerWithContainer(cfg, container, mode)
	if err != nil {
		container.Close()
		return nil, err
	}
	runner.onStop = container.Close
	return runner, nil
}

func buildRunnerWithContainer(cfg *config.Config, container *provider.Container, mode string) (*Runner, error) {
	var services []Service

	// 初始化 HTTP 服务
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		httpService := NewHTTPService(addr, engine)
		services = append(services, httpService)
	}

	// 初始化后台任务：周期扫描始终运行，延迟队列仅在启用时运行
	if mode == ModeAll || mode == ModeWorker {
		services = append(services, worker.NewSweeperFromContainer(container))
		if cfg.Queue.Enabled {
			consumer := worker.NewConsumer(container)
			workerService, err := worker.NewService(&cfg.Queue, consumer)
			if err != nil {
				return nil, err
			}
			services = append(services, workerService)
		} else {
			logger.Infow("app_queue_worker_skipped", "reason", "queue_disabled")
		}
	}

	if len(services) == 0 {
		return nil, errors.New("no services initialized (check mode and config)")
	}

	return NewRunner(services...), nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}

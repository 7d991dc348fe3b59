package main

import (
	"flag"
	"log"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"fxhook/api"
	"fxhook/broker"
	"fxhook/broker/bridge"
	"fxhook/config"
	"fxhook/notify"
	"fxhook/pkg/logger"
	"fxhook/signal"
	"fxhook/trader"
)

func main() {
	configPath := flag.String("config", "config.toml", "配置文件路径")
	flag.Parse()

	// .env 可选，存在时覆盖敏感配置
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	logger.InitLogger(cfg.Server.LogDir, cfg.Server.Debug)

	if err := run(cfg); err != nil {
		logger.Log.Fatal("进程启动失败", zap.Error(err))
	}
}

func run(cfg config.Config) error {
	mainLog := logger.NewModuleLogger("main")

	gate, err := trader.NewHoursGate(cfg.TradingHours)
	if err != nil {
		return err
	}

	// 会话建立失败是致命错误，绝不能带病对外提供服务
	gw := bridge.New(cfg.MT5.BridgeURL)
	if err := gw.Initialize(broker.Credentials{
		Login:    cfg.MT5.Login,
		Password: cfg.MT5.Password,
		Server:   cfg.MT5.Server,
	}); err != nil {
		return err
	}
	defer gw.Shutdown()

	retry := trader.NewRetryPolicy(cfg.Retry)
	closer := trader.NewCloser(gw, retry, cfg.Trading)

	var notifier trader.Notifier
	if tg, err := notify.NewTelegram(cfg.Telegram); err != nil {
		mainLog.Warn("Telegram通知不可用", zap.Error(err))
	} else if tg != nil {
		notifier = tg
	}

	executor := trader.NewExecutor(gw, retry, gate, closer, cfg.Trading, notifier)

	sltp := trader.NewSLTPManager(gw, retry, cfg.Trading, cfg.DynamicSLTP)
	sltp.Start()
	defer func() {
		// 退出顺序：停巡检 -> 等在途信号执行完 -> 关会话(外层defer)
		sltp.Stop()
		executor.Wait()
	}()

	server := api.NewServer(signal.NewParser(), executor, cfg.Server.Listen, cfg.Server.Debug)
	errCh := make(chan error, 1)
	go func() { errCh <- server.Run() }()

	quit := make(chan os.Signal, 1)
	ossignal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case s := <-quit:
		mainLog.Info("收到退出信号，开始优雅停机", zap.String("signal", s.String()))
		return nil
	}
}

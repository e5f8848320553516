package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"intent-engine-sol/internal/config"
	"intent-engine-sol/internal/service"
	"intent-engine-sol/internal/svc"
	"intent-engine-sol/internal/wallet"
	"intent-engine-sol/pkg/logger"

	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"
	zerosvc "github.com/zeromicro/go-zero/core/service"
)

var configFile = flag.String("f", "etc/engine.yaml", "the config file")

func main() {
	defer func() {
		if r := recover(); r != nil {
			logx.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
		}
	}()

	flag.Parse()

	var c config.EngineConfig
	conf.MustLoad(*configFile, &c)

	serviceContext, err := svc.NewEngineServiceContext(c)
	if err != nil {
		panic(err)
	}
	defer serviceContext.Close()

	// 会话签名方：从池里租一个资金钱包
	lease, err := serviceContext.Pool.Acquire(context.Background())
	if err != nil {
		panic(err)
	}
	if !lease.HasFunds {
		logger.Warnf("租用的钱包余额不足, 地址可人工充值: %s", lease.PublicKey)
	}
	defer func() {
		_ = serviceContext.Pool.Release(context.Background(), lease.PublicKey)
	}()

	tracker, err := serviceContext.NewTracker(context.Background(), wallet.LocalSigner(lease.Account))
	if err != nil {
		panic(err)
	}

	sg := zerosvc.NewServiceGroup()
	sg.Add(service.NewIntentReconcileService(tracker, c.TimeConf.ReconcileIntervalSec))
	sg.Add(service.NewBalanceSyncService(serviceContext.Pool, c.TimeConf.BalanceSyncIntervalSec))

	logx.Infof("Starting intent engine, session wallet=%s", lease.PublicKey)

	// 启动服务
	sg.Start()

	// 等待退出信号
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logx.Info("Shutting down services...")
	sg.Stop()
	tracker.Wait()
	logger.Sync()
}

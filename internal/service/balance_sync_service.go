package service

import (
	"context"
	"errors"
	"time"

	"intent-engine-sol/internal/wallet"
	"intent-engine-sol/pkg/logger"
)

// BalanceSyncService 周期性刷新钱包池空闲条目的余额，
// 让 Acquire 的择优选择建立在较新的余额视图上
type BalanceSyncService struct {
	pool     *wallet.Pool
	interval time.Duration
	stopChan chan struct{}
	ctx      context.Context
	cancel   func(err error)
}

func NewBalanceSyncService(pool *wallet.Pool, intervalSec int) *BalanceSyncService {
	if intervalSec <= 0 {
		intervalSec = 60
	}
	ctx, cancel := context.WithCancelCause(context.Background())
	return &BalanceSyncService{
		pool:     pool,
		interval: time.Duration(intervalSec) * time.Second,
		stopChan: make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *BalanceSyncService) Start() {
	s.scheduleNext()
	<-s.stopChan
}

func (s *BalanceSyncService) scheduleNext() {
	time.AfterFunc(s.interval, func() {
		syncCtx, cancel := context.WithTimeout(s.ctx, 20*time.Second)
		if err := s.pool.RefreshBalances(syncCtx); err != nil {
			logger.Warnf("[BalanceSyncService] 余额刷新失败: %v", err)
		}
		cancel()

		// 如果没有被 Stop，就继续调度
		select {
		case <-s.ctx.Done():
			return
		default:
			s.scheduleNext()
		}
	})
}

func (s *BalanceSyncService) Stop() {
	s.cancel(errors.New("BalanceSyncService stop"))
	select {
	case <-s.stopChan:
		// 已关闭，无需重复关闭
	default:
		close(s.stopChan)
	}
}

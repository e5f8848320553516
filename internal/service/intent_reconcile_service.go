package service

import (
	"context"
	"errors"
	"time"

	"intent-engine-sol/internal/intent"
	"intent-engine-sol/pkg/logger"
)

// IntentReconcileService 对确认超时（结果不明确）的意图做后台对账：
// 凭记录中的签名重查链上状态，实际已上链的回填为 completed
type IntentReconcileService struct {
	tracker  *intent.Tracker
	interval time.Duration
	stopChan chan struct{}
	ctx      context.Context
	cancel   func(err error)
}

func NewIntentReconcileService(tracker *intent.Tracker, intervalSec int) *IntentReconcileService {
	if intervalSec <= 0 {
		intervalSec = 30
	}
	ctx, cancel := context.WithCancelCause(context.Background())
	return &IntentReconcileService{
		tracker:  tracker,
		interval: time.Duration(intervalSec) * time.Second,
		stopChan: make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *IntentReconcileService) Start() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(s.ctx, 20*time.Second)
			if n := s.tracker.ReconcileTimeouts(runCtx); n > 0 {
				logger.Infof("[IntentReconcileService] 本轮对账修正 %d 条记录", n)
			}
			cancel()
		}
	}
}

func (s *IntentReconcileService) Stop() {
	s.cancel(errors.New("IntentReconcileService stop"))
	select {
	case <-s.stopChan:
		// 已关闭，无需重复关闭
	default:
		close(s.stopChan)
	}
}

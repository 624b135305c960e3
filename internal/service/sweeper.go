package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const DEFAULT_SWEEP_INTERVAL = time.Minute

// SweepTask 一项周期性清理，返回清理的数量
type SweepTask struct {
	Name string
	Run  func(ctx context.Context) (int, error)
}

// Sweeper 定期清理过期的暂存提名与已结束的对局，也可挂载额外的清理项
type Sweeper struct {
	tasks    []SweepTask
	interval time.Duration

	done    chan struct{}
	stopped chan struct{}
}

func NewSweeper(svc *SessionService, interval time.Duration, extra ...SweepTask) *Sweeper {
	if interval <= 0 {
		interval = DEFAULT_SWEEP_INTERVAL
	}

	tasks := []SweepTask{
		{Name: "过期暂存提名", Run: svc.PurgeExpiredPending},
		{Name: "已结束对局", Run: svc.PurgeFinishedSessions},
	}

	return &Sweeper{
		tasks:    append(tasks, extra...),
		interval: interval,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

func (sw *Sweeper) Start() {
	go sw.loop()
}

func (sw *Sweeper) loop() {
	defer close(sw.stopped)

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-sw.done:
			zap.S().Info("清理协程退出")
			return

		case <-ticker.C:
			sw.SweepOnce(context.Background())
		}
	}
}

// SweepOnce 依次执行所有清理项，返回清理的总数；单项失败不影响其余清理项
func (sw *Sweeper) SweepOnce(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, sw.interval)
	defer cancel()

	total := 0
	for _, task := range sw.tasks {
		n, err := task.Run(ctx)
		if err != nil {
			zap.S().Warnf("清理%s失败：%v", task.Name, err)
			continue
		}

		if n > 0 {
			zap.S().Infof("清理了 %d 条%s", n, task.Name)
		}
		total += n
	}

	return total
}

// Stop 通知清理协程退出并等待其结束，只能在 Start 之后调用
func (sw *Sweeper) Stop() {
	close(sw.done)
	<-sw.stopped
}

// Package safe_close 提供多组件协同关闭的信号分发
// 各组件通过 Attach 注册关闭处理器，任何一方可以 SendCloseSignal 触发全体退出
package safe_close

import (
	"sync"
)

// SafeClose coordinates shutdown across attached goroutines. The first close
// signal wins; WaitClosed blocks until every attached handler reports done.
type SafeClose struct {
	mu        sync.Mutex
	closeOnce sync.Once
	closeCh   chan struct{}
	wg        sync.WaitGroup
	err       error
}

func NewSafeClose() *SafeClose {
	return &SafeClose{
		closeCh: make(chan struct{}),
	}
}

// Attach registers a handler goroutine. The handler must call done() when it
// has fully released its resources, and should return when closeSignal fires.
// Attach 注册一个关闭处理器，处理器释放完资源后必须调用 done()
func (s *SafeClose) Attach(f func(done func(), closeSignal <-chan struct{})) {
	s.wg.Add(1)
	var once sync.Once
	done := func() {
		once.Do(s.wg.Done)
	}
	go f(done, s.closeCh)
}

// SendCloseSignal broadcasts the close signal. Only the first call takes
// effect; err, when non-nil, is surfaced from WaitClosed.
// SendCloseSignal 广播关闭信号，仅首次调用生效
func (s *SafeClose) SendCloseSignal(err error) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.closeCh)
	})
}

// CloseSignal exposes the close channel for select loops.
func (s *SafeClose) CloseSignal() <-chan struct{} {
	return s.closeCh
}

// WaitClosed blocks until all attached handlers have called done(), then
// returns the error passed to the first SendCloseSignal, if any.
// WaitClosed 等待所有处理器退出后返回
func (s *SafeClose) WaitClosed() error {
	<-s.closeCh
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

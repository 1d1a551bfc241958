package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/rewardzone/rewardzone/internal/rewardzone/repository"
)

// DepositExpirer rejects deposit transactions left pending past their expiry
// window, so abandoned gateway checkouts do not accumulate as open journal
// rows. It runs in the background until stopped.
type DepositExpirer struct {
	store    repository.Store
	maxAge   time.Duration
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewDepositExpirer creates an expirer that rejects deposits pending longer
// than maxAge.
func NewDepositExpirer(store repository.Store, maxAge time.Duration) *DepositExpirer {
	return &DepositExpirer{
		store:    store,
		maxAge:   maxAge,
		interval: time.Minute,
		stopCh:   make(chan struct{}),
	}
}

// Start starts the background expiry loop.
func (e *DepositExpirer) Start() {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.loop()
	}()
}

// Stop stops the loop and waits for it to finish.
func (e *DepositExpirer) Stop() {
	close(e.stopCh)
	e.wg.Wait()
}

func (e *DepositExpirer) loop() {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.expireOnce()
		case <-e.stopCh:
			return
		}
	}
}

func (e *DepositExpirer) expireOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-e.maxAge)
	n, err := e.store.ExpirePendingDeposits(ctx, cutoff)
	if err != nil {
		log.Printf("deposit expiry failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("expired %d stale pending deposits", n)
	}
}

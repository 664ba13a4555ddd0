package bot

import (
	"context"
	"fmt"

	"chorus/pkg/monitor"
)

// ManagerBuilder assembles and deploys a bot fleet step by step.
type ManagerBuilder struct {
	mon  monitor.Monitor
	bots []*Bot
}

func NewManagerBuilder() *ManagerBuilder {
	return &ManagerBuilder{}
}

func (b *ManagerBuilder) WithMonitor(mon monitor.Monitor) *ManagerBuilder {
	b.mon = mon
	return b
}

func (b *ManagerBuilder) WithBots(bots ...*Bot) *ManagerBuilder {
	b.bots = append(b.bots, bots...)
	return b
}

// Build starts the monitor, registers every bot and deploys the fleet.
func (b *ManagerBuilder) Build(ctx context.Context) (*Manager, error) {
	if b.mon == nil {
		b.mon = monitor.NewCLIMonitor()
	}
	if err := b.mon.Start(); err != nil {
		return nil, fmt.Errorf("failed to start monitor: %w", err)
	}

	m := NewManager(b.mon)
	for _, bot := range b.bots {
		m.Register(bot)
	}
	m.DeployAll(ctx)
	return m, nil
}

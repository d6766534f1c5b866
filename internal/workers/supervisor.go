package workers

import "context"

// Startable is anything launched with a context. Satisfied by the push
// channel.
type Startable interface {
	Start(ctx context.Context)
}

// ChannelSupervisor brings the push channel up as part of the worker
// aggregate. The coordinator takes over start/stop once connectivity
// transitions begin.
type ChannelSupervisor struct {
	ctx    context.Context
	target Startable
}

func NewChannelSupervisor(ctx context.Context, target Startable) *ChannelSupervisor {
	return &ChannelSupervisor{ctx: ctx, target: target}
}

// Run implements Worker.
func (s *ChannelSupervisor) Run() {
	s.target.Start(s.ctx)
}

package app

import (
	"context"

	"meshbbs/pkg/logger"
	"meshbbs/pkg/telemetry"
	"meshbbs/pkg/transport"
)

// pump feeds every inbound packet through the dispatcher and queues the
// framed reply. When the link closes it waits for queued replies to go out.
func (a *App) pump(ctx context.Context) {
	last := make(map[string]*transport.SendTask)
	packets := a.link.Packets()
	for {
		select {
		case <-ctx.Done():
			return
		case pkt, ok := <-packets:
			if !ok {
				for _, t := range last {
					select {
					case <-t.Done():
					case <-ctx.Done():
						return
					}
				}
				return
			}
			if t := a.handle(ctx, pkt); t != nil {
				last[pkt.From] = t
			}
		}
	}
}

func (a *App) handle(ctx context.Context, pkt transport.Packet) *transport.SendTask {
	telemetry.PacketsReceived.WithLabelValues(a.link.Name()).Inc()
	logger.Debug("packet_received", "id", pkt.ID, "from", pkt.From, "bytes", len(pkt.Text))

	reply := a.dispatcher.Dispatch(ctx, pkt.From, pkt.Text)
	payloads := a.framer.Payloads(reply.Text, reply.Chunk, reply.SuppressHeaders)
	if len(payloads) == 0 {
		return nil
	}
	return a.outbox.Enqueue(pkt.From, payloads)
}

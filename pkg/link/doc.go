// Package link implements the host side transport to the radio
// peripheral.
package link

// A Session multiplexes two classes of outbound traffic, commands and
// network data, over one hardware channel. Producers frame their payload
// and queue it into the per-class queue; a single worker goroutine owns
// the hardware, drains inbound frames and writes queued frames with
// commands always ahead of data.
//
// A frame stays in its queue until the hardware write succeeded, so a
// failed write is retried after the channel is reset.
//
// Backpressure works in both directions:
//   - the data frame filling the queue pauses the NetDevice until the
//     queue drains below 1/5 of its capacity, later frames get
//     ErrQueueFull;
//   - the command filling the queue blocks its producer until the queue
//     drains below 4/5 of its capacity;
//   - the peripheral can pause all outbound traffic with a control
//     command, and resume it later.
